package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"vantagebuild/proposal-engine/internal/repositories"
)

// ExtractionWorker runs document text extraction in the background so that
// proposals enter evaluation with their plain-text blob already in place.
type ExtractionWorker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueProposal(proposalID uuid.UUID)
}

type extractionWorker struct {
	proposalRepo repositories.ProposalRepository
	extractor    DocumentTextExtractor
	jobQueue     chan uuid.UUID
	concurrency  int
	pollInterval time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
}

func NewExtractionWorker(
	proposalRepo repositories.ProposalRepository,
	extractor DocumentTextExtractor,
	concurrency int,
	pollInterval time.Duration,
) ExtractionWorker {
	return &extractionWorker{
		proposalRepo: proposalRepo,
		extractor:    extractor,
		jobQueue:     make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
	}
}

// Start implements ExtractionWorker.
func (w *extractionWorker) Start(ctx context.Context) {
	log.Printf("🚀 Starting extraction worker with %d concurrent workers\n", w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPending(ctx)
}

// Stop implements ExtractionWorker.
func (w *extractionWorker) Stop() {
	log.Println("🛑 Stopping extraction worker...")
	close(w.stopChan)
	w.wg.Wait()
	log.Println("✅ Extraction worker stopped")
}

// EnqueueProposal implements ExtractionWorker.
func (w *extractionWorker) EnqueueProposal(proposalID uuid.UUID) {
	select {
	case w.jobQueue <- proposalID:
	case <-w.stopChan:
		log.Printf("⚠️  Worker stopped, cannot enqueue proposal %s\n", proposalID)
	}
}

func (w *extractionWorker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case proposalID := <-w.jobQueue:
			if err := w.extractOne(ctx, proposalID); err != nil {
				log.Printf("❌ Worker #%d failed to extract proposal %s: %v\n", workerID, proposalID, err)
			} else {
				log.Printf("✅ Worker #%d extracted text for proposal %s\n", workerID, proposalID)
			}
		}
	}
}

func (w *extractionWorker) extractOne(ctx context.Context, proposalID uuid.UUID) error {
	text, err := w.extractor.ExtractProposalText(ctx, proposalID)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	return w.proposalRepo.UpdateExtractedText(proposalID, text)
}

func (w *extractionWorker) pollPending(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			pending, err := w.proposalRepo.FindPendingExtractions(10)
			if err != nil {
				log.Printf("⚠️  Failed to fetch pending extractions: %v\n", err)
				continue
			}
			for _, proposal := range pending {
				w.EnqueueProposal(proposal.ID)
			}
		}
	}
}
