package services

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"vantagebuild/proposal-engine/internal/models"
	"vantagebuild/proposal-engine/internal/repositories"
)

// EvaluateInput is the parsed inbound evaluation request.
type EvaluateInput struct {
	ProjectID      uuid.UUID
	ProposalIDs    []uuid.UUID
	PriceBenchmark *float64
	Force          bool
}

// EvaluationService is the engine entry point. It supervises the pipeline
// (fetch, precheck, score, narrate, persist), short-circuits on cache hits
// and classifies every failure at this boundary.
type EvaluationService interface {
	Evaluate(ctx context.Context, input EvaluateInput) (*models.EvaluateResponse, error)
}

type evaluationService struct {
	fetcher    FetcherService
	precheck   PrecheckService
	narrative  NarrativeService
	policyRepo repositories.PolicyRepository
	evalRepo   repositories.EvaluationRepository
	market     MarketContextService // optional
}

func NewEvaluationService(
	fetcher FetcherService,
	precheck PrecheckService,
	narrative NarrativeService,
	policyRepo repositories.PolicyRepository,
	evalRepo repositories.EvaluationRepository,
	market MarketContextService,
) EvaluationService {
	return &evaluationService{
		fetcher:    fetcher,
		precheck:   precheck,
		narrative:  narrative,
		policyRepo: policyRepo,
		evalRepo:   evalRepo,
		market:     market,
	}
}

// Evaluate implements EvaluationService.
func (s *evaluationService) Evaluate(ctx context.Context, input EvaluateInput) (*models.EvaluateResponse, error) {
	started := time.Now()

	fetched, err := s.fetcher.Fetch(ctx, input.ProjectID, input.ProposalIDs)
	if err != nil {
		return nil, Classify(err)
	}

	mode := models.ModeCompare
	if len(fetched.Bundles) == 1 {
		mode = models.ModeSingle
	}

	batchIDs := make([]uuid.UUID, 0, len(fetched.Bundles))
	for _, b := range fetched.Bundles {
		batchIDs = append(batchIDs, b.Proposal.ID)
	}

	// Idempotent short-circuit: when every proposal in the batch already
	// has a completed evaluation and a re-run was not forced, reassemble
	// from storage without touching the provider.
	if !input.Force {
		if cached, ok := s.reassembleCached(fetched, batchIDs, input, mode, started); ok {
			log.Printf("📦 Serving cached evaluation for project %s (%d proposals)", input.ProjectID, len(batchIDs))
			return cached, nil
		}
	}

	policy, err := s.policyRepo.FindByOwner(fetched.Project.OwnerID)
	if err != nil {
		return nil, Classify(err)
	}

	pre := s.precheck.Check(fetched.Bundles, policy)
	scores := ScoreProposals(fetched.Catalog, fetched.Bundles, pre, mode)

	var benchmark *float64
	if mode == models.ModeCompare {
		benchmark = input.PriceBenchmark
		if benchmark == nil {
			benchmark = batchMeanPrice(fetched.Bundles)
		}
	}

	marketContext := ""
	if mode == models.ModeCompare && s.market != nil {
		note, err := s.market.BenchmarkNote(ctx, fetched.Project, fetched.Catalog.Invite.AdvisorType)
		if err != nil {
			log.Printf("⚠️  Market context retrieval failed, continuing without it: %v", err)
		} else {
			marketContext = note
		}
	}

	narrated, err := s.narrative.Narrate(ctx, NarrativeInput{
		Project:        fetched.Project,
		Catalog:        fetched.Catalog,
		Bundles:        fetched.Bundles,
		Scores:         scores,
		Mode:           mode,
		PriceBenchmark: benchmark,
		MarketContext:  marketContext,
	})
	if err != nil {
		// Partial pipeline progress is discarded; nothing was persisted yet.
		return nil, Classify(err)
	}

	logVerdictDrift(narrated.Verdicts, scores)
	verdicts := reconcileVerdicts(fetched.Bundles, scores, narrated.Verdicts)

	elapsed := time.Since(started).Milliseconds()
	s.persistVerdicts(fetched.Project.ID, mode, verdicts, scores, narrated.Model, elapsed)

	return &models.EvaluateResponse{
		Success: true,
		Summary: models.BatchSummary{
			TotalProposals: len(verdicts),
			ProjectScale:   fetched.Project.ScaleCategory(),
			PriceBenchmark: benchmark,
			Mode:           mode,
			MarketContext:  marketContext,
			OverallNote:    narrated.Summary.OverallNote,
			DataGaps:       narrated.Summary.DataGaps,
			PriceSpread:    narrated.Summary.PriceSpreadNote,
		},
		Proposals: verdicts,
		Metadata: models.EvaluationMetadata{
			Model:      narrated.Model,
			DurationMs: elapsed,
			Cached:     false,
		},
	}, nil
}

// reconcileVerdicts merges the model narrative with the locked
// deterministic fields. The locked values are re-applied unconditionally:
// the provider's echo is never trusted.
func reconcileVerdicts(bundles []ProposalBundle, scores []DeterministicScore, narrated []NarrativeVerdict) []models.ProposalVerdict {
	supplierByID := make(map[string]string, len(bundles))
	for _, b := range bundles {
		name := b.Proposal.SupplierName
		if name == "" {
			name = b.Advisor.CompanyName
		}
		if name == "" {
			name = b.Advisor.Name
		}
		supplierByID[b.Proposal.ID.String()] = name
	}

	narrativeByID := make(map[string]NarrativeVerdict, len(narrated))
	for _, v := range narrated {
		narrativeByID[v.ProposalID] = v
	}

	verdicts := make([]models.ProposalVerdict, 0, len(scores))
	for _, score := range scores {
		id := score.ProposalID.String()
		narrative := narrativeByID[id]

		verdicts = append(verdicts, models.ProposalVerdict{
			ProposalID:        id,
			SupplierName:      supplierByID[id],
			FinalScore:        score.FinalScore,
			Rank:              score.Rank,
			Recommendation:    score.Recommendation,
			Knockout:          score.KnockedOut,
			KnockoutReason:    score.KnockoutReason,
			CoverageScore:     score.CoverageScore,
			PriceScore:        score.PriceScore,
			DataCompleteness:  score.DataCompleteness,
			MissingFeeItems:   emptyIfNil(score.MissingFeeItems),
			MissingScopeItems: emptyIfNil(score.MissingScopeItems),
			Strengths:         narrative.Strengths,
			Concerns:          narrative.Concerns,
			ScopeAssessment:   narrative.ScopeAssessment,
			TermsAssessment:   narrative.TermsAssessment,
			MissingItemsNote:  narrative.MissingItemsNote,
			PriceAssessment:   narrative.PriceAssessment,
			ComparativeNotes:  narrative.ComparativeNotes,
		})
	}

	sort.Slice(verdicts, func(i, j int) bool { return verdicts[i].Rank < verdicts[j].Rank })
	return verdicts
}

// persistVerdicts writes each proposal's result independently. A failed
// write is logged and skipped; the cache short-circuit makes re-runs safe
// (at-least-once, last write wins).
func (s *evaluationService) persistVerdicts(projectID uuid.UUID, mode models.EvaluationMode, verdicts []models.ProposalVerdict, scores []DeterministicScore, modelName string, elapsed int64) {
	categories := make(map[string]models.KnockoutCategory, len(scores))
	for _, score := range scores {
		categories[score.ProposalID.String()] = score.KnockoutCategory
	}

	now := time.Now()
	for _, verdict := range verdicts {
		proposalID, err := uuid.Parse(verdict.ProposalID)
		if err != nil {
			log.Printf("❌ Skipping persistence for malformed proposal id %q: %v", verdict.ProposalID, err)
			continue
		}

		encoded, err := json.Marshal(verdict)
		if err != nil {
			log.Printf("❌ Failed to encode verdict for proposal %s: %v", verdict.ProposalID, err)
			continue
		}

		completedAt := now
		eval := &models.ProposalEvaluation{
			ID:               uuid.New(),
			ProposalID:       proposalID,
			ProjectID:        projectID,
			Mode:             mode,
			Status:           models.StatusCompleted,
			FinalScore:       verdict.FinalScore,
			Rank:             verdict.Rank,
			CoverageScore:    verdict.CoverageScore,
			PriceScore:       verdict.PriceScore,
			DataCompleteness: verdict.DataCompleteness,
			KnockedOut:       verdict.Knockout,
			KnockoutReason:   verdict.KnockoutReason,
			KnockoutCategory: categories[verdict.ProposalID],
			Verdict:          string(encoded),
			ModelName:        modelName,
			DurationMs:       elapsed,
			CompletedAt:      &completedAt,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		if err := s.evalRepo.Upsert(eval); err != nil {
			log.Printf("❌ Failed to persist evaluation for proposal %s: %v", verdict.ProposalID, err)
		}
	}
}

// reassembleCached rebuilds a response from stored evaluations when every
// batch proposal already has a completed one.
func (s *evaluationService) reassembleCached(fetched *FetchResult, batchIDs []uuid.UUID, input EvaluateInput, mode models.EvaluationMode, started time.Time) (*models.EvaluateResponse, bool) {
	stored, err := s.evalRepo.FindCompletedByProposals(batchIDs)
	if err != nil {
		log.Printf("⚠️  Cache lookup failed, running full evaluation: %v", err)
		return nil, false
	}
	if len(stored) != len(batchIDs) {
		return nil, false
	}

	verdicts := make([]models.ProposalVerdict, 0, len(stored))
	modelName := ""
	for _, eval := range stored {
		var verdict models.ProposalVerdict
		if err := json.Unmarshal([]byte(eval.Verdict), &verdict); err != nil {
			log.Printf("⚠️  Stored verdict for proposal %s is unreadable, running full evaluation: %v", eval.ProposalID, err)
			return nil, false
		}
		verdicts = append(verdicts, verdict)
		modelName = eval.ModelName
	}
	sort.Slice(verdicts, func(i, j int) bool { return verdicts[i].Rank < verdicts[j].Rank })

	var benchmark *float64
	if mode == models.ModeCompare {
		benchmark = input.PriceBenchmark
	}

	return &models.EvaluateResponse{
		Success: true,
		Summary: models.BatchSummary{
			TotalProposals: len(verdicts),
			ProjectScale:   fetched.Project.ScaleCategory(),
			PriceBenchmark: benchmark,
			Mode:           mode,
		},
		Proposals: verdicts,
		Metadata: models.EvaluationMetadata{
			Model:      modelName,
			DurationMs: time.Since(started).Milliseconds(),
			Cached:     true,
		},
	}, true
}

// batchMeanPrice is the default compare-mode benchmark when the caller
// supplies none: the mean of the batch's positive prices.
func batchMeanPrice(bundles []ProposalBundle) *float64 {
	var sum float64
	var count int
	for _, b := range bundles {
		if b.Proposal.Price > 0 {
			sum += b.Proposal.Price
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}
