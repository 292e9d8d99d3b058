package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"vantagebuild/proposal-engine/internal/repositories"
)

// DocumentTextExtractor is the document-text-extraction collaborator: it
// turns a proposal's uploaded attachments into one plain-text blob.
type DocumentTextExtractor interface {
	ExtractProposalText(ctx context.Context, proposalID uuid.UUID) (string, error)
}

type pdfTextExtractor struct {
	docRepo repositories.DocumentRepository
}

func NewPDFTextExtractor(docRepo repositories.DocumentRepository) DocumentTextExtractor {
	return &pdfTextExtractor{docRepo: docRepo}
}

// ExtractProposalText implements DocumentTextExtractor. Each un-extracted
// document is parsed and marked; pages or files that fail to parse are
// skipped rather than failing the whole proposal.
func (e *pdfTextExtractor) ExtractProposalText(ctx context.Context, proposalID uuid.UUID) (string, error) {
	docs, err := e.docRepo.FindByProposal(proposalID)
	if err != nil {
		return "", fmt.Errorf("failed to load proposal documents: %w", err)
	}
	if len(docs) == 0 {
		return "", nil
	}

	var builder strings.Builder
	for _, doc := range docs {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		text, err := extractPDFText(doc.FilePath)
		if err != nil {
			log.Printf("⚠️  Failed to extract text from document %s: %v", doc.ID, err)
			continue
		}

		builder.WriteString(text)
		builder.WriteString("\n\n")

		if !doc.Extracted {
			if err := e.docRepo.MarkExtracted(doc.ID); err != nil {
				log.Printf("⚠️  Failed to mark document %s extracted: %v", doc.ID, err)
			}
		}
	}

	return CleanText(builder.String()), nil
}

func extractPDFText(filePath string) (string, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return "", fmt.Errorf("file does not exist: %s", filePath)
	}

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages, keep the rest.
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := textBuilder.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text content found in PDF")
	}

	return text, nil
}

// ExtractPDFFile reads one PDF from disk and returns its cleaned text.
// Used by the benchmark ingestion script.
func ExtractPDFFile(filePath string) (string, error) {
	text, err := extractPDFText(filePath)
	if err != nil {
		return "", err
	}
	return CleanText(text), nil
}

// CleanText trims and collapses empty lines out of extracted text.
func CleanText(text string) string {
	text = strings.TrimSpace(text)

	lines := strings.Split(text, "\n")
	var cleanedLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
