package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"vantagebuild/proposal-engine/internal/models"
)

type stubProvider struct {
	response string
	err      error
	delay    time.Duration
	calls    int
}

func (p *stubProvider) Name() string { return "stub-model" }

func (p *stubProvider) Generate(ctx context.Context, systemInstruction, userContent string) (string, error) {
	p.calls++
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.response, p.err
}

func singleInput() NarrativeInput {
	catalog := buildCatalog(2, 0)
	bundle := fullBundle(catalog, 100000)
	scores := ScoreProposals(catalog, []ProposalBundle{bundle}, emptyPrecheck(), models.ModeSingle)
	return NarrativeInput{
		Project: models.Project{ID: bundle.Proposal.ProjectID, Name: "Harbor Quarter", Type: "residential"},
		Catalog: catalog,
		Bundles: []ProposalBundle{bundle},
		Scores:  scores,
		Mode:    models.ModeSingle,
	}
}

func compareInput() NarrativeInput {
	catalog := buildCatalog(2, 0)
	a := fullBundle(catalog, 100000)
	b := fullBundle(catalog, 150000)
	bundles := []ProposalBundle{a, b}
	scores := ScoreProposals(catalog, bundles, emptyPrecheck(), models.ModeCompare)
	benchmark := 120000.0
	return NarrativeInput{
		Project:        models.Project{ID: a.Proposal.ProjectID, Name: "Harbor Quarter", Type: "residential"},
		Catalog:        catalog,
		Bundles:        bundles,
		Scores:         scores,
		Mode:           models.ModeCompare,
		PriceBenchmark: &benchmark,
	}
}

func singleResponseJSON(input NarrativeInput) string {
	score := input.Scores[0]
	return fmt.Sprintf(`{
		"summary": {"overall_note": "Solid proposal overall.", "data_gaps": ""},
		"proposals": [{
			"proposal_id": %q,
			"final_score": %d,
			"rank": %d,
			"recommendation": %q,
			"knockout": false,
			"strengths": ["complete fee schedule"],
			"concerns": [],
			"scope_assessment": "Covers every mandatory item.",
			"terms_assessment": "Standard 30-day payment terms.",
			"missing_items_note": ""
		}]
	}`, score.ProposalID, score.FinalScore, score.Rank, score.Recommendation)
}

func compareResponseJSON(input NarrativeInput) string {
	verdicts := ""
	for i, score := range input.Scores {
		if i > 0 {
			verdicts += ","
		}
		verdicts += fmt.Sprintf(`{
			"proposal_id": %q,
			"final_score": %d,
			"rank": %d,
			"recommendation": %q,
			"knockout": false,
			"strengths": ["clear pricing"],
			"concerns": [],
			"scope_assessment": "Covers every mandatory item.",
			"terms_assessment": "Standard terms.",
			"missing_items_note": "",
			"price_assessment": "Close to the batch benchmark.",
			"comparative_notes": "Competitive against the other bid."
		}`, score.ProposalID, score.FinalScore, score.Rank, score.Recommendation)
	}
	return fmt.Sprintf(`{
		"summary": {"overall_note": "Two comparable bids.", "data_gaps": "", "price_spread_note": "50%% spread between bids."},
		"proposals": [%s]
	}`, verdicts)
}

func TestNarrateSingleStripsCodeFences(t *testing.T) {
	input := singleInput()
	provider := &stubProvider{response: "```json\n" + singleResponseJSON(input) + "\n```"}
	svc := NewNarrativeService(provider, time.Second, 30*time.Second)

	result, err := svc.Narrate(context.Background(), input)
	if err != nil {
		t.Fatalf("Narrate() error = %v", err)
	}
	if len(result.Verdicts) != 1 {
		t.Fatalf("Narrate() verdicts = %d, want 1", len(result.Verdicts))
	}
	if result.Verdicts[0].ProposalID != input.Scores[0].ProposalID.String() {
		t.Errorf("verdict proposal id = %q, want %q", result.Verdicts[0].ProposalID, input.Scores[0].ProposalID)
	}
	if result.Model != "stub-model" {
		t.Errorf("result model = %q, want stub-model", result.Model)
	}
	if result.Summary.OverallNote == "" {
		t.Error("summary overall note lost in parsing")
	}
}

func TestNarrateSingleRejectsPriceCommentary(t *testing.T) {
	input := singleInput()
	score := input.Scores[0]
	provider := &stubProvider{response: fmt.Sprintf(`{
		"summary": {"overall_note": "ok", "data_gaps": ""},
		"proposals": [{
			"proposal_id": %q,
			"final_score": %d,
			"rank": 1,
			"recommendation": %q,
			"knockout": false,
			"strengths": [],
			"concerns": [],
			"scope_assessment": "fine",
			"terms_assessment": "fine",
			"missing_items_note": "",
			"price_assessment": "cheap"
		}]
	}`, score.ProposalID, score.FinalScore, score.Recommendation)}
	svc := NewNarrativeService(provider, time.Second, 30*time.Second)

	_, err := svc.Narrate(context.Background(), input)
	if CodeOf(err) != CodeValidationError {
		t.Errorf("CodeOf(err) = %q, want %q (err = %v)", CodeOf(err), CodeValidationError, err)
	}
}

func TestNarrateCompareHappyPath(t *testing.T) {
	input := compareInput()
	provider := &stubProvider{response: compareResponseJSON(input)}
	svc := NewNarrativeService(provider, time.Second, 30*time.Second)

	result, err := svc.Narrate(context.Background(), input)
	if err != nil {
		t.Fatalf("Narrate() error = %v", err)
	}
	if len(result.Verdicts) != 2 {
		t.Fatalf("Narrate() verdicts = %d, want 2", len(result.Verdicts))
	}
	for _, v := range result.Verdicts {
		if v.PriceAssessment == nil || *v.PriceAssessment == "" {
			t.Errorf("compare verdict %s has no price assessment", v.ProposalID)
		}
	}
	if result.Summary.PriceSpreadNote == "" {
		t.Error("price spread note lost in parsing")
	}
}

func TestNarrateCompareMissingPriceAssessment(t *testing.T) {
	input := compareInput()
	raw := compareResponseJSON(input)
	// Blank out the price assessments.
	provider := &stubProvider{response: strings.ReplaceAll(raw, "Close to the batch benchmark.", "")}
	svc := NewNarrativeService(provider, time.Second, 30*time.Second)

	_, err := svc.Narrate(context.Background(), input)
	if CodeOf(err) != CodeValidationError {
		t.Errorf("CodeOf(err) = %q, want %q (err = %v)", CodeOf(err), CodeValidationError, err)
	}
}

func TestNarrateRejectsUnknownFields(t *testing.T) {
	input := singleInput()
	raw := singleResponseJSON(input)
	raw = strings.ReplaceAll(raw, `"missing_items_note": ""`, `"missing_items_note": "", "confidence": 0.9`)
	provider := &stubProvider{response: raw}
	svc := NewNarrativeService(provider, time.Second, 30*time.Second)

	_, err := svc.Narrate(context.Background(), input)
	if CodeOf(err) != CodeInvalidJson {
		t.Errorf("CodeOf(err) = %q, want %q (err = %v)", CodeOf(err), CodeInvalidJson, err)
	}
}

func TestNarrateVerdictCountMismatch(t *testing.T) {
	input := compareInput()
	// Single-verdict response for a two-proposal batch.
	provider := &stubProvider{response: strings.ReplaceAll(compareResponseJSON(compareInputSubset(input)), "Two comparable bids.", "One bid.")}
	svc := NewNarrativeService(provider, time.Second, 30*time.Second)

	_, err := svc.Narrate(context.Background(), input)
	if CodeOf(err) != CodeValidationError {
		t.Errorf("CodeOf(err) = %q, want %q (err = %v)", CodeOf(err), CodeValidationError, err)
	}
}

// compareInputSubset keeps only the first proposal's score so the canned
// response covers one verdict.
func compareInputSubset(input NarrativeInput) NarrativeInput {
	out := input
	out.Scores = input.Scores[:1]
	return out
}

func TestNarrateUnknownProposalID(t *testing.T) {
	input := singleInput()
	raw := strings.ReplaceAll(singleResponseJSON(input), input.Scores[0].ProposalID.String(), "11111111-2222-3333-4444-555555555555")
	provider := &stubProvider{response: raw}
	svc := NewNarrativeService(provider, time.Second, 30*time.Second)

	_, err := svc.Narrate(context.Background(), input)
	if CodeOf(err) != CodeValidationError {
		t.Errorf("CodeOf(err) = %q, want %q (err = %v)", CodeOf(err), CodeValidationError, err)
	}
}

func TestNarrateEmptyResponse(t *testing.T) {
	provider := &stubProvider{response: "   "}
	svc := NewNarrativeService(provider, time.Second, 30*time.Second)

	_, err := svc.Narrate(context.Background(), singleInput())
	if CodeOf(err) != CodeInvalidJson {
		t.Errorf("CodeOf(err) = %q, want %q (err = %v)", CodeOf(err), CodeInvalidJson, err)
	}
}

func TestNarrateTimeout(t *testing.T) {
	provider := &stubProvider{delay: 500 * time.Millisecond, response: "{}"}
	svc := NewNarrativeService(provider, 20*time.Millisecond, 30*time.Second)

	_, err := svc.Narrate(context.Background(), singleInput())
	var engineErr *EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("Narrate() error = %v, want *EngineError", err)
	}
	if engineErr.Code != CodeTimeout {
		t.Errorf("code = %q, want %q", engineErr.Code, CodeTimeout)
	}
	if engineErr.RetryAfter != 30*time.Second {
		t.Errorf("retry after = %v, want 30s", engineErr.RetryAfter)
	}
}

func TestNarrateProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("upstream exploded")}
	svc := NewNarrativeService(provider, time.Second, 30*time.Second)

	_, err := svc.Narrate(context.Background(), singleInput())
	if CodeOf(err) != CodeProviderApiError {
		t.Errorf("CodeOf(err) = %q, want %q (err = %v)", CodeOf(err), CodeProviderApiError, err)
	}
}

func TestNarrateProviderEngineErrorPassesThrough(t *testing.T) {
	provider := &stubProvider{err: Errf(CodeConfigurationError, "key revoked")}
	svc := NewNarrativeService(provider, time.Second, 30*time.Second)

	_, err := svc.Narrate(context.Background(), singleInput())
	if CodeOf(err) != CodeConfigurationError {
		t.Errorf("CodeOf(err) = %q, want %q (err = %v)", CodeOf(err), CodeConfigurationError, err)
	}
}

func TestStripCodeFences(t *testing.T) {
	raw := "Here is the verdict:\n```json\n{\"a\": 1}\n```\nThanks!"
	if got := stripCodeFences(raw); got != `{"a": 1}` {
		t.Errorf("stripCodeFences() = %q, want %q", got, `{"a": 1}`)
	}
}
