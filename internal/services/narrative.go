package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"vantagebuild/proposal-engine/internal/models"
)

// NarrativeProvider is the external generative-language collaborator. One
// call per evaluation run; retries are the caller's responsibility.
type NarrativeProvider interface {
	Name() string
	Generate(ctx context.Context, systemInstruction, userContent string) (string, error)
}

type NarrativeInput struct {
	Project        models.Project
	Catalog        RequirementCatalog
	Bundles        []ProposalBundle
	Scores         []DeterministicScore
	Mode           models.EvaluationMode
	PriceBenchmark *float64
	MarketContext  string
}

type NarrativeSummary struct {
	OverallNote     string
	DataGaps        string
	PriceSpreadNote string
}

// NarrativeVerdict is the validated model output for one proposal. The
// numeric fields are parsed only so the reconciler can log drift; the
// locked deterministic values always win.
type NarrativeVerdict struct {
	ProposalID       string
	FinalScore       int
	Rank             int
	Recommendation   string
	Knockout         bool
	Strengths        []string
	Concerns         []string
	ScopeAssessment  string
	TermsAssessment  string
	MissingItemsNote string
	PriceAssessment  *string
	ComparativeNotes *string
}

type NarrativeResult struct {
	Summary  NarrativeSummary
	Verdicts []NarrativeVerdict
	Model    string
}

type NarrativeService interface {
	Narrate(ctx context.Context, input NarrativeInput) (*NarrativeResult, error)
}

type narrativeService struct {
	provider      NarrativeProvider
	promptBuilder *PromptBuilder
	timeout       time.Duration
	retryAfter    time.Duration
}

func NewNarrativeService(provider NarrativeProvider, timeout, retryAfter time.Duration) NarrativeService {
	return &narrativeService{
		provider:      provider,
		promptBuilder: NewPromptBuilder(),
		timeout:       timeout,
		retryAfter:    retryAfter,
	}
}

// Narrate implements NarrativeService. The provider call is raced against
// the configured timeout; whichever settles first wins.
func (s *narrativeService) Narrate(ctx context.Context, input NarrativeInput) (*NarrativeResult, error) {
	system := s.promptBuilder.BuildSystemInstruction(input.Mode)
	user, err := s.promptBuilder.BuildEvaluationPayload(
		input.Project, input.Catalog, input.Bundles, input.Scores,
		input.PriceBenchmark, input.MarketContext, input.Mode,
	)
	if err != nil {
		return nil, WrapErr(CodeEvaluationFailed, err, "failed to build narrative payload")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type generation struct {
		text string
		err  error
	}
	done := make(chan generation, 1)
	go func() {
		text, genErr := s.provider.Generate(callCtx, system, user)
		done <- generation{text: text, err: genErr}
	}()

	var raw string
	select {
	case <-callCtx.Done():
		return nil, &EngineError{
			Code:       CodeTimeout,
			Message:    "narrative generation exceeded " + s.timeout.String(),
			RetryAfter: s.retryAfter,
			Err:        callCtx.Err(),
		}
	case gen := <-done:
		if gen.err != nil {
			if engineErr := asEngineError(gen.err); engineErr != nil {
				return nil, engineErr
			}
			return nil, WrapErr(CodeProviderApiError, gen.err, "narrative provider call failed")
		}
		raw = gen.text
	}

	verdicts, summary, err := parseNarrativeResponse(raw, input)
	if err != nil {
		return nil, err
	}

	return &NarrativeResult{
		Summary:  *summary,
		Verdicts: verdicts,
		Model:    s.provider.Name(),
	}, nil
}

// Response schemas. SINGLE and COMPARE are distinct shapes so that
// DisallowUnknownFields rejects price commentary where it is not permitted.

type narrativeSummaryPayload struct {
	OverallNote     string `json:"overall_note"`
	DataGaps        string `json:"data_gaps"`
	PriceSpreadNote string `json:"price_spread_note,omitempty"`
}

type singleVerdictPayload struct {
	ProposalID       string   `json:"proposal_id"`
	FinalScore       int      `json:"final_score"`
	Rank             int      `json:"rank"`
	Recommendation   string   `json:"recommendation"`
	Knockout         bool     `json:"knockout"`
	Strengths        []string `json:"strengths"`
	Concerns         []string `json:"concerns"`
	ScopeAssessment  string   `json:"scope_assessment"`
	TermsAssessment  string   `json:"terms_assessment"`
	MissingItemsNote string   `json:"missing_items_note"`
}

type compareVerdictPayload struct {
	ProposalID       string   `json:"proposal_id"`
	FinalScore       int      `json:"final_score"`
	Rank             int      `json:"rank"`
	Recommendation   string   `json:"recommendation"`
	Knockout         bool     `json:"knockout"`
	Strengths        []string `json:"strengths"`
	Concerns         []string `json:"concerns"`
	ScopeAssessment  string   `json:"scope_assessment"`
	TermsAssessment  string   `json:"terms_assessment"`
	MissingItemsNote string   `json:"missing_items_note"`
	PriceAssessment  string   `json:"price_assessment"`
	ComparativeNotes *string  `json:"comparative_notes"`
}

type singleResponsePayload struct {
	Summary   narrativeSummaryPayload `json:"summary"`
	Proposals []singleVerdictPayload  `json:"proposals"`
}

type compareResponsePayload struct {
	Summary   narrativeSummaryPayload `json:"summary"`
	Proposals []compareVerdictPayload `json:"proposals"`
}

func parseNarrativeResponse(raw string, input NarrativeInput) ([]NarrativeVerdict, *NarrativeSummary, error) {
	cleaned := stripCodeFences(raw)
	if strings.TrimSpace(cleaned) == "" {
		return nil, nil, Errf(CodeInvalidJson, "provider returned an empty response")
	}

	if input.Mode == models.ModeSingle {
		// The SINGLE schema has no price fields; probe the raw JSON so a
		// provider that smuggles them in fails validation rather than
		// unknown-field parsing, which gives a clearer error.
		if len(gjson.Get(cleaned, "proposals.#.price_assessment").Array()) > 0 ||
			len(gjson.Get(cleaned, "proposals.#.comparative_notes").Array()) > 0 ||
			gjson.Get(cleaned, "summary.price_spread_note").String() != "" {
			return nil, nil, Errf(CodeValidationError, "price commentary is not permitted in single-proposal mode")
		}

		var payload singleResponsePayload
		if err := strictUnmarshal(cleaned, &payload); err != nil {
			return nil, nil, WrapErr(CodeInvalidJson, err, "provider response is not valid single-mode JSON")
		}
		verdicts := make([]NarrativeVerdict, 0, len(payload.Proposals))
		for _, p := range payload.Proposals {
			verdicts = append(verdicts, NarrativeVerdict{
				ProposalID:       p.ProposalID,
				FinalScore:       p.FinalScore,
				Rank:             p.Rank,
				Recommendation:   p.Recommendation,
				Knockout:         p.Knockout,
				Strengths:        p.Strengths,
				Concerns:         p.Concerns,
				ScopeAssessment:  p.ScopeAssessment,
				TermsAssessment:  p.TermsAssessment,
				MissingItemsNote: p.MissingItemsNote,
			})
		}
		summary := &NarrativeSummary{OverallNote: payload.Summary.OverallNote, DataGaps: payload.Summary.DataGaps}
		if err := validateVerdicts(verdicts, input); err != nil {
			return nil, nil, err
		}
		return verdicts, summary, nil
	}

	var payload compareResponsePayload
	if err := strictUnmarshal(cleaned, &payload); err != nil {
		return nil, nil, WrapErr(CodeInvalidJson, err, "provider response is not valid compare-mode JSON")
	}
	verdicts := make([]NarrativeVerdict, 0, len(payload.Proposals))
	for _, p := range payload.Proposals {
		price := p.PriceAssessment
		verdicts = append(verdicts, NarrativeVerdict{
			ProposalID:       p.ProposalID,
			FinalScore:       p.FinalScore,
			Rank:             p.Rank,
			Recommendation:   p.Recommendation,
			Knockout:         p.Knockout,
			Strengths:        p.Strengths,
			Concerns:         p.Concerns,
			ScopeAssessment:  p.ScopeAssessment,
			TermsAssessment:  p.TermsAssessment,
			MissingItemsNote: p.MissingItemsNote,
			PriceAssessment:  &price,
			ComparativeNotes: p.ComparativeNotes,
		})
	}
	summary := &NarrativeSummary{
		OverallNote:     payload.Summary.OverallNote,
		DataGaps:        payload.Summary.DataGaps,
		PriceSpreadNote: payload.Summary.PriceSpreadNote,
	}
	if err := validateVerdicts(verdicts, input); err != nil {
		return nil, nil, err
	}
	for _, v := range verdicts {
		if v.PriceAssessment == nil || strings.TrimSpace(*v.PriceAssessment) == "" {
			return nil, nil, Errf(CodeValidationError, "proposal %s is missing its price assessment", v.ProposalID)
		}
	}
	return verdicts, summary, nil
}

// validateVerdicts checks the structural contract shared by both modes:
// exactly one verdict per batch proposal, matching ids, non-empty
// assessments.
func validateVerdicts(verdicts []NarrativeVerdict, input NarrativeInput) error {
	if len(verdicts) != len(input.Bundles) {
		return Errf(CodeValidationError, "provider returned %d verdicts for %d proposals",
			len(verdicts), len(input.Bundles))
	}

	expected := make(map[string]bool, len(input.Bundles))
	for _, b := range input.Bundles {
		expected[b.Proposal.ID.String()] = true
	}

	seen := make(map[string]bool, len(verdicts))
	for _, v := range verdicts {
		if !expected[v.ProposalID] {
			return Errf(CodeValidationError, "provider returned a verdict for unknown proposal %q", v.ProposalID)
		}
		if seen[v.ProposalID] {
			return Errf(CodeValidationError, "provider returned duplicate verdicts for proposal %s", v.ProposalID)
		}
		seen[v.ProposalID] = true
		if strings.TrimSpace(v.ScopeAssessment) == "" {
			return Errf(CodeValidationError, "proposal %s is missing its scope assessment", v.ProposalID)
		}
		if strings.TrimSpace(v.Recommendation) == "" {
			return Errf(CodeValidationError, "proposal %s is missing its recommendation", v.ProposalID)
		}
	}
	return nil
}

func strictUnmarshal(data string, target interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader([]byte(data)))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// stripCodeFences removes markdown artifacts a model may wrap its JSON in
// and trims to the outermost object.
func stripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func asEngineError(err error) *EngineError {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr
	}
	return nil
}

func logVerdictDrift(verdicts []NarrativeVerdict, scores []DeterministicScore) {
	byID := make(map[string]DeterministicScore, len(scores))
	for _, s := range scores {
		byID[s.ProposalID.String()] = s
	}
	for _, v := range verdicts {
		locked, ok := byID[v.ProposalID]
		if !ok {
			continue
		}
		if v.FinalScore != locked.FinalScore || v.Rank != locked.Rank || v.Knockout != locked.KnockedOut {
			log.Printf("⚠️  Provider drifted from locked verdict for proposal %s (score %d→%d, rank %d→%d); locked values re-applied",
				v.ProposalID, locked.FinalScore, v.FinalScore, locked.Rank, v.Rank)
		}
	}
}
