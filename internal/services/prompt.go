package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"vantagebuild/proposal-engine/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// Whitelisted payload shapes. Only these fields ever reach the provider;
// anything not listed here stays inside the engine.
type promptProject struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Location      string  `json:"location"`
	Budget        float64 `json:"budget"`
	AdvisorBudget float64 `json:"advisor_budget"`
	UnitCount     int     `json:"unit_count"`
	LargeScale    bool    `json:"large_scale"`
	Phase         string  `json:"phase"`
}

type promptCatalogItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
}

type promptCatalog struct {
	AdvisorType string              `json:"advisor_type"`
	Title       string              `json:"title"`
	Body        string              `json:"body"`
	FeeItems    []promptCatalogItem `json:"fee_items"`
	ScopeItems  []promptCatalogItem `json:"scope_items"`
}

// promptLocked carries the deterministic verdict the model must echo
// verbatim.
type promptLocked struct {
	CoverageScore     int      `json:"coverage_score"`
	PriceScore        *int     `json:"price_score,omitempty"`
	FinalScore        int      `json:"final_score"`
	Rank              int      `json:"rank"`
	Recommendation    string   `json:"recommendation"`
	Knockout          bool     `json:"knockout"`
	KnockoutReason    string   `json:"knockout_reason,omitempty"`
	DataCompleteness  float64  `json:"data_completeness"`
	MissingFeeItems   []string `json:"missing_fee_items"`
	MissingScopeItems []string `json:"missing_scope_items"`
}

type promptProposal struct {
	ID           string       `json:"id"`
	SupplierName string       `json:"supplier_name"`
	Price        float64      `json:"price"`
	Currency     string       `json:"currency"`
	TimelineDays int          `json:"timeline_days"`
	Scope        string       `json:"scope"`
	Terms        string       `json:"terms"`
	FeeLineItems []string     `json:"fee_line_items"`
	Locked       promptLocked `json:"locked"`
}

type promptPayload struct {
	Mode           models.EvaluationMode `json:"mode"`
	Project        promptProject         `json:"project"`
	Catalog        promptCatalog         `json:"catalog"`
	Proposals      []promptProposal      `json:"proposals"`
	PriceBenchmark *float64              `json:"price_benchmark,omitempty"`
	MarketContext  string                `json:"market_context,omitempty"`
}

const (
	maxScopeChars = 4000
	maxTermsChars = 1500
)

// BuildSystemInstruction returns the provider system instruction for the
// given mode. The locked-field and no-invention rules are soft instructions
// here; the reconciler enforces them as hard invariants afterwards.
func (pb *PromptBuilder) BuildSystemInstruction(mode models.EvaluationMode) string {
	var b strings.Builder
	b.WriteString(`You are a procurement analyst writing the qualitative narrative for vendor fee proposals submitted against a single request-for-proposal.

Rules you must follow without exception:
1. Never invent values. When information is missing from the input, write the literal string "Not provided".
2. Every proposal's "final_score", "rank", "recommendation" and "knockout" fields are locked. Copy them verbatim from the "locked" block of the input. Do not recompute, adjust or contradict them.
3. Output strictly valid JSON matching the schema below. No markdown, no code fences, no commentary before or after the JSON.
`)
	if mode == models.ModeSingle {
		b.WriteString(`4. This is a single-proposal review. Do not comment on price or compare against other vendors or market rates.

Output schema:
{
  "summary": {"overall_note": "<2-4 sentences>", "data_gaps": "<missing-information note or 'Not provided'>"},
  "proposals": [{
    "proposal_id": "<echo input id>",
    "final_score": <locked>, "rank": <locked>, "recommendation": "<locked>", "knockout": <locked>,
    "strengths": ["<2-4 entries>"], "concerns": ["<1-4 entries>"],
    "scope_assessment": "<how well the offered scope answers the requirement catalog>",
    "terms_assessment": "<commercial terms quality, excluding price>",
    "missing_items_note": "<plain-language note on the locked missing item lists>"
  }]
}`)
	} else {
		b.WriteString(`4. Price commentary must be scoped strictly to the supplied batch and benchmark. Never reference external market rates that are not in the input.

Output schema:
{
  "summary": {"overall_note": "<2-4 sentences>", "data_gaps": "<missing-information note or 'Not provided'>", "price_spread_note": "<one sentence on the batch price spread>"},
  "proposals": [{
    "proposal_id": "<echo input id>",
    "final_score": <locked>, "rank": <locked>, "recommendation": "<locked>", "knockout": <locked>,
    "strengths": ["<2-4 entries>"], "concerns": ["<1-4 entries>"],
    "scope_assessment": "<how well the offered scope answers the requirement catalog>",
    "terms_assessment": "<commercial terms quality>",
    "missing_items_note": "<plain-language note on the locked missing item lists>",
    "price_assessment": "<price positioning within this batch only>",
    "comparative_notes": "<optional cross-proposal observation, or null>"
  }]
}`)
	}
	return b.String()
}

// BuildEvaluationPayload marshals the whitelisted evaluation input for the
// provider.
func (pb *PromptBuilder) BuildEvaluationPayload(
	project models.Project,
	catalog RequirementCatalog,
	bundles []ProposalBundle,
	scores []DeterministicScore,
	benchmark *float64,
	marketContext string,
	mode models.EvaluationMode,
) (string, error) {
	scoreByID := make(map[string]DeterministicScore, len(scores))
	for _, s := range scores {
		scoreByID[s.ProposalID.String()] = s
	}

	payload := promptPayload{
		Mode: mode,
		Project: promptProject{
			Name:          project.Name,
			Type:          project.Type,
			Location:      project.Location,
			Budget:        project.Budget,
			AdvisorBudget: project.AdvisorBudget,
			UnitCount:     project.UnitCount,
			LargeScale:    project.LargeScale,
			Phase:         project.Phase,
		},
		Catalog: promptCatalog{
			AdvisorType: catalog.Invite.AdvisorType,
			Title:       catalog.Invite.Title,
			Body:        truncateText(catalog.Invite.Body, maxScopeChars),
			FeeItems:    feeCatalogItems(catalog.FeeItems),
			ScopeItems:  scopeCatalogItems(catalog.ScopeItems),
		},
		PriceBenchmark: benchmark,
		MarketContext:  marketContext,
	}

	for _, bundle := range bundles {
		proposal := bundle.Proposal
		score, ok := scoreByID[proposal.ID.String()]
		if !ok {
			return "", fmt.Errorf("no deterministic score for proposal %s", proposal.ID)
		}

		scope := proposal.ScopeText
		if strings.TrimSpace(scope) == "" {
			scope = proposal.ExtractedText
		}

		var lines []string
		for _, line := range proposal.FeeLineItems {
			lines = append(lines, line.Description)
		}

		payload.Proposals = append(payload.Proposals, promptProposal{
			ID:           proposal.ID.String(),
			SupplierName: orNotProvided(proposal.SupplierName),
			Price:        proposal.Price,
			Currency:     orNotProvided(proposal.Currency),
			TimelineDays: proposal.TimelineDays,
			Scope:        orNotProvided(truncateText(scope, maxScopeChars)),
			Terms:        orNotProvided(truncateText(proposal.Terms, maxTermsChars)),
			FeeLineItems: lines,
			Locked: promptLocked{
				CoverageScore:     score.CoverageScore,
				PriceScore:        score.PriceScore,
				FinalScore:        score.FinalScore,
				Rank:              score.Rank,
				Recommendation:    score.Recommendation,
				Knockout:          score.KnockedOut,
				KnockoutReason:    score.KnockoutReason,
				DataCompleteness:  score.DataCompleteness,
				MissingFeeItems:   emptyIfNil(score.MissingFeeItems),
				MissingScopeItems: emptyIfNil(score.MissingScopeItems),
			},
		})
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal evaluation payload: %w", err)
	}

	return fmt.Sprintf("Evaluate the following proposal batch.\n\nINPUT:\n%s", encoded), nil
}

func feeCatalogItems(items []models.FeeItem) []promptCatalogItem {
	result := make([]promptCatalogItem, 0, len(items))
	for _, item := range items {
		result = append(result, promptCatalogItem{
			ID:          item.ID.String(),
			Description: item.Description,
			Optional:    item.Optional,
		})
	}
	return result
}

func scopeCatalogItems(items []models.ScopeItem) []promptCatalogItem {
	result := make([]promptCatalogItem, 0, len(items))
	for _, item := range items {
		result = append(result, promptCatalogItem{
			ID:          item.ID.String(),
			Description: item.TaskName,
			Optional:    item.Optional,
		})
	}
	return result
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not provided"
	}
	return s
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
