package models

type EvaluateRequest struct {
	ProjectID      string   `json:"project_id" validate:"required,uuid"`
	ProposalIDs    []string `json:"proposal_ids,omitempty"`
	PriceBenchmark *float64 `json:"price_benchmark,omitempty"`
	Force          bool     `json:"force,omitempty"`
}

// ProposalVerdict merges the locked deterministic fields with the model
// narrative for one proposal. The compare-only pointer fields are nil in
// SINGLE mode by construction; the narrative schema for that mode does not
// admit them.
type ProposalVerdict struct {
	ProposalID        string   `json:"proposal_id"`
	SupplierName      string   `json:"supplier_name"`
	FinalScore        int      `json:"final_score"`
	Rank              int      `json:"rank"`
	Recommendation    string   `json:"recommendation"`
	Knockout          bool     `json:"knockout"`
	KnockoutReason    string   `json:"knockout_reason,omitempty"`
	CoverageScore     int      `json:"coverage_score"`
	PriceScore        *int     `json:"price_score,omitempty"`
	DataCompleteness  float64  `json:"data_completeness"`
	MissingFeeItems   []string `json:"missing_fee_items"`
	MissingScopeItems []string `json:"missing_scope_items"`
	Strengths         []string `json:"strengths"`
	Concerns          []string `json:"concerns"`
	ScopeAssessment   string   `json:"scope_assessment"`
	TermsAssessment   string   `json:"terms_assessment"`
	MissingItemsNote  string   `json:"missing_items_note,omitempty"`
	PriceAssessment   *string  `json:"price_assessment,omitempty"`
	ComparativeNotes  *string  `json:"comparative_notes,omitempty"`
}

type BatchSummary struct {
	TotalProposals int            `json:"total_proposals"`
	ProjectScale   string         `json:"project_scale"`
	PriceBenchmark *float64       `json:"price_benchmark"`
	Mode           EvaluationMode `json:"mode"`
	MarketContext  string         `json:"market_context,omitempty"`
	OverallNote    string         `json:"overall_note,omitempty"`
	DataGaps       string         `json:"data_gaps,omitempty"`
	PriceSpread    string         `json:"price_spread_note,omitempty"`
}

type EvaluationMetadata struct {
	Model      string `json:"model"`
	DurationMs int64  `json:"duration_ms"`
	Cached     bool   `json:"cached"`
}

type EvaluateResponse struct {
	Success   bool               `json:"success"`
	Summary   BatchSummary       `json:"summary"`
	Proposals []ProposalVerdict  `json:"proposals"`
	Metadata  EvaluationMetadata `json:"metadata"`
}

type ErrorResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	Code          string `json:"code"`
	RetryAfterSec *int   `json:"retry_after_sec,omitempty"`
}

type UploadResponse struct {
	ID           string `json:"id"`
	ProposalID   string `json:"proposal_id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
}

type ResultResponse struct {
	ProposalID string              `json:"proposal_id"`
	Status     string              `json:"status"`
	Result     *ProposalEvaluation `json:"result,omitempty"`
}
