package models

import (
	"time"

	"github.com/google/uuid"
)

type EvaluationMode string

const (
	ModeSingle  EvaluationMode = "SINGLE"
	ModeCompare EvaluationMode = "COMPARE"
)

type EvaluationStatus string

const (
	StatusQueued     EvaluationStatus = "queued"
	StatusProcessing EvaluationStatus = "processing"
	StatusCompleted  EvaluationStatus = "completed"
	StatusFailed     EvaluationStatus = "failed"
)

type KnockoutCategory string

const (
	KnockoutNone     KnockoutCategory = ""
	KnockoutPolicy   KnockoutCategory = "policy"
	KnockoutCoverage KnockoutCategory = "coverage"
)

// ProposalEvaluation is the durable per-proposal output of a run. Verdict
// holds the reconciled narrative+flags object as jsonb. One row per
// proposal; repeated runs overwrite it (last write wins).
type ProposalEvaluation struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProposalID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex" json:"proposal_id"`
	ProjectID        uuid.UUID        `gorm:"type:uuid;not null" json:"project_id"`
	Mode             EvaluationMode   `gorm:"type:text" json:"mode"`
	Status           EvaluationStatus `gorm:"not null;default:'queued'" json:"status"`
	FinalScore       int              `json:"final_score"`
	Rank             int              `json:"rank"`
	CoverageScore    int              `json:"coverage_score"`
	PriceScore       *int             `json:"price_score,omitempty"`
	DataCompleteness float64          `json:"data_completeness"`
	KnockedOut       bool             `json:"knocked_out"`
	KnockoutReason   string           `gorm:"type:text" json:"knockout_reason,omitempty"`
	KnockoutCategory KnockoutCategory `gorm:"type:text" json:"knockout_category,omitempty"`
	Verdict          string           `gorm:"type:jsonb" json:"verdict"`
	ModelName        string           `gorm:"type:text" json:"model_name"`
	DurationMs       int64            `json:"duration_ms"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	CreatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ProposalEvaluation) TableName() string {
	return "proposal_evaluations"
}

// ProposalDocument is an uploaded attachment feeding the text-extraction
// worker. Extracted flips once its text has been folded into the proposal.
type ProposalDocument struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProposalID       uuid.UUID `gorm:"type:uuid;not null" json:"proposal_id"`
	Filename         string    `gorm:"type:text" json:"filename"`
	OriginalFileName string    `gorm:"type:text" json:"original_filename"`
	FileType         string    `gorm:"type:text" json:"file_type"`
	FilePath         string    `gorm:"type:text" json:"file_path"`
	Extracted        bool      `gorm:"not null;default:false" json:"extracted"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ProposalDocument) TableName() string {
	return "proposal_documents"
}
