package models

import (
	"time"

	"github.com/google/uuid"
)

// OrganizationPolicy holds the procurement constraints of the project
// owner's organization. A missing policy means "no constraints", not an
// error. AllowedCurrencies and RequiredClauses are jsonb string arrays.
type OrganizationPolicy struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrganizationID    uuid.UUID `gorm:"type:uuid;not null" json:"organization_id"`
	AllowedCurrencies string    `gorm:"type:jsonb;default:'[]'" json:"allowed_currencies"`
	MaxUpfrontPercent float64   `json:"max_upfront_percent"`
	RequiredClauses   string    `gorm:"type:jsonb;default:'[]'" json:"required_clauses"`
	CreatedAt         time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (OrganizationPolicy) TableName() string {
	return "organization_policies"
}

type ViolationType string

const (
	ViolationCurrency         ViolationType = "Currency"
	ViolationPaymentTerms     ViolationType = "PaymentTerms"
	ViolationProcurement      ViolationType = "Procurement"
	ViolationVendorIncomplete ViolationType = "VendorIncomplete"
)

type PolicyViolation struct {
	ProposalID uuid.UUID     `json:"proposal_id"`
	Type       ViolationType `json:"type"`
	Message    string        `json:"message"`
}

// Hard reports whether the violation disqualifies the proposal outright.
// Currency and payment-terms mismatches make a proposal contractually
// unusable; the rest are data-quality concerns.
func (v PolicyViolation) Hard() bool {
	return v.Type == ViolationCurrency || v.Type == ViolationPaymentTerms
}
