package models

import (
	"time"

	"github.com/google/uuid"
)

type ProposalStatus string

const (
	ProposalDraft                ProposalStatus = "draft"
	ProposalSubmitted            ProposalStatus = "submitted"
	ProposalResubmitted          ProposalStatus = "resubmitted"
	ProposalNegotiationRequested ProposalStatus = "negotiation_requested"
	ProposalWithdrawn            ProposalStatus = "withdrawn"
)

type InviteStatus string

const (
	InviteSent     InviteStatus = "sent"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
	InviteExpired  InviteStatus = "expired"
)

type Advisor struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name        string    `gorm:"type:text" json:"name"`
	CompanyName string    `gorm:"type:text" json:"company_name"`
	AdvisorType string    `gorm:"type:text" json:"advisor_type"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Advisor) TableName() string {
	return "advisors"
}

// RfpInvite is the solicitation sent to one advisor for one advisor type.
// Together with its fee and scope items it forms the requirement catalog a
// proposal is evaluated against.
type RfpInvite struct {
	ID              uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RfpID           uuid.UUID    `gorm:"type:uuid;not null" json:"rfp_id"`
	ProjectID       uuid.UUID    `gorm:"type:uuid;not null" json:"project_id"`
	AdvisorID       uuid.UUID    `gorm:"type:uuid;not null" json:"advisor_id"`
	AdvisorType     string       `gorm:"type:text" json:"advisor_type"`
	Title           string       `gorm:"type:text" json:"title"`
	Body            string       `gorm:"type:text" json:"body"`
	PaymentTermsDoc string       `gorm:"type:text" json:"payment_terms_doc"`
	Status          InviteStatus `gorm:"not null;default:'sent'" json:"status"`
	CreatedAt       time.Time    `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (RfpInvite) TableName() string {
	return "rfp_invites"
}

type FeeItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	InviteID    uuid.UUID `gorm:"type:uuid;not null" json:"invite_id"`
	Description string    `gorm:"type:text" json:"description"`
	Unit        string    `gorm:"type:text" json:"unit"`
	Quantity    float64   `json:"quantity"`
	Optional    bool      `json:"optional"`
	ChargeType  string    `gorm:"type:text" json:"charge_type"`
	Position    int       `json:"position"`
}

func (FeeItem) TableName() string {
	return "fee_items"
}

type ScopeItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	InviteID    uuid.UUID `gorm:"type:uuid;not null" json:"invite_id"`
	TaskName    string    `gorm:"type:text" json:"task_name"`
	Optional    bool      `json:"optional"`
	FeeCategory string    `gorm:"type:text" json:"fee_category"`
	Position    int       `json:"position"`
}

func (ScopeItem) TableName() string {
	return "scope_items"
}

type Proposal struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID     uuid.UUID      `gorm:"type:uuid;not null" json:"project_id"`
	AdvisorID     uuid.UUID      `gorm:"type:uuid;not null" json:"advisor_id"`
	InviteID      uuid.UUID      `gorm:"type:uuid;not null" json:"invite_id"`
	SupplierName  string         `gorm:"type:text" json:"supplier_name"`
	Price         float64        `json:"price"`
	Currency      string         `gorm:"type:text" json:"currency"`
	TimelineDays  int            `json:"timeline_days"`
	ScopeText     string         `gorm:"type:text" json:"scope_text"`
	Terms         string         `gorm:"type:text" json:"terms"`
	ExtractedText string         `gorm:"type:text" json:"extracted_text"`
	Status        ProposalStatus `gorm:"not null;default:'draft'" json:"status"`
	SubmittedAt   time.Time      `json:"submitted_at"`
	Version       int            `gorm:"not null;default:1" json:"version"`
	CreatedAt     time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Advisor              Advisor               `gorm:"foreignKey:AdvisorID" json:"-"`
	Invite               RfpInvite             `gorm:"foreignKey:InviteID" json:"-"`
	FeeLineItems         []FeeLineItem         `gorm:"foreignKey:ProposalID" json:"fee_line_items"`
	SelectedServices     []SelectedService     `gorm:"foreignKey:ProposalID" json:"selected_services"`
	MilestoneAdjustments []MilestoneAdjustment `gorm:"foreignKey:ProposalID" json:"milestone_adjustments"`
}

func (Proposal) TableName() string {
	return "proposals"
}

// FeeLineItem is one priced line of a proposal. FeeItemID links it to the
// catalog item it answers when the supplier kept the id; otherwise matching
// falls back to the description.
type FeeLineItem struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProposalID  uuid.UUID  `gorm:"type:uuid;not null" json:"proposal_id"`
	FeeItemID   *uuid.UUID `gorm:"type:uuid" json:"fee_item_id,omitempty"`
	Description string     `gorm:"type:text" json:"description"`
	Amount      float64    `json:"amount"`
}

func (FeeLineItem) TableName() string {
	return "fee_line_items"
}

type SelectedService struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProposalID  uuid.UUID `gorm:"type:uuid;not null" json:"proposal_id"`
	ScopeItemID uuid.UUID `gorm:"type:uuid;not null" json:"scope_item_id"`
}

func (SelectedService) TableName() string {
	return "selected_services"
}

type MilestoneAdjustment struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProposalID uuid.UUID `gorm:"type:uuid;not null" json:"proposal_id"`
	Label      string    `gorm:"type:text" json:"label"`
	Percent    float64   `json:"percent"`
}

func (MilestoneAdjustment) TableName() string {
	return "milestone_adjustments"
}
