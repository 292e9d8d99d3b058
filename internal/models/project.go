package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is read-only input to an evaluation run; it is owned and mutated
// by the surrounding application, never by this engine.
type Project struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OwnerID       uuid.UUID `gorm:"type:uuid;not null" json:"owner_id"`
	Name          string    `gorm:"type:text" json:"name"`
	Type          string    `gorm:"type:text" json:"type"`
	Location      string    `gorm:"type:text" json:"location"`
	Budget        float64   `json:"budget"`
	AdvisorBudget float64   `json:"advisor_budget"`
	UnitCount     int       `json:"unit_count"`
	Description   string    `gorm:"type:text" json:"description"`
	LargeScale    bool      `json:"large_scale"`
	Phase         string    `gorm:"type:text" json:"phase"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

// ScaleCategory buckets a project for the batch summary. It has no effect
// on scoring.
func (p *Project) ScaleCategory() string {
	switch {
	case p.LargeScale || p.UnitCount >= 100:
		return "large"
	case p.UnitCount >= 20 || p.Budget >= 5_000_000:
		return "medium"
	default:
		return "small"
	}
}

// User exists only as the project-owner side of the owner -> organization
// lookup used to resolve procurement policy.
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Email          string    `gorm:"type:text" json:"email"`
	OrganizationID uuid.UUID `gorm:"type:uuid" json:"organization_id"`
}

func (User) TableName() string {
	return "users"
}

type Organization struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name string    `gorm:"type:text" json:"name"`
}

func (Organization) TableName() string {
	return "organizations"
}
