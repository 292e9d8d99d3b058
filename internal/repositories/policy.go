package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vantagebuild/proposal-engine/internal/models"
)

type PolicyRepository interface {
	// FindByOwner resolves project owner -> organization -> policy.
	// A missing link anywhere yields (nil, nil): no policy means no
	// constraints, not an error.
	FindByOwner(ownerID uuid.UUID) (*models.OrganizationPolicy, error)
}

type policyRepository struct {
	db *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) FindByOwner(ownerID uuid.UUID) (*models.OrganizationPolicy, error) {
	var user models.User
	if err := r.db.Where("id = ?", ownerID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find project owner: %w", err)
	}

	if user.OrganizationID == uuid.Nil {
		return nil, nil
	}

	var policy models.OrganizationPolicy
	if err := r.db.Where("organization_id = ?", user.OrganizationID).First(&policy).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find organization policy: %w", err)
	}

	return &policy, nil
}
