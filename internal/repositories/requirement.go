package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vantagebuild/proposal-engine/internal/models"
)

type RequirementRepository interface {
	FindByInvite(inviteID uuid.UUID) ([]models.FeeItem, []models.ScopeItem, error)
}

type requirementRepository struct {
	db *gorm.DB
}

func NewRequirementRepository(db *gorm.DB) RequirementRepository {
	return &requirementRepository{db: db}
}

// FindByInvite implements RequirementRepository. Items come back in their
// catalog order.
func (r *requirementRepository) FindByInvite(inviteID uuid.UUID) ([]models.FeeItem, []models.ScopeItem, error) {
	var feeItems []models.FeeItem
	if err := r.db.Where("invite_id = ?", inviteID).Order("position ASC").Find(&feeItems).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to find fee items: %w", err)
	}

	var scopeItems []models.ScopeItem
	if err := r.db.Where("invite_id = ?", inviteID).Order("position ASC").Find(&scopeItems).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to find scope items: %w", err)
	}

	return feeItems, scopeItems, nil
}
