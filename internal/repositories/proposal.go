package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vantagebuild/proposal-engine/internal/models"
)

// actionableStatuses are the submission states that make a proposal a
// candidate for evaluation.
var actionableStatuses = []models.ProposalStatus{
	models.ProposalSubmitted,
	models.ProposalResubmitted,
	models.ProposalNegotiationRequested,
}

type ProposalRepository interface {
	FindEligible(projectID uuid.UUID, ids []uuid.UUID) ([]models.Proposal, error)
	FindByID(id uuid.UUID) (*models.Proposal, error)
	UpdateExtractedText(id uuid.UUID, text string) error
	FindPendingExtractions(limit int) ([]models.Proposal, error)
}

type proposalRepository struct {
	db *gorm.DB
}

func NewProposalRepository(db *gorm.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

// FindEligible implements ProposalRepository. It returns actionable
// proposals for a project, optionally restricted to an explicit id subset,
// with advisor, invite and line-item relations preloaded.
func (r *proposalRepository) FindEligible(projectID uuid.UUID, ids []uuid.UUID) ([]models.Proposal, error) {
	query := r.db.
		Preload("Advisor").
		Preload("Invite").
		Preload("FeeLineItems").
		Preload("SelectedServices").
		Preload("MilestoneAdjustments").
		Where("project_id = ?", projectID).
		Where("status IN ?", actionableStatuses)

	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	var proposals []models.Proposal
	if err := query.Order("submitted_at ASC").Find(&proposals).Error; err != nil {
		return nil, fmt.Errorf("failed to find proposals: %w", err)
	}
	return proposals, nil
}

func (r *proposalRepository) FindByID(id uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.
		Preload("FeeLineItems").
		Preload("SelectedServices").
		Preload("MilestoneAdjustments").
		Where("id = ?", id).
		First(&proposal).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("proposal %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to find proposal: %w", err)
	}
	return &proposal, nil
}

func (r *proposalRepository) UpdateExtractedText(id uuid.UUID, text string) error {
	result := r.db.Model(&models.Proposal{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"extracted_text": text,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update extracted text: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("proposal %s not found", id)
	}
	return nil
}

// FindPendingExtractions returns actionable proposals that still have
// un-extracted documents attached.
func (r *proposalRepository) FindPendingExtractions(limit int) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.
		Where("status IN ?", actionableStatuses).
		Where("id IN (?)", r.db.
			Model(&models.ProposalDocument{}).
			Select("proposal_id").
			Where("extracted = ?", false)).
		Order("updated_at ASC").
		Limit(limit).
		Find(&proposals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending extractions: %w", err)
	}
	return proposals, nil
}
