package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vantagebuild/proposal-engine/internal/models"
)

type DocumentRepository interface {
	Create(doc *models.ProposalDocument) error
	FindByProposal(proposalID uuid.UUID) ([]models.ProposalDocument, error)
	MarkExtracted(id uuid.UUID) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(doc *models.ProposalDocument) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create proposal document: %w", err)
	}
	return nil
}

func (r *documentRepository) FindByProposal(proposalID uuid.UUID) ([]models.ProposalDocument, error) {
	var docs []models.ProposalDocument
	err := r.db.
		Where("proposal_id = ?", proposalID).
		Order("created_at ASC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find proposal documents: %w", err)
	}
	return docs, nil
}

func (r *documentRepository) MarkExtracted(id uuid.UUID) error {
	result := r.db.Model(&models.ProposalDocument{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"extracted":  true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark document extracted: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("proposal document %s not found", id)
	}
	return nil
}
