package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vantagebuild/proposal-engine/internal/models"
)

type EvaluationRepository interface {
	Upsert(eval *models.ProposalEvaluation) error
	FindByProposal(proposalID uuid.UUID) (*models.ProposalEvaluation, error)
	FindCompletedByProposals(proposalIDs []uuid.UUID) ([]models.ProposalEvaluation, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

// Upsert implements EvaluationRepository. One evaluation row per proposal;
// a re-run overwrites the previous result (last write wins).
func (r *evaluationRepository) Upsert(eval *models.ProposalEvaluation) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "proposal_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"project_id", "mode", "status", "final_score", "rank",
			"coverage_score", "price_score", "data_completeness",
			"knocked_out", "knockout_reason", "knockout_category",
			"verdict", "model_name", "duration_ms", "completed_at",
			"updated_at",
		}),
	}).Create(eval).Error
	if err != nil {
		return fmt.Errorf("failed to upsert evaluation: %w", err)
	}
	return nil
}

func (r *evaluationRepository) FindByProposal(proposalID uuid.UUID) (*models.ProposalEvaluation, error) {
	var eval models.ProposalEvaluation
	if err := r.db.Where("proposal_id = ?", proposalID).First(&eval).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("evaluation for proposal %s not found: %w", proposalID, err)
		}
		return nil, fmt.Errorf("failed to find evaluation: %w", err)
	}
	return &eval, nil
}

func (r *evaluationRepository) FindCompletedByProposals(proposalIDs []uuid.UUID) ([]models.ProposalEvaluation, error) {
	var evals []models.ProposalEvaluation
	err := r.db.
		Where("proposal_id IN ?", proposalIDs).
		Where("status = ?", models.StatusCompleted).
		Find(&evals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find completed evaluations: %w", err)
	}
	return evals, nil
}
