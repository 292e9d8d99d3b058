package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vantagebuild/proposal-engine/internal/models"
)

type ProjectRepository interface {
	FindByID(id uuid.UUID) (*models.Project, error)
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// FindByID implements ProjectRepository. Not-found is left wrapped around
// gorm.ErrRecordNotFound so callers can classify it.
func (r *projectRepository) FindByID(id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.Where("id = ?", id).First(&project).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("project %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return &project, nil
}
