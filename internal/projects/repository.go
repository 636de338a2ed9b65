package projects

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"civiclens/portal-backend/internal/trust"
)

// ProjectFilter narrows project listings
type ProjectFilter struct {
	Department *string
	DelayRisk  *trust.DelayRisk
	MaxTrust   *int
	Limit      int
	Offset     int
}

// ProjectRepository defines project data access
type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ProjectFilter) ([]*Project, error)
}

// HistoryRepository records progress changes
type HistoryRepository interface {
	Create(ctx context.Context, history *ProgressHistory) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*ProgressHistory, error)
}

type gormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a gorm-backed project repository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &gormProjectRepository{db: db}
}

func (r *gormProjectRepository) Create(ctx context.Context, project *Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *gormProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	var project Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *gormProjectRepository) Update(ctx context.Context, project *Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

func (r *gormProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&Project{}, "id = ?", id).Error
}

func (r *gormProjectRepository) List(ctx context.Context, filter ProjectFilter) ([]*Project, error) {
	query := r.db.WithContext(ctx).Model(&Project{})
	if filter.Department != nil {
		query = query.Where("department = ?", *filter.Department)
	}
	if filter.DelayRisk != nil {
		query = query.Where("delay_risk = ?", *filter.DelayRisk)
	}
	if filter.MaxTrust != nil {
		query = query.Where("trust_score <= ?", *filter.MaxTrust)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var result []*Project
	if err := query.Order("name").Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

type gormHistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a gorm-backed progress history repository
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &gormHistoryRepository{db: db}
}

func (r *gormHistoryRepository) Create(ctx context.Context, history *ProgressHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *gormHistoryRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*ProgressHistory, error) {
	var result []*ProgressHistory
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("recorded_at DESC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}
