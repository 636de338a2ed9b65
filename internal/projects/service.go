package projects

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"civiclens/portal-backend/internal/trust"
	"civiclens/portal-backend/pkg/geospatial"
	"civiclens/portal-backend/pkg/validate"
)

// Requests

type CreateProjectRequest struct {
	Name                  string          `json:"name"`
	Description           string          `json:"description"`
	Location              string          `json:"location"`
	Department            string          `json:"department"`
	Lat                   float64         `json:"lat"`
	Lng                   float64         `json:"lng"`
	Budget                int64           `json:"budget"`
	OfficialCompletion    int             `json:"official_completion"`
	AIEstimatedCompletion int             `json:"ai_estimated_completion"`
	DelayRisk             trust.DelayRisk `json:"delay_risk"`
	Timeline              string          `json:"timeline"`
	StartDate             time.Time       `json:"start_date"`
	EndDate               time.Time       `json:"end_date"`
}

type UpdateProgressRequest struct {
	OfficialCompletion    *int             `json:"official_completion"`
	AIEstimatedCompletion *int             `json:"ai_estimated_completion"`
	DelayRisk             *trust.DelayRisk `json:"delay_risk"`
}

// ProjectService provides business logic for project oversight
type ProjectService interface {
	CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID) error
	UpdateProgress(ctx context.Context, id uuid.UUID, req UpdateProgressRequest, actorID uuid.UUID) (*Project, error)
	RecordCitizenReport(ctx context.Context, projectID uuid.UUID) (*Project, error)
	ScoreBreakdown(ctx context.Context, id uuid.UUID) (*trust.ScoreBreakdown, error)
	ProgressHistory(ctx context.Context, id uuid.UUID) ([]*ProgressHistory, error)
}

type projectService struct {
	projectRepo ProjectRepository
	historyRepo HistoryRepository
	logger      *zap.Logger
}

// NewProjectService creates a project service
func NewProjectService(projectRepo ProjectRepository, historyRepo HistoryRepository, logger *zap.Logger) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

func (s *projectService) CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	if req.Name == "" {
		return nil, validate.Errorf("name", "is required")
	}
	if req.Budget < 0 {
		return nil, validate.Errorf("budget", "must not be negative, got %d", req.Budget)
	}
	if err := (geospatial.Coordinate{Lat: req.Lat, Lng: req.Lng}).Validate(); err != nil {
		return nil, err
	}

	project := &Project{
		Name:                  req.Name,
		Description:           req.Description,
		Location:              req.Location,
		Department:            req.Department,
		Lat:                   req.Lat,
		Lng:                   req.Lng,
		Budget:                req.Budget,
		OfficialCompletion:    req.OfficialCompletion,
		AIEstimatedCompletion: req.AIEstimatedCompletion,
		DelayRisk:             req.DelayRisk,
		Timeline:              req.Timeline,
		StartDate:             req.StartDate,
		EndDate:               req.EndDate,
		CreatedAt:             time.Now(),
		UpdatedAt:             time.Now(),
	}

	// Validates the completion ranges and delay risk as a side effect.
	breakdown, err := trust.ComputeTrustScore(project.ScoreInput())
	if err != nil {
		return nil, err
	}
	project.TrustScore = breakdown.FinalScore

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("Project created",
		zap.String("project_id", project.ID.String()),
		zap.String("name", project.Name),
		zap.Int("trust_score", project.TrustScore))

	return project, nil
}

func (s *projectService) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	return s.projectRepo.GetByID(ctx, id)
}

func (s *projectService) ListProjects(ctx context.Context, filter ProjectFilter) ([]*Project, error) {
	return s.projectRepo.List(ctx, filter)
}

func (s *projectService) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return s.projectRepo.Delete(ctx, id)
}

// UpdateProgress applies new completion estimates or delay risk and
// recomputes the trust score. The score is never accepted from the caller.
func (s *projectService) UpdateProgress(ctx context.Context, id uuid.UUID, req UpdateProgressRequest, actorID uuid.UUID) (*Project, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.OfficialCompletion != nil {
		project.OfficialCompletion = *req.OfficialCompletion
	}
	if req.AIEstimatedCompletion != nil {
		project.AIEstimatedCompletion = *req.AIEstimatedCompletion
	}
	if req.DelayRisk != nil {
		project.DelayRisk = *req.DelayRisk
	}

	breakdown, err := trust.ComputeTrustScore(project.ScoreInput())
	if err != nil {
		return nil, err
	}
	project.TrustScore = breakdown.FinalScore
	project.UpdatedAt = time.Now()

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}

	details, _ := json.Marshal(breakdown)
	history := &ProgressHistory{
		ProjectID:             id,
		OfficialCompletion:    project.OfficialCompletion,
		AIEstimatedCompletion: project.AIEstimatedCompletion,
		TrustScore:            project.TrustScore,
		Details:               details,
		RecordedAt:            time.Now(),
		RecordedBy:            actorID,
	}
	if err := s.historyRepo.Create(ctx, history); err != nil {
		s.logger.Warn("Failed to record progress history", zap.Error(err), zap.String("project_id", id.String()))
	}

	s.logger.Info("Project progress updated",
		zap.String("project_id", id.String()),
		zap.Int("official", project.OfficialCompletion),
		zap.Int("ai_estimated", project.AIEstimatedCompletion),
		zap.Int("trust_score", project.TrustScore))

	return project, nil
}

// RecordCitizenReport bumps the report count and recomputes the trust score.
// Called whenever a report is created against the project.
func (s *projectService) RecordCitizenReport(ctx context.Context, projectID uuid.UUID) (*Project, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	project.CitizenReportCount++

	breakdown, err := trust.ComputeTrustScore(project.ScoreInput())
	if err != nil {
		return nil, err
	}
	project.TrustScore = breakdown.FinalScore
	project.UpdatedAt = time.Now()

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

func (s *projectService) ScoreBreakdown(ctx context.Context, id uuid.UUID) (*trust.ScoreBreakdown, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return trust.ComputeTrustScore(project.ScoreInput())
}

func (s *projectService) ProgressHistory(ctx context.Context, id uuid.UUID) ([]*ProgressHistory, error) {
	return s.historyRepo.ListByProject(ctx, id)
}
