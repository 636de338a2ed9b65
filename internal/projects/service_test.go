package projects

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"civiclens/portal-backend/internal/trust"
	"civiclens/portal-backend/pkg/validate"
)

// MockProjectRepository is a mock implementation of ProjectRepository
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) Create(ctx context.Context, project *Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Project), args.Error(1)
}

func (m *MockProjectRepository) Update(ctx context.Context, project *Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProjectRepository) List(ctx context.Context, filter ProjectFilter) ([]*Project, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*Project), args.Error(1)
}

// MockHistoryRepository is a mock implementation of HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Create(ctx context.Context, history *ProgressHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockHistoryRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*ProgressHistory, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]*ProgressHistory), args.Error(1)
}

func newTestService(projectRepo *MockProjectRepository, historyRepo *MockHistoryRepository) ProjectService {
	return NewProjectService(projectRepo, historyRepo, zap.NewNop())
}

func TestCreateProjectComputesTrustScore(t *testing.T) {
	projectRepo := new(MockProjectRepository)
	historyRepo := new(MockHistoryRepository)
	service := newTestService(projectRepo, historyRepo)

	projectRepo.On("Create", mock.Anything, mock.AnythingOfType("*projects.Project")).Return(nil)

	project, err := service.CreateProject(context.Background(), CreateProjectRequest{
		Name:                  "Miraj Junction Railway Modernization",
		Department:            "Indian Railways",
		Lat:                   16.8300,
		Lng:                   74.6400,
		Budget:                65000000,
		OfficialCompletion:    55,
		AIEstimatedCompletion: 35,
		DelayRisk:             trust.DelayRiskHigh,
		StartDate:             time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	// No reports yet: round(60*0.4 + 40*0.2 + 0 + 30*0.15) = round(36.5) = 37
	assert.Equal(t, 37, project.TrustScore)
	projectRepo.AssertExpectations(t)
}

func TestCreateProjectRejectsInvalidInput(t *testing.T) {
	service := newTestService(new(MockProjectRepository), new(MockHistoryRepository))

	_, err := service.CreateProject(context.Background(), CreateProjectRequest{
		Department: "PWD", DelayRisk: trust.DelayRiskLow,
	})
	require.Error(t, err)
	assert.True(t, validate.IsValidationError(err))

	_, err = service.CreateProject(context.Background(), CreateProjectRequest{
		Name: "Bad coords", Lat: 99, Lng: 0, DelayRisk: trust.DelayRiskLow,
	})
	require.Error(t, err)
	assert.True(t, validate.IsValidationError(err))

	_, err = service.CreateProject(context.Background(), CreateProjectRequest{
		Name: "Bad completion", OfficialCompletion: 130, DelayRisk: trust.DelayRiskLow,
	})
	require.Error(t, err)
	assert.True(t, validate.IsValidationError(err))
}

func TestUpdateProgressRecomputesScoreAndRecordsHistory(t *testing.T) {
	projectRepo := new(MockProjectRepository)
	historyRepo := new(MockHistoryRepository)
	service := newTestService(projectRepo, historyRepo)

	id := uuid.New()
	existing := &Project{
		ID:                    id,
		Name:                  "Smart Water Supply Network",
		OfficialCompletion:    60,
		AIEstimatedCompletion: 40,
		CitizenReportCount:    178,
		DelayRisk:             trust.DelayRiskHigh,
		TrustScore:            54,
	}

	projectRepo.On("GetByID", mock.Anything, id).Return(existing, nil)
	projectRepo.On("Update", mock.Anything, existing).Return(nil)
	historyRepo.On("Create", mock.Anything, mock.AnythingOfType("*projects.ProgressHistory")).Return(nil)

	newOfficial := 65
	newAI := 62
	project, err := service.UpdateProgress(context.Background(), id, UpdateProgressRequest{
		OfficialCompletion:    &newOfficial,
		AIEstimatedCompletion: &newAI,
	}, uuid.New())

	require.NoError(t, err)
	// round(94*0.4 + 75*0.2 + 100*0.25 + 30*0.15) = round(82.1) = 82
	assert.Equal(t, 82, project.TrustScore)
	historyRepo.AssertExpectations(t)
}

func TestRecordCitizenReportBumpsCountAndScore(t *testing.T) {
	projectRepo := new(MockProjectRepository)
	service := newTestService(projectRepo, new(MockHistoryRepository))

	id := uuid.New()
	existing := &Project{
		ID:                    id,
		OfficialCompletion:    70,
		AIEstimatedCompletion: 62,
		CitizenReportCount:    20,
		DelayRisk:             trust.DelayRiskMedium,
	}

	projectRepo.On("GetByID", mock.Anything, id).Return(existing, nil)
	projectRepo.On("Update", mock.Anything, existing).Return(nil)

	project, err := service.RecordCitizenReport(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, 21, project.CitizenReportCount)
	// Crossing the 20-report step lifts transparency: round(84*0.4 + 60*0.2 + 16.8*0.25 + 60*0.15) = round(58.8) = 59
	assert.Equal(t, 59, project.TrustScore)
}

func TestScoreBreakdownMatchesStoredScore(t *testing.T) {
	projectRepo := new(MockProjectRepository)
	service := newTestService(projectRepo, new(MockHistoryRepository))

	id := uuid.New()
	existing := &Project{
		ID:                    id,
		OfficialCompletion:    55,
		AIEstimatedCompletion: 35,
		CitizenReportCount:    203,
		DelayRisk:             trust.DelayRiskHigh,
		TrustScore:            69,
	}
	projectRepo.On("GetByID", mock.Anything, id).Return(existing, nil)

	breakdown, err := service.ScoreBreakdown(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, existing.TrustScore, breakdown.FinalScore)
	assert.Equal(t, 100.0, breakdown.CitizenEvidence)
}
