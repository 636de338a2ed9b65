package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"civiclens/portal-backend/internal/oracle"
	"civiclens/portal-backend/pkg/geospatial"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, report *CitizenReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*CitizenReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CitizenReport), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, updatedAt time.Time) error {
	args := m.Called(ctx, id, status, updatedAt)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context, filter *ReportFilter) ([]*CitizenReport, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*CitizenReport), args.Int(1), args.Error(2)
}

func (m *MockRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*CitizenReport, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]*CitizenReport), args.Error(1)
}

func (m *MockRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[Status]int), args.Error(1)
}

func (m *MockRepository) MonthlyCounts(ctx context.Context, months int) (map[string]int, error) {
	args := m.Called(ctx, months)
	return args.Get(0).(map[string]int), args.Error(1)
}

// MockProjectDirectory is a mock implementation of ProjectDirectory
type MockProjectDirectory struct {
	mock.Mock
}

func (m *MockProjectDirectory) ProjectName(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockProjectDirectory) RecordReport(ctx context.Context, projectID uuid.UUID) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

// MockLivenessOracle is a mock implementation of LivenessOracle
type MockLivenessOracle struct {
	mock.Mock
}

func (m *MockLivenessOracle) VerifyFace(ctx context.Context, req oracle.LivenessRequest) (*oracle.LivenessResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oracle.LivenessResult), args.Error(1)
}

// MockAnalysisOracle is a mock implementation of AnalysisOracle
type MockAnalysisOracle struct {
	mock.Mock
}

func (m *MockAnalysisOracle) AnalyzeReport(ctx context.Context, req oracle.AnalysisRequest) (*oracle.ReportAnalysis, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oracle.ReportAnalysis), args.Error(1)
}

// MockImageStore is a mock implementation of ImageStore
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) UploadReportImage(ctx context.Context, userID uuid.UUID, filename, dataBase64 string) (string, error) {
	args := m.Called(ctx, userID, filename, dataBase64)
	return args.String(0), args.Error(1)
}

type testFixture struct {
	repo     *MockRepository
	projects *MockProjectDirectory
	liveness *MockLivenessOracle
	analyzer *MockAnalysisOracle
	images   *MockImageStore
	service  *Service
}

func newFixture() *testFixture {
	f := &testFixture{
		repo:     new(MockRepository),
		projects: new(MockProjectDirectory),
		liveness: new(MockLivenessOracle),
		analyzer: new(MockAnalysisOracle),
		images:   new(MockImageStore),
	}
	f.service = NewService(f.repo, f.projects, f.liveness, f.analyzer, f.images, nil, zap.NewNop())
	return f
}

func validRequest(projectID uuid.UUID) *SubmitReportRequest {
	return &SubmitReportRequest{
		ProjectID:       projectID,
		Title:           "Road surface already cracking",
		Description:     "The newly laid stretch near the market has visible cracks.",
		Severity:        SeverityMedium,
		Lat:             19.076,
		Lng:             72.8777,
		FaceImageBase64: "ZmFjZQ==",
	}
}

func TestSubmitReportHappyPath(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	projectID := uuid.New()

	f.projects.On("ProjectName", mock.Anything, projectID).Return("Ring Road Phase 2", nil)
	f.liveness.On("VerifyFace", mock.Anything, mock.Anything).Return(&oracle.LivenessResult{
		IsLive: true, FaceDetected: true, QualityGood: true, Confidence: 91,
	}, nil)
	f.analyzer.On("AnalyzeReport", mock.Anything, mock.Anything).Return(&oracle.ReportAnalysis{
		CredibilityScore: 78,
		Analysis:         "Plausible and specific.",
		ShouldFlag:       false,
	}, nil)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*reports.CitizenReport")).Return(nil)
	f.projects.On("RecordReport", mock.Anything, projectID).Return(nil)

	report, err := f.service.SubmitReport(context.Background(), userID, validRequest(projectID))

	require.NoError(t, err)
	assert.Equal(t, StatusPending, report.Status)
	assert.True(t, report.FaceVerified)
	require.NotNil(t, report.AICredibilityScore)
	assert.Equal(t, 78.0, *report.AICredibilityScore)
	f.repo.AssertExpectations(t)
	f.projects.AssertExpectations(t)
}

func TestSubmitReportRefusedAtGate(t *testing.T) {
	f := newFixture()
	projectID := uuid.New()

	f.projects.On("ProjectName", mock.Anything, projectID).Return("Ring Road Phase 2", nil)
	f.liveness.On("VerifyFace", mock.Anything, mock.Anything).Return(&oracle.LivenessResult{
		IsLive: true, FaceDetected: true, QualityGood: true, Confidence: 42,
		Reason: "low confidence capture",
	}, nil)

	report, err := f.service.SubmitReport(context.Background(), uuid.New(), validRequest(projectID))

	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, IsGateFailure(err))
	// nothing persisted, analysis oracle never consulted
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.analyzer.AssertNotCalled(t, "AnalyzeReport", mock.Anything, mock.Anything)
}

func TestSubmitReportLivenessOracleDownDegradesToRefusal(t *testing.T) {
	f := newFixture()
	projectID := uuid.New()

	f.projects.On("ProjectName", mock.Anything, projectID).Return("Ring Road Phase 2", nil)
	f.liveness.On("VerifyFace", mock.Anything, mock.Anything).Return(nil, oracle.ErrRateLimited)

	report, err := f.service.SubmitReport(context.Background(), uuid.New(), validRequest(projectID))

	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, IsGateFailure(err))
	assert.True(t, errors.Is(err, oracle.ErrRateLimited), "gate error carries the oracle failure kind")
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmitReportAnalysisOracleDownFallsBackToFlagged(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	projectID := uuid.New()

	f.projects.On("ProjectName", mock.Anything, projectID).Return("Metro Line 4", nil)
	f.liveness.On("VerifyFace", mock.Anything, mock.Anything).Return(&oracle.LivenessResult{
		IsLive: true, FaceDetected: true, QualityGood: true, Confidence: 88,
	}, nil)
	f.analyzer.On("AnalyzeReport", mock.Anything, mock.Anything).Return(nil, oracle.ErrUnavailable)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*reports.CitizenReport")).Return(nil)
	f.projects.On("RecordReport", mock.Anything, projectID).Return(nil)

	report, err := f.service.SubmitReport(context.Background(), userID, validRequest(projectID))

	require.NoError(t, err, "analysis oracle failure must not fail the submission")
	assert.Equal(t, StatusFlagged, report.Status)
	require.NotNil(t, report.AICredibilityScore)
	assert.Equal(t, 50.0, *report.AICredibilityScore)
	require.NotNil(t, report.AIAnalysis)
	assert.Equal(t, "Unable to fully analyze. Manual review recommended.", *report.AIAnalysis)
}

func TestSubmitReportFlaggedByOracle(t *testing.T) {
	f := newFixture()
	projectID := uuid.New()

	f.projects.On("ProjectName", mock.Anything, projectID).Return("Flyover Repair", nil)
	f.liveness.On("VerifyFace", mock.Anything, mock.Anything).Return(&oracle.LivenessResult{
		IsLive: true, FaceDetected: true, QualityGood: true, Confidence: 95,
	}, nil)
	f.analyzer.On("AnalyzeReport", mock.Anything, mock.Anything).Return(&oracle.ReportAnalysis{
		CredibilityScore: 22,
		Analysis:         "Description contradicts the attached photo.",
		ShouldFlag:       true,
		Findings:         []string{"photo mismatch"},
	}, nil)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*reports.CitizenReport")).Return(nil)
	f.projects.On("RecordReport", mock.Anything, projectID).Return(nil)

	report, err := f.service.SubmitReport(context.Background(), uuid.New(), validRequest(projectID))

	require.NoError(t, err)
	assert.Equal(t, StatusFlagged, report.Status)
}

func TestSubmitReportUploadsImage(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	projectID := uuid.New()

	req := validRequest(projectID)
	req.ImageBase64 = "cGhvdG8="
	req.ImageFilename = "site.jpg"

	f.projects.On("ProjectName", mock.Anything, projectID).Return("Bridge Widening", nil)
	f.liveness.On("VerifyFace", mock.Anything, mock.Anything).Return(&oracle.LivenessResult{
		IsLive: true, FaceDetected: true, QualityGood: true, Confidence: 80,
	}, nil)
	f.images.On("UploadReportImage", mock.Anything, userID, "site.jpg", "cGhvdG8=").
		Return("https://cdn.example.com/reports/site.jpg", nil)
	f.analyzer.On("AnalyzeReport", mock.Anything, mock.Anything).Return(&oracle.ReportAnalysis{
		CredibilityScore: 70, Analysis: "ok",
	}, nil)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*reports.CitizenReport")).Return(nil)
	f.projects.On("RecordReport", mock.Anything, projectID).Return(nil)

	report, err := f.service.SubmitReport(context.Background(), userID, req)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/reports/site.jpg", report.ImageURL)
}

func TestSubmitReportInvalidRequest(t *testing.T) {
	f := newFixture()

	req := validRequest(uuid.New())
	req.Description = ""

	_, err := f.service.SubmitReport(context.Background(), uuid.New(), req)

	require.Error(t, err)
	f.projects.AssertNotCalled(t, "ProjectName", mock.Anything, mock.Anything)
	f.liveness.AssertNotCalled(t, "VerifyFace", mock.Anything, mock.Anything)
}

func TestModerateAllowsTableTransitions(t *testing.T) {
	f := newFixture()
	reportID := uuid.New()

	f.repo.On("GetByID", mock.Anything, reportID).Return(&CitizenReport{
		ID:     reportID,
		Status: StatusPending,
	}, nil)
	f.repo.On("UpdateStatus", mock.Anything, reportID, StatusVerified, mock.AnythingOfType("time.Time")).Return(nil)

	report, err := f.service.Moderate(context.Background(), reportID, uuid.New(), StatusVerified)

	require.NoError(t, err)
	assert.Equal(t, StatusVerified, report.Status)
}

func TestModerateFlaggedBackToPending(t *testing.T) {
	f := newFixture()
	reportID := uuid.New()

	f.repo.On("GetByID", mock.Anything, reportID).Return(&CitizenReport{
		ID:     reportID,
		Status: StatusFlagged,
	}, nil)
	f.repo.On("UpdateStatus", mock.Anything, reportID, StatusPending, mock.AnythingOfType("time.Time")).Return(nil)

	_, err := f.service.Moderate(context.Background(), reportID, uuid.New(), StatusPending)

	require.NoError(t, err)
}

func TestModerateTerminalStatesAreImmutable(t *testing.T) {
	for _, terminal := range []Status{StatusVerified, StatusRejected} {
		t.Run(string(terminal), func(t *testing.T) {
			f := newFixture()
			reportID := uuid.New()

			f.repo.On("GetByID", mock.Anything, reportID).Return(&CitizenReport{
				ID:     reportID,
				Status: terminal,
			}, nil)

			_, err := f.service.Moderate(context.Background(), reportID, uuid.New(), StatusFlagged)

			require.Error(t, err)
			f.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestModerateRejectsDraftTarget(t *testing.T) {
	f := newFixture()
	reportID := uuid.New()

	f.repo.On("GetByID", mock.Anything, reportID).Return(&CitizenReport{
		ID:     reportID,
		Status: StatusPending,
	}, nil)

	_, err := f.service.Moderate(context.Background(), reportID, uuid.New(), StatusDraft)

	require.Error(t, err)
}

func TestListReportsNearFiltersByDistance(t *testing.T) {
	f := newFixture()

	// ~1.1km per 0.01 degrees of latitude
	inside := &CitizenReport{ID: uuid.New(), Lat: 19.076, Lng: 72.8777}
	alsoInside := &CitizenReport{ID: uuid.New(), Lat: 19.080, Lng: 72.8777}
	outside := &CitizenReport{ID: uuid.New(), Lat: 19.200, Lng: 72.8777}

	f.repo.On("List", mock.Anything, mock.AnythingOfType("*reports.ReportFilter")).
		Return([]*CitizenReport{inside, alsoInside, outside}, 3, nil)

	center := geospatial.Coordinate{Lat: 19.076, Lng: 72.8777}
	result, err := f.service.ListReportsNear(context.Background(), &ReportFilter{}, center, 2000)

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, inside.ID, result[0].ID)
	assert.Equal(t, alsoInside.ID, result[1].ID)
}

func TestListReportsNearRejectsBadInput(t *testing.T) {
	f := newFixture()

	_, err := f.service.ListReportsNear(context.Background(), &ReportFilter{},
		geospatial.Coordinate{Lat: 120, Lng: 0}, 1000)
	require.Error(t, err)

	_, err = f.service.ListReportsNear(context.Background(), &ReportFilter{},
		geospatial.Coordinate{Lat: 19, Lng: 72}, 0)
	require.Error(t, err)
}

func TestAllowedModeratorTransitions(t *testing.T) {
	f := newFixture()
	reportID := uuid.New()

	f.repo.On("GetByID", mock.Anything, reportID).Return(&CitizenReport{
		ID:     reportID,
		Status: StatusFlagged,
	}, nil)

	allowed, err := f.service.AllowedModeratorTransitions(context.Background(), reportID)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"verified", "rejected", "pending"}, allowed)
}
