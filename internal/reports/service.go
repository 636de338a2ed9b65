package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"civiclens/portal-backend/internal/oracle"
	"civiclens/portal-backend/pkg/geospatial"
	"civiclens/portal-backend/pkg/workflows"
)

// LivenessOracle is the face liveness oracle the submission flow consumes
type LivenessOracle interface {
	VerifyFace(ctx context.Context, req oracle.LivenessRequest) (*oracle.LivenessResult, error)
}

// AnalysisOracle is the report-analysis oracle the submission flow consumes
type AnalysisOracle interface {
	AnalyzeReport(ctx context.Context, req oracle.AnalysisRequest) (*oracle.ReportAnalysis, error)
}

// ProjectDirectory is the slice of the projects module the reports service
// needs: resolving a project and recording a new report against it.
type ProjectDirectory interface {
	ProjectName(ctx context.Context, id uuid.UUID) (string, error)
	RecordReport(ctx context.Context, projectID uuid.UUID) error
}

// ImageStore uploads report evidence photos and returns a public URL
type ImageStore interface {
	UploadReportImage(ctx context.Context, userID uuid.UUID, filename string, dataBase64 string) (string, error)
}

// Notifier is told about reports that need moderator attention. A nil
// notifier is allowed.
type Notifier interface {
	ReportStatusChanged(report *CitizenReport)
}

// Service provides business logic for citizen report operations
type Service struct {
	repo     Repository
	projects ProjectDirectory
	liveness LivenessOracle
	analyzer AnalysisOracle
	images   ImageStore
	notifier Notifier
	machine  *workflows.StateMachine
	logger   *zap.Logger
}

// NewService creates a reports service
func NewService(repo Repository, projects ProjectDirectory, liveness LivenessOracle, analyzer AnalysisOracle, images ImageStore, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		projects: projects,
		liveness: liveness,
		analyzer: analyzer,
		images:   images,
		notifier: notifier,
		machine:  workflows.NewReportStateMachine(),
		logger:   logger,
	}
}

// SubmitReport runs the full submission flow as a single logical commit:
// validate, pass the liveness gate, score credibility, persist. If any step
// before persistence fails, no partial report exists. The oracle calls are
// strictly sequential — the analysis oracle is only invoked once the gate
// has passed.
func (s *Service) SubmitReport(ctx context.Context, userID uuid.UUID, req *SubmitReportRequest) (*CitizenReport, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	projectName, err := s.projects.ProjectName(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("project lookup failed: %w", err)
	}

	// Liveness gate. A failed oracle call degrades to the all-false
	// fallback result, which cannot pass the gate; the wrapped error keeps
	// the rate-limit/quota kind visible to the HTTP layer.
	livenessResult, livenessErr := s.liveness.VerifyFace(ctx, oracle.LivenessRequest{
		FaceImageBase64:    req.FaceImageBase64,
		ProfileImageBase64: req.ProfileImageBase64,
	})
	if livenessErr != nil {
		if !errors.Is(livenessErr, oracle.ErrUnavailable) {
			return nil, livenessErr
		}
		fallback := oracle.FallbackLivenessResult()
		livenessResult = &fallback
	}
	if gateErr := CheckLivenessGate(*livenessResult); gateErr != nil {
		var ge *GateError
		if errors.As(gateErr, &ge) {
			ge.Err = livenessErr
		}
		s.logger.Info("Report refused at liveness gate",
			zap.String("user_id", userID.String()),
			zap.Float64("confidence", livenessResult.Confidence),
			zap.String("reason", livenessResult.Reason))
		return nil, gateErr
	}

	imageURL := ""
	if req.ImageBase64 != "" && s.images != nil {
		imageURL, err = s.images.UploadReportImage(ctx, userID, req.ImageFilename, req.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to store report image: %w", err)
		}
	}

	// Credibility scoring. Oracle failure is absorbed into the conservative
	// fallback — the citizen always sees "submitted, pending review".
	analysis, analysisErr := s.analyzer.AnalyzeReport(ctx, oracle.AnalysisRequest{
		Description: req.Description,
		Severity:    string(req.Severity),
		ProjectName: projectName,
		ImageBase64: req.ImageBase64,
	})
	signal := AggregateCredibility(analysis, analysisErr)
	if signal.OracleDegraded {
		s.logger.Warn("Analysis oracle degraded, applying conservative fallback",
			zap.String("user_id", userID.String()),
			zap.Error(analysisErr))
	}

	if !s.machine.CanTransition(string(StatusDraft), string(signal.InitialStatus), workflows.ActorSystem) {
		return nil, fmt.Errorf("invalid initial status %q", signal.InitialStatus)
	}

	now := time.Now()
	report := &CitizenReport{
		ID:                 uuid.New(),
		UserID:             userID,
		ProjectID:          req.ProjectID,
		Title:              req.Title,
		Description:        req.Description,
		Severity:           req.Severity,
		Lat:                req.Lat,
		Lng:                req.Lng,
		ImageURL:           imageURL,
		FaceVerified:       true,
		AIAnalysis:         &signal.Analysis,
		AICredibilityScore: &signal.CredibilityScore,
		AIFindings:         signal.Findings,
		Status:             signal.InitialStatus,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	if err := s.projects.RecordReport(ctx, req.ProjectID); err != nil {
		s.logger.Warn("Failed to bump project report count", zap.Error(err), zap.String("project_id", req.ProjectID.String()))
	}

	if s.notifier != nil && report.Status == StatusFlagged {
		s.notifier.ReportStatusChanged(report)
	}

	s.logger.Info("Citizen report created",
		zap.String("report_id", report.ID.String()),
		zap.String("project_id", req.ProjectID.String()),
		zap.String("status", string(report.Status)),
		zap.Float64("credibility", signal.CredibilityScore))

	return report, nil
}

// GetReport retrieves a report by ID
func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*CitizenReport, error) {
	return s.repo.GetByID(ctx, id)
}

// ListReports lists reports matching the filter
func (s *Service) ListReports(ctx context.Context, filter *ReportFilter) ([]*CitizenReport, int, error) {
	return s.repo.List(ctx, filter)
}

// ListReportsNear lists reports matching the filter whose location falls
// within radiusMeters of center. The geodesic filter runs in-process, so the
// base filter is fetched unpaginated and pagination applies afterward.
func (s *Service) ListReportsNear(ctx context.Context, filter *ReportFilter, center geospatial.Coordinate, radiusMeters float64) ([]*CitizenReport, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("radius must be positive")
	}

	limit, offset := filter.Limit, filter.Offset
	unbounded := *filter
	unbounded.Limit = 0
	unbounded.Offset = 0

	all, _, err := s.repo.List(ctx, &unbounded)
	if err != nil {
		return nil, err
	}

	near := make([]*CitizenReport, 0)
	for _, report := range all {
		loc := geospatial.Coordinate{Lat: report.Lat, Lng: report.Lng}
		if geospatial.WithinRadius(center, loc, radiusMeters) {
			near = append(near, report)
		}
	}

	if offset >= len(near) {
		return []*CitizenReport{}, nil
	}
	near = near[offset:]
	if limit > 0 && limit < len(near) {
		near = near[:limit]
	}
	return near, nil
}

// Moderate applies a moderator decision through the lifecycle table.
// Terminal reports are immutable: the table has no exits from verified or
// rejected, so the transition check refuses them.
func (s *Service) Moderate(ctx context.Context, reportID, moderatorID uuid.UUID, newStatus Status) (*CitizenReport, error) {
	if !ValidStatus(newStatus) {
		return nil, fmt.Errorf("unknown status %q", newStatus)
	}

	report, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if !s.machine.CanTransition(string(report.Status), string(newStatus), workflows.ActorModerator) {
		return nil, fmt.Errorf("transition %s -> %s is not permitted", report.Status, newStatus)
	}

	oldStatus := report.Status
	report.Status = newStatus
	report.UpdatedAt = time.Now()

	if err := s.repo.UpdateStatus(ctx, reportID, newStatus, report.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to update report status: %w", err)
	}

	if s.notifier != nil {
		s.notifier.ReportStatusChanged(report)
	}

	s.logger.Info("Report moderated",
		zap.String("report_id", reportID.String()),
		zap.String("moderator_id", moderatorID.String()),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(newStatus)))

	return report, nil
}

// AllowedModeratorTransitions returns the statuses a moderator may move the
// report to from its current state.
func (s *Service) AllowedModeratorTransitions(ctx context.Context, reportID uuid.UUID) ([]string, error) {
	report, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return s.machine.GetAllowedTransitions(string(report.Status), workflows.ActorModerator), nil
}
