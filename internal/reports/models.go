package reports

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"civiclens/portal-backend/pkg/validate"
)

// =====================================================
// Enums and Constants
// =====================================================

// Severity represents how serious a citizen report is
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// ValidSeverity reports whether s is a known severity
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Status represents the lifecycle state of a citizen report. "draft" exists
// only before the liveness gate passes and is never persisted.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFlagged  Status = "flagged"
	StatusRejected Status = "rejected"
)

// ValidStatus reports whether s is a persistable status
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusVerified, StatusFlagged, StatusRejected:
		return true
	}
	return false
}

// MaxDescriptionLength caps report descriptions
const MaxDescriptionLength = 1000

// MaxTitleLength caps report titles
const MaxTitleLength = 100

// =====================================================
// Citizen Report
// =====================================================

// CitizenReport is a geo-tagged, face-verified citizen observation about a
// project. The AI analysis fields are written once at creation and the
// status only ever changes through the lifecycle state machine.
type CitizenReport struct {
	ID                 uuid.UUID      `json:"id" db:"id"`
	UserID             uuid.UUID      `json:"user_id" db:"user_id"`
	ProjectID          uuid.UUID      `json:"project_id" db:"project_id"`
	Title              string         `json:"title" db:"title"`
	Description        string         `json:"description" db:"description"`
	Severity           Severity       `json:"severity" db:"severity"`
	Lat                float64        `json:"lat" db:"lat"`
	Lng                float64        `json:"lng" db:"lng"`
	ImageURL           string         `json:"image_url" db:"image_url"`
	FaceVerified       bool           `json:"face_verified" db:"face_verified"`
	AIAnalysis         *string        `json:"ai_analysis,omitempty" db:"ai_analysis"`
	AICredibilityScore *float64       `json:"ai_credibility_score,omitempty" db:"ai_credibility_score"`
	AIFindings         pq.StringArray `json:"ai_findings,omitempty" db:"ai_findings"`
	Status             Status         `json:"status" db:"status"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the report has reached a terminal moderation state
func (r *CitizenReport) IsTerminal() bool {
	return r.Status == StatusVerified || r.Status == StatusRejected
}

// =====================================================
// Requests and Filters
// =====================================================

// SubmitReportRequest carries everything needed for the all-or-nothing
// report creation: liveness evidence, the report body, and optional photo.
type SubmitReportRequest struct {
	ProjectID          uuid.UUID `json:"project_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Severity           Severity  `json:"severity"`
	Lat                float64   `json:"lat"`
	Lng                float64   `json:"lng"`
	FaceImageBase64    string    `json:"face_image_base64"`
	ProfileImageBase64 string    `json:"profile_image_base64,omitempty"`
	ImageBase64        string    `json:"image_base64,omitempty"`
	ImageFilename      string    `json:"image_filename,omitempty"`
}

// Validate rejects malformed submissions before any oracle call is made
func (req *SubmitReportRequest) Validate() error {
	if req.ProjectID == uuid.Nil {
		return validate.Errorf("project_id", "is required")
	}
	if req.Title == "" {
		return validate.Errorf("title", "is required")
	}
	if len(req.Title) > MaxTitleLength {
		return validate.Errorf("title", "must be at most %d characters", MaxTitleLength)
	}
	if req.Description == "" {
		return validate.Errorf("description", "is required")
	}
	if len(req.Description) > MaxDescriptionLength {
		return validate.Errorf("description", "must be at most %d characters", MaxDescriptionLength)
	}
	if !ValidSeverity(req.Severity) {
		return validate.Errorf("severity", "unknown value %q", req.Severity)
	}
	if req.FaceImageBase64 == "" {
		return validate.Errorf("face_image_base64", "is required")
	}
	if err := validate.Range("lat", req.Lat, -90, 90); err != nil {
		return err
	}
	return validate.Range("lng", req.Lng, -180, 180)
}

// ReportFilter narrows report listings
type ReportFilter struct {
	ProjectID    *uuid.UUID
	UserID       *uuid.UUID
	Status       *Status
	Severity     *Severity
	Limit        int
	Offset       int
}
