package projects

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"civiclens/portal-backend/internal/trust"
)

// Project represents a public infrastructure project under citizen oversight.
// TrustScore is derived: it is recomputed from the other fields on every
// mutation and never written independently.
type Project struct {
	ID                    uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name                  string          `gorm:"not null" json:"name"`
	Description           string          `json:"description"`
	Location              string          `json:"location"`
	Department            string          `gorm:"index" json:"department"`
	Lat                   float64         `json:"lat"`
	Lng                   float64         `json:"lng"`
	Budget                int64           `json:"budget"` // smallest currency unit (paise)
	OfficialCompletion    int             `json:"official_completion"`
	AIEstimatedCompletion int             `json:"ai_estimated_completion"`
	DelayRisk             trust.DelayRisk `gorm:"not null;default:'Medium'" json:"delay_risk"`
	CitizenReportCount    int             `gorm:"not null;default:0" json:"citizen_report_count"`
	TrustScore            int             `json:"trust_score"`
	Timeline              string          `json:"timeline"`
	StartDate             time.Time       `json:"start_date"`
	EndDate               time.Time       `json:"end_date"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	DeletedAt             gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ProgressHistory tracks official/AI completion changes and the trust score
// each change produced.
type ProgressHistory struct {
	ID                    uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID             uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	OfficialCompletion    int            `json:"official_completion"`
	AIEstimatedCompletion int            `json:"ai_estimated_completion"`
	TrustScore            int            `json:"trust_score"`
	Details               datatypes.JSON `json:"details"`
	RecordedAt            time.Time      `json:"recorded_at"`
	RecordedBy            uuid.UUID      `gorm:"type:uuid" json:"recorded_by"`
	Project               Project        `gorm:"foreignKey:ProjectID" json:"-"`
}

// ScoreInput extracts the four trust score factors from a project.
func (p *Project) ScoreInput() trust.ScoreInput {
	return trust.ScoreInput{
		OfficialCompletion:    p.OfficialCompletion,
		AIEstimatedCompletion: p.AIEstimatedCompletion,
		CitizenReportCount:    p.CitizenReportCount,
		DelayRisk:             p.DelayRisk,
	}
}
