package reports

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines the interface for report data access
type Repository interface {
	Create(ctx context.Context, report *CitizenReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*CitizenReport, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, updatedAt time.Time) error
	List(ctx context.Context, filter *ReportFilter) ([]*CitizenReport, int, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*CitizenReport, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	MonthlyCounts(ctx context.Context, months int) (map[string]int, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, report *CitizenReport) error {
	query := `
		INSERT INTO citizen_reports (
			id, user_id, project_id, title, description, severity, lat, lng,
			image_url, face_verified, ai_analysis, ai_credibility_score,
			ai_findings, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		report.ID, report.UserID, report.ProjectID, report.Title, report.Description,
		report.Severity, report.Lat, report.Lng, report.ImageURL, report.FaceVerified,
		report.AIAnalysis, report.AICredibilityScore, report.AIFindings,
		report.Status, report.CreatedAt, report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert citizen report: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*CitizenReport, error) {
	query := `
		SELECT id, user_id, project_id, title, description, severity, lat, lng,
			   image_url, face_verified, ai_analysis, ai_credibility_score,
			   ai_findings, status, created_at, updated_at
		FROM citizen_reports
		WHERE id = $1
	`

	var report CitizenReport
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("report %s not found", id)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return &report, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE citizen_reports SET status = $1, updated_at = $2 WHERE id = $3`,
		status, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("report %s not found", id)
	}

	return nil
}

func (r *PostgresRepository) List(ctx context.Context, filter *ReportFilter) ([]*CitizenReport, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argIdx := 1

	addCondition := func(clause string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(clause, argIdx))
		args = append(args, value)
		argIdx++
	}

	if filter.ProjectID != nil {
		addCondition("project_id = $%d", *filter.ProjectID)
	}
	if filter.UserID != nil {
		addCondition("user_id = $%d", *filter.UserID)
	}
	if filter.Status != nil {
		addCondition("status = $%d", *filter.Status)
	}
	if filter.Severity != nil {
		addCondition("severity = $%d", *filter.Severity)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM citizen_reports" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	query := `
		SELECT id, user_id, project_id, title, description, severity, lat, lng,
			   image_url, face_verified, ai_analysis, ai_credibility_score,
			   ai_findings, status, created_at, updated_at
		FROM citizen_reports` + where + " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	var result []*CitizenReport
	if err := r.db.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}

	return result, total, nil
}

func (r *PostgresRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*CitizenReport, error) {
	query := `
		SELECT id, user_id, project_id, title, description, severity, lat, lng,
			   image_url, face_verified, ai_analysis, ai_credibility_score,
			   ai_findings, status, created_at, updated_at
		FROM citizen_reports
		WHERE project_id = $1
		ORDER BY created_at DESC
	`

	var result []*CitizenReport
	if err := r.db.SelectContext(ctx, &result, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list project reports: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT status, COUNT(*) AS count FROM citizen_reports GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

func (r *PostgresRepository) MonthlyCounts(ctx context.Context, months int) (map[string]int, error) {
	query := `
		SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
			   COUNT(*) AS count
		FROM citizen_reports
		WHERE created_at >= date_trunc('month', now()) - ($1 || ' months')::interval
		GROUP BY 1
		ORDER BY 1
	`

	rows, err := r.db.QueryxContext(ctx, query, months)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var month string
		var count int
		if err := rows.Scan(&month, &count); err != nil {
			return nil, fmt.Errorf("failed to scan monthly count: %w", err)
		}
		counts[month] = count
	}

	return counts, rows.Err()
}
