package stats

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"civiclens/portal-backend/internal/projects"
	"civiclens/portal-backend/internal/reports"
	"civiclens/portal-backend/internal/trust"
)

const (
	// AlertDiscrepancyThreshold is the completion gap above which a project
	// raises an admin discrepancy alert.
	AlertDiscrepancyThreshold = 20

	// SurfacingDiscrepancyThreshold is the lower gap at which a mismatch is
	// surfaced on transparency views without alerting anyone.
	SurfacingDiscrepancyThreshold = 15

	// LowTrustCeiling marks projects that go on the low-trust watch list
	LowTrustCeiling = 50

	summaryCacheKey     = "dashboard_summary"
	participationMonths = 12
)

// ProjectSource supplies the project snapshot aggregates are computed from
type ProjectSource interface {
	AllProjects(ctx context.Context) ([]*projects.Project, error)
}

// ReportSource supplies report-level counts
type ReportSource interface {
	CountByStatus(ctx context.Context) (map[reports.Status]int, error)
	MonthlyCounts(ctx context.Context, months int) (map[string]int, error)
}

// AlertSink receives newly detected discrepancy alerts. A nil sink is
// allowed.
type AlertSink interface {
	DiscrepancyAlert(alert ProjectDiscrepancy)
}

// ProjectDiscrepancy is one official-vs-AI completion mismatch
type ProjectDiscrepancy struct {
	ProjectID             uuid.UUID `json:"project_id"`
	Name                  string    `json:"name"`
	Department            string    `json:"department"`
	OfficialCompletion    int       `json:"official_completion"`
	AIEstimatedCompletion int       `json:"ai_estimated_completion"`
	Gap                   int       `json:"gap"`
}

// ProjectTrust is a project on the low-trust watch list
type ProjectTrust struct {
	ProjectID  uuid.UUID `json:"project_id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	TrustScore int       `json:"trust_score"`
}

// DepartmentRollup aggregates trust per department
type DepartmentRollup struct {
	Department        string `json:"department"`
	AverageTrustScore int    `json:"average_trust_score"`
	ProjectCount      int    `json:"project_count"`
}

// DistributionBucket is one bar of the trust score histogram
type DistributionBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// MonthlyCount is citizen participation for one calendar month
type MonthlyCount struct {
	Month   string `json:"month"`
	Reports int    `json:"reports"`
}

// Summary is the complete dashboard aggregate
type Summary struct {
	TotalProjects        int                  `json:"total_projects"`
	TotalReports         int                  `json:"total_reports"`
	AverageTrustScore    int                  `json:"average_trust_score"`
	HighRiskCount        int                  `json:"high_risk_count"`
	DiscrepancyAlerts    []ProjectDiscrepancy `json:"discrepancy_alerts"`
	SurfacedMismatches   []ProjectDiscrepancy `json:"surfaced_mismatches"`
	LowTrustProjects     []ProjectTrust       `json:"low_trust_projects"`
	DepartmentRollups    []DepartmentRollup   `json:"department_rollups"`
	Distribution         []DistributionBucket `json:"distribution"`
	MonthlyParticipation []MonthlyCount       `json:"monthly_participation"`
	ReportsByStatus      map[string]int       `json:"reports_by_status"`
	ComputedAt           time.Time            `json:"computed_at"`
}

// Aggregator recomputes dashboard aggregates from the repository snapshot.
// Recomputation is pure: the same snapshot always yields the same summary.
type Aggregator struct {
	projects ProjectSource
	reports  ReportSource
	alerts   AlertSink
	cache    *Cache
	logger   *zap.Logger

	// gap last alerted per project, so recomputation does not re-raise
	// unchanged alerts
	alertedMu sync.Mutex
	alerted   map[uuid.UUID]int
}

// NewAggregator creates a stats aggregator with a TTL cache
func NewAggregator(projectSource ProjectSource, reportSource ReportSource, alerts AlertSink, cacheTTL time.Duration, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		projects: projectSource,
		reports:  reportSource,
		alerts:   alerts,
		cache:    NewCache(cacheTTL),
		logger:   logger,
		alerted:  make(map[uuid.UUID]int),
	}
}

// Summary returns the dashboard aggregate, served from cache within the TTL
func (a *Aggregator) Summary(ctx context.Context) (*Summary, error) {
	if cached, ok := a.cache.Get(summaryCacheKey); ok {
		if summary, ok := cached.(*Summary); ok {
			return summary, nil
		}
	}
	return a.Recompute(ctx)
}

// Recompute rebuilds the summary from a fresh snapshot, bypassing the cache.
// The scheduled worker calls this to keep the cache warm.
func (a *Aggregator) Recompute(ctx context.Context) (*Summary, error) {
	snapshot, err := a.projects.AllProjects(ctx)
	if err != nil {
		return nil, err
	}

	summary := a.computeFromSnapshot(snapshot)

	statusCounts, err := a.reports.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	summary.ReportsByStatus = make(map[string]int, len(statusCounts))
	for status, count := range statusCounts {
		summary.TotalReports += count
		summary.ReportsByStatus[string(status)] = count
	}

	monthly, err := a.reports.MonthlyCounts(ctx, participationMonths)
	if err != nil {
		return nil, err
	}
	summary.MonthlyParticipation = sortedMonthly(monthly)

	a.cache.Set(summaryCacheKey, summary)
	a.raiseNewAlerts(summary.DiscrepancyAlerts)

	a.logger.Debug("Dashboard summary recomputed",
		zap.Int("projects", summary.TotalProjects),
		zap.Int("alerts", len(summary.DiscrepancyAlerts)))

	return summary, nil
}

// Invalidate drops the cached summary so the next read recomputes
func (a *Aggregator) Invalidate() {
	a.cache.Delete(summaryCacheKey)
}

// Stop releases the cache cleanup goroutine
func (a *Aggregator) Stop() {
	a.cache.Stop()
}

func (a *Aggregator) computeFromSnapshot(snapshot []*projects.Project) *Summary {
	summary := &Summary{
		TotalProjects:      len(snapshot),
		DiscrepancyAlerts:  []ProjectDiscrepancy{},
		SurfacedMismatches: []ProjectDiscrepancy{},
		LowTrustProjects:   []ProjectTrust{},
		ComputedAt:         time.Now(),
	}

	buckets := [5]int{}
	departments := make(map[string]*DepartmentRollup)
	scoreSum := 0

	for _, p := range snapshot {
		scoreSum += p.TrustScore
		buckets[bucketIndex(p.TrustScore)]++

		if p.DelayRisk == trust.DelayRiskHigh {
			summary.HighRiskCount++
		}

		if p.TrustScore < LowTrustCeiling {
			summary.LowTrustProjects = append(summary.LowTrustProjects, ProjectTrust{
				ProjectID:  p.ID,
				Name:       p.Name,
				Department: p.Department,
				TrustScore: p.TrustScore,
			})
		}

		if d, err := trust.DetectDiscrepancy(p.OfficialCompletion, p.AIEstimatedCompletion, SurfacingDiscrepancyThreshold); err == nil && d.Flagged {
			mismatch := ProjectDiscrepancy{
				ProjectID:             p.ID,
				Name:                  p.Name,
				Department:            p.Department,
				OfficialCompletion:    p.OfficialCompletion,
				AIEstimatedCompletion: p.AIEstimatedCompletion,
				Gap:                   d.Gap,
			}
			summary.SurfacedMismatches = append(summary.SurfacedMismatches, mismatch)
			if d.Gap > AlertDiscrepancyThreshold {
				summary.DiscrepancyAlerts = append(summary.DiscrepancyAlerts, mismatch)
			}
		}

		rollup, ok := departments[p.Department]
		if !ok {
			rollup = &DepartmentRollup{Department: p.Department}
			departments[p.Department] = rollup
		}
		rollup.ProjectCount++
		rollup.AverageTrustScore += p.TrustScore
	}

	if len(snapshot) > 0 {
		summary.AverageTrustScore = int(math.Round(float64(scoreSum) / float64(len(snapshot))))
	}

	sort.Slice(summary.LowTrustProjects, func(i, j int) bool {
		return summary.LowTrustProjects[i].TrustScore < summary.LowTrustProjects[j].TrustScore
	})
	sort.Slice(summary.SurfacedMismatches, func(i, j int) bool {
		return summary.SurfacedMismatches[i].Gap > summary.SurfacedMismatches[j].Gap
	})
	sort.Slice(summary.DiscrepancyAlerts, func(i, j int) bool {
		return summary.DiscrepancyAlerts[i].Gap > summary.DiscrepancyAlerts[j].Gap
	})

	bucketRanges := [5]string{"0-20", "21-40", "41-60", "61-80", "81-100"}
	summary.Distribution = make([]DistributionBucket, 5)
	for i, r := range bucketRanges {
		summary.Distribution[i] = DistributionBucket{Range: r, Count: buckets[i]}
	}

	summary.DepartmentRollups = make([]DepartmentRollup, 0, len(departments))
	for _, rollup := range departments {
		rollup.AverageTrustScore = int(math.Round(float64(rollup.AverageTrustScore) / float64(rollup.ProjectCount)))
		summary.DepartmentRollups = append(summary.DepartmentRollups, *rollup)
	}
	sort.Slice(summary.DepartmentRollups, func(i, j int) bool {
		return summary.DepartmentRollups[i].Department < summary.DepartmentRollups[j].Department
	})

	return summary
}

// raiseNewAlerts notifies the sink about alerts whose gap changed since the
// last recomputation. Unchanged alerts stay silent.
func (a *Aggregator) raiseNewAlerts(alerts []ProjectDiscrepancy) {
	if a.alerts == nil {
		return
	}

	a.alertedMu.Lock()
	defer a.alertedMu.Unlock()

	current := make(map[uuid.UUID]int, len(alerts))
	for _, alert := range alerts {
		current[alert.ProjectID] = alert.Gap
		if prev, seen := a.alerted[alert.ProjectID]; !seen || prev != alert.Gap {
			a.alerts.DiscrepancyAlert(alert)
		}
	}
	a.alerted = current
}

func bucketIndex(score int) int {
	switch {
	case score <= 20:
		return 0
	case score <= 40:
		return 1
	case score <= 60:
		return 2
	case score <= 80:
		return 3
	default:
		return 4
	}
}

func sortedMonthly(counts map[string]int) []MonthlyCount {
	result := make([]MonthlyCount, 0, len(counts))
	for month, count := range counts {
		result = append(result, MonthlyCount{Month: month, Reports: count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month < result[j].Month })
	return result
}
