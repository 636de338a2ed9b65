package export

import (
	"fmt"

	"civiclens/portal-backend/internal/projects"
	"civiclens/portal-backend/internal/trust"
)

// TrustRow is one project line of the transparency export
type TrustRow struct {
	Name                  string
	Department            string
	Budget                string
	OfficialCompletion    int
	AIEstimatedCompletion int
	Gap                   int
	DelayRisk             string
	CitizenReports        int
	TrustScore            int
	TrustLevel            string
}

// trustColumns are the export columns in render order
var trustColumns = []string{
	"Project", "Department", "Budget", "Official %", "AI Estimated %",
	"Gap", "Delay Risk", "Citizen Reports", "Trust Score", "Trust Level",
}

// BuildTrustRows flattens a project snapshot into export rows
func BuildTrustRows(snapshot []*projects.Project) []TrustRow {
	rows := make([]TrustRow, 0, len(snapshot))
	for _, p := range snapshot {
		gap := p.OfficialCompletion - p.AIEstimatedCompletion
		if gap < 0 {
			gap = -gap
		}
		rows = append(rows, TrustRow{
			Name:                  p.Name,
			Department:            p.Department,
			Budget:                FormatBudget(p.Budget),
			OfficialCompletion:    p.OfficialCompletion,
			AIEstimatedCompletion: p.AIEstimatedCompletion,
			Gap:                   gap,
			DelayRisk:             string(p.DelayRisk),
			CitizenReports:        p.CitizenReportCount,
			TrustScore:            p.TrustScore,
			TrustLevel:            string(trust.ClassifyLevel(p.TrustScore)),
		})
	}
	return rows
}

func (r TrustRow) cells() []string {
	return []string{
		r.Name,
		r.Department,
		r.Budget,
		fmt.Sprintf("%d", r.OfficialCompletion),
		fmt.Sprintf("%d", r.AIEstimatedCompletion),
		fmt.Sprintf("%d", r.Gap),
		r.DelayRisk,
		fmt.Sprintf("%d", r.CitizenReports),
		fmt.Sprintf("%d", r.TrustScore),
		r.TrustLevel,
	}
}

const (
	paisePerRupee = 100
	rupeesPerLakh = 100_000
	lakhsPerCrore = 100
)

// FormatBudget renders a budget held in paise as the Indian-convention
// crore/lakh string used on public dashboards.
func FormatBudget(paise int64) string {
	rupees := float64(paise) / paisePerRupee
	crore := rupees / (rupeesPerLakh * lakhsPerCrore)
	if crore >= 1 {
		return fmt.Sprintf("₹%.1f Cr", crore)
	}
	return fmt.Sprintf("₹%.1f L", rupees/rupeesPerLakh)
}
