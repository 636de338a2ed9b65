package notifications

import (
	"time"
)

// EventType identifies the kind of notification event
type EventType string

const (
	// EventDiscrepancyAlert fires when a project's official-vs-AI completion
	// gap crosses the alert threshold.
	EventDiscrepancyAlert EventType = "discrepancy_alert"

	// EventReportFlagged fires when a citizen report lands in moderation
	EventReportFlagged EventType = "report_flagged"

	// EventReportStatus fires when a moderator changes a report's status
	EventReportStatus EventType = "report_status"
)

// Event is one notification pushed to dashboards and admin inboxes
type Event struct {
	Type      EventType              `json:"type"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
