package notifications

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"civiclens/portal-backend/internal/reports"
	"civiclens/portal-backend/internal/stats"
)

// Broadcaster pushes an event to all connected dashboard clients
type Broadcaster interface {
	Broadcast(message interface{}) error
}

const deliveryTimeout = 10 * time.Second

// Service fans notification events out to websocket clients and, for events
// that need human attention, to the admin inbox. Delivery is best effort:
// a failed channel is logged, never propagated to the caller.
type Service struct {
	broadcaster Broadcaster
	email       EmailSender
	adminEmails []string
	logger      *zap.Logger
}

// NewService creates a notifications service. broadcaster and email may each
// be nil to disable that channel.
func NewService(broadcaster Broadcaster, email EmailSender, adminEmails []string, logger *zap.Logger) *Service {
	return &Service{
		broadcaster: broadcaster,
		email:       email,
		adminEmails: adminEmails,
		logger:      logger,
	}
}

// ReportStatusChanged publishes a report lifecycle change. Flagged reports
// additionally alert admins by email.
func (s *Service) ReportStatusChanged(report *reports.CitizenReport) {
	event := Event{
		Type:      EventReportStatus,
		Title:     "Report status changed",
		Body:      fmt.Sprintf("Report %q is now %s", report.Title, report.Status),
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"report_id":  report.ID.String(),
			"project_id": report.ProjectID.String(),
			"status":     string(report.Status),
		},
	}

	if report.Status == reports.StatusFlagged {
		event.Type = EventReportFlagged
		event.Title = "Report flagged for review"
		go s.emailAdmins(event)
	}

	s.publish(event)
}

// DiscrepancyAlert publishes a completion-gap alert to admins
func (s *Service) DiscrepancyAlert(alert stats.ProjectDiscrepancy) {
	event := Event{
		Type:  EventDiscrepancyAlert,
		Title: "Completion discrepancy detected",
		Body: fmt.Sprintf("%s (%s): official %d%% vs AI estimate %d%% (gap %d)",
			alert.Name, alert.Department,
			alert.OfficialCompletion, alert.AIEstimatedCompletion, alert.Gap),
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"project_id": alert.ProjectID.String(),
			"gap":        alert.Gap,
		},
	}

	go s.emailAdmins(event)
	s.publish(event)
}

func (s *Service) publish(event Event) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(event); err != nil {
		s.logger.Warn("WebSocket broadcast failed",
			zap.Error(err), zap.String("event_type", string(event.Type)))
	}
}

func (s *Service) emailAdmins(event Event) {
	if s.email == nil || len(s.adminEmails) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := s.email.Send(ctx, s.adminEmails, event.Title, event.Body); err != nil {
		s.logger.Warn("Admin email delivery failed",
			zap.Error(err), zap.String("event_type", string(event.Type)))
	}
}
