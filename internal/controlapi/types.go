package controlapi

import (
	"time"

	"github.com/codeready-toolchain/cladc/internal/coordinator"
	"github.com/codeready-toolchain/cladc/internal/eventstore"
	"github.com/codeready-toolchain/cladc/internal/improvement"
	"github.com/codeready-toolchain/cladc/internal/modelregistry"
	"github.com/codeready-toolchain/cladc/internal/monitoring"
	"github.com/codeready-toolchain/cladc/internal/reporting"
)

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Components []coordinator.ComponentStatus `json:"components"`
	Uptime     time.Duration                  `json:"uptime"`
	AllRunning bool                           `json:"all_running"`
}

// EventsQuery binds GET /events query parameters.
type EventsQuery struct {
	Angel  string `form:"angel"`
	Domain string `form:"domain"`
	Limit  int    `form:"limit"`
}

// EventsResponse is returned by GET /events.
type EventsResponse struct {
	Events []eventstore.LearningEvent `json:"events"`
}

// DailySummaryQuery binds GET /events/daily_summary query parameters.
type DailySummaryQuery struct {
	Angel  string `form:"angel"`
	Domain string `form:"domain"`
}

// PatternsResponse is returned by GET /events/patterns.
type PatternsResponse struct {
	Patterns []eventstore.Pattern `json:"patterns"`
}

// InsightsQuery binds GET /events/insights query parameters.
type InsightsQuery struct {
	Period string `form:"period"`
}

// ModelsResponse is returned by GET /models.
type ModelsResponse struct {
	Models []modelregistry.Model `json:"models"`
}

// ModelVersionsResponse is returned by GET /models/:name/versions.
type ModelVersionsResponse struct {
	Name              string                            `json:"name"`
	CurrentVersion    modelregistry.Version             `json:"current_version"`
	DeploymentHistory []modelregistry.DeploymentRecord  `json:"deployment_history"`
	PerformanceHistory []modelregistry.PerformanceSample `json:"performance_history"`
}

// ImprovementTasksResponse is returned by GET /improvement_tasks.
type ImprovementTasksResponse struct {
	Tasks []improvement.ImprovementTask `json:"tasks"`
}

// TriggerImprovementRequest binds POST /models/:name/improve.
type TriggerImprovementRequest struct {
	Rigorous bool `json:"rigorous"`
}

// TaskAcceptedResponse is returned by any operation that enqueues an
// ImprovementTask (trigger_improvement, drift-triggered retraining).
type TaskAcceptedResponse struct {
	TaskID string `json:"task_id"`
	Status improvement.TaskStatus `json:"status"`
}

// RollbackResponse is returned by POST /models/:name/rollback.
type RollbackResponse struct {
	Model modelregistry.Model `json:"model"`
}

// AlertsQuery binds GET /alerts query parameters.
type AlertsQuery struct {
	State string `form:"state"`
}

// AlertsResponse is returned by GET /alerts.
type AlertsResponse struct {
	Alerts []monitoring.Alert `json:"alerts"`
}

// IncidentsResponse is returned by GET /incidents.
type IncidentsResponse struct {
	Incidents []monitoring.Incident `json:"incidents"`
}

// ResolveIncidentRequest binds POST /incidents/:id/resolve.
type ResolveIncidentRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

// AckResponse is returned by acknowledge_alert and resolve_incident.
type AckResponse struct {
	ID  string `json:"id"`
	Ok  bool   `json:"ok"`
}

// ReportsQuery binds GET /reports query parameters.
type ReportsQuery struct {
	Type string `form:"type"`
}

// ReportsResponse is returned by GET /reports.
type ReportsResponse struct {
	Reports []reporting.Report `json:"reports"`
}

// GenerateReportRequest binds POST /reports.
type GenerateReportRequest struct {
	Type    reporting.ReportType `json:"type" binding:"required"`
	Angel   string               `json:"angel,omitempty"`
	Domain  string               `json:"domain,omitempty"`
	Formats []reporting.Format   `json:"formats,omitempty"`
}

// DocumentationQuery binds GET /documentation query parameters.
type DocumentationQuery struct {
	Kind string `form:"kind"`
}

// DocumentationResponse is returned by GET /documentation.
type DocumentationResponse struct {
	Documents []reporting.Documentation `json:"documents"`
}

// PublishExperienceRequest binds POST /experiences.
type PublishExperienceRequest struct {
	Algorithm string    `json:"algorithm" binding:"required"`
	State     []float64 `json:"state,omitempty"`
	Action    []float64 `json:"action,omitempty"`
	Reward    float64   `json:"reward"`
	NextState []float64 `json:"next_state,omitempty"`
	Done      bool      `json:"done,omitempty"`
}

// PublishLearningEventRequest binds POST /events.
type PublishLearningEventRequest struct {
	Angel  string `json:"angel" binding:"required"`
	Domain string `json:"domain" binding:"required"`
	Input  any    `json:"input,omitempty"`
	Output struct {
		Success *bool `json:"success,omitempty"`
		Payload any   `json:"payload,omitempty"`
	} `json:"output"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// FlushResponse is returned by POST /buffers/flush.
type FlushResponse struct {
	Depths map[string]int `json:"depths_before_flush"`
}
