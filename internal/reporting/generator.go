package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/cladc/internal/cladcerr"
	"github.com/codeready-toolchain/cladc/internal/eventstore"
	"github.com/codeready-toolchain/cladc/internal/modelregistry"
	"github.com/codeready-toolchain/cladc/internal/monitoring"
)

const reportsChannel = "omni.workflows"

// Generator collects data from the event store, model registry, and
// monitoring subsystem and assembles it into one of the static report
// templates.
type Generator struct {
	events     *eventstore.Store
	models     *modelregistry.Registry
	metrics    *monitoring.Collector
	alerts     *monitoring.AlertBook
	incidents  *monitoring.IncidentBook
	publisher  EventPublisher

	mu              sync.Mutex
	history         []Report
	maxReportHistory int
}

// New constructs a Generator over the given component views.
func New(events *eventstore.Store, models *modelregistry.Registry, metrics *monitoring.Collector, alerts *monitoring.AlertBook, incidents *monitoring.IncidentBook, pub EventPublisher, maxReportHistory int) *Generator {
	return &Generator{
		events: events, models: models, metrics: metrics, alerts: alerts, incidents: incidents,
		publisher: pub, maxReportHistory: maxReportHistory,
	}
}

// Generate assembles report_type's sections, renders every requested
// format, writes the result to history, and publishes report_published.
func (g *Generator) Generate(ctx context.Context, reportType ReportType, opts GenerateOptions) (Report, error) {
	sections, err := g.collectSections(reportType, opts)
	if err != nil {
		return Report{}, err
	}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON}
	}

	report := Report{
		ID:          uuid.NewString(),
		Type:        reportType,
		Sections:    sections,
		Rendered:    make(map[Format]string),
		GeneratedAt: time.Now().UTC(),
	}
	for _, f := range formats {
		rendered, err := render(f, sections)
		if err != nil {
			report.FailedFormats = append(report.FailedFormats, f)
			continue
		}
		report.Rendered[f] = rendered
	}

	g.store(report)
	g.publishReport(ctx, report)
	return report, nil
}

func (g *Generator) collectSections(reportType ReportType, opts GenerateOptions) (map[string]any, error) {
	switch reportType {
	case ReportDailySummary:
		return map[string]any{"daily_summary": g.events.DailySummary(opts.Angel, opts.Domain)}, nil
	case ReportPerformance:
		return map[string]any{"models": g.models.List()}, nil
	case ReportLearningInsights:
		return map[string]any{"patterns": g.events.PatternAnalysis()}, nil
	case ReportSystemStatus:
		return map[string]any{
			"alerts":    g.alerts.Snapshot(""),
			"incidents": g.incidents.Snapshot(),
		}, nil
	case ReportAPIDocumentation, ReportSystemArchitecture:
		return map[string]any{"models": g.models.List()}, nil
	default:
		return nil, cladcerr.New(cladcerr.Validation, "reporting", "unknown report type: "+string(reportType))
	}
}

func render(f Format, sections map[string]any) (string, error) {
	switch f {
	case FormatJSON:
		b, err := json.Marshal(sections)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case FormatMarkdown:
		return renderMarkdown(sections), nil
	case FormatHTML:
		return "<html><body><pre>" + renderMarkdown(sections) + "</pre></body></html>", nil
	default:
		return "", cladcerr.New(cladcerr.Validation, "reporting", "unknown format: "+string(f))
	}
}

func renderMarkdown(sections map[string]any) string {
	out := ""
	for name, v := range sections {
		out += fmt.Sprintf("## %s\n\n%+v\n\n", name, v)
	}
	return out
}

// RestoreHistory replaces the in-memory report history with reports
// loaded from a snapshot taken at startup.
func (g *Generator) RestoreHistory(history []Report) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = append([]Report(nil), history...)
}

func (g *Generator) store(r Report) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = append(g.history, r)
	if g.maxReportHistory > 0 && len(g.history) > g.maxReportHistory {
		excess := len(g.history) - g.maxReportHistory
		g.history = g.history[excess:]
	}
}

func (g *Generator) publishReport(ctx context.Context, r Report) {
	if g.publisher == nil {
		return
	}
	payload, err := json.Marshal(struct {
		Type      string    `json:"type"`
		ID        string    `json:"id"`
		ReportType ReportType `json:"report_type"`
		Timestamp time.Time `json:"timestamp"`
	}{Type: "report_published", ID: r.ID, ReportType: r.Type, Timestamp: r.GeneratedAt})
	if err != nil {
		return
	}
	_ = g.publisher.Publish(ctx, reportsChannel, payload)
}

// History returns a filtered copy of generated reports, newest first.
func (g *Generator) History(filterType ReportType) []Report {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Report, 0, len(g.history))
	for i := len(g.history) - 1; i >= 0; i-- {
		r := g.history[i]
		if filterType != "" && r.Type != filterType {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Cleanup drops reports older than retention; the history is already
// capped separately by maxReportHistory in store().
func (g *Generator) Cleanup(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.history[:0:0]
	for _, r := range g.history {
		if r.GeneratedAt.After(cutoff) {
			kept = append(kept, r)
		}
	}
	dropped := len(g.history) - len(kept)
	g.history = kept
	return dropped
}
