package controlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/codeready-toolchain/cladc/internal/bus"
	"github.com/codeready-toolchain/cladc/internal/capability"
	"github.com/codeready-toolchain/cladc/internal/config"
	"github.com/codeready-toolchain/cladc/internal/coordinator"
	"github.com/codeready-toolchain/cladc/internal/eventstore"
	"github.com/codeready-toolchain/cladc/internal/expbuffer"
	"github.com/codeready-toolchain/cladc/internal/improvement"
	"github.com/codeready-toolchain/cladc/internal/modelregistry"
	"github.com/codeready-toolchain/cladc/internal/monitoring"
	"github.com/codeready-toolchain/cladc/internal/reporting"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubBus is a no-op bus.Bus double sufficient for wiring a Coordinator
// and reporting a fixed health status.
type stubBus struct{}

func (stubBus) Publish(context.Context, string, []byte) error { return nil }
func (stubBus) Subscribe(context.Context, string, bus.Handler) (bus.CancelFunc, error) {
	return func() {}, nil
}
func (stubBus) Health(context.Context) bus.Status {
	return bus.Status{KafkaConnected: true, AMQPConnected: true}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		FlushInterval:               time.Hour,
		ImprovementInterval:         time.Hour,
		DeploymentInterval:          time.Hour,
		ModelValidationInterval:     time.Hour,
		MonitoringInterval:          time.Hour,
		HealthCheckInterval:         time.Hour,
		ReportGenerationInterval:    time.Hour,
		DocumentationUpdateInterval: time.Hour,
		EventRetention:              7 * 24 * time.Hour,
		ReportRetention:             30 * 24 * time.Hour,
		MaxConcurrentTasks:          1,
	}

	events := eventstore.New(1000, nil)
	sim := capability.NewSimulated()
	buffer := expbuffer.New(sim, 1000, 10)
	models := modelregistry.New(10, nil)
	pipeline := improvement.New(models, sim, improvement.Config{MaxConcurrentTasks: 1, TestDeployPassRate: 0.8})
	meter := noop.NewMeterProvider().Meter("test")
	metrics, err := monitoring.NewCollector(meter)
	require.NoError(t, err)
	alerts := monitoring.NewAlertBook(monitoring.Thresholds{CPUUsage: 80, MemoryUsage: 0.85}, monitoring.EscalationTimeouts{})
	incidents := monitoring.NewIncidentBook(3)
	reports := reporting.New(events, models, metrics, alerts, incidents, nil, 100)
	docs := reporting.NewDocStore()

	fb := stubBus{}
	coord := coordinator.New(coordinator.Deps{
		Config: cfg, Bus: fb, Snapshots: nil,
		Events: events, Buffer: buffer, Models: models, Pipeline: pipeline,
		Metrics: metrics, Alerts: alerts, Incidents: incidents,
		Reports: reports, Schedule: reporting.NewScheduler(reporting.DefaultSlots()), Docs: docs, RL: sim,
	})
	require.NoError(t, coord.Start(context.Background()))
	t.Cleanup(coord.Stop)

	return NewServer(Deps{
		Coordinator: coord, Bus: fb,
		Events: events, Buffer: buffer, Models: models, Pipeline: pipeline,
		Alerts: alerts, Incidents: incidents, Reports: reports, Docs: docs,
	})
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var r *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHealthReportsHealthy(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
}

func TestStatusReportsComponents(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.AllRunning)
	require.NotEmpty(t, resp.Components)
}

func TestPublishLearningEventThenQuery(t *testing.T) {
	s := newTestServer(t)
	success := true
	rec := doRequest(s, http.MethodPost, "/events", PublishLearningEventRequest{
		Angel:  "LearningAngel",
		Domain: "traffic",
		Output: struct {
			Success *bool `json:"success,omitempty"`
			Payload any   `json:"payload,omitempty"`
		}{Success: &success},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(s, http.MethodGet, "/events?angel=LearningAngel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp EventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
}

func TestPublishLearningEventMissingAngelIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/events", PublishLearningEventRequest{Domain: "traffic"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerImprovementOnUnknownModelIsNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/models/ghost/improve", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcknowledgeUnknownAlertIsNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/alerts/missing/acknowledge", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveIncidentRequiresResolutionBody(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/incidents/missing/resolve", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishExperienceAccepted(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/experiences", PublishExperienceRequest{Algorithm: "dqn", Reward: 1})
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestFlushBuffersReturnsDepths(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/buffers/flush", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerateReportUnknownTypeFails(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/reports", GenerateReportRequest{Type: "not_a_type"})
	require.True(t, rec.Code >= 400)
}
