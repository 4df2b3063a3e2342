// Package controlapi implements the Control API: the synchronous HTTP
// surface external UIs and operators use. The constructor wires every
// collaborator then calls setupRoutes before Start, using gin as the
// HTTP router (see DESIGN.md).
package controlapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/cladc/internal/bus"
	"github.com/codeready-toolchain/cladc/internal/coordinator"
	"github.com/codeready-toolchain/cladc/internal/eventstore"
	"github.com/codeready-toolchain/cladc/internal/expbuffer"
	"github.com/codeready-toolchain/cladc/internal/improvement"
	"github.com/codeready-toolchain/cladc/internal/modelregistry"
	"github.com/codeready-toolchain/cladc/internal/monitoring"
	"github.com/codeready-toolchain/cladc/internal/reporting"
	"github.com/codeready-toolchain/cladc/internal/version"
)

// Server is the HTTP API server fronting every CLADC component.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	coordinator *coordinator.Coordinator
	bus         bus.Bus
	events      *eventstore.Store
	buffer      *expbuffer.Buffer
	models      *modelregistry.Registry
	pipeline    *improvement.Pipeline
	alerts      *monitoring.AlertBook
	incidents   *monitoring.IncidentBook
	reports     *reporting.Generator
	docs        *reporting.DocStore
}

// Deps bundles every collaborator the Control API reads from or writes
// through. All fields are required; NewServer panics on a missing one
// since an incompletely wired Control API is a startup defect, not a
// runtime condition.
type Deps struct {
	Coordinator *coordinator.Coordinator
	Bus         bus.Bus
	Events      *eventstore.Store
	Buffer      *expbuffer.Buffer
	Models      *modelregistry.Registry
	Pipeline    *improvement.Pipeline
	Alerts      *monitoring.AlertBook
	Incidents   *monitoring.IncidentBook
	Reports     *reporting.Generator
	Docs        *reporting.DocStore
}

// NewServer constructs a Server and registers every route. It does not
// start listening; call Start.
func NewServer(d Deps) *Server {
	if err := validateDeps(d); err != nil {
		panic(err)
	}

	s := &Server{
		engine:      gin.New(),
		coordinator: d.Coordinator,
		bus:         d.Bus,
		events:      d.Events,
		buffer:      d.Buffer,
		models:      d.Models,
		pipeline:    d.Pipeline,
		alerts:      d.Alerts,
		incidents:   d.Incidents,
		reports:     d.Reports,
		docs:        d.Docs,
	}
	s.engine.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

func validateDeps(d Deps) error {
	switch {
	case d.Coordinator == nil:
		return fmt.Errorf("controlapi: Coordinator not set")
	case d.Bus == nil:
		return fmt.Errorf("controlapi: Bus not set")
	case d.Events == nil:
		return fmt.Errorf("controlapi: Events not set")
	case d.Buffer == nil:
		return fmt.Errorf("controlapi: Buffer not set")
	case d.Models == nil:
		return fmt.Errorf("controlapi: Models not set")
	case d.Pipeline == nil:
		return fmt.Errorf("controlapi: Pipeline not set")
	case d.Alerts == nil:
		return fmt.Errorf("controlapi: Alerts not set")
	case d.Incidents == nil:
		return fmt.Errorf("controlapi: Incidents not set")
	case d.Reports == nil:
		return fmt.Errorf("controlapi: Reports not set")
	case d.Docs == nil:
		return fmt.Errorf("controlapi: Docs not set")
	}
	return nil
}

// Engine exposes the underlying gin.Engine, primarily so tests can drive
// routes with httptest without going through a live listener.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/status", s.statusHandler)

	s.engine.GET("/events", s.eventsHandler)
	s.engine.POST("/events", s.publishLearningEventHandler)
	s.engine.GET("/events/daily_summary", s.dailySummaryHandler)
	s.engine.GET("/events/patterns", s.patternsHandler)
	s.engine.GET("/events/insights", s.insightsHandler)

	s.engine.GET("/models", s.modelsHandler)
	s.engine.GET("/models/:name/versions", s.modelVersionsHandler)
	s.engine.POST("/models/:name/improve", s.triggerImprovementHandler)
	s.engine.POST("/models/:name/rollback", s.triggerRollbackHandler)
	s.engine.GET("/improvement_tasks", s.improvementTasksHandler)

	s.engine.GET("/alerts", s.alertsHandler)
	s.engine.POST("/alerts/:id/acknowledge", s.acknowledgeAlertHandler)
	s.engine.GET("/incidents", s.incidentsHandler)
	s.engine.POST("/incidents/:id/resolve", s.resolveIncidentHandler)
	s.engine.POST("/health_check", s.triggerHealthCheckHandler)

	s.engine.GET("/reports", s.reportsHandler)
	s.engine.POST("/reports", s.generateReportHandler)
	s.engine.GET("/documentation", s.documentationHandler)

	s.engine.POST("/experiences", s.publishExperienceHandler)
	s.engine.POST("/buffers/flush", s.flushBuffersHandler)
}

// healthHandler handles GET /health: an aggregate view combining the
// component registry with live bus connectivity.
func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	busStatus := s.bus.Health(reqCtx)
	reg := s.coordinator.Registry()

	status := "healthy"
	if !reg.AllRunning() || !busStatus.KafkaConnected || !busStatus.AMQPConnected {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"version":    version.Full(),
		"uptime":     reg.Uptime().String(),
		"components": reg.Snapshot(),
		"bus":        busStatus,
	})
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
