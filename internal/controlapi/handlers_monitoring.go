package controlapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/cladc/internal/cladcerr"
	"github.com/codeready-toolchain/cladc/internal/monitoring"
)

// alertsHandler handles GET /alerts.
func (s *Server) alertsHandler(c *gin.Context) {
	var q AlertsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, cladcerr.Wrap(cladcerr.Validation, "controlapi", "invalid query", err))
		return
	}
	c.JSON(http.StatusOK, AlertsResponse{Alerts: s.alerts.Snapshot(monitoring.AlertState(q.State))})
}

// acknowledgeAlertHandler handles POST /alerts/:id/acknowledge.
func (s *Server) acknowledgeAlertHandler(c *gin.Context) {
	id := c.Param("id")
	if !s.alerts.Acknowledge(id) {
		respondError(c, cladcerr.New(cladcerr.NotFound, "controlapi", "alert not found or not active: "+id))
		return
	}
	c.JSON(http.StatusOK, AckResponse{ID: id, Ok: true})
}

// incidentsHandler handles GET /incidents.
func (s *Server) incidentsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, IncidentsResponse{Incidents: s.incidents.Snapshot()})
}

// resolveIncidentHandler handles POST /incidents/:id/resolve.
func (s *Server) resolveIncidentHandler(c *gin.Context) {
	id := c.Param("id")
	var req ResolveIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, cladcerr.Wrap(cladcerr.Validation, "controlapi", "invalid body", err))
		return
	}
	if !s.incidents.ResolveIncident(id, req.Resolution) {
		respondError(c, cladcerr.New(cladcerr.NotFound, "controlapi", "incident not found or not open: "+id))
		return
	}
	c.JSON(http.StatusOK, AckResponse{ID: id, Ok: true})
}

// triggerHealthCheckHandler handles POST /health_check: an on-demand run
// of the same sweep the periodic health-check loop performs.
func (s *Server) triggerHealthCheckHandler(c *gin.Context) {
	s.coordinator.TriggerHealthCheck(c.Request.Context())
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}
