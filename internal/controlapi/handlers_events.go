package controlapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/cladc/internal/cladcerr"
	"github.com/codeready-toolchain/cladc/internal/eventstore"
)

// eventsHandler handles GET /events: the queryable learning-event log,
// exposed read-only through the Control API.
func (s *Server) eventsHandler(c *gin.Context) {
	var q EventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, cladcerr.Wrap(cladcerr.Validation, "controlapi", "invalid query", err))
		return
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	events := s.events.Query(eventstore.QueryFilter{Angel: q.Angel, Domain: q.Domain, Limit: limit})
	c.JSON(http.StatusOK, EventsResponse{Events: events})
}

// dailySummaryHandler handles GET /events/daily_summary.
func (s *Server) dailySummaryHandler(c *gin.Context) {
	var q DailySummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, cladcerr.Wrap(cladcerr.Validation, "controlapi", "invalid query", err))
		return
	}
	c.JSON(http.StatusOK, s.events.DailySummary(q.Angel, q.Domain))
}

// patternsHandler handles GET /events/patterns.
func (s *Server) patternsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, PatternsResponse{Patterns: s.events.PatternAnalysis()})
}

// insightsHandler handles GET /events/insights: an analytics rollup over
// the requested period.
func (s *Server) insightsHandler(c *gin.Context) {
	var q InsightsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, cladcerr.Wrap(cladcerr.Validation, "controlapi", "invalid query", err))
		return
	}
	period := eventstore.AnalyticsPeriod(q.Period)
	if period == "" {
		period = eventstore.Period24h
	}
	c.JSON(http.StatusOK, s.events.AnalyticsSnapshot(period))
}

// publishLearningEventHandler handles POST /events: lets external callers
// feed a learning event in directly, the same path omni.learning.events
// drives through the Coordinator's dispatcher.
func (s *Server) publishLearningEventHandler(c *gin.Context) {
	var req PublishLearningEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, cladcerr.Wrap(cladcerr.Validation, "controlapi", "invalid body", err))
		return
	}
	evt, err := s.events.Append(eventstore.LearningEvent{
		Angel:   req.Angel,
		Domain:  req.Domain,
		Input:   req.Input,
		Output:  eventstore.Output{Success: req.Output.Success, Payload: req.Output.Payload},
		Metrics: req.Metrics,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, evt)
}
