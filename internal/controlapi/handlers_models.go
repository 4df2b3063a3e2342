package controlapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/cladc/internal/cladcerr"
	"github.com/codeready-toolchain/cladc/internal/improvement"
)

// modelsHandler handles GET /models: the registry's full model list.
func (s *Server) modelsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, ModelsResponse{Models: s.models.List()})
}

// modelVersionsHandler handles GET /models/:name/versions.
func (s *Server) modelVersionsHandler(c *gin.Context) {
	name := c.Param("name")
	m, err := s.models.Lookup(name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelVersionsResponse{
		Name:               m.Name,
		CurrentVersion:     m.Version,
		DeploymentHistory:  m.DeploymentHistory,
		PerformanceHistory: m.PerformanceHistory,
	})
}

// improvementTasksHandler handles GET /improvement_tasks.
func (s *Server) improvementTasksHandler(c *gin.Context) {
	c.JSON(http.StatusOK, ImprovementTasksResponse{Tasks: s.pipeline.Tasks()})
}

// triggerImprovementHandler handles POST /models/:name/improve: a manual
// trigger_improvement request.
func (s *Server) triggerImprovementHandler(c *gin.Context) {
	name := c.Param("name")
	if _, err := s.models.Lookup(name); err != nil {
		respondError(c, err)
		return
	}

	var req TriggerImprovementRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, cladcerr.Wrap(cladcerr.Validation, "controlapi", "invalid body", err))
			return
		}
	}

	task, err := s.pipeline.EnqueueTask(c.Request.Context(), name, improvement.TriggerManual, improvement.Options{Rigorous: req.Rigorous})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, TaskAcceptedResponse{TaskID: task.ID, Status: task.Status})
}

// triggerRollbackHandler handles POST /models/:name/rollback.
func (s *Server) triggerRollbackHandler(c *gin.Context) {
	name := c.Param("name")
	m, err := s.models.Rollback(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RollbackResponse{Model: m})
}
