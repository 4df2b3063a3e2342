package controlapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// statusHandler handles GET /status: the aggregate component registry
// view, a basic control-plane read.
func (s *Server) statusHandler(c *gin.Context) {
	reg := s.coordinator.Registry()
	c.JSON(http.StatusOK, StatusResponse{
		Components: reg.Snapshot(),
		Uptime:     reg.Uptime(),
		AllRunning: reg.AllRunning(),
	})
}
