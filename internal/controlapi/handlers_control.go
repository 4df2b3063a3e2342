package controlapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/cladc/internal/capability"
	"github.com/codeready-toolchain/cladc/internal/cladcerr"
)

// publishExperienceHandler handles POST /experiences: the same
// enqueue-into-buffer path the bus-driven omni.rl.experiences channel
// exercises, opened up for direct callers.
func (s *Server) publishExperienceHandler(c *gin.Context) {
	var req PublishExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, cladcerr.Wrap(cladcerr.Validation, "controlapi", "invalid body", err))
		return
	}
	s.buffer.Enqueue(capability.Experience{
		Algorithm: req.Algorithm,
		State:     req.State,
		Action:    req.Action,
		Reward:    req.Reward,
		NextState: req.NextState,
		Timestamp: time.Now().UTC(),
	})
	c.Status(http.StatusAccepted)
}

// flushBuffersHandler handles POST /buffers/flush: an on-demand
// flush_all() call, triggering the periodic flush early.
func (s *Server) flushBuffersHandler(c *gin.Context) {
	depths := s.buffer.Depths()
	s.buffer.FlushAll(c.Request.Context())
	c.JSON(http.StatusOK, FlushResponse{Depths: depths})
}
