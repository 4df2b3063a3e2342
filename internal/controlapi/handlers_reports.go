package controlapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/cladc/internal/cladcerr"
	"github.com/codeready-toolchain/cladc/internal/reporting"
)

// reportsHandler handles GET /reports.
func (s *Server) reportsHandler(c *gin.Context) {
	var q ReportsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, cladcerr.Wrap(cladcerr.Validation, "controlapi", "invalid query", err))
		return
	}
	c.JSON(http.StatusOK, ReportsResponse{Reports: s.reports.History(reporting.ReportType(q.Type))})
}

// generateReportHandler handles POST /reports: an on-demand generation
// call, distinct from the scheduled report loop.
func (s *Server) generateReportHandler(c *gin.Context) {
	var req GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, cladcerr.Wrap(cladcerr.Validation, "controlapi", "invalid body", err))
		return
	}
	formats := req.Formats
	if len(formats) == 0 {
		formats = []reporting.Format{reporting.FormatJSON, reporting.FormatMarkdown}
	}
	report, err := s.reports.Generate(c.Request.Context(), req.Type, reporting.GenerateOptions{
		Angel: req.Angel, Domain: req.Domain, Formats: formats,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// documentationHandler handles GET /documentation.
func (s *Server) documentationHandler(c *gin.Context) {
	var q DocumentationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, cladcerr.Wrap(cladcerr.Validation, "controlapi", "invalid query", err))
		return
	}
	c.JSON(http.StatusOK, DocumentationResponse{Documents: s.docs.Snapshot(q.Kind)})
}
