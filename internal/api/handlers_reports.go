package api

import (
	"github.com/gin-gonic/gin"
)

// ============================================================================
// REPORT HANDLERS
// ============================================================================

// handlePartnerEarnings returns a partner's earnings across distributions
func (s *Server) handlePartnerEarnings(c *gin.Context) {
	report, err := s.reports.PartnerEarnings(c.Request.Context(), c.Param("partner_id"), c.Query("from_month"), c.Query("to_month"))
	if err != nil {
		respondError(c, err)
		return
	}
	successResponse(c, report)
}

// handleEquipmentCostReport aggregates depreciation and maintenance across
// a company's fleet for a period
func (s *Server) handleEquipmentCostReport(c *gin.Context) {
	from, hasFrom, err := dateQuery(c, "from")
	if err != nil || !hasFrom {
		badRequest(c, "from is required (YYYY-MM-DD)")
		return
	}
	to, hasTo, err := dateQuery(c, "to")
	if err != nil || !hasTo {
		badRequest(c, "to is required (YYYY-MM-DD)")
		return
	}

	report, err := s.reports.CompanyEquipmentCosts(c.Request.Context(), c.Param("company_id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	successResponse(c, report)
}
