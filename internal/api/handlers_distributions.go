package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"isp-billing-platform/internal/billing"
	"isp-billing-platform/internal/database"
	"isp-billing-platform/internal/distribution"
)

// ============================================================================
// PROFIT AND DISTRIBUTION HANDLERS
// ============================================================================

// handleRecordProfit records one month's profit for a company, creating a
// CALCULATED distribution
func (s *Server) handleRecordProfit(c *gin.Context) {
	var in billing.ProfitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	in.CompanyID = c.Param("company_id")

	d, err := s.calculator.RecordMonthlyProfit(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	createdResponse(c, d)
}

// handleListDistributions lists a company's distributions with filters
func (s *Server) handleListDistributions(c *gin.Context) {
	filter := database.DistributionFilter{
		Status:    c.Query("status"),
		FromMonth: c.Query("from_month"),
		ToMonth:   c.Query("to_month"),
		Page:      intQuery(c, "page", 1),
		Limit:     intQuery(c, "limit", 50),
	}

	distributions, err := s.repo.ListDistributions(c.Request.Context(), c.Param("company_id"), filter)
	if err != nil {
		respondError(c, billing.NewPersistenceError("distribution lookup", err))
		return
	}
	successResponse(c, gin.H{"distributions": distributions})
}

// handleGetDistribution returns a distribution with its shares
func (s *Server) handleGetDistribution(c *gin.Context) {
	d, shares, err := s.engine.GetDistributionDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	successResponse(c, gin.H{"distribution": d, "shares": shares})
}

// handleDistributeProfit moves a CALCULATED distribution to DISTRIBUTED,
// creating one PENDING share per active partnership
func (s *Server) handleDistributeProfit(c *gin.Context) {
	var body struct {
		DistributionDate *time.Time `json:"distribution_date,omitempty"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	d, shares, err := s.engine.DistributeProfit(c.Request.Context(), c.Param("id"), body.DistributionDate)
	if err != nil {
		respondError(c, err)
		return
	}
	successResponse(c, gin.H{"distribution": d, "shares": shares})
}

// handleListShares lists partner shares with filters
func (s *Server) handleListShares(c *gin.Context) {
	filter := database.ShareFilter{
		PartnerID: c.Query("partner_id"),
		Status:    c.Query("status"),
		Page:      intQuery(c, "page", 1),
		Limit:     intQuery(c, "limit", 50),
	}

	if from, ok, err := dateQuery(c, "from_date"); err != nil {
		badRequest(c, "invalid from_date (expected YYYY-MM-DD)")
		return
	} else if ok {
		filter.FromDate = &from
	}
	if to, ok, err := dateQuery(c, "to_date"); err != nil {
		badRequest(c, "invalid to_date (expected YYYY-MM-DD)")
		return
	} else if ok {
		filter.ToDate = &to
	}
	if raw := c.Query("min_amount"); raw != "" {
		v := floatQuery(c, "min_amount", 0)
		filter.MinAmount = &v
	}
	if raw := c.Query("max_amount"); raw != "" {
		v := floatQuery(c, "max_amount", 0)
		filter.MaxAmount = &v
	}

	shares, err := s.repo.ListShares(c.Request.Context(), filter)
	if err != nil {
		respondError(c, billing.NewPersistenceError("share lookup", err))
		return
	}
	successResponse(c, gin.H{"shares": shares})
}

// handleMarkSharePaid settles a pending share
func (s *Server) handleMarkSharePaid(c *gin.Context) {
	var in distribution.MarkSharePaidInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	share, err := s.engine.MarkSharePaid(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	successResponse(c, share)
}

// handleExportDistributions streams a company's distributions as CSV
func (s *Server) handleExportDistributions(c *gin.Context) {
	filter := database.DistributionFilter{
		Status:    c.Query("status"),
		FromMonth: c.Query("from_month"),
		ToMonth:   c.Query("to_month"),
		Page:      intQuery(c, "page", 1),
		Limit:     intQuery(c, "limit", 1000),
	}

	data, err := s.reports.ExportDistributionsCSV(c.Request.Context(), c.Param("company_id"), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("distributions_%s.csv", c.Param("company_id"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// handleExportShares streams a distribution's shares as CSV
func (s *Server) handleExportShares(c *gin.Context) {
	data, err := s.reports.ExportSharesCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("shares_%s.csv", c.Param("id"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}
