package api

import (
	"github.com/gin-gonic/gin"

	"isp-billing-platform/internal/ownership"
)

// ============================================================================
// PARTNERSHIP HANDLERS
// ============================================================================

// handleCreatePartnership adds a partner to a company
func (s *Server) handleCreatePartnership(c *gin.Context) {
	var in ownership.CreatePartnershipInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	in.CompanyID = c.Param("company_id")

	partnership, err := s.ledger.AddPartnership(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	createdResponse(c, partnership)
}

// handleListPartnerships lists a company's partnerships
func (s *Server) handleListPartnerships(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	partnerships, err := s.ledger.ListPartnerships(c.Request.Context(), c.Param("company_id"), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	successResponse(c, gin.H{"partnerships": partnerships})
}

// handleGetPartnership returns a single partnership
func (s *Server) handleGetPartnership(c *gin.Context) {
	partnership, err := s.ledger.GetPartnership(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	successResponse(c, partnership)
}

// handleUpdatePartnership updates percentage, role or status
func (s *Server) handleUpdatePartnership(c *gin.Context) {
	var in ownership.UpdatePartnershipInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	partnership, err := s.ledger.UpdatePartnership(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	successResponse(c, partnership)
}

// handleDeactivatePartnership retires a partnership while keeping history
func (s *Server) handleDeactivatePartnership(c *gin.Context) {
	partnership, err := s.ledger.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	successResponse(c, partnership)
}

// handleValidateOwnership runs the advisory ownership-sum check
func (s *Server) handleValidateOwnership(c *gin.Context) {
	result, err := s.ledger.ValidateCompanyOwnership(c.Request.Context(), c.Param("company_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	successResponse(c, result)
}
