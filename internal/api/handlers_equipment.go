package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"isp-billing-platform/internal/billing"
	"isp-billing-platform/internal/database"
	"isp-billing-platform/internal/validation"
)

// ============================================================================
// EQUIPMENT HANDLERS
// ============================================================================

type createEquipmentRequest struct {
	Name                    string    `json:"name" binding:"required"`
	PurchaseCost            float64   `json:"purchase_cost" binding:"required"`
	PurchaseDate            time.Time `json:"purchase_date" binding:"required"`
	MonthlyDepreciationRate float64   `json:"monthly_depreciation_rate"`
	DepreciationMethod      string    `json:"depreciation_method"`
}

// handleCreateEquipment registers a piece of equipment for a company
func (s *Server) handleCreateEquipment(c *gin.Context) {
	var in createEquipmentRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	if result := validation.ValidateEquipmentCost(in.PurchaseCost); !result.IsValid {
		badRequest(c, result.Errors[0])
		return
	}
	method := in.DepreciationMethod
	if method == "" {
		method = database.DepreciationStraightLine
	}
	if method != database.DepreciationStraightLine && method != database.DepreciationDecliningBalance {
		badRequest(c, "depreciation_method must be STRAIGHT_LINE or DECLINING_BALANCE")
		return
	}
	if in.MonthlyDepreciationRate < 0 || in.MonthlyDepreciationRate > 100 {
		badRequest(c, "monthly_depreciation_rate must be between 0 and 100")
		return
	}

	e := &database.Equipment{
		ID:                      uuid.New().String(),
		CompanyID:               c.Param("company_id"),
		Name:                    in.Name,
		PurchaseCost:            in.PurchaseCost,
		PurchaseDate:            in.PurchaseDate,
		MonthlyDepreciationRate: in.MonthlyDepreciationRate,
		DepreciationMethod:      method,
		Status:                  database.EquipmentStatusInService,
	}
	if err := s.repo.CreateEquipment(c.Request.Context(), e); err != nil {
		respondError(c, billing.NewPersistenceError("equipment create", err))
		return
	}
	createdResponse(c, e)
}

// handleListEquipment lists a company's equipment
func (s *Server) handleListEquipment(c *gin.Context) {
	fleet, err := s.repo.GetCompanyEquipment(c.Request.Context(), c.Param("company_id"), c.Query("status"))
	if err != nil {
		respondError(c, billing.NewPersistenceError("equipment lookup", err))
		return
	}
	successResponse(c, gin.H{"equipment": fleet})
}

type createMaintenanceRequest struct {
	Date        time.Time `json:"date" binding:"required"`
	Cost        float64   `json:"cost" binding:"required"`
	Description string    `json:"description"`
}

// handleCreateMaintenance appends a maintenance cost entry
func (s *Server) handleCreateMaintenance(c *gin.Context) {
	var in createMaintenanceRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	if result := validation.ValidateEquipmentCost(in.Cost); !result.IsValid {
		badRequest(c, result.Errors[0])
		return
	}

	equipmentID := c.Param("id")
	e, err := s.repo.GetEquipmentByID(c.Request.Context(), equipmentID)
	if err != nil {
		respondError(c, billing.NewPersistenceError("equipment lookup", err))
		return
	}
	if e == nil {
		respondError(c, billing.NewNotFoundError("equipment", equipmentID))
		return
	}

	m := &database.MaintenanceRecord{
		ID:          uuid.New().String(),
		EquipmentID: equipmentID,
		Date:        in.Date,
		Cost:        in.Cost,
		Description: in.Description,
	}
	if err := s.repo.CreateMaintenanceRecord(c.Request.Context(), m); err != nil {
		respondError(c, billing.NewPersistenceError("maintenance create", err))
		return
	}
	createdResponse(c, m)
}

// handleListMaintenance lists maintenance records, optionally date-bounded
func (s *Server) handleListMaintenance(c *gin.Context) {
	from, _, err := dateQuery(c, "from")
	if err != nil {
		badRequest(c, "invalid from (expected YYYY-MM-DD)")
		return
	}
	to, hasTo, err := dateQuery(c, "to")
	if err != nil {
		badRequest(c, "invalid to (expected YYYY-MM-DD)")
		return
	}
	if !hasTo {
		to = time.Now().UTC()
	}

	records, err := s.repo.GetMaintenanceRecords(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		respondError(c, billing.NewPersistenceError("maintenance lookup", err))
		return
	}
	successResponse(c, gin.H{"records": records})
}

// handleDepreciationSchedule returns per-month book values for equipment
func (s *Server) handleDepreciationSchedule(c *gin.Context) {
	equipmentID := c.Param("id")
	e, err := s.repo.GetEquipmentByID(c.Request.Context(), equipmentID)
	if err != nil {
		respondError(c, billing.NewPersistenceError("equipment lookup", err))
		return
	}
	if e == nil {
		respondError(c, billing.NewNotFoundError("equipment", equipmentID))
		return
	}

	months := intQuery(c, "months", 36)
	if months < 0 || months > 600 {
		badRequest(c, "months must be between 0 and 600")
		return
	}

	schedule := s.analyzer.DepreciationSchedule(e, months)
	successResponse(c, gin.H{"equipment_id": e.ID, "schedule": schedule})
}

// handleEquipmentROI computes the ROI view for equipment over a period
func (s *Server) handleEquipmentROI(c *gin.Context) {
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
	revenue := floatQuery(c, "revenue", 0)

	roi, err := s.reports.EquipmentROI(c.Request.Context(), c.Param("id"), revenue, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	successResponse(c, roi)
}
