package billing

import (
	"math"
	"time"
)

// Rounding modes for monetary values
const (
	RoundHalfUp   = "half_up"
	RoundHalfEven = "half_even"
)

// BillingConfig holds the engine's accounting thresholds. Injected once at
// construction; never mutated afterwards.
type BillingConfig struct {
	OwnershipTolerance        float64       // accepted deviation from 100%
	OwnershipWarningThreshold float64       // sum above this logs a warning
	RoundingMode              string        // half_up or half_even
	MinAnalysisMonths         int           // youngest period accepted, months back
	MaxAnalysisMonths         int           // oldest period accepted, months back
	ReportTimeout             time.Duration // deadline for bulk report queries
	EarningsCacheTTL          time.Duration // redis TTL for earnings reports
	ROICacheTTL               time.Duration // redis TTL for equipment ROI
}

// DefaultBillingConfig returns default engine configuration
func DefaultBillingConfig() *BillingConfig {
	return &BillingConfig{
		OwnershipTolerance:        0.01,
		OwnershipWarningThreshold: 95.0,
		RoundingMode:              RoundHalfUp,
		MinAnalysisMonths:         1,
		MaxAnalysisMonths:         60,
		ReportTimeout:             10 * time.Second,
		EarningsCacheTTL:          5 * time.Minute,
		ROICacheTTL:               15 * time.Minute,
	}
}

// Round rounds a monetary value to 2 decimal places using the configured
// mode. Applied once at the point of computation, never re-applied
// downstream.
func (c *BillingConfig) Round(value float64) float64 {
	switch c.RoundingMode {
	case RoundHalfEven:
		return math.RoundToEven(value*100) / 100
	default:
		return math.Floor(value*100+0.5) / 100
	}
}

// MonthlyProfitCalculation is the pure output of a profit computation,
// before any persistence.
type MonthlyProfitCalculation struct {
	CompanyID        string  `json:"company_id"`
	Month            string  `json:"month"`
	TotalRevenue     float64 `json:"total_revenue"`
	TotalExpenses    float64 `json:"total_expenses"`
	EquipmentCosts   float64 `json:"equipment_costs"`
	OperationalCosts float64 `json:"operational_costs"`
	NetProfit        float64 `json:"net_profit"`
}

// ProfitInput carries the collaborator-supplied figures for one period.
// Revenue and expenses come from the billing/payment subsystem; equipment
// costs are derived by the financial analyzer.
type ProfitInput struct {
	CompanyID        string  `json:"company_id"`
	Month            string  `json:"month"`
	TotalRevenue     float64 `json:"total_revenue"`
	TotalExpenses    float64 `json:"total_expenses"`
	OperationalCosts float64 `json:"operational_costs"`
}
