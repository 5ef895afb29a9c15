// Package equipment computes financial analytics for network equipment:
// maintenance rollups, depreciation schedules and return on investment.
package equipment

import (
	"context"
	"math"
	"time"

	"isp-billing-platform/internal/billing"
	"isp-billing-platform/internal/database"
	"isp-billing-platform/internal/validation"
)

// PerformanceCategory buckets an ROI percentage
type PerformanceCategory string

const (
	PerformanceExcellent PerformanceCategory = "EXCELLENT"
	PerformanceGood      PerformanceCategory = "GOOD"
	PerformanceAverage   PerformanceCategory = "AVERAGE"
	PerformancePoor      PerformanceCategory = "POOR"
	PerformanceNegative  PerformanceCategory = "NEGATIVE"
)

// BookValue is one point of a depreciation schedule
type BookValue struct {
	Month int     `json:"month"`
	Value float64 `json:"value"`
}

// EquipmentROI is the derived return-on-investment view for one piece of
// equipment over a period. Recomputed on demand, never persisted.
type EquipmentROI struct {
	EquipmentID   string              `json:"equipment_id"`
	PeriodStart   time.Time           `json:"period_start"`
	PeriodEnd     time.Time           `json:"period_end"`
	TotalCost     float64             `json:"total_cost"`
	TotalRevenue  float64             `json:"total_revenue"`
	NetProfit     float64             `json:"net_profit"`
	ROIPercentage float64             `json:"roi_percentage"`
	Indeterminate bool                `json:"indeterminate"` // totalCost was zero
	PaybackMonths *int                `json:"payback_months,omitempty"`
	Performance   PerformanceCategory `json:"performance"`
}

// Analyzer computes equipment financial analytics. All computations are
// pure and safe for concurrent use; only the aggregation helpers touch
// storage.
type Analyzer struct {
	repo   *database.Repository
	config *billing.BillingConfig
}

// NewAnalyzer creates a new equipment analyzer
func NewAnalyzer(repo *database.Repository, config *billing.BillingConfig) *Analyzer {
	if config == nil {
		config = billing.DefaultBillingConfig()
	}
	return &Analyzer{repo: repo, config: config}
}

// ClassifyPerformance partitions the ROI axis into five categories.
// Boundaries are half-open: a value lands in exactly one bucket.
func ClassifyPerformance(roi float64) PerformanceCategory {
	switch {
	case roi > 20:
		return PerformanceExcellent
	case roi > 10:
		return PerformanceGood
	case roi > 5:
		return PerformanceAverage
	case roi > 0:
		return PerformancePoor
	default:
		return PerformanceNegative
	}
}

// DepreciationSchedule produces book values for months 0..months.
// bookValue(0) is always the purchase cost and values never go negative.
func (a *Analyzer) DepreciationSchedule(e *database.Equipment, months int) []BookValue {
	if months < 0 {
		months = 0
	}

	schedule := make([]BookValue, 0, months+1)
	for t := 0; t <= months; t++ {
		schedule = append(schedule, BookValue{
			Month: t,
			Value: a.config.Round(a.bookValueAt(e, t)),
		})
	}
	return schedule
}

// BookValueAt returns the rounded book value t months after purchase
func (a *Analyzer) BookValueAt(e *database.Equipment, t int) float64 {
	return a.config.Round(a.bookValueAt(e, t))
}

func (a *Analyzer) bookValueAt(e *database.Equipment, t int) float64 {
	if t <= 0 {
		return e.PurchaseCost
	}

	rate := e.MonthlyDepreciationRate / 100
	switch e.DepreciationMethod {
	case database.DepreciationDecliningBalance:
		factor := 1 - rate
		if factor < 0 {
			factor = 0
		}
		return e.PurchaseCost * math.Pow(factor, float64(t))
	default: // STRAIGHT_LINE
		value := e.PurchaseCost - e.PurchaseCost*rate*float64(t)
		if value < 0 {
			return 0
		}
		return value
	}
}

// AggregateMaintenanceCosts sums maintenance costs for one equipment over a
// date range
func (a *Analyzer) AggregateMaintenanceCosts(ctx context.Context, equipmentID string, from, to time.Time) (float64, error) {
	if result := validation.ValidateDateRange(from, to); !result.IsValid {
		return 0, billing.NewValidationError("%s", result.Errors[0])
	}

	e, err := a.repo.GetEquipmentByID(ctx, equipmentID)
	if err != nil {
		return 0, billing.NewPersistenceError("equipment lookup", err)
	}
	if e == nil {
		return 0, billing.NewNotFoundError("equipment", equipmentID)
	}

	total, err := a.repo.SumMaintenanceCosts(ctx, equipmentID, from, to)
	if err != nil {
		return 0, billing.NewPersistenceError("maintenance aggregation", err)
	}
	return a.config.Round(total), nil
}

// AggregateCompanyMaintenance rolls up maintenance costs per equipment
// across a company's fleet, paginated for large fleets
func (a *Analyzer) AggregateCompanyMaintenance(ctx context.Context, companyID string, from, to time.Time, page, limit int) ([]database.MaintenanceTotal, error) {
	if result := validation.ValidateDateRange(from, to); !result.IsValid {
		return nil, billing.NewValidationError("%s", result.Errors[0])
	}

	totals, err := a.repo.SumMaintenanceByEquipment(ctx, companyID, from, to, page, limit)
	if err != nil {
		return nil, billing.NewPersistenceError("maintenance aggregation", err)
	}
	for i := range totals {
		totals[i].TotalCost = a.config.Round(totals[i].TotalCost)
	}
	return totals, nil
}

// ComputeEquipmentROI derives ROI for a period from the equipment record,
// its maintenance history and the revenue attributed to it.
//
// totalCost is depreciation over the period plus maintenance in the period.
// When totalCost is zero the ROI is flagged Indeterminate instead of being
// silently reported as zero.
func (a *Analyzer) ComputeEquipmentROI(e *database.Equipment, records []database.MaintenanceRecord, revenueAttributed float64, periodStart, periodEnd time.Time) *EquipmentROI {
	depreciation := a.depreciationOverPeriod(e, periodStart, periodEnd)

	var maintenance float64
	for _, m := range records {
		if !m.Date.Before(periodStart) && !m.Date.After(periodEnd) {
			maintenance += m.Cost
		}
	}

	totalCost := a.config.Round(depreciation + maintenance)
	netProfit := a.config.Round(revenueAttributed - totalCost)

	roi := &EquipmentROI{
		EquipmentID:  e.ID,
		PeriodStart:  periodStart,
		PeriodEnd:    periodEnd,
		TotalCost:    totalCost,
		TotalRevenue: a.config.Round(revenueAttributed),
		NetProfit:    netProfit,
	}

	if totalCost > 0 {
		roi.ROIPercentage = a.config.Round(netProfit / totalCost * 100)
	} else {
		roi.Indeterminate = true
	}
	roi.Performance = ClassifyPerformance(roi.ROIPercentage)

	periodMonths := monthsBetween(periodStart, periodEnd)
	if periodMonths < 1 {
		periodMonths = 1
	}
	monthlyNetProfit := netProfit / float64(periodMonths)
	if monthlyNetProfit > 0 && totalCost > 0 {
		payback := int(math.Ceil(totalCost / monthlyNetProfit))
		roi.PaybackMonths = &payback
	}

	return roi
}

// DepreciationOverPeriod is the rounded book value consumed between the
// period's start and end
func (a *Analyzer) DepreciationOverPeriod(e *database.Equipment, start, end time.Time) float64 {
	return a.config.Round(a.depreciationOverPeriod(e, start, end))
}

// depreciationOverPeriod is the book value consumed between the period's
// start and end, measured in whole months since purchase
func (a *Analyzer) depreciationOverPeriod(e *database.Equipment, start, end time.Time) float64 {
	if end.Before(e.PurchaseDate) {
		return 0
	}

	fromMonths := monthsBetween(e.PurchaseDate, start)
	if fromMonths < 0 {
		fromMonths = 0
	}
	toMonths := monthsBetween(e.PurchaseDate, end)
	if toMonths < fromMonths {
		toMonths = fromMonths
	}

	depreciation := a.bookValueAt(e, fromMonths) - a.bookValueAt(e, toMonths)
	if depreciation < 0 {
		return 0
	}
	return depreciation
}

// MonthlyEquipmentCosts implements billing.EquipmentCostSource: the
// depreciation plus maintenance cost of a company's in-service fleet for
// one month.
func (a *Analyzer) MonthlyEquipmentCosts(ctx context.Context, companyID, month string) (float64, error) {
	period, err := time.Parse("2006-01", month)
	if err != nil {
		return 0, billing.NewBusinessRuleError(billing.CodeInvalidPeriod, "Invalid month format: %q (expected YYYY-MM)", month)
	}
	monthStart := period
	monthEnd := period.AddDate(0, 1, 0).Add(-time.Second)

	fleet, err := a.repo.GetCompanyEquipment(ctx, companyID, database.EquipmentStatusInService)
	if err != nil {
		return 0, billing.NewPersistenceError("equipment lookup", err)
	}

	var total float64
	for i := range fleet {
		e := &fleet[i]
		if e.PurchaseDate.After(monthEnd) {
			continue
		}

		t := monthsBetween(e.PurchaseDate, monthStart)
		if t < 0 {
			t = 0
		}
		total += a.bookValueAt(e, t) - a.bookValueAt(e, t+1)

		maintenance, err := a.repo.SumMaintenanceCosts(ctx, e.ID, monthStart, monthEnd)
		if err != nil {
			return 0, billing.NewPersistenceError("maintenance aggregation", err)
		}
		total += maintenance
	}

	return a.config.Round(total), nil
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}
