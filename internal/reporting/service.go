// Package reporting builds derived financial reports over distributions,
// shares and equipment. Reports are cached in Redis with short TTLs and
// recomputed from Postgres on a miss.
package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"isp-billing-platform/internal/billing"
	"isp-billing-platform/internal/cache"
	"isp-billing-platform/internal/database"
	"isp-billing-platform/internal/equipment"
	"isp-billing-platform/internal/events"
	"isp-billing-platform/internal/validation"
)

// MonthlyEarning is one month's slice of a partner earnings report
type MonthlyEarning struct {
	Month      string  `json:"month"`
	Earned     float64 `json:"earned"`
	Paid       float64 `json:"paid"`
	ShareCount int     `json:"share_count"`
}

// PartnerEarningsReport aggregates a partner's shares across companies and
// months
type PartnerEarningsReport struct {
	PartnerID    string           `json:"partner_id"`
	FromMonth    string           `json:"from_month,omitempty"`
	ToMonth      string           `json:"to_month,omitempty"`
	TotalEarned  float64          `json:"total_earned"`
	TotalPaid    float64          `json:"total_paid"`
	TotalPending float64          `json:"total_pending"`
	ShareCount   int              `json:"share_count"`
	Monthly      []MonthlyEarning `json:"monthly"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// EquipmentCostLine is one equipment's row in a company cost report
type EquipmentCostLine struct {
	EquipmentID  string  `json:"equipment_id"`
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	Depreciation float64 `json:"depreciation"`
	Maintenance  float64 `json:"maintenance"`
	Total        float64 `json:"total"`
}

// CompanyEquipmentCostReport sums equipment costs across a company's fleet
// for a period
type CompanyEquipmentCostReport struct {
	CompanyID         string              `json:"company_id"`
	From              time.Time           `json:"from"`
	To                time.Time           `json:"to"`
	Lines             []EquipmentCostLine `json:"lines"`
	TotalDepreciation float64             `json:"total_depreciation"`
	TotalMaintenance  float64             `json:"total_maintenance"`
	GrandTotal        float64             `json:"grand_total"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// Service builds reports. Safe for concurrent use.
type Service struct {
	repo     *database.Repository
	analyzer *equipment.Analyzer
	cache    *cache.CacheService
	config   *billing.BillingConfig
	now      func() time.Time
}

// NewService creates a reporting service. The cache is optional; with a nil
// cache every report is computed fresh.
func NewService(repo *database.Repository, analyzer *equipment.Analyzer, cacheService *cache.CacheService, config *billing.BillingConfig) *Service {
	if config == nil {
		config = billing.DefaultBillingConfig()
	}
	return &Service{
		repo:     repo,
		analyzer: analyzer,
		cache:    cacheService,
		config:   config,
		now:      time.Now,
	}
}

// PartnerEarnings builds a partner's earnings report, bounded to an optional
// month range. Computation is bounded by the configured report timeout.
func (s *Service) PartnerEarnings(ctx context.Context, partnerID, fromMonth, toMonth string) (*PartnerEarningsReport, error) {
	for _, month := range []string{fromMonth, toMonth} {
		if month == "" {
			continue
		}
		if result := validation.ValidateMonth(month); !result.IsValid {
			return nil, billing.NewBusinessRuleError(billing.CodeInvalidPeriod, "%s", result.Errors[0])
		}
	}

	key := cache.PartnerEarningsKey(partnerID, fromMonth, toMonth)
	if s.cache != nil {
		var cached PartnerEarningsReport
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !cache.IsMiss(err) {
			log.Printf("[REPORTING] Cache read failed for %s: %v", key, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ReportTimeout)
	defer cancel()

	rows, err := s.repo.GetPartnerEarnings(ctx, partnerID, fromMonth, toMonth)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, billing.NewCalculationTimeoutError("partner earnings report")
		}
		return nil, billing.NewPersistenceError("earnings lookup", err)
	}

	report := s.buildEarningsReport(partnerID, fromMonth, toMonth, rows)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, report, s.config.EarningsCacheTTL); err != nil {
			log.Printf("[REPORTING] Failed to cache earnings report for %s: %v", partnerID, err)
		}
	}

	return report, nil
}

// buildEarningsReport aggregates earnings rows into monthly buckets. Rows
// must arrive ordered by month so buckets build up in order.
func (s *Service) buildEarningsReport(partnerID, fromMonth, toMonth string, rows []database.PartnerEarningRow) *PartnerEarningsReport {
	report := &PartnerEarningsReport{
		PartnerID:   partnerID,
		FromMonth:   fromMonth,
		ToMonth:     toMonth,
		Monthly:     []MonthlyEarning{},
		GeneratedAt: s.now().UTC(),
	}

	var current *MonthlyEarning
	for _, row := range rows {
		if current == nil || current.Month != row.Month {
			report.Monthly = append(report.Monthly, MonthlyEarning{Month: row.Month})
			current = &report.Monthly[len(report.Monthly)-1]
		}
		current.Earned += row.Share.ShareAmount
		current.ShareCount++
		report.TotalEarned += row.Share.ShareAmount
		report.ShareCount++
		if row.Share.Status == database.ShareStatusPaid {
			current.Paid += row.Share.ShareAmount
			report.TotalPaid += row.Share.ShareAmount
		}
	}
	for i := range report.Monthly {
		report.Monthly[i].Earned = s.config.Round(report.Monthly[i].Earned)
		report.Monthly[i].Paid = s.config.Round(report.Monthly[i].Paid)
	}
	report.TotalEarned = s.config.Round(report.TotalEarned)
	report.TotalPaid = s.config.Round(report.TotalPaid)
	report.TotalPending = s.config.Round(report.TotalEarned - report.TotalPaid)

	return report
}

// CompanyEquipmentCosts builds a per-equipment cost breakdown for a company
// over a date range
func (s *Service) CompanyEquipmentCosts(ctx context.Context, companyID string, from, to time.Time) (*CompanyEquipmentCostReport, error) {
	if result := validation.ValidateDateRange(from, to); !result.IsValid {
		return nil, billing.NewValidationError("%s", result.Errors[0])
	}

	key := cache.CompanyEquipmentCostKey(companyID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if s.cache != nil {
		var cached CompanyEquipmentCostReport
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !cache.IsMiss(err) {
			log.Printf("[REPORTING] Cache read failed for %s: %v", key, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ReportTimeout)
	defer cancel()

	fleet, err := s.repo.GetCompanyEquipment(ctx, companyID, "")
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, billing.NewCalculationTimeoutError("equipment cost report")
		}
		return nil, billing.NewPersistenceError("equipment lookup", err)
	}

	report := &CompanyEquipmentCostReport{
		CompanyID:   companyID,
		From:        from,
		To:          to,
		Lines:       []EquipmentCostLine{},
		GeneratedAt: s.now().UTC(),
	}

	for i := range fleet {
		e := &fleet[i]
		depreciation := s.analyzer.DepreciationOverPeriod(e, from, to)

		maintenance, err := s.repo.SumMaintenanceCosts(ctx, e.ID, from, to)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, billing.NewCalculationTimeoutError("equipment cost report")
			}
			return nil, billing.NewPersistenceError("maintenance aggregation", err)
		}
		maintenance = s.config.Round(maintenance)

		report.Lines = append(report.Lines, EquipmentCostLine{
			EquipmentID:  e.ID,
			Name:         e.Name,
			Status:       e.Status,
			Depreciation: depreciation,
			Maintenance:  maintenance,
			Total:        s.config.Round(depreciation + maintenance),
		})
		report.TotalDepreciation += depreciation
		report.TotalMaintenance += maintenance
	}
	report.TotalDepreciation = s.config.Round(report.TotalDepreciation)
	report.TotalMaintenance = s.config.Round(report.TotalMaintenance)
	report.GrandTotal = s.config.Round(report.TotalDepreciation + report.TotalMaintenance)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, report, s.config.EarningsCacheTTL); err != nil {
			log.Printf("[REPORTING] Failed to cache equipment cost report for %s: %v", companyID, err)
		}
	}

	return report, nil
}

// EquipmentROI builds (and caches) the ROI view for one piece of equipment
func (s *Service) EquipmentROI(ctx context.Context, equipmentID string, revenueAttributed float64, from, to time.Time) (*equipment.EquipmentROI, error) {
	if result := validation.ValidateDateRange(from, to); !result.IsValid {
		return nil, billing.NewValidationError("%s", result.Errors[0])
	}

	params := fmt.Sprintf("%s:%s:%.2f", from.Format("2006-01-02"), to.Format("2006-01-02"), revenueAttributed)
	key := cache.EquipmentROIKey(equipmentID, params)
	if s.cache != nil {
		var cached equipment.EquipmentROI
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !cache.IsMiss(err) {
			log.Printf("[REPORTING] Cache read failed for %s: %v", key, err)
		}
	}

	e, err := s.repo.GetEquipmentByID(ctx, equipmentID)
	if err != nil {
		return nil, billing.NewPersistenceError("equipment lookup", err)
	}
	if e == nil {
		return nil, billing.NewNotFoundError("equipment", equipmentID)
	}

	records, err := s.repo.GetMaintenanceRecords(ctx, equipmentID, from, to)
	if err != nil {
		return nil, billing.NewPersistenceError("maintenance lookup", err)
	}

	roi := s.analyzer.ComputeEquipmentROI(e, records, revenueAttributed, from, to)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, roi, s.config.ROICacheTTL); err != nil {
			log.Printf("[REPORTING] Failed to cache ROI for %s: %v", equipmentID, err)
		}
	}

	return roi, nil
}

// ExportDistributionsCSV renders a company's distributions as CSV
func (s *Service) ExportDistributionsCSV(ctx context.Context, companyID string, filter database.DistributionFilter) ([]byte, error) {
	distributions, err := s.repo.ListDistributions(ctx, companyID, filter)
	if err != nil {
		return nil, billing.NewPersistenceError("distribution lookup", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"id", "company_id", "month", "total_revenue", "total_expenses",
		"equipment_costs", "operational_costs", "net_profit", "status", "distribution_date"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, d := range distributions {
		distributionDate := ""
		if d.DistributionDate != nil {
			distributionDate = d.DistributionDate.Format(time.RFC3339)
		}
		record := []string{
			d.ID, d.CompanyID, d.Month,
			strconv.FormatFloat(d.TotalRevenue, 'f', 2, 64),
			strconv.FormatFloat(d.TotalExpenses, 'f', 2, 64),
			strconv.FormatFloat(d.EquipmentCosts, 'f', 2, 64),
			strconv.FormatFloat(d.OperationalCosts, 'f', 2, 64),
			strconv.FormatFloat(d.NetProfit, 'f', 2, 64),
			d.Status, distributionDate,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportSharesCSV renders a distribution's partner shares as CSV
func (s *Service) ExportSharesCSV(ctx context.Context, distributionID string) ([]byte, error) {
	d, err := s.repo.GetDistributionByID(ctx, distributionID)
	if err != nil {
		return nil, billing.NewPersistenceError("distribution lookup", err)
	}
	if d == nil {
		return nil, billing.NewNotFoundError("distribution", distributionID)
	}

	shares, err := s.repo.GetSharesByDistribution(ctx, distributionID)
	if err != nil {
		return nil, billing.NewPersistenceError("share lookup", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"id", "distribution_id", "partner_id", "share_amount",
		"percentage", "status", "paid_at", "payment_method", "payment_reference"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, share := range shares {
		paidAt := ""
		if share.PaidAt != nil {
			paidAt = share.PaidAt.Format(time.RFC3339)
		}
		method := ""
		if share.PaymentMethod != nil {
			method = *share.PaymentMethod
		}
		reference := ""
		if share.PaymentReference != nil {
			reference = *share.PaymentReference
		}
		record := []string{
			share.ID, share.DistributionID, share.PartnerID,
			strconv.FormatFloat(share.ShareAmount, 'f', 2, 64),
			strconv.FormatFloat(share.Percentage, 'f', 2, 64),
			share.Status, paidAt, method, reference,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// HandleEvent invalidates caches affected by a business event. Registered
// on the event bus at startup.
func (s *Service) HandleEvent(e events.Event) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch e.Type {
	case events.EventPaymentReceived:
		if partnerID, ok := e.Data["partner_id"].(string); ok {
			if err := s.cache.InvalidatePartnerEarnings(ctx, partnerID); err != nil {
				log.Printf("[REPORTING] Failed to invalidate earnings cache for %s: %v", partnerID, err)
			}
		}
	case events.EventDistributionAvailable, events.EventDistributionPaid:
		if companyID, ok := e.Data["company_id"].(string); ok {
			if err := s.cache.InvalidateCompanyReports(ctx, companyID); err != nil {
				log.Printf("[REPORTING] Failed to invalidate company reports for %s: %v", companyID, err)
			}
		}
	}
}
