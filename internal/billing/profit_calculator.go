package billing

import (
	"context"
	"errors"
	"log"
	"time"

	"isp-billing-platform/internal/database"
	"isp-billing-platform/internal/events"
	"isp-billing-platform/internal/validation"

	"github.com/google/uuid"
)

// EquipmentCostSource supplies the per-month equipment cost rollup
// (depreciation plus maintenance) for a company's in-service fleet.
type EquipmentCostSource interface {
	MonthlyEquipmentCosts(ctx context.Context, companyID, month string) (float64, error)
}

// Store is the persistence surface the calculator uses. Implemented by
// *database.Repository.
type Store interface {
	GetDistributionByMonth(ctx context.Context, companyID, month string) (*database.ProfitDistribution, error)
	CreateDistribution(ctx context.Context, d *database.ProfitDistribution) error
	GetDistributionByID(ctx context.Context, id string) (*database.ProfitDistribution, error)
}

// ProfitCalculator computes a company's monthly net profit and records it
// as a CALCULATED distribution.
type ProfitCalculator struct {
	repo           Store
	config         *BillingConfig
	equipmentCosts EquipmentCostSource
	eventBus       *events.EventBus
	now            func() time.Time
}

// NewProfitCalculator creates a new profit calculator
func NewProfitCalculator(repo Store, config *BillingConfig, equipmentCosts EquipmentCostSource, eventBus *events.EventBus) *ProfitCalculator {
	if config == nil {
		config = DefaultBillingConfig()
	}
	return &ProfitCalculator{
		repo:           repo,
		config:         config,
		equipmentCosts: equipmentCosts,
		eventBus:       eventBus,
		now:            time.Now,
	}
}

// CalculateMonthlyProfit computes the period's net profit from the supplied
// figures. Pure and idempotent: identical inputs always yield an identical
// result and nothing is written.
//
// netProfit = totalRevenue - (totalExpenses + equipmentCosts + operationalCosts)
//
// Every monetary value is rounded exactly once here.
func (p *ProfitCalculator) CalculateMonthlyProfit(companyID, month string, revenue, expenses, equipmentCosts, operationalCosts float64) (*MonthlyProfitCalculation, error) {
	if err := p.validatePeriod(month); err != nil {
		return nil, err
	}

	revenue = p.config.Round(revenue)
	expenses = p.config.Round(expenses)
	equipmentCosts = p.config.Round(equipmentCosts)
	operationalCosts = p.config.Round(operationalCosts)
	netProfit := p.config.Round(revenue - (expenses + equipmentCosts + operationalCosts))

	return &MonthlyProfitCalculation{
		CompanyID:        companyID,
		Month:            month,
		TotalRevenue:     revenue,
		TotalExpenses:    expenses,
		EquipmentCosts:   equipmentCosts,
		OperationalCosts: operationalCosts,
		NetProfit:        netProfit,
	}, nil
}

// validatePeriod checks the month format and the analysis window
func (p *ProfitCalculator) validatePeriod(month string) error {
	if result := validation.ValidateMonth(month); !result.IsValid {
		return NewBusinessRuleError(CodeInvalidPeriod, "%s", result.Errors[0])
	}

	period, _ := time.Parse("2006-01", month)
	now := p.now().UTC()
	monthsBack := (now.Year()-period.Year())*12 + int(now.Month()) - int(period.Month())

	if monthsBack < p.config.MinAnalysisMonths {
		return NewBusinessRuleError(CodeInvalidPeriod,
			"Period %s is not complete yet; only periods at least %d month(s) old can be analyzed",
			month, p.config.MinAnalysisMonths)
	}
	if monthsBack > p.config.MaxAnalysisMonths {
		return NewBusinessRuleError(CodeInvalidPeriod,
			"Period %s is older than the %d-month analysis window", month, p.config.MaxAnalysisMonths)
	}

	return nil
}

// RecordMonthlyProfit derives the period's equipment costs, computes net
// profit and persists a CALCULATED distribution. A period that already has
// a distribution fails with DUPLICATE_PERIOD and leaves state unchanged;
// the unique (company_id, month) index closes the race between concurrent
// callers, so exactly one row can ever exist.
func (p *ProfitCalculator) RecordMonthlyProfit(ctx context.Context, in ProfitInput) (*database.ProfitDistribution, error) {
	existing, err := p.repo.GetDistributionByMonth(ctx, in.CompanyID, in.Month)
	if err != nil {
		return nil, NewPersistenceError("distribution lookup", err)
	}
	if existing != nil {
		return nil, NewBusinessRuleError(CodeDuplicatePeriod,
			"Profit for %s is already calculated (distribution %s)", in.Month, existing.ID)
	}

	var equipmentCosts float64
	if p.equipmentCosts != nil {
		equipmentCosts, err = p.equipmentCosts.MonthlyEquipmentCosts(ctx, in.CompanyID, in.Month)
		if err != nil {
			return nil, err
		}
	}

	calc, err := p.CalculateMonthlyProfit(in.CompanyID, in.Month, in.TotalRevenue, in.TotalExpenses, equipmentCosts, in.OperationalCosts)
	if err != nil {
		return nil, err
	}

	distribution := &database.ProfitDistribution{
		ID:               uuid.New().String(),
		CompanyID:        calc.CompanyID,
		Month:            calc.Month,
		TotalRevenue:     calc.TotalRevenue,
		TotalExpenses:    calc.TotalExpenses,
		EquipmentCosts:   calc.EquipmentCosts,
		OperationalCosts: calc.OperationalCosts,
		NetProfit:        calc.NetProfit,
		Status:           database.DistributionStatusCalculated,
	}

	if err := p.repo.CreateDistribution(ctx, distribution); err != nil {
		if errors.Is(err, database.ErrDuplicateDistribution) {
			// Lost a concurrent race for the same period
			return nil, NewBusinessRuleError(CodeDuplicatePeriod,
				"Profit for %s is already calculated", in.Month)
		}
		return nil, NewPersistenceError("distribution create", err)
	}

	log.Printf("[BILLING] Calculated profit for company %s month %s: net %.2f",
		in.CompanyID, in.Month, calc.NetProfit)

	if p.eventBus != nil {
		p.eventBus.PublishProfitCalculated(in.CompanyID, distribution.ID, in.Month, calc.NetProfit)
	}

	return distribution, nil
}

// GetDistribution returns a distribution by ID, or NOT_FOUND
func (p *ProfitCalculator) GetDistribution(ctx context.Context, id string) (*database.ProfitDistribution, error) {
	d, err := p.repo.GetDistributionByID(ctx, id)
	if err != nil {
		return nil, NewPersistenceError("distribution lookup", err)
	}
	if d == nil {
		return nil, NewNotFoundError("distribution", id)
	}
	return d, nil
}
