package equipment

import (
	"math"
	"testing"
	"time"

	"isp-billing-platform/internal/database"
)

func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func testAnalyzer() *Analyzer {
	return NewAnalyzer(nil, nil)
}

func straightLineRouter() *database.Equipment {
	return &database.Equipment{
		ID:                      "eq1",
		CompanyID:               "c1",
		Name:                    "Core router",
		PurchaseCost:            1200,
		PurchaseDate:            time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		MonthlyDepreciationRate: 2.5,
		DepreciationMethod:      database.DepreciationStraightLine,
		Status:                  database.EquipmentStatusInService,
	}
}

// ============================================================================
// TEST: Depreciation schedules
// ============================================================================

func TestDepreciationSchedule_StraightLine(t *testing.T) {
	a := testAnalyzer()
	e := straightLineRouter()

	schedule := a.DepreciationSchedule(e, 12)

	if len(schedule) != 13 {
		t.Fatalf("Expected 13 points (months 0-12), got %d", len(schedule))
	}
	if schedule[0].Value != 1200 {
		t.Errorf("Expected book value at month 0 to equal purchase cost, got %.2f", schedule[0].Value)
	}
	// 1200 - 1200 * 0.025 * 12
	if !floatEquals(schedule[12].Value, 840.00, 0.001) {
		t.Errorf("Expected 840.00 at month 12, got %.2f", schedule[12].Value)
	}
	// Monotonically non-increasing
	for i := 1; i < len(schedule); i++ {
		if schedule[i].Value > schedule[i-1].Value {
			t.Errorf("Book value increased from month %d to %d", i-1, i)
		}
	}
}

func TestDepreciationSchedule_FloorsAtZero(t *testing.T) {
	a := testAnalyzer()
	e := straightLineRouter()

	// Full writedown after 40 months at 2.5%/month
	if got := a.BookValueAt(e, 40); got != 0 {
		t.Errorf("Expected 0 at month 40, got %.2f", got)
	}
	if got := a.BookValueAt(e, 100); got != 0 {
		t.Errorf("Expected 0 well past full writedown, got %.2f", got)
	}
}

func TestDepreciationSchedule_DecliningBalance(t *testing.T) {
	a := testAnalyzer()
	e := &database.Equipment{
		ID:                      "eq2",
		PurchaseCost:            1000,
		PurchaseDate:            time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		MonthlyDepreciationRate: 10,
		DepreciationMethod:      database.DepreciationDecliningBalance,
	}

	testCases := []struct {
		month    int
		expected float64
	}{
		{0, 1000},
		{1, 900},
		{2, 810},
		{3, 729},
	}
	for _, tc := range testCases {
		if got := a.BookValueAt(e, tc.month); !floatEquals(got, tc.expected, 0.001) {
			t.Errorf("Month %d: expected %.2f, got %.2f", tc.month, tc.expected, got)
		}
	}

	// Declining balance approaches zero but never goes negative
	if got := a.BookValueAt(e, 500); got < 0 {
		t.Errorf("Expected non-negative book value, got %.2f", got)
	}
}

func TestDepreciationSchedule_Restartable(t *testing.T) {
	a := testAnalyzer()
	e := straightLineRouter()

	first := a.DepreciationSchedule(e, 6)
	second := a.DepreciationSchedule(e, 6)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Schedule changed between computations at month %d", i)
		}
	}
}

// ============================================================================
// TEST: ROI classification boundaries
// ============================================================================

func TestClassifyPerformance_Boundaries(t *testing.T) {
	testCases := []struct {
		roi      float64
		expected PerformanceCategory
	}{
		{-50, PerformanceNegative},
		{-0.01, PerformanceNegative},
		{0, PerformanceNegative},
		{0.01, PerformancePoor},
		{5, PerformancePoor},
		{5.01, PerformanceAverage},
		{10, PerformanceAverage},
		{10.01, PerformanceGood},
		{20, PerformanceGood},
		{20.01, PerformanceExcellent},
		{150, PerformanceExcellent},
	}

	for _, tc := range testCases {
		if got := ClassifyPerformance(tc.roi); got != tc.expected {
			t.Errorf("ROI %.2f: expected %s, got %s", tc.roi, tc.expected, got)
		}
	}
}

// ============================================================================
// TEST: ROI computation
// ============================================================================

func TestComputeEquipmentROI(t *testing.T) {
	a := testAnalyzer()
	e := straightLineRouter()

	records := []database.MaintenanceRecord{
		{EquipmentID: "eq1", Date: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), Cost: 40},
		{EquipmentID: "eq1", Date: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), Cost: 99}, // before period
	}

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	roi := a.ComputeEquipmentROI(e, records, 500, start, end)

	// Depreciation over 12 months (360) plus in-period maintenance (40)
	if !floatEquals(roi.TotalCost, 400, 0.001) {
		t.Errorf("Expected total cost 400.00, got %.2f", roi.TotalCost)
	}
	if !floatEquals(roi.NetProfit, 100, 0.001) {
		t.Errorf("Expected net profit 100.00, got %.2f", roi.NetProfit)
	}
	if !floatEquals(roi.ROIPercentage, 25, 0.001) {
		t.Errorf("Expected ROI 25%%, got %.2f", roi.ROIPercentage)
	}
	if roi.Performance != PerformanceExcellent {
		t.Errorf("Expected EXCELLENT, got %s", roi.Performance)
	}
	if roi.Indeterminate {
		t.Error("Expected a determinate ROI")
	}
	if roi.PaybackMonths == nil {
		t.Fatal("Expected payback months to be set")
	}
	// ceil(400 / (100/12))
	if *roi.PaybackMonths != 48 {
		t.Errorf("Expected payback of 48 months, got %d", *roi.PaybackMonths)
	}
}

func TestComputeEquipmentROI_Indeterminate(t *testing.T) {
	a := testAnalyzer()
	e := straightLineRouter()

	// Period entirely before purchase: no depreciation, no maintenance
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	roi := a.ComputeEquipmentROI(e, nil, 100, start, end)

	if !roi.Indeterminate {
		t.Error("Expected Indeterminate when total cost is zero")
	}
	if roi.ROIPercentage != 0 {
		t.Errorf("Expected ROI 0 when indeterminate, got %.2f", roi.ROIPercentage)
	}
	if roi.PaybackMonths != nil {
		t.Error("Expected no payback months when total cost is zero")
	}
}

func TestComputeEquipmentROI_NegativeProfit(t *testing.T) {
	a := testAnalyzer()
	e := straightLineRouter()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	roi := a.ComputeEquipmentROI(e, nil, 100, start, end)

	// Revenue 100 against 360 depreciation
	if !floatEquals(roi.NetProfit, -260, 0.001) {
		t.Errorf("Expected net profit -260.00, got %.2f", roi.NetProfit)
	}
	if roi.Performance != PerformanceNegative {
		t.Errorf("Expected NEGATIVE, got %s", roi.Performance)
	}
	if roi.PaybackMonths != nil {
		t.Error("Expected no payback months for a loss-making asset")
	}
}
