package reporting

import (
	"math"
	"testing"
	"time"

	"isp-billing-platform/internal/database"
)

func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func testService() *Service {
	s := NewService(nil, nil, nil, nil)
	s.now = func() time.Time {
		return time.Date(2025, 11, 15, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func earningRow(month string, amount float64, status string) database.PartnerEarningRow {
	return database.PartnerEarningRow{
		Share: database.PartnerShare{
			PartnerID:   "p1",
			ShareAmount: amount,
			Status:      status,
		},
		Month:     month,
		CompanyID: "c1",
	}
}

// ============================================================================
// TEST: Earnings aggregation
// ============================================================================

func TestBuildEarningsReport_MonthlyBuckets(t *testing.T) {
	s := testService()

	rows := []database.PartnerEarningRow{
		earningRow("2025-08", 600, database.ShareStatusPaid),
		earningRow("2025-09", 450, database.ShareStatusPaid),
		earningRow("2025-09", 150, database.ShareStatusPending),
		earningRow("2025-10", 700.50, database.ShareStatusPending),
	}

	report := s.buildEarningsReport("p1", "2025-08", "2025-10", rows)

	if len(report.Monthly) != 3 {
		t.Fatalf("Expected 3 monthly buckets, got %d", len(report.Monthly))
	}
	if report.Monthly[1].Month != "2025-09" {
		t.Errorf("Expected second bucket 2025-09, got %s", report.Monthly[1].Month)
	}
	if !floatEquals(report.Monthly[1].Earned, 600, 0.001) {
		t.Errorf("Expected 600.00 earned in 2025-09, got %.2f", report.Monthly[1].Earned)
	}
	if !floatEquals(report.Monthly[1].Paid, 450, 0.001) {
		t.Errorf("Expected 450.00 paid in 2025-09, got %.2f", report.Monthly[1].Paid)
	}
	if report.Monthly[1].ShareCount != 2 {
		t.Errorf("Expected 2 shares in 2025-09, got %d", report.Monthly[1].ShareCount)
	}

	if !floatEquals(report.TotalEarned, 1900.50, 0.001) {
		t.Errorf("Expected total earned 1900.50, got %.2f", report.TotalEarned)
	}
	if !floatEquals(report.TotalPaid, 1050, 0.001) {
		t.Errorf("Expected total paid 1050.00, got %.2f", report.TotalPaid)
	}
	if !floatEquals(report.TotalPending, 850.50, 0.001) {
		t.Errorf("Expected total pending 850.50, got %.2f", report.TotalPending)
	}
	if report.ShareCount != 4 {
		t.Errorf("Expected 4 shares, got %d", report.ShareCount)
	}
}

func TestBuildEarningsReport_Empty(t *testing.T) {
	s := testService()

	report := s.buildEarningsReport("p1", "", "", nil)

	if report.TotalEarned != 0 || report.TotalPending != 0 {
		t.Errorf("Expected zero totals, got earned %.2f pending %.2f",
			report.TotalEarned, report.TotalPending)
	}
	if len(report.Monthly) != 0 {
		t.Errorf("Expected no monthly buckets, got %d", len(report.Monthly))
	}
	if report.GeneratedAt.IsZero() {
		t.Error("Expected GeneratedAt to be set")
	}
}
