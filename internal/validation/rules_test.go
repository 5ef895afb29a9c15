package validation

import (
	"math"
	"testing"
	"time"

	"isp-billing-platform/internal/database"
)

// floatEquals compares two floats with tolerance
func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func activePartnerships(percentages ...float64) []database.Partnership {
	partnerships := make([]database.Partnership, len(percentages))
	for i, p := range percentages {
		partnerships[i] = database.Partnership{
			ID:                  "p" + string(rune('1'+i)),
			CompanyID:           "c1",
			OwnershipPercentage: p,
			IsActive:            true,
		}
	}
	return partnerships
}

// ============================================================================
// TEST: Total ownership sum validation
// ============================================================================

func TestValidateTotalOwnership_FullyAllocated(t *testing.T) {
	testCases := []struct {
		name        string
		percentages []float64
	}{
		{"two partners at 60/40", []float64{60, 40}},
		{"three partners", []float64{50, 30, 20}},
		{"single full owner", []float64{100}},
		{"within tolerance above", []float64{60, 40.009}},
		{"within tolerance below", []float64{60, 39.991}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateTotalOwnership(activePartnerships(tc.percentages...))
			if !result.IsValid {
				t.Errorf("Expected valid, got errors: %v", result.Errors)
			}
			if len(result.Errors) != 0 {
				t.Errorf("Expected no errors, got %v", result.Errors)
			}
		})
	}
}

func TestValidateTotalOwnership_MissingPercentage(t *testing.T) {
	result := ValidateTotalOwnership(activePartnerships(60, 25))

	if result.IsValid {
		t.Fatal("Expected invalid result for 85% allocation")
	}

	expected := "Ownership percentages sum to 85.0%. Missing 15.0%."
	if len(result.Errors) == 0 || result.Errors[0] != expected {
		t.Errorf("Expected error %q, got %v", expected, result.Errors)
	}

	missing, ok := result.CorrectedValues["missing_percentage"]
	if !ok {
		t.Fatal("Expected missing_percentage in corrected values")
	}
	if !floatEquals(missing, 15.0, 0.0001) {
		t.Errorf("Expected missing_percentage 15.0, got %.4f", missing)
	}
}

func TestValidateTotalOwnership_ExcessPercentage(t *testing.T) {
	result := ValidateTotalOwnership(activePartnerships(70, 40))

	if result.IsValid {
		t.Fatal("Expected invalid result for 110% allocation")
	}

	excess, ok := result.CorrectedValues["excess_percentage"]
	if !ok {
		t.Fatal("Expected excess_percentage in corrected values")
	}
	if !floatEquals(excess, 10.0, 0.0001) {
		t.Errorf("Expected excess_percentage 10.0, got %.4f", excess)
	}
}

func TestValidateTotalOwnership_SmallGapWarns(t *testing.T) {
	// 98% allocated: invalid, but the 2% gap is advisory
	result := ValidateTotalOwnership(activePartnerships(60, 38))

	if result.IsValid {
		t.Fatal("Expected invalid result for 98% allocation")
	}
	if len(result.Warnings) == 0 {
		t.Error("Expected adjustment warning for a gap under 5%")
	}
}

func TestValidateTotalOwnership_LargeGapNoWarning(t *testing.T) {
	result := ValidateTotalOwnership(activePartnerships(60, 25))

	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warning for a 15%% gap, got %v", result.Warnings)
	}
}

func TestValidateTotalOwnership_IgnoresInactive(t *testing.T) {
	partnerships := activePartnerships(60, 40)
	partnerships = append(partnerships, database.Partnership{
		ID:                  "p3",
		CompanyID:           "c1",
		OwnershipPercentage: 50,
		IsActive:            false,
	})

	result := ValidateTotalOwnership(partnerships)
	if !result.IsValid {
		t.Errorf("Expected inactive partnership to be ignored, got errors: %v", result.Errors)
	}
}

// ============================================================================
// TEST: Single stake and addition checks
// ============================================================================

func TestValidateOwnershipPercentage(t *testing.T) {
	testCases := []struct {
		name       string
		percentage float64
		valid      bool
	}{
		{"minimum stake", 0.01, true},
		{"full ownership", 100, true},
		{"typical stake", 33.33, true},
		{"zero", 0, false},
		{"below minimum", 0.005, false},
		{"negative", -5, false},
		{"above 100", 100.5, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateOwnershipPercentage(tc.percentage)
			if result.IsValid != tc.valid {
				t.Errorf("Expected valid=%v for %.3f, got %v (errors: %v)",
					tc.valid, tc.percentage, result.IsValid, result.Errors)
			}
		})
	}
}

func TestValidateOwnershipAddition_Exceeds(t *testing.T) {
	result := ValidateOwnershipAddition(85, 30)

	if result.IsValid {
		t.Fatal("Expected invalid result when addition exceeds 100%")
	}

	expected := "Adding 30.0% would exceed 100% ownership (current: 85.0%)"
	if len(result.Errors) == 0 || result.Errors[0] != expected {
		t.Errorf("Expected error %q, got %v", expected, result.Errors)
	}

	if available := result.CorrectedValues["available_percentage"]; !floatEquals(available, 15, 0.0001) {
		t.Errorf("Expected available_percentage 15, got %.4f", available)
	}
}

func TestValidateOwnershipAddition_WarnsAbove95(t *testing.T) {
	result := ValidateOwnershipAddition(90, 8)

	if !result.IsValid {
		t.Fatalf("Expected valid result, got errors: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("Expected warning when sum passes 95%")
	}
}

func TestValidateOwnershipAddition_ExactHundred(t *testing.T) {
	result := ValidateOwnershipAddition(60, 40)

	if !result.IsValid {
		t.Fatalf("Expected exact 100%% to be valid, got errors: %v", result.Errors)
	}
}

// ============================================================================
// TEST: Configured thresholds
// ============================================================================

func TestValidateTotalOwnershipWithin_Tolerance(t *testing.T) {
	// 99.5% allocated: fails the default tolerance, passes a configured 1%
	partnerships := activePartnerships(60, 39.5)

	if result := ValidateTotalOwnershipWithin(partnerships, OwnershipTolerance); result.IsValid {
		t.Error("Expected 99.5% to fail under the default tolerance")
	}
	if result := ValidateTotalOwnershipWithin(partnerships, 1.0); !result.IsValid {
		t.Errorf("Expected 99.5%% to pass with a 1%% tolerance, got errors: %v", result.Errors)
	}
}

func TestValidateOwnershipAdditionWithin_Tolerance(t *testing.T) {
	// Sum of 100.5% exceeds the default tolerance but not a configured 1%
	if result := ValidateOwnershipAdditionWithin(60, 40.5, OwnershipTolerance, OwnershipWarningThreshold); result.IsValid {
		t.Error("Expected 100.5% to fail under the default tolerance")
	}
	if result := ValidateOwnershipAdditionWithin(60, 40.5, 1.0, OwnershipWarningThreshold); !result.IsValid {
		t.Errorf("Expected 100.5%% to pass with a 1%% tolerance, got errors: %v", result.Errors)
	}
}

func TestValidateOwnershipAdditionWithin_WarningThreshold(t *testing.T) {
	// A 92% sum warns only when the configured threshold drops below it
	result := ValidateOwnershipAdditionWithin(60, 32, OwnershipTolerance, OwnershipWarningThreshold)
	if !result.IsValid || len(result.Warnings) != 0 {
		t.Errorf("Expected 92%% under the default threshold to pass quietly, got %v / %v",
			result.Errors, result.Warnings)
	}

	result = ValidateOwnershipAdditionWithin(60, 32, OwnershipTolerance, 90)
	if !result.IsValid {
		t.Fatalf("Expected valid result, got errors: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("Expected warning when the configured threshold is 90%")
	}
}

// ============================================================================
// TEST: Month, date range and cost checks
// ============================================================================

func TestValidateMonth(t *testing.T) {
	testCases := []struct {
		month string
		valid bool
	}{
		{"2025-10", true},
		{"2024-01", true},
		{"2025-13", false},
		{"2025-00", false},
		{"2025/10", false},
		{"25-10", false},
		{"2025-1", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.month, func(t *testing.T) {
			result := ValidateMonth(tc.month)
			if result.IsValid != tc.valid {
				t.Errorf("Expected valid=%v for %q, got %v", tc.valid, tc.month, result.IsValid)
			}
		})
	}
}

func TestValidateDateRange(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	if result := ValidateDateRange(start, end); !result.IsValid {
		t.Errorf("Expected ordered range to be valid, got %v", result.Errors)
	}
	if result := ValidateDateRange(end, start); result.IsValid {
		t.Error("Expected reversed range to be invalid")
	}
	if result := ValidateDateRange(start, start); !result.IsValid {
		t.Errorf("Expected equal dates to be valid, got %v", result.Errors)
	}
}

func TestValidateEquipmentCost(t *testing.T) {
	testCases := []struct {
		name  string
		cost  float64
		valid bool
	}{
		{"typical cost", 1200.50, true},
		{"zero", 0, false},
		{"negative", -100, false},
		{"at maximum", MaxEquipmentCost, true},
		{"above maximum", MaxEquipmentCost + 1, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateEquipmentCost(tc.cost)
			if result.IsValid != tc.valid {
				t.Errorf("Expected valid=%v for %.2f, got %v", tc.valid, tc.cost, result.IsValid)
			}
		})
	}
}

// ============================================================================
// TEST: Distribution rules
// ============================================================================

func TestValidateDistributionState(t *testing.T) {
	testCases := []struct {
		status string
		valid  bool
	}{
		{database.DistributionStatusCalculated, true},
		{database.DistributionStatusDistributed, false},
		{database.DistributionStatusPaid, false},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			result := ValidateDistributionState(&database.ProfitDistribution{Status: tc.status})
			if result.IsValid != tc.valid {
				t.Errorf("Expected valid=%v for %s, got %v (errors: %v)",
					tc.valid, tc.status, result.IsValid, result.Errors)
			}
		})
	}
}

func TestValidateDistributableProfit(t *testing.T) {
	if result := ValidateDistributableProfit(1000); !result.IsValid {
		t.Errorf("Expected positive profit to be valid, got %v", result.Errors)
	}
	if result := ValidateDistributableProfit(0); result.IsValid {
		t.Error("Expected zero profit to be invalid")
	}
	if result := ValidateDistributableProfit(-50); result.IsValid {
		t.Error("Expected negative profit to be invalid")
	}
}

func TestValidateActivePartners(t *testing.T) {
	if result := ValidateActivePartners(activePartnerships(60, 40)); !result.IsValid {
		t.Errorf("Expected active partnerships to be valid, got %v", result.Errors)
	}
	if result := ValidateActivePartners(nil); result.IsValid {
		t.Error("Expected no partnerships to be invalid")
	}

	inactive := activePartnerships(100)
	inactive[0].IsActive = false
	if result := ValidateActivePartners(inactive); result.IsValid {
		t.Error("Expected inactive-only partnerships to be invalid")
	}
}
