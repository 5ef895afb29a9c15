// Package validation provides stateless rule checks over ownership, dates
// and amounts. Results are structured rather than raised so callers decide
// whether to block or merely warn.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"isp-billing-platform/internal/database"
)

// Ownership thresholds. These are the defaults; callers holding a
// BillingConfig pass its values through the ...Within variants instead.
const (
	// OwnershipTolerance is the accepted deviation from a fully allocated 100%
	OwnershipTolerance = 0.01

	// OwnershipWarningThreshold is the active sum above which additions warn
	OwnershipWarningThreshold = 95.0

	// OwnershipWarningGap is the gap below which a shortfall is advisory
	// rather than severe
	OwnershipWarningGap = 5.0

	// MinOwnershipPercentage is the smallest stake a partnership may hold
	MinOwnershipPercentage = 0.01

	// MaxEquipmentCost bounds a single equipment or maintenance cost entry
	MaxEquipmentCost = 10_000_000.0
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ValidationResult holds the outcome of a rule check
type ValidationResult struct {
	IsValid         bool               `json:"is_valid"`
	Errors          []string           `json:"errors"`
	Warnings        []string           `json:"warnings"`
	CorrectedValues map[string]float64 `json:"corrected_values,omitempty"`
}

func newResult() *ValidationResult {
	return &ValidationResult{
		IsValid:  true,
		Errors:   []string{},
		Warnings: []string{},
	}
}

func (r *ValidationResult) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.IsValid = false
}

func (r *ValidationResult) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) setCorrected(key string, value float64) {
	if r.CorrectedValues == nil {
		r.CorrectedValues = make(map[string]float64)
	}
	r.CorrectedValues[key] = value
}

// ValidateTotalOwnership checks that active partnership percentages sum to
// exactly 100 within the default tolerance. Inactive partnerships are
// ignored. A gap under OwnershipWarningGap additionally produces an
// adjustment suggestion so UIs can treat it as advisory.
func ValidateTotalOwnership(partnerships []database.Partnership) *ValidationResult {
	return ValidateTotalOwnershipWithin(partnerships, OwnershipTolerance)
}

// ValidateTotalOwnershipWithin is ValidateTotalOwnership with the tolerance
// taken from the caller's configuration.
func ValidateTotalOwnershipWithin(partnerships []database.Partnership, tolerance float64) *ValidationResult {
	result := newResult()

	var sum float64
	for _, p := range partnerships {
		if p.IsActive {
			sum += p.OwnershipPercentage
		}
	}

	gap := 100.0 - sum
	if math.Abs(gap) <= tolerance {
		return result
	}

	if gap > 0 {
		result.addError("Ownership percentages sum to %.1f%%. Missing %.1f%%.", sum, gap)
		result.setCorrected("missing_percentage", gap)
	} else {
		result.addError("Ownership percentages sum to %.1f%%. Exceeds 100%% by %.1f%%.", sum, -gap)
		result.setCorrected("excess_percentage", -gap)
	}

	if math.Abs(gap) < OwnershipWarningGap {
		result.addWarning("Ownership is within %.1f%% of full allocation; consider adjusting an existing stake.", OwnershipWarningGap)
	}

	return result
}

// ValidateOwnershipPercentage checks a single stake's range
func ValidateOwnershipPercentage(percentage float64) *ValidationResult {
	result := newResult()

	if percentage < MinOwnershipPercentage || percentage > 100 {
		result.addError("Ownership percentage must be between %.2f%% and 100%%, got %.2f%%",
			MinOwnershipPercentage, percentage)
	}

	return result
}

// ValidateOwnershipAddition checks whether adding a stake on top of the
// current active sum stays within 100%, using the default thresholds. Sums
// above the warning threshold produce a warning, not a failure.
func ValidateOwnershipAddition(currentSum, candidate float64) *ValidationResult {
	return ValidateOwnershipAdditionWithin(currentSum, candidate, OwnershipTolerance, OwnershipWarningThreshold)
}

// ValidateOwnershipAdditionWithin is ValidateOwnershipAddition with the
// tolerance and warning threshold taken from the caller's configuration.
func ValidateOwnershipAdditionWithin(currentSum, candidate, tolerance, warningThreshold float64) *ValidationResult {
	result := newResult()

	newSum := currentSum + candidate
	if newSum > 100+tolerance {
		result.addError("Adding %.1f%% would exceed 100%% ownership (current: %.1f%%)", candidate, currentSum)
		result.setCorrected("available_percentage", 100-currentSum)
		return result
	}

	if newSum > warningThreshold {
		result.addWarning("Ownership will reach %.1f%% of 100%%", newSum)
	}

	return result
}

// ValidateMonth checks the YYYY-MM period format
func ValidateMonth(month string) *ValidationResult {
	result := newResult()

	if !monthPattern.MatchString(month) {
		result.addError("Invalid month format: %q (expected YYYY-MM)", month)
		return result
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		result.addError("Invalid month value: %q", month)
	}

	return result
}

// ValidateDateRange checks ordering of a date range
func ValidateDateRange(start, end time.Time) *ValidationResult {
	result := newResult()

	if start.After(end) {
		result.addError("Start date %s is after end date %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	return result
}

// ValidateEquipmentCost checks positivity and range of a cost value
func ValidateEquipmentCost(cost float64) *ValidationResult {
	result := newResult()

	if cost <= 0 {
		result.addError("Cost must be positive, got %.2f", cost)
	} else if cost > MaxEquipmentCost {
		result.addError("Cost %.2f exceeds the maximum of %.2f", cost, MaxEquipmentCost)
	}

	return result
}

// ValidateDistributionState checks the distribution is still CALCULATED
func ValidateDistributionState(d *database.ProfitDistribution) *ValidationResult {
	result := newResult()

	if d.Status != database.DistributionStatusCalculated {
		result.addError("Distribution is %s; only %s distributions can be distributed",
			d.Status, database.DistributionStatusCalculated)
	}

	return result
}

// ValidateDistributableProfit checks there is profit to distribute
func ValidateDistributableProfit(netProfit float64) *ValidationResult {
	result := newResult()

	if netProfit <= 0 {
		result.addError("Net profit %.2f is not positive; nothing to distribute", netProfit)
	}

	return result
}

// ValidateActivePartners checks at least one active partnership exists
func ValidateActivePartners(partnerships []database.Partnership) *ValidationResult {
	result := newResult()

	active := 0
	for _, p := range partnerships {
		if p.IsActive {
			active++
		}
	}
	if active == 0 {
		result.addError("Company has no active partnerships")
	}

	return result
}
