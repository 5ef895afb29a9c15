package ownership

import (
	"context"
	"testing"

	"isp-billing-platform/internal/billing"
)

// ============================================================================
// TEST: Input validation before any storage access
// ============================================================================

func TestAddPartnership_RejectsBadPercentage(t *testing.T) {
	ledger := NewLedger(nil, nil, nil, nil)

	testCases := []struct {
		name       string
		percentage float64
	}{
		{"zero", 0},
		{"negative", -10},
		{"below minimum", 0.001},
		{"above 100", 150},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.AddPartnership(context.Background(), CreatePartnershipInput{
				CompanyID:           "c1",
				PartnerID:           "p1",
				OwnershipPercentage: tc.percentage,
			})
			if err == nil {
				t.Fatalf("Expected error for percentage %.3f", tc.percentage)
			}
			if !billing.IsCode(err, billing.CodeValidation) {
				t.Errorf("Expected VALIDATION_ERROR, got %v", billing.CodeOf(err))
			}
		})
	}
}

func TestAddPartnership_RequiresPartnerIdentity(t *testing.T) {
	ledger := NewLedger(nil, nil, nil, nil)

	_, err := ledger.AddPartnership(context.Background(), CreatePartnershipInput{
		CompanyID:           "c1",
		OwnershipPercentage: 50,
	})
	if err == nil {
		t.Fatal("Expected error when neither partner_id nor partner_email is set")
	}
	if !billing.IsCode(err, billing.CodeValidation) {
		t.Errorf("Expected VALIDATION_ERROR, got %v", billing.CodeOf(err))
	}
}

// ============================================================================
// TEST: Per-company lock striping
// ============================================================================

func TestCompanyLock_Striping(t *testing.T) {
	ledger := NewLedger(nil, nil, nil, nil)

	a1 := ledger.companyLock("company-a")
	a2 := ledger.companyLock("company-a")
	b := ledger.companyLock("company-b")

	if a1 != a2 {
		t.Error("Expected the same lock for repeated lookups of one company")
	}
	if a1 == b {
		t.Error("Expected different companies to get different locks")
	}
}
