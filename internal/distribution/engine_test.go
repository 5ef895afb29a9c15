package distribution

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"isp-billing-platform/internal/billing"
	"isp-billing-platform/internal/database"
)

func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func partnerships(percentages ...float64) []database.Partnership {
	result := make([]database.Partnership, 0, len(percentages))
	for i, pct := range percentages {
		result = append(result, database.Partnership{
			ID:                  string(rune('a' + i)),
			CompanyID:           "c1",
			PartnerID:           string(rune('A' + i)),
			OwnershipPercentage: pct,
			IsActive:            true,
		})
	}
	return result
}

func distribution(netProfit float64) *database.ProfitDistribution {
	return &database.ProfitDistribution{
		ID:        "d1",
		CompanyID: "c1",
		Month:     "2025-10",
		NetProfit: netProfit,
		Status:    database.DistributionStatusCalculated,
	}
}

// ============================================================================
// TEST: Proportional allocation
// ============================================================================

func TestAllocateShares_Proportional(t *testing.T) {
	shares := AllocateShares(distribution(1000), partnerships(60, 40))

	if len(shares) != 2 {
		t.Fatalf("Expected 2 shares, got %d", len(shares))
	}
	if !floatEquals(shares[0].ShareAmount, 600, 0.001) {
		t.Errorf("Expected 600.00 for the 60%% partner, got %.2f", shares[0].ShareAmount)
	}
	if !floatEquals(shares[1].ShareAmount, 400, 0.001) {
		t.Errorf("Expected 400.00 for the 40%% partner, got %.2f", shares[1].ShareAmount)
	}
	for _, s := range shares {
		if s.Status != database.ShareStatusPending {
			t.Errorf("Expected PENDING, got %s", s.Status)
		}
		if s.DistributionID != "d1" {
			t.Errorf("Expected distribution d1, got %s", s.DistributionID)
		}
	}
}

func TestAllocateShares_SnapshotsPercentage(t *testing.T) {
	shares := AllocateShares(distribution(500), partnerships(70, 30))

	if shares[0].Percentage != 70 || shares[1].Percentage != 30 {
		t.Errorf("Expected percentage snapshots 70/30, got %.2f/%.2f",
			shares[0].Percentage, shares[1].Percentage)
	}
}

// ============================================================================
// TEST: Exact-sum invariant over awkward splits
// ============================================================================

func TestAllocateShares_SumsExactly(t *testing.T) {
	testCases := []struct {
		name        string
		netProfit   float64
		percentages []float64
	}{
		{"even split", 1000, []float64{50, 50}},
		{"thirds", 100, []float64{33.33, 33.33, 33.34}},
		{"thirds of an odd cent total", 100.01, []float64{33.33, 33.33, 33.34}},
		{"one cent across three", 0.01, []float64{33.33, 33.33, 33.34}},
		{"seven uneven partners", 12345.67, []float64{19.5, 18.5, 17, 15, 12.5, 10, 7.5}},
		{"tiny stakes", 999.99, []float64{99.98, 0.01, 0.01}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			shares := AllocateShares(distribution(tc.netProfit), partnerships(tc.percentages...))

			var totalCents int64
			for _, s := range shares {
				totalCents += int64(math.Round(s.ShareAmount * 100))
				if s.ShareAmount < 0 {
					t.Errorf("Negative share amount %.2f", s.ShareAmount)
				}
			}
			expectedCents := int64(math.Round(tc.netProfit * 100))
			if totalCents != expectedCents {
				t.Errorf("Shares sum to %d cents, expected %d", totalCents, expectedCents)
			}
		})
	}
}

func TestAllocateShares_ResidualGoesToLargestRemainder(t *testing.T) {
	// 100.00 split three ways at 33.33/33.33/33.34: raw cents are
	// 3333/3333/3334 exactly, so no residual and amounts match percentages
	shares := AllocateShares(distribution(100), partnerships(33.33, 33.33, 33.34))

	if !floatEquals(shares[0].ShareAmount, 33.34, 0.001) {
		t.Errorf("Expected 33.34 for the largest stake, got %.2f", shares[0].ShareAmount)
	}

	// 0.01 split three ways: only one partner can get the cent, and the
	// ordering must be deterministic (largest stake wins the tie)
	shares = AllocateShares(distribution(0.01), partnerships(33.33, 33.33, 33.34))

	if !floatEquals(shares[0].ShareAmount, 0.01, 0.0001) {
		t.Errorf("Expected the single cent on the largest stake, got %.2f", shares[0].ShareAmount)
	}
	if shares[1].ShareAmount != 0 || shares[2].ShareAmount != 0 {
		t.Errorf("Expected zero for remaining partners, got %.2f and %.2f",
			shares[1].ShareAmount, shares[2].ShareAmount)
	}
}

func TestAllocateShares_Deterministic(t *testing.T) {
	first := AllocateShares(distribution(777.77), partnerships(25, 25, 25, 25))
	second := AllocateShares(distribution(777.77), partnerships(25, 25, 25, 25))

	for i := range first {
		if first[i].PartnerID != second[i].PartnerID || first[i].ShareAmount != second[i].ShareAmount {
			t.Fatalf("Allocation is not deterministic: %+v vs %+v", first[i], second[i])
		}
	}
}

// fakeStore is an in-memory Store for exercising the engine's state machine
type fakeStore struct {
	distribution     *database.ProfitDistribution
	partnerships     []database.Partnership
	finalizeErr      error
	finalized        bool
	settledShare     *database.PartnerShare
	settleErr        error
	distributionPaid bool
	lookupShare      *database.PartnerShare
}

func (f *fakeStore) GetDistributionByID(ctx context.Context, id string) (*database.ProfitDistribution, error) {
	return f.distribution, nil
}

func (f *fakeStore) GetActivePartnerships(ctx context.Context, companyID string) ([]database.Partnership, error) {
	return f.partnerships, nil
}

func (f *fakeStore) FinalizeDistribution(ctx context.Context, distributionID string, shares []database.PartnerShare, distributionDate time.Time) error {
	if f.finalizeErr != nil {
		return f.finalizeErr
	}
	f.finalized = true
	return nil
}

func (f *fakeStore) SettleShare(ctx context.Context, shareID string, paidAt time.Time, paymentMethod, paymentReference *string) (*database.PartnerShare, bool, error) {
	return f.settledShare, f.distributionPaid, f.settleErr
}

func (f *fakeStore) GetShareByID(ctx context.Context, id string) (*database.PartnerShare, error) {
	return f.lookupShare, nil
}

func (f *fakeStore) GetSharesByDistribution(ctx context.Context, distributionID string) ([]database.PartnerShare, error) {
	return nil, nil
}

func (f *fakeStore) RecordSystemEvent(ctx context.Context, eventType, source, message string, data map[string]interface{}) error {
	return nil
}

// ============================================================================
// TEST: DistributeProfit preconditions
// ============================================================================

func TestDistributeProfit_RejectsNonCalculated(t *testing.T) {
	for _, status := range []string{database.DistributionStatusDistributed, database.DistributionStatusPaid} {
		d := distribution(1000)
		d.Status = status
		store := &fakeStore{distribution: d, partnerships: partnerships(60, 40)}
		engine := NewEngine(store, nil, nil)

		_, _, err := engine.DistributeProfit(context.Background(), "d1", nil)
		if !billing.IsCode(err, billing.CodeInvalidState) {
			t.Errorf("Status %s: expected INVALID_STATE, got %v", status, err)
		}
		if store.finalized {
			t.Errorf("Status %s: distribution must not be finalized", status)
		}
	}
}

func TestDistributeProfit_RejectsNonPositiveProfit(t *testing.T) {
	for _, netProfit := range []float64{0, -100} {
		store := &fakeStore{distribution: distribution(netProfit), partnerships: partnerships(60, 40)}
		engine := NewEngine(store, nil, nil)

		_, _, err := engine.DistributeProfit(context.Background(), "d1", nil)
		if !billing.IsCode(err, billing.CodeInsufficientProfit) {
			t.Errorf("Net profit %.2f: expected INSUFFICIENT_PROFIT, got %v", netProfit, err)
		}
	}
}

func TestDistributeProfit_RejectsNoActivePartners(t *testing.T) {
	store := &fakeStore{distribution: distribution(1000)}
	engine := NewEngine(store, nil, nil)

	_, _, err := engine.DistributeProfit(context.Background(), "d1", nil)
	if !billing.IsCode(err, billing.CodeNoActivePartners) {
		t.Errorf("Expected NO_ACTIVE_PARTNERS, got %v", err)
	}
}

func TestDistributeProfit_RejectsUnderallocatedOwnership(t *testing.T) {
	store := &fakeStore{distribution: distribution(1000), partnerships: partnerships(60, 20)}
	engine := NewEngine(store, nil, nil)

	_, _, err := engine.DistributeProfit(context.Background(), "d1", nil)
	if !billing.IsCode(err, billing.CodeOwnershipInvalid) {
		t.Fatalf("Expected OWNERSHIP_INVALID, got %v", err)
	}

	var bizErr *billing.BusinessError
	if !errors.As(err, &bizErr) || len(bizErr.Details) == 0 {
		t.Error("Expected the underlying ownership errors in Details")
	}
}

func TestDistributeProfit_ToleranceFromConfig(t *testing.T) {
	// 99.5% allocated fails under the default tolerance but passes when the
	// configured tolerance widens to a full percent
	store := &fakeStore{distribution: distribution(1000), partnerships: partnerships(60, 39.5)}
	engine := NewEngine(store, nil, nil)

	if _, _, err := engine.DistributeProfit(context.Background(), "d1", nil); !billing.IsCode(err, billing.CodeOwnershipInvalid) {
		t.Fatalf("Expected OWNERSHIP_INVALID under default tolerance, got %v", err)
	}

	cfg := billing.DefaultBillingConfig()
	cfg.OwnershipTolerance = 1.0
	store = &fakeStore{distribution: distribution(1000), partnerships: partnerships(60, 39.5)}
	engine = NewEngine(store, cfg, nil)

	if _, _, err := engine.DistributeProfit(context.Background(), "d1", nil); err != nil {
		t.Fatalf("Expected success with widened tolerance, got %v", err)
	}
	if !store.finalized {
		t.Error("Expected distribution to be finalized")
	}
}

// ============================================================================
// TEST: DistributeProfit finalization outcomes
// ============================================================================

func TestDistributeProfit_Success(t *testing.T) {
	store := &fakeStore{distribution: distribution(1000), partnerships: partnerships(60, 40)}
	engine := NewEngine(store, nil, nil)

	d, shares, err := engine.DistributeProfit(context.Background(), "d1", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d.Status != database.DistributionStatusDistributed {
		t.Errorf("Expected DISTRIBUTED, got %s", d.Status)
	}
	if d.DistributionDate == nil {
		t.Error("Expected a distribution date")
	}
	if len(shares) != 2 {
		t.Errorf("Expected 2 shares, got %d", len(shares))
	}
}

func TestDistributeProfit_ConcurrentStatusFlip(t *testing.T) {
	store := &fakeStore{
		distribution: distribution(1000),
		partnerships: partnerships(60, 40),
		finalizeErr:  database.ErrDistributionNotCalculated,
	}
	engine := NewEngine(store, nil, nil)

	_, _, err := engine.DistributeProfit(context.Background(), "d1", nil)
	if !billing.IsCode(err, billing.CodeInvalidState) {
		t.Errorf("Expected INVALID_STATE when another caller won the flip, got %v", err)
	}
}

func TestDistributeProfit_StorageFailure(t *testing.T) {
	store := &fakeStore{
		distribution: distribution(1000),
		partnerships: partnerships(60, 40),
		finalizeErr:  errors.New("connection reset"),
	}
	engine := NewEngine(store, nil, nil)

	_, _, err := engine.DistributeProfit(context.Background(), "d1", nil)
	if !billing.IsCode(err, billing.CodePersistence) {
		t.Errorf("Expected PERSISTENCE_ERROR for a storage failure, got %v", err)
	}
}

func TestDistributeProfit_NotFound(t *testing.T) {
	engine := NewEngine(&fakeStore{}, nil, nil)

	_, _, err := engine.DistributeProfit(context.Background(), "missing", nil)
	if !billing.IsCode(err, billing.CodeNotFound) {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}

// ============================================================================
// TEST: MarkSharePaid state machine
// ============================================================================

func TestMarkSharePaid_AlreadyPaid(t *testing.T) {
	paidAt := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		lookupShare: &database.PartnerShare{
			ID:     "s1",
			Status: database.ShareStatusPaid,
			PaidAt: &paidAt,
		},
	}
	engine := NewEngine(store, nil, nil)

	_, err := engine.MarkSharePaid(context.Background(), "s1", MarkSharePaidInput{})
	if !billing.IsCode(err, billing.CodeInvalidState) {
		t.Fatalf("Expected INVALID_STATE for an already paid share, got %v", err)
	}
	if !store.lookupShare.PaidAt.Equal(paidAt) {
		t.Error("Expected the original paid_at to survive")
	}
}

func TestMarkSharePaid_NotFound(t *testing.T) {
	engine := NewEngine(&fakeStore{}, nil, nil)

	_, err := engine.MarkSharePaid(context.Background(), "missing", MarkSharePaidInput{})
	if !billing.IsCode(err, billing.CodeNotFound) {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}

func TestMarkSharePaid_Settles(t *testing.T) {
	paidAt := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		settledShare: &database.PartnerShare{
			ID:             "s1",
			DistributionID: "d1",
			PartnerID:      "A",
			ShareAmount:    600,
			Status:         database.ShareStatusPaid,
			PaidAt:         &paidAt,
		},
	}
	engine := NewEngine(store, nil, nil)

	share, err := engine.MarkSharePaid(context.Background(), "s1", MarkSharePaidInput{PaidAt: &paidAt})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if share.Status != database.ShareStatusPaid {
		t.Errorf("Expected PAID, got %s", share.Status)
	}
}

func TestAllocateShares_PartialOwnership(t *testing.T) {
	// 90% allocated total: shares scale to the allocated percentages so the
	// whole net profit is still distributed
	shares := AllocateShares(distribution(900), partnerships(60, 30))

	if !floatEquals(shares[0].ShareAmount, 600, 0.001) {
		t.Errorf("Expected 600.00, got %.2f", shares[0].ShareAmount)
	}
	if !floatEquals(shares[1].ShareAmount, 300, 0.001) {
		t.Errorf("Expected 300.00, got %.2f", shares[1].ShareAmount)
	}
}
