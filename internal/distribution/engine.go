// Package distribution turns calculated profit into partner shares and
// tracks share payouts through to a fully paid distribution.
package distribution

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"time"

	"isp-billing-platform/internal/billing"
	"isp-billing-platform/internal/database"
	"isp-billing-platform/internal/events"
	"isp-billing-platform/internal/validation"

	"github.com/google/uuid"
)

// Store is the persistence surface the engine uses. Implemented by
// *database.Repository.
type Store interface {
	GetDistributionByID(ctx context.Context, id string) (*database.ProfitDistribution, error)
	GetActivePartnerships(ctx context.Context, companyID string) ([]database.Partnership, error)
	FinalizeDistribution(ctx context.Context, distributionID string, shares []database.PartnerShare, distributionDate time.Time) error
	SettleShare(ctx context.Context, shareID string, paidAt time.Time, paymentMethod, paymentReference *string) (*database.PartnerShare, bool, error)
	GetShareByID(ctx context.Context, id string) (*database.PartnerShare, error)
	GetSharesByDistribution(ctx context.Context, distributionID string) ([]database.PartnerShare, error)
	RecordSystemEvent(ctx context.Context, eventType, source, message string, data map[string]interface{}) error
}

// Engine creates partner shares from calculated distributions and settles
// individual share payments
type Engine struct {
	repo     Store
	config   *billing.BillingConfig
	eventBus *events.EventBus
	now      func() time.Time
}

// NewEngine creates a new distribution engine
func NewEngine(repo Store, config *billing.BillingConfig, eventBus *events.EventBus) *Engine {
	if config == nil {
		config = billing.DefaultBillingConfig()
	}
	return &Engine{
		repo:     repo,
		config:   config,
		eventBus: eventBus,
		now:      time.Now,
	}
}

// DistributeProfit creates one PENDING share per active partnership and
// moves the distribution from CALCULATED to DISTRIBUTED. Share creation and
// the status flip happen in one transaction; on any failure the distribution
// stays CALCULATED with no shares.
func (e *Engine) DistributeProfit(ctx context.Context, distributionID string, distributionDate *time.Time) (*database.ProfitDistribution, []database.PartnerShare, error) {
	d, err := e.repo.GetDistributionByID(ctx, distributionID)
	if err != nil {
		return nil, nil, billing.NewPersistenceError("distribution lookup", err)
	}
	if d == nil {
		return nil, nil, billing.NewNotFoundError("distribution", distributionID)
	}

	partnerships, err := e.repo.GetActivePartnerships(ctx, d.CompanyID)
	if err != nil {
		return nil, nil, billing.NewPersistenceError("partnership lookup", err)
	}

	if err := e.checkPreconditions(d, partnerships); err != nil {
		return nil, nil, err
	}

	shares := AllocateShares(d, partnerships)

	when := e.now().UTC()
	if distributionDate != nil {
		when = *distributionDate
	}

	if err := e.repo.FinalizeDistribution(ctx, d.ID, shares, when); err != nil {
		if errors.Is(err, database.ErrDistributionNotCalculated) {
			// A concurrent distribute won the conditional status flip
			return nil, nil, billing.NewBusinessRuleError(billing.CodeInvalidState,
				"Distribution %s is no longer %s", d.ID, database.DistributionStatusCalculated)
		}
		return nil, nil, billing.NewPersistenceError("distribution finalize", err)
	}

	d.Status = database.DistributionStatusDistributed
	d.DistributionDate = &when

	log.Printf("[DISTRIBUTION] Distributed %s: %s %s, net profit %.2f across %d partners",
		d.ID, d.CompanyID, d.Month, d.NetProfit, len(shares))

	if e.eventBus != nil {
		e.eventBus.PublishDistributionAvailable(d.CompanyID, d.ID, d.Month, d.NetProfit, len(shares))
	}
	if err := e.repo.RecordSystemEvent(ctx, string(events.EventDistributionAvailable), "distribution",
		"Profit distributed to partners", map[string]interface{}{
			"distribution_id": d.ID,
			"company_id":      d.CompanyID,
			"month":           d.Month,
			"net_profit":      d.NetProfit,
			"share_count":     len(shares),
		}); err != nil {
		log.Printf("[DISTRIBUTION] Failed to record system event: %v", err)
	}

	return d, shares, nil
}

// checkPreconditions runs the shared distribution rules one at a time so
// each failure carries its own error code
func (e *Engine) checkPreconditions(d *database.ProfitDistribution, partnerships []database.Partnership) error {
	if r := validation.ValidateDistributionState(d); !r.IsValid {
		return billing.NewBusinessRuleError(billing.CodeInvalidState, "%s", r.Errors[0])
	}
	if r := validation.ValidateDistributableProfit(d.NetProfit); !r.IsValid {
		return billing.NewBusinessRuleError(billing.CodeInsufficientProfit, "%s", r.Errors[0])
	}
	if r := validation.ValidateActivePartners(partnerships); !r.IsValid {
		return billing.NewBusinessRuleError(billing.CodeNoActivePartners, "%s", r.Errors[0])
	}

	ownership := validation.ValidateTotalOwnershipWithin(partnerships, e.config.OwnershipTolerance)
	if !ownership.IsValid {
		err := billing.NewBusinessRuleError(billing.CodeOwnershipInvalid,
			"Ownership must sum to 100%% before distributing")
		err.Details = ownership.Errors
		return err
	}
	for _, w := range ownership.Warnings {
		log.Printf("[DISTRIBUTION] Ownership warning for company %s: %s", d.CompanyID, w)
	}

	return nil
}

// AllocateShares splits the net profit across partnerships in proportion to
// ownership percentage. Allocation runs in integer cents with a
// largest-remainder pass, so the share amounts always sum to the net profit
// exactly. Shares come back ordered by percentage descending.
func AllocateShares(d *database.ProfitDistribution, partnerships []database.Partnership) []database.PartnerShare {
	totalCents := int64(math.Round(d.NetProfit * 100))

	var totalPercentage float64
	for _, p := range partnerships {
		totalPercentage += p.OwnershipPercentage
	}

	type allocation struct {
		partnership *database.Partnership
		cents       int64
		remainder   float64
	}

	allocations := make([]allocation, len(partnerships))
	var assigned int64
	for i := range partnerships {
		p := &partnerships[i]
		raw := float64(totalCents) * p.OwnershipPercentage / totalPercentage
		cents := int64(math.Floor(raw))
		allocations[i] = allocation{
			partnership: p,
			cents:       cents,
			remainder:   raw - float64(cents),
		}
		assigned += cents
	}

	// Leftover cents go to the largest remainders; ties break toward the
	// larger stake, then partner ID for determinism
	order := make([]int, len(allocations))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ai, bi := &allocations[order[a]], &allocations[order[b]]
		if ai.remainder != bi.remainder {
			return ai.remainder > bi.remainder
		}
		if ai.partnership.OwnershipPercentage != bi.partnership.OwnershipPercentage {
			return ai.partnership.OwnershipPercentage > bi.partnership.OwnershipPercentage
		}
		return ai.partnership.PartnerID < bi.partnership.PartnerID
	})
	for i := int64(0); i < totalCents-assigned; i++ {
		allocations[order[i%int64(len(order))]].cents++
	}

	shares := make([]database.PartnerShare, 0, len(allocations))
	for _, a := range allocations {
		shares = append(shares, database.PartnerShare{
			ID:             uuid.New().String(),
			DistributionID: d.ID,
			PartnerID:      a.partnership.PartnerID,
			ShareAmount:    float64(a.cents) / 100,
			Percentage:     a.partnership.OwnershipPercentage,
			Status:         database.ShareStatusPending,
		})
	}

	sort.Slice(shares, func(a, b int) bool {
		if shares[a].Percentage != shares[b].Percentage {
			return shares[a].Percentage > shares[b].Percentage
		}
		return shares[a].PartnerID < shares[b].PartnerID
	})

	return shares
}

// MarkSharePaidInput carries optional payment metadata for a settlement
type MarkSharePaidInput struct {
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	PaymentMethod    *string    `json:"payment_method,omitempty"`
	PaymentReference *string    `json:"payment_reference,omitempty"`
}

// MarkSharePaid settles a PENDING share. When the last pending share of a
// distribution is settled, the distribution flips to PAID in the same
// transaction. Settling an already PAID share fails with INVALID_STATE and
// leaves the original paid_at untouched.
func (e *Engine) MarkSharePaid(ctx context.Context, shareID string, in MarkSharePaidInput) (*database.PartnerShare, error) {
	paidAt := e.now().UTC()
	if in.PaidAt != nil {
		paidAt = *in.PaidAt
	}

	share, distributionPaid, err := e.repo.SettleShare(ctx, shareID, paidAt, in.PaymentMethod, in.PaymentReference)
	if err != nil {
		return nil, billing.NewPersistenceError("share settlement", err)
	}
	if share == nil {
		// The conditional update missed: either no such share or not PENDING
		existing, lookupErr := e.repo.GetShareByID(ctx, shareID)
		if lookupErr != nil {
			return nil, billing.NewPersistenceError("share lookup", lookupErr)
		}
		if existing == nil {
			return nil, billing.NewNotFoundError("share", shareID)
		}
		return nil, billing.NewBusinessRuleError(billing.CodeInvalidState,
			"Share %s is already %s", shareID, existing.Status)
	}

	log.Printf("[DISTRIBUTION] Share %s paid: partner %s, amount %.2f", share.ID, share.PartnerID, share.ShareAmount)

	if e.eventBus != nil {
		e.eventBus.PublishPaymentReceived(share.ID, share.DistributionID, share.PartnerID, share.ShareAmount)
	}

	if distributionPaid {
		d, err := e.repo.GetDistributionByID(ctx, share.DistributionID)
		if err != nil {
			log.Printf("[DISTRIBUTION] Failed to load distribution %s after final settlement: %v", share.DistributionID, err)
		} else if d != nil {
			log.Printf("[DISTRIBUTION] Distribution %s fully paid", d.ID)
			if e.eventBus != nil {
				e.eventBus.PublishDistributionPaid(d.ID, d.CompanyID)
			}
			if err := e.repo.RecordSystemEvent(ctx, string(events.EventDistributionPaid), "distribution",
				"All partner shares paid", map[string]interface{}{
					"distribution_id": d.ID,
					"company_id":      d.CompanyID,
					"month":           d.Month,
				}); err != nil {
				log.Printf("[DISTRIBUTION] Failed to record system event: %v", err)
			}
		}
	}

	return share, nil
}

// GetDistributionDetail returns a distribution with its shares
func (e *Engine) GetDistributionDetail(ctx context.Context, distributionID string) (*database.ProfitDistribution, []database.PartnerShare, error) {
	d, err := e.repo.GetDistributionByID(ctx, distributionID)
	if err != nil {
		return nil, nil, billing.NewPersistenceError("distribution lookup", err)
	}
	if d == nil {
		return nil, nil, billing.NewNotFoundError("distribution", distributionID)
	}

	shares, err := e.repo.GetSharesByDistribution(ctx, distributionID)
	if err != nil {
		return nil, nil, billing.NewPersistenceError("share lookup", err)
	}

	return d, shares, nil
}
