// Package ownership manages partnership records and enforces the
// per-company ownership-sum invariant.
package ownership

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"isp-billing-platform/internal/billing"
	"isp-billing-platform/internal/database"
	"isp-billing-platform/internal/events"
	"isp-billing-platform/internal/validation"

	"github.com/google/uuid"
)

// PartnerDirectory resolves partner emails to partner IDs. Implemented by
// the user/directory subsystem.
type PartnerDirectory interface {
	ResolvePartnerEmail(ctx context.Context, email string) (string, error)
}

// CreatePartnershipInput carries the fields for a new partnership. Either
// PartnerID or PartnerEmail must be set; emails are resolved through the
// directory.
type CreatePartnershipInput struct {
	CompanyID           string     `json:"company_id"`
	PartnerID           string     `json:"partner_id"`
	PartnerEmail        string     `json:"partner_email"`
	OwnershipPercentage float64    `json:"ownership_percentage"`
	Role                string     `json:"role"`
	InvestmentAmount    *float64   `json:"investment_amount,omitempty"`
	JoinDate            *time.Time `json:"join_date,omitempty"`
}

// UpdatePartnershipInput carries optional partnership mutations
type UpdatePartnershipInput struct {
	OwnershipPercentage *float64 `json:"ownership_percentage,omitempty"`
	Role                *string  `json:"role,omitempty"`
	InvestmentAmount    *float64 `json:"investment_amount,omitempty"`
	IsActive            *bool    `json:"is_active,omitempty"`
}

// Ledger manages partnership records. Writes for the same company are
// serialized through a per-company lock so two concurrent additions cannot
// both pass the sum check and jointly exceed 100%.
type Ledger struct {
	repo      *database.Repository
	config    *billing.BillingConfig
	eventBus  *events.EventBus
	directory PartnerDirectory

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedger creates a new ownership ledger
func NewLedger(repo *database.Repository, config *billing.BillingConfig, eventBus *events.EventBus, directory PartnerDirectory) *Ledger {
	if config == nil {
		config = billing.DefaultBillingConfig()
	}
	return &Ledger{
		repo:      repo,
		config:    config,
		eventBus:  eventBus,
		directory: directory,
		locks:     make(map[string]*sync.Mutex),
	}
}

// companyLock returns the lock serializing writes for a company
func (l *Ledger) companyLock(companyID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[companyID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[companyID] = lock
	}
	return lock
}

// AddPartnership validates and creates a partnership. Fails with
// OWNERSHIP_EXCEEDED when the resulting active sum would pass 100%; sums
// above the warning threshold produce a logged warning, not a failure.
func (l *Ledger) AddPartnership(ctx context.Context, in CreatePartnershipInput) (*database.Partnership, error) {
	if result := validation.ValidateOwnershipPercentage(in.OwnershipPercentage); !result.IsValid {
		return nil, billing.NewValidationError("%s", result.Errors[0])
	}

	partnerID := in.PartnerID
	if partnerID == "" {
		if in.PartnerEmail == "" {
			return nil, billing.NewValidationError("Either partner_id or partner_email is required")
		}
		if l.directory == nil {
			return nil, billing.NewValidationError("Partner email resolution is not available")
		}
		resolved, err := l.directory.ResolvePartnerEmail(ctx, in.PartnerEmail)
		if err != nil {
			return nil, billing.NewNotFoundError("partner", in.PartnerEmail)
		}
		partnerID = resolved
	}

	lock := l.companyLock(in.CompanyID)
	lock.Lock()
	defer lock.Unlock()

	currentSum, err := l.activeOwnershipSum(ctx, in.CompanyID, "")
	if err != nil {
		return nil, billing.NewPersistenceError("ownership sum lookup", err)
	}

	check := validation.ValidateOwnershipAdditionWithin(currentSum, in.OwnershipPercentage,
		l.config.OwnershipTolerance, l.config.OwnershipWarningThreshold)
	if !check.IsValid {
		return nil, billing.NewBusinessRuleError(billing.CodeOwnershipExceeded, "%s", check.Errors[0])
	}
	l.reportWarnings(in.CompanyID, currentSum+in.OwnershipPercentage, check.Warnings)

	joinDate := time.Now().UTC()
	if in.JoinDate != nil {
		joinDate = *in.JoinDate
	}
	role := in.Role
	if role == "" {
		role = "PARTNER"
	}

	partnership := &database.Partnership{
		ID:                  uuid.New().String(),
		CompanyID:           in.CompanyID,
		PartnerID:           partnerID,
		OwnershipPercentage: in.OwnershipPercentage,
		Role:                role,
		InvestmentAmount:    in.InvestmentAmount,
		JoinDate:            joinDate,
		IsActive:            true,
	}

	if err := l.repo.CreatePartnership(ctx, partnership); err != nil {
		if errors.Is(err, database.ErrDuplicatePartnership) {
			return nil, billing.NewValidationError(
				"Partner %s already has an active partnership in this company", partnerID)
		}
		return nil, billing.NewPersistenceError("partnership create", err)
	}

	if l.eventBus != nil {
		l.eventBus.Publish(events.Event{
			Type: events.EventPartnershipCreated,
			Data: map[string]interface{}{
				"partnership_id": partnership.ID,
				"company_id":     partnership.CompanyID,
				"partner_id":     partnership.PartnerID,
				"percentage":     partnership.OwnershipPercentage,
			},
		})
	}

	return partnership, nil
}

// UpdatePartnership re-runs the ownership sum check with the existing
// record excluded and the updated percentage included.
func (l *Ledger) UpdatePartnership(ctx context.Context, id string, in UpdatePartnershipInput) (*database.Partnership, error) {
	existing, err := l.repo.GetPartnershipByID(ctx, id)
	if err != nil {
		return nil, billing.NewPersistenceError("partnership lookup", err)
	}
	if existing == nil {
		return nil, billing.NewNotFoundError("partnership", id)
	}

	lock := l.companyLock(existing.CompanyID)
	lock.Lock()
	defer lock.Unlock()

	updated := *existing
	if in.OwnershipPercentage != nil {
		if result := validation.ValidateOwnershipPercentage(*in.OwnershipPercentage); !result.IsValid {
			return nil, billing.NewValidationError("%s", result.Errors[0])
		}
		updated.OwnershipPercentage = *in.OwnershipPercentage
	}
	if in.Role != nil {
		updated.Role = *in.Role
	}
	if in.InvestmentAmount != nil {
		updated.InvestmentAmount = in.InvestmentAmount
	}
	if in.IsActive != nil {
		updated.IsActive = *in.IsActive
	}

	if updated.IsActive {
		sumExcluding, err := l.activeOwnershipSum(ctx, existing.CompanyID, existing.ID)
		if err != nil {
			return nil, billing.NewPersistenceError("ownership sum lookup", err)
		}

		check := validation.ValidateOwnershipAdditionWithin(sumExcluding, updated.OwnershipPercentage,
			l.config.OwnershipTolerance, l.config.OwnershipWarningThreshold)
		if !check.IsValid {
			return nil, billing.NewBusinessRuleError(billing.CodeOwnershipExceeded, "%s", check.Errors[0])
		}
		l.reportWarnings(existing.CompanyID, sumExcluding+updated.OwnershipPercentage, check.Warnings)
	}

	if err := l.repo.UpdatePartnership(ctx, &updated); err != nil {
		return nil, billing.NewPersistenceError("partnership update", err)
	}

	if l.eventBus != nil {
		l.eventBus.Publish(events.Event{
			Type: events.EventPartnershipUpdated,
			Data: map[string]interface{}{
				"partnership_id": updated.ID,
				"company_id":     updated.CompanyID,
				"percentage":     updated.OwnershipPercentage,
				"is_active":      updated.IsActive,
			},
		})
	}

	return &updated, nil
}

// Deactivate marks a partnership inactive. Existing distributions and
// shares are untouched; the percentage snapshots they carry stay valid.
func (l *Ledger) Deactivate(ctx context.Context, id string) (*database.Partnership, error) {
	existing, err := l.repo.GetPartnershipByID(ctx, id)
	if err != nil {
		return nil, billing.NewPersistenceError("partnership lookup", err)
	}
	if existing == nil {
		return nil, billing.NewNotFoundError("partnership", id)
	}

	lock := l.companyLock(existing.CompanyID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	if err := l.repo.DeactivatePartnership(ctx, id, now); err != nil {
		return nil, billing.NewPersistenceError("partnership deactivate", err)
	}

	existing.IsActive = false
	existing.DeactivatedAt = &now

	if l.eventBus != nil {
		l.eventBus.Publish(events.Event{
			Type: events.EventPartnershipDeactivated,
			Data: map[string]interface{}{
				"partnership_id": existing.ID,
				"company_id":     existing.CompanyID,
			},
		})
	}

	return existing, nil
}

// GetPartnership returns a partnership by ID, or NOT_FOUND
func (l *Ledger) GetPartnership(ctx context.Context, id string) (*database.Partnership, error) {
	p, err := l.repo.GetPartnershipByID(ctx, id)
	if err != nil {
		return nil, billing.NewPersistenceError("partnership lookup", err)
	}
	if p == nil {
		return nil, billing.NewNotFoundError("partnership", id)
	}
	return p, nil
}

// ListPartnerships returns a company's partnerships
func (l *Ledger) ListPartnerships(ctx context.Context, companyID string, activeOnly bool) ([]database.Partnership, error) {
	if activeOnly {
		return l.repo.GetActivePartnerships(ctx, companyID)
	}
	return l.repo.GetPartnerships(ctx, companyID)
}

// ValidateCompanyOwnership runs the advisory ownership-sum check over a
// company's active partnerships. Returns a structured result, never an
// error, so UI layers can warn instead of block.
func (l *Ledger) ValidateCompanyOwnership(ctx context.Context, companyID string) (*validation.ValidationResult, error) {
	partnerships, err := l.repo.GetActivePartnerships(ctx, companyID)
	if err != nil {
		return nil, billing.NewPersistenceError("partnership lookup", err)
	}
	return validation.ValidateTotalOwnershipWithin(partnerships, l.config.OwnershipTolerance), nil
}

// activeOwnershipSum sums active percentages for a company, excluding one
// partnership when excludeID is set
func (l *Ledger) activeOwnershipSum(ctx context.Context, companyID, excludeID string) (float64, error) {
	partnerships, err := l.repo.GetActivePartnerships(ctx, companyID)
	if err != nil {
		return 0, err
	}

	var sum float64
	for _, p := range partnerships {
		if p.ID == excludeID {
			continue
		}
		sum += p.OwnershipPercentage
	}
	return sum, nil
}

func (l *Ledger) reportWarnings(companyID string, newSum float64, warnings []string) {
	for _, w := range warnings {
		log.Printf("[OWNERSHIP] Warning for company %s: %s", companyID, w)
		if l.eventBus != nil {
			l.eventBus.PublishOwnershipWarning(companyID, newSum, w)
		}
	}
}
