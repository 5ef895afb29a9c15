package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Distribution and partner share repository methods

// DistributionFilter narrows distribution listings
type DistributionFilter struct {
	Status    string
	FromMonth string
	ToMonth   string
	Page      int
	Limit     int
}

// ShareFilter narrows partner share listings
type ShareFilter struct {
	PartnerID string
	Status    string
	FromDate  *time.Time
	ToDate    *time.Time
	MinAmount *float64
	MaxAmount *float64
	Page      int
	Limit     int
}

// CreateDistribution inserts a new profit distribution in CALCULATED state.
// Returns ErrDuplicateDistribution when a row for (company_id, month) exists.
func (r *Repository) CreateDistribution(ctx context.Context, d *ProfitDistribution) error {
	query := `
		INSERT INTO profit_distributions (
			id, company_id, month, total_revenue, total_expenses,
			equipment_costs, operational_costs, net_profit, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.Pool.QueryRow(ctx, query,
		d.ID,
		d.CompanyID,
		d.Month,
		d.TotalRevenue,
		d.TotalExpenses,
		d.EquipmentCosts,
		d.OperationalCosts,
		d.NetProfit,
		d.Status,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "idx_distributions_company_month") {
			return ErrDuplicateDistribution
		}
		return err
	}

	return nil
}

// GetDistributionByID retrieves a distribution by ID
func (r *Repository) GetDistributionByID(ctx context.Context, id string) (*ProfitDistribution, error) {
	query := distributionSelect + ` WHERE id = $1`

	var d ProfitDistribution
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(distributionFields(&d)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &d, nil
}

// GetDistributionByMonth retrieves the distribution for a company and month
func (r *Repository) GetDistributionByMonth(ctx context.Context, companyID, month string) (*ProfitDistribution, error) {
	query := distributionSelect + ` WHERE company_id = $1 AND month = $2`

	var d ProfitDistribution
	err := r.db.Pool.QueryRow(ctx, query, companyID, month).Scan(distributionFields(&d)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &d, nil
}

const distributionSelect = `
	SELECT id, company_id, month, total_revenue, total_expenses,
		equipment_costs, operational_costs, net_profit, distribution_date,
		status, created_at, updated_at
	FROM profit_distributions`

func distributionFields(d *ProfitDistribution) []interface{} {
	return []interface{}{
		&d.ID, &d.CompanyID, &d.Month, &d.TotalRevenue, &d.TotalExpenses,
		&d.EquipmentCosts, &d.OperationalCosts, &d.NetProfit, &d.DistributionDate,
		&d.Status, &d.CreatedAt, &d.UpdatedAt,
	}
}

// ListDistributions retrieves distributions for a company with optional filters
func (r *Repository) ListDistributions(ctx context.Context, companyID string, filter DistributionFilter) ([]ProfitDistribution, error) {
	query := distributionSelect + ` WHERE company_id = $1`
	args := []interface{}{companyID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.FromMonth != "" {
		args = append(args, filter.FromMonth)
		query += fmt.Sprintf(" AND month >= $%d", len(args))
	}
	if filter.ToMonth != "" {
		args = append(args, filter.ToMonth)
		query += fmt.Sprintf(" AND month <= $%d", len(args))
	}

	query += " ORDER BY month DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, (page-1)*limit)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var distributions []ProfitDistribution
	for rows.Next() {
		var d ProfitDistribution
		if err := rows.Scan(distributionFields(&d)...); err != nil {
			return nil, err
		}
		distributions = append(distributions, d)
	}

	return distributions, rows.Err()
}

// FinalizeDistribution creates the partner shares and moves the distribution
// to DISTRIBUTED in a single transaction. If any insert fails, the whole
// transaction rolls back and the distribution stays CALCULATED with no shares.
// Returns ErrDistributionNotCalculated when the row is no longer CALCULATED.
func (r *Repository) FinalizeDistribution(ctx context.Context, distributionID string, shares []PartnerShare, distributionDate time.Time) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Conditional flip guards against a concurrent distribute on the same row
	tag, err := tx.Exec(ctx, `
		UPDATE profit_distributions
		SET status = $2, distribution_date = $3
		WHERE id = $1 AND status = $4`,
		distributionID, DistributionStatusDistributed, distributionDate, DistributionStatusCalculated,
	)
	if err != nil {
		return fmt.Errorf("failed to update distribution status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDistributionNotCalculated
	}

	for i := range shares {
		s := &shares[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO partner_shares (
				id, distribution_id, partner_id, share_amount, percentage, status
			) VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at, updated_at`,
			s.ID, s.DistributionID, s.PartnerID, s.ShareAmount, s.Percentage, s.Status,
		).Scan(&s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert partner share: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetShareByID retrieves a partner share by ID
func (r *Repository) GetShareByID(ctx context.Context, id string) (*PartnerShare, error) {
	query := shareSelect + ` WHERE id = $1`

	var s PartnerShare
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(shareFields(&s)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &s, nil
}

// GetSharesByDistribution retrieves all shares belonging to a distribution
func (r *Repository) GetSharesByDistribution(ctx context.Context, distributionID string) ([]PartnerShare, error) {
	query := shareSelect + ` WHERE distribution_id = $1 ORDER BY percentage DESC`

	rows, err := r.db.Pool.Query(ctx, query, distributionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanShares(rows)
}

const shareSelect = `
	SELECT id, distribution_id, partner_id, share_amount, percentage,
		status, paid_at, payment_method, payment_reference, created_at, updated_at
	FROM partner_shares`

func shareFields(s *PartnerShare) []interface{} {
	return []interface{}{
		&s.ID, &s.DistributionID, &s.PartnerID, &s.ShareAmount, &s.Percentage,
		&s.Status, &s.PaidAt, &s.PaymentMethod, &s.PaymentReference, &s.CreatedAt, &s.UpdatedAt,
	}
}

func scanShares(rows pgx.Rows) ([]PartnerShare, error) {
	var shares []PartnerShare
	for rows.Next() {
		var s PartnerShare
		if err := rows.Scan(shareFields(&s)...); err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

// ListShares retrieves partner shares with optional filters
func (r *Repository) ListShares(ctx context.Context, filter ShareFilter) ([]PartnerShare, error) {
	query := shareSelect + ` WHERE 1=1`
	var args []interface{}

	if filter.PartnerID != "" {
		args = append(args, filter.PartnerID)
		query += fmt.Sprintf(" AND partner_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	if filter.MinAmount != nil {
		args = append(args, *filter.MinAmount)
		query += fmt.Sprintf(" AND share_amount >= $%d", len(args))
	}
	if filter.MaxAmount != nil {
		args = append(args, *filter.MaxAmount)
		query += fmt.Sprintf(" AND share_amount <= $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, (page-1)*limit)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanShares(rows)
}

// SettleShare marks a PENDING share as PAID and, when it was the last pending
// share, flips the parent distribution to PAID in the same transaction.
// Returns the updated share and whether the distribution completed. The share
// is nil when the row was not in PENDING state (or does not exist).
func (r *Repository) SettleShare(ctx context.Context, shareID string, paidAt time.Time, paymentMethod, paymentReference *string) (*PartnerShare, bool, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var s PartnerShare
	err = tx.QueryRow(ctx, `
		UPDATE partner_shares
		SET status = $2, paid_at = $3, payment_method = $4, payment_reference = $5
		WHERE id = $1 AND status = $6
		RETURNING id, distribution_id, partner_id, share_amount, percentage,
			status, paid_at, payment_method, payment_reference, created_at, updated_at`,
		shareID, ShareStatusPaid, paidAt, paymentMethod, paymentReference, ShareStatusPending,
	).Scan(shareFields(&s)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	var pending int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM partner_shares
		WHERE distribution_id = $1 AND status = $2`,
		s.DistributionID, ShareStatusPending,
	).Scan(&pending)
	if err != nil {
		return nil, false, err
	}

	distributionPaid := false
	if pending == 0 {
		tag, err := tx.Exec(ctx, `
			UPDATE profit_distributions
			SET status = $2
			WHERE id = $1 AND status = $3`,
			s.DistributionID, DistributionStatusPaid, DistributionStatusDistributed,
		)
		if err != nil {
			return nil, false, err
		}
		distributionPaid = tag.RowsAffected() > 0
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}

	return &s, distributionPaid, nil
}
