package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Partnership repository methods for the ownership ledger

// CreatePartnership inserts a new partnership record
func (r *Repository) CreatePartnership(ctx context.Context, p *Partnership) error {
	query := `
		INSERT INTO partnerships (
			id, company_id, partner_id, ownership_percentage, role,
			investment_amount, join_date, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.Pool.QueryRow(ctx, query,
		p.ID,
		p.CompanyID,
		p.PartnerID,
		p.OwnershipPercentage,
		p.Role,
		p.InvestmentAmount,
		p.JoinDate,
		p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "idx_partnerships_company_partner_active") {
			return ErrDuplicatePartnership
		}
		return err
	}

	return nil
}

// GetPartnershipByID retrieves a partnership by ID
func (r *Repository) GetPartnershipByID(ctx context.Context, id string) (*Partnership, error) {
	query := `
		SELECT id, company_id, partner_id, ownership_percentage, role,
			investment_amount, join_date, is_active, created_at, updated_at, deactivated_at
		FROM partnerships
		WHERE id = $1`

	var p Partnership
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.CompanyID, &p.PartnerID, &p.OwnershipPercentage, &p.Role,
		&p.InvestmentAmount, &p.JoinDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &p.DeactivatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &p, nil
}

// GetActivePartnerships retrieves all active partnerships for a company
func (r *Repository) GetActivePartnerships(ctx context.Context, companyID string) ([]Partnership, error) {
	query := `
		SELECT id, company_id, partner_id, ownership_percentage, role,
			investment_amount, join_date, is_active, created_at, updated_at, deactivated_at
		FROM partnerships
		WHERE company_id = $1 AND is_active
		ORDER BY ownership_percentage DESC, join_date ASC`

	return r.scanPartnerships(ctx, query, companyID)
}

// GetPartnerships retrieves all partnerships for a company, including deactivated ones
func (r *Repository) GetPartnerships(ctx context.Context, companyID string) ([]Partnership, error) {
	query := `
		SELECT id, company_id, partner_id, ownership_percentage, role,
			investment_amount, join_date, is_active, created_at, updated_at, deactivated_at
		FROM partnerships
		WHERE company_id = $1
		ORDER BY join_date ASC`

	return r.scanPartnerships(ctx, query, companyID)
}

// GetPartnershipsByPartner retrieves all partnerships a partner holds across companies
func (r *Repository) GetPartnershipsByPartner(ctx context.Context, partnerID string) ([]Partnership, error) {
	query := `
		SELECT id, company_id, partner_id, ownership_percentage, role,
			investment_amount, join_date, is_active, created_at, updated_at, deactivated_at
		FROM partnerships
		WHERE partner_id = $1
		ORDER BY join_date ASC`

	return r.scanPartnerships(ctx, query, partnerID)
}

func (r *Repository) scanPartnerships(ctx context.Context, query string, args ...interface{}) ([]Partnership, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partnerships []Partnership
	for rows.Next() {
		var p Partnership
		err := rows.Scan(
			&p.ID, &p.CompanyID, &p.PartnerID, &p.OwnershipPercentage, &p.Role,
			&p.InvestmentAmount, &p.JoinDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &p.DeactivatedAt,
		)
		if err != nil {
			return nil, err
		}
		partnerships = append(partnerships, p)
	}

	return partnerships, rows.Err()
}

// UpdatePartnership updates the mutable fields of a partnership
func (r *Repository) UpdatePartnership(ctx context.Context, p *Partnership) error {
	query := `
		UPDATE partnerships
		SET ownership_percentage = $2, role = $3, investment_amount = $4, is_active = $5
		WHERE id = $1`

	_, err := r.db.Pool.Exec(ctx, query,
		p.ID, p.OwnershipPercentage, p.Role, p.InvestmentAmount, p.IsActive,
	)
	return err
}

// DeactivatePartnership marks a partnership inactive, preserving the row
func (r *Repository) DeactivatePartnership(ctx context.Context, id string, when time.Time) error {
	query := `
		UPDATE partnerships
		SET is_active = FALSE, deactivated_at = $2
		WHERE id = $1 AND is_active`

	_, err := r.db.Pool.Exec(ctx, query, id, when)
	return err
}
