package database

import (
	"context"
	"fmt"
)

// PartnerEarningRow joins a partner share with its distribution's month and
// company for earnings reporting
type PartnerEarningRow struct {
	Share     PartnerShare `json:"share"`
	Month     string       `json:"month"`
	CompanyID string       `json:"company_id"`
}

// GetPartnerEarnings retrieves a partner's shares joined with distribution
// months, optionally bounded to a month range (inclusive, YYYY-MM)
func (r *Repository) GetPartnerEarnings(ctx context.Context, partnerID, fromMonth, toMonth string) ([]PartnerEarningRow, error) {
	query := `
		SELECT s.id, s.distribution_id, s.partner_id, s.share_amount, s.percentage,
			s.status, s.paid_at, s.payment_method, s.payment_reference, s.created_at, s.updated_at,
			d.month, d.company_id
		FROM partner_shares s
		JOIN profit_distributions d ON d.id = s.distribution_id
		WHERE s.partner_id = $1`
	args := []interface{}{partnerID}

	if fromMonth != "" {
		args = append(args, fromMonth)
		query += fmt.Sprintf(" AND d.month >= $%d", len(args))
	}
	if toMonth != "" {
		args = append(args, toMonth)
		query += fmt.Sprintf(" AND d.month <= $%d", len(args))
	}

	query += " ORDER BY d.month ASC, s.created_at ASC"

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PartnerEarningRow
	for rows.Next() {
		var row PartnerEarningRow
		fields := shareFields(&row.Share)
		fields = append(fields, &row.Month, &row.CompanyID)
		if err := rows.Scan(fields...); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
