package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Equipment registry repository methods. Equipment and maintenance rows are
// written by the registry integration endpoints and read by the financial
// analyzer.

// MaintenanceTotal is a per-equipment maintenance cost rollup
type MaintenanceTotal struct {
	EquipmentID string  `json:"equipment_id"`
	RecordCount int     `json:"record_count"`
	TotalCost   float64 `json:"total_cost"`
}

// CreateEquipment inserts a new equipment record
func (r *Repository) CreateEquipment(ctx context.Context, e *Equipment) error {
	query := `
		INSERT INTO equipment (
			id, company_id, name, purchase_cost, purchase_date,
			monthly_depreciation_rate, depreciation_method, status, last_maintenance_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	return r.db.Pool.QueryRow(ctx, query,
		e.ID,
		e.CompanyID,
		e.Name,
		e.PurchaseCost,
		e.PurchaseDate,
		e.MonthlyDepreciationRate,
		e.DepreciationMethod,
		e.Status,
		e.LastMaintenanceDate,
	).Scan(&e.CreatedAt)
}

// GetEquipmentByID retrieves equipment by ID
func (r *Repository) GetEquipmentByID(ctx context.Context, id string) (*Equipment, error) {
	query := `
		SELECT id, company_id, name, purchase_cost, purchase_date,
			monthly_depreciation_rate, depreciation_method, status,
			last_maintenance_date, created_at
		FROM equipment
		WHERE id = $1`

	var e Equipment
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.CompanyID, &e.Name, &e.PurchaseCost, &e.PurchaseDate,
		&e.MonthlyDepreciationRate, &e.DepreciationMethod, &e.Status,
		&e.LastMaintenanceDate, &e.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &e, nil
}

// GetCompanyEquipment retrieves all equipment for a company, optionally by status
func (r *Repository) GetCompanyEquipment(ctx context.Context, companyID, status string) ([]Equipment, error) {
	query := `
		SELECT id, company_id, name, purchase_cost, purchase_date,
			monthly_depreciation_rate, depreciation_method, status,
			last_maintenance_date, created_at
		FROM equipment
		WHERE company_id = $1`
	args := []interface{}{companyID}

	if status != "" {
		args = append(args, status)
		query += ` AND status = $2`
	}
	query += ` ORDER BY purchase_date ASC`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var equipment []Equipment
	for rows.Next() {
		var e Equipment
		err := rows.Scan(
			&e.ID, &e.CompanyID, &e.Name, &e.PurchaseCost, &e.PurchaseDate,
			&e.MonthlyDepreciationRate, &e.DepreciationMethod, &e.Status,
			&e.LastMaintenanceDate, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		equipment = append(equipment, e)
	}

	return equipment, rows.Err()
}

// CreateMaintenanceRecord appends a maintenance record and bumps the
// equipment's last maintenance date when this record is newer.
func (r *Repository) CreateMaintenanceRecord(ctx context.Context, m *MaintenanceRecord) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO maintenance_records (id, equipment_id, date, cost, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		m.ID, m.EquipmentID, m.Date, m.Cost, m.Description,
	).Scan(&m.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE equipment
		SET last_maintenance_date = $2
		WHERE id = $1 AND (last_maintenance_date IS NULL OR last_maintenance_date < $2)`,
		m.EquipmentID, m.Date,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetMaintenanceRecords retrieves maintenance records for equipment within a date range
func (r *Repository) GetMaintenanceRecords(ctx context.Context, equipmentID string, from, to time.Time) ([]MaintenanceRecord, error) {
	query := `
		SELECT id, equipment_id, date, cost, COALESCE(description, ''), created_at
		FROM maintenance_records
		WHERE equipment_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	rows, err := r.db.Pool.Query(ctx, query, equipmentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []MaintenanceRecord
	for rows.Next() {
		var m MaintenanceRecord
		if err := rows.Scan(&m.ID, &m.EquipmentID, &m.Date, &m.Cost, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, m)
	}

	return records, rows.Err()
}

// SumMaintenanceCosts returns the total maintenance cost for equipment within a date range
func (r *Repository) SumMaintenanceCosts(ctx context.Context, equipmentID string, from, to time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(cost), 0)
		FROM maintenance_records
		WHERE equipment_id = $1 AND date >= $2 AND date <= $3`

	var total float64
	err := r.db.Pool.QueryRow(ctx, query, equipmentID, from, to).Scan(&total)
	return total, err
}

// SumMaintenanceByEquipment aggregates maintenance costs per equipment across
// a company's fleet. Paginated for providers with large equipment sets.
func (r *Repository) SumMaintenanceByEquipment(ctx context.Context, companyID string, from, to time.Time, page, limit int) ([]MaintenanceTotal, error) {
	if limit <= 0 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}

	query := `
		SELECT e.id, COUNT(m.id), COALESCE(SUM(m.cost), 0)
		FROM equipment e
		LEFT JOIN maintenance_records m
			ON m.equipment_id = e.id AND m.date >= $2 AND m.date <= $3
		WHERE e.company_id = $1
		GROUP BY e.id
		ORDER BY e.id
		LIMIT $4 OFFSET $5`

	rows, err := r.db.Pool.Query(ctx, query, companyID, from, to, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []MaintenanceTotal
	for rows.Next() {
		var t MaintenanceTotal
		if err := rows.Scan(&t.EquipmentID, &t.RecordCount, &t.TotalCost); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	return totals, rows.Err()
}
