package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned when a database uniqueness constraint rejects a
// write. Services map these onto the business error taxonomy.
var (
	ErrDuplicateDistribution = errors.New("distribution already exists for this company and month")
	ErrDuplicatePartnership  = errors.New("active partnership already exists for this company and partner")
)

// ErrDistributionNotCalculated is returned when a conditional status flip
// finds the distribution no longer in CALCULATED state. Unlike a storage
// failure, retrying cannot succeed.
var ErrDistributionNotCalculated = errors.New("distribution is not in CALCULATED state")

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// GetDB returns the underlying DB instance
func (r *Repository) GetDB() *DB {
	return r.db
}

// isUniqueViolation reports whether err is a violation of the named unique index
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

// ============================================================================
// SYSTEM EVENTS
// ============================================================================

// RecordSystemEvent inserts an audit trail entry
func (r *Repository) RecordSystemEvent(ctx context.Context, eventType, source, message string, data map[string]interface{}) error {
	var payload []byte
	if data != nil {
		payload, _ = json.Marshal(data)
	}

	query := `
		INSERT INTO system_events (event_type, source, message, data, timestamp)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Pool.Exec(ctx, query, eventType, source, message, payload, time.Now().UTC())
	return err
}

// GetRecentSystemEvents returns the latest audit trail entries
func (r *Repository) GetRecentSystemEvents(ctx context.Context, limit int) ([]SystemEvent, error) {
	query := `
		SELECT id, event_type, COALESCE(source, ''), COALESCE(message, ''), data, timestamp, created_at
		FROM system_events
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []SystemEvent
	for rows.Next() {
		var e SystemEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.Source, &e.Message, &e.Data, &e.Timestamp, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
