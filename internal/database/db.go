package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Printf("Successfully connected to PostgreSQL database: %s", cfg.Database)

	return &DB{Pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("Database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	log.Println("Running database migrations...")

	migrations := []string{
		// Create partnerships table
		`CREATE TABLE IF NOT EXISTS partnerships (
			id UUID PRIMARY KEY,
			company_id UUID NOT NULL,
			partner_id UUID NOT NULL,
			ownership_percentage DECIMAL(5, 2) NOT NULL,
			role VARCHAR(50) NOT NULL DEFAULT 'PARTNER',
			investment_amount DECIMAL(20, 2),
			join_date TIMESTAMP NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			deactivated_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_partnerships_company ON partnerships(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_partnerships_partner ON partnerships(partner_id)`,
		// Only one active partnership per (company, partner); deactivated rows stay
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_partnerships_company_partner_active
			ON partnerships(company_id, partner_id) WHERE is_active`,

		// Create profit_distributions table
		`CREATE TABLE IF NOT EXISTS profit_distributions (
			id UUID PRIMARY KEY,
			company_id UUID NOT NULL,
			month VARCHAR(7) NOT NULL,
			total_revenue DECIMAL(20, 2) NOT NULL,
			total_expenses DECIMAL(20, 2) NOT NULL,
			equipment_costs DECIMAL(20, 2) NOT NULL DEFAULT 0,
			operational_costs DECIMAL(20, 2) NOT NULL DEFAULT 0,
			net_profit DECIMAL(20, 2) NOT NULL,
			distribution_date TIMESTAMP,
			status VARCHAR(20) NOT NULL DEFAULT 'CALCULATED',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_distributions_company ON profit_distributions(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_distributions_status ON profit_distributions(status)`,
		// Hard invariant: one distribution per company per month
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_distributions_company_month
			ON profit_distributions(company_id, month)`,

		// Create partner_shares table
		`CREATE TABLE IF NOT EXISTS partner_shares (
			id UUID PRIMARY KEY,
			distribution_id UUID NOT NULL REFERENCES profit_distributions(id) ON DELETE CASCADE,
			partner_id UUID NOT NULL,
			share_amount DECIMAL(20, 2) NOT NULL,
			percentage DECIMAL(5, 2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			paid_at TIMESTAMP,
			payment_method VARCHAR(50),
			payment_reference VARCHAR(200),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_distribution ON partner_shares(distribution_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_partner ON partner_shares(partner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_status ON partner_shares(status)`,

		// Create equipment table
		`CREATE TABLE IF NOT EXISTS equipment (
			id UUID PRIMARY KEY,
			company_id UUID NOT NULL,
			name VARCHAR(200) NOT NULL,
			purchase_cost DECIMAL(20, 2) NOT NULL,
			purchase_date TIMESTAMP NOT NULL,
			monthly_depreciation_rate DECIMAL(8, 4) NOT NULL DEFAULT 0,
			depreciation_method VARCHAR(30) NOT NULL DEFAULT 'STRAIGHT_LINE',
			status VARCHAR(20) NOT NULL DEFAULT 'IN_SERVICE',
			last_maintenance_date TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_equipment_company ON equipment(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_equipment_status ON equipment(status)`,

		// Create maintenance_records table (append-only)
		`CREATE TABLE IF NOT EXISTS maintenance_records (
			id UUID PRIMARY KEY,
			equipment_id UUID NOT NULL REFERENCES equipment(id) ON DELETE CASCADE,
			date TIMESTAMP NOT NULL,
			cost DECIMAL(20, 2) NOT NULL,
			description TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_maintenance_equipment ON maintenance_records(equipment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_maintenance_date ON maintenance_records(date)`,

		// Create system events table
		`CREATE TABLE IF NOT EXISTS system_events (
			id SERIAL PRIMARY KEY,
			event_type VARCHAR(50) NOT NULL,
			source VARCHAR(100),
			message TEXT,
			data JSONB,
			timestamp TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_system_events_type ON system_events(event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_system_events_timestamp ON system_events(timestamp)`,

		// Create updated_at trigger function
		`CREATE OR REPLACE FUNCTION update_updated_at_column()
		RETURNS TRIGGER AS $$
		BEGIN
			NEW.updated_at = CURRENT_TIMESTAMP;
			RETURN NEW;
		END;
		$$ language 'plpgsql'`,

		// Create triggers for updated_at
		`DROP TRIGGER IF EXISTS update_partnerships_updated_at ON partnerships`,
		`CREATE TRIGGER update_partnerships_updated_at BEFORE UPDATE ON partnerships
		FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,

		`DROP TRIGGER IF EXISTS update_distributions_updated_at ON profit_distributions`,
		`CREATE TRIGGER update_distributions_updated_at BEFORE UPDATE ON profit_distributions
		FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,

		`DROP TRIGGER IF EXISTS update_shares_updated_at ON partner_shares`,
		`CREATE TRIGGER update_shares_updated_at BEFORE UPDATE ON partner_shares
		FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// HealthCheck performs a database health check
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
