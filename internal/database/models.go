package database

import "time"

// Partnership represents a partner's ownership stake in a company.
// Rows are never deleted; deactivation preserves history for prior
// distributions.
type Partnership struct {
	ID                  string     `json:"id"`
	CompanyID           string     `json:"company_id"`
	PartnerID           string     `json:"partner_id"`
	OwnershipPercentage float64    `json:"ownership_percentage"`
	Role                string     `json:"role"`
	InvestmentAmount    *float64   `json:"investment_amount,omitempty"`
	JoinDate            time.Time  `json:"join_date"`
	IsActive            bool       `json:"is_active"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	DeactivatedAt       *time.Time `json:"deactivated_at,omitempty"`
}

// Distribution status lifecycle
const (
	DistributionStatusCalculated  = "CALCULATED"
	DistributionStatusDistributed = "DISTRIBUTED"
	DistributionStatusPaid        = "PAID"
)

// ProfitDistribution represents one company's profit for one month.
// Exactly one row exists per (company_id, month).
type ProfitDistribution struct {
	ID               string     `json:"id"`
	CompanyID        string     `json:"company_id"`
	Month            string     `json:"month"` // YYYY-MM
	TotalRevenue     float64    `json:"total_revenue"`
	TotalExpenses    float64    `json:"total_expenses"`
	EquipmentCosts   float64    `json:"equipment_costs"`
	OperationalCosts float64    `json:"operational_costs"`
	NetProfit        float64    `json:"net_profit"`
	DistributionDate *time.Time `json:"distribution_date,omitempty"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Partner share statuses
const (
	ShareStatusPending = "PENDING"
	ShareStatusPaid    = "PAID"
)

// PartnerShare represents one partner's portion of a distribution.
// Percentage is a snapshot taken at distribution time and never changes
// afterwards, even if the partnership record is later updated.
type PartnerShare struct {
	ID               string     `json:"id"`
	DistributionID   string     `json:"distribution_id"`
	PartnerID        string     `json:"partner_id"`
	ShareAmount      float64    `json:"share_amount"`
	Percentage       float64    `json:"percentage"`
	Status           string     `json:"status"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	PaymentMethod    *string    `json:"payment_method,omitempty"`
	PaymentReference *string    `json:"payment_reference,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Equipment statuses
const (
	EquipmentStatusInService = "IN_SERVICE"
	EquipmentStatusRetired   = "RETIRED"
)

// Depreciation methods
const (
	DepreciationStraightLine     = "STRAIGHT_LINE"
	DepreciationDecliningBalance = "DECLINING_BALANCE"
)

// Equipment represents a piece of network equipment owned by a company.
// Maintained by the equipment registry subsystem; read-only here.
type Equipment struct {
	ID                      string     `json:"id"`
	CompanyID               string     `json:"company_id"`
	Name                    string     `json:"name"`
	PurchaseCost            float64    `json:"purchase_cost"`
	PurchaseDate            time.Time  `json:"purchase_date"`
	MonthlyDepreciationRate float64    `json:"monthly_depreciation_rate"` // percent per month
	DepreciationMethod      string     `json:"depreciation_method"`
	Status                  string     `json:"status"`
	LastMaintenanceDate     *time.Time `json:"last_maintenance_date,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}

// MaintenanceRecord is an append-only maintenance cost entry for equipment
type MaintenanceRecord struct {
	ID          string    `json:"id"`
	EquipmentID string    `json:"equipment_id"`
	Date        time.Time `json:"date"`
	Cost        float64   `json:"cost"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// SystemEvent records a business transition for the audit trail
type SystemEvent struct {
	ID        int64     `json:"id"`
	EventType string    `json:"event_type"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Data      []byte    `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}
