package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// ParseStatus normalizes a caller supplied status. Blank input is pending.
func ParseStatus(value string) (Status, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return StatusPending, nil
	}
	status := Status(value)
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// Sale is one ledger entry. AgentName and the percentage fields are copied
// from the agent when the sale is written and are not kept in sync afterwards.
type Sale struct {
	ID                               snowflake.ID    `gorm:"primaryKey" json:"id"`
	AgentID                          snowflake.ID    `gorm:"not null;index" json:"agent_id"`
	AgentName                        string          `gorm:"type:varchar(255);not null" json:"agent_name"`
	CustomerName                     string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	ProductName                      string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Description                      string          `gorm:"type:text;not null;default:''" json:"description"`
	Notes                            string          `gorm:"type:text;not null;default:''" json:"notes,omitempty"`
	Amount                           int64           `gorm:"not null" json:"amount"`
	SaleDate                         time.Time       `gorm:"not null;index" json:"sale_date"`
	Status                           Status          `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	AgentCommissionPercentage        decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"agent_commission_percentage"`
	OrganizationCommissionPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"organization_commission_percentage"`
	AgentCommissionAmount            int64           `gorm:"not null" json:"agent_commission_amount"`
	OrganizationCommissionAmount     int64           `gorm:"not null" json:"organization_commission_amount"`
	CountedAmount                    int64           `gorm:"not null;default:0" json:"counted_amount"`
	CreatedAt                        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt                        time.Time       `gorm:"not null" json:"updated_at"`
}

func (Sale) TableName() string { return "sales" }

// Contribution is the amount this sale adds to its agent's total sales under
// the given policy. The value actually applied is stored in CountedAmount.
func (s Sale) Contribution(countCancelled bool) int64 {
	if s.Status == StatusCancelled && !countCancelled {
		return 0
	}
	return s.Amount
}

// AgentRef is the live agent behind a sale. It is nil on reads when the agent
// has been deleted.
type AgentRef struct {
	ID    snowflake.ID `json:"id"`
	Name  string       `json:"name"`
	Email string       `json:"email"`
	Level string       `json:"level"`
}

// SaleView is a sale joined with its agent for display.
type SaleView struct {
	Sale
	Agent            *AgentRef `json:"agent"`
	AgentDisplayName string    `json:"agent_display_name"`
}

// SaleRow is the scan target for sales LEFT JOIN agents.
type SaleRow struct {
	Sale
	LiveAgentID    *int64  `gorm:"column:live_agent_id"`
	LiveAgentName  *string `gorm:"column:live_agent_name"`
	LiveAgentEmail *string `gorm:"column:live_agent_email"`
	LiveAgentLevel *string `gorm:"column:live_agent_level"`
}

// View resolves the joined agent, falling back to the snapshot name for orphans.
func (r SaleRow) View() SaleView {
	view := SaleView{Sale: r.Sale, AgentDisplayName: r.AgentName}
	if r.LiveAgentID == nil || *r.LiveAgentID == 0 {
		return view
	}
	ref := &AgentRef{ID: snowflake.ID(*r.LiveAgentID)}
	if r.LiveAgentName != nil {
		ref.Name = *r.LiveAgentName
		view.AgentDisplayName = *r.LiveAgentName
	}
	if r.LiveAgentEmail != nil {
		ref.Email = *r.LiveAgentEmail
	}
	if r.LiveAgentLevel != nil {
		ref.Level = *r.LiveAgentLevel
	}
	view.Agent = ref
	return view
}

// Summary aggregates amounts over a filtered set of sales.
type Summary struct {
	SaleCount                   int64            `json:"sale_count"`
	TotalAmount                 int64            `json:"total_amount"`
	TotalAgentCommission        int64            `json:"total_agent_commission"`
	TotalOrganizationCommission int64            `json:"total_organization_commission"`
	CountByStatus               map[Status]int64 `json:"count_by_status"`
	AmountByStatus              map[Status]int64 `json:"amount_by_status"`
}

// StatusTotals is one GROUP BY status row.
type StatusTotals struct {
	Status                      Status
	SaleCount                   int64
	TotalAmount                 int64
	TotalAgentCommission        int64
	TotalOrganizationCommission int64
}
