package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	agentdomain "github.com/smallbiznis/realtyledger/internal/agent/domain"
	saledomain "github.com/smallbiznis/realtyledger/internal/sale/domain"
)

type StatementRequest struct {
	AgentID  string
	DateFrom *time.Time
	DateTo   *time.Time
}

// Statement is an agent header followed by every sale in the period.
// Commission amounts are the snapshotted values stored on each sale.
type Statement struct {
	AgentID                          snowflake.ID      `json:"agent_id"`
	AgentName                        string            `json:"agent_name"`
	AgentEmail                       string            `json:"agent_email"`
	Level                            agentdomain.Level `json:"level"`
	TotalSales                       int64             `json:"total_sales"`
	PromotionThreshold               int64             `json:"promotion_threshold"`
	TargetRemaining                  int64             `json:"target_remaining"`
	AgentCommissionPercentage        decimal.Decimal   `json:"agent_commission_percentage"`
	OrganizationCommissionPercentage decimal.Decimal   `json:"organization_commission_percentage"`
	DateFrom                         *time.Time        `json:"date_from,omitempty"`
	DateTo                           *time.Time        `json:"date_to,omitempty"`
	Lines                            []StatementLine   `json:"lines"`
	TotalAmount                      int64             `json:"total_amount"`
	TotalAgentCommission             int64             `json:"total_agent_commission"`
	TotalOrganizationCommission      int64             `json:"total_organization_commission"`
	GeneratedAt                      time.Time         `json:"generated_at"`
}

type StatementLine struct {
	SaleID                       snowflake.ID      `json:"sale_id"`
	SaleDate                     time.Time         `json:"sale_date"`
	CustomerName                 string            `json:"customer_name"`
	ProductName                  string            `json:"product_name"`
	Status                       saledomain.Status `json:"status"`
	Amount                       int64             `json:"amount"`
	AgentCommissionAmount        int64             `json:"agent_commission_amount"`
	OrganizationCommissionAmount int64             `json:"organization_commission_amount"`
}

type Service interface {
	Summary(ctx context.Context, req saledomain.SummaryRequest) (saledomain.Summary, error)
	AgentStatement(ctx context.Context, req StatementRequest) (Statement, error)
	RenderStatement(ctx context.Context, statement Statement) (io.Reader, error)
}

var (
	ErrInvalidAgent = errors.New("invalid_agent")
	ErrNotFound     = errors.New("not_found")
	ErrRenderFailed = errors.New("render_failed")
)
