package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/realtyledger/pkg/db/pagination"
)

type RecordSaleRequest struct {
	AgentID      string
	CustomerName string
	ProductName  string
	Description  string
	Notes        string
	Amount       int64
	SaleDate     *time.Time
	Status       string
}

// EditSaleRequest is a partial edit; nil fields keep their stored value.
type EditSaleRequest struct {
	ID           string
	AgentID      *string
	CustomerName *string
	ProductName  *string
	Description  *string
	Notes        *string
	Amount       *int64
	SaleDate     *time.Time
	Status       *string
}

type ListSaleRequest struct {
	pagination.Pagination
	AgentID   string
	Status    string
	DateFrom  *time.Time
	DateTo    *time.Time
	Search    string
	SortBy    string
	SortOrder string
}

type ListSaleResponse struct {
	pagination.PageInfo
	Sales []SaleView `json:"sales"`
}

type SummaryRequest struct {
	AgentID  string
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
}

// Service is the sales ledger. Every mutation keeps the owning agent's total
// sales and level consistent with the sale rows in the same transaction.
type Service interface {
	Record(ctx context.Context, req RecordSaleRequest) (Sale, error)
	Edit(ctx context.Context, req EditSaleRequest) (Sale, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (SaleView, error)
	List(ctx context.Context, req ListSaleRequest) (ListSaleResponse, error)
	ListByAgent(ctx context.Context, agentID string, req ListSaleRequest) (ListSaleResponse, error)
	Summarize(ctx context.Context, req SummaryRequest) (Summary, error)
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidAgent        = errors.New("invalid_agent")
	ErrInvalidCustomerName = errors.New("invalid_customer_name")
	ErrInvalidProductName  = errors.New("invalid_product_name")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidSort         = errors.New("invalid_sort")
	ErrInvalidTimeRange    = errors.New("invalid_time_range")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrAgentNotFound       = errors.New("agent_not_found")
	ErrNotFound            = errors.New("not_found")
)
