package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type SortField string

const (
	SortBySaleDate  SortField = "sale_date"
	SortByAmount    SortField = "amount"
	SortByCreatedAt SortField = "created_at"
)

type ListSaleFilter struct {
	AgentID  *snowflake.ID
	Status   Status
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
}

type ListSort struct {
	Field      SortField
	Descending bool
}

// Repository persists sales. Lookups return nil, nil when no row matches.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sale *Sale) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Sale, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Sale, error)
	FindView(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SaleRow, error)
	List(ctx context.Context, db *gorm.DB, filter ListSaleFilter, sort ListSort, limit, offset int) ([]*SaleRow, error)
	Update(ctx context.Context, db *gorm.DB, sale *Sale) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	SummarizeByStatus(ctx context.Context, db *gorm.DB, filter ListSaleFilter) ([]StatusTotals, error)
	// SumContributions totals the counted amount of each agent's sales. A nil
	// agentID sums every agent.
	SumContributions(ctx context.Context, db *gorm.DB, agentID *snowflake.ID) (map[snowflake.ID]int64, error)
}
