package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ListAgentFilter struct {
	Search string
	Level  Level
}

// UpdateFields carries the columns an admin edit may change. Nil fields are left untouched.
type UpdateFields struct {
	Name                             *string
	Email                            *string
	PasswordHash                     *string
	Level                            *Level
	AgentCommissionPercentage        *decimal.Decimal
	OrganizationCommissionPercentage *decimal.Decimal
	UpdatedAt                        time.Time
}

// Repository persists agents. Lookups return nil, nil when no row matches.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, agent *Agent) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Agent, error)
	// FindByIDForUpdate locks the row for the rest of the transaction where the dialect supports it.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Agent, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Agent, error)
	List(ctx context.Context, db *gorm.DB, filter ListAgentFilter) ([]*Agent, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields UpdateFields) (bool, error)
	// IncrementTotalSales adds delta to total_sales in a single statement. It
	// reports false when the agent does not exist.
	IncrementTotalSales(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64, at time.Time) (bool, error)
	// Promote moves an L1 agent to L2 when its stored total reaches threshold.
	// It reports whether a row changed.
	Promote(ctx context.Context, db *gorm.DB, id snowflake.ID, threshold int64, at time.Time) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
