package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Level string

const (
	LevelL1 Level = "L1"
	LevelL2 Level = "L2"
)

func (l Level) Valid() bool {
	return l == LevelL1 || l == LevelL2
}

// rank orders levels so that promotion only ever moves upward.
func (l Level) rank() int {
	if l == LevelL2 {
		return 2
	}
	return 1
}

type Agent struct {
	ID                               snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name                             string          `gorm:"type:varchar(255);not null" json:"name"`
	Email                            string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash                     string          `gorm:"not null" json:"-"`
	Level                            Level           `gorm:"type:varchar(8);not null;default:L1" json:"level"`
	TotalSales                       int64           `gorm:"not null;default:0" json:"total_sales"`
	AgentCommissionPercentage        decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"agent_commission_percentage"`
	OrganizationCommissionPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"organization_commission_percentage"`
	CreatedAt                        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt                        time.Time       `gorm:"not null" json:"updated_at"`
}

func (Agent) TableName() string { return "agents" }
