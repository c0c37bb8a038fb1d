package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type CreateAgentRequest struct {
	Name                             string
	Email                            string
	Password                         string
	Level                            Level
	TotalSales                       int64
	AgentCommissionPercentage        *decimal.Decimal
	OrganizationCommissionPercentage *decimal.Decimal
}

type UpdateAgentRequest struct {
	ID                               string
	Name                             *string
	Email                            *string
	Password                         *string
	Level                            *Level
	AgentCommissionPercentage        *decimal.Decimal
	OrganizationCommissionPercentage *decimal.Decimal
}

type ListAgentRequest struct {
	Search string
	Level  string
}

type Service interface {
	Create(ctx context.Context, req CreateAgentRequest) (Agent, error)
	Update(ctx context.Context, req UpdateAgentRequest) (Agent, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Agent, error)
	List(ctx context.Context, req ListAgentRequest) ([]Agent, error)
	// Authenticate verifies agent credentials and returns the agent on success.
	Authenticate(ctx context.Context, email, password string) (Agent, error)
}

var (
	ErrInvalidName            = errors.New("invalid_name")
	ErrInvalidEmail           = errors.New("invalid_email")
	ErrInvalidPassword        = errors.New("invalid_password")
	ErrInvalidCommissionSplit = errors.New("invalid_commission_split")
	ErrInvalidLevel           = errors.New("invalid_level")
	ErrInvalidTotalSales      = errors.New("invalid_total_sales")
	ErrInvalidID              = errors.New("invalid_id")
	ErrEmailExists            = errors.New("email_exists")
	ErrNotFound               = errors.New("not_found")
	ErrInvalidCredentials     = errors.New("invalid_credentials")
)
