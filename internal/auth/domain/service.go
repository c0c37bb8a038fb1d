package domain

import (
	"context"
	"time"
)

type Service interface {
	LoginAgent(ctx context.Context, req LoginRequest) (*LoginResult, error)
	LoginAdmin(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Authenticate(ctx context.Context, rawToken string) (*Principal, error)
}

// LoginRequest carries credentials. Agents log in by email, the admin by username.
type LoginRequest struct {
	Identifier string
	Password   string
}

type LoginResult struct {
	Principal Principal
	RawToken  string
	ExpiresAt time.Time
}
