package auth

import (
	"github.com/smallbiznis/realtyledger/internal/auth/password"
	"github.com/smallbiznis/realtyledger/internal/auth/service"
	"github.com/smallbiznis/realtyledger/internal/auth/session"
	"github.com/smallbiznis/realtyledger/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(password.ProvideHasher),
	fx.Provide(token.NewIssuer),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)
