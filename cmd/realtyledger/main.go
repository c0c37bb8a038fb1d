package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/realtyledger/internal/clock"
	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/smallbiznis/realtyledger/internal/migration"
	"github.com/smallbiznis/realtyledger/internal/observability"
	"github.com/smallbiznis/realtyledger/internal/seed"
	"github.com/smallbiznis/realtyledger/internal/server"
	"github.com/smallbiznis/realtyledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface plus the ledger, auth, reporting and reconciliation domains
		server.Module,
		seed.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
