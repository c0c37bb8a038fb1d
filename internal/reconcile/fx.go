package reconcile

import (
	"context"

	"github.com/smallbiznis/realtyledger/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("reconcile",
	fx.Provide(NewDriftGauge),
	fx.Provide(NewService),
	fx.Provide(NewWorker),
	fx.Invoke(startWorker),
)

func startWorker(lc fx.Lifecycle, cfg config.Config, worker *Worker) {
	if !cfg.ReconcileEnabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go worker.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
			return nil
		},
	})
}
