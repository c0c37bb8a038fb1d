package reconcile

import (
	"context"
	"time"

	auditdomain "github.com/smallbiznis/realtyledger/internal/audit/domain"
	"github.com/smallbiznis/realtyledger/internal/auditcontext"
	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/smallbiznis/realtyledger/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	lockKey        = "realtyledger:reconcile:lock"
	defaultTimeout = 5 * time.Minute
)

type WorkerParams struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Service *Service
	Locker  *ratelimit.Locker `optional:"true"`
}

// Worker runs CheckAll on a fixed interval. With Redis configured only one
// replica scans per tick.
type Worker struct {
	log      *zap.Logger
	svc      *Service
	locker   *ratelimit.Locker
	interval time.Duration
	timeout  time.Duration
}

func NewWorker(p WorkerParams) *Worker {
	interval := p.Config.ReconcileInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	timeout := defaultTimeout
	if interval < timeout {
		timeout = interval
	}
	return &Worker{
		log:      p.Log.Named("reconcile.worker"),
		svc:      p.Service,
		locker:   p.Locker,
		interval: interval,
		timeout:  timeout,
	}
}

// RunOnce performs one guarded scan. It returns false when another replica
// holds the lock.
func (w *Worker) RunOnce(parent context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(parent, w.timeout)
	defer cancel()
	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "reconciler")

	start := time.Now()
	ran, err := w.locker.WithLock(ctx, lockKey, w.timeout, func(ctx context.Context) error {
		report, err := w.svc.CheckAll(ctx)
		if err != nil {
			return err
		}
		w.log.Info("reconciliation finished",
			zap.Int("checked", report.Checked),
			zap.Int("drifted", len(report.Drifted)),
			zap.Duration("took", time.Since(start)),
		)
		return nil
	})
	if !ran && err == nil {
		w.log.Debug("reconciliation skipped; lock held elsewhere")
	}
	return ran, err
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Warn("reconciliation failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
