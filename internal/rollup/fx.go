package rollup

import (
	"context"
	"time"

	"github.com/smallbiznis/airbill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rollup",
	fx.Provide(New),
	fx.Invoke(runSweeper),
)

// runSweeper drains the rollup backlog on an interval for the life of the
// application.
func runSweeper(lc fx.Lifecycle, svc *Service, cfg config.Config, log *zap.Logger) {
	interval := cfg.RollupInterval
	if interval <= 0 {
		interval = time.Minute
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(stopped)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						ctx, cancel := context.WithTimeout(context.Background(), interval)
						if err := svc.Drain(ctx); err != nil {
							log.Warn("rollup backlog sweep failed", zap.Error(err))
						}
						cancel()
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(done)
			select {
			case <-stopped:
			case <-ctx.Done():
			}
			return nil
		},
	})
}
