package syncer

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/tipcast/tipcast/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func registerJobs(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Syncer) error {
	c := cron.New(cron.WithSeconds())

	if _, err := c.AddFunc(cfg.Sync.Cron, func() {
		s.RunCycle(context.Background())
	}); err != nil {
		return err
	}
	if _, err := c.AddFunc(cfg.Sync.PurgeCron, func() {
		s.PurgeViolations(context.Background())
	}); err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("bank sync scheduler starting",
				zap.String("sync_cron", cfg.Sync.Cron),
				zap.String("purge_cron", cfg.Sync.PurgeCron),
			)
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := c.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}

var Module = fx.Module("syncer",
	fx.Provide(New),
	fx.Invoke(registerJobs),
)
