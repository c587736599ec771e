package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/tipcast/tipcast/internal/alertqueue"
	"github.com/tipcast/tipcast/internal/bank"
	"github.com/tipcast/tipcast/internal/clock"
	"github.com/tipcast/tipcast/internal/config"
	"github.com/tipcast/tipcast/internal/logger"
	"github.com/tipcast/tipcast/internal/metrics"
	"github.com/tipcast/tipcast/internal/migration"
	"github.com/tipcast/tipcast/internal/realtime"
	"github.com/tipcast/tipcast/internal/security"
	"github.com/tipcast/tipcast/internal/server"
	"github.com/tipcast/tipcast/internal/streamer"
	"github.com/tipcast/tipcast/internal/syncer"
	"github.com/tipcast/tipcast/internal/transaction"
	"github.com/tipcast/tipcast/pkg/db"
	"go.uber.org/fx"
)

// RegisterSnowflake provides the process-wide ID generator.
func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		migration.Module,

		// Domains
		streamer.Module,
		transaction.Module,
		security.Module,
		bank.Module,
		alertqueue.Module,
		realtime.Module,
		syncer.Module,

		server.Module,
	)

	app.Run()
}
