package realtime

import (
	"context"
	"time"

	"github.com/tipcast/tipcast/internal/alertqueue"
	"github.com/tipcast/tipcast/internal/metrics"
	txdomain "github.com/tipcast/tipcast/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Dispatcher hands queued alerts to the hub and refreshes donation
// totals after each delivery.
type Dispatcher struct {
	hub     *Hub
	totals  txdomain.Service
	log     *zap.Logger
	metrics *metrics.Metrics
}

type DispatcherParams struct {
	fx.In

	Hub     *Hub
	Totals  txdomain.Service
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func NewDispatcher(p DispatcherParams) alertqueue.Dispatcher {
	return &Dispatcher{
		hub:     p.Hub,
		totals:  p.Totals,
		log:     p.Log.Named("realtime.dispatcher"),
		metrics: p.Metrics,
	}
}

func (d *Dispatcher) DeliverAlert(alert alertqueue.Alert) {
	d.hub.BroadcastAlert(alert)
	if d.metrics != nil {
		d.metrics.AlertsDelivered.Inc()
	}
}

func (d *Dispatcher) RefreshTotals(streamerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.totals.Broadcast(ctx, streamerID); err != nil {
		d.log.Error("refresh donation totals",
			zap.String("streamer_id", streamerID),
			zap.Error(err),
		)
	}
}
