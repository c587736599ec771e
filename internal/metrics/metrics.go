package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics carries the counters and gauges exported by the alert pipeline.
type Metrics struct {
	SyncCycles           prometheus.Counter
	SyncFailures         *prometheus.CounterVec
	TransactionsIngested prometheus.Counter
	DuplicatesSkipped    prometheus.Counter
	AlertsEnqueued       prometheus.Counter
	AlertsDelivered      prometheus.Counter
	SecurityViolations   *prometheus.CounterVec
	ConnectedWidgets     prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SyncCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "tipcast_sync_cycles_total",
			Help: "Completed bank sync cycles.",
		}),
		SyncFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tipcast_sync_failures_total",
			Help: "Per-streamer sync failures by reason.",
		}, []string{"reason"}),
		TransactionsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "tipcast_transactions_ingested_total",
			Help: "New bank transactions stored.",
		}),
		DuplicatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "tipcast_transactions_duplicate_total",
			Help: "Bank transactions skipped as already stored.",
		}),
		AlertsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "tipcast_alerts_enqueued_total",
			Help: "Donation alerts accepted into dispatch queues.",
		}),
		AlertsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "tipcast_alerts_delivered_total",
			Help: "Donation alerts broadcast to widget rooms.",
		}),
		SecurityViolations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tipcast_security_violations_total",
			Help: "Security gate rejections by violation type.",
		}, []string{"type"}),
		ConnectedWidgets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tipcast_connected_widgets",
			Help: "Currently connected OBS widget sockets.",
		}),
	}
}
