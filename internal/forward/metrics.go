package forward

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics は転送処理のPrometheusメトリクス。
type Metrics struct {
	// AttemptsTotal は送信試行の回数。result=success/failure。
	AttemptsTotal *prometheus.CounterVec
	// OutcomesTotal は転送の最終結果。outcome=delivered/abandoned。
	OutcomesTotal *prometheus.CounterVec
	// RetriesScheduled は予約した再試行の回数。
	RetriesScheduled prometheus.Counter
	// InFlight は完了または断念していない転送の数。
	InFlight prometheus.Gauge
	// PersistFailures は失敗記録の書き込みに失敗した回数。
	PersistFailures prometheus.Counter
}

// NewMetrics はメトリクスを生成してレジストリに登録する。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		AttemptsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Subsystem: "forward",
				Name:      "attempts_total",
				Help:      "Total number of outbound forward attempts",
			},
			[]string{"result"},
		),
		OutcomesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Subsystem: "forward",
				Name:      "outcomes_total",
				Help:      "Total number of finished forwards by outcome",
			},
			[]string{"outcome"},
		),
		RetriesScheduled: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Subsystem: "forward",
				Name:      "retries_scheduled_total",
				Help:      "Total number of scheduled forward retries",
			},
		),
		InFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "schemagate",
				Subsystem: "forward",
				Name:      "in_flight",
				Help:      "Number of forwards neither delivered nor abandoned",
			},
		),
		PersistFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Subsystem: "forward",
				Name:      "persist_failures_total",
				Help:      "Total number of failure records that could not be written",
			},
		),
	}
}
