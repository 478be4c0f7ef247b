package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// outcome はリクエストの処理結果。メトリクスのラベルに使う。
const (
	outcomeAccepted    = "accepted"
	outcomeDenied      = "denied"
	outcomeInvalidBody = "invalid_body"
	outcomeTransform   = "transform_error"
	outcomeError       = "error"
)

// Metrics はスキーマルートのPrometheusメトリクス。
type Metrics struct {
	// RequestsTotal はルートごとの処理結果の件数。
	RequestsTotal *prometheus.CounterVec
	// RoutesRegistered は公開しているスキーマルートの数。
	RoutesRegistered prometheus.Gauge
}

// NewMetrics はメトリクスを生成してレジストリに登録する。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total number of requests handled by schema routes",
			},
			[]string{"route", "method", "outcome"},
		),
		RoutesRegistered: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "schemagate",
				Subsystem: "gateway",
				Name:      "routes_registered",
				Help:      "Number of schema routes currently served",
			},
		),
	}
}
