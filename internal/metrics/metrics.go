package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/warplog/internal/model"
)

const namespace = "warplog"

// Metrics holds the sync engine's collectors. A nil *Metrics records nothing.
type Metrics struct {
	pagesFetched    *prometheus.CounterVec
	recordsFetched  *prometheus.CounterVec
	recordsInserted *prometheus.CounterVec
	syncRuns        *prometheus.CounterVec
	syncDuration    *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		pagesFetched: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_fetched_total",
				Help:      "Upstream record pages fetched, by pool",
			},
			[]string{"pool"},
		),
		recordsFetched: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_fetched_total",
				Help:      "Records received from the upstream, by pool",
			},
			[]string{"pool"},
		),
		recordsInserted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_inserted_total",
				Help:      "Records newly persisted, by ingestion kind",
			},
			[]string{"kind"},
		),
		syncRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Refresh runs, by mode and result",
			},
			[]string{"mode", "result"},
		),
		syncDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Refresh run duration",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"mode"},
		),
	}
}

// ObservePage records one fetched page.
func (m *Metrics) ObservePage(pool model.GachaType, items int) {
	if m == nil {
		return
	}
	m.pagesFetched.WithLabelValues(string(pool)).Inc()
	m.recordsFetched.WithLabelValues(string(pool)).Add(float64(items))
}

// AddInserted records n newly persisted records. kind is "sync" or "import".
func (m *Metrics) AddInserted(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsInserted.WithLabelValues(kind).Add(float64(n))
}

// ObserveSync records one finished refresh.
func (m *Metrics) ObserveSync(mode, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(mode, result).Inc()
	m.syncDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// Handler serves the collectors of g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
