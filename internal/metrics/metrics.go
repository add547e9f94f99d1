package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "outage_watch"

// Cycle results.
const (
	ResultOK      = "ok"
	ResultAborted = "aborted"
	ResultFailed  = "failed"
)

// Metrics groups the watcher collectors. A nil *Metrics records nothing.
type Metrics struct {
	// registry owns every collector below.
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	rows          prometheus.Gauge
	events        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	published     *prometheus.CounterVec
}

// New creates the collectors and registers them with runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Poll cycles by result.",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of poll cycles.",
			Buckets:   prometheus.DefBuckets,
		}),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_rows",
			Help:      "Monitored rows seen in the last successful fetch.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_appended_total",
			Help:      "Events appended to the history by kind.",
		}, []string{"kind"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications by kind (text, photo) and result.",
		}, []string{"kind", "result"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events written to the event feed by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cycles,
		m.cycleDuration,
		m.rows,
		m.events,
		m.notifications,
		m.published,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

// CycleFinished records a finished cycle.
func (m *Metrics) CycleFinished(result string, duration time.Duration) {
	if m == nil {
		return
	}

	m.cycles.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(duration.Seconds())
}

// RowsSeen sets the number of rows of the last fetch.
func (m *Metrics) RowsSeen(n int) {
	if m == nil {
		return
	}

	m.rows.Set(float64(n))
}

// EventAppended counts an appended event.
func (m *Metrics) EventAppended(kind string) {
	if m == nil {
		return
	}

	m.events.WithLabelValues(kind).Inc()
}

// Notification counts a delivery attempt.
func (m *Metrics) Notification(kind string, err error) {
	if m == nil {
		return
	}

	m.notifications.WithLabelValues(kind, result(err)).Inc()
}

// Published counts a feed write.
func (m *Metrics) Published(err error) {
	if m == nil {
		return
	}

	m.published.WithLabelValues(result(err)).Inc()
}

// result maps an error to a label value.
func result(err error) string {
	if err != nil {
		return ResultFailed
	}

	return ResultOK
}
