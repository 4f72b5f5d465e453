package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metric descriptors for the runtime. It
// implements economy.MetricsSink for transaction outcomes; everything
// else is refreshed from the component tree on scrape.
type Metrics struct {
	rt        *Runtime
	startTime time.Time

	transactionsTotal *prometheus.CounterVec
	componentUp       *prometheus.GaugeVec
	storeEntries      *prometheus.GaugeVec
	uptimeSeconds     prometheus.Gauge
	memoryHeapBytes   prometheus.Gauge
	goroutines        prometheus.Gauge
}

// NewMetrics creates and registers the runtime's Prometheus metrics.
func NewMetrics(startTime time.Time) *Metrics {
	m := &Metrics{
		startTime: startTime,
		transactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stonewarden_transactions_total",
			Help: "Executed transactions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		componentUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stonewarden_component_loaded",
			Help: "Whether a top-level component is loaded (1) or not (0).",
		}, []string{"component"}),
		storeEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stonewarden_store_entries",
			Help: "Cached entries per persistent store.",
		}, []string{"store"}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stonewarden_uptime_seconds",
			Help: "Daemon uptime in seconds.",
		}),
		memoryHeapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stonewarden_memory_heap_bytes",
			Help: "Go heap memory allocated in bytes.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stonewarden_goroutines",
			Help: "Number of active goroutines.",
		}),
	}

	prometheus.MustRegister(
		m.transactionsTotal,
		m.componentUp,
		m.storeEntries,
		m.uptimeSeconds,
		m.memoryHeapBytes,
		m.goroutines,
	)

	return m
}

// Observe binds the metrics to a runtime; gauges read from it on every
// Update.
func (m *Metrics) Observe(rt *Runtime) { m.rt = rt }

// TransactionExecuted implements economy.MetricsSink.
func (m *Metrics) TransactionExecuted(kind string, succeeded bool) {
	outcome := "failed"
	if succeeded {
		outcome = "succeeded"
	}
	m.transactionsTotal.WithLabelValues(kind, outcome).Inc()
}

// Update refreshes all gauge metrics from current runtime state.
func (m *Metrics) Update() {
	if m.rt != nil {
		for _, c := range m.rt.Children() {
			up := 0.0
			if c.Loaded() {
				up = 1
			}
			m.componentUp.WithLabelValues(c.Name()).Set(up)
		}
		for _, c := range m.rt.Stores().Children() {
			if !c.Loaded() {
				continue
			}
			if s, ok := c.(interface{ Len() int }); ok {
				m.storeEntries.WithLabelValues(c.Name()).Set(float64(s.Len()))
			}
		}
	}

	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.memoryHeapBytes.Set(float64(mem.HeapAlloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
}

// Handler returns an http.Handler that updates metrics before serving
// them.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		promhttp.Handler().ServeHTTP(w, r)
	})
}
