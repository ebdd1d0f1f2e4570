package privatepub

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/privatepub/privatepub/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics interface {
	// MessagePublished collects metrics about messages sent to the Faye server.
	MessagePublished(m *Message)
	// Authorized collects metrics about accepted subscriptions and publications.
	Authorized(channel string, action Action)
	// Rejected collects metrics about refused subscriptions and publications.
	Rejected(channel string, action Action, reason error)
}

type NopMetrics struct{}

func (NopMetrics) MessagePublished(*Message)      {}
func (NopMetrics) Authorized(string, Action)      {}
func (NopMetrics) Rejected(string, Action, error) {}

// PrometheusMetrics store collected metrics.
type PrometheusMetrics struct {
	registry          prometheus.Registerer
	messagesPublished prometheus.Counter
	authorizations    *prometheus.CounterVec
}

// NewPrometheusMetrics creates a Prometheus metrics collector.
// This method must be called only one time or it will panic.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &PrometheusMetrics{
		registry: registry,
		messagesPublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "privatepub_messages_published_total",
				Help: "Total number of messages sent to the Faye server",
			},
		),
		authorizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "privatepub_authorizations_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"action", "result"},
		),
	}

	m.registry.MustRegister(m.messagesPublished)
	m.registry.MustRegister(m.authorizations)

	return m
}

// Register exposes the collected metrics, along with version and process metrics, on the router.
func (m *PrometheusMetrics) Register(r *mux.Router) {
	m.registry.MustRegister(common.AppVersion.NewMetricsCollector())

	// Go-specific metrics about the process (GC stats, goroutines, etc.).
	m.registry.MustRegister(prometheus.NewGoCollector())
	// Go-unrelated process metrics (memory usage, file descriptors, etc.).
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	r.Handle("/metrics", promhttp.HandlerFor(m.registry.(*prometheus.Registry), promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

// MessagePublished isn't labeled by channel: channels are often per resource, such as /messages/42.
func (m *PrometheusMetrics) MessagePublished(*Message) {
	m.messagesPublished.Inc()
}

func (m *PrometheusMetrics) Authorized(_ string, action Action) {
	m.authorizations.WithLabelValues(string(action), "accepted").Inc()
}

func (m *PrometheusMetrics) Rejected(_ string, action Action, _ error) {
	m.authorizations.WithLabelValues(string(action), "rejected").Inc()
}
