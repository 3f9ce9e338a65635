package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AttemptsKey is the event data key whose integer value PrometheusObserver
// records in the attempts histogram.
const AttemptsKey = "attempts"

// PrometheusObserver counts events by type and records the attempt count
// carried by events that finish a call.
type PrometheusObserver struct {
	events   *prometheus.CounterVec
	attempts prometheus.Histogram
}

// NewPrometheusObserver registers the observer's collectors with registerer.
// A nil registerer uses prometheus.DefaultRegisterer.
func NewPrometheusObserver(registerer prometheus.Registerer) *PrometheusObserver {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusObserver{
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storageproxy_events_total",
				Help: "Total number of storage events by type",
			},
			[]string{"type"},
		),
		attempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "storageproxy_call_attempts",
				Help:    "Attempts used by finished storage calls",
				Buckets: []float64{1, 2, 3, 5, 8, 13},
			},
		),
	}
}

func (o *PrometheusObserver) OnEvent(ctx context.Context, event Event) {
	o.events.WithLabelValues(string(event.Type)).Inc()

	if n, ok := event.Data[AttemptsKey].(int); ok {
		o.attempts.Observe(float64(n))
	}
}

// MetricsHandler serves the metrics gathered by gatherer in the Prometheus
// exposition format.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
