package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Faultbox/scape/internal/roster"
	"github.com/Faultbox/scape/internal/scene"
)

const namespace = "scape"

// metrics holds the server's collectors on a private registry so several
// servers (and tests) can coexist in one process.
type metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	modelResults *prometheus.CounterVec
	modelSeconds prometheus.Histogram
}

func newMetrics(store *roster.Store) *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		modelResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_total",
			Help:      "Room model requests by outcome.",
		}, []string{"result"}),
		modelSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_process_seconds",
			Help:      "Time spent reading and processing GLB files.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}

	for _, kind := range []scene.Kind{scene.KindDevice, scene.KindParticipant} {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "roster_entities",
			Help:        "Entities currently in the roster.",
			ConstLabels: prometheus.Labels{"kind": string(kind)},
		}, func() float64 { return float64(len(store.List(kind))) })
	}
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "roster_streams",
		Help:      "Open roster websocket streams.",
	}, func() float64 { return float64(store.Subscribers()) })

	return m
}

// instrument counts and times h under the route label.
func (m *metrics) instrument(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	h = promhttp.InstrumentHandlerDuration(m.duration.MustCurryWith(labels), h)
	return promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(labels), h)
}

// handler exposes the registry in the Prometheus text format.
func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
