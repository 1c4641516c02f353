package observability

import (
	"github.com/rs/zerolog/log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pricedrop", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pricedrop", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pricedrop", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pricedrop", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60}, // model calls with search take tens of seconds
		},
		[]string{"service", "endpoint"},
	)
	OfferFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pricedrop", Name: "offer_fallbacks_total", Help: "Acquisition passes replaced by a synthetic offer."},
		[]string{"pass", "reason"}, // reason: upstream|parse
	)
	PriceRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pricedrop", Name: "price_repairs_total", Help: "Offer prices replaced by the sanitizer."},
		[]string{"pass", "reason"}, // reason: missing|implausible
	)
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pricedrop", Name: "comparison_results_total", Help: "Comparison outcomes by status."},
		[]string{"status"},
	)
	QuotaEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pricedrop", Name: "quota_events_total", Help: "Quota checks."},
		[]string{"event"}, // event: allow|deny|error
	)
)

// Serve starts a standalone metrics listener on addr; empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency,
		OfferFallbacks, PriceRepairs, Decisions, QuotaEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveFallback(pass, reason string) { OfferFallbacks.WithLabelValues(pass, reason).Inc() }

func ObservePriceRepair(pass, reason string) { PriceRepairs.WithLabelValues(pass, reason).Inc() }

func ObserveDecision(status string) { Decisions.WithLabelValues(status).Inc() }

func ObserveQuota(event string) { QuotaEvents.WithLabelValues(event).Inc() }
