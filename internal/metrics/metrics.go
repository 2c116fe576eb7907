package metrics

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/p3tuh/notello/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Auth metrics

	LoginRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notello",
		Name:      "login_requests_total",
		Help:      "Login link requests, by result.",
	}, []string{"result"})

	LoginRedemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notello",
		Name:      "login_redemptions_total",
		Help:      "Magic link redemptions, by outcome.",
	}, []string{"outcome"})

	TokenChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notello",
		Name:      "token_checks_total",
		Help:      "Bearer token validations, by endpoint kind and result.",
	}, []string{"kind", "result"})

	// Sweeper metrics

	SweptChallengesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "notello",
		Name:      "swept_challenges_total",
		Help:      "Login challenges removed by the sweeper.",
	})

	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "notello",
		Name:      "sweep_duration_seconds",
		Help:      "Time taken for one sweep.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "notello",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notello",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		LoginRequestsTotal,
		LoginRedemptionsTotal,
		TokenChecksTotal,
		SweptChallengesTotal,
		SweepDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

type prober interface {
	Liveness(ctx context.Context) health.HealthResult
	Readiness(ctx context.Context) health.HealthResult
}

// NewServer serves /metrics plus liveness and readiness probes.
func NewServer(addr string, checker prober) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, res health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if res.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(res)
}
