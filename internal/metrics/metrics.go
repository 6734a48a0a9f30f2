// Package metrics provides Prometheus instrumentation for the prediction
// engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts executed trades, partitioned by side and kind
	// (buy/sell).
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pmx_trades_total",
		Help: "Total number of trades executed",
	}, []string{"kind", "side"})

	// TradeVolume accumulates traded value in base units.
	TradeVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pmx_trade_volume_total",
		Help: "Cumulative traded value in base units",
	}, []string{"kind", "side"})

	// MarketsResolved counts resolutions by winning outcome.
	MarketsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pmx_markets_resolved_total",
		Help: "Total markets resolved",
	}, []string{"outcome"})

	// ClaimsTotal counts successful settlement claims.
	ClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmx_claims_total",
		Help: "Total successful claims paid out",
	})

	// ActiveMarkets tracks the number of markets open for trading.
	ActiveMarkets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pmx_active_markets",
		Help: "Number of currently active markets",
	})

	// LimitRejections counts trades rejected by the position limiter.
	LimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmx_position_limit_rejections_total",
		Help: "Trades rejected by position limiter",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pmx_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pmx_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
