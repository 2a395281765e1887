package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// DegiroRequestsTotal tracks outbound broker calls.
	DegiroRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "degiro_api_requests_total",
			Help: "Total number of DEGIRO API requests made (by endpoint, method, and status).",
		},
		[]string{"endpoint", "method", "status"},
	)

	// DegiroRequestDuration measures the duration of outbound broker calls.
	DegiroRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "degiro_api_request_duration_seconds",
			Help:    "Duration of DEGIRO API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"endpoint", "method"},
	)

	DegiroLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "degiro_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"}, // success | rejected | error
	)

	ProductCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "degiro_product_cache_lookups_total",
			Help: "Product detail cache lookups by result.",
		},
		[]string{"result"}, // hit | miss
	)
)

// ObserveRequest records one broker call. It has the shape of httpclient.Observer.
// A zero status means no response was received and is labelled "error".
func ObserveRequest(endpoint, method string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	DegiroRequestsTotal.WithLabelValues(endpoint, method, label).Inc()
	DegiroRequestDuration.WithLabelValues(endpoint, method).Observe(elapsed.Seconds())
}

func IncLogin(result string) {
	DegiroLoginsTotal.WithLabelValues(result).Inc()
}

// ObserveCacheLookup counts one product cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		ProductCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	ProductCacheLookups.WithLabelValues("miss").Inc()
}

// StartServer serves /metrics on addr in the background. The returned server
// can be shut down by the caller.
func StartServer(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics.server_failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return srv
}
