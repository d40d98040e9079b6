// Package metrics provides Prometheus instrumentation for the scan and
// pricing surfaces.
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
	// ScansTotal counts scans by mode and outcome (live, synthetic, error).
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optionscan_scans_total",
		Help: "Total number of screener scans",
	}, []string{"mode", "outcome"})

	// ScanDuration observes end-to-end scan latency by mode.
	ScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optionscan_scan_duration_seconds",
		Help:    "Screener scan duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	// SymbolsSkipped counts symbols dropped for missing upstream data.
	SymbolsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionscan_symbols_skipped_total",
		Help: "Symbols skipped because quote or chain data was unavailable",
	})

	// PricingRequests counts pricing calls by result.
	PricingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optionscan_pricing_requests_total",
		Help: "Total option pricing requests",
	}, []string{"result"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optionscan_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optionscan_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})
)

// RecordScan updates the scan counters for one completed scan.
func RecordScan(mode string, synthetic bool, err error, duration time.Duration, skipped int) {
	outcome := "live"
	switch {
	case err != nil:
		outcome = "error"
	case synthetic:
		outcome = "synthetic"
	}
	ScansTotal.WithLabelValues(mode, outcome).Inc()
	if err == nil {
		ScanDuration.WithLabelValues(mode).Observe(duration.Seconds())
	}
	if skipped > 0 {
		SymbolsSkipped.Add(float64(skipped))
	}
}

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments each request with method/path/status counters.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
	})
}
