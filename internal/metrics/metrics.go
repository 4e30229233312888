// Package metrics exposes Prometheus metrics and a health endpoint for the
// chart engine.
package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indicator engine.
type Metrics struct {
	CandlesCommitted prometheus.Counter
	TickRevisions    prometheus.Counter
	OutOfOrderDrops  prometheus.Counter

	RecomputeDur     prometheus.Histogram
	RecomputesTotal  prometheus.Counter
	CoalescedKicks   prometheus.Counter
	ComputeFailures  *prometheus.CounterVec // labels: indicator
	ActiveIndicators prometheus.Gauge

	FeedReconnects prometheus.Counter
	WSClients      prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CandlesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_candles_committed_total",
			Help: "Bar-close events appended to the candle buffer",
		}),
		TickRevisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_tick_revisions_total",
			Help: "In-place revisions of the open bar",
		}),
		OutOfOrderDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_out_of_order_drops_total",
			Help: "Stale/duplicate candles rejected by the buffer",
		}),
		RecomputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartengine_recompute_duration_seconds",
			Help:    "Full active-set recompute latency",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		RecomputesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_recomputes_total",
			Help: "Recompute cycles drained by the scheduler",
		}),
		CoalescedKicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_coalesced_kicks_total",
			Help: "Recompute triggers coalesced into an existing pending cycle",
		}),
		ComputeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartengine_compute_failures_total",
			Help: "Per-indicator compute failures (isolated, not fatal)",
		}, []string{"indicator"}),
		ActiveIndicators: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartengine_active_indicators",
			Help: "Indicators currently in the active set",
		}),
		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_feed_reconnects_total",
			Help: "Market data WebSocket reconnection attempts",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartengine_ws_clients",
			Help: "Connected chart consumer WebSocket clients",
		}),
	}

	prometheus.MustRegister(
		m.CandlesCommitted,
		m.TickRevisions,
		m.OutOfOrderDrops,
		m.RecomputeDur,
		m.RecomputesTotal,
		m.CoalescedKicks,
		m.ComputeFailures,
		m.ActiveIndicators,
		m.FeedReconnects,
		m.WSClients,
	)

	return m
}

// HealthStatus represents the engine health.
type HealthStatus struct {
	mu sync.RWMutex

	FeedConnected  bool      `json:"feed_connected"`
	LastCandleTime time.Time `json:"last_candle_time"`
	BufferLen      int       `json:"buffer_len"`
	ActiveCount    int       `json:"active_count"`
	StartedAt      time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetFeedConnected(v bool) {
	h.mu.Lock()
	h.FeedConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCandleTime(t time.Time) {
	h.mu.Lock()
	h.LastCandleTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetBufferLen(n int) {
	h.mu.Lock()
	h.BufferLen = n
	h.mu.Unlock()
}

func (h *HealthStatus) SetActiveCount(n int) {
	h.mu.Lock()
	h.ActiveCount = n
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if !h.FeedConnected {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	candleAge := ""
	if !h.LastCandleTime.IsZero() {
		candleAge = time.Since(h.LastCandleTime).Round(time.Millisecond).String()
	}

	out := struct {
		Status        string `json:"status"`
		Uptime        string `json:"uptime"`
		FeedConnected bool   `json:"feed_connected"`
		LastCandle    string `json:"last_candle_time"`
		CandleAge     string `json:"candle_age"`
		BufferLen     int    `json:"buffer_len"`
		ActiveCount   int    `json:"active_count"`
	}{
		Status:        status,
		Uptime:        time.Since(h.StartedAt).Round(time.Second).String(),
		FeedConnected: h.FeedConnected,
		LastCandle:    h.LastCandleTime.Format(time.RFC3339),
		CandleAge:     candleAge,
		BufferLen:     h.BufferLen,
		ActiveCount:   h.ActiveCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(out)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		srv: &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
