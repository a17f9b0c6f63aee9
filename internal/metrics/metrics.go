package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chart-enginev1/internal/model"
	"chart-enginev1/internal/orderbook"
)

// Metrics holds all Prometheus metrics for the order book server.
type Metrics struct {
	UpdatesTotal   prometheus.Counter
	MutationsTotal *prometheus.CounterVec // labels: type
	TradesTotal    *prometheus.CounterVec // labels: side
	TradeVolume    prometheus.Counter
	ResetsTotal    prometheus.Counter

	Spread    prometheus.Gauge
	SpreadPct prometheus.Gauge
	Depth     *prometheus.GaugeVec // labels: side
	Levels    *prometheus.GaugeVec // labels: side
	Sequence  prometheus.Gauge

	// Gateway
	WSClients      prometheus.Gauge
	WSMessagesSent prometheus.Counter

	// Backpressure
	FanoutDropsTotal     *prometheus.CounterVec // labels: subscriber
	ChannelSaturationPct *prometheus.GaugeVec   // labels: channel_name

	// Redis publisher
	RedisPublishDur          prometheus.Histogram
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
	RedisBufferedWrites      prometheus.Counter
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// uses the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		UpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderbook_updates_total",
			Help: "Order book update batches emitted",
		}),
		MutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_mutations_total",
			Help: "Simulated mutations by type (update, add, cancel, trade)",
		}, []string{"type"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_trades_total",
			Help: "Executed trades by aggressor side",
		}, []string{"side"}),
		TradeVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderbook_trade_volume_total",
			Help: "Total filled size",
		}),
		ResetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderbook_resets_total",
			Help: "Order book resets",
		}),

		Spread: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderbook_spread",
			Help: "Best ask minus best bid",
		}),
		SpreadPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderbook_spread_pct",
			Help: "Spread as a percentage of the best bid",
		}),
		Depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "orderbook_depth",
			Help: "Total resting size per side",
		}, []string{"side"}),
		Levels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "orderbook_levels",
			Help: "Resting orders per side",
		}, []string{"side"}),
		Sequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderbook_sequence",
			Help: "Current book sequence number",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		WSMessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_ws_messages_total",
			Help: "Envelopes queued to WebSocket clients",
		}),

		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookserver_fanout_drops_total",
			Help: "Events dropped by the fan-out bus per subscriber",
		}, []string{"subscriber"}),
		ChannelSaturationPct: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bookserver_channel_saturation_pct",
			Help: "Channel fill percentage (len/cap * 100)",
		}, []string{"channel_name"}),

		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookserver_redis_publish_duration_seconds",
			Help:    "Redis publish latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bookserver_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookserver_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
		RedisBufferedWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookserver_redis_buffered_writes_total",
			Help: "Snapshots buffered locally while the circuit breaker was open",
		}),
	}

	reg.MustRegister(
		m.UpdatesTotal,
		m.MutationsTotal,
		m.TradesTotal,
		m.TradeVolume,
		m.ResetsTotal,
		m.Spread,
		m.SpreadPct,
		m.Depth,
		m.Levels,
		m.Sequence,
		m.WSClients,
		m.WSMessagesSent,
		m.FanoutDropsTotal,
		m.ChannelSaturationPct,
		m.RedisPublishDur,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.RedisBufferedWrites,
	)

	return m
}

// Observe records one order book event.
func (m *Metrics) Observe(ev orderbook.Event) {
	switch e := ev.(type) {
	case orderbook.Update:
		m.UpdatesTotal.Inc()
		for _, u := range e.Updates {
			m.MutationsTotal.WithLabelValues(string(u.Type)).Inc()
		}
		m.ObserveBook(e.Book, e.Market)
	case orderbook.Trade:
		m.TradesTotal.WithLabelValues(string(e.Side)).Inc()
		m.TradeVolume.Add(e.Filled)
	case orderbook.Reset:
		m.ResetsTotal.Inc()
		m.Sequence.Set(float64(e.Book.Sequence))
	}
}

// ObserveBook sets the book gauges.
func (m *Metrics) ObserveBook(book model.OrderBook, md model.MarketData) {
	m.Spread.Set(md.Spread.Absolute)
	m.SpreadPct.Set(md.Spread.Percentage)
	m.Depth.WithLabelValues(string(model.SideBid)).Set(md.Volume.BidTotal)
	m.Depth.WithLabelValues(string(model.SideAsk)).Set(md.Volume.AskTotal)
	m.Levels.WithLabelValues(string(model.SideBid)).Set(float64(len(book.Bids)))
	m.Levels.WithLabelValues(string(model.SideAsk)).Set(float64(len(book.Asks)))
	m.Sequence.Set(float64(book.Sequence))
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	EngineRunning  bool      `json:"engine_running"`
	LastUpdateTime time.Time `json:"last_update_time"`
	RedisEnabled   bool      `json:"redis_enabled"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteEnabled  bool      `json:"sqlite_enabled"`
	SQLiteOK       bool      `json:"sqlite_ok"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetEngineRunning(v bool) {
	h.mu.Lock()
	h.EngineRunning = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastUpdateTime(t time.Time) {
	h.mu.Lock()
	h.LastUpdateTime = t
	h.mu.Unlock()
}

// EnableRedis marks Redis as a dependency that counts towards health.
func (h *HealthStatus) EnableRedis() {
	h.mu.Lock()
	h.RedisEnabled = true
	h.mu.Unlock()
}

// EnableSQLite marks SQLite as a dependency that counts towards health.
func (h *HealthStatus) EnableSQLite() {
	h.mu.Lock()
	h.SQLiteEnabled = true
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Nil dependencies
// are skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// status reports "healthy", "degraded" or "unhealthy". Disabled
// dependencies never degrade health. Caller holds h.mu.
func (h *HealthStatus) status() string {
	if !h.EngineRunning {
		return "unhealthy"
	}
	if (h.RedisEnabled && !h.RedisConnected) || (h.SQLiteEnabled && !h.SQLiteOK) {
		return "degraded"
	}
	return "healthy"
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := h.status()
	httpCode := http.StatusOK
	if overallStatus != "healthy" {
		httpCode = http.StatusServiceUnavailable
	}

	updateAge := ""
	if !h.LastUpdateTime.IsZero() {
		updateAge = time.Since(h.LastUpdateTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		EngineRunning   bool    `json:"engine_running"`
		LastUpdateTime  string  `json:"last_update_time"`
		UpdateAge       string  `json:"update_age"`
		RedisEnabled    bool    `json:"redis_enabled"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteEnabled   bool    `json:"sqlite_enabled"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		EngineRunning:   h.EngineRunning,
		LastUpdateTime:  h.LastUpdateTime.Format(time.RFC3339),
		UpdateAge:       updateAge,
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteEnabled:   h.SQLiteEnabled,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server. A nil gatherer serves the
// default registry.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the server's mux.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
