// Command bookserver runs a simulated order book server.
//
// Runs the order book engine on a ticker and fans its events out to the
// WebSocket hub, Prometheus metrics and (optionally) Redis Pub/Sub.
//
// Endpoints:
//
//	/ws                          event stream (update, trade, orderAdded, orderUpdated, reset)
//	/api/orderbook, /api/best    snapshots
//	/api/missed?channel&from&to  gap backfill
//	/health                      health (also /healthz on the metrics port)
//	:9090/metrics                Prometheus
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"chart-enginev1/config"
	"chart-enginev1/internal/bus"
	"chart-enginev1/internal/gateway"
	"chart-enginev1/internal/logger"
	"chart-enginev1/internal/metrics"
	"chart-enginev1/internal/orderbook"
	redisstore "chart-enginev1/internal/store/redis"
)

const eventBuffer = 4096

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[bookserver] config: %v", err)
	}
	slogger := logger.Init("bookserver", logger.ParseLevel(cfg.LogLevel))
	log.Println("[bookserver] starting...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Metrics & health ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.Server.MetricsAddr, health, reg)
	metricsSrv.Start()

	// ---- Engine ----
	engine, err := orderbook.New(cfg.OrderBook, orderbook.WithLogger(slogger))
	if err != nil {
		log.Fatalf("[bookserver] orderbook: %v", err)
	}

	// Subscribers run on the engine's goroutine; never block it.
	eventCh := make(chan orderbook.Event, eventBuffer)
	engine.Subscribe(func(ev orderbook.Event) {
		select {
		case eventCh <- ev:
		default:
			prom.FanoutDropsTotal.WithLabelValues("engine").Inc()
		}
	})

	fanout := bus.New[orderbook.Event](eventBuffer)
	fanout.OnDrop = func(subscriber string) {
		prom.FanoutDropsTotal.WithLabelValues(subscriber).Inc()
	}
	wsCh := fanout.Subscribe("ws")
	metricsCh := fanout.Subscribe("metrics")

	// ---- Redis publisher (optional) ----
	var publisher *redisstore.BufferedPublisher
	if cfg.Redis.Enabled {
		publisher = startRedis(ctx, cfg.Redis, fanout.Subscribe("redis"), prom, health, engine)
	}

	go fanout.Run(ctx, eventCh)

	// ---- Gateway ----
	hub := gateway.NewHub(cfg.Server.ReplayCapacity)
	hub.OnClientCount = func(n int) { prom.WSClients.Set(float64(n)) }
	hub.OnSend = prom.WSMessagesSent.Inc
	go hub.Run(ctx, wsCh)

	go func() {
		for ev := range metricsCh {
			prom.Observe(ev)
			if u, ok := ev.(orderbook.Update); ok {
				health.SetLastUpdateTime(u.Book.LastUpdate)
			}
		}
	}()

	go monitorSaturation(ctx, fanout, prom, 5*time.Second)

	if publisher != nil {
		health.StartLivenessChecker(ctx, publisher.Underlying().Client(), nil, 10*time.Second)
	}

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, engine)
	mux.Handle("/health", health)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           logger.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("[bookserver] listening on %s (WebSocket: ws://localhost%s/ws)", cfg.Server.Addr, cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[bookserver] server error: %v", err)
		}
	}()

	engine.Start()
	health.SetEngineRunning(true)
	log.Printf("[bookserver] engine running every %v around %v", cfg.OrderBook.UpdateInterval, cfg.OrderBook.BasePrice)

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[bookserver] shutdown signal received, cleaning up...")

	engine.Stop()
	health.SetEngineRunning(false)
	hub.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	cancel()

	if publisher != nil {
		if n := publisher.PendingCount(); n > 0 {
			log.Printf("[bookserver] dropping %d unpublished snapshots", n)
		}
		publisher.Close()
	}
	log.Println("[bookserver] shutdown complete.")
}
