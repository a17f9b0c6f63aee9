package main

import (
	"context"
	"log"
	"time"

	"chart-enginev1/config"
	"chart-enginev1/internal/metrics"
	"chart-enginev1/internal/model"
	"chart-enginev1/internal/orderbook"
	redisstore "chart-enginev1/internal/store/redis"
)

// marketSource supplies market data for events that carry only a book.
type marketSource interface {
	MarketData() model.MarketData
}

// startRedis connects the snapshot publisher and consumes events until ch
// closes. It returns nil when Redis is unreachable at startup.
func startRedis(ctx context.Context, cfg config.RedisConfig, ch <-chan orderbook.Event, prom *metrics.Metrics, health *metrics.HealthStatus, src marketSource) *redisstore.BufferedPublisher {
	health.EnableRedis()
	pub, err := redisstore.New(redisstore.PublisherConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Channel:  cfg.Channel,
	})
	if err != nil {
		log.Printf("[bookserver] WARNING: redis init failed: %v (continuing without redis)", err)
		go drain(ch)
		return nil
	}
	health.CheckRedis(ctx, pub.Client())
	pub.OnPublish = func(d time.Duration) { prom.RedisPublishDur.Observe(d.Seconds()) }

	cb := redisstore.NewCircuitBreaker(5, 10*time.Second)
	cb.OnStateChange = func(from, to redisstore.State) {
		log.Printf("[bookserver] redis circuit %s -> %s", from, to)
		prom.RedisCircuitBreakerState.Set(float64(to))
		if to == redisstore.StateOpen {
			prom.RedisCircuitBreakerTrips.Inc()
		}
	}
	bp := redisstore.NewBufferedPublisher(pub, cb, cfg.BufferSize)
	bp.OnBuffer = prom.RedisBufferedWrites.Inc
	bp.OnFlush = func(n int) { log.Printf("[bookserver] replayed %d buffered snapshots", n) }

	go func() {
		for ev := range ch {
			var err error
			switch e := ev.(type) {
			case orderbook.Update:
				err = bp.Publish(ctx, e.Book, e.Market)
			case orderbook.Reset:
				err = bp.Publish(ctx, e.Book, src.MarketData())
			}
			if err != nil {
				log.Printf("[bookserver] redis publish: %v", err)
			}
		}
	}()
	log.Printf("[bookserver] publishing snapshots to redis channel %s", cfg.Channel)
	return bp
}

func drain(ch <-chan orderbook.Event) {
	for range ch {
	}
}
