package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"chart-enginev1/internal/model"
)

const (
	DefaultChannel   = "pub:orderbook"
	DefaultLatestKey = "orderbook:latest"
	defaultLatestTTL = 30 * time.Minute
)

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int

	// Channel receives every snapshot via PUBLISH.
	Channel string
	// LatestKey holds the most recent snapshot for late readers.
	LatestKey string
}

func (c PublisherConfig) withDefaults() PublisherConfig {
	if c.Channel == "" {
		c.Channel = DefaultChannel
	}
	if c.LatestKey == "" {
		c.LatestKey = DefaultLatestKey
	}
	return c
}

// client is the subset of *goredis.Client the publisher uses.
type client interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Close() error
}

// Snapshot is the payload written to Redis.
type Snapshot struct {
	Book   model.OrderBook  `json:"orderbook"`
	Market model.MarketData `json:"marketData"`
	TS     time.Time        `json:"ts"`
}

// Publisher pushes order book snapshots to a Pub/Sub channel and keeps the
// latest one under a key.
type Publisher struct {
	client client
	cfg    PublisherConfig

	// OnPublish observes the duration of each successful publish.
	OnPublish func(time.Duration)
}

// New connects to Redis and pings the server.
func New(cfg PublisherConfig) (*Publisher, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return newPublisher(rdb, cfg), nil
}

func newPublisher(c client, cfg PublisherConfig) *Publisher {
	return &Publisher{client: c, cfg: cfg.withDefaults()}
}

// Client returns the underlying Redis client for health checks, or nil
// when the publisher was built on something else.
func (p *Publisher) Client() *goredis.Client {
	rdb, _ := p.client.(*goredis.Client)
	return rdb
}

// Publish sends one snapshot.
func (p *Publisher) Publish(ctx context.Context, book model.OrderBook, md model.MarketData) error {
	start := time.Now()
	data, err := json.Marshal(Snapshot{Book: book, Market: md, TS: start.UTC()})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := p.publishRaw(ctx, data); err != nil {
		return err
	}
	if p.OnPublish != nil {
		p.OnPublish(time.Since(start))
	}
	return nil
}

func (p *Publisher) publishRaw(ctx context.Context, data []byte) error {
	if err := p.client.Publish(ctx, p.cfg.Channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.cfg.Channel, err)
	}
	if err := p.client.Set(ctx, p.cfg.LatestKey, data, defaultLatestTTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", p.cfg.LatestKey, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

var _ model.BookPublisher = (*Publisher)(nil)
