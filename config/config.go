package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"chart-enginev1/internal/orderbook"
)

// Config holds application configuration. Values come from an optional YAML
// file, then environment variables, then defaults.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	OrderBook orderbook.Config `yaml:"orderbook"`
	Redis     RedisConfig      `yaml:"redis"`
	SQLite    SQLiteConfig     `yaml:"sqlite"`
	Chart     ChartConfig      `yaml:"chart"`
	LogLevel  string           `yaml:"log_level"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	// ReplayCapacity is the number of envelopes kept per WS channel.
	ReplayCapacity int `yaml:"replay_capacity"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
	// BufferSize bounds the snapshots held while Redis is unreachable.
	BufferSize int `yaml:"buffer_size"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type ChartConfig struct {
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	Candles int     `yaml:"candles"`
	Seed    int64   `yaml:"seed"`
	Series  string  `yaml:"series"`
	Output  string  `yaml:"output"`
}

// Load reads path (skipped when empty), expanding ${VAR} references, then
// applies env overrides and defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("SERVER_ADDR", c.Server.Addr)
	c.Server.MetricsAddr = getEnv("METRICS_ADDR", c.Server.MetricsAddr)

	c.Redis.Enabled = envBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = envInt("REDIS_DB", c.Redis.DB)
	c.Redis.Channel = getEnv("REDIS_CHANNEL", c.Redis.Channel)

	c.SQLite.Path = getEnv("SQLITE_PATH", c.SQLite.Path)

	c.OrderBook.BasePrice = envFloat("ORDERBOOK_BASE_PRICE", c.OrderBook.BasePrice)
	c.OrderBook.MaxRows = envInt("ORDERBOOK_MAX_ROWS", c.OrderBook.MaxRows)
	c.OrderBook.UpdateInterval = envDuration("ORDERBOOK_UPDATE_INTERVAL", c.OrderBook.UpdateInterval)
	c.OrderBook.Seed = int64(envInt("ORDERBOOK_SEED", int(c.OrderBook.Seed)))

	c.Chart.Output = getEnv("CHART_OUTPUT", c.Chart.Output)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = ":9090"
	}
	if c.Server.ReplayCapacity == 0 {
		c.Server.ReplayCapacity = 500
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "pub:orderbook"
	}
	if c.Redis.BufferSize == 0 {
		c.Redis.BufferSize = 1000
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "data/candles.db"
	}
	if c.Chart.Width == 0 {
		c.Chart.Width = 1200
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = 600
	}
	if c.Chart.Candles == 0 {
		c.Chart.Candles = 200
	}
	if c.Chart.Series == "" {
		c.Chart.Series = "SAMPLE"
	}
	if c.Chart.Output == "" {
		c.Chart.Output = "chart.svg"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.OrderBook = c.OrderBook.WithDefaults()
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if err := c.OrderBook.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("orderbook: %w", err))
	}
	if c.Server.ReplayCapacity < 0 {
		errs = append(errs, fmt.Errorf("server: replay capacity must not be negative, got %d", c.Server.ReplayCapacity))
	}
	if c.Redis.BufferSize < 0 {
		errs = append(errs, fmt.Errorf("redis: buffer size must not be negative, got %d", c.Redis.BufferSize))
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		errs = append(errs, fmt.Errorf("chart: size must be positive, got %vx%v", c.Chart.Width, c.Chart.Height))
	}
	if c.Chart.Candles < 0 {
		errs = append(errs, fmt.Errorf("chart: candles must not be negative, got %d", c.Chart.Candles))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] ignoring invalid %s=%q", key, v)
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] ignoring invalid %s=%q", key, v)
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] ignoring invalid %s=%q", key, v)
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] ignoring invalid %s=%q", key, v)
		return fallback
	}
	return d
}
