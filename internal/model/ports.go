package model

import "context"

// ── Storage Port Interfaces ──
// These interfaces decouple the engines from concrete storage implementations
// (Redis, SQLite).

// CandleStore persists named candle series.
type CandleStore interface {
	// WriteCandles replaces the candles of series that share a date with
	// the given ones and appends the rest.
	WriteCandles(ctx context.Context, series string, candles []Candle) error

	// ReadCandles returns the series ordered by date. An unknown series
	// yields an empty slice and no error.
	ReadCandles(ctx context.Context, series string) ([]Candle, error)

	// Close releases underlying resources.
	Close() error
}

// BookPublisher pushes order book snapshots to an external channel.
type BookPublisher interface {
	// Publish sends one snapshot. Implementations may buffer.
	Publish(ctx context.Context, book OrderBook, md MarketData) error

	// Close releases underlying resources.
	Close() error
}
