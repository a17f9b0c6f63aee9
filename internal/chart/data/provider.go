// Package data holds the candle series a chart displays.
package data

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"chart-enginev1/internal/chart/coord"
	"chart-enginev1/internal/event"
	"chart-enginev1/internal/model"
)

// Price range margins applied around the visible extremes.
const (
	lowMargin  = 0.98
	highMargin = 1.02
)

// DefaultPriceRange is used when there is nothing to measure.
var DefaultPriceRange = coord.PriceRange{Min: 0, Max: 100}

// Changed is published after SetData with the new series length.
type Changed struct {
	Len int
}

// Provider owns an immutable-by-convention candle series. Callers get
// copies, except through View; the chart only addresses candles by index.
type Provider struct {
	candles []model.Candle
	bus     *event.Bus[Changed]
}

func NewProvider(initial []model.Candle, logger *slog.Logger) *Provider {
	return &Provider{
		candles: append([]model.Candle(nil), initial...),
		bus:     event.NewBus[Changed]("data", logger),
	}
}

func (p *Provider) Subscribe(fn func(Changed)) (unsubscribe func()) {
	return p.bus.Subscribe(fn)
}

// SetData replaces the series.
func (p *Provider) SetData(candles []model.Candle) {
	p.candles = append([]model.Candle(nil), candles...)
	p.bus.Publish(Changed{Len: len(p.candles)})
}

// Load replaces the series with the named series from store.
func (p *Provider) Load(ctx context.Context, store model.CandleStore, series string) error {
	candles, err := store.ReadCandles(ctx, series)
	if err != nil {
		return fmt.Errorf("load series %q: %w", series, err)
	}
	p.SetData(candles)
	return nil
}

// Data returns a copy of the whole series.
func (p *Provider) Data() []model.Candle {
	return append([]model.Candle(nil), p.candles...)
}

// View returns the series without copying, for per-frame readers. The
// slice must not be modified. SetData installs a new backing array, so a
// view taken earlier keeps the series it was taken from.
func (p *Provider) View() []model.Candle {
	return p.candles[:len(p.candles):len(p.candles)]
}

func (p *Provider) Len() int { return len(p.candles) }

func (p *Provider) Candle(i int) (model.Candle, bool) {
	if i < 0 || i >= len(p.candles) {
		return model.Candle{}, false
	}
	return p.candles[i], true
}

// Visible returns a copy of candles [start, end), clamped to the series.
func (p *Provider) Visible(start, end int) []model.Candle {
	start = max(0, start)
	end = min(len(p.candles), end)
	if start >= end {
		return nil
	}
	return append([]model.Candle(nil), p.candles[start:end]...)
}

// PriceRange spans every OHLC price in [start, end) with a 2% margin on
// both sides.
func (p *Provider) PriceRange(start, end int) coord.PriceRange {
	start = max(0, start)
	end = min(len(p.candles), end)
	if start >= end {
		return DefaultPriceRange
	}
	visible := p.candles[start:end]
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range visible {
		lo = math.Min(lo, math.Min(math.Min(c.Open, c.Close), math.Min(c.High, c.Low)))
		hi = math.Max(hi, math.Max(math.Max(c.Open, c.Close), math.Max(c.High, c.Low)))
	}
	return coord.PriceRange{Min: lo * lowMargin, Max: hi * highMargin}
}
