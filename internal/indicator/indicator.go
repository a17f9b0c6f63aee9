// Package indicator provides technical indicator calculations over candle data.
//
// All indicators implement the Indicator interface, receiving candles and
// producing float64 values. Compute turns an indicator into per-candle series
// for chart overlays.
package indicator

import "chart-enginev1/internal/model"

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "EMA").
	Name() string

	// Update feeds a new candle and recalculates.
	Update(candle model.Candle)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Peek computes what Value() would be if a candle with this close price
	// were added next, WITHOUT mutating internal state.
	Peek(close float64) float64

	// Reset clears all accumulated state.
	Reset()
}
