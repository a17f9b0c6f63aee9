package indicator

import "chart-enginev1/internal/model"

// EMA calculates Exponential Moving Average.
// The average is seeded with the first close, so a value exists from the
// first candle on; Ready reports true once period candles have been seen.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	if period < 1 {
		period = 1
	}
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return "EMA" }

func (e *EMA) Update(candle model.Candle) {
	e.push(candle.Close)
}

func (e *EMA) push(price float64) {
	e.count++
	if e.count == 1 {
		e.current = price
		return
	}
	// EMA = (Price - EMA_prev) * multiplier + EMA_prev
	e.current = (price-e.current)*e.multiplier + e.current
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }

// Peek computes what Value() would be with an additional candle without mutating state.
func (e *EMA) Peek(price float64) float64 {
	if e.count == 0 {
		return price
	}
	return (price-e.current)*e.multiplier + e.current
}

// Reset clears the EMA state for reuse.
func (e *EMA) Reset() {
	e.current = 0
	e.count = 0
}
