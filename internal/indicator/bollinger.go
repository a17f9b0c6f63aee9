package indicator

import (
	"math"

	"chart-enginev1/internal/model"
)

// DefaultStdDev is the band width of Bollinger bands in standard deviations.
const DefaultStdDev = 2.0

// Bollinger computes Bollinger bands: an SMA middle band with upper and lower
// bands at a multiple of the population standard deviation of the window.
type Bollinger struct {
	sma     *SMA
	mult    float64
	upper   float64
	lower   float64
	scratch []float64
}

// NewBollinger creates bands over period candles. A non-positive mult
// selects DefaultStdDev.
func NewBollinger(period int, mult float64) *Bollinger {
	if mult <= 0 {
		mult = DefaultStdDev
	}
	sma := NewSMA(period)
	return &Bollinger{sma: sma, mult: mult, scratch: make([]float64, 0, sma.period)}
}

func (b *Bollinger) Name() string { return "BOLLINGER" }

func (b *Bollinger) Update(candle model.Candle) {
	b.sma.push(candle.Close)
	if !b.sma.Ready() {
		return
	}
	mean := b.sma.current
	var variance float64
	for _, v := range b.sma.window(b.scratch) {
		variance += (v - mean) * (v - mean)
	}
	sd := math.Sqrt(variance / float64(b.sma.period))
	b.upper = mean + b.mult*sd
	b.lower = mean - b.mult*sd
}

// Value returns the middle band.
func (b *Bollinger) Value() float64 { return b.sma.Value() }
func (b *Bollinger) Ready() bool    { return b.sma.Ready() }

// Bands returns upper, middle and lower bands.
func (b *Bollinger) Bands() (upper, middle, lower float64) {
	return b.upper, b.sma.Value(), b.lower
}

// Values returns the bands in the order of Lines for this kind.
func (b *Bollinger) Values() []float64 {
	return []float64{b.upper, b.sma.Value(), b.lower}
}

// Peek previews the middle band.
func (b *Bollinger) Peek(price float64) float64 { return b.sma.Peek(price) }

func (b *Bollinger) Reset() {
	b.sma.Reset()
	b.upper, b.lower = 0, 0
}
