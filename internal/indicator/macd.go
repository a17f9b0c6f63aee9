package indicator

import "chart-enginev1/internal/model"

// MACD defaults.
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// MACD is the difference of a fast and a slow EMA, with an EMA of that
// difference as the signal line.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// NewMACD creates a MACD. Non-positive periods fall back to 12/26/9.
func NewMACD(fast, slow, signal int) *MACD {
	if fast <= 0 {
		fast = DefaultMACDFast
	}
	if slow <= 0 {
		slow = DefaultMACDSlow
	}
	if signal <= 0 {
		signal = DefaultMACDSignal
	}
	return &MACD{fast: NewEMA(fast), slow: NewEMA(slow), signal: NewEMA(signal)}
}

func (m *MACD) Name() string { return "MACD" }

func (m *MACD) Update(candle model.Candle) {
	m.fast.push(candle.Close)
	m.slow.push(candle.Close)
	m.signal.push(m.fast.current - m.slow.current)
}

// Value returns the MACD line.
func (m *MACD) Value() float64     { return m.fast.current - m.slow.current }
func (m *MACD) Signal() float64    { return m.signal.current }
func (m *MACD) Histogram() float64 { return m.Value() - m.signal.current }
func (m *MACD) Ready() bool        { return m.slow.Ready() && m.signal.Ready() }

// Values returns MACD, signal and histogram.
func (m *MACD) Values() []float64 {
	return []float64{m.Value(), m.Signal(), m.Histogram()}
}

func (m *MACD) Peek(price float64) float64 {
	return m.fast.Peek(price) - m.slow.Peek(price)
}

func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
}
