package indicator

import "chart-enginev1/internal/model"

// RSI is the Relative Strength Index: gains and losses between consecutive
// closes are each smoothed with an SMMA of the same period.
type RSI struct {
	gains, losses *SMMA
	last          float64
	seen          bool
}

// NewRSI creates an RSI over period closes (14 is customary).
func NewRSI(period int) *RSI {
	return &RSI{gains: NewSMMA(period), losses: NewSMMA(period)}
}

func (r *RSI) Name() string { return "RSI" }

func (r *RSI) Update(candle model.Candle) {
	if r.seen {
		up, down := split(candle.Close - r.last)
		r.gains.push(up)
		r.losses.push(down)
	}
	r.last, r.seen = candle.Close, true
}

// Value is 0 until Ready.
func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	return strength(r.gains.current, r.losses.current)
}

// Ready reports whether period changes, so period+1 closes, have been seen.
func (r *RSI) Ready() bool { return r.gains.Ready() }

// Peek returns Value as if close were the next candle. It is Value until
// the indicator is ready.
func (r *RSI) Peek(close float64) float64 {
	if !r.Ready() {
		return r.Value()
	}
	up, down := split(close - r.last)
	return strength(r.gains.Peek(up), r.losses.Peek(down))
}

func (r *RSI) Reset() {
	r.gains.Reset()
	r.losses.Reset()
	r.last, r.seen = 0, false
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

// strength maps average gain and loss to 0..100; no losses reads as 100.
func strength(gain, loss float64) float64 {
	if loss == 0 {
		return 100
	}
	return 100 - 100/(1+gain/loss)
}
