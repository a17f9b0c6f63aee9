package indicator

import "chart-enginev1/internal/model"

// SMA calculates Simple Moving Average over a rolling window.
// Uses a preallocated circular buffer for zero-allocation hot path.
type SMA struct {
	period  int
	buf     []float64 // preallocated circular buffer
	idx     int       // current write position
	count   int       // total values received
	sum     float64
	current float64
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	if period < 1 {
		period = 1
	}
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Name() string { return "SMA" }

func (s *SMA) Update(candle model.Candle) {
	s.push(candle.Close)
}

func (s *SMA) push(price float64) {
	if s.count >= s.period {
		// Subtract the oldest value being overwritten
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = price
	s.sum += price
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count >= s.period {
		s.current = s.sum / float64(s.period)
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.count >= s.period }

// Peek computes what Value() would be with an additional candle without mutating state.
func (s *SMA) Peek(price float64) float64 {
	if s.count < s.period {
		// Not fully ready: return partial average including this price
		return (s.sum + price) / float64(s.count+1)
	}
	// Preview: replace the oldest value (at idx) with new price
	return (s.sum - s.buf[s.idx] + price) / float64(s.period)
}

// window returns the last period values, oldest first. Only valid when Ready.
func (s *SMA) window(dst []float64) []float64 {
	dst = dst[:0]
	for i := 0; i < s.period; i++ {
		dst = append(dst, s.buf[(s.idx+i)%s.period])
	}
	return dst
}

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() {
	s.idx = 0
	s.count = 0
	s.sum = 0
	s.current = 0
	for i := range s.buf {
		s.buf[i] = 0
	}
}
