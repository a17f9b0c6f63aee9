package indicator

import (
	"math"
	"testing"
)

func TestBollinger_Correctness_Period3(t *testing.T) {
	// Window 100, 102, 104: mean 102, population variance (4+0+4)/3
	b := NewBollinger(3, 2)
	for _, p := range []float64{100, 102, 104} {
		b.Update(candle(p))
	}
	if !b.Ready() {
		t.Fatal("expected Ready after 3 candles")
	}

	sd := math.Sqrt(8.0 / 3.0)
	upper, middle, lower := b.Bands()
	assertClose(t, "middle", middle, 102, 1e-9)
	assertClose(t, "upper", upper, 102+2*sd, 1e-9)
	assertClose(t, "lower", lower, 102-2*sd, 1e-9)

	// Window slides to 102, 104, 103
	b.Update(candle(103))
	mean := 103.0
	sd = math.Sqrt(((102-mean)*(102-mean) + (104-mean)*(104-mean)) / 3)
	upper, middle, _ = b.Bands()
	assertClose(t, "middle after slide", middle, mean, 1e-9)
	assertClose(t, "upper after slide", upper, mean+2*sd, 1e-9)
}

func TestBollinger_FlatSeriesHasZeroWidth(t *testing.T) {
	b := NewBollinger(5, 0)
	for i := 0; i < 8; i++ {
		b.Update(candle(50))
	}
	upper, middle, lower := b.Bands()
	if upper != middle || lower != middle {
		t.Errorf("flat series: expected collapsed bands, got %v/%v/%v", upper, middle, lower)
	}
}

func TestMACD_LineIsFastMinusSlow(t *testing.T) {
	m := NewMACD(3, 6, 4)
	fast, slow := NewEMA(3), NewEMA(6)
	signal := NewEMA(4)

	for i := 0; i < 20; i++ {
		c := candle(100 + float64(i%7) - float64(i%3))
		m.Update(c)
		fast.Update(c)
		slow.Update(c)
		signal.push(fast.Value() - slow.Value())
	}

	assertClose(t, "macd", m.Value(), fast.Value()-slow.Value(), 1e-12)
	assertClose(t, "signal", m.Signal(), signal.Value(), 1e-12)
	assertClose(t, "histogram", m.Histogram(), m.Value()-m.Signal(), 1e-12)
	if !m.Ready() {
		t.Error("expected Ready after 20 candles")
	}
}

func TestMACD_Defaults(t *testing.T) {
	m := NewMACD(0, 0, 0)
	for i := 0; i < DefaultMACDSlow-1; i++ {
		m.Update(candle(100))
	}
	if m.Ready() {
		t.Errorf("should not be ready before %d candles", DefaultMACDSlow)
	}
	m.Update(candle(100))
	if !m.Ready() {
		t.Errorf("should be ready after %d candles", DefaultMACDSlow)
	}
}
