package indicator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"chart-enginev1/internal/model"
)

// Kind names an indicator type.
type Kind string

const (
	KindSMA       Kind = "sma"
	KindEMA       Kind = "ema"
	KindSMMA      Kind = "smma"
	KindRSI       Kind = "rsi"
	KindBollinger Kind = "bollinger"
	KindMACD      Kind = "macd"
)

// ErrUnknownKind is returned for an unsupported indicator kind.
var ErrUnknownKind = errors.New("indicator: unknown kind")

// ParseKind accepts kind names case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindSMA, KindEMA, KindSMMA, KindRSI, KindBollinger, KindMACD:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// OnPriceScale reports whether values of this kind are prices and can be
// drawn over the candles.
func (k Kind) OnPriceScale() bool {
	switch k {
	case KindSMA, KindEMA, KindSMMA, KindBollinger:
		return true
	}
	return false
}

// IndicatorConfig specifies a single indicator to compute.
type IndicatorConfig struct {
	Kind   Kind
	Period int
	// StdDev is the Bollinger band width; 0 means DefaultStdDev.
	StdDev float64
	// Fast/Slow/Signal are MACD periods; 0 means 12/26/9.
	Fast, Slow, Signal int
}

// Name returns e.g. "SMA_20".
func (c IndicatorConfig) Name() string {
	if c.Kind == KindMACD {
		return "MACD"
	}
	return strings.ToUpper(string(c.Kind)) + "_" + strconv.Itoa(c.Period)
}

// lineNames lists the output lines of the kind, in Values order.
func (c IndicatorConfig) lineNames() []string {
	switch c.Kind {
	case KindBollinger:
		return []string{"upper", "middle", "lower"}
	case KindMACD:
		return []string{"macd", "signal", "histogram"}
	}
	return []string{"value"}
}

// New creates a fresh indicator instance for cfg.
func New(cfg IndicatorConfig) (Indicator, error) {
	if cfg.Kind != KindMACD && cfg.Period < 1 {
		return nil, fmt.Errorf("indicator %s: period must be positive, got %d", cfg.Kind, cfg.Period)
	}
	switch cfg.Kind {
	case KindSMA:
		return NewSMA(cfg.Period), nil
	case KindEMA:
		return NewEMA(cfg.Period), nil
	case KindSMMA:
		return NewSMMA(cfg.Period), nil
	case KindRSI:
		return NewRSI(cfg.Period), nil
	case KindBollinger:
		return NewBollinger(cfg.Period, cfg.StdDev), nil
	case KindMACD:
		return NewMACD(cfg.Fast, cfg.Slow, cfg.Signal), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
}

// Line is one output of an indicator, aligned with the candle series.
// Entries before the indicator is ready are NaN.
type Line struct {
	Name   string
	Values []float64
}

// Series holds every line of one indicator over a candle series.
type Series struct {
	Config IndicatorConfig
	Lines  []Line
}

// Result is the latest value of one indicator.
type Result struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Ready bool    `json:"ready"`
}

type multiValued interface {
	Values() []float64
}

// live pairs an indicator instance with the series it has produced so far.
type live struct {
	ind    Indicator
	series Series
}

// Engine keeps a set of indicators in sync with one candle series.
// Designed for single-goroutine usage; no locks needed.
type Engine struct {
	live []*live
}

// NewEngine creates an engine computing the given indicators.
func NewEngine(configs []IndicatorConfig) (*Engine, error) {
	e := &Engine{}
	for _, cfg := range configs {
		if _, err := e.Add(cfg, nil); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Add registers another indicator and computes it over candles, which must
// be the series the engine has processed so far (or nil when empty).
func (e *Engine) Add(cfg IndicatorConfig, candles []model.Candle) (Series, error) {
	ind, err := New(cfg)
	if err != nil {
		return Series{}, err
	}
	l := &live{ind: ind, series: newSeries(cfg, len(candles))}
	for _, c := range candles {
		l.step(c)
	}
	e.live = append(e.live, l)
	return l.series, nil
}

// Len returns the number of registered indicators.
func (e *Engine) Len() int { return len(e.live) }

// Recompute discards all state and replays candles through every indicator.
func (e *Engine) Recompute(candles []model.Candle) {
	for _, l := range e.live {
		l.ind.Reset()
		l.series = newSeries(l.series.Config, len(candles))
	}
	for _, c := range candles {
		e.Process(c)
	}
}

// Process appends one finalized candle and returns the latest value of every
// indicator.
func (e *Engine) Process(c model.Candle) []Result {
	results := make([]Result, 0, len(e.live))
	for _, l := range e.live {
		l.step(c)
		results = append(results, Result{
			Name:  l.series.Config.Name(),
			Value: l.ind.Value(),
			Ready: l.ind.Ready(),
		})
	}
	return results
}

// ProcessPeek previews every indicator with a forming candle's close.
// Does NOT mutate indicator state.
func (e *Engine) ProcessPeek(price float64) []Result {
	results := make([]Result, 0, len(e.live))
	for _, l := range e.live {
		results = append(results, Result{
			Name:  l.series.Config.Name(),
			Value: l.ind.Peek(price),
			Ready: l.ind.Ready(),
		})
	}
	return results
}

// Series returns the computed series of every indicator, in registration
// order. Callers must not modify the returned slices.
func (e *Engine) Series() []Series {
	out := make([]Series, len(e.live))
	for i, l := range e.live {
		out[i] = l.series
	}
	return out
}

// Compute runs a single indicator over candles.
func Compute(cfg IndicatorConfig, candles []model.Candle) (Series, error) {
	var e Engine
	return e.Add(cfg, candles)
}

func newSeries(cfg IndicatorConfig, capacity int) Series {
	names := cfg.lineNames()
	lines := make([]Line, len(names))
	for i, n := range names {
		lines[i] = Line{Name: n, Values: make([]float64, 0, capacity)}
	}
	return Series{Config: cfg, Lines: lines}
}

func (l *live) step(c model.Candle) {
	l.ind.Update(c)
	ready := l.ind.Ready()

	var vals []float64
	if mv, ok := l.ind.(multiValued); ok {
		vals = mv.Values()
	} else {
		vals = []float64{l.ind.Value()}
	}
	for i := range l.series.Lines {
		v := math.NaN()
		if ready {
			v = vals[i]
		}
		l.series.Lines[i].Values = append(l.series.Lines[i].Values, v)
	}
}
