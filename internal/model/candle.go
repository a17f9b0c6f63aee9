package model

import "time"

// DateLayout is the format of Candle.Date.
const DateLayout = "2006-01-02"

// Candle is one daily OHLCV bar. The chart addresses candles by their
// position in a series, never by Date.
type Candle struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Bullish reports whether the candle closed above its open.
func (c *Candle) Bullish() bool { return c.Close > c.Open }

// Time parses Date.
func (c *Candle) Time() (time.Time, error) {
	return time.Parse(DateLayout, c.Date)
}
