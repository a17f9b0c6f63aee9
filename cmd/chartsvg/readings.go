package main

import (
	"chart-enginev1/internal/indicator"
	"chart-enginev1/internal/model"
)

// oscillators are reported alongside the chart; they are not on the price
// scale so they are not drawn.
var oscillators = []indicator.IndicatorConfig{
	{Kind: indicator.KindRSI, Period: 14},
	{Kind: indicator.KindMACD},
}

// readings returns the latest oscillator values. The last candle is treated
// as still forming, so its values are previewed over the closed candles.
func readings(candles []model.Candle) ([]indicator.Result, error) {
	eng, err := indicator.NewEngine(oscillators)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, nil
	}
	last := len(candles) - 1
	eng.Recompute(candles[:last])
	return eng.ProcessPeek(candles[last].Close), nil
}
