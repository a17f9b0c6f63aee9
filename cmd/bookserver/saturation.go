package main

import (
	"context"
	"time"

	"chart-enginev1/internal/bus"
	"chart-enginev1/internal/metrics"
	"chart-enginev1/internal/orderbook"
)

// monitorSaturation samples the fan-out queue fill level.
func monitorSaturation(ctx context.Context, f *bus.FanOut[orderbook.Event], prom *metrics.Metrics, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range f.ChannelStats() {
				if s.Cap == 0 {
					continue
				}
				prom.ChannelSaturationPct.WithLabelValues("fanout_" + s.Name).Set(float64(s.Len) / float64(s.Cap) * 100)
			}
		}
	}
}
