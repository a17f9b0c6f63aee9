// Command chartsvg renders a candlestick chart to an SVG file.
//
// Candles are read from the SQLite store; a missing series is seeded with a
// random walk first. A short scripted session (zoom, pan, trend line,
// horizontal line, text note, crosshair) runs before the frame is drawn,
// and the latest RSI and MACD readings are logged.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"chart-enginev1/config"
	"chart-enginev1/internal/chart/data"
	"chart-enginev1/internal/chart/drawing"
	"chart-enginev1/internal/chart/engine"
	"chart-enginev1/internal/chart/interaction"
	"chart-enginev1/internal/chart/render"
	"chart-enginev1/internal/indicator"
	"chart-enginev1/internal/logger"
	"chart-enginev1/internal/model"
	sqlitestore "chart-enginev1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config")
	out := flag.String("out", "", "output file (overrides chart.output)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[chartsvg] config: %v", err)
	}
	if *out != "" {
		cfg.Chart.Output = *out
	}
	logger.Init("chartsvg", logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLite.Path})
	if err != nil {
		log.Fatalf("[chartsvg] sqlite: %v", err)
	}
	defer store.Close()

	svg, err := renderChart(ctx, store, cfg.Chart)
	if err != nil {
		log.Fatalf("[chartsvg] %v", err)
	}
	if err := os.WriteFile(cfg.Chart.Output, svg.Bytes(), 0o644); err != nil {
		log.Fatalf("[chartsvg] write %s: %v", cfg.Chart.Output, err)
	}
	log.Printf("[chartsvg] wrote %s (%d elements)", cfg.Chart.Output, svg.Len())
}

// renderChart loads (or seeds) the configured series and draws one frame.
func renderChart(ctx context.Context, store model.CandleStore, cfg config.ChartConfig) (*render.SVG, error) {
	if err := ensureSeries(ctx, store, cfg); err != nil {
		return nil, err
	}

	svg := render.NewSVG(cfg.Width, cfg.Height, "#ffffff")
	chart, err := engine.New(svg, engine.Options{Background: "#ffffff"}, nil)
	if err != nil {
		return nil, err
	}
	defer chart.Destroy()

	if err := chart.LoadData(ctx, store, cfg.Series); err != nil {
		return nil, err
	}
	if err := chart.AddIndicator(indicator.KindSMA, 20, "#2962ff"); err != nil {
		return nil, err
	}
	if err := chart.AddIndicator(indicator.KindBollinger, 20, "#9c27b0"); err != nil {
		return nil, err
	}

	script(chart)
	chart.RenderFrame()

	candles, err := store.ReadCandles(ctx, cfg.Series)
	if err != nil {
		return nil, err
	}
	results, err := readings(candles)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		log.Printf("[chartsvg] %s %s=%.4f ready=%v", cfg.Series, r.Name, r.Value, r.Ready)
	}
	return svg, nil
}

// ensureSeries seeds the series with a random walk when it is empty.
func ensureSeries(ctx context.Context, store model.CandleStore, cfg config.ChartConfig) error {
	existing, err := store.ReadCandles(ctx, cfg.Series)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	candles := data.Sample(cfg.Candles, 100, end, rand.New(rand.NewSource(seed)))
	if err := store.WriteCandles(ctx, cfg.Series, candles); err != nil {
		return fmt.Errorf("seed %s: %w", cfg.Series, err)
	}
	log.Printf("[chartsvg] seeded %s with %d candles", cfg.Series, len(candles))
	return nil
}

// script drives the chart through the same input path a browser would.
func script(chart *engine.Engine) {
	b := chart.CoordinateSystem().ChartBounds()
	at := func(fx, fy float64) interaction.Pointer {
		return interaction.Pointer{X: b.Left + fx*(b.Right-b.Left), Y: b.Top + fy*(b.Bottom-b.Top)}
	}

	// zoom in one notch at the centre, then drag left by a tenth
	center := at(0.5, 0.5)
	chart.Wheel(interaction.Wheel{X: center.X, Y: center.Y, DeltaY: -1})
	chart.PointerDown(center)
	chart.PointerMove(at(0.6, 0.5))
	chart.PointerUp(at(0.6, 0.5))

	chart.SetDrawingMode(drawing.ModeTrendLine)
	chart.PointerDown(at(0.2, 0.7))
	chart.PointerMove(at(0.5, 0.4))
	chart.PointerDown(at(0.8, 0.3))

	chart.SetDrawingMode(drawing.ModeHorizontal)
	chart.PointerDown(at(0.5, 0.5))

	unsubscribe := chart.Drawings().Subscribe(func(ev drawing.Event) {
		if req, ok := ev.(drawing.TextInputRequested); ok {
			chart.Drawings().AddTextAnnotation(req.Index, req.Price, "breakout", chart.Drawings().DefaultStyle())
		}
	})
	chart.SetDrawingMode(drawing.ModeText)
	chart.PointerDown(at(0.7, 0.2))
	unsubscribe()

	chart.PointerMove(at(0.45, 0.55))
}
