package sqlite

import (
	"context"
	"fmt"

	"chart-enginev1/internal/model"
)

// ReadCandles returns series ordered by date. An unknown series yields an
// empty slice.
func (s *Store) ReadCandles(ctx context.Context, series string) ([]model.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM candles
		WHERE series = ?
		ORDER BY date ASC
	`, series)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	candles := []model.Candle{}
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.Date, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candles: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// Series lists the stored series names.
func (s *Store) Series(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT series FROM candles ORDER BY series`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query series: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("sqlite scan series: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
