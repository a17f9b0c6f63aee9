package data

import (
	"math"
	"math/rand"
	"time"

	"chart-enginev1/internal/model"
)

const sampleVolatility = 0.02

// Sample generates a random-walk daily series of n candles ending the day
// before end. Each close moves at most 1% of the previous close either way.
func Sample(n int, startPrice float64, end time.Time, rng *rand.Rand) []model.Candle {
	if n <= 0 {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	first := end.AddDate(0, 0, -n)
	out := make([]model.Candle, 0, n)
	price := startPrice
	for i := 0; i < n; i++ {
		change := (rng.Float64() - 0.5) * sampleVolatility * price
		open := price
		closePrice := price + change
		high := math.Max(open, closePrice) + rng.Float64()*0.01*price
		low := math.Min(open, closePrice) - rng.Float64()*0.01*price

		out = append(out, model.Candle{
			Date:   first.AddDate(0, 0, i).Format(model.DateLayout),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: int64(rng.Float64()*1_000_000 + 500_000),
		})
		price = closePrice
	}
	return out
}
