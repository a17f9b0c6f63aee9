package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"chart-enginev1/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DBPath: filepath.Join(t.TempDir(), "candles.db")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RoundTripOrdered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := []model.Candle{
		{Date: "2024-01-03", Open: 3, High: 4, Low: 2, Close: 3.5, Volume: 300},
		{Date: "2024-01-01", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Date: "2024-01-02", Open: 2, High: 3, Low: 1, Close: 2.5, Volume: 200},
	}
	if err := s.WriteCandles(ctx, "BTC", in); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadCandles(ctx, "BTC")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(got))
	}
	if got[0] != in[1] || got[1] != in[2] || got[2] != in[0] {
		t.Errorf("expected date order, got %+v", got)
	}
}

func TestStore_UpsertByDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.WriteCandles(ctx, "BTC", []model.Candle{{Date: "2024-01-01", Close: 1}, {Date: "2024-01-02", Close: 2}})
	s.WriteCandles(ctx, "BTC", []model.Candle{{Date: "2024-01-02", Close: 20}, {Date: "2024-01-03", Close: 3}})

	got, _ := s.ReadCandles(ctx, "BTC")
	if len(got) != 3 || got[1].Close != 20 || got[2].Close != 3 {
		t.Errorf("expected replace-then-append, got %+v", got)
	}
}

func TestStore_SeriesAreIndependent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.WriteCandles(ctx, "ETH", []model.Candle{{Date: "2024-01-01", Close: 1}})
	s.WriteCandles(ctx, "BTC", []model.Candle{{Date: "2024-01-01", Close: 2}})

	names, err := s.Series(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "BTC" || names[1] != "ETH" {
		t.Errorf("unexpected series %v", names)
	}

	got, err := s.ReadCandles(ctx, "SOL")
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("unknown series should be empty and non-nil, got %v %v", got, err)
	}

	if err := s.DeleteSeries(ctx, "ETH"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.ReadCandles(ctx, "ETH"); len(got) != 0 {
		t.Error("series should be deleted")
	}
}

func TestStore_LargeBatchAndBadDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	in := make([]model.Candle, 250)
	for i := range in {
		in[i] = model.Candle{Date: first.AddDate(0, 0, i).Format(model.DateLayout), Close: float64(i)}
	}
	if err := s.WriteCandles(ctx, "BIG", in); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.ReadCandles(ctx, "BIG"); len(got) != 250 {
		t.Errorf("expected 250 candles, got %d", len(got))
	}

	if err := s.WriteCandles(ctx, "BAD", []model.Candle{{Date: "yesterday"}}); err == nil {
		t.Error("expected an error for an invalid date")
	}
	if err := s.WriteCandles(ctx, "", nil); err == nil {
		t.Error("expected an error for an empty series name")
	}
}
