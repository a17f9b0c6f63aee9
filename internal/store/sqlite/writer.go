package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"chart-enginev1/internal/model"
)

const defaultBatchSize = 100

// Config configures the SQLite candle store.
type Config struct {
	DBPath string // e.g. "data/candles.db"
}

// Store persists named daily candle series. It is safe for concurrent use;
// writes go through a single connection.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database in WAL mode and creates the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			series TEXT    NOT NULL,
			date   TEXT    NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume INTEGER NOT NULL,
			PRIMARY KEY (series, date)
		);
	`)
	return err
}

// WriteCandles upserts candles by (series, date) in transactions of up to
// defaultBatchSize rows.
func (s *Store) WriteCandles(ctx context.Context, series string, candles []model.Candle) error {
	if series == "" {
		return fmt.Errorf("sqlite write: empty series name")
	}
	start := time.Now()
	for i := 0; i < len(candles); i += defaultBatchSize {
		end := min(i+defaultBatchSize, len(candles))
		if err := s.insertBatch(ctx, series, candles[i:end]); err != nil {
			return fmt.Errorf("sqlite write %s: %w", series, err)
		}
	}
	log.Printf("[sqlite] committed %d candles for %s in %v", len(candles), series, time.Since(start))
	return nil
}

// insertBatch inserts a batch of candles in a single transaction.
func (s *Store) insertBatch(ctx context.Context, series string, candles []model.Candle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (series, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := c.Time(); err != nil {
			tx.Rollback()
			return fmt.Errorf("candle date %q: %w", c.Date, err)
		}
		if _, err := stmt.ExecContext(ctx, series, c.Date, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// DeleteSeries removes every candle of series.
func (s *Store) DeleteSeries(ctx context.Context, series string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM candles WHERE series = ?`, series); err != nil {
		return fmt.Errorf("sqlite delete %s: %w", series, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ model.CandleStore = (*Store)(nil)
