// Package sqlite journals committed candles to disk so the engine can warm
// its buffer on restart instead of waiting out a full lookback window.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"chart-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath   string // path to SQLite database file, e.g. "data/candles.db"
	Symbol   string
	Interval string
}

// Writer is a single-goroutine SQLite writer with transaction batching.
type Writer struct {
	db       *sql.DB
	symbol   string
	interval string
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode
// and the candle schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer discipline
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db, symbol: cfg.Symbol, interval: cfg.Interval}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol   TEXT    NOT NULL,
			interval TEXT    NOT NULL,
			ts       INTEGER NOT NULL,
			open     REAL    NOT NULL,
			high     REAL    NOT NULL,
			low      REAL    NOT NULL,
			close    REAL    NOT NULL,
			volume   REAL,
			PRIMARY KEY (symbol, interval, ts)
		);
	`)
	return err
}

// Run reads committed candles from candleCh and inserts them in batched
// transactions. Flushes every batchSize candles OR every flushDelay,
// whichever first. Blocks until ctx is cancelled or candleCh is closed.
func (w *Writer) Run(ctx context.Context, candleCh <-chan model.Candle) {
	batch := make([]model.Candle, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertBatch(batch); err != nil {
			log.Printf("[sqlite] batch insert error: %v", err)
		} else {
			log.Printf("[sqlite] committed %d candles in %v", len(batch), time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case candle, ok := <-candleCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, candle)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// insertBatch inserts a batch of candles in a single transaction. INSERT OR
// REPLACE keeps late revisions of an already-journaled bar idempotent.
func (w *Writer) insertBatch(candles []model.Candle) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles (symbol, interval, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.Exec(w.symbol, w.interval, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// LoadRecent returns up to limit most recent journaled candles in ascending
// time order, for warm-starting the buffer after a restart.
func (w *Writer) LoadRecent(limit int) ([]model.Candle, error) {
	rows, err := w.db.Query(`
		SELECT ts, open, high, low, close, volume FROM (
			SELECT ts, open, high, low, close, volume
			FROM candles
			WHERE symbol = ? AND interval = ?
			ORDER BY ts DESC LIMIT ?
		) ORDER BY ts ASC
	`, w.symbol, w.interval, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Candle
	for rows.Next() {
		var c model.Candle
		var vol sql.NullFloat64
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &vol); err != nil {
			return nil, err
		}
		c.Volume = vol.Float64
		out = append(out, c)
	}
	return out, rows.Err()
}

// LastTimestamp returns the newest journaled candle timestamp, or 0 if the
// journal is empty.
func (w *Writer) LastTimestamp() (int64, error) {
	var ts sql.NullInt64
	err := w.db.QueryRow(
		`SELECT MAX(ts) FROM candles WHERE symbol = ? AND interval = ?`,
		w.symbol, w.interval,
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
