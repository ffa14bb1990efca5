package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/amirphl/xau-signals/internal/candle"
	"github.com/amirphl/xau-signals/internal/pattern"
	"github.com/amirphl/xau-signals/internal/utils"
)

// Postgres stores candles and signals in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection pool and ensures the schema exists.
func NewPostgres(connStr string, maxOpen, maxIdle int) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	p := &Postgres{db: db}
	if err := p.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			timeframe VARCHAR(8) NOT NULL,
			open DOUBLE PRECISION NOT NULL,
			high DOUBLE PRECISION NOT NULL,
			low DOUBLE PRECISION NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			volume BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (timestamp, timeframe)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candles_timeframe_timestamp
			ON candles (timeframe, timestamp)`,
		`CREATE TABLE IF NOT EXISTS signals (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			signal_type VARCHAR(10) NOT NULL,
			pattern VARCHAR(20) NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveCandles inserts candles in one transaction, skipping rows whose
// (timestamp, timeframe) key already exists.
func (p *Postgres) SaveCandles(ctx context.Context, candles []candle.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (timestamp, timeframe, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (timestamp, timeframe) DO NOTHING`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range candles {
		c := &candles[i]
		if err := c.Validate(); err != nil {
			utils.GetLogger().Printf("Postgres | Skipping malformed candle at %s: %v", c.Timestamp, err)
			continue
		}
		if _, err := stmt.ExecContext(ctx, c.Timestamp.UTC(), c.Timeframe, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert candle at %s: %w", c.Timestamp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit candles: %w", err)
	}
	return nil
}

// GetCandles loads candles for [start, end] in ascending timestamp
// order, dropping any stored row that fails validation.
func (p *Postgres) GetCandles(ctx context.Context, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT timestamp, timeframe, open, high, low, close, volume
		FROM candles
		WHERE timeframe = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC`,
		timeframe, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var out []candle.Candle
	for rows.Next() {
		var c candle.Candle
		if err := rows.Scan(&c.Timestamp, &c.Timeframe, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		c.Timestamp = c.Timestamp.UTC()
		if err := c.Validate(); err != nil {
			utils.GetLogger().Printf("Postgres | Dropping malformed stored candle at %s: %v", c.Timestamp, err)
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetLatestTimestamp returns the newest candle timestamp for a
// timeframe, or nil when no candles are stored.
func (p *Postgres) GetLatestTimestamp(ctx context.Context, timeframe string) (*time.Time, error) {
	var ts sql.NullTime
	err := p.db.QueryRowContext(ctx,
		`SELECT MAX(timestamp) FROM candles WHERE timeframe = $1`, timeframe).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest timestamp: %w", err)
	}
	if !ts.Valid {
		return nil, nil
	}
	t := ts.Time.UTC()
	return &t, nil
}

func (p *Postgres) GetCandleCount(ctx context.Context, timeframe string, start, end time.Time) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM candles
		WHERE timeframe = $1 AND timestamp >= $2 AND timestamp <= $3`,
		timeframe, start.UTC(), end.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count candles: %w", err)
	}
	return n, nil
}

func (p *Postgres) SaveSignals(ctx context.Context, signals []pattern.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, s := range signals {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO signals (timestamp, signal_type, pattern, entry_price, confidence)
			VALUES ($1, $2, $3, $4, $5)`,
			s.Timestamp.UTC(), string(s.Side), string(s.Pattern), s.EntryPrice, s.Confidence)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert signal at %s: %w", s.Timestamp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit signals: %w", err)
	}
	return nil
}

func (p *Postgres) GetSignals(ctx context.Context, start, end time.Time) ([]pattern.Signal, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT timestamp, signal_type, pattern, entry_price, COALESCE(confidence, 0)
		FROM signals
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp ASC`,
		start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var out []pattern.Signal
	for rows.Next() {
		var s pattern.Signal
		var side, pat string
		if err := rows.Scan(&s.Timestamp, &side, &pat, &s.EntryPrice, &s.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		s.Timestamp = s.Timestamp.UTC()
		s.Side = pattern.Side(side)
		s.Pattern = pattern.Pattern(pat)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
