// Package state persists engine state, executed trades, and portfolio
// snapshots in SQLite so the bot survives restarts without losing its
// position or cooldown context.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"macdbot/internal/strategy"
)

// Trade is one executed order, as recorded after fill.
type Trade struct {
	ID       int64     `json:"id"`
	Pair     string    `json:"pair"`
	Side     string    `json:"side"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	Value    float64   `json:"value"`
	Reason   string    `json:"reason"`
	Time     time.Time `json:"time"`
}

// PortfolioPoint is a periodic total-value snapshot for the dashboard chart.
type PortfolioPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Store wraps the SQLite database. Safe for use from a single goroutine; the
// engine serializes all access.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", pragma, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS bot_state (
			pair TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pair TEXT NOT NULL,
			side TEXT NOT NULL,
			price REAL NOT NULL,
			quantity REAL NOT NULL,
			value REAL NOT NULL,
			reason TEXT NOT NULL,
			ts INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts);
		CREATE TABLE IF NOT EXISTS portfolio (
			ts INTEGER PRIMARY KEY,
			value REAL NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveEngineState upserts the serialized strategy state for a pair.
func (s *Store) SaveEngineState(ctx context.Context, pair string, st strategy.EngineState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state for %s: %w", pair, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO bot_state (pair, state, updated_at) VALUES (?, ?, ?) ON CONFLICT(pair) DO UPDATE SET state=excluded.state, updated_at=excluded.updated_at",
		pair, string(payload), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save state for %s: %w", pair, err)
	}
	return nil
}

// LoadEngineState returns the stored state for a pair. The second return is
// false when no state has been saved yet.
func (s *Store) LoadEngineState(ctx context.Context, pair string) (strategy.EngineState, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT state FROM bot_state WHERE pair = ?", pair).Scan(&payload)
	if err == sql.ErrNoRows {
		return strategy.EngineState{}, false, nil
	}
	if err != nil {
		return strategy.EngineState{}, false, fmt.Errorf("load state for %s: %w", pair, err)
	}

	var st strategy.EngineState
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return strategy.EngineState{}, false, fmt.Errorf("unmarshal state for %s: %w", pair, err)
	}
	return st, true, nil
}

// RecordTrade appends an executed trade.
func (s *Store) RecordTrade(ctx context.Context, tr Trade) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO trades (pair, side, price, quantity, value, reason, ts) VALUES (?, ?, ?, ?, ?, ?, ?)",
		tr.Pair, tr.Side, tr.Price, tr.Quantity, tr.Value, tr.Reason, tr.Time.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record trade: %w", err)
	}
	return nil
}

// Trades returns the most recent trades, newest first, up to limit.
func (s *Store) Trades(ctx context.Context, limit int) ([]Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, pair, side, price, quantity, value, reason, ts FROM trades ORDER BY ts DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var tr Trade
		var ts int64
		if err := rows.Scan(&tr.ID, &tr.Pair, &tr.Side, &tr.Price, &tr.Quantity, &tr.Value, &tr.Reason, &ts); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		tr.Time = time.Unix(ts, 0).UTC()
		trades = append(trades, tr)
	}
	return trades, rows.Err()
}

// TradesSince counts trades executed at or after the cutoff. Used by the
// daily trade limit.
func (s *Store) TradesSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trades WHERE ts >= ?", cutoff.Unix()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count trades: %w", err)
	}
	return count, nil
}

// LastTrade returns the newest trade for a pair, if any. Recovery uses it to
// rebuild position entry details when no engine state was checkpointed.
func (s *Store) LastTrade(ctx context.Context, pair string) (Trade, bool, error) {
	var tr Trade
	var ts int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, pair, side, price, quantity, value, reason, ts FROM trades WHERE pair = ? ORDER BY ts DESC, id DESC LIMIT 1",
		pair,
	).Scan(&tr.ID, &tr.Pair, &tr.Side, &tr.Price, &tr.Quantity, &tr.Value, &tr.Reason, &ts)
	if err == sql.ErrNoRows {
		return Trade{}, false, nil
	}
	if err != nil {
		return Trade{}, false, fmt.Errorf("last trade for %s: %w", pair, err)
	}
	tr.Time = time.Unix(ts, 0).UTC()
	return tr, true, nil
}

// SavePortfolioPoint records a total-value snapshot. Snapshots at the same
// second overwrite each other.
func (s *Store) SavePortfolioPoint(ctx context.Context, p PortfolioPoint) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO portfolio (ts, value) VALUES (?, ?) ON CONFLICT(ts) DO UPDATE SET value=excluded.value",
		p.Time.Unix(), p.Value,
	)
	if err != nil {
		return fmt.Errorf("save portfolio point: %w", err)
	}
	return nil
}

// PortfolioHistory returns snapshots since the cutoff, oldest first.
func (s *Store) PortfolioHistory(ctx context.Context, since time.Time) ([]PortfolioPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT ts, value FROM portfolio WHERE ts >= ? ORDER BY ts ASC", since.Unix())
	if err != nil {
		return nil, fmt.Errorf("query portfolio: %w", err)
	}
	defer rows.Close()

	var points []PortfolioPoint
	for rows.Next() {
		var ts int64
		var p PortfolioPoint
		if err := rows.Scan(&ts, &p.Value); err != nil {
			return nil, fmt.Errorf("scan portfolio point: %w", err)
		}
		p.Time = time.Unix(ts, 0).UTC()
		points = append(points, p)
	}
	return points, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
