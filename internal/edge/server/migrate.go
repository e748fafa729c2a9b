package server

import (
	"context"
	"fmt"
	"time"
)

// Wei amounts are TEXT: they routinely exceed SQLite's 64-bit integers.
func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  wallet TEXT NOT NULL UNIQUE,
  x_handle TEXT,
  volume_wei TEXT NOT NULL DEFAULT '0',
  creator_fee_earned_wei TEXT NOT NULL DEFAULT '0',
  created_at TEXT NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS picks (
  id TEXT PRIMARY KEY,
  creator_user_id TEXT NOT NULL REFERENCES users(id),
  market_address TEXT NOT NULL,
  fee_bps INTEGER NOT NULL DEFAULT 0,
  creator_fee_split_bps INTEGER NOT NULL DEFAULT 0,
  tweet_id TEXT,
  pool_address TEXT,
  volume_wei TEXT NOT NULL DEFAULT '0',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_picks_market_address ON picks(market_address);`,
		`
CREATE TABLE IF NOT EXISTS trades (
  pick_id TEXT NOT NULL REFERENCES picks(id),
  tx_hash TEXT NOT NULL,
  log_index INTEGER NOT NULL,
  trader TEXT NOT NULL,
  user_id TEXT REFERENCES users(id),
  is_yes INTEGER NOT NULL,
  amount_wei TEXT NOT NULL,
  shares_wei TEXT NOT NULL,
  fee_wei TEXT NOT NULL,
  creator_fee_wei TEXT NOT NULL,
  yes_price_bps INTEGER,
  no_price_bps INTEGER,
  block_number INTEGER NOT NULL,
  occurred_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  PRIMARY KEY (tx_hash, log_index)
);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_pick_occurred ON trades(pick_id, occurred_at);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_user ON trades(user_id);`,
	}

	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate exec failed: %w", err)
		}
	}
	return nil
}
