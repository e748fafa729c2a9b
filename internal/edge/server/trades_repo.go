package server

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/pickslab/picks-edge/internal/reconcile"
)

// UpsertTrade inserts one trade keyed by (tx_hash, log_index). A conflict is
// a silent no-op so replayed transactions never double-count; the return
// value reports whether this call actually inserted the row.
func (s *Store) UpsertTrade(ctx context.Context, row reconcile.TradeRow) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO trades (pick_id,tx_hash,log_index,trader,user_id,is_yes,
  amount_wei,shares_wei,fee_wei,creator_fee_wei,yes_price_bps,no_price_bps,
  block_number,occurred_at,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(tx_hash,log_index) DO NOTHING
`,
		row.PickID, row.TxHash, row.LogIndex, row.Trader, nullableStr(row.UserID), boolToInt(row.IsYes),
		row.AmountWei.String(), row.SharesWei.String(), row.FeeWei.String(), row.CreatorFeeWei.String(),
		nullableInt(row.YesPriceBps), nullableInt(row.NoPriceBps),
		row.BlockNumber, row.OccurredAt.Format(time.RFC3339Nano), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IncrementTotals adds the deltas to the pick's cumulative volume and the
// creator's cumulative fee earnings. Wei totals are TEXT columns, so the add
// is a read-modify-write of big.Ints inside one transaction; the
// single-connection pool serializes it against concurrent runs so no
// increment can be lost.
func (s *Store) IncrementTotals(ctx context.Context, pickID, creatorUserID string, volumeDelta, creatorFeeDelta *big.Int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := addToColumn(ctx, tx,
		`SELECT volume_wei FROM picks WHERE id=?`,
		`UPDATE picks SET volume_wei=?, updated_at=? WHERE id=?`,
		pickID, volumeDelta, true); err != nil {
		return fmt.Errorf("increment pick volume: %w", err)
	}
	if err := addToColumn(ctx, tx,
		`SELECT creator_fee_earned_wei FROM users WHERE id=?`,
		`UPDATE users SET creator_fee_earned_wei=? WHERE id=?`,
		creatorUserID, creatorFeeDelta, false); err != nil {
		return fmt.Errorf("increment creator fee earned: %w", err)
	}
	return tx.Commit()
}

func addToColumn(ctx context.Context, tx *sql.Tx, selectQ, updateQ, id string, delta *big.Int, withUpdatedAt bool) error {
	var current string
	if err := tx.QueryRowContext(ctx, selectQ, id).Scan(&current); err != nil {
		return err
	}
	total, ok := new(big.Int).SetString(current, 10)
	if !ok {
		return fmt.Errorf("stored total %q is not an integer", current)
	}
	total.Add(total, delta)
	if withUpdatedAt {
		_, err := tx.ExecContext(ctx, updateQ, total.String(), time.Now().UTC().Format(time.RFC3339Nano), id)
		return err
	}
	_, err := tx.ExecContext(ctx, updateQ, total.String(), id)
	return err
}

// sumTradeVolumeByPick recomputes the denormalized pick volume from rows.
func (s *Store) sumTradeVolumeByPick(ctx context.Context, pickID string) (*big.Int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT amount_wei FROM trades WHERE pick_id=?`, pickID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return sumWeiRows(rows)
}

func (s *Store) sumTradeVolumeByUser(ctx context.Context, userID string) (*big.Int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT amount_wei FROM trades WHERE user_id=?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return sumWeiRows(rows)
}

func sumWeiRows(rows *sql.Rows) (*big.Int, error) {
	total := new(big.Int)
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return nil, err
		}
		v, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return nil, fmt.Errorf("stored amount %q is not an integer", amount)
		}
		total.Add(total, v)
	}
	return total, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
