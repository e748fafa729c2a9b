package server

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pickslab/picks-edge/internal/reconcile"
)

// GetPick returns the fee configuration for one market, or nil when missing.
func (s *Store) GetPick(ctx context.Context, pickID string) (*reconcile.PickConfig, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id,creator_user_id,market_address,fee_bps,creator_fee_split_bps
FROM picks WHERE id=?
`, pickID)
	var p reconcile.PickConfig
	if err := row.Scan(&p.ID, &p.CreatorUserID, &p.MarketAddress, &p.FeeBps, &p.CreatorFeeSplitBps); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// pickMeta carries the non-fee pick attributes the other edge functions use.
type pickMeta struct {
	ID            string
	CreatorUserID string
	TweetID       *string
	PoolAddress   *string
}

func (s *Store) getPickMeta(ctx context.Context, pickID string) (*pickMeta, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id,creator_user_id,tweet_id,pool_address FROM picks WHERE id=?
`, pickID)
	var m pickMeta
	if err := row.Scan(&m.ID, &m.CreatorUserID, &m.TweetID, &m.PoolAddress); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) setPickVolume(ctx context.Context, pickID, volumeWei string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE picks SET volume_wei=?, updated_at=? WHERE id=?
`, volumeWei, time.Now().UTC().Format(time.RFC3339Nano), pickID)
	return err
}
