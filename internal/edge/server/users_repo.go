package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ResolveUserByWallet returns the id of the user owning wallet, creating one
// on first sighting. Wallets are stored lowercase. The insert races with
// concurrent invocations for the same wallet, so conflicts fall through to a
// re-fetch instead of erroring.
func (s *Store) ResolveUserByWallet(ctx context.Context, wallet string) (string, error) {
	wallet = strings.ToLower(strings.TrimSpace(wallet))
	if wallet == "" {
		return "", fmt.Errorf("wallet is required")
	}

	if id, err := s.userIDByWallet(ctx, wallet); err != nil {
		return "", err
	} else if id != "" {
		return id, nil
	}

	newID := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id,wallet,created_at) VALUES (?,?,?)
ON CONFLICT(wallet) DO NOTHING
`, newID, wallet, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", err
	}

	// The insert may have been a no-op if another invocation won the race.
	id, err := s.userIDByWallet(ctx, wallet)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("user for wallet %s not found after upsert", wallet)
	}
	return id, nil
}

func (s *Store) userIDByWallet(ctx context.Context, wallet string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE wallet=?`, wallet)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return id, nil
}

func (s *Store) userHandleByID(ctx context.Context, userID string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(x_handle,'') FROM users WHERE id=?`, userID)
	var handle string
	if err := row.Scan(&handle); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return handle, nil
}

func (s *Store) userIDAndHandleByWallet(ctx context.Context, wallet string) (id, handle string, err error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, COALESCE(x_handle,'') FROM users WHERE wallet=?
`, strings.ToLower(strings.TrimSpace(wallet)))
	if err := row.Scan(&id, &handle); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", nil
		}
		return "", "", err
	}
	return id, handle, nil
}

func (s *Store) setUserVolume(ctx context.Context, userID, volumeWei string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET volume_wei=? WHERE id=?`, volumeWei, userID)
	return err
}
