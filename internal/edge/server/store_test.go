package server

import (
	"context"
	"math/big"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickslab/picks-edge/internal/reconcile"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "picks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPick(t *testing.T, s *Store, pickID, creatorID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id,wallet,created_at) VALUES (?,?,?)`,
		creatorID, "0xcccccccccccccccccccccccccccccccccccccccc", now)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `
INSERT INTO picks (id,creator_user_id,market_address,fee_bps,creator_fee_split_bps,created_at,updated_at)
VALUES (?,?,?,?,?,?,?)`,
		pickID, creatorID, "0x1111111111111111111111111111111111111111", 100, 20, now, now)
	require.NoError(t, err)
}

func testRow(pickID string, logIndex uint64, amount string) reconcile.TradeRow {
	amt, _ := new(big.Int).SetString(amount, 10)
	yes := int64(5000)
	return reconcile.TradeRow{
		PickID:        pickID,
		TxHash:        "0x" + strings.Repeat("cd", 32),
		LogIndex:      logIndex,
		Trader:        "0x2222222222222222222222222222222222222222",
		IsYes:         true,
		AmountWei:     amt,
		SharesWei:     big.NewInt(1),
		FeeWei:        big.NewInt(1),
		CreatorFeeWei: big.NewInt(0),
		YesPriceBps:   &yes,
		BlockNumber:   7,
		OccurredAt:    time.Now().UTC(),
	}
}

func TestResolveUserByWallet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id1, err := s.ResolveUserByWallet(ctx, "0xABCDEF0000000000000000000000000000000001")
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	// Same wallet in a different case resolves to the same user.
	id2, err := s.ResolveUserByWallet(ctx, "0xabcdef0000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	id3, err := s.ResolveUserByWallet(ctx, "0xabcdef0000000000000000000000000000000002")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestUpsertTrade_ConflictIsNoOp(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	seedPick(t, s, "p1", "creator-1")

	row := testRow("p1", 0, "1000000000000000000")
	inserted, err := s.UpsertTrade(ctx, row)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.UpsertTrade(ctx, row)
	require.NoError(t, err)
	assert.False(t, inserted, "replayed row must not insert again")

	other := testRow("p1", 1, "5")
	inserted, err = s.UpsertTrade(ctx, other)
	require.NoError(t, err)
	assert.True(t, inserted, "a different log index is a new row")
}

func TestIncrementTotals_BeyondInt64(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	seedPick(t, s, "p1", "creator-1")

	// 10^20 wei does not fit a 64-bit SQL integer.
	delta, _ := new(big.Int).SetString("100000000000000000000", 10)
	fee, _ := new(big.Int).SetString("2000000000000000", 10)
	require.NoError(t, s.IncrementTotals(ctx, "p1", "creator-1", delta, fee))
	require.NoError(t, s.IncrementTotals(ctx, "p1", "creator-1", delta, fee))

	var volume string
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT volume_wei FROM picks WHERE id='p1'`).Scan(&volume))
	assert.Equal(t, "200000000000000000000", volume)

	var earned string
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT creator_fee_earned_wei FROM users WHERE id='creator-1'`).Scan(&earned))
	assert.Equal(t, "4000000000000000", earned)
}

func TestGetPick(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	seedPick(t, s, "p1", "creator-1")

	pick, err := s.GetPick(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, pick)
	assert.Equal(t, "creator-1", pick.CreatorUserID)
	assert.EqualValues(t, 100, pick.FeeBps)
	assert.EqualValues(t, 20, pick.CreatorFeeSplitBps)

	missing, err := s.GetPick(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSumTradeVolumeByPick(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	seedPick(t, s, "p1", "creator-1")

	first := testRow("p1", 0, "1000000000000000000")
	second := testRow("p1", 1, "500000000000000000")
	for _, row := range []reconcile.TradeRow{first, second} {
		_, err := s.UpsertTrade(ctx, row)
		require.NoError(t, err)
	}

	total, err := s.sumTradeVolumeByPick(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", total.String())
}
