// Package reconcile turns a mined Bought transaction into durable trade rows
// and aggregate counters. Each Run is an independent request-scoped pipeline;
// all coordination between concurrent runs happens in the datastore.
package reconcile

import (
	"context"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/pickslab/picks-edge/internal/chain"
	"github.com/pickslab/picks-edge/internal/feemath"
	"github.com/pickslab/picks-edge/pkg/logger"
)

var (
	txHashPattern  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// ChainReader is the RPC surface the pipeline needs.
type ChainReader interface {
	TransactionReceipt(ctx context.Context, txHash string) (*chain.Receipt, error)
	BlockByNumber(ctx context.Context, number uint64) (*chain.Block, error)
}

// PickConfig is the market configuration required before any fee attribution.
type PickConfig struct {
	ID                 string
	CreatorUserID      string
	MarketAddress      string
	FeeBps             int64
	CreatorFeeSplitBps int64
}

// TradeRow is one persisted trade, keyed by (TxHash, LogIndex).
type TradeRow struct {
	PickID        string
	TxHash        string
	LogIndex      uint64
	Trader        string
	UserID        *string
	IsYes         bool
	AmountWei     *big.Int
	SharesWei     *big.Int
	FeeWei        *big.Int
	CreatorFeeWei *big.Int
	YesPriceBps   *int64
	NoPriceBps    *int64
	BlockNumber   uint64
	OccurredAt    time.Time
}

// Gateway is the persistence surface. Implementations must make UpsertTrade
// idempotent on (tx_hash, log_index) and IncrementTotals atomic with respect
// to concurrent runs.
type Gateway interface {
	GetPick(ctx context.Context, pickID string) (*PickConfig, error)
	ResolveUserByWallet(ctx context.Context, wallet string) (string, error)
	UpsertTrade(ctx context.Context, row TradeRow) (inserted bool, err error)
	IncrementTotals(ctx context.Context, pickID, creatorUserID string, volumeDelta, creatorFeeDelta *big.Int) error
}

// Request identifies one transaction to reconcile against one market.
type Request struct {
	PickID        string `json:"pickId"`
	TxHash        string `json:"txHash"`
	MarketAddress string `json:"marketAddress"`
}

// Result summarizes a completed reconciliation. Totals cover only rows this
// run actually inserted, so a replayed transaction reports zero everywhere.
type Result struct {
	TradesInserted int
	TotalVolumeWei *big.Int
	CreatorFeeWei  *big.Int
	InsertedRows   []TradeRow
	TraderUserIDs  []string
}

type Reconciler struct {
	chain   ChainReader
	gateway Gateway
	now     func() time.Time
}

func New(chainReader ChainReader, gateway Gateway) *Reconciler {
	return &Reconciler{chain: chainReader, gateway: gateway, now: time.Now}
}

// Run drives the full pipeline: validate, load market config, fetch receipt,
// decode, enrich, resolve traders, persist, increment totals. Errors are
// *PipelineError; anything from the persist step onward means writes may be
// partially visible and is logged with enough context to reconcile by hand.
func (r *Reconciler) Run(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	pick, err := r.gateway.GetPick(ctx, req.PickID)
	if err != nil {
		return nil, wrap(500, err, "load pick")
	}
	if pick == nil {
		return nil, failf(400, "pick %s not found", req.PickID)
	}
	if !strings.EqualFold(pick.MarketAddress, req.MarketAddress) {
		return nil, failf(400, "market address mismatch for pick %s", req.PickID)
	}
	if pick.FeeBps <= 0 || pick.CreatorFeeSplitBps <= 0 {
		return nil, failf(400, "pick %s is missing fee configuration", req.PickID)
	}

	receipt, err := r.chain.TransactionReceipt(ctx, req.TxHash)
	if err != nil {
		return nil, wrap(500, err, "fetch receipt")
	}
	if receipt == nil {
		return nil, failf(409, "receipt for %s not yet available, retry shortly", req.TxHash)
	}

	matching := chain.FilterBoughtLogs(receipt.Logs, common.HexToAddress(req.MarketAddress))
	if len(matching) == 0 {
		return nil, failf(404, "no Bought events found for market %s in tx %s", req.MarketAddress, req.TxHash)
	}

	events := decodeAll(matching, req.TxHash)
	if len(events) == 0 {
		return nil, failf(422, "no Bought events decoded for tx %s", req.TxHash)
	}

	blockNumber, _ := receipt.BlockNumberUint()
	base := r.blockTime(ctx, blockNumber)

	rows := r.buildRows(ctx, pick, req.TxHash, blockNumber, base, events)

	result := &Result{TotalVolumeWei: new(big.Int), CreatorFeeWei: new(big.Int)}
	insertedFee := new(big.Int)
	seenUsers := map[string]bool{}
	for _, row := range rows {
		inserted, err := r.gateway.UpsertTrade(ctx, row)
		if err != nil {
			logger.Errorf("upsert trade pick=%s tx=%s log=%d: %v", pick.ID, row.TxHash, row.LogIndex, err)
			return nil, wrap(500, err, "persist trades")
		}
		if !inserted {
			continue
		}
		result.TradesInserted++
		result.InsertedRows = append(result.InsertedRows, row)
		result.TotalVolumeWei.Add(result.TotalVolumeWei, row.AmountWei)
		insertedFee.Add(insertedFee, row.FeeWei)
		if row.UserID != nil && !seenUsers[*row.UserID] {
			seenUsers[*row.UserID] = true
			result.TraderUserIDs = append(result.TraderUserIDs, *row.UserID)
		}
	}

	// Creator fee is attributed from the aggregate fee, not the per-row sum,
	// and only over rows this run inserted: replaying a transaction must not
	// move the counters again.
	result.CreatorFeeWei = feemath.CreatorFeeShare(insertedFee, pick.FeeBps, pick.CreatorFeeSplitBps)

	if result.TradesInserted > 0 {
		if err := r.gateway.IncrementTotals(ctx, pick.ID, pick.CreatorUserID, result.TotalVolumeWei, result.CreatorFeeWei); err != nil {
			logger.Errorf("increment totals pick=%s tx=%s volume=%s creatorFee=%s: %v",
				pick.ID, req.TxHash, result.TotalVolumeWei, result.CreatorFeeWei, err)
			return nil, wrap(500, err, "increment totals")
		}
	}

	logger.WithField("pick", pick.ID).Infof("reconciled tx %s: %d trades, volume %s (%s), creator fee %s",
		req.TxHash, result.TradesInserted, result.TotalVolumeWei, displayUnits(result.TotalVolumeWei), result.CreatorFeeWei)
	return result, nil
}

func validate(req Request) *PipelineError {
	if strings.TrimSpace(req.PickID) == "" {
		return failf(400, "pickId is required")
	}
	if !txHashPattern.MatchString(req.TxHash) {
		return failf(400, "txHash must be 0x-prefixed 32-byte hex")
	}
	if !addressPattern.MatchString(req.MarketAddress) {
		return failf(400, "marketAddress must be 0x-prefixed 20-byte hex")
	}
	return nil
}

// decodeAll decodes every matching log, skipping malformed entries so one
// bad log does not sink the rest of the batch.
func decodeAll(logs []chain.Log, txHash string) []*chain.BoughtEvent {
	var out []*chain.BoughtEvent
	for _, lg := range logs {
		ev, err := chain.DecodeBoughtLog(lg)
		if err != nil {
			logger.Warnf("skip undecodable log in tx %s: %v", txHash, err)
			continue
		}
		out = append(out, ev)
	}
	return out
}

// blockTime resolves the block timestamp, falling back to wall-clock time
// when the header is unavailable.
func (r *Reconciler) blockTime(ctx context.Context, blockNumber uint64) time.Time {
	if blockNumber > 0 {
		block, err := r.chain.BlockByNumber(ctx, blockNumber)
		if err != nil {
			logger.Warnf("block %d lookup failed, using wall clock: %v", blockNumber, err)
		} else if block != nil {
			if ts, err := block.TimestampUnix(); err == nil && ts > 0 {
				return time.Unix(int64(ts), 0).UTC()
			}
		}
	}
	return r.now().UTC()
}

func (r *Reconciler) buildRows(ctx context.Context, pick *PickConfig, txHash string, blockNumber uint64, base time.Time, events []*chain.BoughtEvent) []TradeRow {
	// Resolve each distinct trader wallet to a user once. Resolution is
	// best-effort: a failed lookup leaves the row unattributed rather than
	// failing the pipeline.
	users := map[string]*string{}
	for _, ev := range events {
		wallet := strings.ToLower(ev.Trader.Hex())
		if _, ok := users[wallet]; ok {
			continue
		}
		userID, err := r.gateway.ResolveUserByWallet(ctx, wallet)
		if err != nil {
			logger.Warnf("resolve user for wallet %s: %v", wallet, err)
			users[wallet] = nil
			continue
		}
		id := userID
		users[wallet] = &id
	}

	rows := make([]TradeRow, 0, len(events))
	for i, ev := range events {
		wallet := strings.ToLower(ev.Trader.Hex())
		price := feemath.PriceBps(ev.AmountIn, ev.SharesMinted)
		row := TradeRow{
			PickID:        pick.ID,
			TxHash:        strings.ToLower(txHash),
			LogIndex:      ev.LogIndex,
			Trader:        wallet,
			UserID:        users[wallet],
			IsYes:         ev.IsYes,
			AmountWei:     ev.AmountIn,
			SharesWei:     ev.SharesMinted,
			FeeWei:        ev.Fee,
			CreatorFeeWei: feemath.CreatorFeeShare(ev.Fee, pick.FeeBps, pick.CreatorFeeSplitBps),
			BlockNumber:   blockNumber,
			// Offset rows sharing one block by their index so
			// (pick_id, occurred_at) stays strictly ordered.
			OccurredAt: base.Add(time.Duration(i) * time.Second),
		}
		if ev.IsYes {
			row.YesPriceBps = price
		} else {
			row.NoPriceBps = price
		}
		rows = append(rows, row)
	}
	return rows
}

// displayUnits renders a wei amount in whole tokens for log lines only;
// stored and compared values stay integral.
func displayUnits(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -18).String()
}
