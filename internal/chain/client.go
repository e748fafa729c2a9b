package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/pickslab/picks-edge/pkg/config"
	"github.com/pickslab/picks-edge/pkg/logger"
)

// Client issues JSON-RPC calls against a BNB Smart Chain node. Receipts are
// polled because a transaction is typically not queryable for a few seconds
// after submission.
type Client struct {
	http     *resty.Client
	attempts int
	interval time.Duration
}

func NewClient(cfg config.ChainConfig) *Client {
	hc := resty.New().
		SetBaseURL(cfg.RPCURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{
		http:     hc,
		attempts: cfg.ReceiptAttempts,
		interval: cfg.ReceiptInterval,
	}
}

// call runs one JSON-RPC POST. A null result leaves out untouched and
// returns (false, nil); an RPC error object is returned as an error.
func (c *Client) call(ctx context.Context, method string, params []any, out any) (bool, error) {
	var rpcResp rpcResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1}).
		SetResult(&rpcResp).
		Post("")
	if err != nil {
		return false, errors.Wrapf(err, "rpc %s", method)
	}
	if resp.IsError() {
		return false, fmt.Errorf("rpc %s: http %d: %s", method, resp.StatusCode(), resp.String())
	}
	if rpcResp.Error != nil {
		return false, fmt.Errorf("rpc %s: node error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return false, errors.Wrapf(err, "rpc %s: decode result", method)
	}
	return true, nil
}

// TransactionReceipt polls eth_getTransactionReceipt until the receipt shows
// up or the attempt budget runs out. (nil, nil) means "not yet mined" — a
// retryable condition, not a failure. Transient errors are retried within
// the same budget; only an error on which the budget ends is surfaced.
func (c *Client) TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	var lastErr error
	for i := 0; i < c.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.interval):
			}
		}
		var receipt Receipt
		found, err := c.call(ctx, "eth_getTransactionReceipt", []any{txHash}, &receipt)
		if err != nil {
			logger.Warnf("receipt poll %d/%d for %s: %v", i+1, c.attempts, txHash, err)
			lastErr = err
			continue
		}
		lastErr = nil
		if found {
			return &receipt, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

// BlockByNumber fetches a block header in one attempt. Used only for
// timestamp enrichment; callers treat any failure as "timestamp unknown".
func (c *Client) BlockByNumber(ctx context.Context, number uint64) (*Block, error) {
	var block Block
	found, err := c.call(ctx, "eth_getBlockByNumber", []any{fmt.Sprintf("0x%x", number), false}, &block)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &block, nil
}
