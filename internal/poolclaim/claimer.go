// Package poolclaim drives the legacy off-chain fee-pool claim: each claim
// is an ECDSA-signed request POSTed to the pool service, which settles the
// payout and returns a transaction signature.
package poolclaim

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-resty/resty/v2"

	"github.com/pickslab/picks-edge/pkg/config"
	"github.com/pickslab/picks-edge/pkg/logger"
)

// Result reports one pool's claim outcome. Failures never abort the batch.
type Result struct {
	Pool                 string `json:"pool"`
	OK                   bool   `json:"ok"`
	TransactionSignature string `json:"transactionSignature,omitempty"`
	Error                string `json:"error,omitempty"`
}

type Claimer struct {
	http     *resty.Client
	key      *ecdsa.PrivateKey
	operator string
}

func New(cfg config.ClaimsConfig) (*Claimer, error) {
	if strings.TrimSpace(cfg.OperatorKeyHex) == "" {
		return nil, fmt.Errorf("poolclaim: operator key is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.OperatorKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("poolclaim: parse operator key: %w", err)
	}
	return &Claimer{
		http: resty.New().
			SetBaseURL(cfg.PoolServiceURL).
			SetTimeout(cfg.Timeout).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second),
		key:      key,
		operator: crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}, nil
}

type claimRequest struct {
	Pool      string `json:"pool"`
	Operator  string `json:"operator"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

type claimResponse struct {
	TransactionSignature string `json:"transactionSignature"`
	Error                string `json:"error"`
}

// ClaimAll claims each pool in turn, recording per-pool outcomes.
func (c *Claimer) ClaimAll(ctx context.Context, pools []string) []Result {
	results := make([]Result, 0, len(pools))
	for _, pool := range pools {
		res := c.claimOne(ctx, strings.TrimSpace(pool))
		if !res.OK {
			logger.Warnf("pool claim %s failed: %s", res.Pool, res.Error)
		}
		results = append(results, res)
	}
	return results
}

func (c *Claimer) claimOne(ctx context.Context, pool string) Result {
	if pool == "" {
		return Result{Pool: pool, Error: "empty pool address"}
	}

	ts := time.Now().Unix()
	digest := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s|%s|%d", strings.ToLower(pool), strings.ToLower(c.operator), ts)))
	sig, err := crypto.Sign(digest.Bytes(), c.key)
	if err != nil {
		return Result{Pool: pool, Error: fmt.Sprintf("sign: %v", err)}
	}

	var out claimResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(claimRequest{
			Pool:      pool,
			Operator:  c.operator,
			Timestamp: ts,
			Signature: hexutil.Encode(sig),
		}).
		SetResult(&out).
		Post("/claim")
	if err != nil {
		return Result{Pool: pool, Error: err.Error()}
	}
	if resp.IsError() {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("pool service http %d", resp.StatusCode())
		}
		return Result{Pool: pool, Error: msg}
	}
	return Result{Pool: pool, OK: true, TransactionSignature: out.TransactionSignature}
}
