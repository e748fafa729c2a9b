package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pickslab/picks-edge/pkg/config"
)

func testClient(t *testing.T, handler http.HandlerFunc, attempts int) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(config.ChainConfig{
		RPCURL:          srv.URL,
		ReceiptAttempts: attempts,
		ReceiptInterval: 5 * time.Millisecond,
		RequestTimeout:  time.Second,
	})
	return c, srv
}

func rpcResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": result})
}

func TestTransactionReceipt_PollsUntilMined(t *testing.T) {
	calls := 0
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			rpcResult(w, nil)
			return
		}
		rpcResult(w, map[string]any{
			"transactionHash": "0xabc",
			"blockNumber":     "0x10",
			"status":          "0x1",
			"logs":            []any{},
		})
	}, 12)

	receipt, err := c.TransactionReceipt(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("TransactionReceipt error: %v", err)
	}
	if receipt == nil {
		t.Fatalf("expected receipt after polling")
	}
	if calls != 3 {
		t.Fatalf("calls got=%d want=3", calls)
	}
	if n, _ := receipt.BlockNumberUint(); n != 16 {
		t.Fatalf("blockNumber got=%d want=16", n)
	}
}

func TestTransactionReceipt_ExhaustsBudget(t *testing.T) {
	calls := 0
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		rpcResult(w, nil)
	}, 4)

	start := time.Now()
	receipt, err := c.TransactionReceipt(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("TransactionReceipt error: %v", err)
	}
	if receipt != nil {
		t.Fatalf("expected nil receipt when never mined")
	}
	if calls != 4 {
		t.Fatalf("calls got=%d want=4 (bounded)", calls)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("polling did not terminate promptly")
	}
}

func TestTransactionReceipt_NodeError(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": 1,
			"error": map[string]any{"code": -32000, "message": "header not found"},
		})
	}, 2)

	_, err := c.TransactionReceipt(context.Background(), "0xabc")
	if err == nil {
		t.Fatalf("expected node error to surface")
	}
}

func TestBlockByNumber(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "eth_getBlockByNumber" {
			t.Errorf("method got=%s", req.Method)
		}
		rpcResult(w, map[string]any{"number": "0x10", "timestamp": "0x64b8c123"})
	}, 1)

	block, err := c.BlockByNumber(context.Background(), 16)
	if err != nil {
		t.Fatalf("BlockByNumber error: %v", err)
	}
	ts, err := block.TimestampUnix()
	if err != nil || ts != 0x64b8c123 {
		t.Fatalf("timestamp got=%d err=%v", ts, err)
	}
}

func TestBlockByNumber_MissingIsNotError(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		rpcResult(w, nil)
	}, 1)

	block, err := c.BlockByNumber(context.Background(), 99)
	if err != nil || block != nil {
		t.Fatalf("got block=%v err=%v, want nil/nil", block, err)
	}
}
