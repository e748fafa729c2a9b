package chain

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// JSON-RPC 2.0 envelope. Quantities arrive as hex strings and are parsed at
// this boundary; nothing downstream handles raw hex.

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// Log is one raw EVM log entry from a receipt.
type Log struct {
	Address  string   `json:"address"`
	Topics   []string `json:"topics"`
	Data     string   `json:"data"`
	LogIndex string   `json:"logIndex"`
}

// Index parses the hex logIndex field.
func (l *Log) Index() (uint64, error) {
	return hexutil.DecodeUint64(l.LogIndex)
}

// Receipt is the mined-transaction confirmation record.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
	Status          string `json:"status"`
	Logs            []Log  `json:"logs"`
}

// BlockNumberUint parses the hex blockNumber field.
func (r *Receipt) BlockNumberUint() (uint64, error) {
	return hexutil.DecodeUint64(r.BlockNumber)
}

// Block carries the subset of the block header the pipeline needs.
type Block struct {
	Number    string `json:"number"`
	Timestamp string `json:"timestamp"`
}

// TimestampUnix parses the hex timestamp field.
func (b *Block) TimestampUnix() (uint64, error) {
	return hexutil.DecodeUint64(b.Timestamp)
}
