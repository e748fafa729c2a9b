package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Bought(address indexed user, bool isYes, uint256 amountIn, uint256 sharesMinted, uint256 fee)
var boughtTopic0 = crypto.Keccak256Hash([]byte("Bought(address,bool,uint256,uint256,uint256)"))

// BoughtTopic0 returns the topic-0 hash of the market contract's Bought event.
func BoughtTopic0() common.Hash {
	return boughtTopic0
}

// BoughtEvent is one decoded share purchase.
type BoughtEvent struct {
	Trader       common.Address
	IsYes        bool
	AmountIn     *big.Int
	SharesMinted *big.Int
	Fee          *big.Int
	LogIndex     uint64
}

// FilterBoughtLogs selects receipt logs emitted by the given market contract
// with the Bought topic-0. Address comparison is case-insensitive; topic
// comparison is exact.
func FilterBoughtLogs(logs []Log, market common.Address) []Log {
	want := strings.ToLower(market.Hex())
	var out []Log
	for _, lg := range logs {
		if strings.ToLower(lg.Address) != want {
			continue
		}
		if len(lg.Topics) == 0 || !strings.EqualFold(lg.Topics[0], boughtTopic0.Hex()) {
			continue
		}
		out = append(out, lg)
	}
	return out
}

// DecodeBoughtLog decodes one matching log. The trader address is indexed
// (topics[1]); the data payload is four 32-byte words: bool, amountIn,
// sharesMinted, fee.
func DecodeBoughtLog(lg Log) (*BoughtEvent, error) {
	if len(lg.Topics) < 2 {
		return nil, fmt.Errorf("bought log: want 2 topics, got %d", len(lg.Topics))
	}
	traderTopic, err := hexutil.Decode(lg.Topics[1])
	if err != nil || len(traderTopic) != 32 {
		return nil, fmt.Errorf("bought log: bad trader topic %q", lg.Topics[1])
	}

	data, err := hexutil.Decode(lg.Data)
	if err != nil {
		return nil, fmt.Errorf("bought log: bad data: %w", err)
	}
	if len(data) < 4*32 {
		return nil, fmt.Errorf("bought log: want 128 data bytes, got %d", len(data))
	}

	isYes, err := decodeBool(data[0:32])
	if err != nil {
		return nil, err
	}

	idx, err := lg.Index()
	if err != nil {
		return nil, fmt.Errorf("bought log: bad logIndex %q", lg.LogIndex)
	}

	return &BoughtEvent{
		Trader:       common.BytesToAddress(traderTopic[12:]),
		IsYes:        isYes,
		AmountIn:     new(big.Int).SetBytes(data[32:64]),
		SharesMinted: new(big.Int).SetBytes(data[64:96]),
		Fee:          new(big.Int).SetBytes(data[96:128]),
		LogIndex:     idx,
	}, nil
}

func decodeBool(word []byte) (bool, error) {
	for _, b := range word[:31] {
		if b != 0 {
			return false, fmt.Errorf("bought log: malformed bool word")
		}
	}
	switch word[31] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("bought log: malformed bool word")
	}
}
