// Package feemath holds the pure integer math for trade pricing and creator
// fee attribution. Amounts are 18-decimal wei and can exceed 64-bit range,
// so everything stays in big.Int; floats never enter these computations.
package feemath

import "math/big"

const maxBps = 10000

var bpsScale = big.NewInt(maxBps)

// PriceBps returns the implied price of the purchased side in basis points:
// floor(sharesMinted * 10000 / amountIn), clamped into [0, 10000]. A zero
// amountIn has no defined price and yields nil.
func PriceBps(amountIn, sharesMinted *big.Int) *int64 {
	if amountIn == nil || sharesMinted == nil || amountIn.Sign() == 0 {
		return nil
	}
	if amountIn.Sign() < 0 || sharesMinted.Sign() < 0 {
		return nil
	}
	q := new(big.Int).Mul(sharesMinted, bpsScale)
	q.Quo(q, amountIn)
	v := int64(0)
	if q.IsInt64() {
		v = q.Int64()
	} else {
		v = maxBps
	}
	if v < 0 {
		v = 0
	}
	if v > maxBps {
		v = maxBps
	}
	return &v
}

// CreatorFeeShare returns floor(fee * creatorSplitBps / feeBps): the portion
// of the protocol fee attributed to the market creator. The split is a
// fraction of the fee, so for creatorSplitBps <= feeBps the result never
// exceeds fee. Returns zero when the fee parameters are unusable.
func CreatorFeeShare(fee *big.Int, feeBps, creatorSplitBps int64) *big.Int {
	if fee == nil || fee.Sign() <= 0 || feeBps <= 0 || creatorSplitBps <= 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(fee, big.NewInt(creatorSplitBps))
	return out.Quo(out, big.NewInt(feeBps))
}

// Sum returns the total of the given values.
func Sum(values ...*big.Int) *big.Int {
	total := new(big.Int)
	for _, v := range values {
		if v != nil {
			total.Add(total, v)
		}
	}
	return total
}
