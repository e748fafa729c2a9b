package feemath

import (
	"math/big"
	"testing"
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad test number " + s)
	}
	return v
}

func TestPriceBps(t *testing.T) {
	// 1.0 in, 0.5 shares out => 5000 bps
	p := PriceBps(wei("1000000000000000000"), wei("500000000000000000"))
	if p == nil || *p != 5000 {
		t.Fatalf("PriceBps got=%v want=5000", p)
	}

	// shares > amount floors above the scale and clamps: 1.95 shares per 1.0
	p = PriceBps(wei("1000000000000000000"), wei("1950000000000000000"))
	if p == nil || *p != 10000 {
		t.Fatalf("PriceBps clamp got=%v want=10000", p)
	}

	// zero amount has no defined price
	if p := PriceBps(big.NewInt(0), wei("1000000000000000000")); p != nil {
		t.Fatalf("PriceBps zero amount got=%v want=nil", p)
	}

	// zero shares is a valid zero price
	p = PriceBps(wei("1000000000000000000"), big.NewInt(0))
	if p == nil || *p != 0 {
		t.Fatalf("PriceBps zero shares got=%v want=0", p)
	}
}

func TestPriceBps_LargeAmountsExact(t *testing.T) {
	// Amounts near 10^30 must not lose precision: 10^30 in, 0.1234*10^30
	// shares out is exactly 1234 bps.
	amount := wei("1000000000000000000000000000000")
	shares := wei("123400000000000000000000000000")
	p := PriceBps(amount, shares)
	if p == nil || *p != 1234 {
		t.Fatalf("PriceBps large got=%v want=1234", p)
	}
}

func TestCreatorFeeShare(t *testing.T) {
	// 0.01 fee, feeBps=100, split=20 => 20% of fee
	got := CreatorFeeShare(wei("10000000000000000"), 100, 20)
	if got.Cmp(wei("2000000000000000")) != 0 {
		t.Fatalf("CreatorFeeShare got=%s want=2000000000000000", got)
	}

	// unusable parameters yield zero, not panic
	if got := CreatorFeeShare(wei("5"), 0, 20); got.Sign() != 0 {
		t.Fatalf("CreatorFeeShare feeBps=0 got=%s want=0", got)
	}
	if got := CreatorFeeShare(nil, 100, 20); got.Sign() != 0 {
		t.Fatalf("CreatorFeeShare nil fee got=%s want=0", got)
	}
}

// For all split <= feeBps the creator share never exceeds the fee.
func TestCreatorFeeShare_Bound(t *testing.T) {
	fees := []*big.Int{
		big.NewInt(0), big.NewInt(1), big.NewInt(999),
		wei("10000000000000000"), wei("1000000000000000000000000000000"),
	}
	for feeBps := int64(1); feeBps <= 300; feeBps += 7 {
		for split := int64(1); split <= feeBps; split += 3 {
			for _, fee := range fees {
				got := CreatorFeeShare(fee, feeBps, split)
				if got.Cmp(fee) > 0 {
					t.Fatalf("share %s exceeds fee %s (feeBps=%d split=%d)", got, fee, feeBps, split)
				}
				if got.Sign() < 0 {
					t.Fatalf("share %s negative (feeBps=%d split=%d)", got, feeBps, split)
				}
			}
		}
	}
}

// The aggregate-once creator fee and the per-row sum differ only by floor
// rounding: at most one wei per row.
func TestCreatorFeeShare_RoundingDrift(t *testing.T) {
	rows := []*big.Int{wei("10000000000000001"), wei("333"), wei("7"), wei("999999999999999999")}
	const feeBps, split = 100, 33

	perRowSum := new(big.Int)
	for _, fee := range rows {
		perRowSum.Add(perRowSum, CreatorFeeShare(fee, feeBps, split))
	}
	aggregate := CreatorFeeShare(Sum(rows...), feeBps, split)

	drift := new(big.Int).Sub(aggregate, perRowSum)
	if drift.Sign() < 0 {
		t.Fatalf("aggregate %s below per-row sum %s", aggregate, perRowSum)
	}
	if drift.Cmp(big.NewInt(int64(len(rows)))) > 0 {
		t.Fatalf("drift %s exceeds one wei per row", drift)
	}
}

func TestSum(t *testing.T) {
	got := Sum(big.NewInt(1), nil, wei("1000000000000000000"))
	if got.Cmp(wei("1000000000000000001")) != 0 {
		t.Fatalf("Sum got=%s", got)
	}
}
