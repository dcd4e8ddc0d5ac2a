package pricing

import (
	"errors"
	"math/big"
	"testing"

	"launchkit/internal/model"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big int literal %q", s)
	}
	return v
}

func TestSqrtPriceX96StandardLaunch(t *testing.T) {
	// 1,000,000,000 tokens at 18 decimals, $10,000 target cap, ETH at $2,500.
	supply := mustBig(t, "1000000000000000000000000000")
	marketCap := big.NewInt(10_000)
	rate := big.NewInt(2_500_00000000)

	price, err := SqrtPriceX96(supply, marketCap, rate, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sqrtPrice := price.BigInt()
	if sqrtPrice.Sign() <= 0 {
		t.Fatalf("sqrt price must be positive")
	}
	maxUint160 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 160), big.NewInt(1))
	if sqrtPrice.Cmp(maxUint160) > 0 {
		t.Fatalf("sqrt price exceeds uint160")
	}

	// Squaring and shifting back must reconstruct the settlement-asset price
	// within rounding tolerance: price is 0.000000004 ETH per token, so the
	// 18-decimal value is 4e9. The square encodes priceETH/1e18 in Q192, so
	// the 1e18 scale is restored before the shift.
	reconstructed := new(big.Int).Mul(sqrtPrice, sqrtPrice)
	reconstructed.Mul(reconstructed, e18)
	reconstructed.Rsh(reconstructed, 192)

	wantPriceETH := big.NewInt(4_000_000_000)
	diff := new(big.Int).Sub(reconstructed, wantPriceETH)
	if diff.CmpAbs(big.NewInt(1)) > 0 {
		t.Fatalf("reconstructed ratio %s, want %s within 1", reconstructed, wantPriceETH)
	}
}

func TestSqrtPriceX96Monotonicity(t *testing.T) {
	supply := mustBig(t, "1000000000000000000000000000")
	rate := big.NewInt(2_500_00000000)

	lowCap, err := SqrtPriceX96(supply, big.NewInt(10_000), rate, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	highCap, err := SqrtPriceX96(supply, big.NewInt(40_000), rate, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if highCap.BigInt().Cmp(lowCap.BigInt()) <= 0 {
		t.Fatalf("token0 orientation: higher cap must raise sqrt price")
	}

	lowCapInv, err := SqrtPriceX96(supply, big.NewInt(10_000), rate, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	highCapInv, err := SqrtPriceX96(supply, big.NewInt(40_000), rate, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if highCapInv.BigInt().Cmp(lowCapInv.BigInt()) >= 0 {
		t.Fatalf("token1 orientation: higher cap must lower sqrt price")
	}
}

func TestSqrtPriceX96OrientationReciprocity(t *testing.T) {
	supply := mustBig(t, "1000000000000000000000000000")
	marketCap := big.NewInt(10_000)
	rate := big.NewInt(2_500_00000000)

	asToken0, err := SqrtPriceX96(supply, marketCap, rate, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	asToken1, err := SqrtPriceX96(supply, marketCap, rate, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// sqrt(p) * sqrt(1/p) == 2^192 up to truncation. Verify the product stays
	// within a relative tolerance of 1e-9 of 2^192.
	product := new(big.Int).Mul(asToken0.BigInt(), asToken1.BigInt())
	want := new(big.Int).Lsh(big.NewInt(1), 192)

	diff := new(big.Int).Sub(product, want)
	diff.Abs(diff)
	tolerance := new(big.Int).Quo(want, big.NewInt(1_000_000_000))
	if diff.Cmp(tolerance) > 0 {
		t.Fatalf("product %s deviates from 2^192 by more than tolerance", product)
	}
}

func TestSqrtPriceX96InputValidation(t *testing.T) {
	supply := mustBig(t, "1000000000000000000000000000")
	rate := big.NewInt(2_500_00000000)

	if _, err := SqrtPriceX96(big.NewInt(0), big.NewInt(1), rate, true); !errors.Is(err, model.ErrInvalidSupply) {
		t.Fatalf("expected invalid supply, got %v", err)
	}
	if _, err := SqrtPriceX96(supply, big.NewInt(0), rate, true); !errors.Is(err, model.ErrInvalidMarketCap) {
		t.Fatalf("expected invalid market cap, got %v", err)
	}
	if _, err := SqrtPriceX96(supply, big.NewInt(1), big.NewInt(-1), true); !errors.Is(err, model.ErrInvalidRate) {
		t.Fatalf("expected invalid rate, got %v", err)
	}
	if _, err := SqrtPriceX96(nil, big.NewInt(1), rate, true); !errors.Is(err, model.ErrInvalidSupply) {
		t.Fatalf("expected invalid supply for nil, got %v", err)
	}
}

func TestSqrtPriceX96Overflow(t *testing.T) {
	// A tiny supply against an enormous market cap pushes the ratio past the
	// uint160 sqrt bound.
	supply := big.NewInt(1)
	marketCap := mustBig(t, "100000000000000000000000000000000000000000000000000")
	rate := big.NewInt(1)

	if _, err := SqrtPriceX96(supply, marketCap, rate, true); !errors.Is(err, model.ErrPriceOverflow) {
		t.Fatalf("expected price overflow, got %v", err)
	}
}
