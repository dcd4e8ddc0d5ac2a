package model

import (
	"fmt"
	"math/big"
)

// maxSqrtPrice is 2^160 - 1, the largest value representable in the pool's
// uint160 sqrt price slot.
var maxSqrtPrice = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 160), big.NewInt(1))

// PricePoint is a square-root price ratio in the pool's Q64.96-style fixed
// point, carrying 192 bits of ratio precision inside a 160-bit value.
type PricePoint struct {
	value *big.Int
}

// NewPricePoint validates bounds and wraps the value. A zero or over-wide
// value is a fatal computation error, never clamped.
func NewPricePoint(v *big.Int) (PricePoint, error) {
	if v == nil || v.Sign() <= 0 {
		return PricePoint{}, fmt.Errorf("sqrt price %v: %w", v, ErrPriceOverflow)
	}
	if v.Cmp(maxSqrtPrice) > 0 {
		return PricePoint{}, fmt.Errorf("sqrt price exceeds uint160: %w", ErrPriceOverflow)
	}
	return PricePoint{value: new(big.Int).Set(v)}, nil
}

// BigInt returns a copy of the underlying value.
func (p PricePoint) BigInt() *big.Int {
	if p.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(p.value)
}

func (p PricePoint) String() string {
	return p.BigInt().String()
}
