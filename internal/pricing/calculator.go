// Package pricing derives the pool's initial sqrt price from a target market
// cap and an external USD reference rate.
package pricing

import (
	"fmt"
	"math/big"

	"launchkit/internal/model"
)

var (
	e8     = big.NewInt(100_000_000)
	e18, _ = new(big.Int).SetString("1000000000000000000", 10)
	two192 = new(big.Int).Lsh(big.NewInt(1), 192)
)

// SqrtPriceX96 computes the sqrt price ratio the pool expects at
// initialization.
//
// circulatingSupply is in raw 18-decimal token units, targetMarketCapUSD in
// whole dollars, ethUSDRate in the oracle's 8-decimal convention. The result
// encodes sqrt(token1 per token0) shifted left 96 bits, so the orientation
// flips with slot assignment.
//
// Every step uses floor division on arbitrary-precision integers. The value
// fixes a market's starting price permanently, so floating point is off the
// table.
func SqrtPriceX96(circulatingSupply, targetMarketCapUSD, ethUSDRate *big.Int, issuedIsToken0 bool) (model.PricePoint, error) {
	if circulatingSupply == nil || circulatingSupply.Sign() <= 0 {
		return model.PricePoint{}, model.ErrInvalidSupply
	}
	if targetMarketCapUSD == nil || targetMarketCapUSD.Sign() <= 0 {
		return model.PricePoint{}, model.ErrInvalidMarketCap
	}
	if ethUSDRate == nil || ethUSDRate.Sign() <= 0 {
		return model.PricePoint{}, model.ErrInvalidRate
	}

	// USD price per whole token, 8-decimal scaled: cap * 1e8 * 1e18 / supply.
	priceUSD := new(big.Int).Mul(targetMarketCapUSD, e8)
	priceUSD.Mul(priceUSD, e18)
	priceUSD.Quo(priceUSD, circulatingSupply)

	// Settlement-asset price per whole token, 18-decimal scaled.
	priceETH := new(big.Int).Mul(priceUSD, e18)
	priceETH.Quo(priceETH, ethUSDRate)
	if priceETH.Sign() == 0 {
		return model.PricePoint{}, fmt.Errorf("price underflows to zero: %w", model.ErrPriceOverflow)
	}

	// The pool prices slot 1 per slot 0, so the ratio orientation depends on
	// which slot the issued asset occupies.
	ratio := new(big.Int)
	if issuedIsToken0 {
		ratio.Mul(priceETH, two192)
		ratio.Quo(ratio, e18)
	} else {
		ratio.Mul(e18, two192)
		ratio.Quo(ratio, priceETH)
	}

	sqrtPrice := new(big.Int).Sqrt(ratio)
	return model.NewPricePoint(sqrtPrice)
}
