// Package dex defines the pool, position, and swap collaborators the launch
// flow consumes, plus an ABI-backed implementation against live contracts.
package dex

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MaxUint128 is the collect-all sentinel for fee collection.
var MaxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// PoolState is the live price state read from the pool's slot0.
type PoolState struct {
	SqrtPriceX96 *big.Int
	Tick         int32
}

// MintParams describes a single liquidity provisioning call.
type MintParams struct {
	Token0         common.Address
	Token1         common.Address
	Fee            uint32
	TickLower      int32
	TickUpper      int32
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Recipient      common.Address
	Deadline       time.Time
}

// MintResult is what the position manager reports for a fresh position.
type MintResult struct {
	PositionID *big.Int
	Liquidity  *big.Int
	Amount0    *big.Int
	Amount1    *big.Int
}

// Pool exposes the pool-side operations the launch and fee flows need.
type Pool interface {
	// CreatePair returns the pool for the pair and fee tier, deploying it
	// when absent.
	CreatePair(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error)
	// Initialize sets the pool's starting sqrt price. The pool trusts the
	// value verbatim.
	Initialize(ctx context.Context, pool common.Address, sqrtPriceX96 *big.Int) error
	State(ctx context.Context, pool common.Address) (PoolState, error)
	TickSpacing(ctx context.Context, pool common.Address) (int32, error)
	Token0(ctx context.Context, pool common.Address) (common.Address, error)
	Token1(ctx context.Context, pool common.Address) (common.Address, error)
	MintLiquidity(ctx context.Context, params MintParams) (MintResult, error)
	// CollectFees collects up to max0/max1 accrued fees to recipient and
	// returns the actual collected amounts.
	CollectFees(ctx context.Context, positionID *big.Int, recipient common.Address, max0, max1 *big.Int) (*big.Int, *big.Int, error)
	// PositionTokens reports the pair underlying a position.
	PositionTokens(ctx context.Context, positionID *big.Int) (common.Address, common.Address, error)
}

// Swapper converts one asset into another through the venue's router.
type Swapper interface {
	SwapExactIn(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, recipient common.Address, minAmountOut *big.Int, deadline time.Time) (*big.Int, error)
}

// TokenTransferer moves ERC20 balances held by the operator account.
type TokenTransferer interface {
	Transfer(ctx context.Context, token, to common.Address, amount *big.Int) error
}
