// Package launch orchestrates a full pool launch: create, price, initialize,
// and seed single-sided liquidity.
package launch

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"launchkit/internal/auth"
	"launchkit/internal/dex"
	"launchkit/internal/model"
	"launchkit/internal/planner"
	"launchkit/internal/pricing"
	"launchkit/internal/storage"
	"launchkit/internal/tickmath"
)

// Params describes one asset launch.
type Params struct {
	IssuedAsset        common.Address
	CirculatingSupply  *big.Int
	TargetMarketCapUSD *big.Int
	Creator            common.Address
	Fee                uint32
	MinTick            int32
	MaxTick            int32
}

// Result reports the launched pool and its seeded position.
type Result struct {
	Pool         common.Address
	SqrtPriceX96 model.PricePoint
	Range        model.TickRange
	PositionID   *big.Int
	Liquidity    *big.Int
	Amount0      *big.Int
	Amount1      *big.Int
}

// Registrar records the one-time creator attribution at first liquidity
// placement.
type Registrar interface {
	RegisterCreator(ctx context.Context, positionID *big.Int, creator common.Address) error
}

// Config wires an Initializer.
type Config struct {
	ChainID         uint64
	SettlementAsset common.Address
	// Custodian owns the seeded position so the fee pipeline can collect
	// from it on the creator's behalf.
	Custodian    common.Address
	MintDeadline time.Duration
}

// Initializer runs the launch flow against the venue collaborators.
type Initializer struct {
	cfg       Config
	pool      dex.Pool
	oracle    pricing.RateSource
	registrar Registrar
	authorize auth.Func
	sink      storage.Sink
	logger    *zap.Logger
	now       func() time.Time
}

// NewInitializer builds an Initializer.
func NewInitializer(cfg Config, pool dex.Pool, oracle pricing.RateSource, registrar Registrar, authorize auth.Func, sink storage.Sink, logger *zap.Logger) *Initializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = storage.Nop{}
	}
	if cfg.MintDeadline <= 0 {
		cfg.MintDeadline = 5 * time.Minute
	}
	return &Initializer{
		cfg:       cfg,
		pool:      pool,
		oracle:    oracle,
		registrar: registrar,
		authorize: authorize,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
	}
}

func validateParams(p Params) error {
	if p.CirculatingSupply == nil || p.CirculatingSupply.Sign() <= 0 {
		return model.ErrInvalidSupply
	}
	if p.TargetMarketCapUSD == nil || p.TargetMarketCapUSD.Sign() <= 0 {
		return model.ErrInvalidMarketCap
	}
	if p.Creator == (common.Address{}) {
		return model.ErrInvalidDeployer
	}
	if p.IssuedAsset == (common.Address{}) {
		return fmt.Errorf("issued asset address is zero")
	}
	return nil
}

// Launch creates the pool, derives and sets the initial price, and mints the
// single-sided starting position with the custodian as recipient. Only the
// freshly issued supply is needed; the settlement side stays empty.
func (i *Initializer) Launch(ctx context.Context, caller common.Address, p Params) (Result, error) {
	if err := validateParams(p); err != nil {
		return Result{}, err
	}
	if i.authorize != nil {
		if err := i.authorize(ctx, caller, auth.CapLaunch); err != nil {
			return Result{}, err
		}
	}

	minTick := p.MinTick
	maxTick := p.MaxTick
	if minTick == 0 && maxTick == 0 {
		minTick = tickmath.MinTick
		maxTick = tickmath.MaxTick
	}

	pool, err := i.pool.CreatePair(ctx, p.IssuedAsset, i.cfg.SettlementAsset, p.Fee)
	if err != nil {
		return Result{}, fmt.Errorf("create pair: %w", err)
	}

	// Slot assignment comes from the pool itself, never from deployment
	// order.
	token0, err := i.pool.Token0(ctx, pool)
	if err != nil {
		return Result{}, fmt.Errorf("read token0: %w", err)
	}
	token1, err := i.pool.Token1(ctx, pool)
	if err != nil {
		return Result{}, fmt.Errorf("read token1: %w", err)
	}
	issuedIsToken0 := token0 == p.IssuedAsset
	if !issuedIsToken0 && token1 != p.IssuedAsset {
		return Result{}, fmt.Errorf("pool %s does not pair issued asset %s", pool.Hex(), p.IssuedAsset.Hex())
	}

	rate, err := i.oracle.Rate(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("oracle rate: %w", err)
	}

	price, err := pricing.SqrtPriceX96(p.CirculatingSupply, p.TargetMarketCapUSD, rate, issuedIsToken0)
	if err != nil {
		return Result{}, err
	}

	if err := i.pool.Initialize(ctx, pool, price.BigInt()); err != nil {
		return Result{}, fmt.Errorf("initialize pool: %w", err)
	}

	state, err := i.pool.State(ctx, pool)
	if err != nil {
		return Result{}, fmt.Errorf("read pool state: %w", err)
	}
	spacing, err := i.pool.TickSpacing(ctx, pool)
	if err != nil {
		return Result{}, fmt.Errorf("read tick spacing: %w", err)
	}

	tickRange, err := planner.PlanSingleSided(state.Tick, spacing, issuedIsToken0, minTick, maxTick)
	if err != nil {
		return Result{}, err
	}

	amount0 := new(big.Int)
	amount1 := new(big.Int)
	if issuedIsToken0 {
		amount0.Set(p.CirculatingSupply)
	} else {
		amount1.Set(p.CirculatingSupply)
	}

	mint, err := i.pool.MintLiquidity(ctx, dex.MintParams{
		Token0:         token0,
		Token1:         token1,
		Fee:            p.Fee,
		TickLower:      tickRange.Lower,
		TickUpper:      tickRange.Upper,
		Amount0Desired: amount0,
		Amount1Desired: amount1,
		Recipient:      i.cfg.Custodian,
		Deadline:       i.now().Add(i.cfg.MintDeadline),
	})
	if err != nil {
		return Result{}, fmt.Errorf("mint liquidity: %w", err)
	}

	if i.registrar != nil {
		if err := i.registrar.RegisterCreator(ctx, mint.PositionID, p.Creator); err != nil {
			return Result{}, fmt.Errorf("register creator: %w", err)
		}
	}

	record := model.LaunchRecord{
		ChainID:         i.cfg.ChainID,
		Pool:            pool.Hex(),
		IssuedAsset:     p.IssuedAsset.Hex(),
		SettlementAsset: i.cfg.SettlementAsset.Hex(),
		Fee:             p.Fee,
		SqrtPriceX96:    price.String(),
		TickLower:       tickRange.Lower,
		TickUpper:       tickRange.Upper,
		PositionID:      mint.PositionID.String(),
		Liquidity:       mint.Liquidity.String(),
		Amount0:         mint.Amount0.String(),
		Amount1:         mint.Amount1.String(),
		Recipient:       i.cfg.Custodian.Hex(),
		LaunchedAt:      i.now().UTC().Format(time.RFC3339),
	}
	if err := i.sink.PutLaunch(ctx, record); err != nil {
		return Result{}, fmt.Errorf("persist launch: %w", err)
	}

	i.logger.Info("launch complete",
		zap.String("pool", pool.Hex()),
		zap.String("issued_asset", p.IssuedAsset.Hex()),
		zap.String("sqrt_price_x96", price.String()),
		zap.Int32("tick_lower", tickRange.Lower),
		zap.Int32("tick_upper", tickRange.Upper),
		zap.String("position_id", mint.PositionID.String()),
	)

	return Result{
		Pool:         pool,
		SqrtPriceX96: price,
		Range:        tickRange,
		PositionID:   mint.PositionID,
		Liquidity:    mint.Liquidity,
		Amount0:      mint.Amount0,
		Amount1:      mint.Amount1,
	}, nil
}
