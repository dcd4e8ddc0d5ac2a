package dex

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"launchkit/internal/chain"
	"launchkit/internal/model"
)

// Addresses are the deployed venue contracts the manager talks to.
type Addresses struct {
	Factory         common.Address
	PositionManager common.Address
	SwapRouter      common.Address
}

// ManagerConfig wires a Manager. SwapFee is the fee tier used for the
// conversion leg of fee settlement; the retry settings apply to reads only.
type ManagerConfig struct {
	Addresses    Addresses
	SwapFee      uint32
	MaxRetries   int
	RetryBackoff time.Duration
}

// Manager implements Pool, Swapper, and TokenTransferer against live
// contracts. Reads go through eth_call; mutations are signed transactions
// confirmed by receipt before any result is reported.
type Manager struct {
	client *chain.Client
	opts   *bind.TransactOpts
	cfg    ManagerConfig
	logger *zap.Logger

	factory *bind.BoundContract
	posMgr  *bind.BoundContract
	router  *bind.BoundContract

	poolABI   abi.ABI
	posMgrABI abi.ABI
	erc20ABI  abi.ABI
}

// NewManager binds the venue contracts.
func NewManager(client *chain.Client, opts *bind.TransactOpts, cfg ManagerConfig, logger *zap.Logger) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if opts == nil {
		return nil, fmt.Errorf("transact opts are nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	factoryABI, err := FactoryABI()
	if err != nil {
		return nil, fmt.Errorf("factory abi: %w", err)
	}
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("pool abi: %w", err)
	}
	posMgrABI, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("position manager abi: %w", err)
	}
	routerABI, err := RouterABI()
	if err != nil {
		return nil, fmt.Errorf("router abi: %w", err)
	}
	erc20ABI, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("erc20 abi: %w", err)
	}

	backend := client.Eth()
	return &Manager{
		client:    client,
		opts:      opts,
		cfg:       cfg,
		logger:    logger,
		factory:   bind.NewBoundContract(cfg.Addresses.Factory, factoryABI, backend, backend, backend),
		posMgr:    bind.NewBoundContract(cfg.Addresses.PositionManager, posMgrABI, backend, backend, backend),
		router:    bind.NewBoundContract(cfg.Addresses.SwapRouter, routerABI, backend, backend, backend),
		poolABI:   poolABI,
		posMgrABI: posMgrABI,
		erc20ABI:  erc20ABI,
	}, nil
}

// callWithRetry performs a read with retry on transient RPC failures.
func (m *Manager) callWithRetry(ctx context.Context, contract *bind.BoundContract, out *[]interface{}, method string, args ...interface{}) error {
	return chain.WithRetry(ctx, m.cfg.MaxRetries, m.cfg.RetryBackoff, func(ctx context.Context) error {
		*out = (*out)[:0]
		return contract.Call(&bind.CallOpts{Context: ctx}, out, method, args...)
	})
}

func (m *Manager) boundPool(pool common.Address) *bind.BoundContract {
	backend := m.client.Eth()
	return bind.NewBoundContract(pool, m.poolABI, backend, backend, backend)
}

func (m *Manager) boundToken(token common.Address) *bind.BoundContract {
	backend := m.client.Eth()
	return bind.NewBoundContract(token, m.erc20ABI, backend, backend, backend)
}

func (m *Manager) transactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *m.opts
	opts.Context = ctx
	return &opts
}

func (m *Manager) waitMined(ctx context.Context, tx *types.Transaction, what string) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, m.client.Eth(), tx)
	if err != nil {
		return nil, fmt.Errorf("wait %s: %w", what, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%s reverted in tx %s", what, tx.Hash())
	}
	return receipt, nil
}

// CreatePair returns the pool for the pair, deploying one when none exists.
func (m *Manager) CreatePair(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	existing, err := m.getPool(ctx, tokenA, tokenB, fee)
	if err != nil {
		return common.Address{}, err
	}
	if existing != (common.Address{}) {
		return existing, nil
	}

	tx, err := m.factory.Transact(m.transactOpts(ctx), "createPool", tokenA, tokenB, big.NewInt(int64(fee)))
	if err != nil {
		return common.Address{}, fmt.Errorf("create pool: %w", err)
	}
	if _, err := m.waitMined(ctx, tx, "createPool"); err != nil {
		return common.Address{}, err
	}

	pool, err := m.getPool(ctx, tokenA, tokenB, fee)
	if err != nil {
		return common.Address{}, err
	}
	if pool == (common.Address{}) {
		return common.Address{}, fmt.Errorf("pool missing after createPool")
	}

	m.logger.Info("pool created",
		zap.String("pool", pool.Hex()),
		zap.String("token_a", tokenA.Hex()),
		zap.String("token_b", tokenB.Hex()),
		zap.Uint32("fee", fee),
	)
	return pool, nil
}

func (m *Manager) getPool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	token0, token1 := model.SortAssets(tokenA, tokenB)
	var out []interface{}
	err := m.callWithRetry(ctx, m.factory, &out, "getPool", token0, token1, big.NewInt(int64(fee)))
	if err != nil {
		return common.Address{}, fmt.Errorf("get pool: %w", err)
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("getPool return size %d", len(out))
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("getPool unexpected type %T", out[0])
	}
	return addr, nil
}

// Initialize sets the pool's starting sqrt price.
func (m *Manager) Initialize(ctx context.Context, pool common.Address, sqrtPriceX96 *big.Int) error {
	tx, err := m.boundPool(pool).Transact(m.transactOpts(ctx), "initialize", sqrtPriceX96)
	if err != nil {
		return fmt.Errorf("initialize pool: %w", err)
	}
	if _, err := m.waitMined(ctx, tx, "initialize"); err != nil {
		return err
	}

	m.logger.Info("pool initialized",
		zap.String("pool", pool.Hex()),
		zap.String("sqrt_price_x96", sqrtPriceX96.String()),
	)
	return nil
}

// State reads the pool's slot0.
func (m *Manager) State(ctx context.Context, pool common.Address) (PoolState, error) {
	var out []interface{}
	if err := m.callWithRetry(ctx, m.boundPool(pool), &out, "slot0"); err != nil {
		return PoolState{}, fmt.Errorf("slot0: %w", err)
	}
	if len(out) < 2 {
		return PoolState{}, fmt.Errorf("slot0 return size %d", len(out))
	}
	price, ok := out[0].(*big.Int)
	if !ok {
		return PoolState{}, fmt.Errorf("slot0 price unexpected type %T", out[0])
	}
	tick, ok := out[1].(*big.Int)
	if !ok {
		return PoolState{}, fmt.Errorf("slot0 tick unexpected type %T", out[1])
	}
	return PoolState{SqrtPriceX96: price, Tick: int32(tick.Int64())}, nil
}

// TickSpacing reads the pool's tick grid spacing.
func (m *Manager) TickSpacing(ctx context.Context, pool common.Address) (int32, error) {
	var out []interface{}
	if err := m.callWithRetry(ctx, m.boundPool(pool), &out, "tickSpacing"); err != nil {
		return 0, fmt.Errorf("tickSpacing: %w", err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("tickSpacing return size %d", len(out))
	}
	spacing, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("tickSpacing unexpected type %T", out[0])
	}
	return int32(spacing.Int64()), nil
}

// Token0 reads the slot-0 asset of the pool.
func (m *Manager) Token0(ctx context.Context, pool common.Address) (common.Address, error) {
	return m.poolToken(ctx, pool, "token0")
}

// Token1 reads the slot-1 asset of the pool.
func (m *Manager) Token1(ctx context.Context, pool common.Address) (common.Address, error) {
	return m.poolToken(ctx, pool, "token1")
}

func (m *Manager) poolToken(ctx context.Context, pool common.Address, method string) (common.Address, error) {
	var out []interface{}
	if err := m.callWithRetry(ctx, m.boundPool(pool), &out, method); err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("%s return size %d", method, len(out))
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s unexpected type %T", method, out[0])
	}
	return addr, nil
}

// MintLiquidity mints a fresh position and reports it from the position
// manager's own receipt events, never from re-queried state.
func (m *Manager) MintLiquidity(ctx context.Context, params MintParams) (MintResult, error) {
	callParams := struct {
		Token0         common.Address
		Token1         common.Address
		Fee            *big.Int
		TickLower      *big.Int
		TickUpper      *big.Int
		Amount0Desired *big.Int
		Amount1Desired *big.Int
		Amount0Min     *big.Int
		Amount1Min     *big.Int
		Recipient      common.Address
		Deadline       *big.Int
	}{
		Token0:         params.Token0,
		Token1:         params.Token1,
		Fee:            big.NewInt(int64(params.Fee)),
		TickLower:      big.NewInt(int64(params.TickLower)),
		TickUpper:      big.NewInt(int64(params.TickUpper)),
		Amount0Desired: params.Amount0Desired,
		Amount1Desired: params.Amount1Desired,
		Amount0Min:     big.NewInt(0),
		Amount1Min:     big.NewInt(0),
		Recipient:      params.Recipient,
		Deadline:       big.NewInt(params.Deadline.Unix()),
	}

	tx, err := m.posMgr.Transact(m.transactOpts(ctx), "mint", callParams)
	if err != nil {
		return MintResult{}, fmt.Errorf("mint: %w", err)
	}
	receipt, err := m.waitMined(ctx, tx, "mint")
	if err != nil {
		return MintResult{}, err
	}

	result, err := m.parseIncreaseLiquidity(receipt)
	if err != nil {
		return MintResult{}, err
	}

	m.logger.Info("liquidity added",
		zap.String("position_id", result.PositionID.String()),
		zap.String("liquidity", result.Liquidity.String()),
		zap.String("amount0", result.Amount0.String()),
		zap.String("amount1", result.Amount1.String()),
		zap.String("recipient", params.Recipient.Hex()),
	)
	return result, nil
}

func (m *Manager) parseIncreaseLiquidity(receipt *types.Receipt) (MintResult, error) {
	event := m.posMgrABI.Events["IncreaseLiquidity"]
	for _, log := range receipt.Logs {
		if log.Address != m.cfg.Addresses.PositionManager || len(log.Topics) < 2 || log.Topics[0] != event.ID {
			continue
		}
		values, err := event.Inputs.NonIndexed().Unpack(log.Data)
		if err != nil {
			return MintResult{}, fmt.Errorf("unpack IncreaseLiquidity: %w", err)
		}
		if len(values) != 3 {
			return MintResult{}, fmt.Errorf("IncreaseLiquidity data size %d", len(values))
		}
		liquidity, ok := values[0].(*big.Int)
		if !ok {
			return MintResult{}, fmt.Errorf("IncreaseLiquidity liquidity unexpected type %T", values[0])
		}
		amount0, ok := values[1].(*big.Int)
		if !ok {
			return MintResult{}, fmt.Errorf("IncreaseLiquidity amount0 unexpected type %T", values[1])
		}
		amount1, ok := values[2].(*big.Int)
		if !ok {
			return MintResult{}, fmt.Errorf("IncreaseLiquidity amount1 unexpected type %T", values[2])
		}

		return MintResult{
			PositionID: new(big.Int).SetBytes(log.Topics[1].Bytes()),
			Liquidity:  liquidity,
			Amount0:    amount0,
			Amount1:    amount1,
		}, nil
	}
	return MintResult{}, fmt.Errorf("IncreaseLiquidity event missing from mint receipt")
}

// CollectFees collects accrued fees to recipient and returns the collected
// amounts from the position manager's Collect event.
func (m *Manager) CollectFees(ctx context.Context, positionID *big.Int, recipient common.Address, max0, max1 *big.Int) (*big.Int, *big.Int, error) {
	callParams := struct {
		TokenId    *big.Int
		Recipient  common.Address
		Amount0Max *big.Int
		Amount1Max *big.Int
	}{
		TokenId:    positionID,
		Recipient:  recipient,
		Amount0Max: max0,
		Amount1Max: max1,
	}

	tx, err := m.posMgr.Transact(m.transactOpts(ctx), "collect", callParams)
	if err != nil {
		return nil, nil, fmt.Errorf("collect: %w", err)
	}
	receipt, err := m.waitMined(ctx, tx, "collect")
	if err != nil {
		return nil, nil, err
	}

	event := m.posMgrABI.Events["Collect"]
	for _, log := range receipt.Logs {
		if log.Address != m.cfg.Addresses.PositionManager || len(log.Topics) < 2 || log.Topics[0] != event.ID {
			continue
		}
		if new(big.Int).SetBytes(log.Topics[1].Bytes()).Cmp(positionID) != 0 {
			continue
		}
		values, err := event.Inputs.NonIndexed().Unpack(log.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("unpack Collect: %w", err)
		}
		if len(values) != 3 {
			return nil, nil, fmt.Errorf("Collect data size %d", len(values))
		}
		amount0, ok := values[1].(*big.Int)
		if !ok {
			return nil, nil, fmt.Errorf("Collect amount0 unexpected type %T", values[1])
		}
		amount1, ok := values[2].(*big.Int)
		if !ok {
			return nil, nil, fmt.Errorf("Collect amount1 unexpected type %T", values[2])
		}
		return amount0, amount1, nil
	}
	return nil, nil, fmt.Errorf("Collect event missing from receipt")
}

// PositionTokens reads the pair underlying a position.
func (m *Manager) PositionTokens(ctx context.Context, positionID *big.Int) (common.Address, common.Address, error) {
	var out []interface{}
	if err := m.callWithRetry(ctx, m.posMgr, &out, "positions", positionID); err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("positions: %w", err)
	}
	if len(out) < 4 {
		return common.Address{}, common.Address{}, fmt.Errorf("positions return size %d", len(out))
	}
	token0, ok := out[2].(common.Address)
	if !ok {
		return common.Address{}, common.Address{}, fmt.Errorf("token0 unexpected type %T", out[2])
	}
	token1, ok := out[3].(common.Address)
	if !ok {
		return common.Address{}, common.Address{}, fmt.Errorf("token1 unexpected type %T", out[3])
	}
	return token0, token1, nil
}

// SwapExactIn swaps amountIn of tokenIn for tokenOut and returns the proceeds
// observed in the swap receipt's Transfer to recipient.
func (m *Manager) SwapExactIn(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, recipient common.Address, minAmountOut *big.Int, deadline time.Time) (*big.Int, error) {
	callParams := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		Deadline          *big.Int
		AmountIn          *big.Int
		AmountOutMinimum  *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Fee:               big.NewInt(int64(m.cfg.SwapFee)),
		Recipient:         recipient,
		Deadline:          big.NewInt(deadline.Unix()),
		AmountIn:          amountIn,
		AmountOutMinimum:  minAmountOut,
		SqrtPriceLimitX96: big.NewInt(0),
	}

	// The router pulls tokenIn from the operator account during the swap.
	if err := m.Approve(ctx, tokenIn, m.cfg.Addresses.SwapRouter, amountIn); err != nil {
		return nil, err
	}

	tx, err := m.router.Transact(m.transactOpts(ctx), "exactInputSingle", callParams)
	if err != nil {
		return nil, fmt.Errorf("exactInputSingle: %w", err)
	}
	receipt, err := m.waitMined(ctx, tx, "exactInputSingle")
	if err != nil {
		return nil, err
	}

	amountOut, err := m.parseTransferTo(receipt, tokenOut, recipient)
	if err != nil {
		return nil, err
	}

	m.logger.Info("fees swapped",
		zap.String("token_in", tokenIn.Hex()),
		zap.String("token_out", tokenOut.Hex()),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", amountOut.String()),
	)
	return amountOut, nil
}

func (m *Manager) parseTransferTo(receipt *types.Receipt, token, recipient common.Address) (*big.Int, error) {
	event := m.erc20ABI.Events["Transfer"]
	total := new(big.Int)
	found := false
	for _, log := range receipt.Logs {
		if log.Address != token || len(log.Topics) != 3 || log.Topics[0] != event.ID {
			continue
		}
		if common.BytesToAddress(log.Topics[2].Bytes()) != recipient {
			continue
		}
		values, err := event.Inputs.NonIndexed().Unpack(log.Data)
		if err != nil {
			return nil, fmt.Errorf("unpack Transfer: %w", err)
		}
		if len(values) != 1 {
			return nil, fmt.Errorf("Transfer data size %d", len(values))
		}
		value, ok := values[0].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("Transfer value unexpected type %T", values[0])
		}
		total.Add(total, value)
		found = true
	}
	if !found {
		return nil, fmt.Errorf("no %s Transfer to %s in swap receipt", token.Hex(), recipient.Hex())
	}
	return total, nil
}

// Transfer sends an ERC20 balance held by the operator account.
func (m *Manager) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) error {
	tx, err := m.boundToken(token).Transact(m.transactOpts(ctx), "transfer", to, amount)
	if err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if _, err := m.waitMined(ctx, tx, "transfer"); err != nil {
		return err
	}
	return nil
}

// Approve grants the position manager or router spending rights over the
// operator's balance before minting or swapping.
func (m *Manager) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	tx, err := m.boundToken(token).Transact(m.transactOpts(ctx), "approve", spender, amount)
	if err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	if _, err := m.waitMined(ctx, tx, "approve"); err != nil {
		return err
	}
	return nil
}
