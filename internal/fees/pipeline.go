// Package fees implements the collect-convert-split-pay settlement pipeline
// for launch liquidity positions held in custody.
package fees

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"launchkit/internal/auth"
	"launchkit/internal/dex"
	"launchkit/internal/model"
	"launchkit/internal/storage"
)

// Config wires a Pipeline.
type Config struct {
	ChainID         uint64
	SettlementAsset common.Address
	// Custodian is the operator account that owns launch positions and
	// receives collected fees before distribution.
	Custodian    common.Address
	CreatorBps   uint32
	SwapDeadline time.Duration
}

// Pipeline custodies launch positions, attributes them to their creators, and
// settles accrued fees. Positions map to creators exactly once; settlement
// runs repeatedly as fees accrue.
type Pipeline struct {
	cfg       Config
	pool      dex.Pool
	swapper   dex.Swapper
	transfers dex.TokenTransferer
	authorize auth.Func
	sink      storage.Sink
	logger    *zap.Logger
	now       func() time.Time

	mu              sync.Mutex
	creators        map[string]common.Address
	inFlight        map[string]struct{}
	withdrawing     bool
	protocolBalance *big.Int
}

// NewPipeline builds a Pipeline with its collaborators.
func NewPipeline(cfg Config, pool dex.Pool, swapper dex.Swapper, transfers dex.TokenTransferer, authorize auth.Func, sink storage.Sink, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = storage.Nop{}
	}
	if cfg.SwapDeadline <= 0 {
		cfg.SwapDeadline = 5 * time.Minute
	}
	return &Pipeline{
		cfg:             cfg,
		pool:            pool,
		swapper:         swapper,
		transfers:       transfers,
		authorize:       authorize,
		sink:            sink,
		logger:          logger,
		now:             time.Now,
		creators:        make(map[string]common.Address),
		inFlight:        make(map[string]struct{}),
		protocolBalance: new(big.Int),
	}
}

// RegisterCreator attributes a position to its asset creator. The mapping is
// immutable; a second registration for the same position fails and leaves the
// first attribution unchanged.
func (p *Pipeline) RegisterCreator(ctx context.Context, positionID *big.Int, creator common.Address) error {
	if positionID == nil {
		return fmt.Errorf("position id is nil")
	}
	if creator == (common.Address{}) {
		return model.ErrInvalidDeployer
	}

	key := positionID.String()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.creators[key]; ok {
		return fmt.Errorf("position %s: %w", key, model.ErrAlreadyRegistered)
	}

	record := model.CreatorRegistration{
		ChainID:      p.cfg.ChainID,
		PositionID:   key,
		Creator:      creator.Hex(),
		RegisteredAt: p.now().UTC().Format(time.RFC3339),
	}
	if err := p.sink.PutRegistration(ctx, record); err != nil {
		return fmt.Errorf("persist registration: %w", err)
	}

	p.creators[key] = creator

	p.logger.Info("creator registered",
		zap.String("position_id", key),
		zap.String("creator", creator.Hex()),
	)
	return nil
}

// Creator returns the registered creator for a position.
func (p *Pipeline) Creator(positionID *big.Int) (common.Address, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	creator, ok := p.creators[positionID.String()]
	return creator, ok
}

// ProtocolBalance reports the settlement-asset amount held for the protocol.
func (p *Pipeline) ProtocolBalance() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.protocolBalance)
}

func (p *Pipeline) begin(positionID *big.Int) (string, common.Address, error) {
	key := positionID.String()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, busy := p.inFlight[key]; busy {
		return "", common.Address{}, fmt.Errorf("position %s: %w", key, model.ErrReentrantCall)
	}
	creator, ok := p.creators[key]
	if !ok {
		return "", common.Address{}, fmt.Errorf("position %s: %w", key, model.ErrInvalidOwner)
	}
	p.inFlight[key] = struct{}{}
	return key, creator, nil
}

func (p *Pipeline) end(key string) {
	p.mu.Lock()
	delete(p.inFlight, key)
	p.mu.Unlock()
}

// Restore seeds the attribution ledger from persisted registrations, e.g. on
// process restart. Existing entries are never overwritten.
func (p *Pipeline) Restore(records []model.CreatorRegistration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, r := range records {
		positionID, ok := new(big.Int).SetString(r.PositionID, 10)
		if !ok {
			return fmt.Errorf("restore: bad position id %q", r.PositionID)
		}
		if !common.IsHexAddress(r.Creator) {
			return fmt.Errorf("restore: bad creator address %q", r.Creator)
		}
		key := positionID.String()
		if _, exists := p.creators[key]; exists {
			continue
		}
		p.creators[key] = common.HexToAddress(r.Creator)
	}
	return nil
}

// CollectFees collects all accrued fees for a position, converts the
// issued-asset side into the settlement asset, splits the total, and pays the
// creator share immediately. The protocol share stays in custody. Any leg
// failing fails the whole call with no bookkeeping applied.
func (p *Pipeline) CollectFees(ctx context.Context, positionID *big.Int) (model.FeeCollectionRecord, error) {
	if positionID == nil {
		return model.FeeCollectionRecord{}, fmt.Errorf("position id is nil")
	}

	key, creator, err := p.begin(positionID)
	if err != nil {
		return model.FeeCollectionRecord{}, err
	}
	defer p.end(key)

	token0, token1, err := p.pool.PositionTokens(ctx, positionID)
	if err != nil {
		return model.FeeCollectionRecord{}, fmt.Errorf("position tokens: %w", err)
	}

	// The settlement asset is found by identity, not slot index: pair
	// ordering can place it on either side.
	var issuedAsset common.Address
	settlementIsToken0 := false
	switch p.cfg.SettlementAsset {
	case token0:
		issuedAsset = token1
		settlementIsToken0 = true
	case token1:
		issuedAsset = token0
	default:
		return model.FeeCollectionRecord{}, fmt.Errorf("position %s pair %s/%s: %w", key, token0.Hex(), token1.Hex(), model.ErrUnknownPair)
	}

	collected0, collected1, err := p.pool.CollectFees(ctx, positionID, p.cfg.Custodian, dex.MaxUint128, dex.MaxUint128)
	if err != nil {
		return model.FeeCollectionRecord{}, fmt.Errorf("collect fees: %w", err)
	}

	// The collect transaction is mined and cannot be undone. Record the
	// collected amounts before the convert and payout legs run, so a failure
	// there leaves the funds in custody attributable instead of stranded.
	pending := model.PendingSettlement{
		ChainID:     p.cfg.ChainID,
		PositionID:  key,
		Creator:     creator.Hex(),
		Collected0:  collected0.String(),
		Collected1:  collected1.String(),
		CollectedAt: p.now().UTC().Format(time.RFC3339),
	}
	if err := p.sink.PutPendingSettlement(ctx, pending); err != nil {
		return model.FeeCollectionRecord{}, fmt.Errorf("persist pending settlement: %w", err)
	}

	// Share math uses the amounts the external calls returned. Balances are
	// never re-queried after the fact.
	settlementTotal := new(big.Int)
	issuedAmount := new(big.Int)
	if settlementIsToken0 {
		settlementTotal.Set(collected0)
		issuedAmount.Set(collected1)
	} else {
		settlementTotal.Set(collected1)
		issuedAmount.Set(collected0)
	}

	swapProceeds := new(big.Int)
	if issuedAmount.Sign() > 0 {
		// Minimum output is zero here; the swap accepts whatever the pool
		// offers. The correct tolerance is a business decision that has not
		// been made, so none is invented.
		deadline := p.now().Add(p.cfg.SwapDeadline)
		proceeds, err := p.swapper.SwapExactIn(ctx, issuedAsset, p.cfg.SettlementAsset, issuedAmount, p.cfg.Custodian, big.NewInt(0), deadline)
		if err != nil {
			return model.FeeCollectionRecord{}, fmt.Errorf("swap issued fees: %w", err)
		}
		swapProceeds.Set(proceeds)
		settlementTotal.Add(settlementTotal, proceeds)
	}

	split, err := model.SplitFee(settlementTotal, p.cfg.CreatorBps)
	if err != nil {
		return model.FeeCollectionRecord{}, err
	}

	if split.CreatorShare.Sign() > 0 {
		if err := p.transfers.Transfer(ctx, p.cfg.SettlementAsset, creator, split.CreatorShare); err != nil {
			return model.FeeCollectionRecord{}, fmt.Errorf("pay creator share: %w", err)
		}
	}

	record := model.FeeCollectionRecord{
		ChainID:       p.cfg.ChainID,
		PositionID:    key,
		Creator:       creator.Hex(),
		Collected0:    collected0.String(),
		Collected1:    collected1.String(),
		SwapProceeds:  swapProceeds.String(),
		CreatorShare:  split.CreatorShare.String(),
		ProtocolShare: split.ProtocolShare.String(),
		CollectedAt:   p.now().UTC().Format(time.RFC3339),
	}
	if err := p.sink.PutFeeCollection(ctx, record); err != nil {
		return model.FeeCollectionRecord{}, fmt.Errorf("persist fee collection: %w", err)
	}

	p.mu.Lock()
	p.protocolBalance.Add(p.protocolBalance, split.ProtocolShare)
	p.mu.Unlock()

	p.logger.Info("fees collected",
		zap.String("position_id", key),
		zap.String("creator", creator.Hex()),
		zap.String("creator_share", split.CreatorShare.String()),
		zap.String("protocol_share", split.ProtocolShare.String()),
	)
	return record, nil
}

// WithdrawProtocol transfers the retained protocol share to the given
// address. Gated by the withdraw capability.
func (p *Pipeline) WithdrawProtocol(ctx context.Context, caller, to common.Address) (*big.Int, error) {
	if p.authorize != nil {
		if err := p.authorize(ctx, caller, auth.CapWithdraw); err != nil {
			return nil, err
		}
	}
	if to == (common.Address{}) {
		return nil, fmt.Errorf("withdraw recipient is zero")
	}

	p.mu.Lock()
	if p.withdrawing {
		p.mu.Unlock()
		return nil, fmt.Errorf("protocol withdrawal: %w", model.ErrReentrantCall)
	}
	amount := new(big.Int).Set(p.protocolBalance)
	if amount.Sign() == 0 {
		p.mu.Unlock()
		return amount, nil
	}
	p.withdrawing = true
	p.mu.Unlock()

	// The transfer is a mined transaction; holding the lock across it would
	// stall registration and collection for the confirmation latency.
	transferErr := p.transfers.Transfer(ctx, p.cfg.SettlementAsset, to, amount)

	p.mu.Lock()
	p.withdrawing = false
	if transferErr == nil {
		// Collections may have landed during confirmation, so only the
		// withdrawn amount is deducted.
		p.protocolBalance.Sub(p.protocolBalance, amount)
	}
	p.mu.Unlock()

	if transferErr != nil {
		return nil, fmt.Errorf("withdraw protocol share: %w", transferErr)
	}

	p.logger.Info("protocol share withdrawn",
		zap.String("to", to.Hex()),
		zap.String("amount", amount.String()),
	)
	return amount, nil
}
