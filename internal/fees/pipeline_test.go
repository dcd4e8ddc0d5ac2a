package fees

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"launchkit/internal/auth"
	"launchkit/internal/dex"
	"launchkit/internal/model"
	"launchkit/internal/storage"
)

var (
	settlementAddr = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	issuedAddr     = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	creatorAddr    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	custodianAddr  = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type fakePool struct {
	token0, token1       common.Address
	collected0           *big.Int
	collected1           *big.Int
	collectErr           error
	positionTokensCalled int
}

func (f *fakePool) CreatePair(context.Context, common.Address, common.Address, uint32) (common.Address, error) {
	return common.Address{}, errors.New("not implemented")
}

func (f *fakePool) Initialize(context.Context, common.Address, *big.Int) error {
	return errors.New("not implemented")
}

func (f *fakePool) State(context.Context, common.Address) (dex.PoolState, error) {
	return dex.PoolState{}, errors.New("not implemented")
}

func (f *fakePool) TickSpacing(context.Context, common.Address) (int32, error) {
	return 0, errors.New("not implemented")
}

func (f *fakePool) Token0(context.Context, common.Address) (common.Address, error) {
	return f.token0, nil
}

func (f *fakePool) Token1(context.Context, common.Address) (common.Address, error) {
	return f.token1, nil
}

func (f *fakePool) MintLiquidity(context.Context, dex.MintParams) (dex.MintResult, error) {
	return dex.MintResult{}, errors.New("not implemented")
}

func (f *fakePool) CollectFees(_ context.Context, _ *big.Int, _ common.Address, _, _ *big.Int) (*big.Int, *big.Int, error) {
	if f.collectErr != nil {
		return nil, nil, f.collectErr
	}
	return new(big.Int).Set(f.collected0), new(big.Int).Set(f.collected1), nil
}

func (f *fakePool) PositionTokens(context.Context, *big.Int) (common.Address, common.Address, error) {
	f.positionTokensCalled++
	return f.token0, f.token1, nil
}

type fakeSwapper struct {
	proceeds *big.Int
	err      error
	calls    int
	lastIn   *big.Int
	reenter  func()
}

func (f *fakeSwapper) SwapExactIn(_ context.Context, _, _ common.Address, amountIn *big.Int, _ common.Address, _ *big.Int, _ time.Time) (*big.Int, error) {
	f.calls++
	f.lastIn = new(big.Int).Set(amountIn)
	if f.reenter != nil {
		f.reenter()
	}
	if f.err != nil {
		return nil, f.err
	}
	return new(big.Int).Set(f.proceeds), nil
}

type fakeTransfers struct {
	err        error
	onTransfer func()
	transfers  []struct {
		token, to common.Address
		amount    *big.Int
	}
}

func (f *fakeTransfers) Transfer(_ context.Context, token, to common.Address, amount *big.Int) error {
	if f.onTransfer != nil {
		f.onTransfer()
	}
	if f.err != nil {
		return f.err
	}
	f.transfers = append(f.transfers, struct {
		token, to common.Address
		amount    *big.Int
	}{token, to, new(big.Int).Set(amount)})
	return nil
}

type captureSink struct {
	storage.Nop
	pending       []model.PendingSettlement
	collections   []model.FeeCollectionRecord
	registrations []model.CreatorRegistration
}

func (c *captureSink) PutPendingSettlement(_ context.Context, record model.PendingSettlement) error {
	c.pending = append(c.pending, record)
	return nil
}

func (c *captureSink) PutFeeCollection(_ context.Context, record model.FeeCollectionRecord) error {
	c.collections = append(c.collections, record)
	return nil
}

func (c *captureSink) PutRegistration(_ context.Context, record model.CreatorRegistration) error {
	c.registrations = append(c.registrations, record)
	return nil
}

func newTestPipeline(pool *fakePool, swapper *fakeSwapper, transfers *fakeTransfers, sink storage.Sink) *Pipeline {
	return NewPipeline(Config{
		ChainID:         1,
		SettlementAsset: settlementAddr,
		Custodian:       custodianAddr,
		CreatorBps:      8000,
		SwapDeadline:    time.Minute,
	}, pool, swapper, transfers, auth.AllowAll, sink, nil)
}

func register(t *testing.T, p *Pipeline, id int64) *big.Int {
	t.Helper()
	positionID := big.NewInt(id)
	if err := p.RegisterCreator(context.Background(), positionID, creatorAddr); err != nil {
		t.Fatalf("register: %v", err)
	}
	return positionID
}

func TestRegisterCreatorOnce(t *testing.T) {
	p := newTestPipeline(&fakePool{}, &fakeSwapper{}, &fakeTransfers{}, nil)
	positionID := register(t, p, 7)

	other := common.HexToAddress("0x3333333333333333333333333333333333333333")
	err := p.RegisterCreator(context.Background(), positionID, other)
	if !errors.Is(err, model.ErrAlreadyRegistered) {
		t.Fatalf("expected already registered, got %v", err)
	}

	got, ok := p.Creator(positionID)
	if !ok || got != creatorAddr {
		t.Fatalf("first attribution must survive, got %s", got.Hex())
	}
}

func TestRegisterCreatorRejectsZeroAddress(t *testing.T) {
	p := newTestPipeline(&fakePool{}, &fakeSwapper{}, &fakeTransfers{}, nil)
	err := p.RegisterCreator(context.Background(), big.NewInt(1), common.Address{})
	if !errors.Is(err, model.ErrInvalidDeployer) {
		t.Fatalf("expected invalid deployer, got %v", err)
	}
}

func TestCollectFeesSettlementOnToken0(t *testing.T) {
	pool := &fakePool{
		token0:     settlementAddr,
		token1:     issuedAddr,
		collected0: big.NewInt(600_000),
		collected1: big.NewInt(1_000),
	}
	swapper := &fakeSwapper{proceeds: big.NewInt(400_000)}
	transfers := &fakeTransfers{}
	sink := &captureSink{}

	p := newTestPipeline(pool, swapper, transfers, sink)
	positionID := register(t, p, 1)

	record, err := p.CollectFees(context.Background(), positionID)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	// 600000 collected + 400000 swapped = 1000000 total, split 80/20.
	if record.CreatorShare != "800000" || record.ProtocolShare != "200000" {
		t.Fatalf("split = %s/%s, want 800000/200000", record.CreatorShare, record.ProtocolShare)
	}
	if swapper.calls != 1 || swapper.lastIn.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("issued side must be swapped in full")
	}
	if len(transfers.transfers) != 1 {
		t.Fatalf("expected one payout, got %d", len(transfers.transfers))
	}
	payout := transfers.transfers[0]
	if payout.token != settlementAddr || payout.to != creatorAddr || payout.amount.Cmp(big.NewInt(800_000)) != 0 {
		t.Fatalf("payout mismatch: %+v", payout)
	}
	if p.ProtocolBalance().Cmp(big.NewInt(200_000)) != 0 {
		t.Fatalf("protocol balance = %s, want 200000", p.ProtocolBalance())
	}
	if len(sink.collections) != 1 {
		t.Fatalf("expected one audit record")
	}
	if len(sink.pending) != 1 {
		t.Fatalf("expected a pending record before settlement")
	}
}

func TestCollectFeesSettlementOnToken1(t *testing.T) {
	pool := &fakePool{
		token0:     issuedAddr,
		token1:     settlementAddr,
		collected0: big.NewInt(0),
		collected1: big.NewInt(1_000_000),
	}
	swapper := &fakeSwapper{proceeds: big.NewInt(0)}
	transfers := &fakeTransfers{}

	p := newTestPipeline(pool, swapper, transfers, nil)
	positionID := register(t, p, 2)

	record, err := p.CollectFees(context.Background(), positionID)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	if swapper.calls != 0 {
		t.Fatalf("no issued-side fees, swap must be skipped")
	}
	if record.CreatorShare != "800000" || record.ProtocolShare != "200000" {
		t.Fatalf("split = %s/%s, want 800000/200000", record.CreatorShare, record.ProtocolShare)
	}
}

func TestCollectFeesUnregisteredPosition(t *testing.T) {
	p := newTestPipeline(&fakePool{token0: settlementAddr, token1: issuedAddr}, &fakeSwapper{}, &fakeTransfers{}, nil)

	_, err := p.CollectFees(context.Background(), big.NewInt(99))
	if !errors.Is(err, model.ErrInvalidOwner) {
		t.Fatalf("expected invalid owner, got %v", err)
	}
}

func TestCollectFeesUnknownPair(t *testing.T) {
	other := common.HexToAddress("0x4444444444444444444444444444444444444444")
	pool := &fakePool{token0: issuedAddr, token1: other}

	p := newTestPipeline(pool, &fakeSwapper{}, &fakeTransfers{}, nil)
	positionID := register(t, p, 3)

	_, err := p.CollectFees(context.Background(), positionID)
	if !errors.Is(err, model.ErrUnknownPair) {
		t.Fatalf("expected unknown pair, got %v", err)
	}
}

func TestCollectFeesSwapFailureIsAtomic(t *testing.T) {
	pool := &fakePool{
		token0:     settlementAddr,
		token1:     issuedAddr,
		collected0: big.NewInt(500),
		collected1: big.NewInt(100),
	}
	swapErr := errors.New("pool reverted")
	swapper := &fakeSwapper{err: swapErr}
	transfers := &fakeTransfers{}
	sink := &captureSink{}

	p := newTestPipeline(pool, swapper, transfers, sink)
	positionID := register(t, p, 4)

	_, err := p.CollectFees(context.Background(), positionID)
	if !errors.Is(err, swapErr) {
		t.Fatalf("expected swap error, got %v", err)
	}

	if len(transfers.transfers) != 0 {
		t.Fatalf("no payout may happen after a failed swap")
	}
	if p.ProtocolBalance().Sign() != 0 {
		t.Fatalf("protocol balance must stay untouched")
	}
	if len(sink.collections) != 0 {
		t.Fatalf("no audit record may be written for a failed collection")
	}
}

func TestCollectFeesSwapFailureLeavesCollectionTrail(t *testing.T) {
	pool := &fakePool{
		token0:     settlementAddr,
		token1:     issuedAddr,
		collected0: big.NewInt(500),
		collected1: big.NewInt(100),
	}
	swapper := &fakeSwapper{err: errors.New("pool reverted")}
	sink := &captureSink{}

	p := newTestPipeline(pool, swapper, &fakeTransfers{}, sink)
	positionID := register(t, p, 12)

	if _, err := p.CollectFees(context.Background(), positionID); err == nil {
		t.Fatalf("expected swap failure")
	}

	// The collect transaction cannot be undone, so the collected amounts
	// must already be on record when the swap fails.
	if len(sink.pending) != 1 {
		t.Fatalf("expected a pending record for the collected amounts, got %d", len(sink.pending))
	}
	rec := sink.pending[0]
	if rec.Collected0 != "500" || rec.Collected1 != "100" {
		t.Fatalf("pending amounts = %s/%s, want 500/100", rec.Collected0, rec.Collected1)
	}
	if rec.Creator != creatorAddr.Hex() || rec.PositionID != positionID.String() {
		t.Fatalf("pending attribution mismatch: %+v", rec)
	}
	if len(sink.collections) != 0 {
		t.Fatalf("no completed record may exist for a failed settlement")
	}
}

func TestCollectFeesPayoutFailureIsAtomic(t *testing.T) {
	pool := &fakePool{
		token0:     settlementAddr,
		token1:     issuedAddr,
		collected0: big.NewInt(1_000_000),
		collected1: big.NewInt(0),
	}
	transferErr := errors.New("transfer reverted")
	transfers := &fakeTransfers{err: transferErr}
	sink := &captureSink{}

	p := newTestPipeline(pool, &fakeSwapper{}, transfers, sink)
	positionID := register(t, p, 5)

	_, err := p.CollectFees(context.Background(), positionID)
	if !errors.Is(err, transferErr) {
		t.Fatalf("expected transfer error, got %v", err)
	}
	if p.ProtocolBalance().Sign() != 0 {
		t.Fatalf("protocol balance must stay untouched")
	}
	if len(sink.collections) != 0 {
		t.Fatalf("no audit record may be written for a failed collection")
	}
}

func TestCollectFeesRejectsReentrancy(t *testing.T) {
	pool := &fakePool{
		token0:     settlementAddr,
		token1:     issuedAddr,
		collected0: big.NewInt(0),
		collected1: big.NewInt(100),
	}
	transfers := &fakeTransfers{}

	var p *Pipeline
	var reentryErr error
	swapper := &fakeSwapper{proceeds: big.NewInt(50)}
	swapper.reenter = func() {
		_, reentryErr = p.CollectFees(context.Background(), big.NewInt(6))
	}

	p = newTestPipeline(pool, swapper, transfers, nil)
	positionID := register(t, p, 6)

	if _, err := p.CollectFees(context.Background(), positionID); err != nil {
		t.Fatalf("outer collect: %v", err)
	}
	if !errors.Is(reentryErr, model.ErrReentrantCall) {
		t.Fatalf("expected reentrant call rejection, got %v", reentryErr)
	}
}

func TestWithdrawProtocol(t *testing.T) {
	pool := &fakePool{
		token0:     settlementAddr,
		token1:     issuedAddr,
		collected0: big.NewInt(1_000_000),
		collected1: big.NewInt(0),
	}
	transfers := &fakeTransfers{}

	p := newTestPipeline(pool, &fakeSwapper{}, transfers, nil)
	positionID := register(t, p, 8)
	if _, err := p.CollectFees(context.Background(), positionID); err != nil {
		t.Fatalf("collect: %v", err)
	}

	to := common.HexToAddress("0x5555555555555555555555555555555555555555")
	amount, err := p.WithdrawProtocol(context.Background(), custodianAddr, to)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if amount.Cmp(big.NewInt(200_000)) != 0 {
		t.Fatalf("withdrawn %s, want 200000", amount)
	}
	if p.ProtocolBalance().Sign() != 0 {
		t.Fatalf("balance must be zero after withdrawal")
	}
}

func TestWithdrawProtocolReleasesStateDuringTransfer(t *testing.T) {
	pool := &fakePool{
		token0:     settlementAddr,
		token1:     issuedAddr,
		collected0: big.NewInt(1_000_000),
		collected1: big.NewInt(0),
	}
	transfers := &fakeTransfers{}

	p := newTestPipeline(pool, &fakeSwapper{}, transfers, nil)
	positionID := register(t, p, 10)
	if _, err := p.CollectFees(context.Background(), positionID); err != nil {
		t.Fatalf("collect: %v", err)
	}

	// Registration must proceed while the withdrawal transfer confirms, and
	// a second withdrawal attempted during it must be rejected.
	var regErr, reentryErr error
	fired := false
	transfers.onTransfer = func() {
		if fired {
			return
		}
		fired = true
		regErr = p.RegisterCreator(context.Background(), big.NewInt(11), creatorAddr)
		_, reentryErr = p.WithdrawProtocol(context.Background(), custodianAddr, custodianAddr)
	}

	to := common.HexToAddress("0x5555555555555555555555555555555555555555")
	amount, err := p.WithdrawProtocol(context.Background(), custodianAddr, to)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if amount.Cmp(big.NewInt(200_000)) != 0 {
		t.Fatalf("withdrawn %s, want 200000", amount)
	}
	if regErr != nil {
		t.Fatalf("registration during withdrawal: %v", regErr)
	}
	if !errors.Is(reentryErr, model.ErrReentrantCall) {
		t.Fatalf("expected reentrant withdrawal rejection, got %v", reentryErr)
	}
	if p.ProtocolBalance().Sign() != 0 {
		t.Fatalf("balance must be zero after withdrawal")
	}
}

func TestWithdrawProtocolUnauthorized(t *testing.T) {
	deny := func(context.Context, common.Address, string) error {
		return model.ErrNotAuthorized
	}
	p := NewPipeline(Config{
		ChainID:         1,
		SettlementAsset: settlementAddr,
		Custodian:       custodianAddr,
		CreatorBps:      8000,
	}, &fakePool{}, &fakeSwapper{}, &fakeTransfers{}, deny, nil, nil)

	_, err := p.WithdrawProtocol(context.Background(), creatorAddr, creatorAddr)
	if !errors.Is(err, model.ErrNotAuthorized) {
		t.Fatalf("expected authorization failure, got %v", err)
	}
}

func TestRestoreSkipsExisting(t *testing.T) {
	p := newTestPipeline(&fakePool{}, &fakeSwapper{}, &fakeTransfers{}, nil)
	positionID := register(t, p, 9)

	other := common.HexToAddress("0x6666666666666666666666666666666666666666")
	err := p.Restore([]model.CreatorRegistration{
		{PositionID: "9", Creator: other.Hex()},
		{PositionID: "10", Creator: other.Hex()},
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	got, _ := p.Creator(positionID)
	if got != creatorAddr {
		t.Fatalf("live attribution must win over restored record")
	}
	restored, ok := p.Creator(big.NewInt(10))
	if !ok || restored != other {
		t.Fatalf("missing restored attribution")
	}
}
