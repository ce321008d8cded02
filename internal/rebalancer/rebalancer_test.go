package rebalancer

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/Jarekkkkk/sui-bot/internal/composer"
	"github.com/Jarekkkkk/sui-bot/internal/ledger"
	"github.com/Jarekkkkk/sui-bot/internal/marketdata"
	"github.com/Jarekkkkk/sui-bot/internal/router"
	"github.com/Jarekkkkk/sui-bot/internal/txn"
	"github.com/Jarekkkkk/sui-bot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	suiType   = "0x2::sui::SUI"
	usdcType  = "0x5d4b...usdc::COIN"
	usdtType  = "0xc06...usdt::COIN"
	cetusType = "0x06864a...cetus::CETUS"
)

func dec(s string) sdkmath.LegacyDec {
	return sdkmath.LegacyMustNewDecFromStr(s)
}

func testRegistry(t *testing.T) *types.AssetRegistry {
	t.Helper()
	registry, err := types.NewAssetRegistry([]types.Asset{
		{Symbol: "SUI", CoinType: suiType, Decimals: 9},
		{Symbol: "CETUS", CoinType: cetusType, Decimals: 9},
		{Symbol: "USDC", CoinType: usdcType, Decimals: 6, Stable: true},
		{Symbol: "wUSDT", CoinType: usdtType, Decimals: 6, Stable: true},
	})
	require.NoError(t, err)
	return registry
}

// --- fakes ---

type fakeGateway struct {
	reserves    []types.Reserve
	reservesErr error
	caps        []types.ObligationOwnerCap
	obligations []types.Obligation
	position    *types.LiquidityPosition
	pool        *types.Pool
	compose     func(req marketdata.CompositionRequest) (*marketdata.CompositionQuote, error)
}

func (g *fakeGateway) FetchReserves(ctx context.Context, marketID string) ([]types.Reserve, error) {
	if g.reservesErr != nil {
		return nil, g.reservesErr
	}
	return g.reserves, nil
}

func (g *fakeGateway) FetchObligationCaps(ctx context.Context, owner string) ([]types.ObligationOwnerCap, error) {
	return g.caps, nil
}

func (g *fakeGateway) FetchObligations(ctx context.Context, owner string) ([]types.Obligation, error) {
	return g.obligations, nil
}

func (g *fakeGateway) FetchPosition(ctx context.Context, positionID string) (*types.LiquidityPosition, error) {
	return g.position, nil
}

func (g *fakeGateway) FetchPool(ctx context.Context, poolID string) (*types.Pool, error) {
	return g.pool, nil
}

func (g *fakeGateway) QuoteComposition(ctx context.Context, req marketdata.CompositionRequest) (*marketdata.CompositionQuote, error) {
	if g.compose != nil {
		return g.compose(req)
	}
	return &marketdata.CompositionQuote{AmountA: req.Amount, AmountB: req.Amount}, nil
}

func (g *fakeGateway) CoinMetadataMap(ctx context.Context, coinTypes []string) (map[string]marketdata.CoinMetadata, error) {
	return map[string]marketdata.CoinMetadata{}, nil
}

type fakePrices struct{}

func (fakePrices) UpdateData(ctx context.Context, identifiers []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(identifiers))
	for _, id := range identifiers {
		out[id] = []byte("attestation:" + id)
	}
	return out, nil
}

type fakeRouter struct {
	lastRequest router.QuoteRequest
	quote       *router.Quote
	err         error
}

func (f *fakeRouter) Quote(ctx context.Context, req router.QuoteRequest) (*router.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.quote, nil
}

func (f *fakeRouter) AppendSwap(b *txn.Bundle, q *router.Quote, input txn.CoinRef, maxSlippage string) txn.CoinRef {
	return b.Append(txn.Step{
		Kind:        txn.StepSwap,
		CoinType:    q.ToCoinType,
		Input:       &input,
		ByAmountIn:  q.ByAmountIn,
		MaxSlippage: maxSlippage,
	})
}

type fakeExecutor struct {
	dryRuns   int
	submits   int
	failDry   bool
	lastSteps []txn.Step
}

func (f *fakeExecutor) DryRun(ctx context.Context, b *txn.Bundle) (*txn.DryRunResult, error) {
	f.dryRuns++
	f.lastSteps = b.Steps()
	if f.failDry {
		return &txn.DryRunResult{Status: "failure", Error: "simulated abort"}, nil
	}
	return &txn.DryRunResult{Status: "success"}, nil
}

func (f *fakeExecutor) Submit(ctx context.Context, b *txn.Bundle) (*txn.SubmitResult, error) {
	f.submits++
	f.lastSteps = b.Steps()
	return &txn.SubmitResult{Digest: "0xdigest", Status: "success"}, nil
}

type fakeStore struct {
	cycle       int
	saved       []types.CycleSnapshot
	pings       int
	recentCalls int
	pingErr     error
}

func (s *fakeStore) Ping() error {
	s.pings++
	return s.pingErr
}

func (s *fakeStore) NextCycleNumber() (int, error) {
	s.cycle++
	return s.cycle, nil
}

func (s *fakeStore) CurrentCycleNumber() (int, error) {
	return s.cycle, nil
}

func (s *fakeStore) SaveCycleSnapshot(snapshot types.CycleSnapshot) (int64, error) {
	s.saved = append(s.saved, snapshot)
	return int64(len(s.saved)), nil
}

func (s *fakeStore) RecentCycleSnapshots(count int) ([]types.CycleSnapshot, error) {
	s.recentCalls++
	if len(s.saved) < count {
		count = len(s.saved)
	}
	out := make([]types.CycleSnapshot, 0, count)
	for i := len(s.saved) - 1; i >= len(s.saved)-count; i-- {
		out = append(out, s.saved[i])
	}
	return out, nil
}

// --- fixtures ---

func testReserves() []types.Reserve {
	return []types.Reserve{
		{
			ID: "0xres-sui", ArrayIndex: 0, CoinType: suiType, Symbol: "SUI",
			MintDecimals: 9, PriceIdentifier: "sui-feed",
			Price: dec("3.5"), MinPrice: dec("3.45"), MaxPrice: dec("3.55"),
			AvailableAmount: sdkmath.NewInt(1_000_000_000_000), BorrowedAmount: dec("0"),
		},
		{
			ID: "0xres-usdc", ArrayIndex: 1, CoinType: usdcType, Symbol: "USDC",
			MintDecimals: 6, PriceIdentifier: "usdc-feed",
			Price: dec("1"), MinPrice: dec("0.999"), MaxPrice: dec("1.001"),
			AvailableAmount: sdkmath.NewInt(5_000_000_000_000), BorrowedAmount: dec("0"),
		},
	}
}

func testObligation(loanSUI string) types.Obligation {
	return types.Obligation{
		ID: "0xobligation",
		Deposits: []types.ObligationDeposit{
			{CoinType: usdcType, ReserveArrayIndex: 1, DepositedAmount: dec("2000"), DepositedValueUsd: dec("2000")},
		},
		Borrows: []types.ObligationBorrow{
			{CoinType: suiType, ReserveArrayIndex: 0, BorrowedAmount: dec(loanSUI), BorrowedValueUsd: dec(loanSUI).Mul(dec("3.5"))},
		},
		NetValueUsd:                dec("1500"),
		MaxPriceWeightedBorrowsUsd: dec("600"),
		MinPriceBorrowLimitUsd:     dec("1400"),
	}
}

func testPosition() *types.LiquidityPosition {
	return &types.LiquidityPosition{
		ID: "0xposition", PoolID: "0xpool",
		CoinA: suiType, CoinB: usdcType,
		CoinAAmount: sdkmath.NewInt(1_200_000_000), // 1.2 SUI
		CoinBAmount: sdkmath.NewInt(500_000_000),   // 500 USDC
		TickLower:   -60000, TickUpper: -48000,
	}
}

func liquidityPool() *types.Pool {
	return &types.Pool{
		ID: "0xpool", CoinTypeA: suiType, CoinTypeB: usdcType,
		DecimalsA: 9, DecimalsB: 6, TickSpacing: 60,
		CurrentPrice: dec("3.5"),
	}
}

func newTestRebalancer(t *testing.T, gw *fakeGateway, rt *fakeRouter, exec *fakeExecutor, store *fakeStore, live bool) *Rebalancer {
	t.Helper()
	adapter := ledger.NewAdapter("0xmarket", "0xmarket::market::Market")
	var snapStore SnapshotStore
	if store != nil {
		snapStore = store
	}
	reb, err := New(Config{
		Gateway:           gw,
		Prices:            fakePrices{},
		Router:            rt,
		Composer:          composer.NewComposer(gw),
		Ledger:            adapter,
		Executor:          exec,
		Registry:          testRegistry(t),
		Store:             snapStore,
		Owner:             "0xowner",
		PoolID:            "0xpool",
		PositionID:        "0xposition",
		LendingMarketID:   "0xmarket",
		DriftTolerance:    dec("0.0001"),
		MaxSlippage:       dec("0.01"),
		ReferenceNotional: dec("100"),
		LiveMode:          live,
	})
	require.NoError(t, err)
	return reb
}

func defaultGateway(loanSUI string) *fakeGateway {
	return &fakeGateway{
		reserves:    testReserves(),
		caps:        []types.ObligationOwnerCap{{CapID: "0xcap", ObligationID: "0xobligation"}},
		obligations: []types.Obligation{testObligation(loanSUI)},
		position:    testPosition(),
		pool:        liquidityPool(),
	}
}

// --- classification ---

func TestClassifyPositionVolatileStable(t *testing.T) {
	reb := newTestRebalancer(t, defaultGateway("1.5"), &fakeRouter{}, &fakeExecutor{}, nil, false)

	view, err := reb.classifyPosition(testPosition())
	require.NoError(t, err)
	assert.Equal(t, suiType, view.HedgedAsset)
	assert.Equal(t, "SUI", view.HedgedSymbol)
	assert.Equal(t, usdcType, view.StableAsset)
	assert.Equal(t, "1200000000", view.HedgedAmount.String())
}

func TestClassifyPositionStableOnSideA(t *testing.T) {
	reb := newTestRebalancer(t, defaultGateway("1.5"), &fakeRouter{}, &fakeExecutor{}, nil, false)

	pos := testPosition()
	pos.CoinA, pos.CoinB = pos.CoinB, pos.CoinA
	pos.CoinAAmount, pos.CoinBAmount = pos.CoinBAmount, pos.CoinAAmount

	view, err := reb.classifyPosition(pos)
	require.NoError(t, err)
	assert.Equal(t, suiType, view.HedgedAsset)
	assert.Equal(t, "1200000000", view.HedgedAmount.String())
}

func TestClassifyPositionBothStable(t *testing.T) {
	reb := newTestRebalancer(t, defaultGateway("1.5"), &fakeRouter{}, &fakeExecutor{}, nil, false)

	pos := testPosition()
	pos.CoinA, pos.CoinB = usdcType, usdtType

	_, err := reb.classifyPosition(pos)
	assert.ErrorIs(t, err, ErrAmbiguousHedge)
}

func TestClassifyPositionNoStable(t *testing.T) {
	reb := newTestRebalancer(t, defaultGateway("1.5"), &fakeRouter{}, &fakeExecutor{}, nil, false)

	pos := testPosition()
	pos.CoinA, pos.CoinB = suiType, cetusType

	_, err := reb.classifyPosition(pos)
	assert.ErrorIs(t, err, ErrUnsupportedPosition)
}

// --- drift ---

func TestComputeDriftOverHedged(t *testing.T) {
	reb := newTestRebalancer(t, defaultGateway("1.5"), &fakeRouter{}, &fakeExecutor{}, nil, false)
	view, err := reb.classifyPosition(testPosition())
	require.NoError(t, err)

	drift, loan, position, err := reb.computeDrift(view, testObligation("1.5"))
	require.NoError(t, err)
	assert.True(t, drift.Equal(dec("0.3")), "drift=%s", drift)
	assert.True(t, loan.Equal(dec("1.5")))
	assert.True(t, position.Equal(dec("1.2")))
}

func TestComputeDriftUnderHedged(t *testing.T) {
	reb := newTestRebalancer(t, defaultGateway("1.0"), &fakeRouter{}, &fakeExecutor{}, nil, false)
	view, err := reb.classifyPosition(testPosition())
	require.NoError(t, err)

	drift, _, _, err := reb.computeDrift(view, testObligation("1.0"))
	require.NoError(t, err)
	assert.True(t, drift.Equal(dec("-0.2")), "drift=%s", drift)
}

func TestComputeDriftAntisymmetry(t *testing.T) {
	reb := newTestRebalancer(t, defaultGateway("1.5"), &fakeRouter{}, &fakeExecutor{}, nil, false)
	view, err := reb.classifyPosition(testPosition())
	require.NoError(t, err)

	over, _, _, err := reb.computeDrift(view, testObligation("1.4"))
	require.NoError(t, err)
	under, _, _, err := reb.computeDrift(view, testObligation("1.0"))
	require.NoError(t, err)

	// 1.4 vs 1.2 mirrors 1.0 vs 1.2 around the position amount.
	assert.True(t, over.Equal(under.Neg()), "over=%s under=%s", over, under)
}

func TestComputeDriftNoLoan(t *testing.T) {
	reb := newTestRebalancer(t, defaultGateway("1.5"), &fakeRouter{}, &fakeExecutor{}, nil, false)
	view, err := reb.classifyPosition(testPosition())
	require.NoError(t, err)

	obligation := testObligation("1.5")
	obligation.Borrows = nil
	_, _, _, err = reb.computeDrift(view, obligation)
	assert.ErrorIs(t, err, ErrNoExistingLoan)
}

// --- obligation selection ---

func TestSelectObligationByNetValue(t *testing.T) {
	small := testObligation("1.5")
	small.ID = "0xsmall"
	small.NetValueUsd = dec("10")
	big := testObligation("1.5")

	caps := []types.ObligationOwnerCap{
		{CapID: "0xcap-small", ObligationID: "0xsmall"},
		{CapID: "0xcap", ObligationID: "0xobligation"},
	}

	chosen, cap, err := selectObligation([]types.Obligation{small, big}, caps)
	require.NoError(t, err)
	assert.Equal(t, "0xobligation", chosen.ID)
	assert.Equal(t, "0xcap", cap.CapID)
}

// --- bundle construction ---

func stepKinds(steps []txn.Step) []txn.StepKind {
	kinds := make([]txn.StepKind, len(steps))
	for i, s := range steps {
		kinds[i] = s.Kind
	}
	return kinds
}

func TestBuildRepayBundleShape(t *testing.T) {
	gw := defaultGateway("1.5")
	rt := &fakeRouter{quote: &router.Quote{
		FromCoinType: usdcType,
		ToCoinType:   suiType,
		AmountIn:     sdkmath.NewInt(1_060_000),   // 1.06 USDC
		AmountOut:    sdkmath.NewInt(300_000_000), // 0.3 SUI
		ByAmountIn:   false,
	}}
	exec := &fakeExecutor{}
	reb := newTestRebalancer(t, gw, rt, exec, nil, false)

	snap, err := reb.loadSnapshot(context.Background(), reb.logger, true)
	require.NoError(t, err)
	view, err := reb.classifyPosition(snap.Position)
	require.NoError(t, err)

	b, err := reb.buildRepayBundle(context.Background(), snap, view, dec("0.3"))
	require.NoError(t, err)

	steps := b.Steps()
	assert.Equal(t, []txn.StepKind{
		txn.StepRefreshPrice, txn.StepRefreshPrice,
		txn.StepWithdraw, txn.StepSwap, txn.StepRepay,
		txn.StepTransferToSender, txn.StepTransferToSender,
	}, stepKinds(steps))

	// The router was asked for exact-out of precisely the drifted amount.
	require.NotNil(t, rt.lastRequest.ToAmount)
	assert.Equal(t, "300000000", rt.lastRequest.ToAmount.String())
	assert.Nil(t, rt.lastRequest.FromAmount)

	// Withdraw is the quoted input padded by the slippage bound.
	assert.Equal(t, "1070600", steps[2].Amount.String())
	assert.Equal(t, usdcType, steps[2].CoinType)

	// The swap consumes the withdrawn coin; repay consumes the swap output.
	require.NotNil(t, steps[3].Input)
	assert.Equal(t, 2, steps[3].Input.Step)
	require.NotNil(t, steps[4].Input)
	assert.Equal(t, 3, steps[4].Input.Step)
	assert.Equal(t, "0xobligation", steps[4].ObligationID)
}

func TestBuildBorrowBundleShape(t *testing.T) {
	gw := defaultGateway("1.0")
	rt := &fakeRouter{quote: &router.Quote{
		FromCoinType: suiType,
		ToCoinType:   usdcType,
		AmountIn:     sdkmath.NewInt(200_000_000),
		AmountOut:    sdkmath.NewInt(695_000),
		ByAmountIn:   true,
	}}
	exec := &fakeExecutor{}
	reb := newTestRebalancer(t, gw, rt, exec, nil, false)

	snap, err := reb.loadSnapshot(context.Background(), reb.logger, true)
	require.NoError(t, err)
	view, err := reb.classifyPosition(snap.Position)
	require.NoError(t, err)

	b, err := reb.buildBorrowBundle(context.Background(), snap, view, dec("-0.2"))
	require.NoError(t, err)

	steps := b.Steps()
	assert.Equal(t, []txn.StepKind{
		txn.StepRefreshPrice, txn.StepRefreshPrice,
		txn.StepBorrow, txn.StepSwap, txn.StepDeposit,
	}, stepKinds(steps))

	// Borrow exactly the missing exposure, in base units.
	assert.Equal(t, "200000000", steps[2].Amount.String())
	assert.Equal(t, suiType, steps[2].CoinType)
	assert.Equal(t, "0xcap", steps[2].ObligationCapID)

	// Exact-in quote for the borrowed amount.
	require.NotNil(t, rt.lastRequest.FromAmount)
	assert.Equal(t, "200000000", rt.lastRequest.FromAmount.String())

	// Deposit consumes the swap output.
	require.NotNil(t, steps[4].Input)
	assert.Equal(t, 3, steps[4].Input.Step)
}

// --- cycle behavior ---

func TestRunCycleWithinToleranceIsNoop(t *testing.T) {
	gw := defaultGateway("1.2") // loan equals position exposure
	exec := &fakeExecutor{}
	store := &fakeStore{}
	reb := newTestRebalancer(t, gw, &fakeRouter{}, exec, store, false)

	reb.RunCycle(context.Background(), true)

	require.Len(t, store.saved, 1)
	snapshot := store.saved[0]
	assert.Equal(t, types.CycleActionNone, snapshot.Action)
	assert.Empty(t, snapshot.Error)
	assert.Equal(t, dec("0").String(), snapshot.Drift)
	assert.Zero(t, exec.dryRuns)
	assert.Zero(t, exec.submits)
}

func TestRunCycleHealthGate(t *testing.T) {
	gw := defaultGateway("1.5")
	unhealthy := testObligation("1.5")
	unhealthy.MaxPriceWeightedBorrowsUsd = dec("1500")
	unhealthy.MinPriceBorrowLimitUsd = dec("1400")
	gw.obligations = []types.Obligation{unhealthy}

	exec := &fakeExecutor{}
	store := &fakeStore{}
	reb := newTestRebalancer(t, gw, &fakeRouter{}, exec, store, false)

	reb.RunCycle(context.Background(), true)

	require.Len(t, store.saved, 1)
	snapshot := store.saved[0]
	assert.Equal(t, types.CycleActionAbort, snapshot.Action)
	assert.Contains(t, snapshot.Error, "unhealthy")
	assert.Zero(t, exec.dryRuns)
}

func TestRunCycleOutOfRangePosition(t *testing.T) {
	gw := defaultGateway("1.5")
	gw.position.CoinBAmount = sdkmath.ZeroInt()

	exec := &fakeExecutor{}
	store := &fakeStore{}
	reb := newTestRebalancer(t, gw, &fakeRouter{}, exec, store, false)

	reb.RunCycle(context.Background(), true)

	require.Len(t, store.saved, 1)
	assert.Equal(t, types.CycleActionAbort, store.saved[0].Action)
	assert.Contains(t, store.saved[0].Error, "exited its price range")
	assert.Zero(t, exec.dryRuns)
}

func TestRunCycleOverHedgedLiveSubmits(t *testing.T) {
	gw := defaultGateway("1.5")
	rt := &fakeRouter{quote: &router.Quote{
		FromCoinType: usdcType, ToCoinType: suiType,
		AmountIn: sdkmath.NewInt(1_060_000), AmountOut: sdkmath.NewInt(300_000_000),
	}}
	exec := &fakeExecutor{}
	store := &fakeStore{}
	reb := newTestRebalancer(t, gw, rt, exec, store, true)

	reb.RunCycle(context.Background(), true)

	require.Len(t, store.saved, 1)
	snapshot := store.saved[0]
	assert.Equal(t, types.CycleActionRepay, snapshot.Action)
	assert.True(t, snapshot.Submitted)
	assert.Equal(t, "0xdigest", snapshot.TxDigest)
	assert.Empty(t, snapshot.Error)
	assert.Equal(t, 1, exec.dryRuns)
	assert.Equal(t, 1, exec.submits)
	assert.Len(t, snapshot.Steps, 7)
}

func TestRunCycleValidateOnlyNeverSubmits(t *testing.T) {
	gw := defaultGateway("1.0")
	rt := &fakeRouter{quote: &router.Quote{
		FromCoinType: suiType, ToCoinType: usdcType,
		AmountIn: sdkmath.NewInt(200_000_000), AmountOut: sdkmath.NewInt(695_000),
		ByAmountIn: true,
	}}
	exec := &fakeExecutor{}
	store := &fakeStore{}
	reb := newTestRebalancer(t, gw, rt, exec, store, false)

	reb.RunCycle(context.Background(), true)

	require.Len(t, store.saved, 1)
	snapshot := store.saved[0]
	assert.Equal(t, types.CycleActionBorrow, snapshot.Action)
	assert.False(t, snapshot.Submitted)
	assert.Empty(t, snapshot.TxDigest)
	assert.Equal(t, 1, exec.dryRuns)
	assert.Zero(t, exec.submits)
}

func TestRunCycleDryRunFailureAborts(t *testing.T) {
	gw := defaultGateway("1.5")
	rt := &fakeRouter{quote: &router.Quote{
		FromCoinType: usdcType, ToCoinType: suiType,
		AmountIn: sdkmath.NewInt(1_060_000), AmountOut: sdkmath.NewInt(300_000_000),
	}}
	exec := &fakeExecutor{failDry: true}
	store := &fakeStore{}
	reb := newTestRebalancer(t, gw, rt, exec, store, true)

	reb.RunCycle(context.Background(), true)

	require.Len(t, store.saved, 1)
	snapshot := store.saved[0]
	assert.Equal(t, types.CycleActionAbort, snapshot.Action)
	assert.Contains(t, snapshot.Error, "simulated abort")
	assert.Zero(t, exec.submits)
}

func TestFailedRefetchRetriesNextCycle(t *testing.T) {
	gw := defaultGateway("1.2")
	gw.reservesErr = errors.New("indexer down")
	store := &fakeStore{}
	reb := newTestRebalancer(t, gw, &fakeRouter{}, &fakeExecutor{}, store, false)

	reb.RunCycle(context.Background(), true)

	require.Len(t, store.saved, 1)
	assert.Equal(t, types.CycleActionAbort, store.saved[0].Action)
	assert.True(t, reb.lastReserveFetch.IsZero(), "failed refetch must not advance the fetch timestamp")

	gw.reservesErr = nil
	reb.RunCycle(context.Background(), true)

	require.Len(t, store.saved, 2)
	assert.Equal(t, types.CycleActionNone, store.saved[1].Action)
	assert.False(t, reb.lastReserveFetch.IsZero())
}

func TestRunCycleNoObligations(t *testing.T) {
	gw := defaultGateway("1.5")
	gw.caps = nil
	gw.obligations = nil

	store := &fakeStore{}
	reb := newTestRebalancer(t, gw, &fakeRouter{}, &fakeExecutor{}, store, false)

	reb.RunCycle(context.Background(), true)

	require.Len(t, store.saved, 1)
	assert.Equal(t, types.CycleActionAbort, store.saved[0].Action)
	assert.Contains(t, store.saved[0].Error, "no obligation")
}
