package rebalancer

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/Jarekkkkk/sui-bot/internal/composer"
	"github.com/Jarekkkkk/sui-bot/internal/marketdata"
	"github.com/Jarekkkkk/sui-bot/internal/router"
	"github.com/Jarekkkkk/sui-bot/internal/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOpenParams() OpenParams {
	return OpenParams{
		LowerPrice:      dec("3.0"),
		UpperPrice:      dec("4.0"),
		DepositAmount:   dec("1000"),
		HedgePercentage: dec("0.5"),
	}
}

func TestOpenParamsValidate(t *testing.T) {
	p := validOpenParams()
	require.NoError(t, p.validate())

	p = validOpenParams()
	p.LowerPrice = dec("0")
	assert.ErrorIs(t, p.validate(), ErrSetupIncomplete)

	p = validOpenParams()
	p.DepositAmount = dec("0")
	assert.ErrorIs(t, p.validate(), ErrSetupIncomplete)

	p = validOpenParams()
	p.HedgePercentage = dec("1.5")
	assert.ErrorIs(t, p.validate(), ErrSetupIncomplete)
}

func TestOpenHedgedPositionBundleShape(t *testing.T) {
	gw := defaultGateway("1.5")
	exec := &fakeExecutor{}
	reb := newTestRebalancer(t, gw, &fakeRouter{}, exec, nil, false)

	require.NoError(t, reb.OpenHedgedPosition(context.Background(), validOpenParams()))

	require.Equal(t, 1, exec.dryRuns)
	steps := exec.lastSteps
	assert.Equal(t, []txn.StepKind{
		txn.StepRefreshPrice, txn.StepRefreshPrice,
		txn.StepSplitInput, txn.StepDeposit,
		txn.StepSplitInput, txn.StepBorrow,
		txn.StepOpenPosition,
	}, stepKinds(steps))

	// Ticks land on the grid, normalized.
	open := steps[6]
	assert.Less(t, open.TickLower, open.TickUpper)
	assert.Zero(t, open.TickLower%60)
	assert.Zero(t, open.TickUpper%60)

	// Stable is coin B in this pool: coin A comes from the borrow, coin B
	// from the capital split.
	require.NotNil(t, open.Input)
	require.NotNil(t, open.InputB)
	assert.Equal(t, 5, open.Input.Step)
	assert.Equal(t, 4, open.InputB.Step)

	// The collateral split feeds the deposit.
	require.NotNil(t, steps[3].Input)
	assert.Equal(t, 2, steps[3].Input.Step)

	// Never submitted outside live mode.
	assert.Zero(t, exec.submits)
}

func TestOpenHedgedPositionRangeOutOfBounds(t *testing.T) {
	gw := defaultGateway("1.5")
	gw.compose = func(req marketdata.CompositionRequest) (*marketdata.CompositionQuote, error) {
		// A range entirely above the current price holds only one asset.
		return &marketdata.CompositionQuote{AmountA: sdkmath.ZeroInt(), AmountB: req.Amount}, nil
	}
	reb := newTestRebalancer(t, gw, &fakeRouter{}, &fakeExecutor{}, nil, false)

	err := reb.OpenHedgedPosition(context.Background(), validOpenParams())
	assert.ErrorIs(t, err, composer.ErrRangeOutOfBounds)
}

func TestClosePositionBundleShape(t *testing.T) {
	gw := defaultGateway("1.5")
	exec := &fakeExecutor{}
	reb := newTestRebalancer(t, gw, &fakeRouter{}, exec, nil, false)

	require.NoError(t, reb.ClosePosition(context.Background()))

	require.Equal(t, 1, exec.dryRuns)
	steps := exec.lastSteps
	require.Len(t, steps, 1)
	assert.Equal(t, txn.StepClosePosition, steps[0].Kind)
	assert.Equal(t, "0xposition", steps[0].PositionID)
	assert.Equal(t, "0xpool", steps[0].PoolID)
}

func TestReserveCoinTypesIncludeRewards(t *testing.T) {
	reserves := testReserves()
	reserves[0].RewardCoinTypes = []string{cetusType, usdcType}

	got := reserveCoinTypes(reserves)
	assert.Equal(t, []string{suiType, cetusType, usdcType}, got)
}

func TestStatusReportsCycleHistory(t *testing.T) {
	gw := defaultGateway("1.2")
	store := &fakeStore{}
	reb := newTestRebalancer(t, gw, &fakeRouter{}, &fakeExecutor{}, store, false)

	reb.RunCycle(context.Background(), true)
	require.Len(t, store.saved, 1)

	require.NoError(t, reb.Status(context.Background()))
	assert.Equal(t, 1, store.pings)
	assert.Equal(t, 1, store.recentCalls)
}

func TestStatusDegradesWhenStoreUnreachable(t *testing.T) {
	gw := defaultGateway("1.2")
	store := &fakeStore{pingErr: errors.New("connection refused")}
	reb := newTestRebalancer(t, gw, &fakeRouter{}, &fakeExecutor{}, store, false)

	require.NoError(t, reb.Status(context.Background()))
	assert.Equal(t, 1, store.pings)
	assert.Zero(t, store.recentCalls)
}

func TestStatusWithoutStore(t *testing.T) {
	reb := newTestRebalancer(t, defaultGateway("1.2"), &fakeRouter{}, &fakeExecutor{}, nil, false)
	require.NoError(t, reb.Status(context.Background()))
}

func TestStandaloneSwapBundleShape(t *testing.T) {
	gw := defaultGateway("1.5")
	rt := &fakeRouter{quote: &router.Quote{
		FromCoinType: suiType, ToCoinType: usdcType,
		AmountIn: sdkmath.NewInt(1_000_000_000), AmountOut: sdkmath.NewInt(3_480_000),
		ByAmountIn: true,
	}}
	exec := &fakeExecutor{}
	reb := newTestRebalancer(t, gw, rt, exec, nil, false)

	require.NoError(t, reb.Swap(context.Background(), suiType, usdcType, sdkmath.NewInt(1_000_000_000)))

	steps := exec.lastSteps
	assert.Equal(t, []txn.StepKind{
		txn.StepSplitInput, txn.StepSwap, txn.StepTransferToSender,
	}, stepKinds(steps))
	assert.Equal(t, "1000000000", steps[0].Amount.String())
	require.NotNil(t, steps[2].Input)
	assert.Equal(t, 1, steps[2].Input.Step)
}

func TestStandaloneSwapRejectsZeroAmount(t *testing.T) {
	exec := &fakeExecutor{}
	reb := newTestRebalancer(t, defaultGateway("1.5"), &fakeRouter{}, exec, nil, false)

	err := reb.Swap(context.Background(), suiType, usdcType, sdkmath.ZeroInt())
	assert.ErrorIs(t, err, router.ErrInvalidQuoteRequest)
	assert.Zero(t, exec.dryRuns)
}

func TestRegistryAccessor(t *testing.T) {
	reb := newTestRebalancer(t, defaultGateway("1.5"), &fakeRouter{}, &fakeExecutor{}, nil, false)

	registry := reb.Registry()
	require.NotNil(t, registry)
	asset, err := registry.BySymbol("SUI")
	require.NoError(t, err)
	assert.Equal(t, suiType, asset.CoinType)
}
