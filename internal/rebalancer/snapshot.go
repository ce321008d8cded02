package rebalancer

import (
	"context"
	"fmt"
	"sort"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/Jarekkkkk/sui-bot/internal/types"
	"github.com/Jarekkkkk/sui-bot/internal/utils"
	"github.com/rs/zerolog"
)

// MarketSnapshot is the point-in-time state a cycle decides from. Nothing
// in it is reused across cycles except the reserve cache.
type MarketSnapshot struct {
	Reserves      []types.Reserve
	Obligation    types.Obligation
	ObligationCap types.ObligationOwnerCap
	Position      *types.LiquidityPosition
	Pool          *types.Pool
}

// loadSnapshot fetches everything a cycle needs and re-initializes the
// ledger adapter with the reserve listing. Reserves are served from the
// cache unless forceRefetch is set or the cache is empty.
func (r *Rebalancer) loadSnapshot(ctx context.Context, log zerolog.Logger, forceRefetch bool) (*MarketSnapshot, error) {
	reserves := r.cachedReserves
	if forceRefetch || len(reserves) == 0 {
		fetched, err := r.gateway.FetchReserves(ctx, r.lendingMarketID)
		if err != nil {
			return nil, err
		}
		reserves = fetched
		r.cachedReserves = fetched
		log.Debug().Int("reserves", len(reserves)).Msg("Reserve listing refetched")

		metadata, err := r.gateway.CoinMetadataMap(ctx, reserveCoinTypes(reserves))
		if err != nil {
			return nil, err
		}
		r.coinMetadata = metadata
		r.lastReserveFetch = time.Now()
		log.Debug().Int("coins", len(metadata)).Msg("Coin metadata resolved")
	}
	r.ledger.Init(reserves)

	caps, err := r.gateway.FetchObligationCaps(ctx, r.owner)
	if err != nil {
		return nil, err
	}
	if len(caps) == 0 {
		return nil, fmt.Errorf("%w: address %s holds no obligation capability", ErrNoObligationFound, r.owner)
	}

	obligations, err := r.gateway.FetchObligations(ctx, r.owner)
	if err != nil {
		return nil, err
	}
	if len(obligations) == 0 {
		return nil, fmt.Errorf("%w: address %s", ErrNoObligationFound, r.owner)
	}

	obligation, cap, err := selectObligation(obligations, caps)
	if err != nil {
		return nil, err
	}

	position, err := r.gateway.FetchPosition(ctx, r.positionID)
	if err != nil {
		return nil, err
	}
	pool, err := r.gateway.FetchPool(ctx, r.poolID)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("obligationID", obligation.ID).
		Str("netValueUsd", obligation.NetValueUsd.String()).
		Str("positionID", position.ID).
		Msg("Market snapshot loaded")

	return &MarketSnapshot{
		Reserves:      reserves,
		Obligation:    obligation,
		ObligationCap: cap,
		Position:      position,
		Pool:          pool,
	}, nil
}

// reserveCoinTypes collects every coin type a reserve touches, reward pools
// included, deduplicated in listing order.
func reserveCoinTypes(reserves []types.Reserve) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(coinType string) {
		if _, ok := seen[coinType]; ok {
			return
		}
		seen[coinType] = struct{}{}
		out = append(out, coinType)
	}
	for _, res := range reserves {
		add(res.CoinType)
		for _, reward := range res.RewardCoinTypes {
			add(reward)
		}
	}
	return out
}

// selectObligation picks the obligation with the largest net USD value and
// resolves its owning capability.
func selectObligation(obligations []types.Obligation, caps []types.ObligationOwnerCap) (types.Obligation, types.ObligationOwnerCap, error) {
	sorted := make([]types.Obligation, len(obligations))
	copy(sorted, obligations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NetValueUsd.GT(sorted[j].NetValueUsd)
	})
	active := sorted[0]

	for _, c := range caps {
		if c.ObligationID == active.ID {
			return active, c, nil
		}
	}
	return types.Obligation{}, types.ObligationOwnerCap{},
		fmt.Errorf("%w: obligation %s has no owning capability", ErrSetupIncomplete, active.ID)
}

// classifyPosition splits the position's pair into hedged (volatile) and
// stable sides. Exactly one side must be a registered stable asset.
func (r *Rebalancer) classifyPosition(pos *types.LiquidityPosition) (types.HedgeView, error) {
	assetA, err := r.registry.ByCoinType(pos.CoinA)
	if err != nil {
		return types.HedgeView{}, fmt.Errorf("%w: %w", ErrUnsupportedPosition, err)
	}
	assetB, err := r.registry.ByCoinType(pos.CoinB)
	if err != nil {
		return types.HedgeView{}, fmt.Errorf("%w: %w", ErrUnsupportedPosition, err)
	}

	switch {
	case assetA.Stable && assetB.Stable:
		return types.HedgeView{}, fmt.Errorf("%w: %s/%s", ErrAmbiguousHedge, assetA.Symbol, assetB.Symbol)
	case !assetA.Stable && !assetB.Stable:
		return types.HedgeView{}, fmt.Errorf("%w: %s/%s has no stable side", ErrUnsupportedPosition, assetA.Symbol, assetB.Symbol)
	case assetA.Stable:
		return types.HedgeView{
			HedgedAsset:  pos.CoinB,
			HedgedSymbol: assetB.Symbol,
			HedgedAmount: pos.CoinBAmount,
			StableAsset:  pos.CoinA,
			StableSymbol: assetA.Symbol,
			StableAmount: pos.CoinAAmount,
		}, nil
	default:
		return types.HedgeView{
			HedgedAsset:  pos.CoinA,
			HedgedSymbol: assetA.Symbol,
			HedgedAmount: pos.CoinAAmount,
			StableAsset:  pos.CoinB,
			StableSymbol: assetB.Symbol,
			StableAmount: pos.CoinBAmount,
		}, nil
	}
}

// computeDrift returns loan minus position exposure of the hedged asset,
// both in token units. Positive drift is over-hedged.
func (r *Rebalancer) computeDrift(view types.HedgeView, obligation types.Obligation) (sdkmath.LegacyDec, sdkmath.LegacyDec, sdkmath.LegacyDec, error) {
	borrow, ok := obligation.BorrowOf(view.HedgedAsset)
	if !ok {
		return sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, sdkmath.LegacyDec{},
			fmt.Errorf("%w: obligation %s has no %s borrow", ErrNoExistingLoan, obligation.ID, view.HedgedSymbol)
	}

	decimals, err := r.registry.Decimals(view.HedgedAsset)
	if err != nil {
		return sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, err
	}
	positionAmount, err := utils.BaseToDec(view.HedgedAmount, decimals)
	if err != nil {
		return sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, err
	}

	loanAmount := borrow.BorrowedAmount
	drift := loanAmount.Sub(positionAmount)
	return drift, loanAmount, positionAmount, nil
}
