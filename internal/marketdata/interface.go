package marketdata

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/Jarekkkkk/sui-bot/internal/types"
)

// CoinMetadata is the subset of on-chain coin metadata the bot uses.
type CoinMetadata struct {
	CoinType string `json:"coin_type"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// CompositionRequest asks for the dual-asset amounts a liquidity range
// requires, fixing one side's amount.
type CompositionRequest struct {
	PoolID    string
	TickLower int
	TickUpper int
	Amount    sdkmath.Int // base units of the fixed side
	FixA      bool        // true: Amount fixes coin A, false: coin B
}

// CompositionQuote is the estimator's answer.
type CompositionQuote struct {
	AmountA sdkmath.Int
	AmountB sdkmath.Int
}

// Gateway defines read access to the lending market, the liquidity pool and
// coin metadata. Implementations perform network reads only; all results are
// point-in-time snapshots.
type Gateway interface {
	// FetchReserves returns the market's reserves with interest compounded
	// and oracle prices refreshed as of call time.
	FetchReserves(ctx context.Context, marketID string) ([]types.Reserve, error)

	// FetchObligationCaps returns the obligation-owner capabilities held by
	// the given address.
	FetchObligationCaps(ctx context.Context, owner string) ([]types.ObligationOwnerCap, error)

	// FetchObligations returns the refreshed obligations owned by the given
	// address, in capability order.
	FetchObligations(ctx context.Context, owner string) ([]types.Obligation, error)

	// FetchPosition returns the current composition of a liquidity position.
	FetchPosition(ctx context.Context, positionID string) (*types.LiquidityPosition, error)

	// FetchPool returns the pool's price and tick-grid state.
	FetchPool(ctx context.Context, poolID string) (*types.Pool, error)

	// QuoteComposition estimates the dual-asset amounts for a range.
	QuoteComposition(ctx context.Context, req CompositionRequest) (*CompositionQuote, error)

	// CoinMetadataMap resolves metadata for the given coin types. Coin types
	// whose metadata cannot be fetched are omitted, not errors.
	CoinMetadataMap(ctx context.Context, coinTypes []string) (map[string]CoinMetadata, error)
}

// PriceService supplies oracle attestation blobs for price refresh steps.
type PriceService interface {
	// UpdateData returns the attestation blob per price identifier.
	UpdateData(ctx context.Context, identifiers []string) (map[string][]byte, error)
}
