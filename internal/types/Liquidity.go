/*

Concentrated-liquidity pool and position types, plus the derived HedgeView
classification the rebalancer works from.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// Pool is the state of a concentrated-liquidity pool needed to compose a
// position: the asset pair, the current price and the tick grid.
type Pool struct {
	ID           string            `json:"id"`
	CoinTypeA    string            `json:"coin_type_a"`
	CoinTypeB    string            `json:"coin_type_b"`
	DecimalsA    int               `json:"decimals_a"`
	DecimalsB    int               `json:"decimals_b"`
	TickSpacing  int               `json:"tick_spacing"`
	CurrentTick  int               `json:"current_tick"`
	CurrentPrice sdkmath.LegacyDec `json:"current_price"` // price of A in units of B
	FeeRateBps   int               `json:"fee_rate_bps"`
}

// LiquidityPosition is a snapshot of a position's current composition in
// base units. A position is in range iff both amounts are nonzero.
type LiquidityPosition struct {
	ID          string      `json:"id"`
	PoolID      string      `json:"pool_id"`
	CoinA       string      `json:"coin_a"`
	CoinB       string      `json:"coin_b"`
	CoinAAmount sdkmath.Int `json:"coin_a_amount"`
	CoinBAmount sdkmath.Int `json:"coin_b_amount"`
	TickLower   int         `json:"tick_lower"`
	TickUpper   int         `json:"tick_upper"`
}

// InRange reports whether the position still straddles the pool price.
func (p *LiquidityPosition) InRange() bool {
	return !p.CoinAAmount.IsZero() && !p.CoinBAmount.IsZero()
}

// HedgeView classifies a position into its hedged (volatile) and stable
// sides. Derived per cycle, never persisted.
type HedgeView struct {
	HedgedAsset  string      // coin type of the volatile side
	HedgedSymbol string
	HedgedAmount sdkmath.Int // base units
	StableAsset  string
	StableSymbol string
	StableAmount sdkmath.Int
}
