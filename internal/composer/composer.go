/*

Position composition. Converts operator price bounds into the pool's tick
grid and appends open/close position steps to a bundle. Liquidity-amount
estimation for a range is delegated to the pool API's quote endpoint; this
package only owns the tick arithmetic and the step layout.

*/

package composer

import (
	"context"
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
	"github.com/Jarekkkkk/sui-bot/internal/logger"
	"github.com/Jarekkkkk/sui-bot/internal/marketdata"
	"github.com/Jarekkkkk/sui-bot/internal/txn"
	"github.com/Jarekkkkk/sui-bot/internal/types"
	"github.com/rs/zerolog"
)

// Error definitions for zero-tolerance error handling
var (
	ErrRangeOutOfBounds = errors.New("price range maps outside the pool's tick bounds")
	ErrEmptyRange       = errors.New("price range collapses to an empty tick range")
	ErrInvalidPrice     = errors.New("price bound must be positive")
)

// Pools cap ticks at +/-443636, the largest magnitude where 1.0001^tick
// still fits the fixed-point sqrt-price representation.
const (
	minTick = -443636
	maxTick = 443636
)

// Composer builds position steps for a single pool.
type Composer struct {
	gateway marketdata.Gateway
	log     zerolog.Logger
}

// NewComposer creates a composer over the given market data gateway.
func NewComposer(gateway marketdata.Gateway) *Composer {
	return &Composer{
		gateway: gateway,
		log:     logger.GetForComponent("composer"),
	}
}

// PriceToTick maps a decimal price of coin A in coin B onto the pool's tick
// grid, snapping toward the nearest initializable tick.
func PriceToTick(price sdkmath.LegacyDec, pool *types.Pool) (int, error) {
	if !price.IsPositive() {
		return 0, ErrInvalidPrice
	}

	// price = 1.0001^tick * 10^(decimalsA - decimalsB)
	p, err := price.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidPrice, err)
	}
	adjusted := p * math.Pow(10, float64(pool.DecimalsB-pool.DecimalsA))
	raw := math.Log(adjusted) / math.Log(1.0001)

	tick := int(math.Round(raw/float64(pool.TickSpacing))) * pool.TickSpacing
	if tick < minTick || tick > maxTick {
		return 0, fmt.Errorf("%w: tick %d", ErrRangeOutOfBounds, tick)
	}
	return tick, nil
}

// TickRange converts a pair of price bounds into an ordered, non-empty tick
// range on the pool's grid.
func TickRange(lowerPrice, upperPrice sdkmath.LegacyDec, pool *types.Pool) (int, int, error) {
	lower, err := PriceToTick(lowerPrice, pool)
	if err != nil {
		return 0, 0, err
	}
	upper, err := PriceToTick(upperPrice, pool)
	if err != nil {
		return 0, 0, err
	}
	if lower > upper {
		lower, upper = upper, lower
	}
	if lower == upper {
		return 0, 0, fmt.Errorf("%w: both bounds snap to tick %d", ErrEmptyRange, lower)
	}
	return lower, upper, nil
}

// QuoteRange estimates the dual-asset composition of a tick range, fixing
// one side's amount.
func (c *Composer) QuoteRange(ctx context.Context, pool *types.Pool, tickLower, tickUpper int, amount sdkmath.Int, fixA bool) (*marketdata.CompositionQuote, error) {
	return c.gateway.QuoteComposition(ctx, marketdata.CompositionRequest{
		PoolID:    pool.ID,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    amount,
		FixA:      fixA,
	})
}

// AppendOpen appends an open-position step consuming the two input coins
// and returns the handle to the minted position object.
func (c *Composer) AppendOpen(b *txn.Bundle, pool *types.Pool, tickLower, tickUpper int, coinA, coinB txn.CoinRef, amountA, amountB sdkmath.Int) txn.CoinRef {
	c.log.Debug().
		Str("poolID", pool.ID).
		Int("tickLower", tickLower).
		Int("tickUpper", tickUpper).
		Str("amountA", amountA.String()).
		Str("amountB", amountB.String()).
		Msg("Appending open position")
	return b.Append(txn.Step{
		Kind:      txn.StepOpenPosition,
		PoolID:    pool.ID,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Input:     &coinA,
		InputB:    &coinB,
		AmountA:   amountA,
		AmountB:   amountB,
	})
}

// AppendClose appends a close-position step. The position's principal,
// accrued fees and any pending rewards are all released to the sender by
// the chain as part of the same step.
func (c *Composer) AppendClose(b *txn.Bundle, pos *types.LiquidityPosition) {
	c.log.Debug().
		Str("positionID", pos.ID).
		Str("poolID", pos.PoolID).
		Msg("Appending close position")
	b.Append(txn.Step{
		Kind:       txn.StepClosePosition,
		PoolID:     pos.PoolID,
		PositionID: pos.ID,
	})
}
