/*

Swap routing. Quotes multi-hop routes through an external aggregator and
appends the resulting swap as a single bundle step carrying the opaque
route payload. Exactly one side of a quote request is fixed: the input
amount (exact-in) or the output amount (exact-out).

*/

package router

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/Jarekkkkk/sui-bot/internal/txn"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidQuoteRequest = errors.New("exactly one of fromAmount and toAmount must be set")
	ErrNoRouteFound        = errors.New("no swap route found")
)

// QuoteRequest asks for a route between two coin types. Exactly one of
// FromAmount and ToAmount must be non-nil.
type QuoteRequest struct {
	FromCoinType string
	ToCoinType   string
	FromAmount   *sdkmath.Int // exact-in: fixed input, estimated output
	ToAmount     *sdkmath.Int // exact-out: fixed output, estimated input
}

// Validate rejects malformed requests before any network work happens.
func (q *QuoteRequest) Validate() error {
	if (q.FromAmount == nil) == (q.ToAmount == nil) {
		return ErrInvalidQuoteRequest
	}
	if q.FromCoinType == "" || q.ToCoinType == "" {
		return fmt.Errorf("%w: coin types must be set", ErrInvalidQuoteRequest)
	}
	fixed := q.FromAmount
	if fixed == nil {
		fixed = q.ToAmount
	}
	if !fixed.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidQuoteRequest)
	}
	return nil
}

// ByAmountIn reports whether the request fixes the input side.
func (q *QuoteRequest) ByAmountIn() bool {
	return q.FromAmount != nil
}

// Quote is a priced route. RoutePayload is opaque aggregator data replayed
// verbatim in the swap step.
type Quote struct {
	FromCoinType string
	ToCoinType   string
	AmountIn     sdkmath.Int
	AmountOut    sdkmath.Int
	ByAmountIn   bool
	RoutePayload []byte
}

// SwapRouter quotes and appends swaps.
type SwapRouter interface {
	// Quote finds the best route for the request. Returns ErrNoRouteFound
	// when the aggregator has no path between the coin types.
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)

	// AppendSwap appends the quoted swap to the bundle, consuming the
	// referenced input coin, and returns the handle to the output coin.
	AppendSwap(b *txn.Bundle, q *Quote, input txn.CoinRef, maxSlippage string) txn.CoinRef
}
