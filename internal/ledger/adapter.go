/*

Lending-market instruction adapter. Translates deposit, withdraw, borrow,
repay and price-refresh intents into bundle steps bound to one lending
market. The adapter never talks to the network itself; the bundle's
executor does that at validation time.

*/

package ledger

import (
	"encoding/base64"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/Jarekkkkk/sui-bot/internal/txn"
	"github.com/Jarekkkkk/sui-bot/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrNotInitialized  = errors.New("ledger adapter not initialized with reserves")
	ErrUnknownReserve  = errors.New("coin type has no reserve in this market")
	ErrMissingPriceRef = errors.New("reserve has no price identifier")
)

// Adapter builds lending-market steps for a single market. It must be
// initialized with the market's reserve listing before any operation.
type Adapter struct {
	marketID   string
	marketType string
	reserves   map[string]types.Reserve // coin type -> reserve
}

// NewAdapter creates an uninitialized adapter bound to a lending market.
func NewAdapter(marketID, marketType string) *Adapter {
	return &Adapter{marketID: marketID, marketType: marketType}
}

// Init installs the market's reserve listing. Called again on refetch.
func (a *Adapter) Init(reserves []types.Reserve) {
	m := make(map[string]types.Reserve, len(reserves))
	for _, r := range reserves {
		m[r.CoinType] = r
	}
	a.reserves = m
}

// Reserve looks up the reserve backing a coin type.
func (a *Adapter) Reserve(coinType string) (types.Reserve, error) {
	if a.reserves == nil {
		return types.Reserve{}, ErrNotInitialized
	}
	r, ok := a.reserves[coinType]
	if !ok {
		return types.Reserve{}, fmt.Errorf("%w: %s", ErrUnknownReserve, coinType)
	}
	return r, nil
}

// RefreshPrice appends a price-refresh step for the reserve backing the
// given coin type, carrying the oracle attestation blob.
func (a *Adapter) RefreshPrice(b *txn.Bundle, coinType string, updateData []byte) error {
	r, err := a.Reserve(coinType)
	if err != nil {
		return err
	}
	if r.PriceIdentifier == "" {
		return fmt.Errorf("%w: %s", ErrMissingPriceRef, coinType)
	}
	b.Append(txn.Step{
		Kind:              txn.StepRefreshPrice,
		CoinType:          coinType,
		MarketID:          a.marketID,
		MarketType:        a.marketType,
		ReserveArrayIndex: r.ArrayIndex,
		PriceIdentifier:   r.PriceIdentifier,
		PriceUpdateData:   base64.StdEncoding.EncodeToString(updateData),
	})
	return nil
}

// Deposit appends a deposit of the referenced coin into the obligation.
func (a *Adapter) Deposit(b *txn.Bundle, coinType string, obligationCapID string, input txn.CoinRef) error {
	r, err := a.Reserve(coinType)
	if err != nil {
		return err
	}
	b.Append(txn.Step{
		Kind:              txn.StepDeposit,
		CoinType:          coinType,
		MarketID:          a.marketID,
		MarketType:        a.marketType,
		ReserveArrayIndex: r.ArrayIndex,
		ObligationCapID:   obligationCapID,
		Input:             &input,
	})
	return nil
}

// Withdraw appends a collateral withdrawal and returns the handle to the
// withdrawn coin.
func (a *Adapter) Withdraw(b *txn.Bundle, coinType string, obligationCapID string, amount sdkmath.Int) (txn.CoinRef, error) {
	r, err := a.Reserve(coinType)
	if err != nil {
		return txn.CoinRef{}, err
	}
	ref := b.Append(txn.Step{
		Kind:              txn.StepWithdraw,
		CoinType:          coinType,
		MarketID:          a.marketID,
		MarketType:        a.marketType,
		ReserveArrayIndex: r.ArrayIndex,
		ObligationCapID:   obligationCapID,
		Amount:            amount,
	})
	return ref, nil
}

// Borrow appends a borrow against the obligation and returns the handle to
// the borrowed coin.
func (a *Adapter) Borrow(b *txn.Bundle, coinType string, obligationCapID string, amount sdkmath.Int) (txn.CoinRef, error) {
	r, err := a.Reserve(coinType)
	if err != nil {
		return txn.CoinRef{}, err
	}
	ref := b.Append(txn.Step{
		Kind:              txn.StepBorrow,
		CoinType:          coinType,
		MarketID:          a.marketID,
		MarketType:        a.marketType,
		ReserveArrayIndex: r.ArrayIndex,
		ObligationCapID:   obligationCapID,
		Amount:            amount,
	})
	return ref, nil
}

// Repay appends a repayment of the obligation's loan from the referenced
// coin. The market keeps at most the outstanding debt and the step's coin
// retains any excess.
func (a *Adapter) Repay(b *txn.Bundle, coinType string, obligationID string, input txn.CoinRef) (txn.CoinRef, error) {
	r, err := a.Reserve(coinType)
	if err != nil {
		return txn.CoinRef{}, err
	}
	ref := b.Append(txn.Step{
		Kind:              txn.StepRepay,
		CoinType:          coinType,
		MarketID:          a.marketID,
		MarketType:        a.marketType,
		ReserveArrayIndex: r.ArrayIndex,
		ObligationID:      obligationID,
		Input:             &input,
	})
	return ref, nil
}

// PriceIdentifiers returns the distinct oracle identifiers backing the
// given coin types, in input order.
func (a *Adapter) PriceIdentifiers(coinTypes ...string) ([]string, error) {
	if a.reserves == nil {
		return nil, ErrNotInitialized
	}
	seen := make(map[string]struct{}, len(coinTypes))
	out := make([]string, 0, len(coinTypes))
	for _, ct := range coinTypes {
		r, ok := a.reserves[ct]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReserve, ct)
		}
		if r.PriceIdentifier == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingPriceRef, ct)
		}
		if _, dup := seen[r.PriceIdentifier]; dup {
			continue
		}
		seen[r.PriceIdentifier] = struct{}{}
		out = append(out, r.PriceIdentifier)
	}
	return out, nil
}
