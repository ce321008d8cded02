package rebalancer

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/Jarekkkkk/sui-bot/internal/router"
	"github.com/Jarekkkkk/sui-bot/internal/txn"
	"github.com/Jarekkkkk/sui-bot/internal/types"
	"github.com/Jarekkkkk/sui-bot/internal/utils"
)

// appendPriceRefresh prepends refresh steps for the given coin types.
// Refresh must land before any borrow or withdraw in the same bundle; the
// on-chain program rejects stale-price obligation mutations.
func (r *Rebalancer) appendPriceRefresh(ctx context.Context, b *txn.Bundle, coinTypes ...string) error {
	identifiers, err := r.ledger.PriceIdentifiers(coinTypes...)
	if err != nil {
		return err
	}
	updates, err := r.prices.UpdateData(ctx, identifiers)
	if err != nil {
		return err
	}

	refreshed := make(map[string]struct{}, len(coinTypes))
	for _, ct := range coinTypes {
		reserve, err := r.ledger.Reserve(ct)
		if err != nil {
			return err
		}
		if _, done := refreshed[reserve.PriceIdentifier]; done {
			continue
		}
		refreshed[reserve.PriceIdentifier] = struct{}{}

		blob, ok := updates[reserve.PriceIdentifier]
		if !ok {
			return fmt.Errorf("%w: no price update for %s", ErrSetupIncomplete, reserve.PriceIdentifier)
		}
		if err := r.ledger.RefreshPrice(b, ct, blob); err != nil {
			return err
		}
	}
	return nil
}

// buildRepayBundle corrects an over-hedged state: withdraw stable
// collateral, swap it exact-out for precisely the drifted amount of the
// hedged asset, repay the loan, and return any leftovers to the sender.
func (r *Rebalancer) buildRepayBundle(ctx context.Context, snap *MarketSnapshot, view types.HedgeView, drift sdkmath.LegacyDec) (*txn.Bundle, error) {
	b := txn.NewBundle(r.owner, r.executor)

	if err := r.appendPriceRefresh(ctx, b, view.HedgedAsset, view.StableAsset); err != nil {
		return nil, err
	}

	hedgedDecimals, err := r.registry.Decimals(view.HedgedAsset)
	if err != nil {
		return nil, err
	}
	repayBase, err := utils.DecToBase(drift, hedgedDecimals)
	if err != nil {
		return nil, err
	}

	quote, err := r.router.Quote(ctx, router.QuoteRequest{
		FromCoinType: view.StableAsset,
		ToCoinType:   view.HedgedAsset,
		ToAmount:     &repayBase,
	})
	if err != nil {
		return nil, err
	}

	// Withdraw the quoted input padded by the slippage bound so the
	// exact-out swap cannot starve. The surplus returns to the sender.
	padded := sdkmath.LegacyNewDecFromInt(quote.AmountIn).
		Mul(sdkmath.LegacyOneDec().Add(r.maxSlippage)).
		Ceil().TruncateInt()

	withdrawRef, err := r.ledger.Withdraw(b, view.StableAsset, snap.ObligationCap.CapID, padded)
	if err != nil {
		return nil, err
	}

	hedgedRef := r.router.AppendSwap(b, quote, withdrawRef, r.maxSlippage.String())

	repayRef, err := r.ledger.Repay(b, view.HedgedAsset, snap.Obligation.ID, hedgedRef)
	if err != nil {
		return nil, err
	}

	// Leftovers: unspent stable from the exact-out swap and any hedged
	// excess past the outstanding debt.
	b.Append(txn.Step{Kind: txn.StepTransferToSender, CoinType: view.StableAsset, Input: &withdrawRef})
	b.Append(txn.Step{Kind: txn.StepTransferToSender, CoinType: view.HedgedAsset, Input: &repayRef})

	return b, nil
}

// buildBorrowBundle corrects an under-hedged state: borrow the missing
// hedged amount, swap it exact-in to stable, and deposit the proceeds back
// as collateral.
func (r *Rebalancer) buildBorrowBundle(ctx context.Context, snap *MarketSnapshot, view types.HedgeView, drift sdkmath.LegacyDec) (*txn.Bundle, error) {
	b := txn.NewBundle(r.owner, r.executor)

	if err := r.appendPriceRefresh(ctx, b, view.HedgedAsset, view.StableAsset); err != nil {
		return nil, err
	}

	hedgedDecimals, err := r.registry.Decimals(view.HedgedAsset)
	if err != nil {
		return nil, err
	}
	borrowBase, err := utils.DecToBase(drift.Abs(), hedgedDecimals)
	if err != nil {
		return nil, err
	}

	quote, err := r.router.Quote(ctx, router.QuoteRequest{
		FromCoinType: view.HedgedAsset,
		ToCoinType:   view.StableAsset,
		FromAmount:   &borrowBase,
	})
	if err != nil {
		return nil, err
	}

	borrowRef, err := r.ledger.Borrow(b, view.HedgedAsset, snap.ObligationCap.CapID, borrowBase)
	if err != nil {
		return nil, err
	}

	stableRef := r.router.AppendSwap(b, quote, borrowRef, r.maxSlippage.String())

	if err := r.ledger.Deposit(b, view.StableAsset, snap.ObligationCap.CapID, stableRef); err != nil {
		return nil, err
	}

	return b, nil
}
