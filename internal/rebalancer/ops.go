/*

Operator-invoked one-shot operations: open a hedged position, close a
position, execute a standalone swap, print a status snapshot. Each builds
and validates a single bundle exactly like a rebalance cycle does.

*/

package rebalancer

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/Jarekkkkk/sui-bot/internal/composer"
	"github.com/Jarekkkkk/sui-bot/internal/router"
	"github.com/Jarekkkkk/sui-bot/internal/txn"
	"github.com/Jarekkkkk/sui-bot/internal/utils"
	"github.com/rs/zerolog"
)

// OpenParams describes a target hedged position.
type OpenParams struct {
	LowerPrice      sdkmath.LegacyDec
	UpperPrice      sdkmath.LegacyDec
	DepositAmount   sdkmath.LegacyDec // stable token units supplied by the operator
	HedgePercentage sdkmath.LegacyDec // fraction of hedged USD exposure collateralized
}

func (p OpenParams) validate() error {
	if p.LowerPrice.IsNil() || p.UpperPrice.IsNil() || !p.LowerPrice.IsPositive() || !p.UpperPrice.IsPositive() {
		return fmt.Errorf("%w: price bounds must be positive", ErrSetupIncomplete)
	}
	if p.DepositAmount.IsNil() || !p.DepositAmount.IsPositive() {
		return fmt.Errorf("%w: deposit amount must be positive", ErrSetupIncomplete)
	}
	if p.HedgePercentage.IsNil() || !p.HedgePercentage.IsPositive() || p.HedgePercentage.GT(sdkmath.LegacyOneDec()) {
		return fmt.Errorf("%w: hedge percentage must be in (0, 1]", ErrSetupIncomplete)
	}
	return nil
}

// OpenHedgedPosition opens a concentrated-liquidity position hedged by a
// borrow, splitting the operator's stable deposit between lending
// collateral and LP capital:
//
//  1. quote the range's dual-asset composition at a fixed reference notional
//  2. requiredDepositUsd = hedgedAssetUsd / hedgePercentage
//  3. split the deposit in proportion requiredDepositUsd /
//     (requiredDepositUsd + referenceNotional)
//  4. re-quote with the capital share only to size the exact loan
//  5. open the position from the capital share plus the borrowed amount
func (r *Rebalancer) OpenHedgedPosition(ctx context.Context, params OpenParams) error {
	if err := params.validate(); err != nil {
		return err
	}
	log := r.logger.With().Str("op", "open_position").Logger()

	snap, err := r.loadSnapshot(ctx, log, true)
	if err != nil {
		return err
	}

	pool := snap.Pool
	stableIsA := r.registry.IsStable(pool.CoinTypeA)
	stableIsB := r.registry.IsStable(pool.CoinTypeB)
	switch {
	case stableIsA && stableIsB:
		return fmt.Errorf("%w: %s/%s", ErrAmbiguousHedge, pool.CoinTypeA, pool.CoinTypeB)
	case !stableIsA && !stableIsB:
		return fmt.Errorf("%w: pool %s has no stable side", ErrUnsupportedPosition, pool.ID)
	}
	stableType, hedgedType := pool.CoinTypeA, pool.CoinTypeB
	if stableIsB {
		stableType, hedgedType = pool.CoinTypeB, pool.CoinTypeA
	}

	stableDecimals, err := r.registry.Decimals(stableType)
	if err != nil {
		return err
	}
	hedgedDecimals, err := r.registry.Decimals(hedgedType)
	if err != nil {
		return err
	}

	tickLower, tickUpper, err := composer.TickRange(params.LowerPrice, params.UpperPrice, pool)
	if err != nil {
		return err
	}

	// Step 1: reference composition of the range.
	refBase, err := utils.DecToBase(r.referenceNotional, stableDecimals)
	if err != nil {
		return err
	}
	refQuote, err := r.composer.QuoteRange(ctx, pool, tickLower, tickUpper, refBase, stableIsA)
	if err != nil {
		return err
	}
	if refQuote.AmountA.IsZero() || refQuote.AmountB.IsZero() {
		return fmt.Errorf("%w: range [%s, %s] excludes the current pool price %s",
			composer.ErrRangeOutOfBounds, params.LowerPrice, params.UpperPrice, pool.CurrentPrice)
	}

	hedgedQuoted := refQuote.AmountB
	if stableIsB {
		hedgedQuoted = refQuote.AmountA
	}
	hedgedReserve, err := r.ledger.Reserve(hedgedType)
	if err != nil {
		return err
	}
	hedgedDec, err := utils.BaseToDec(hedgedQuoted, hedgedDecimals)
	if err != nil {
		return err
	}
	hedgedAssetUsd := hedgedDec.Mul(hedgedReserve.Price)

	// Steps 2 and 3: split the deposit between collateral and LP capital.
	requiredDepositUsd := hedgedAssetUsd.Quo(params.HedgePercentage)
	collateralShare := requiredDepositUsd.Quo(requiredDepositUsd.Add(r.referenceNotional))
	collateralAmount := params.DepositAmount.Mul(collateralShare)
	capitalAmount := params.DepositAmount.Sub(collateralAmount)

	log.Info().
		Str("hedgedAssetUsd", hedgedAssetUsd.String()).
		Str("requiredDepositUsd", requiredDepositUsd.String()).
		Str("collateralAmount", collateralAmount.String()).
		Str("capitalAmount", capitalAmount.String()).
		Msg("Deposit split computed")

	collateralBase, err := utils.DecToBase(collateralAmount, stableDecimals)
	if err != nil {
		return err
	}
	capitalBase, err := utils.DecToBase(capitalAmount, stableDecimals)
	if err != nil {
		return err
	}

	// Step 4: exact loan sizing from the capital share.
	finalQuote, err := r.composer.QuoteRange(ctx, pool, tickLower, tickUpper, capitalBase, stableIsA)
	if err != nil {
		return err
	}
	if finalQuote.AmountA.IsZero() || finalQuote.AmountB.IsZero() {
		return fmt.Errorf("%w: range [%s, %s] excludes the current pool price %s",
			composer.ErrRangeOutOfBounds, params.LowerPrice, params.UpperPrice, pool.CurrentPrice)
	}
	loanBase := finalQuote.AmountB
	if stableIsB {
		loanBase = finalQuote.AmountA
	}

	// Step 5: one atomic bundle, deposit collateral, borrow, open.
	b := txn.NewBundle(r.owner, r.executor)
	if err := r.appendPriceRefresh(ctx, b, hedgedType, stableType); err != nil {
		return err
	}

	collateralRef := b.Append(txn.Step{Kind: txn.StepSplitInput, CoinType: stableType, Amount: collateralBase})
	if err := r.ledger.Deposit(b, stableType, snap.ObligationCap.CapID, collateralRef); err != nil {
		return err
	}

	capitalRef := b.Append(txn.Step{Kind: txn.StepSplitInput, CoinType: stableType, Amount: capitalBase})
	borrowRef, err := r.ledger.Borrow(b, hedgedType, snap.ObligationCap.CapID, loanBase)
	if err != nil {
		return err
	}

	coinARef, coinBRef := capitalRef, borrowRef
	if stableIsB {
		coinARef, coinBRef = borrowRef, capitalRef
	}
	r.composer.AppendOpen(b, pool, tickLower, tickUpper, coinARef, coinBRef, finalQuote.AmountA, finalQuote.AmountB)

	_, _, err = r.finishBundle(ctx, log, b)
	return err
}

// ClosePosition closes the tracked liquidity position, collecting fees and
// rewards, in one validated bundle.
func (r *Rebalancer) ClosePosition(ctx context.Context) error {
	log := r.logger.With().Str("op", "close_position").Logger()

	position, err := r.gateway.FetchPosition(ctx, r.positionID)
	if err != nil {
		return err
	}

	b := txn.NewBundle(r.owner, r.executor)
	r.composer.AppendClose(b, position)

	_, _, err = r.finishBundle(ctx, log, b)
	return err
}

// Swap executes a standalone exact-in swap, transferring the output back to
// the controlled address.
func (r *Rebalancer) Swap(ctx context.Context, fromCoinType, toCoinType string, amount sdkmath.Int) error {
	log := r.logger.With().Str("op", "swap").Logger()

	quote, err := r.router.Quote(ctx, router.QuoteRequest{
		FromCoinType: fromCoinType,
		ToCoinType:   toCoinType,
		FromAmount:   &amount,
	})
	if err != nil {
		return err
	}
	log.Info().
		Str("amountIn", quote.AmountIn.String()).
		Str("amountOut", quote.AmountOut.String()).
		Msg("Standalone swap quoted")

	b := txn.NewBundle(r.owner, r.executor)
	inputRef := b.Append(txn.Step{Kind: txn.StepSplitInput, CoinType: fromCoinType, Amount: amount})
	outRef := r.router.AppendSwap(b, quote, inputRef, r.maxSlippage.String())
	b.Append(txn.Step{Kind: txn.StepTransferToSender, CoinType: toCoinType, Input: &outRef})

	_, _, err = r.finishBundle(ctx, log, b)
	return err
}

// Status loads a snapshot and reports classification and drift without
// building any bundle.
func (r *Rebalancer) Status(ctx context.Context) error {
	log := r.logger.With().Str("op", "status").Logger()

	snap, err := r.loadSnapshot(ctx, log, true)
	if err != nil {
		return err
	}
	view, err := r.classifyPosition(snap.Position)
	if err != nil {
		return err
	}
	drift, loanAmount, positionAmount, err := r.computeDrift(view, snap.Obligation)
	if err != nil {
		return err
	}

	hedgedSymbol := view.HedgedSymbol
	if meta, ok := r.coinMetadata[view.HedgedAsset]; ok && meta.Symbol != "" {
		hedgedSymbol = meta.Symbol
	}

	log.Info().
		Str("obligationID", snap.Obligation.ID).
		Str("netValueUsd", snap.Obligation.NetValueUsd.String()).
		Bool("healthy", snap.Obligation.IsHealthy()).
		Str("hedged", hedgedSymbol).
		Str("stable", view.StableSymbol).
		Bool("inRange", snap.Position.InRange()).
		Int("trackedCoins", len(r.coinMetadata)).
		Str("loanAmount", loanAmount.String()).
		Str("positionAmount", positionAmount.String()).
		Str("drift", drift.String()).
		Msg("Current hedge status")

	r.reportCycleHistory(log)
	return nil
}

// reportCycleHistory prints the persisted cycle trail when a snapshot store
// is wired. Store problems degrade to a warning; status itself still ran.
func (r *Rebalancer) reportCycleHistory(log zerolog.Logger) {
	if r.store == nil {
		return
	}
	if err := r.store.Ping(); err != nil {
		log.Warn().Err(err).Msg("Snapshot store unreachable, skipping cycle history")
		return
	}

	current, err := r.store.CurrentCycleNumber()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read the cycle counter")
		return
	}
	recent, err := r.store.RecentCycleSnapshots(5)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load recent cycle snapshots")
		return
	}

	log.Info().Int("cycleNumber", current).Int("rows", len(recent)).Msg("Snapshot store healthy")
	for _, s := range recent {
		log.Info().
			Int("cycle", s.CycleNumber).
			Time("at", s.Timestamp).
			Str("action", string(s.Action)).
			Str("drift", s.Drift).
			Bool("submitted", s.Submitted).
			Str("txDigest", s.TxDigest).
			Str("error", s.Error).
			Msg("Recent cycle")
	}
}
