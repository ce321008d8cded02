package rebalancer

import (
	"context"
	"time"

	"github.com/Jarekkkkk/sui-bot/internal/txn"
	"github.com/Jarekkkkk/sui-bot/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RunLoop starts the rebalance loop with the given polling interval. One
// cycle runs to completion before the next begins; no overlapping cycles.
// refetchInterval bounds how stale the cached reserve listing may grow.
func (r *Rebalancer) RunLoop(ctx context.Context, interval, refetchInterval time.Duration) {
	r.logger.Info().
		Dur("interval", interval).
		Dur("refetchInterval", refetchInterval).
		Msg("Starting rebalance loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce := func() {
		r.RunCycle(ctx, time.Since(r.lastReserveFetch) >= refetchInterval)
	}

	runOnce()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Rebalance loop stopped due to context cancellation")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// RunCycle executes a single rebalance cycle: snapshot, classify, drift,
// health gate, corrective bundle, validate, submit. Every cycle persists a
// snapshot row, aborted or not.
func (r *Rebalancer) RunCycle(ctx context.Context, forceRefetch bool) {
	cycleStart := time.Now()
	cycleID := uuid.New().String()
	log := r.logger.With().Str("cycle_id", cycleID).Logger()

	log.Info().Msg("--- Starting rebalance cycle ---")

	record := types.CycleSnapshot{
		CycleNumber: r.nextCycleNumber(log),
		CycleID:     cycleID,
		Timestamp:   cycleStart,
		PositionID:  r.positionID,
		Action:      types.CycleActionAbort,
	}
	defer func() {
		record.DurationMs = time.Since(cycleStart).Milliseconds()
		r.saveSnapshot(log, record)
		log.Info().Int64("durationMs", record.DurationMs).Msg("--- Rebalance cycle finished ---")
	}()

	abort := func(stage string, err error) {
		record.Error = err.Error()
		log.Error().Err(err).Str("stage", stage).Msg("Cycle aborted")
	}

	snap, err := r.loadSnapshot(ctx, log, forceRefetch)
	if err != nil {
		abort("snapshot", err)
		return
	}
	record.ObligationID = snap.Obligation.ID
	record.NetValueUsd = snap.Obligation.NetValueUsd.String()
	record.WeightedBorrowUsd = snap.Obligation.MaxPriceWeightedBorrowsUsd.String()
	record.BorrowLimitUsd = snap.Obligation.MinPriceBorrowLimitUsd.String()

	view, err := r.classifyPosition(snap.Position)
	if err != nil {
		abort("classify", err)
		return
	}
	record.HedgedSymbol = view.HedgedSymbol
	record.StableSymbol = view.StableSymbol

	if !snap.Position.InRange() {
		log.Warn().
			Str("coinAAmount", snap.Position.CoinAAmount.String()).
			Str("coinBAmount", snap.Position.CoinBAmount.String()).
			Msg("Position has exited its range, refusing to rebalance; close it manually")
		abort("range", ErrPositionOutOfRange)
		return
	}

	drift, loanAmount, positionAmount, err := r.computeDrift(view, snap.Obligation)
	if err != nil {
		abort("drift", err)
		return
	}
	record.LoanAmount = loanAmount.String()
	record.PositionAmount = positionAmount.String()
	record.Drift = drift.String()

	log.Info().
		Str("hedged", view.HedgedSymbol).
		Str("loanAmount", loanAmount.String()).
		Str("positionAmount", positionAmount.String()).
		Str("drift", drift.String()).
		Msg("Hedge drift computed")

	if drift.Abs().LTE(r.driftTolerance) {
		record.Action = types.CycleActionNone
		record.Error = ""
		log.Info().Str("tolerance", r.driftTolerance.String()).Msg("Drift within tolerance, nothing to do")
		return
	}

	if !snap.Obligation.IsHealthy() {
		log.Error().
			Str("maxPriceWeightedBorrowsUsd", snap.Obligation.MaxPriceWeightedBorrowsUsd.String()).
			Str("minPriceBorrowLimitUsd", snap.Obligation.MinPriceBorrowLimitUsd.String()).
			Msg("Obligation failed the conservative health check")
		abort("health", ErrUnhealthyObligation)
		return
	}

	var bundle *txn.Bundle
	if drift.IsPositive() {
		record.Action = types.CycleActionRepay
		bundle, err = r.buildRepayBundle(ctx, snap, view, drift)
	} else {
		record.Action = types.CycleActionBorrow
		bundle, err = r.buildBorrowBundle(ctx, snap, view, drift)
	}
	if err != nil {
		record.Action = types.CycleActionAbort
		abort("build", err)
		return
	}
	record.Steps = stepReceipts(bundle)

	digest, submitted, err := r.finishBundle(ctx, log, bundle)
	if err != nil {
		record.Action = types.CycleActionAbort
		abort("execute", err)
		return
	}
	record.TxDigest = digest
	record.Submitted = submitted
	record.Error = ""
}

// finishBundle validates the bundle and, in live mode, submits it. Returns
// the transaction digest when one was produced.
func (r *Rebalancer) finishBundle(ctx context.Context, log zerolog.Logger, b *txn.Bundle) (string, bool, error) {
	if err := b.Validate(ctx); err != nil {
		return "", false, err
	}
	log.Info().Int("steps", b.Len()).Msg("Bundle passed dry-run validation")

	if !r.liveMode {
		log.Info().Msg("Validate-only mode: bundle not submitted")
		return "", false, nil
	}

	res, err := b.Submit(ctx)
	if err != nil {
		return "", false, err
	}
	log.Info().Str("digest", res.Digest).Msg("Bundle submitted")
	return res.Digest, true, nil
}

func stepReceipts(b *txn.Bundle) []types.StepReceipt {
	steps := b.Steps()
	out := make([]types.StepReceipt, 0, len(steps))
	for _, s := range steps {
		receipt := types.StepReceipt{Kind: string(s.Kind), CoinType: s.CoinType}
		if !s.Amount.IsNil() {
			receipt.Amount = s.Amount.String()
		}
		out = append(out, receipt)
	}
	return out
}

func (r *Rebalancer) nextCycleNumber(log zerolog.Logger) int {
	if r.store == nil {
		return 0
	}
	n, err := r.store.NextCycleNumber()
	if err != nil {
		log.Error().Err(err).Msg("Failed to advance cycle counter")
		return 0
	}
	return n
}

func (r *Rebalancer) saveSnapshot(log zerolog.Logger, snapshot types.CycleSnapshot) {
	if r.store == nil {
		return
	}
	id, err := r.store.SaveCycleSnapshot(snapshot)
	if err != nil {
		log.Error().Err(err).Msg("Failed to save cycle snapshot")
		return
	}
	log.Debug().Int64("snapshot_id", id).Msg("Cycle snapshot saved")
}
