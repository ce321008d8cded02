/*

Hedge rebalancer core. Each cycle loads a point-in-time market snapshot,
classifies the liquidity position into its hedged and stable sides, computes
the drift between the outstanding loan and the position's hedged exposure,
and emits one atomically-validated instruction bundle correcting it.

*/

package rebalancer

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/Jarekkkkk/sui-bot/internal/composer"
	"github.com/Jarekkkkk/sui-bot/internal/ledger"
	"github.com/Jarekkkkk/sui-bot/internal/logger"
	"github.com/Jarekkkkk/sui-bot/internal/marketdata"
	"github.com/Jarekkkkk/sui-bot/internal/router"
	"github.com/Jarekkkkk/sui-bot/internal/txn"
	"github.com/Jarekkkkk/sui-bot/internal/types"
	"github.com/rs/zerolog"
)

// Error definitions for zero-tolerance error handling
var (
	ErrSetupIncomplete     = errors.New("rebalancer setup incomplete")
	ErrNoObligationFound   = errors.New("no obligation found for the controlled address")
	ErrUnsupportedPosition = errors.New("position pair is not a volatile/stable hedge")
	ErrAmbiguousHedge      = errors.New("stable LP position: no unambiguous hedged side")
	ErrNoExistingLoan      = errors.New("obligation carries no loan of the hedged asset")
	ErrUnhealthyObligation = errors.New("obligation is unhealthy, refusing to rebalance")
	ErrPositionOutOfRange  = errors.New("position has exited its price range")
)

// SnapshotStore persists cycle snapshots and serves their history.
// Implemented by the state package; tests substitute fakes.
type SnapshotStore interface {
	Ping() error
	NextCycleNumber() (int, error)
	CurrentCycleNumber() (int, error)
	SaveCycleSnapshot(snapshot types.CycleSnapshot) (int64, error)
	RecentCycleSnapshots(count int) ([]types.CycleSnapshot, error)
}

// Config holds the dependencies for creating a Rebalancer instance.
type Config struct {
	Gateway  marketdata.Gateway
	Prices   marketdata.PriceService
	Router   router.SwapRouter
	Composer *composer.Composer
	Ledger   *ledger.Adapter
	Executor txn.Executor
	Registry *types.AssetRegistry
	Store    SnapshotStore

	Owner           string // controlled address
	ObligationCapID string // optional: pin a specific capability
	PoolID          string
	PositionID      string
	LendingMarketID string

	DriftTolerance    sdkmath.LegacyDec
	MaxSlippage       sdkmath.LegacyDec
	ReferenceNotional sdkmath.LegacyDec

	// LiveMode gates real submission. When false every bundle is dry-run
	// only and the cycle is recorded as not submitted.
	LiveMode bool
}

// Rebalancer drives the hedge maintenance loop.
type Rebalancer struct {
	logger zerolog.Logger

	gateway  marketdata.Gateway
	prices   marketdata.PriceService
	router   router.SwapRouter
	composer *composer.Composer
	ledger   *ledger.Adapter
	executor txn.Executor
	registry *types.AssetRegistry
	store    SnapshotStore

	owner           string
	poolID          string
	positionID      string
	lendingMarketID string

	driftTolerance    sdkmath.LegacyDec
	maxSlippage       sdkmath.LegacyDec
	referenceNotional sdkmath.LegacyDec
	liveMode          bool

	// Caches refreshed per REFETCH_INTERVAL; see loop.go. lastReserveFetch
	// only advances when a refetch actually succeeded, so a failed refetch
	// is retried on the next cycle instead of after a full interval.
	cachedReserves   []types.Reserve
	coinMetadata     map[string]marketdata.CoinMetadata
	lastReserveFetch time.Time
}

// Registry exposes the configured asset registry for callers resolving
// symbols to coin types.
func (r *Rebalancer) Registry() *types.AssetRegistry {
	return r.registry
}

// New creates a Rebalancer with dependency injection.
func New(cfg Config) (*Rebalancer, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("rebalancer configuration validation failed: %w", err)
	}

	r := &Rebalancer{
		logger:            logger.GetForComponent("rebalancer"),
		gateway:           cfg.Gateway,
		prices:            cfg.Prices,
		router:            cfg.Router,
		composer:          cfg.Composer,
		ledger:            cfg.Ledger,
		executor:          cfg.Executor,
		registry:          cfg.Registry,
		store:             cfg.Store,
		owner:             cfg.Owner,
		poolID:            cfg.PoolID,
		positionID:        cfg.PositionID,
		lendingMarketID:   cfg.LendingMarketID,
		driftTolerance:    cfg.DriftTolerance,
		maxSlippage:       cfg.MaxSlippage,
		referenceNotional: cfg.ReferenceNotional,
		liveMode:          cfg.LiveMode,
	}

	r.logger.Info().
		Str("owner", r.owner).
		Str("poolID", r.poolID).
		Str("positionID", r.positionID).
		Bool("liveMode", r.liveMode).
		Msg("Rebalancer instance created")

	return r, nil
}

func validateConfig(cfg Config) error {
	if cfg.Gateway == nil {
		return fmt.Errorf("%w: market data gateway cannot be nil", ErrSetupIncomplete)
	}
	if cfg.Prices == nil {
		return fmt.Errorf("%w: price service cannot be nil", ErrSetupIncomplete)
	}
	if cfg.Router == nil {
		return fmt.Errorf("%w: swap router cannot be nil", ErrSetupIncomplete)
	}
	if cfg.Composer == nil {
		return fmt.Errorf("%w: position composer cannot be nil", ErrSetupIncomplete)
	}
	if cfg.Ledger == nil {
		return fmt.Errorf("%w: ledger adapter cannot be nil", ErrSetupIncomplete)
	}
	if cfg.Executor == nil {
		return fmt.Errorf("%w: bundle executor cannot be nil", ErrSetupIncomplete)
	}
	if cfg.Registry == nil {
		return fmt.Errorf("%w: asset registry cannot be nil", ErrSetupIncomplete)
	}
	if cfg.Owner == "" {
		return fmt.Errorf("%w: owner address cannot be empty", ErrSetupIncomplete)
	}
	if cfg.PoolID == "" || cfg.PositionID == "" {
		return fmt.Errorf("%w: pool and position ids must be set", ErrSetupIncomplete)
	}
	if cfg.LendingMarketID == "" {
		return fmt.Errorf("%w: lending market id must be set", ErrSetupIncomplete)
	}
	if cfg.DriftTolerance.IsNil() || cfg.DriftTolerance.IsNegative() {
		return fmt.Errorf("%w: drift tolerance must be a non-negative decimal", ErrSetupIncomplete)
	}
	if cfg.MaxSlippage.IsNil() || !cfg.MaxSlippage.IsPositive() {
		return fmt.Errorf("%w: max slippage must be positive", ErrSetupIncomplete)
	}
	if cfg.ReferenceNotional.IsNil() || !cfg.ReferenceNotional.IsPositive() {
		return fmt.Errorf("%w: reference notional must be positive", ErrSetupIncomplete)
	}
	return nil
}
