package config

import (
	"errors"
	"os"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// LendingMarketID is the object id of the lending market this bot manages
	// an obligation against.
	LendingMarketID string
	// LendingMarketType is the market's on-chain type tag.
	LendingMarketType string

	// PoolID is the concentrated-liquidity pool holding the hedged position.
	PoolID string
	// PositionID is the LP position object the bot tracks.
	PositionID string

	// PollingIntervalSeconds is how often a rebalance cycle runs.
	PollingIntervalSeconds uint64
	// RefetchIntervalSeconds is how often the full reserve set is re-fetched
	// even when cycles are otherwise idle.
	RefetchIntervalSeconds uint64

	// DriftTolerance is the token-unit band within which drift is treated as
	// zero and no correction is issued.
	DriftTolerance sdkmath.LegacyDec
	// MaxSlippage is the slippage bound handed to the swap router (ratio,
	// e.g. 0.01 for 1%).
	MaxSlippage sdkmath.LegacyDec
	// ReferenceNotional is the stable-unit notional used for the first
	// composition quote when opening a hedged position.
	ReferenceNotional sdkmath.LegacyDec

	// Mode gates real submission. Anything other than "live" runs
	// validate-only cycles.
	Mode string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Identifiers and endpoints are required; numeric tuning knobs have defaults.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	LendingMarketID, err = getEnv("LENDING_MARKET_ID")
	if err != nil {
		return err
	}

	LendingMarketType, err = getEnv("LENDING_MARKET_TYPE")
	if err != nil {
		return err
	}

	PoolID, err = getEnv("POOL_ID")
	if err != nil {
		return err
	}

	PositionID, err = getEnv("LP_POSITION_ID")
	if err != nil {
		return err
	}

	PollingIntervalSeconds = getEnvAsUint64Default("POLLING_INTERVAL_SECONDS", 15)
	RefetchIntervalSeconds = getEnvAsUint64Default("REFETCH_INTERVAL_SECONDS", 1800)

	DriftTolerance, err = getEnvAsDecDefault("DRIFT_TOLERANCE", "0.0001")
	if err != nil {
		return err
	}

	MaxSlippage, err = getEnvAsDecDefault("MAX_SLIPPAGE", "0.01")
	if err != nil {
		return err
	}

	ReferenceNotional, err = getEnvAsDecDefault("REFERENCE_NOTIONAL", "100")
	if err != nil {
		return err
	}

	Mode = os.Getenv("BOT_MODE")

	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("LendingMarketID", LendingMarketID).
		Str("PoolID", PoolID).
		Str("PositionID", PositionID).
		Uint64("PollingIntervalSeconds", PollingIntervalSeconds).
		Str("Mode", Mode).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64Default retrieves an environment variable as a uint64,
// falling back to the default when unset or invalid.
func getEnvAsUint64Default(key string, defaultValue uint64) uint64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Invalid uint64 env value, using default")
		return defaultValue
	}
	return value
}

// getEnvAsDecDefault retrieves an environment variable as a LegacyDec,
// falling back to the default when unset. Invalid values are an error:
// silently mis-parsing a financial tuning knob is worse than failing.
func getEnvAsDecDefault(key, defaultValue string) (sdkmath.LegacyDec, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		valueStr = defaultValue
	}
	value, err := sdkmath.LegacyNewDecFromStr(valueStr)
	if err != nil {
		return sdkmath.LegacyDec{}, errors.New("environment variable " + key + " must be a valid decimal, got: " + valueStr)
	}
	return value, nil
}
