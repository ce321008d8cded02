package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// RPCURL is the fullnode JSON-RPC endpoint.
	RPCURL string
	// LendingAPIURL is the lending-market data endpoint (reserves, obligations).
	LendingAPIURL string
	// PriceServiceURL is the oracle price-feed endpoint (Hermes-compatible).
	PriceServiceURL string
	// RouterAPIURL is the swap-route aggregator endpoint.
	RouterAPIURL string
	// PoolInfoURL is the pool metadata/composition-quote endpoint.
	PoolInfoURL string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	RPCURL, err = getEnv("RPC_URL")
	if err != nil {
		return err
	}

	LendingAPIURL, err = getEnv("LENDING_API_URL")
	if err != nil {
		return err
	}

	PriceServiceURL, err = getEnv("PRICE_SERVICE_URL")
	if err != nil {
		return err
	}

	RouterAPIURL, err = getEnv("ROUTER_API_URL")
	if err != nil {
		return err
	}

	PoolInfoURL, err = getEnv("POOL_INFO_URL")
	if err != nil {
		return err
	}

	log.Debug().
		Str("RPCURL", RPCURL).
		Str("LendingAPIURL", LendingAPIURL).
		Str("PriceServiceURL", PriceServiceURL).
		Str("RouterAPIURL", RouterAPIURL).
		Str("PoolInfoURL", PoolInfoURL).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
