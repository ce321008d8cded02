package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/Jarekkkkk/sui-bot/internal/composer"
	"github.com/Jarekkkkk/sui-bot/internal/config"
	"github.com/Jarekkkkk/sui-bot/internal/ledger"
	"github.com/Jarekkkkk/sui-bot/internal/logger"
	"github.com/Jarekkkkk/sui-bot/internal/marketdata"
	"github.com/Jarekkkkk/sui-bot/internal/rebalancer"
	"github.com/Jarekkkkk/sui-bot/internal/router"
	"github.com/Jarekkkkk/sui-bot/internal/rpcclient"
	"github.com/Jarekkkkk/sui-bot/internal/state"
	"github.com/Jarekkkkk/sui-bot/internal/utils"
	"github.com/Jarekkkkk/sui-bot/internal/wallet"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// main is the entry point for the hedged-liquidity bot.
func main() {
	root := &cobra.Command{
		Use:           "suibot",
		Short:         "Delta-neutral hedged liquidity bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), openPositionCmd(), closePositionCmd(), swapCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

// bootstrap loads configuration, initializes logging, and wires every
// client the rebalancer depends on. withDB also opens the snapshot store.
func bootstrap(withDB bool) (*rebalancer.Rebalancer, func(), error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		return nil, nil, err
	}
	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Hedged liquidity bot starting...")

	registry, err := config.LoadAssetRegistry()
	if err != nil {
		return nil, nil, err
	}

	signer, err := wallet.NewSignerFromEnv()
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("address", signer.Address()).Msg("Wallet loaded")

	rpc, err := rpcclient.New(config.RPCURL, signer)
	if err != nil {
		return nil, nil, err
	}

	gateway, err := marketdata.NewLiveGateway(config.LendingAPIURL, config.PoolInfoURL, rpc)
	if err != nil {
		return nil, nil, err
	}
	prices, err := marketdata.NewPythService(config.PriceServiceURL)
	if err != nil {
		return nil, nil, err
	}
	swapRouter, err := router.NewAggregatorRouter(config.RouterAPIURL)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var store rebalancer.SnapshotStore
	if withDB {
		dbCfg := state.DBConfig{
			Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
			User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
			DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
		}
		if err := state.InitDB(dbCfg); err != nil {
			return nil, nil, err
		}
		if err := state.EnsureSchema(); err != nil {
			state.CloseDB()
			return nil, nil, err
		}
		cleanup = state.CloseDB
		store = state.PgStore{}
	}

	liveMode := config.Mode == "live"
	if liveMode {
		log.Warn().Msg("Running in LIVE mode. Real transactions will be broadcast.")
	} else {
		log.Info().Msg("BOT_MODE is not 'live': bundles will be dry-run only, never submitted.")
	}

	reb, err := rebalancer.New(rebalancer.Config{
		Gateway:           gateway,
		Prices:            prices,
		Router:            swapRouter,
		Composer:          composer.NewComposer(gateway),
		Ledger:            ledger.NewAdapter(config.LendingMarketID, config.LendingMarketType),
		Executor:          rpc,
		Registry:          registry,
		Store:             store,
		Owner:             signer.Address(),
		PoolID:            config.PoolID,
		PositionID:        config.PositionID,
		LendingMarketID:   config.LendingMarketID,
		DriftTolerance:    config.DriftTolerance,
		MaxSlippage:       config.MaxSlippage,
		ReferenceNotional: config.ReferenceNotional,
		LiveMode:          liveMode,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return reb, cleanup, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the continuous rebalance loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			reb, cleanup, err := bootstrap(true)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			interval := time.Duration(config.PollingIntervalSeconds) * time.Second
			refetch := time.Duration(config.RefetchIntervalSeconds) * time.Second
			reb.RunLoop(ctx, interval, refetch)
			return nil
		},
	}
}

func openPositionCmd() *cobra.Command {
	var lowerPrice, upperPrice, deposit, hedgePct string

	cmd := &cobra.Command{
		Use:   "open-position",
		Short: "Open a hedged liquidity position",
		RunE: func(cmd *cobra.Command, args []string) error {
			reb, cleanup, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer cleanup()

			params := rebalancer.OpenParams{}
			if params.LowerPrice, err = utils.DecFromString(lowerPrice); err != nil {
				return err
			}
			if params.UpperPrice, err = utils.DecFromString(upperPrice); err != nil {
				return err
			}
			if params.DepositAmount, err = utils.DecFromString(deposit); err != nil {
				return err
			}
			if params.HedgePercentage, err = utils.DecFromString(hedgePct); err != nil {
				return err
			}
			return reb.OpenHedgedPosition(cmd.Context(), params)
		},
	}
	cmd.Flags().StringVar(&lowerPrice, "lower-price", "", "lower price bound (stable per hedged unit)")
	cmd.Flags().StringVar(&upperPrice, "upper-price", "", "upper price bound")
	cmd.Flags().StringVar(&deposit, "deposit", "", "stable deposit in token units")
	cmd.Flags().StringVar(&hedgePct, "hedge-percentage", "0.5", "fraction of hedged exposure collateralized, in (0,1]")
	cmd.MarkFlagRequired("lower-price")
	cmd.MarkFlagRequired("upper-price")
	cmd.MarkFlagRequired("deposit")
	return cmd
}

func closePositionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close-position",
		Short: "Close the tracked liquidity position, collecting fees and rewards",
		RunE: func(cmd *cobra.Command, args []string) error {
			reb, cleanup, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer cleanup()
			return reb.ClosePosition(cmd.Context())
		},
	}
}

func swapCmd() *cobra.Command {
	var fromSymbol, toSymbol, amount string

	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute a standalone exact-in swap",
		RunE: func(cmd *cobra.Command, args []string) error {
			reb, cleanup, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer cleanup()

			registry := reb.Registry()
			from, err := registry.BySymbol(fromSymbol)
			if err != nil {
				return err
			}
			to, err := registry.BySymbol(toSymbol)
			if err != nil {
				return err
			}
			amountDec, err := utils.DecFromString(amount)
			if err != nil {
				return err
			}
			amountBase, err := utils.DecToBase(amountDec, from.Decimals)
			if err != nil {
				return err
			}
			if !amountBase.GT(sdkmath.ZeroInt()) {
				return fmt.Errorf("swap amount must be positive, got %s %s", amount, from.Symbol)
			}
			return reb.Swap(cmd.Context(), from.CoinType, to.CoinType, amountBase)
		},
	}
	cmd.Flags().StringVar(&fromSymbol, "from", "", "input asset symbol")
	cmd.Flags().StringVar(&toSymbol, "to", "", "output asset symbol")
	cmd.Flags().StringVar(&amount, "amount", "", "input amount in token units")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print a one-shot hedge status snapshot with recent cycle history",
		RunE: func(cmd *cobra.Command, args []string) error {
			reb, cleanup, err := bootstrap(true)
			if err != nil {
				return err
			}
			defer cleanup()
			return reb.Status(cmd.Context())
		},
	}
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
