/*

Live gateway implementation over the lending-market and pool HTTP APIs.
Wire formats belong to those services; this file only maps their JSON into
the internal snapshot types, with strict parsing of every financial figure.

*/

package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/Jarekkkkk/sui-bot/internal/logger"
	"github.com/Jarekkkkk/sui-bot/internal/types"
	"github.com/Jarekkkkk/sui-bot/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Error definitions for zero-tolerance error handling
var (
	ErrDataUnavailable = errors.New("market data unavailable")
	ErrInvalidBaseURL  = errors.New("gateway base URL is invalid")
)

const fetchTimeout = 10 * time.Second

// MetadataFetcher resolves a single coin's metadata. Satisfied by the RPC
// client; kept narrow so tests can fake it.
type MetadataFetcher interface {
	Call(ctx context.Context, method string, params []any, out any) error
}

// LiveGateway reads market state over HTTP.
type LiveGateway struct {
	lendingAPI string
	poolAPI    string
	http       *http.Client
	metadata   MetadataFetcher
	log        zerolog.Logger
}

// NewLiveGateway creates a gateway against the given API base URLs.
func NewLiveGateway(lendingAPI, poolAPI string, metadata MetadataFetcher) (*LiveGateway, error) {
	if lendingAPI == "" || poolAPI == "" {
		return nil, ErrInvalidBaseURL
	}
	return &LiveGateway{
		lendingAPI: lendingAPI,
		poolAPI:    poolAPI,
		http:       &http.Client{Timeout: fetchTimeout},
		metadata:   metadata,
		log:        logger.GetForComponent("market_data"),
	}, nil
}

// getJSON performs a bounded GET and decodes the JSON body into out.
func (g *LiveGateway) getJSON(ctx context.Context, rawURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned HTTP %d", ErrDataUnavailable, rawURL, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", ErrDataUnavailable, rawURL, err)
	}
	return nil
}

// reserveDTO mirrors the lending API's reserve document. All financial
// figures arrive as strings.
type reserveDTO struct {
	ID              string   `json:"id"`
	ArrayIndex      uint64   `json:"arrayIndex"`
	CoinType        string   `json:"coinType"`
	Symbol          string   `json:"symbol"`
	MintDecimals    int      `json:"mintDecimals"`
	PriceIdentifier string   `json:"priceIdentifier"`
	Price           string   `json:"price"`
	MinPrice        string   `json:"minPrice"`
	MaxPrice        string   `json:"maxPrice"`
	AvailableAmount string   `json:"availableAmount"`
	BorrowedAmount  string   `json:"borrowedAmount"`
	RewardCoinTypes []string `json:"rewardCoinTypes"`
	Config          struct {
		OpenLtvPct      int    `json:"openLtvPct"`
		CloseLtvPct     int    `json:"closeLtvPct"`
		BorrowFeeBps    int    `json:"borrowFeeBps"`
		BorrowWeightBps int    `json:"borrowWeightBps"`
		BorrowLimit     string `json:"borrowLimit"`
		Isolated        bool   `json:"isolated"`
	} `json:"config"`
}

func (dto *reserveDTO) parse() (types.Reserve, error) {
	var r types.Reserve
	var err error

	r.ID = dto.ID
	r.ArrayIndex = dto.ArrayIndex
	r.CoinType = dto.CoinType
	r.Symbol = dto.Symbol
	r.MintDecimals = dto.MintDecimals
	r.PriceIdentifier = dto.PriceIdentifier
	r.RewardCoinTypes = dto.RewardCoinTypes

	if r.Price, err = utils.DecFromString(dto.Price); err != nil {
		return r, err
	}
	if r.MinPrice, err = utils.DecFromString(dto.MinPrice); err != nil {
		return r, err
	}
	if r.MaxPrice, err = utils.DecFromString(dto.MaxPrice); err != nil {
		return r, err
	}
	if r.AvailableAmount, err = utils.IntFromString(dto.AvailableAmount); err != nil {
		return r, err
	}
	if r.BorrowedAmount, err = utils.DecFromString(dto.BorrowedAmount); err != nil {
		return r, err
	}
	if r.Config.BorrowLimit, err = utils.IntFromString(dto.Config.BorrowLimit); err != nil {
		return r, err
	}
	r.Config.OpenLtvPct = dto.Config.OpenLtvPct
	r.Config.CloseLtvPct = dto.Config.CloseLtvPct
	r.Config.BorrowFeeBps = dto.Config.BorrowFeeBps
	r.Config.BorrowWeightBps = dto.Config.BorrowWeightBps
	r.Config.Isolated = dto.Config.Isolated
	return r, nil
}

// FetchReserves returns the market's reserves, compounded and refreshed by
// the lending API as of the request.
func (g *LiveGateway) FetchReserves(ctx context.Context, marketID string) ([]types.Reserve, error) {
	u := fmt.Sprintf("%s/v1/markets/%s/reserves?compound=now&refreshPrices=true", g.lendingAPI, url.PathEscape(marketID))

	var dtos []reserveDTO
	if err := g.getJSON(ctx, u, &dtos); err != nil {
		return nil, err
	}
	if len(dtos) == 0 {
		return nil, fmt.Errorf("%w: market %s has no reserves", ErrDataUnavailable, marketID)
	}

	reserves := make([]types.Reserve, 0, len(dtos))
	for i := range dtos {
		r, err := dtos[i].parse()
		if err != nil {
			return nil, fmt.Errorf("%w: reserve %s: %w", ErrDataUnavailable, dtos[i].CoinType, err)
		}
		reserves = append(reserves, r)
	}

	g.log.Debug().Int("reserves", len(reserves)).Str("marketID", marketID).Msg("Fetched reserves")
	return reserves, nil
}

// FetchObligationCaps returns the obligation-owner capabilities of an address.
func (g *LiveGateway) FetchObligationCaps(ctx context.Context, owner string) ([]types.ObligationOwnerCap, error) {
	u := fmt.Sprintf("%s/v1/obligation-caps?owner=%s", g.lendingAPI, url.QueryEscape(owner))

	var caps []types.ObligationOwnerCap
	if err := g.getJSON(ctx, u, &caps); err != nil {
		return nil, err
	}
	return caps, nil
}

// obligationDTO mirrors the lending API's refreshed obligation document.
type obligationDTO struct {
	ID       string `json:"id"`
	Deposits []struct {
		CoinType          string `json:"coinType"`
		ReserveArrayIndex uint64 `json:"reserveArrayIndex"`
		DepositedAmount   string `json:"depositedAmount"`
		DepositedValueUsd string `json:"depositedValueUsd"`
	} `json:"deposits"`
	Borrows []struct {
		CoinType          string `json:"coinType"`
		ReserveArrayIndex uint64 `json:"reserveArrayIndex"`
		BorrowedAmount    string `json:"borrowedAmount"`
		BorrowedValueUsd  string `json:"borrowedValueUsd"`
	} `json:"borrows"`
	DepositedValueUsd          string `json:"depositedValueUsd"`
	BorrowedValueUsd           string `json:"borrowedValueUsd"`
	NetValueUsd                string `json:"netValueUsd"`
	WeightedBorrowsUsd         string `json:"weightedBorrowsUsd"`
	MaxPriceWeightedBorrowsUsd string `json:"maxPriceWeightedBorrowsUsd"`
	BorrowLimitUsd             string `json:"borrowLimitUsd"`
	MinPriceBorrowLimitUsd     string `json:"minPriceBorrowLimitUsd"`
	UnhealthyBorrowValueUsd    string `json:"unhealthyBorrowValueUsd"`
}

func (dto *obligationDTO) parse() (types.Obligation, error) {
	var o types.Obligation
	var err error

	o.ID = dto.ID
	for _, d := range dto.Deposits {
		dep := types.ObligationDeposit{CoinType: d.CoinType, ReserveArrayIndex: d.ReserveArrayIndex}
		if dep.DepositedAmount, err = utils.DecFromString(d.DepositedAmount); err != nil {
			return o, err
		}
		if dep.DepositedValueUsd, err = utils.DecFromString(d.DepositedValueUsd); err != nil {
			return o, err
		}
		o.Deposits = append(o.Deposits, dep)
	}
	for _, b := range dto.Borrows {
		bor := types.ObligationBorrow{CoinType: b.CoinType, ReserveArrayIndex: b.ReserveArrayIndex}
		if bor.BorrowedAmount, err = utils.DecFromString(b.BorrowedAmount); err != nil {
			return o, err
		}
		if bor.BorrowedValueUsd, err = utils.DecFromString(b.BorrowedValueUsd); err != nil {
			return o, err
		}
		o.Borrows = append(o.Borrows, bor)
	}

	fields := []struct {
		dst *sdkmath.LegacyDec
		src string
	}{
		{&o.DepositedValueUsd, dto.DepositedValueUsd},
		{&o.BorrowedValueUsd, dto.BorrowedValueUsd},
		{&o.NetValueUsd, dto.NetValueUsd},
		{&o.WeightedBorrowsUsd, dto.WeightedBorrowsUsd},
		{&o.MaxPriceWeightedBorrowsUsd, dto.MaxPriceWeightedBorrowsUsd},
		{&o.BorrowLimitUsd, dto.BorrowLimitUsd},
		{&o.MinPriceBorrowLimitUsd, dto.MinPriceBorrowLimitUsd},
		{&o.UnhealthyBorrowValueUsd, dto.UnhealthyBorrowValueUsd},
	}
	for _, f := range fields {
		if *f.dst, err = utils.DecFromString(f.src); err != nil {
			return o, err
		}
	}
	return o, nil
}

// FetchObligations resolves the owner's capabilities and fetches every
// associated obligation concurrently, preserving capability order.
func (g *LiveGateway) FetchObligations(ctx context.Context, owner string) ([]types.Obligation, error) {
	caps, err := g.FetchObligationCaps(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(caps) == 0 {
		return []types.Obligation{}, nil
	}

	obligations := make([]types.Obligation, len(caps))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, cap := range caps {
		i, cap := i, cap
		eg.Go(func() error {
			u := fmt.Sprintf("%s/v1/obligations/%s?refresh=true", g.lendingAPI, url.PathEscape(cap.ObligationID))
			var dto obligationDTO
			if err := g.getJSON(egCtx, u, &dto); err != nil {
				return err
			}
			o, err := dto.parse()
			if err != nil {
				return fmt.Errorf("%w: obligation %s: %w", ErrDataUnavailable, cap.ObligationID, err)
			}
			obligations[i] = o
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.log.Debug().Int("obligations", len(obligations)).Str("owner", owner).Msg("Fetched obligations")
	return obligations, nil
}

// positionDTO mirrors the pool API's position document.
type positionDTO struct {
	ID          string `json:"id"`
	PoolID      string `json:"poolId"`
	CoinA       string `json:"coinA"`
	CoinB       string `json:"coinB"`
	CoinAAmount string `json:"coinAAmount"`
	CoinBAmount string `json:"coinBAmount"`
	TickLower   int    `json:"tickLower"`
	TickUpper   int    `json:"tickUpper"`
}

// FetchPosition returns the live composition of a liquidity position.
func (g *LiveGateway) FetchPosition(ctx context.Context, positionID string) (*types.LiquidityPosition, error) {
	u := fmt.Sprintf("%s/v1/positions/%s", g.poolAPI, url.PathEscape(positionID))

	var dto positionDTO
	if err := g.getJSON(ctx, u, &dto); err != nil {
		return nil, err
	}

	pos := &types.LiquidityPosition{
		ID:        dto.ID,
		PoolID:    dto.PoolID,
		CoinA:     dto.CoinA,
		CoinB:     dto.CoinB,
		TickLower: dto.TickLower,
		TickUpper: dto.TickUpper,
	}
	var err error
	if pos.CoinAAmount, err = utils.IntFromString(dto.CoinAAmount); err != nil {
		return nil, fmt.Errorf("%w: position %s: %w", ErrDataUnavailable, positionID, err)
	}
	if pos.CoinBAmount, err = utils.IntFromString(dto.CoinBAmount); err != nil {
		return nil, fmt.Errorf("%w: position %s: %w", ErrDataUnavailable, positionID, err)
	}
	return pos, nil
}

// poolDTO mirrors the pool API's pool document.
type poolDTO struct {
	ID           string `json:"id"`
	CoinTypeA    string `json:"coinTypeA"`
	CoinTypeB    string `json:"coinTypeB"`
	DecimalsA    int    `json:"decimalsA"`
	DecimalsB    int    `json:"decimalsB"`
	TickSpacing  int    `json:"tickSpacing"`
	CurrentTick  int    `json:"currentTick"`
	CurrentPrice string `json:"currentPrice"`
	FeeRateBps   int    `json:"feeRateBps"`
}

// FetchPool returns the pool's current price and tick grid.
func (g *LiveGateway) FetchPool(ctx context.Context, poolID string) (*types.Pool, error) {
	u := fmt.Sprintf("%s/v1/pools/%s", g.poolAPI, url.PathEscape(poolID))

	var dto poolDTO
	if err := g.getJSON(ctx, u, &dto); err != nil {
		return nil, err
	}

	pool := &types.Pool{
		ID:          dto.ID,
		CoinTypeA:   dto.CoinTypeA,
		CoinTypeB:   dto.CoinTypeB,
		DecimalsA:   dto.DecimalsA,
		DecimalsB:   dto.DecimalsB,
		TickSpacing: dto.TickSpacing,
		CurrentTick: dto.CurrentTick,
		FeeRateBps:  dto.FeeRateBps,
	}
	var err error
	if pool.CurrentPrice, err = utils.DecFromString(dto.CurrentPrice); err != nil {
		return nil, fmt.Errorf("%w: pool %s: %w", ErrDataUnavailable, poolID, err)
	}
	if pool.TickSpacing <= 0 {
		return nil, fmt.Errorf("%w: pool %s has tick spacing %d", ErrDataUnavailable, poolID, pool.TickSpacing)
	}
	return pool, nil
}

// QuoteComposition asks the pool API's estimator for the dual-asset amounts
// of a range, fixing one side.
func (g *LiveGateway) QuoteComposition(ctx context.Context, req CompositionRequest) (*CompositionQuote, error) {
	fixed := "b"
	if req.FixA {
		fixed = "a"
	}
	u := fmt.Sprintf("%s/v1/pools/%s/liquidity-quote?tickLower=%d&tickUpper=%d&amount=%s&fixed=%s",
		g.poolAPI, url.PathEscape(req.PoolID), req.TickLower, req.TickUpper, req.Amount.String(), fixed)

	var dto struct {
		AmountA string `json:"amountA"`
		AmountB string `json:"amountB"`
	}
	if err := g.getJSON(ctx, u, &dto); err != nil {
		return nil, err
	}

	quote := &CompositionQuote{}
	var err error
	if quote.AmountA, err = utils.IntFromString(dto.AmountA); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if quote.AmountB, err = utils.IntFromString(dto.AmountB); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	return quote, nil
}

// CoinMetadataMap resolves metadata for each coin type concurrently. A coin
// type whose lookup fails is omitted from the map rather than failing the
// whole fetch.
func (g *LiveGateway) CoinMetadataMap(ctx context.Context, coinTypes []string) (map[string]CoinMetadata, error) {
	unique := make([]string, 0, len(coinTypes))
	seen := make(map[string]struct{}, len(coinTypes))
	for _, ct := range coinTypes {
		if _, ok := seen[ct]; ok {
			continue
		}
		seen[ct] = struct{}{}
		unique = append(unique, ct)
	}

	var mu sync.Mutex
	out := make(map[string]CoinMetadata, len(unique))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	for _, ct := range unique {
		ct := ct
		eg.Go(func() error {
			var dto struct {
				Symbol   string `json:"symbol"`
				Decimals int    `json:"decimals"`
			}
			if err := g.metadata.Call(egCtx, "suix_getCoinMetadata", []any{ct}, &dto); err != nil {
				g.log.Warn().Str("coinType", ct).Err(err).Msg("Coin metadata lookup failed, omitting entry")
				return nil
			}
			mu.Lock()
			out[ct] = CoinMetadata{CoinType: ct, Symbol: dto.Symbol, Decimals: dto.Decimals}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
