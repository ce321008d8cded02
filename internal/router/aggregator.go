package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Jarekkkkk/sui-bot/internal/logger"
	"github.com/Jarekkkkk/sui-bot/internal/txn"
	"github.com/Jarekkkkk/sui-bot/internal/utils"
	"github.com/rs/zerolog"
)

// Error definitions for zero-tolerance error handling
var (
	ErrRouterURL         = errors.New("router API URL not configured")
	ErrRouterUnreachable = errors.New("router API unreachable")
)

// AggregatorRouter quotes routes through an HTTP route aggregator.
type AggregatorRouter struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewAggregatorRouter creates a router client against the given base URL.
func NewAggregatorRouter(baseURL string) (*AggregatorRouter, error) {
	if baseURL == "" {
		return nil, ErrRouterURL
	}
	return &AggregatorRouter{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     logger.GetForComponent("router"),
	}, nil
}

// routeDTO mirrors the aggregator's quote response.
type routeDTO struct {
	AmountIn  string          `json:"amountIn"`
	AmountOut string          `json:"amountOut"`
	Route     json.RawMessage `json:"route"`
}

// Quote finds the best route for the request. A null route in the response
// means the aggregator has no path, reported as ErrNoRouteFound.
func (r *AggregatorRouter) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("from", req.FromCoinType)
	q.Set("to", req.ToCoinType)
	if req.ByAmountIn() {
		q.Set("amountIn", req.FromAmount.String())
	} else {
		q.Set("amountOut", req.ToAmount.String())
	}
	u := fmt.Sprintf("%s/v1/quote?%s", r.baseURL, q.Encode())

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRouterUnreachable, err)
	}
	resp, err := r.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRouterUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNoRouteFound, req.FromCoinType, req.ToCoinType)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: router returned HTTP %d", ErrRouterUnreachable, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRouterUnreachable, err)
	}

	var dto routeDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, fmt.Errorf("%w: decoding quote: %w", ErrRouterUnreachable, err)
	}
	if len(dto.Route) == 0 || string(dto.Route) == "null" {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNoRouteFound, req.FromCoinType, req.ToCoinType)
	}

	quote := &Quote{
		FromCoinType: req.FromCoinType,
		ToCoinType:   req.ToCoinType,
		ByAmountIn:   req.ByAmountIn(),
		RoutePayload: dto.Route,
	}
	if quote.AmountIn, err = utils.IntFromString(dto.AmountIn); err != nil {
		return nil, fmt.Errorf("%w: amountIn: %w", ErrRouterUnreachable, err)
	}
	if quote.AmountOut, err = utils.IntFromString(dto.AmountOut); err != nil {
		return nil, fmt.Errorf("%w: amountOut: %w", ErrRouterUnreachable, err)
	}

	r.log.Debug().
		Str("from", req.FromCoinType).
		Str("to", req.ToCoinType).
		Str("amountIn", quote.AmountIn.String()).
		Str("amountOut", quote.AmountOut.String()).
		Bool("byAmountIn", quote.ByAmountIn).
		Msg("Quoted swap route")
	return quote, nil
}

// AppendSwap appends the quoted swap to the bundle and returns the handle
// to the output coin.
func (r *AggregatorRouter) AppendSwap(b *txn.Bundle, q *Quote, input txn.CoinRef, maxSlippage string) txn.CoinRef {
	return b.Append(txn.Step{
		Kind:        txn.StepSwap,
		CoinType:    q.ToCoinType,
		Input:       &input,
		Route:       q.RoutePayload,
		ByAmountIn:  q.ByAmountIn,
		MaxSlippage: maxSlippage,
	})
}
