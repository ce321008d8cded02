/*

Thin JSON-RPC client for the fullnode. Carries the process-wide signer and
implements the bundle executor: dry-run and submit. Every call is bounded by
a timeout and throttled so a tight rebalance loop cannot hammer the node.

*/

package rpcclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Jarekkkkk/sui-bot/internal/logger"
	"github.com/Jarekkkkk/sui-bot/internal/txn"
	"github.com/Jarekkkkk/sui-bot/internal/wallet"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidEndpoint = errors.New("rpc endpoint is invalid")
	ErrRequestFailed   = errors.New("rpc request failed")
	ErrBadResponse     = errors.New("rpc response is malformed")
	ErrRPCError        = errors.New("rpc returned an error")
)

const (
	defaultTimeout = 15 * time.Second
	// Fullnode public endpoints tolerate ~10 rps per client comfortably.
	requestsPerSecond = 10
	burst             = 5
)

// Client is a JSON-RPC client over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	signer   *wallet.Signer
	log      zerolog.Logger
}

// New creates a client for the given endpoint. The signer may be nil for
// read-only use; DryRun and Submit require it.
func New(endpoint string, signer *wallet.Signer) (*Client, error) {
	if endpoint == "" {
		return nil, ErrInvalidEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultTimeout},
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		signer:   signer,
		log:      logger.GetForComponent("rpc_client"),
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Call performs a JSON-RPC call and decodes the result into out.
func (c *Client) Call(ctx context.Context, method string, params []any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRequestFailed, method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned HTTP %d", ErrRequestFailed, method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%w: %s: [%d] %s", ErrRPCError, method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("%w: %w", ErrBadResponse, err)
		}
	}
	return nil
}

// GetObject fetches an on-chain object's content into out.
func (c *Client) GetObject(ctx context.Context, objectID string, out any) error {
	return c.Call(ctx, "sui_getObject", []any{objectID, map[string]bool{"showContent": true}}, out)
}

// bundlePayload is the wire shape of a bundle: the node-side adapter expands
// the typed steps into the chain's native transaction encoding.
type bundlePayload struct {
	Sender string     `json:"sender"`
	Steps  []txn.Step `json:"steps"`
}

// encodeBundle serializes a bundle for simulation and signing.
func encodeBundle(b *txn.Bundle) ([]byte, error) {
	return json.Marshal(bundlePayload{Sender: b.Sender(), Steps: b.Steps()})
}

// DryRun simulates the bundle without committing it.
func (c *Client) DryRun(ctx context.Context, b *txn.Bundle) (*txn.DryRunResult, error) {
	raw, err := encodeBundle(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	var result struct {
		Effects struct {
			Status struct {
				Status string `json:"status"`
				Error  string `json:"error"`
			} `json:"status"`
		} `json:"effects"`
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	if err := c.Call(ctx, "sui_dryRunTransactionBlock", []any{encoded}, &result); err != nil {
		return nil, err
	}

	c.log.Debug().
		Int("steps", b.Len()).
		Str("status", result.Effects.Status.Status).
		Msg("Bundle dry-run completed")

	return &txn.DryRunResult{
		Status: result.Effects.Status.Status,
		Error:  result.Effects.Status.Error,
	}, nil
}

// Submit signs the bundle and executes it as one unit.
func (c *Client) Submit(ctx context.Context, b *txn.Bundle) (*txn.SubmitResult, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("%w: no signer attached", ErrRequestFailed)
	}

	raw, err := encodeBundle(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	signature := c.signer.Sign(raw)

	var result struct {
		Digest  string `json:"digest"`
		Effects struct {
			Status struct {
				Status string `json:"status"`
				Error  string `json:"error"`
			} `json:"status"`
		} `json:"effects"`
	}
	params := []any{encoded, []string{signature}, map[string]bool{"showEffects": true}}
	if err := c.Call(ctx, "sui_executeTransactionBlock", params, &result); err != nil {
		return nil, err
	}

	c.log.Info().
		Str("digest", result.Digest).
		Str("status", result.Effects.Status.Status).
		Int("steps", b.Len()).
		Msg("Bundle submitted")

	return &txn.SubmitResult{
		Digest: result.Digest,
		Status: result.Effects.Status.Status,
		Error:  result.Effects.Status.Error,
	}, nil
}
