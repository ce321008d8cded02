package marketdata

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Jarekkkkk/sui-bot/internal/logger"
	"github.com/rs/zerolog"
)

// Error definitions for zero-tolerance error handling
var (
	ErrPriceServiceURL  = errors.New("price service URL not configured")
	ErrPriceUpdateEmpty = errors.New("price service returned no update data")
)

// PythService fetches signed price attestations from a Hermes-style
// price service endpoint.
type PythService struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewPythService creates a price service client against the given base URL.
func NewPythService(baseURL string) (*PythService, error) {
	if baseURL == "" {
		return nil, ErrPriceServiceURL
	}
	return &PythService{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     logger.GetForComponent("price_service"),
	}, nil
}

// UpdateData fetches the latest attestation blob for each price identifier.
// Identifier order in the request is preserved in the response pairing.
func (p *PythService) UpdateData(ctx context.Context, identifiers []string) (map[string][]byte, error) {
	if len(identifiers) == 0 {
		return map[string][]byte{}, nil
	}

	q := url.Values{}
	for _, id := range identifiers {
		q.Add("ids[]", id)
	}
	u := fmt.Sprintf("%s/api/latest_vaas?%s", p.baseURL, q.Encode())

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: price service returned HTTP %d", ErrDataUnavailable, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	var vaas []string
	if err := json.Unmarshal(raw, &vaas); err != nil {
		return nil, fmt.Errorf("%w: decoding price update response: %w", ErrDataUnavailable, err)
	}
	if len(vaas) != len(identifiers) {
		return nil, fmt.Errorf("%w: requested %d identifiers, got %d updates", ErrPriceUpdateEmpty, len(identifiers), len(vaas))
	}

	out := make(map[string][]byte, len(identifiers))
	for i, id := range identifiers {
		blob, err := base64.StdEncoding.DecodeString(vaas[i])
		if err != nil {
			return nil, fmt.Errorf("%w: attestation for %s is not base64: %w", ErrDataUnavailable, id, err)
		}
		out[id] = blob
	}

	p.log.Debug().Int("identifiers", len(identifiers)).Msg("Fetched price update data")
	return out, nil
}
