package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
)

const tomatoProvider = "tomato"

type TomatoConfig struct {
	BaseURL string
	Timeout time.Duration
	// RatePerSecond bounds the request rate across all callers.
	RatePerSecond float64
	Burst         int
}

// TomatoClient reads per-account overall stats from tomato.gg.
type TomatoClient struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
}

func NewTomatoClient(cfg TomatoConfig) *TomatoClient {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 8
	}
	return &TomatoClient{
		httpClient:  newHTTPClient(cfg.Timeout),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(limit, burst),
	}
}

// PlayerOverallRaw calls player/overall/{server}/{account_id} and returns the
// upstream JSON untouched.
func (c *TomatoClient) PlayerOverallRaw(ctx context.Context, server string, accountID int64) (*RawResponse, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("tomato base url missing: %w", ErrNotConfigured)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &Error{Provider: tomatoProvider, Kind: KindTransport, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	target := fmt.Sprintf("%s/player/overall/%s/%d", c.baseURL, strings.ToLower(server), accountID)
	return getJSON(ctx, c.httpClient, tomatoProvider, target, nil)
}

// PlayerOverall fetches and decodes the overall stats envelope.
func (c *TomatoClient) PlayerOverall(ctx context.Context, server string, accountID int64) (*models.TomatoOverallResponse, error) {
	raw, err := c.PlayerOverallRaw(ctx, server, accountID)
	if err != nil {
		return nil, err
	}

	var resp models.TomatoOverallResponse
	if err := decode(tomatoProvider, raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
