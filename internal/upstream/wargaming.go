package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
)

const wargamingProvider = "wargaming"

// MaxAccountListLimit is the largest limit account/list accepts.
const MaxAccountListLimit = 100

// RegionBaseURLs maps a region to its Wargaming API root.
var RegionBaseURLs = map[string]string{
	"eu":   "https://api.worldoftanks.eu/wot",
	"na":   "https://api.worldoftanks.com/wot",
	"ru":   "https://api.worldoftanks.ru/wot",
	"asia": "https://api.worldoftanks.asia/wot",
}

// ValidRegion reports whether region has a known Wargaming endpoint.
func ValidRegion(region string) bool {
	_, ok := RegionBaseURLs[strings.ToLower(region)]
	return ok
}

type WargamingConfig struct {
	AppID   string
	Timeout time.Duration
	// BaseURLs overrides RegionBaseURLs, mainly for tests.
	BaseURLs map[string]string
}

// WargamingClient talks to the Wargaming public API.
type WargamingClient struct {
	httpClient *http.Client
	appID      string
	baseURLs   map[string]string
}

func NewWargamingClient(cfg WargamingConfig) *WargamingClient {
	baseURLs := cfg.BaseURLs
	if baseURLs == nil {
		baseURLs = RegionBaseURLs
	}
	return &WargamingClient{
		httpClient: newHTTPClient(cfg.Timeout),
		appID:      cfg.AppID,
		baseURLs:   baseURLs,
	}
}

// AccountListRaw calls account/list and returns the upstream JSON untouched.
// limit is clamped to [1, MaxAccountListLimit].
func (c *WargamingClient) AccountListRaw(ctx context.Context, region, search, searchType string, limit int) (*RawResponse, error) {
	if c.appID == "" {
		return nil, fmt.Errorf("wargaming application id missing: %w", ErrNotConfigured)
	}

	base, ok := c.baseURLs[strings.ToLower(region)]
	if !ok {
		return nil, fmt.Errorf("invalid region %q", region)
	}

	if limit < 1 {
		limit = 1
	}
	if limit > MaxAccountListLimit {
		limit = MaxAccountListLimit
	}
	if searchType == "" {
		searchType = "exact"
	}

	params := url.Values{}
	params.Set("application_id", c.appID)
	params.Set("search", search)
	params.Set("type", searchType)
	params.Set("limit", strconv.Itoa(limit))

	return getJSON(ctx, c.httpClient, wargamingProvider, strings.TrimRight(base, "/")+"/account/list/", params)
}

// AccountList calls account/list and decodes the envelope. A non-"ok" status
// in the body is not an error here; callers decide what it means.
func (c *WargamingClient) AccountList(ctx context.Context, region, search, searchType string, limit int) (*models.AccountListResponse, error) {
	raw, err := c.AccountListRaw(ctx, region, search, searchType, limit)
	if err != nil {
		return nil, err
	}

	var resp models.AccountListResponse
	if err := decode(wargamingProvider, raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
