// Package upstream holds the HTTP clients for the two external providers:
// the Wargaming account directory and the tomato.gg stat provider.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// MaxBodySize caps upstream response bodies at 4MB; per-vehicle breakdowns
// of veteran accounts get large.
const MaxBodySize = 4 << 20

// Kind classifies how an upstream call failed.
type Kind string

const (
	// KindTransport covers network errors and timeouts.
	KindTransport Kind = "transport"
	// KindStatus covers non-2xx answers.
	KindStatus Kind = "status"
	// KindDecode covers bodies that are not the expected JSON.
	KindDecode Kind = "decode"
)

// ErrNotConfigured is returned when a client lacks required credentials.
var ErrNotConfigured = errors.New("upstream client not configured")

// ErrBodyTooLarge is wrapped in a KindDecode Error when a body exceeds
// MaxBodySize.
var ErrBodyTooLarge = errors.New("response body too large")

// Error is returned by every client call that did not produce a usable body.
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s error (HTTP %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an upstream Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Kind == kind
}

// RawResponse is an upstream answer passed through untouched by the proxy
// routes. Body is guaranteed to be valid JSON.
type RawResponse struct {
	StatusCode int
	Body       json.RawMessage
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// getJSON performs a GET and returns the body when it is valid JSON,
// whatever the status code.
func getJSON(ctx context.Context, client *http.Client, provider, target string, params url.Values) (*RawResponse, error) {
	if len(params) > 0 {
		target = target + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Provider: provider, Kind: KindTransport, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Provider: provider, Kind: KindTransport, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, &Error{Provider: provider, Kind: KindTransport, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if len(body) > MaxBodySize {
		return nil, &Error{Provider: provider, Kind: KindDecode, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, MaxBodySize)}
	}

	if !json.Valid(body) {
		return nil, &Error{Provider: provider, Kind: KindDecode, StatusCode: resp.StatusCode, Err: errors.New("response is not JSON")}
	}

	return &RawResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

// decode checks the status of raw and unmarshals its body into out.
func decode(provider string, raw *RawResponse, out interface{}) error {
	if raw.StatusCode < 200 || raw.StatusCode > 299 {
		return &Error{Provider: provider, Kind: KindStatus, StatusCode: raw.StatusCode, Err: errors.New("unexpected status code")}
	}
	if err := json.Unmarshal(raw.Body, out); err != nil {
		return &Error{Provider: provider, Kind: KindDecode, StatusCode: raw.StatusCode, Err: err}
	}
	return nil
}
