// Package httpx holds the HTTP plumbing shared by source adapters: the
// default client and the mapping of HTTP failures onto the error taxonomy.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/qepting91/idea-collector/internal/domain"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent identifies the collector to platforms that require one.
const DefaultUserAgent = "idea-collector/0.1"

// NewClient returns an http.Client that stamps userAgent on every request.
func NewClient(userAgent string) *http.Client {
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &UserAgentTransport{UserAgent: userAgent},
	}
}

// UserAgentTransport sets the User-Agent header when the request has none.
type UserAgentTransport struct {
	Base      http.RoundTripper
	UserAgent string
}

func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.UserAgent == "" || req.Header.Get("User-Agent") != "" {
		return base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.UserAgent)
	return base.RoundTrip(r)
}

// Transport classifies an error returned by http.Client.Do. A rejected
// OAuth token request is an authentication failure; anything else that kept
// the request from completing is transient.
func Transport(source string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return domain.NewSourceError(source, domain.ErrAuthentication, err)
	}
	return domain.NewSourceError(source, domain.ErrTransientNetwork, err)
}

// StatusKind maps an HTTP status onto an error kind sentinel.
func StatusKind(status int) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.ErrAuthentication
	case status == http.StatusTooManyRequests:
		return domain.ErrRateLimit
	case status >= 500:
		return domain.ErrTransientNetwork
	default:
		return domain.ErrMalformedResponse
	}
}

// Status builds the error for a non-2xx response, quoting the start of the body.
func Status(source string, resp *http.Response) error {
	body := Snippet(resp.Body)
	return domain.NewSourceError(source, StatusKind(resp.StatusCode),
		fmt.Errorf("status %d: %s", resp.StatusCode, body))
}

// Snippet reads at most 512 bytes of r for error messages.
func Snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}

// DecodeJSON decodes r into v. Failures are malformed responses.
func DecodeJSON(source string, r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return domain.NewSourceError(source, domain.ErrMalformedResponse, fmt.Errorf("decode: %w", err))
	}
	return nil
}

// Get issues a GET request and returns the response when the status is 2xx.
// The caller closes the body.
func Get(ctx context.Context, client *http.Client, source, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.NewSourceError(source, domain.ErrConfiguration, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, Transport(source, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, Status(source, resp)
	}
	return resp, nil
}
