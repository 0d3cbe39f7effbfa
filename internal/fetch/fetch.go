package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

const (
	// DefaultTimeout bounds a single page fetch when Client.Timeout is zero.
	DefaultTimeout = 10 * time.Second
	// DefaultRedirectMaxHops caps redirect following when RedirectMaxHops is zero.
	DefaultRedirectMaxHops = 10
	// DefaultMaxBodyBytes caps how much of a page body is read.
	DefaultMaxBodyBytes = 16 << 20
)

// Error describes a failed page fetch. Network failures, timeouts, DNS
// failures and HTTP error statuses all surface as *Error.
type Error struct {
	URL string
	// StatusCode is set when the server answered with an error status.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to fetch the page %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client issues one bounded GET per page. It does not retry and does not cache.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Timeout bounds the whole request including the body read. Zero means DefaultTimeout.
	Timeout time.Duration
	// RedirectMaxHops caps redirect following to avoid loops. Zero means DefaultRedirectMaxHops.
	RedirectMaxHops int
	// MaxBodyBytes truncates larger bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// Fetch retrieves pageURL and returns its body decoded to UTF-8 text.
// Any failure is returned as *Error.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	start := time.Now()
	body, status, err := c.get(ctx, pageURL)
	if err != nil {
		log.Debug().Err(err).Str("url", pageURL).Int("status", status).Dur("elapsed", time.Since(start)).Msg("fetch failed")
		return "", &Error{URL: pageURL, StatusCode: status, Err: err}
	}
	log.Debug().Str("url", pageURL).Int("status", status).Int("bytes", len(body)).Dur("elapsed", time.Since(start)).Msg("fetched page")
	return body, nil
}

func (c *Client) get(ctx context.Context, pageURL string) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("new request: %w", err)
	}
	// Reject non-HTTP(S) schemes early
	if !isHTTPScheme(req.URL) {
		return "", 0, fmt.Errorf("unsupported URL scheme: %q", req.URL.Scheme)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 399 {
		return "", resp.StatusCode, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return decodeBody(b, resp.Header.Get("Content-Type")), resp.StatusCode, nil
}

// decodeBody converts b to UTF-8 using the Content-Type charset, a BOM or a
// <meta charset> declaration, falling back to the raw bytes.
func decodeBody(b []byte, contentType string) string {
	if len(b) == 0 {
		return ""
	}
	enc, _, _ := charset.DetermineEncoding(b, contentType)
	if enc == nil {
		return string(b)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = DefaultRedirectMaxHops
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
