// Package fetch retrieves text resources from http(s) URLs or local paths.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// FetchError reports a failed retrieval. Status is the HTTP status code, or
// zero when the request never produced a response.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFound reports whether err is a FetchError for a missing resource.
func NotFound(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Status == http.StatusNotFound || errors.Is(fe.Err, os.ErrNotExist)
}

// Client fetches sources over HTTP or from disk.
type Client struct {
	HTTP      *http.Client
	Limiter   *RateLimiter
	UserAgent string
}

// NewClient returns a Client with the given timeout and request rate.
func NewClient(timeout time.Duration, rps float64, userAgent string) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		Limiter:   NewRateLimiter(rps),
		UserAgent: userAgent,
	}
}

// IsRemote reports whether loc is an http(s) URL.
func IsRemote(loc string) bool {
	return strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://")
}

// Open returns a reader for loc, which may be a URL or a local path.
// The caller closes the reader.
func (c *Client) Open(ctx context.Context, loc string) (io.ReadCloser, error) {
	if !IsRemote(loc) {
		f, err := os.Open(loc)
		if err != nil {
			return nil, &FetchError{URL: loc, Err: err}
		}
		return f, nil
	}

	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: loc, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", loc, nil)
	if err != nil {
		return nil, &FetchError{URL: loc, Err: fmt.Errorf("creating request: %w", err)}
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &FetchError{URL: loc, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &FetchError{URL: loc, Status: resp.StatusCode}
	}
	return resp.Body, nil
}

// GetText fetches loc and returns its body as a string.
func (c *Client) GetText(ctx context.Context, loc string) (string, error) {
	body, err := c.Open(ctx, loc)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", &FetchError{URL: loc, Err: fmt.Errorf("reading body: %w", err)}
	}
	return string(data), nil
}

// Resolve joins ref onto base, which may be a URL or a directory. An
// absolute ref (URL or absolute path) is returned unchanged.
func Resolve(base, ref string) string {
	if IsRemote(ref) || filepath.IsAbs(ref) || base == "" {
		return ref
	}
	if IsRemote(base) {
		u, err := url.Parse(base)
		if err != nil {
			return ref
		}
		u.Path = path.Join(u.Path, ref)
		return u.String()
	}
	return filepath.Join(base, ref)
}
