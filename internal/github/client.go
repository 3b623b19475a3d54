package github

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

const (
	userAgent        = "issue-summarizer/1.0"
	maxRetries       = 3
	baseBackoff      = 1 * time.Second
	maxRateLimitWait = 2 * time.Minute
	clientTimeout    = 5 * time.Minute // covers retries and rate limit waits
)

// Options configures New
type Options struct {
	// BaseURL points the client at GitHub Enterprise or a test server; empty means api.github.com
	BaseURL string
	// Transport is the innermost round tripper; nil means http.DefaultTransport
	Transport http.RoundTripper
}

// New creates a GitHub client with OAuth2 authentication and retry logic.
// An empty token produces an unauthenticated client.
func New(token string, opts Options) (*github.Client, error) {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if token != "" {
		base = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   base,
		}
	}

	httpClient := &http.Client{
		Timeout:   clientTimeout,
		Transport: &retryTransport{base: base, sleep: sleepContext},
	}

	client := github.NewClient(httpClient)
	client.UserAgent = userAgent

	if opts.BaseURL != "" {
		baseURL := opts.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = parsed
	}

	return client, nil
}

// retryTransport retries GitHub requests on server errors and secondary rate limits
type retryTransport struct {
	base  http.RoundTripper
	sleep func(ctx context.Context, d time.Duration) error
}

// RoundTrip implements http.RoundTripper
func (rt *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		reqClone := req.Clone(req.Context())
		if attempt > 0 && req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to rewind request body: %w", err)
			}
			reqClone.Body = body
		}

		resp, err := rt.base.RoundTrip(reqClone)
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				if sleepErr := rt.sleep(req.Context(), backoff(attempt)); sleepErr != nil {
					return nil, sleepErr
				}
			}
			continue
		}

		wait, retry := retryDelay(resp, attempt)
		if !retry || attempt == maxRetries {
			return resp, nil
		}

		resp.Body.Close()
		if err := rt.sleep(req.Context(), wait); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("GitHub API request failed after %d attempts: %w", maxRetries+1, lastErr)
}

// retryDelay decides whether resp is worth retrying and how long to wait first.
// 401, plain 403 (SSO, permissions) and 404 are never retried.
func retryDelay(resp *http.Response, attempt int) (time.Duration, bool) {
	switch {
	case resp.StatusCode >= 500:
		return backoff(attempt), true
	case resp.StatusCode == http.StatusTooManyRequests, isRateLimited(resp):
		return rateLimitWait(resp), true
	default:
		return 0, false
	}
}

func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode != http.StatusForbidden {
		return false
	}
	return resp.Header.Get("Retry-After") != "" || resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// rateLimitWait reads Retry-After or X-RateLimit-Reset, capped at maxRateLimitWait
func rateLimitWait(resp *http.Response) time.Duration {
	wait := 60 * time.Second

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			wait = time.Duration(seconds) * time.Second
		}
	} else if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if unix, err := strconv.ParseInt(reset, 10, 64); err == nil {
			if d := time.Until(time.Unix(unix, 0)); d > 0 {
				wait = d + 5*time.Second // small buffer to avoid racing the reset
			}
		}
	}

	return min(wait, maxRateLimitWait)
}

// backoff returns base * 2^attempt with ±25% jitter
func backoff(attempt int) time.Duration {
	d := baseBackoff << attempt
	jitter := time.Duration((rand.Float64() - 0.5) * 0.5 * float64(d))
	return d + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
