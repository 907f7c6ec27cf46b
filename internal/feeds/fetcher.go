package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/killallgit/castero/pkg/config"
	"github.com/killallgit/castero/pkg/errors"
)

const repoURL = "https://github.com/killallgit/castero"

// UserAgent is the identification string sent on outgoing requests.
func UserAgent(version string) string {
	return fmt.Sprintf("castero %s <%s>", version, repoURL)
}

// requestsPerSecond paces outgoing feed requests so a large
// subscription list does not hammer hosts.
const requestsPerSecond = 5

// Fetcher performs feed HTTP requests with the configured timeout,
// proxies, and client-side request pacing.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewFetcher builds a fetcher from the application config.
func NewFetcher(cfg *config.Config, version string) *Fetcher {
	transport := &http.Transport{
		Proxy:               proxyFunc(cfg),
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		userAgent: UserAgent(version),
	}
}

// proxyFunc selects the configured proxy by request scheme.
func proxyFunc(cfg *config.Config) func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		var raw string
		switch req.URL.Scheme {
		case "http":
			raw = cfg.ProxyHTTP
		case "https":
			raw = cfg.ProxyHTTPS
		}
		if raw == "" {
			return nil, nil
		}
		return url.Parse(raw)
	}
}

// Fetch performs a GET for the feed document. Any status other than
// 200 is a download error. The caller owns the response body.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeFeedDownload, "request for %s interrupted", feedURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeFeedDownload, "invalid feed URL %s", feedURL)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeFeedDownload, "could not download feed %s", feedURL)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Newf(errors.ErrCodeFeedDownload, "feed %s returned status %d", feedURL, resp.StatusCode)
	}
	return resp, nil
}
