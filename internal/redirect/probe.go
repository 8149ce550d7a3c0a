package redirect

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"linkboard/internal/analytics/enrichment"
)

const defaultProbeTimeout = 5 * time.Second

// Prober resolves short codes by asking an upstream redirect endpoint and
// classifying its raw HTTP answer. Redirects are never followed.
type Prober struct {
	baseURL *url.URL
	client  *http.Client
	logger  *zap.Logger
}

// NewProber creates a Prober for the redirect endpoint at baseURL.
// A nil client gets a default one with a short timeout.
func NewProber(baseURL string, client *http.Client, logger *zap.Logger) (*Prober, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultProbeTimeout}
	}

	// Copy so the caller's client keeps following redirects.
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Prober{baseURL: u, client: &c, logger: logger}, nil
}

// Probe requests the upstream redirect for code and classifies the response.
func (p *Prober) Probe(ctx context.Context, code string) Outcome {
	return p.probe(ctx, code, enrichment.RequestMeta{})
}

// Resolve probes like Probe and forwards the visitor's User-Agent, Referer and
// address so the upstream can attribute the click.
func (p *Prober) Resolve(ctx context.Context, code string, meta enrichment.RequestMeta) Outcome {
	return p.probe(ctx, code, meta)
}

func (p *Prober) probe(ctx context.Context, code string, meta enrichment.RequestMeta) Outcome {
	target := p.baseURL.JoinPath(url.PathEscape(code))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return UpstreamError(code, err.Error())
	}
	req.Header.Set("Accept", "text/html,application/json")
	if meta.UserAgent != "" {
		req.Header.Set("User-Agent", meta.UserAgent)
	}
	if meta.Referer != "" {
		req.Header.Set("Referer", meta.Referer)
	}
	if ip := meta.ClientIP; ip != "" {
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		req.Header.Set("X-Forwarded-For", ip)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("upstream probe failed", zap.String("short_code", code), zap.Error(err))
		return UpstreamError(code, "upstream unreachable")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return Classify(code, resp.StatusCode, resp.Header.Get("Location"))
}

// Classify maps an upstream status and Location header to an Outcome.
func Classify(code string, status int, location string) Outcome {
	switch {
	case status == http.StatusNotFound:
		return NotFound(code)
	case isRedirectStatus(status):
		if !usableLocation(location) {
			return MalformedRedirect(code, status, "redirect without a usable Location header")
		}
		return Redirect(code, location, status)
	case status >= 500:
		return UpstreamError(code, fmt.Sprintf("upstream returned %d", status))
	default:
		return MalformedRedirect(code, status, fmt.Sprintf("unexpected upstream status %d", status))
	}
}

func isRedirectStatus(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func usableLocation(location string) bool {
	if strings.TrimSpace(location) == "" {
		return false
	}
	u, err := url.Parse(location)
	return err == nil && u.Scheme != "" && u.Host != ""
}
