package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrNoProxyAvailable is returned when every candidate failed the probe.
var ErrNoProxyAvailable = errors.New("proxy: no candidate reachable")

// DefaultProbeTimeout bounds one candidate's probe request.
const DefaultProbeTimeout = 10 * time.Second

// Selector picks the proxy address for connections to targetURL. The
// empty string means connect directly.
type Selector interface {
	FastestProxy(ctx context.Context, targetURL string) (string, error)
}

// Direct is a Selector that never proxies.
type Direct struct{}

// FastestProxy implements Selector.
func (Direct) FastestProxy(context.Context, string) (string, error) { return "", nil }

// Prober is a Selector that races its candidates against the target and
// returns the fastest one that answered with a success status.
type Prober struct {
	candidates []string
	timeout    time.Duration
	logger     *slog.Logger
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProbeTimeout overrides the per-candidate probe timeout.
func WithProbeTimeout(d time.Duration) ProberOption {
	return func(p *Prober) { p.timeout = d }
}

// WithProberLogger sets the logger.
func WithProberLogger(logger *slog.Logger) ProberOption {
	return func(p *Prober) { p.logger = logger }
}

// NewProber returns a Prober over the candidate proxy URLs.
func NewProber(candidates []string, opts ...ProberOption) *Prober {
	p := &Prober{
		candidates: candidates,
		timeout:    DefaultProbeTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FastestProxy implements Selector. With no candidates it selects a
// direct connection; with candidates it returns ErrNoProxyAvailable when
// none of them can reach the target.
func (p *Prober) FastestProxy(ctx context.Context, targetURL string) (string, error) {
	if len(p.candidates) == 0 {
		return "", nil
	}

	type result struct {
		proxy   string
		latency time.Duration
	}
	var (
		mu      sync.Mutex
		fastest *result
	)

	eg, ctx := errgroup.WithContext(ctx)
	for _, candidate := range p.candidates {
		candidate := candidate
		eg.Go(func() error {
			latency, err := p.probe(ctx, candidate, targetURL)
			if err != nil {
				p.logger.Debug("proxy probe failed", "proxy", candidate, "error", err)
				return nil // a dead candidate is not a probe failure
			}
			mu.Lock()
			if fastest == nil || latency < fastest.latency {
				fastest = &result{proxy: candidate, latency: latency}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return "", err
	}

	if fastest == nil {
		return "", fmt.Errorf("%w: %d candidates probed against %s", ErrNoProxyAvailable, len(p.candidates), targetURL)
	}
	p.logger.Info("proxy selected", "proxy", fastest.proxy, "latency", fastest.latency)
	return fastest.proxy, nil
}

// probe fetches targetURL through the candidate and returns the latency.
func (p *Prober) probe(ctx context.Context, candidate, targetURL string) (time.Duration, error) {
	proxyURL, err := url.Parse(candidate)
	if err != nil {
		return 0, fmt.Errorf("parse proxy %q: %w", candidate, err)
	}

	client := &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		Timeout:   p.timeout,
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("proxy %q: target answered %s", candidate, resp.Status)
	}
	return time.Since(start), nil
}

// LoadCandidates reads one proxy URL per line, skipping blank lines and
// comments.
func LoadCandidates(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open proxy list: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var candidates []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		candidates = append(candidates, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxy list: %w", err)
	}
	return candidates, nil
}
