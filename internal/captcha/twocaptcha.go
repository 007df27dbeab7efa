package captcha

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultEndpoint = "https://2captcha.com"

// TwoCaptcha solves challenges through the 2captcha HTTP API: a task is
// submitted to in.php and its answer polled from res.php.
type TwoCaptcha struct {
	apiKey   string
	endpoint string
	client   *http.Client
	poll     time.Duration
	logger   *slog.Logger
}

// TwoCaptchaOption configures a TwoCaptcha client.
type TwoCaptchaOption func(*TwoCaptcha)

// WithEndpoint points the client at an alternative API endpoint.
func WithEndpoint(endpoint string) TwoCaptchaOption {
	return func(t *TwoCaptcha) { t.endpoint = strings.TrimRight(endpoint, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) TwoCaptchaOption {
	return func(t *TwoCaptcha) { t.client = client }
}

// WithPollInterval sets the answer polling interval.
func WithPollInterval(d time.Duration) TwoCaptchaOption {
	return func(t *TwoCaptcha) { t.poll = d }
}

// WithSolverLogger sets the client logger.
func WithSolverLogger(logger *slog.Logger) TwoCaptchaOption {
	return func(t *TwoCaptcha) { t.logger = logger }
}

// NewTwoCaptcha creates a client for the given API key.
func NewTwoCaptcha(apiKey string, opts ...TwoCaptchaOption) *TwoCaptcha {
	t := &TwoCaptcha{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		poll:     5 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SolveImage implements Solver.
func (t *TwoCaptcha) SolveImage(ctx context.Context, image []byte) (string, error) {
	t.logger.Info("solving image captcha")
	id, err := t.submit(ctx, url.Values{
		"method": {"base64"},
		"body":   {base64.StdEncoding.EncodeToString(image)},
	})
	if err != nil {
		return "", err
	}
	return t.await(ctx, id)
}

// SolveInteractive implements Solver.
func (t *TwoCaptcha) SolveInteractive(ctx context.Context, siteKey, pageURL string) (string, error) {
	t.logger.Info("solving turnstile captcha", "page_url", pageURL)
	id, err := t.submit(ctx, url.Values{
		"method":  {"turnstile"},
		"sitekey": {siteKey},
		"pageurl": {pageURL},
	})
	if err != nil {
		return "", err
	}
	return t.await(ctx, id)
}

// submit creates a solving task and returns its id.
func (t *TwoCaptcha) submit(ctx context.Context, form url.Values) (string, error) {
	form.Set("key", t.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/in.php",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := t.do(req)
	if err != nil {
		return "", err
	}
	id, ok := strings.CutPrefix(body, "OK|")
	if !ok {
		return "", fmt.Errorf("submit captcha: %s: %w", body, ErrUnsolvable)
	}
	return id, nil
}

// await polls for the answer of a submitted task.
func (t *TwoCaptcha) await(ctx context.Context, id string) (string, error) {
	query := url.Values{
		"key":    {t.apiKey},
		"action": {"get"},
		"id":     {id},
	}
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			t.endpoint+"/res.php?"+query.Encode(), nil)
		if err != nil {
			return "", err
		}
		body, err := t.do(req)
		if err != nil {
			return "", err
		}
		switch {
		case body == "CAPCHA_NOT_READY":
			continue
		case strings.HasPrefix(body, "OK|"):
			return strings.TrimPrefix(body, "OK|"), nil
		default:
			return "", fmt.Errorf("poll captcha %s: %s: %w", id, body, ErrUnsolvable)
		}
	}
}

func (t *TwoCaptcha) do(req *http.Request) (string, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("captcha service: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("captcha service: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("captcha service: unexpected status %d", resp.StatusCode)
	}
	return strings.TrimSpace(string(raw)), nil
}
