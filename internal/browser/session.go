package browser

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// Default navigation timings. The portals update page sections
// asynchronously after clicks and form posts, so every interaction is
// followed by a polled wait, never a fixed sleep.
const (
	// DefaultWaitTimeout bounds a single wait condition.
	DefaultWaitTimeout = 50 * time.Second

	// DefaultPollInterval is the predicate re-evaluation interval.
	DefaultPollInterval = 250 * time.Millisecond

	// DefaultDownloadTimeout bounds the wait for a completed download.
	DefaultDownloadTimeout = 60 * time.Second
)

// Predicate observes the page and reports whether the awaited state was
// reached. Errors are treated as "not yet": the portals detach and
// re-render DOM subtrees mid-update, and a probe that races such an
// update must simply be retried.
type Predicate func(ctx context.Context) (bool, error)

// Session drives one Chrome instance through a stateful, AJAX-rendered
// portal. A session is owned by at most one crawl task at a time; the
// pool enforces this.
type Session struct {
	name        string
	logger      *slog.Logger
	downloadDir string
	ownsDir     bool

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// homeID is the target the session always returns to after a detail
	// excursion. Windows are tracked as an explicit stack of handles
	// rather than positional indexes, which break under stray popups.
	homeID  target.ID
	windows []window

	pollInterval time.Duration
	waitTimeout  time.Duration
}

// window is one detail tab opened above the home target.
type window struct {
	id     target.ID
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Session.
type Option func(*options)

type options struct {
	headless    bool
	proxy       string
	userAgent   string
	downloadDir string
	logger      *slog.Logger
	poll        time.Duration
	waitTimeout time.Duration
}

// WithHeadless toggles headless Chrome. Headful runs are useful when
// debugging a portal's captcha flow.
func WithHeadless(headless bool) Option {
	return func(o *options) { o.headless = headless }
}

// WithProxy routes all browser traffic through the given proxy address.
// An empty address means direct connection.
func WithProxy(addr string) Option {
	return func(o *options) { o.proxy = addr }
}

// WithUserAgent overrides the browser user agent.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithDownloadDir uses a caller-managed download directory instead of a
// temporary one. The session still deletes files it consumes.
func WithDownloadDir(dir string) Option {
	return func(o *options) { o.downloadDir = dir }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithWaitTimeout sets the default bound for wait conditions.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *options) { o.waitTimeout = d }
}

// New launches a Chrome instance dedicated to one tribunal. The download
// directory is exclusive to this session: one browser, one directory, one
// writer.
func New(ctx context.Context, name string, opts ...Option) (*Session, error) {
	o := &options{
		headless:    true,
		poll:        DefaultPollInterval,
		waitTimeout: DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	downloadDir := o.downloadDir
	ownsDir := false
	if downloadDir == "" {
		dir, err := os.MkdirTemp("", "jusbr-downloads-*")
		if err != nil {
			return nil, fmt.Errorf("create download directory: %w", err)
		}
		downloadDir = dir
		ownsDir = true
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	}
	if o.headless {
		allocOpts = append(allocOpts, chromedp.Headless)
	}
	if o.proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(o.proxy))
	}
	if o.userAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(o.userAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	err := chromedp.Run(browserCtx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(downloadDir).
			WithEventsEnabled(true),
	)
	if err != nil {
		browserCancel()
		allocCancel()
		if ownsDir {
			_ = os.RemoveAll(downloadDir)
		}
		return nil, fmt.Errorf("launch browser for %s: %w", name, ErrSessionUnusable)
	}

	s := &Session{
		name:          name,
		logger:        o.logger,
		downloadDir:   downloadDir,
		ownsDir:       ownsDir,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		homeID:        chromedp.FromContext(browserCtx).Target.TargetID,
		pollInterval:  o.poll,
		waitTimeout:   o.waitTimeout,
	}
	s.logger.Info("browser session launched", "session", name, "download_dir", downloadDir)
	return s, nil
}

// active returns the chromedp context of the window currently in focus:
// the top of the detail stack, or home.
func (s *Session) active() context.Context {
	if n := len(s.windows); n > 0 {
		return s.windows[n-1].ctx
	}
	return s.browserCtx
}

// Goto navigates the focused window. Navigation resets any pending
// partial-page state the previous interaction left behind.
func (s *Session) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(s.active(), chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("goto %s: %w", url, ErrSessionUnusable)
	}
	return nil
}

// WaitFor blocks the calling task until pred observes the desired state
// or the timeout elapses. A timeout of zero uses the session default.
func (s *Session) WaitFor(ctx context.Context, desc string, timeout time.Duration, pred Predicate) error {
	if timeout <= 0 {
		timeout = s.waitTimeout
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := pred(s.active())
		if err == nil && ok {
			return nil
		}
		if time.Now().After(deadline) {
			if err != nil {
				return fmt.Errorf("%s: %v: %w", desc, err, ErrWaitTimeout)
			}
			return fmt.Errorf("%s: %w", desc, ErrWaitTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Click clicks the element with the given DOM id.
func (s *Session) Click(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(s.active(), chromedp.Click(id, chromedp.ByID)); err != nil {
		return fmt.Errorf("click %s: %w", id, ErrWaitTimeout)
	}
	return nil
}

// ClickQuery clicks the first element matching a CSS selector.
func (s *Session) ClickQuery(ctx context.Context, sel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(s.active(), chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", sel, ErrWaitTimeout)
	}
	return nil
}

// Fill sets an input's value and waits until the portal's own scripts
// reflect it, mirroring how a user-typed value is acknowledged.
func (s *Session) Fill(ctx context.Context, id, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(s.active(), chromedp.SetValue(id, value, chromedp.ByID)); err != nil {
		return fmt.Errorf("fill %s: %w", id, ErrWaitTimeout)
	}
	return s.WaitFor(ctx, fmt.Sprintf("input %s reflects value", id), 0, func(context.Context) (bool, error) {
		got, err := s.Value(ctx, id)
		return err == nil && got == value, err
	})
}

// Value reads an input's current value.
func (s *Session) Value(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var v string
	if err := chromedp.Run(s.active(), chromedp.Value(id, &v, chromedp.ByID)); err != nil {
		return "", fmt.Errorf("value of %s: %w", id, ErrWaitTimeout)
	}
	return v, nil
}

// Text reads the rendered text of the element with the given DOM id.
func (s *Session) Text(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var v string
	if err := chromedp.Run(s.active(), chromedp.Text(id, &v, chromedp.ByID)); err != nil {
		return "", fmt.Errorf("text of %s: %w", id, ErrWaitTimeout)
	}
	return v, nil
}

// HTML captures the outer HTML of the element with the given DOM id,
// which the extraction grammar parses offline.
func (s *Session) HTML(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var v string
	if err := chromedp.Run(s.active(), chromedp.OuterHTML(id, &v, chromedp.ByID)); err != nil {
		return "", fmt.Errorf("html of %s: %w", id, ErrWaitTimeout)
	}
	return v, nil
}

// PageHTML captures the full document of the focused window.
func (s *Session) PageHTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var v string
	if err := chromedp.Run(s.active(), chromedp.OuterHTML("html", &v, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("page html: %w", ErrSessionUnusable)
	}
	return v, nil
}

// Eval evaluates a JavaScript expression in the focused window and
// unmarshals the result into out. Pass nil to discard the result.
func (s *Session) Eval(ctx context.Context, js string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(s.active(), chromedp.Evaluate(js, out)); err != nil {
		return fmt.Errorf("evaluate: %w", ErrWaitTimeout)
	}
	return nil
}

// Screenshot captures a PNG of the element with the given DOM id,
// used to feed image captchas to the solver.
func (s *Session) Screenshot(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf []byte
	if err := chromedp.Run(s.active(), chromedp.Screenshot(id, &buf, chromedp.ByID)); err != nil {
		return nil, fmt.Errorf("screenshot %s: %w", id, ErrWaitTimeout)
	}
	return buf, nil
}

// ScreenshotQuery captures a PNG of the first element matching a CSS
// selector, for elements that carry no stable id.
func (s *Session) ScreenshotQuery(ctx context.Context, sel string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf []byte
	if err := chromedp.Run(s.active(), chromedp.Screenshot(sel, &buf, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("screenshot %s: %w", sel, ErrWaitTimeout)
	}
	return buf, nil
}

// ViewState reads the server-issued view-state token from the most recent
// response's DOM. Every AJAX post must thread this token; a stale token
// makes the portal silently serve an empty page rather than an error.
func (s *Session) ViewState(ctx context.Context) (string, error) {
	var v string
	err := s.Eval(ctx, `document.querySelector("input[name='javax.faces.ViewState']")?.value ?? ""`, &v)
	return v, err
}

// Submit posts a snapshot of the identified form's current hidden and
// visible fields merged with the given overrides, and returns the
// response body. Unchecked checkboxes and radios are omitted, matching
// what the browser itself would send.
func (s *Session) Submit(ctx context.Context, formID string, overrides map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	formArg, err := json.Marshal(formID)
	if err != nil {
		return "", err
	}
	overrideArg, err := json.Marshal(overrides)
	if err != nil {
		return "", err
	}

	js := fmt.Sprintf(`(async () => {
		const form = document.getElementById(%s);
		if (!form) { throw new Error('form not found'); }
		const params = new URLSearchParams();
		for (const el of form.querySelectorAll('input, select, textarea')) {
			if (!el.name) continue;
			if ((el.type === 'checkbox' || el.type === 'radio') && !el.checked) continue;
			params.set(el.name, el.value);
		}
		for (const [k, v] of Object.entries(%s)) params.set(k, v);
		const resp = await fetch(form.action, {
			method: 'POST',
			headers: {'Content-Type': 'application/x-www-form-urlencoded; charset=UTF-8'},
			body: params.toString(),
			credentials: 'include',
		});
		return await resp.text();
	})()`, formArg, overrideArg)

	var body string
	runErr := chromedp.Run(s.active(), chromedp.Evaluate(js, &body,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if runErr != nil {
		return "", fmt.Errorf("submit form %s: %w", formID, ErrWaitTimeout)
	}
	return body, nil
}

// SwitchToNewWindow waits for a window the session has not seen before,
// attaches to it, and pushes it on the handle stack. The home handle was
// recorded at launch, so the way back is always deterministic.
func (s *Session) SwitchToNewWindow(ctx context.Context) error {
	known := map[target.ID]bool{s.homeID: true}
	for _, w := range s.windows {
		known[w.id] = true
	}

	var newID target.ID
	err := s.WaitFor(ctx, "new window", 0, func(context.Context) (bool, error) {
		infos, err := chromedp.Targets(s.browserCtx)
		if err != nil {
			return false, err
		}
		for _, info := range infos {
			if info.Type == "page" && !known[info.TargetID] {
				newID = info.TargetID
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoNewWindow, err)
	}

	wctx, cancel := chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(newID))
	s.windows = append(s.windows, window{id: newID, ctx: wctx, cancel: cancel})
	return nil
}

// CloseCurrentWindow closes the top of the handle stack and restores
// focus to the window beneath it, ultimately the home handle. Closing
// with no detail window open is a no-op.
func (s *Session) CloseCurrentWindow(ctx context.Context) error {
	n := len(s.windows)
	if n == 0 {
		return nil
	}
	top := s.windows[n-1]
	s.windows = s.windows[:n-1]

	err := chromedp.Run(top.ctx, page.Close())
	top.cancel()
	if err != nil {
		return fmt.Errorf("close window: %w", ErrSessionUnusable)
	}
	return nil
}

// DownloadAndClear waits for exactly one completed download to appear in
// the session's download directory, reads it, computes its checksum,
// deletes the file, and closes the window that triggered it.
//
// Zero files after the timeout means the portal blocked the download
// (access denied or a login redirect): the window is still closed and
// ErrDownloadBlocked is returned so the caller can record the attachment
// with nil content. A download stuck mid-transfer is a hard timeout.
func (s *Session) DownloadAndClear(ctx context.Context, timeout time.Duration) ([]byte, string, error) {
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}

	var path string
	waitErr := s.WaitFor(ctx, "download completed", timeout, func(context.Context) (bool, error) {
		done, pending, err := scanDownloadDir(s.downloadDir)
		if err != nil {
			return false, err
		}
		if pending {
			return false, nil
		}
		path = done
		return path != "", nil
	})
	if waitErr != nil {
		closeErr := s.CloseCurrentWindow(ctx)
		if _, pending, _ := scanDownloadDir(s.downloadDir); pending {
			s.clearDownloadDir()
			return nil, "", fmt.Errorf("download stuck: %w", ErrWaitTimeout)
		}
		if closeErr != nil {
			return nil, "", closeErr
		}
		return nil, "", ErrDownloadBlocked
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read download: %w", err)
	}
	sum := md5.Sum(content)
	_ = os.Remove(path)

	if err := s.CloseCurrentWindow(ctx); err != nil {
		return nil, "", err
	}
	return content, hex.EncodeToString(sum[:]), nil
}

// Healthy probes the browser with a trivial evaluation. A session that
// fails the probe is evicted from the pool and recreated lazily.
func (s *Session) Healthy(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(s.browserCtx, 5*time.Second)
	defer cancel()
	var one int
	return ctx.Err() == nil && chromedp.Run(probeCtx, chromedp.Evaluate("1", &one)) == nil
}

// Close shuts down the browser and removes the session-owned download
// directory.
func (s *Session) Close() error {
	for i := len(s.windows) - 1; i >= 0; i-- {
		s.windows[i].cancel()
	}
	s.windows = nil
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	if s.ownsDir && s.downloadDir != "" {
		_ = os.RemoveAll(s.downloadDir)
	}
	return nil
}

// clearDownloadDir removes everything in the download directory,
// including stuck partial files, so the next download starts clean.
func (s *Session) clearDownloadDir() {
	entries, err := os.ReadDir(s.downloadDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		_ = os.Remove(filepath.Join(s.downloadDir, e.Name()))
	}
}

// scanDownloadDir inspects a download directory and returns the path of a
// completed file, whether a transfer is still in flight, or neither.
func scanDownloadDir(dir string) (done string, pending bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".crdownload") || strings.HasSuffix(name, ".partial") || strings.HasSuffix(name, ".tmp") {
			return "", true, nil
		}
		if done == "" {
			done = filepath.Join(dir, name)
		}
	}
	return done, false, nil
}
