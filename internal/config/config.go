package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/arturlm/jusbr/internal/model"
)

// Default configuration values. The timeouts are generous because the
// tribunal portals render search results asynchronously over JSF or
// legacy PHP backends and routinely take tens of seconds under load.
const (
	// DefaultWaitTimeout bounds each wait for a portal page element.
	DefaultWaitTimeout = 50 * time.Second

	// DefaultDownloadTimeout bounds one attachment download.
	DefaultDownloadTimeout = 60 * time.Second

	// DefaultMaxAttempts is the retry budget per crawl task, counting
	// the first attempt.
	DefaultMaxAttempts = 5

	// DefaultListenAddr is where the query API listens.
	DefaultListenAddr = ":8420"

	// DefaultRedisAddr is the conventional local Redis address.
	DefaultRedisAddr = "127.0.0.1:6379"

	// DefaultUserAgent is sent by the crawl browser. Portals block the
	// headless Chrome default UA, so a desktop UA is used instead.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

	// AppName names the XDG directories.
	AppName = "jusbr"
)

// Config holds every runtime option, populated from defaults, the
// environment and CLI flags, in that order. One flat struct: it is
// passed by dependency injection, never through globals.
type Config struct {
	// DataDir is where the SQLite database and download scratch space
	// live. Defaults to the XDG data directory.
	DataDir string

	// ListenAddr is the query API's listen address.
	ListenAddr string

	// UseRedis selects the Redis-backed task queue instead of the
	// in-process one. Required when workers run in separate processes.
	UseRedis bool

	// RedisAddr is the Redis server address, used when UseRedis is set.
	RedisAddr string

	// Headless controls whether crawl browsers run without a display.
	// Disabled only for local portal debugging.
	Headless bool

	// UserAgent overrides the browser User-Agent.
	UserAgent string

	// WaitTimeout bounds each wait for a portal element.
	WaitTimeout time.Duration

	// DownloadTimeout bounds one attachment download.
	DownloadTimeout time.Duration

	// MaxAttempts is the per-task retry budget, counting the first
	// attempt.
	MaxAttempts int

	// CaptchaAPIKey authenticates against the captcha solving service.
	// Empty disables solving; portals guarded by a captcha then refuse
	// the search.
	CaptchaAPIKey string

	// UseProxy routes each browser session through the fastest probed
	// proxy from ProxyListPath.
	UseProxy bool

	// ProxyListPath is a file with one proxy URL per line.
	ProxyListPath string

	// Tribunals restricts which tribunals a worker consumes. Empty
	// means all of them.
	Tribunals []string

	// Verbose lowers the log level to debug.
	Verbose bool

	// PortalFile holds per-portal overrides loaded from the YAML config
	// file, or nil when no file was found.
	PortalFile *File

	// ConfigFilePath is an explicit config file path; empty triggers
	// the default search order.
	ConfigFilePath string
}

// NewConfig returns a Config with defaults applied.
func NewConfig() *Config {
	return &Config{
		DataDir:         XDGDataDir(),
		ListenAddr:      DefaultListenAddr,
		RedisAddr:       DefaultRedisAddr,
		Headless:        true,
		UserAgent:       DefaultUserAgent,
		WaitTimeout:     DefaultWaitTimeout,
		DownloadTimeout: DefaultDownloadTimeout,
		MaxAttempts:     DefaultMaxAttempts,
	}
}

// XDGDataDir returns the XDG data directory (~/.local/share/jusbr on
// Linux).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory (~/.config/jusbr on
// Linux).
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory (~/.cache/jusbr on Linux).
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// TribunalFilter resolves the worker tribunal filter. Empty means every
// tribunal.
func (c *Config) TribunalFilter() ([]model.Tribunal, error) {
	if len(c.Tribunals) == 0 {
		return model.AllTribunals(), nil
	}
	tribunals := make([]model.Tribunal, 0, len(c.Tribunals))
	for _, name := range c.Tribunals {
		tribunal, err := model.ParseTribunal(name)
		if err != nil {
			return nil, ErrInvalidTribunal
		}
		tribunals = append(tribunals, tribunal)
	}
	return tribunals, nil
}

// Validate returns the first problem found, called once after flag and
// environment parsing.
func (c *Config) Validate() error {
	if c.WaitTimeout <= 0 {
		return ErrInvalidWaitTimeout
	}
	if c.DownloadTimeout <= 0 {
		return ErrInvalidDownloadTimeout
	}
	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.ListenAddr == "" {
		return ErrInvalidListenAddr
	}
	if c.UseRedis && c.RedisAddr == "" {
		return ErrInvalidRedisAddr
	}
	if c.UseProxy && c.ProxyListPath == "" {
		return ErrProxyListRequired
	}
	if _, err := c.TribunalFilter(); err != nil {
		return err
	}
	return nil
}
