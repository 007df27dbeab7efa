package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default YAML configuration file name.
const DefaultConfigFile = ".jusbr.yml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// envPrefix namespaces the environment variables read by LoadEnv.
const envPrefix = "JUSBR_"

// LoadEnv applies environment overrides to the config. A .env file in
// the working directory is loaded first, without clobbering variables
// already exported.
func (c *Config) LoadEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}

	if v, ok := lookup("DATA_DIR"); ok {
		c.DataDir = v
	}
	if v, ok := lookup("LISTEN_ADDR"); ok {
		c.ListenAddr = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		c.RedisAddr = v
		c.UseRedis = true
	}
	if v, ok := lookup("CAPTCHA_API_KEY"); ok {
		c.CaptchaAPIKey = v
	}
	if v, ok := lookup("PROXY_LIST"); ok {
		c.ProxyListPath = v
		c.UseProxy = true
	}
	if v, ok := lookup("TRIBUNALS"); ok {
		c.Tribunals = splitList(v)
	}
	if v, ok := lookup("USER_AGENT"); ok {
		c.UserAgent = v
	}

	var err error
	if v, ok := lookup("HEADLESS"); ok {
		if c.Headless, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("parse %sHEADLESS: %w", envPrefix, err)
		}
	}
	if v, ok := lookup("MAX_ATTEMPTS"); ok {
		if c.MaxAttempts, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("parse %sMAX_ATTEMPTS: %w", envPrefix, err)
		}
	}
	if v, ok := lookup("WAIT_TIMEOUT"); ok {
		if c.WaitTimeout, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("parse %sWAIT_TIMEOUT: %w", envPrefix, err)
		}
	}
	if v, ok := lookup("DOWNLOAD_TIMEOUT"); ok {
		if c.DownloadTimeout, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("parse %sDOWNLOAD_TIMEOUT: %w", envPrefix, err)
		}
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadConfigFile loads portal overrides from a YAML file. If the file
// does not exist it returns ErrConfigNotFound; callers decide whether
// that matters based on whether the path was explicit.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	if cf.Portals == nil {
		cf.Portals = make(map[string]PortalOverride)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file:
//  1. the explicit path, when given
//  2. .jusbr.yml in the current directory
//  3. config.yml in the XDG config directory
//  4. .jusbr.yml in the home directory
//
// It returns the first existing path, or empty when none is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(XDGConfigDir(), "config.yml")
	if _, err := os.Stat(p); err == nil {
		return p
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
