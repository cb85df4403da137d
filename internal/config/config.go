package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/adamwoolhether/artifactory/client"
)

// Config is the resolved afctl configuration.
type Config struct {
	URL       string        `arg:"url" validate:"required,url"`
	User      string        `arg:"user" validate:"required_without=APIKey,excluded_with=APIKey"`
	Password  string        `arg:"password"`
	APIKey    string        `arg:"api_key"`
	Timeout   time.Duration `arg:"timeout" validate:"gte=0"`
	RPS       int           `arg:"rps" validate:"gte=0"`
	Burst     int           `arg:"burst" validate:"gte=0,required_with=RPS"`
	UserAgent string        `arg:"user_agent"`
}

const (
	defaultConfigPath = "~/.config/afctl/config.toml"
	defaultTimeout    = 30 * time.Second
	defaultUserAgent  = "afctl"

	redacted = "<redacted>"
)

// file mirrors config.toml.
type file struct {
	URL       string `toml:"url"`
	User      string `toml:"user"`
	Password  string `toml:"password"`
	APIKey    string `toml:"api_key"`
	Timeout   string `toml:"timeout"`
	RPS       int    `toml:"rps"`
	Burst     int    `toml:"burst"`
	UserAgent string `toml:"user_agent"`
}

// env holds the AFCTL_* overrides. Numeric fields are strict: a malformed
// value fails Load.
type env struct {
	URL      string        `env:"AFCTL_URL"`
	User     string        `env:"AFCTL_USER"`
	Password string        `env:"AFCTL_PASSWORD"`
	APIKey   string        `env:"AFCTL_API_KEY"`
	Timeout  time.Duration `env:"AFCTL_TIMEOUT,strict"`
	RPS      int           `env:"AFCTL_RPS,strict"`
	Burst    int           `env:"AFCTL_BURST,strict"`
}

// Load reads the config file at path, or the default location when path
// is empty, and overlays the AFCTL_* environment. A missing file is not
// an error. The result is not validated; call [Config.Validate] once any
// flag overrides are applied.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{Timeout: defaultTimeout, UserAgent: defaultUserAgent}

	raw, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyFile(raw); err != nil {
		return Config{}, err
	}

	var e env
	if err := envdecode.Decode(&e); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}
	cfg.applyEnv(e)

	return cfg, nil
}

// DefaultPath returns the expanded default config file location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

// Validate checks that the config can build a client.
func (c Config) Validate() error {
	return client.Validate(c)
}

// UseBasicAuth replaces any configured credentials with user and password.
func (c *Config) UseBasicAuth(user, password string) {
	c.User, c.Password, c.APIKey = user, password, ""
}

// UseAPIKey replaces any configured credentials with key.
func (c *Config) UseAPIKey(key string) {
	c.User, c.Password, c.APIKey = "", "", key
}

// ClientOptions translates the config into client options.
func (c Config) ClientOptions() []client.Option {
	opts := []client.Option{
		client.WithTimeout(c.Timeout),
		client.WithUserAgent(c.UserAgent),
	}

	if c.APIKey != "" {
		opts = append(opts, client.WithAPIKey(c.APIKey))
	} else {
		opts = append(opts, client.WithBasicAuth(c.User, c.Password))
	}

	if c.RPS > 0 {
		opts = append(opts, client.WithThrottle(c.RPS, c.Burst))
	}

	return opts
}

// TOML renders the config in file form with secrets redacted.
func (c Config) TOML() ([]byte, error) {
	out := file{
		URL:       c.URL,
		User:      c.User,
		Timeout:   c.Timeout.String(),
		RPS:       c.RPS,
		Burst:     c.Burst,
		UserAgent: c.UserAgent,
	}
	if c.Password != "" {
		out.Password = redacted
	}
	if c.APIKey != "" {
		out.APIKey = redacted
	}

	b, err := toml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	return b, nil
}

func (c *Config) applyFile(b []byte) error {
	if b == nil {
		return nil
	}

	var raw file
	if err := toml.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	c.URL = strings.TrimSpace(raw.URL)
	c.User = strings.TrimSpace(raw.User)
	c.Password = raw.Password
	c.APIKey = strings.TrimSpace(raw.APIKey)
	c.RPS = raw.RPS
	c.Burst = raw.Burst

	if ua := strings.TrimSpace(raw.UserAgent); ua != "" {
		c.UserAgent = ua
	}

	if t := strings.TrimSpace(raw.Timeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("parse config: timeout: %w", err)
		}
		c.Timeout = d
	}

	return nil
}

// applyEnv overlays the set variables. Credentials from the environment
// replace those from the file as a whole.
func (c *Config) applyEnv(e env) {
	if e.URL != "" {
		c.URL = e.URL
	}

	switch {
	case e.APIKey != "":
		c.UseAPIKey(e.APIKey)
	case e.User != "":
		c.UseBasicAuth(e.User, e.Password)
	case e.Password != "":
		c.Password = e.Password
	}

	if e.Timeout != 0 {
		c.Timeout = e.Timeout
	}
	if e.RPS != 0 {
		c.RPS = e.RPS
	}
	if e.Burst != 0 {
		c.Burst = e.Burst
	}
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return b, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
