package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/artifactory/client"
)

// clearEnv unsets every AFCTL_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"AFCTL_URL", "AFCTL_USER", "AFCTL_PASSWORD", "AFCTL_API_KEY", "AFCTL_TIMEOUT", "AFCTL_RPS", "AFCTL_BURST"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	exp := Config{Timeout: defaultTimeout, UserAgent: defaultUserAgent}
	if diff := cmp.Diff(exp, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestLoad_DefaultPath(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "afctl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`url = "https://af.example.com/artifactory"`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.URL != "https://af.example.com/artifactory" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if DefaultPath() != filepath.Join(dir, "config.toml") {
		t.Errorf("DefaultPath = %q", DefaultPath())
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
url = "  https://af.example.com/artifactory  "
api_key = " key "
timeout = "45s"
rps = 10
burst = 5
user_agent = "ci-bot/2"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	exp := Config{
		URL:       "https://af.example.com/artifactory",
		APIKey:    "key",
		Timeout:   45 * time.Second,
		RPS:       10,
		Burst:     5,
		UserAgent: "ci-bot/2",
	}
	if diff := cmp.Diff(exp, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("exp valid config, got: %v", err)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	clearEnv(t)

	testCases := map[string]string{
		"bad toml":    `url = "unterminated`,
		"bad timeout": `timeout = "soon"`,
		"wrong type":  `rps = "ten"`,
	}

	for name, content := range testCases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
url = "https://file.example.com/artifactory"
user = "file-user"
password = "file-pass"
timeout = "10s"
`)

	t.Setenv("AFCTL_URL", "https://env.example.com/artifactory")
	t.Setenv("AFCTL_API_KEY", "env-key")
	t.Setenv("AFCTL_TIMEOUT", "1m")
	t.Setenv("AFCTL_RPS", "3")
	t.Setenv("AFCTL_BURST", "1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	exp := Config{
		URL:       "https://env.example.com/artifactory",
		APIKey:    "env-key",
		Timeout:   time.Minute,
		RPS:       3,
		Burst:     1,
		UserAgent: defaultUserAgent,
	}
	if diff := cmp.Diff(exp, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvBasicAuthReplacesFileKey(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
url = "https://file.example.com/artifactory"
api_key = "file-key"
`)
	t.Setenv("AFCTL_USER", "env-user")
	t.Setenv("AFCTL_PASSWORD", "env-pass")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIKey != "" || cfg.User != "env-user" || cfg.Password != "env-pass" {
		t.Errorf("unexpected credentials: user=%q password=%q key=%q", cfg.User, cfg.Password, cfg.APIKey)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	testCases := map[string]struct {
		key, value string
	}{
		"timeout": {key: "AFCTL_TIMEOUT", value: "forever"},
		"rps":     {key: "AFCTL_RPS", value: "fast"},
		"burst":   {key: "AFCTL_BURST", value: "-x"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
			if err == nil {
				t.Fatalf("expected error for %s=%q, got config %+v", tc.key, tc.value, cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Config{URL: "https://af.example.com/artifactory", APIKey: "k", Timeout: time.Second}

	testCases := map[string]struct {
		mutate   func(c *Config)
		expField string
	}{
		"valid":             {mutate: func(c *Config) {}},
		"basic auth":        {mutate: func(c *Config) { c.UseBasicAuth("u", "p") }},
		"missing url":       {mutate: func(c *Config) { c.URL = "" }, expField: "url"},
		"relative url":      {mutate: func(c *Config) { c.URL = "af.example.com" }, expField: "url"},
		"no credentials":    {mutate: func(c *Config) { c.APIKey = "" }, expField: "user"},
		"both credentials":  {mutate: func(c *Config) { c.User = "u" }, expField: "user"},
		"negative timeout":  {mutate: func(c *Config) { c.Timeout = -time.Second }, expField: "timeout"},
		"rps without burst": {mutate: func(c *Config) { c.RPS = 5 }, expField: "burst"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.expField == "" {
				if err != nil {
					t.Fatalf("exp nil err, got: %v", err)
				}
				return
			}

			if !errors.Is(err, client.ErrInvalidInput) {
				t.Fatalf("exp ErrInvalidInput, got: %v", err)
			}
			var inErr client.InputError
			if !errors.As(err, &inErr) {
				t.Fatalf("exp InputError, got: %T", err)
			}
			if _, ok := inErr.Fields()[tc.expField]; !ok {
				t.Errorf("exp field %q in %v", tc.expField, inErr.Fields())
			}
		})
	}
}

func TestClientOptions(t *testing.T) {
	testCases := map[string]Config{
		"api key":    {URL: "https://af.example.com", APIKey: "k", Timeout: time.Second, UserAgent: "afctl"},
		"basic auth": {URL: "https://af.example.com", User: "u", Password: "p", UserAgent: "afctl"},
		"throttled":  {URL: "https://af.example.com", APIKey: "k", RPS: 2, Burst: 1},
	}

	for name, cfg := range testCases {
		t.Run(name, func(t *testing.T) {
			c, err := client.Build(cfg.URL, cfg.ClientOptions()...)
			if err != nil {
				t.Fatalf("exp options to build a client, got: %v", err)
			}
			c.Close()
		})
	}
}

func TestTOML_RedactsSecrets(t *testing.T) {
	cfg := Config{URL: "https://af.example.com", User: "u", Password: "hunter2", Timeout: 30 * time.Second, UserAgent: "afctl"}

	b, err := cfg.TOML()
	if err != nil {
		t.Fatal(err)
	}

	out := string(b)
	if strings.Contains(out, "hunter2") {
		t.Errorf("password leaked:\n%s", out)
	}
	for _, want := range []string{"https://af.example.com", "30s", redacted} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
