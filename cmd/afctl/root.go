package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/artifactory/client"
	"github.com/adamwoolhether/artifactory/internal/config"
)

const rootHelp = `
afctl talks to an Artifactory instance over its REST API.

Connection settings are read from ~/.config/afctl/config.toml, then from
AFCTL_* environment variables, then from the flags below.
`

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	url        string
	user       string
	password   string
	apiKey     string
	timeout    time.Duration
	logLevel   string

	errOut io.Writer
	logger *slog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	g := &globalOptions{errOut: errOut}

	cmd := &cobra.Command{
		Use:           "afctl",
		Short:         "Artifactory command line client",
		Long:          rootHelp,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.initLogger()
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	f := cmd.PersistentFlags()
	f.StringVar(&g.configPath, "config", "", "path to the config file (default "+config.DefaultPath()+")")
	f.StringVar(&g.url, "url", "", "API root, e.g. https://host:8081/artifactory")
	f.StringVarP(&g.user, "user", "u", "", "username for basic auth")
	f.StringVarP(&g.password, "password", "p", "", "password for basic auth")
	f.StringVar(&g.apiKey, "api-key", "", "API key, sent as X-JFrog-Art-Api")
	f.DurationVar(&g.timeout, "timeout", 0, "overall timeout per request")
	f.StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newPingCmd(g, out),
		newSysInfoCmd(g, out),
		newVersionCmd(g, out),
		newInfoCmd(g, out),
		newDeployCmd(g, out),
		newDeleteCmd(g, out),
		newPropsCmd(g, out),
		newDownloadCmd(g, out),
		newConfigCmd(g, out),
	)

	return cmd
}

func (g *globalOptions) initLogger() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(g.logLevel))); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", g.logLevel, err)
	}

	g.logger = slog.New(slog.NewTextHandler(g.errOut, &slog.HandlerOptions{Level: level}))

	return nil
}

// config resolves the effective configuration: file, then environment,
// then any flags set on cmd.
func (g *globalOptions) config(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.URL = g.url
	}
	switch {
	case flags.Changed("api-key"):
		cfg.UseAPIKey(g.apiKey)
	case flags.Changed("user"):
		cfg.UseBasicAuth(g.user, g.password)
	case flags.Changed("password"):
		cfg.Password = g.password
	}
	if flags.Changed("timeout") {
		cfg.Timeout = g.timeout
	}

	return cfg, nil
}

// client builds a validated client. The caller must Close it.
func (g *globalOptions) client(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := g.config(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	opts := append(cfg.ClientOptions(), client.WithLogger(g.logger))

	return client.Build(cfg.URL, opts...)
}

// withClient runs fn with a client built from the resolved configuration.
func (g *globalOptions) withClient(cmd *cobra.Command, fn func(c *client.Client) error) error {
	c, err := g.client(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(c)
}
