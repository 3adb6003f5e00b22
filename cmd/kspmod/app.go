// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/kspmod/kspmod/internal/config"
	"github.com/kspmod/kspmod/internal/github"
	"github.com/kspmod/kspmod/internal/payload"
	"github.com/kspmod/kspmod/internal/source"
	"github.com/kspmod/kspmod/internal/spacedock"
	"github.com/kspmod/kspmod/internal/tui"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. All command handlers
	// receive an App and take configuration and streams from it.
	App struct {
		Config     ConfigProvider
		HTTPClient *http.Client
		stdin      io.Reader
		stdout     io.Writer
		stderr     io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config     ConfigProvider
		HTTPClient *http.Client
		Stdin      io.Reader
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// globalOptions are the persistent root flags.
	globalOptions struct {
		verbose bool
		cfgFile string
		plain   bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}

	return &App{
		Config:     deps.Config,
		HTTPClient: deps.HTTPClient,
		stdin:      deps.Stdin,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}
}

// loadConfig loads the configuration and applies flags on top of it.
func (a *App) loadConfig(ctx context.Context, opts *globalOptions) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: opts.cfgFile})
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.UI.Verbose = true
	}
	if opts.plain {
		cfg.UI.Plain = true
	}
	return cfg, nil
}

func (a *App) newLogger(cfg *config.Config) *log.Logger {
	level := log.WarnLevel
	if cfg.UI.Verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: "kspmod",
		Level:  level,
	})
}

func (a *App) newPrompter(cfg *config.Config) tui.Prompter {
	tc := tui.DefaultConfig()
	tc.Input = a.stdin
	tc.Output = a.stdout
	tc.Plain = cfg.UI.Plain
	tc.Theme = tui.Theme(cfg.UI.Theme)
	tc.Accessible = tc.Accessible || cfg.UI.Accessible
	return tui.New(tc)
}

func (a *App) newRegistry(cfg *config.Config) *spacedock.Client {
	return spacedock.NewClient(
		spacedock.WithHTTPClient(a.HTTPClient),
		spacedock.WithBaseURL(cfg.Registry.BaseURL),
		spacedock.WithUserAgent(userAgent()),
	)
}

func (a *App) newResolver(cfg *config.Config, p tui.Prompter, logger *log.Logger) *source.Resolver {
	releases := github.NewClient(
		github.WithHTTPClient(a.HTTPClient),
		github.WithBaseURL(cfg.GitHub.APIURL),
		github.WithArchiveURL(cfg.GitHub.ArchiveURL),
		github.WithToken(os.Getenv("GITHUB_TOKEN")),
		github.WithUserAgent(userAgent()),
	)
	downloader := source.NewDownloader(
		source.WithHTTPClient(a.HTTPClient),
		source.WithChunkSize(cfg.Download.ChunkSize),
		source.WithBarWidth(cfg.Download.BarWidth),
		source.WithAllowUnknownLength(cfg.Download.AllowUnknownLength),
		source.WithProgressOutput(a.stdout),
		source.WithDownloadUserAgent(userAgent()),
		source.WithDownloadLogger(logger),
	)

	var cloneProgress io.Writer
	if cfg.UI.Verbose {
		cloneProgress = a.stderr
	}

	return source.NewResolver(p,
		source.WithRegistry(a.newRegistry(cfg)),
		source.WithReleases(releases),
		source.WithDownloader(downloader),
		source.WithCloner(source.NewGitFetcher(cloneProgress)),
		source.WithOutput(a.stdout),
		source.WithLogger(logger),
	)
}

func (a *App) newLocator(cfg *config.Config, p tui.Prompter, logger *log.Logger) *payload.Locator {
	return payload.NewLocator(p,
		payload.WithFolder(cfg.PayloadDir),
		payload.WithOutput(a.stdout),
		payload.WithLogger(logger),
	)
}

func userAgent() string {
	return "kspmod/" + Version
}
