// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kspmod/kspmod/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "kspmod"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. KSPMOD_DOWNLOAD_CHUNK_SIZE.
	EnvPrefix = "KSPMOD"

	maxConfigFileSize = 1 << 20
)

var (
	//go:embed config_schema.cue
	configSchema string

	// ErrConfigExists is returned by WriteDefault when a config file is already present.
	ErrConfigExists = errors.New("config file already exists")

	userHomeDir = os.UserHomeDir
)

// ConfigDir returns the kspmod configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := userHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := userHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load resolves the configuration: built-in defaults, then the CUE config
// file (explicit path, or <config dir>/config.cue when present), then
// KSPMOD_* environment variables. It returns the path of the file that was
// read, or "" when only defaults and environment applied.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, explicit, err := opts.resolvePath()
	if err != nil {
		return nil, "", err
	}

	resolvedPath := ""
	switch {
	case explicit && !fileExists(path):
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Run 'kspmod config init' to create a default file").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	case fileExists(path):
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
		resolvedPath = path
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check KSPMOD_* environment variables as well as the config file").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("destinations", defaults.Destinations)
	v.SetDefault("payload_dir", defaults.PayloadDir)
	v.SetDefault("registry.base_url", defaults.Registry.BaseURL)
	v.SetDefault("github.api_url", defaults.GitHub.APIURL)
	v.SetDefault("github.archive_url", defaults.GitHub.ArchiveURL)
	v.SetDefault("download.chunk_size", defaults.Download.ChunkSize)
	v.SetDefault("download.bar_width", defaults.Download.BarWidth)
	v.SetDefault("download.allow_unknown_length", defaults.Download.AllowUnknownLength)
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.plain", defaults.UI.Plain)
	v.SetDefault("ui.accessible", defaults.UI.Accessible)
	v.SetDefault("ui.theme", defaults.UI.Theme)
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Fields are optional in the schema, so validation uses Concrete(false) and
// the decoded map is merged over the defaults rather than replacing them.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("%s: file too large (%d bytes, limit %d)", path, len(data), maxConfigFileSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// formatCUEError flattens a CUE error list into one message per line, each
// prefixed with its position when CUE knows it.
func formatCUEError(err error, path string) error {
	details := strings.TrimSpace(cueerrors.Details(err, nil))
	if details == "" {
		return fmt.Errorf("%s: %w", path, err)
	}
	return fmt.Errorf("%s: %s", path, details)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes the default configuration as CUE into dir (the
// platform config directory when dir is empty) and returns the file path.
// An existing file is only replaced when force is set.
func WriteDefault(dir string, force bool) (string, error) {
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return cfgPath, fmt.Errorf("%w: %s", ErrConfigExists, cfgPath)
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// kspmod configuration file\n\n")

	sb.WriteString("// Candidate KSP GameData folders, tried in order.\n")
	sb.WriteString("destinations: [\n")
	for _, d := range cfg.Destinations {
		fmt.Fprintf(&sb, "\t%q,\n", d)
	}
	sb.WriteString("]\n\n")

	fmt.Fprintf(&sb, "payload_dir: %q\n", cfg.PayloadDir)

	sb.WriteString("\nregistry: {\n")
	fmt.Fprintf(&sb, "\tbase_url: %q\n", cfg.Registry.BaseURL)
	sb.WriteString("}\n")

	sb.WriteString("\ngithub: {\n")
	fmt.Fprintf(&sb, "\tapi_url:     %q\n", cfg.GitHub.APIURL)
	fmt.Fprintf(&sb, "\tarchive_url: %q\n", cfg.GitHub.ArchiveURL)
	sb.WriteString("}\n")

	sb.WriteString("\ndownload: {\n")
	fmt.Fprintf(&sb, "\tchunk_size:           %d\n", cfg.Download.ChunkSize)
	fmt.Fprintf(&sb, "\tbar_width:            %d\n", cfg.Download.BarWidth)
	fmt.Fprintf(&sb, "\tallow_unknown_length: %v\n", cfg.Download.AllowUnknownLength)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tplain:        %v\n", cfg.UI.Plain)
	fmt.Fprintf(&sb, "\taccessible:   %v\n", cfg.UI.Accessible)
	fmt.Fprintf(&sb, "\ttheme:        %q\n", cfg.UI.Theme)
	sb.WriteString("}\n")

	return sb.String()
}
