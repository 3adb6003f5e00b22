// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces the dark markdown style.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces the light markdown style.
	ColorSchemeLight ColorScheme = "light"
	// ColorSchemeNone renders markdown without colors.
	ColorSchemeNone ColorScheme = "notty"

	// DefaultTheme is the plain prompt theme.
	DefaultTheme = "default"

	// DefaultPayloadDir is the folder name a mod's installable content lives under.
	DefaultPayloadDir = "GameData"
	// DefaultRegistryURL is the SpaceDock mod registry.
	DefaultRegistryURL = "https://spacedock.info"
	// DefaultGitHubAPIURL is the GitHub REST API root.
	DefaultGitHubAPIURL = "https://api.github.com"
	// DefaultGitHubArchiveURL is the host serving repository source archives.
	DefaultGitHubArchiveURL = "https://github.com"
	// DefaultChunkSize is the number of bytes read per download step.
	DefaultChunkSize = 32 * 1024
	// DefaultBarWidth is the width of the download progress bar in cells.
	DefaultBarWidth = 40

	kspGameData = "Kerbal Space Program/GameData"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	// themes are the accepted ui.theme values.
	themes = []string{DefaultTheme, "charm", "dracula"}

	// steamLibraries are the Steam "common" folders searched for a KSP install,
	// in order. Entries starting with "~" are relative to the user's home.
	steamLibraries = []string{
		"C:/Program Files (x86)/Steam/steamapps/common",
		"C:/Program Files/Steam/steamapps/common",
		"~/.local/share/Steam/steamapps/common",
		"~/.steam/steam/steamapps/common",
		"~/.var/app/com.valvesoftware.Steam/data/Steam/steamapps/common",
		"~/Library/Application Support/Steam/steamapps/common",
	}
)

type (
	// ColorScheme selects the glamour style used for markdown output.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidConfigError collects every field-level problem of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the complete kspmod configuration.
	Config struct {
		// Destinations are candidate GameData folders, tried in order.
		Destinations []string `json:"destinations" mapstructure:"destinations"`
		// PayloadDir is the folder name searched for inside a mod.
		PayloadDir string `json:"payload_dir" mapstructure:"payload_dir"`
		// Registry configures the SpaceDock client.
		Registry RegistryConfig `json:"registry" mapstructure:"registry"`
		// GitHub configures release lookups and source archive downloads.
		GitHub GitHubConfig `json:"github" mapstructure:"github"`
		// Download configures transfers and their progress display.
		Download DownloadConfig `json:"download" mapstructure:"download"`
		// UI configures prompts and output.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	RegistryConfig struct {
		BaseURL string `json:"base_url" mapstructure:"base_url"`
	}

	GitHubConfig struct {
		APIURL     string `json:"api_url" mapstructure:"api_url"`
		ArchiveURL string `json:"archive_url" mapstructure:"archive_url"`
	}

	DownloadConfig struct {
		// ChunkSize is the read size in bytes.
		ChunkSize int `json:"chunk_size" mapstructure:"chunk_size"`
		// BarWidth is the progress bar width in cells.
		BarWidth int `json:"bar_width" mapstructure:"bar_width"`
		// AllowUnknownLength accepts responses without Content-Length.
		AllowUnknownLength bool `json:"allow_unknown_length" mapstructure:"allow_unknown_length"`
	}

	UIConfig struct {
		// ColorScheme sets the markdown style
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging and full error chains
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// Plain forces line-based prompts even on a terminal
		Plain bool `json:"plain" mapstructure:"plain"`
		// Accessible renders forms in accessible mode
		Accessible bool `json:"accessible" mapstructure:"accessible"`
		// Theme selects the form prompt theme: default, charm or dracula
		Theme string `json:"theme" mapstructure:"theme"`
	}
)

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light, notty)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Validate returns nil if the ColorScheme is one of the defined schemes.
func (c ColorScheme) Validate() error {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight, ColorSchemeNone:
		return nil
	default:
		return &InvalidColorSchemeError{Value: c}
	}
}

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks constraints the CUE schema does not see, such as values
// coming from environment overrides.
func (c *Config) Validate() error {
	var errs []error
	if c.PayloadDir == "" || strings.ContainsAny(c.PayloadDir, `/\*?[{`) {
		errs = append(errs, fmt.Errorf("payload_dir %q must be a plain folder name", c.PayloadDir))
	}
	if c.Download.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("download.chunk_size must be positive, got %d", c.Download.ChunkSize))
	}
	if c.Download.BarWidth <= 0 {
		errs = append(errs, fmt.Errorf("download.bar_width must be positive, got %d", c.Download.BarWidth))
	}
	if err := c.UI.ColorScheme.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(themes, c.UI.Theme) {
		errs = append(errs, fmt.Errorf("ui.theme %q must be one of %s", c.UI.Theme, strings.Join(themes, ", ")))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// DefaultDestinations returns the GameData folders of the known Steam
// library locations. home may be empty, in which case home-relative
// locations are omitted.
func DefaultDestinations(home string) []string {
	dests := make([]string, 0, len(steamLibraries))
	for _, lib := range steamLibraries {
		if rest, ok := strings.CutPrefix(lib, "~/"); ok {
			if home == "" {
				continue
			}
			lib = filepath.ToSlash(filepath.Join(home, rest))
		}
		dests = append(dests, lib+"/"+kspGameData)
	}
	return dests
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	home, _ := userHomeDir()
	return &Config{
		Destinations: DefaultDestinations(home),
		PayloadDir:   DefaultPayloadDir,
		Registry: RegistryConfig{
			BaseURL: DefaultRegistryURL,
		},
		GitHub: GitHubConfig{
			APIURL:     DefaultGitHubAPIURL,
			ArchiveURL: DefaultGitHubArchiveURL,
		},
		Download: DownloadConfig{
			ChunkSize: DefaultChunkSize,
			BarWidth:  DefaultBarWidth,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Theme:       DefaultTheme,
		},
	}
}
