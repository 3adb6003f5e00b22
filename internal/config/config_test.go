// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/kspmod/kspmod/internal/issue"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.PayloadDir != "GameData" {
		t.Errorf("PayloadDir = %q, want GameData", cfg.PayloadDir)
	}
	if cfg.Registry.BaseURL != "https://spacedock.info" {
		t.Errorf("Registry.BaseURL = %q", cfg.Registry.BaseURL)
	}
	if cfg.Download.ChunkSize != 32*1024 {
		t.Errorf("Download.ChunkSize = %d, want 32768", cfg.Download.ChunkSize)
	}
	if cfg.Download.BarWidth != 40 {
		t.Errorf("Download.BarWidth = %d, want 40", cfg.Download.BarWidth)
	}
	if cfg.Download.AllowUnknownLength {
		t.Error("AllowUnknownLength should default to false")
	}
	if cfg.UI.Theme != DefaultTheme {
		t.Errorf("UI.Theme = %q, want %q", cfg.UI.Theme, DefaultTheme)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestDefaultDestinations(t *testing.T) {
	t.Parallel()

	withHome := DefaultDestinations("/home/jeb")
	if len(withHome) < 3 {
		t.Fatalf("expected Steam paths plus home-relative ones, got %v", withHome)
	}
	if withHome[0] != "C:/Program Files (x86)/Steam/steamapps/common/Kerbal Space Program/GameData" {
		t.Errorf("first destination = %q", withHome[0])
	}
	if withHome[1] != "C:/Program Files/Steam/steamapps/common/Kerbal Space Program/GameData" {
		t.Errorf("second destination = %q", withHome[1])
	}
	if !slices.Contains(withHome, "/home/jeb/.local/share/Steam/steamapps/common/Kerbal Space Program/GameData") {
		t.Errorf("missing XDG Steam library in %v", withHome)
	}

	noHome := DefaultDestinations("")
	if len(noHome) != 2 {
		t.Errorf("without a home directory only the absolute paths remain, got %v", noHome)
	}
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}
	if cfg.PayloadDir != DefaultPayloadDir || cfg.Download.ChunkSize != DefaultChunkSize {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := writeConfig(t, dir, `
destinations: ["/games/ksp/GameData"]
download: chunk_size: 1024
ui: color_scheme: "notty"
ui: theme: "dracula"
`)

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != want {
		t.Errorf("resolved path = %q, want %q", path, want)
	}
	if !slices.Equal(cfg.Destinations, []string{"/games/ksp/GameData"}) {
		t.Errorf("Destinations = %v", cfg.Destinations)
	}
	if cfg.Download.ChunkSize != 1024 {
		t.Errorf("ChunkSize = %d, want 1024", cfg.Download.ChunkSize)
	}
	if cfg.Download.BarWidth != DefaultBarWidth {
		t.Errorf("BarWidth = %d, want default %d", cfg.Download.BarWidth, DefaultBarWidth)
	}
	if cfg.UI.ColorScheme != ColorSchemeNone {
		t.Errorf("ColorScheme = %q", cfg.UI.ColorScheme)
	}
	if cfg.UI.Theme != "dracula" {
		t.Errorf("Theme = %q, want dracula", cfg.UI.Theme)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "negative chunk size", content: `download: chunk_size: -1`},
		{name: "unknown field", content: `mirrors: ["x"]`},
		{name: "payload dir with slash", content: `payload_dir: "Game/Data"`},
		{name: "bad color scheme", content: `ui: color_scheme: "neon"`},
		{name: "bad theme", content: `ui: theme: "neon"`},
		{name: "syntax error", content: `download: {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("Load() should fail")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error should be *issue.ActionableError, got %T", err)
			}
			if ae.Issue != issue.ConfigLoadFailedId {
				t.Errorf("Issue = %d, want ConfigLoadFailedId", ae.Issue)
			}
		})
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.cue")
	_, _, err := Load(context.Background(), LoadOptions{ConfigFilePath: missing})
	if err == nil {
		t.Fatal("Load() should fail for a missing explicit file")
	}
	if !strings.Contains(err.Error(), "nope.cue") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("KSPMOD_DOWNLOAD_ALLOW_UNKNOWN_LENGTH", "true")
	t.Setenv("KSPMOD_PAYLOAD_DIR", "Ships")

	cfg, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Download.AllowUnknownLength {
		t.Error("AllowUnknownLength should be set from the environment")
	}
	if cfg.PayloadDir != "Ships" {
		t.Errorf("PayloadDir = %q, want Ships", cfg.PayloadDir)
	}
}

func TestLoad_EnvironmentValidated(t *testing.T) {
	t.Setenv("KSPMOD_UI_COLOR_SCHEME", "neon")

	_, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := WriteDefault(dir, false)
	if err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}

	cfg, resolved, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("generated config should load: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if !slices.Equal(cfg.Destinations, DefaultConfig().Destinations) {
		t.Errorf("Destinations = %v", cfg.Destinations)
	}

	if _, err := WriteDefault(dir, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second WriteDefault() error = %v, want ErrConfigExists", err)
	}
	if _, err := WriteDefault(dir, true); err != nil {
		t.Errorf("forced WriteDefault() error: %v", err)
	}
}

func TestColorScheme_Validate(t *testing.T) {
	t.Parallel()

	for _, c := range []ColorScheme{ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight, ColorSchemeNone} {
		if err := c.Validate(); err != nil {
			t.Errorf("%q should be valid: %v", c, err)
		}
	}
	err := ColorScheme("neon").Validate()
	if !errors.Is(err, ErrInvalidColorScheme) {
		t.Errorf("Validate() = %v, want ErrInvalidColorScheme", err)
	}
}

func TestValidate_Theme(t *testing.T) {
	t.Parallel()

	for _, theme := range []string{"default", "charm", "dracula"} {
		cfg := DefaultConfig()
		cfg.UI.Theme = theme
		if err := cfg.Validate(); err != nil {
			t.Errorf("theme %q should be valid: %v", theme, err)
		}
	}

	cfg := DefaultConfig()
	cfg.UI.Theme = "neon"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
	}
}

func TestProvider_Load(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `payload_dir: "Parts"`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Provider.Load() error: %v", err)
	}
	if cfg.PayloadDir != "Parts" {
		t.Errorf("PayloadDir = %q, want Parts", cfg.PayloadDir)
	}
}
