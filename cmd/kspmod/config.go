// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kspmod/kspmod/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `kspmod config` command tree.
func newConfigCommand(app *App, opts *globalOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage kspmod configuration",
		Long: `Manage kspmod configuration.

Configuration is stored in:
  - Linux: ~/.config/kspmod/config.cue
  - macOS: ~/Library/Application Support/kspmod/config.cue
  - Windows: %APPDATA%\kspmod\config.cue

Every key can also be set through the environment, e.g.
KSPMOD_PAYLOAD_DIR or KSPMOD_DOWNLOAD_CHUNK_SIZE.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := app.loadConfig(cmd.Context(), opts)
			if err != nil {
				return failed(cmd.ErrOrStderr(), err, opts.verbose, config.ColorSchemeAuto)
			}
			showConfig(cmd.OutOrStdout(), cfg, configSource(opts.cfgFile))
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			path, err := config.WriteDefault("", force)
			if err != nil {
				if errors.Is(err, config.ErrConfigExists) {
					fmt.Fprintf(cmd.OutOrStdout(), "Configuration file already exists: %s\n", path)
					fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("Use --force to overwrite it."))
					return nil
				}
				return failed(cmd.ErrOrStderr(), err, opts.verbose, config.ColorSchemeAuto)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Created configuration file: ")+path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), configSource(opts.cfgFile))
			return nil
		},
	})

	return cfgCmd
}

// configSource returns the file the configuration is read from.
func configSource(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return "(unknown)"
	}
	return filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s:\n", keyStyle.Render("destinations"))
	if len(cfg.Destinations) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, d := range cfg.Destinations {
		fmt.Fprintf(w, "  - %s\n", valueStyle.Render(d))
	}
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("payload_dir"), valueStyle.Render(cfg.PayloadDir))

	section := func(name string, kv ...string) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s:\n", keyStyle.Render(name))
		for i := 0; i+1 < len(kv); i += 2 {
			fmt.Fprintf(w, "  %s: %s\n", kv[i], valueStyle.Render(kv[i+1]))
		}
	}
	section("registry", "base_url", cfg.Registry.BaseURL)
	section("github", "api_url", cfg.GitHub.APIURL, "archive_url", cfg.GitHub.ArchiveURL)
	section("download",
		"chunk_size", fmt.Sprint(cfg.Download.ChunkSize),
		"bar_width", fmt.Sprint(cfg.Download.BarWidth),
		"allow_unknown_length", fmt.Sprint(cfg.Download.AllowUnknownLength))
	section("ui",
		"color_scheme", cfg.UI.ColorScheme.String(),
		"verbose", fmt.Sprint(cfg.UI.Verbose),
		"plain", fmt.Sprint(cfg.UI.Plain),
		"accessible", fmt.Sprint(cfg.UI.Accessible),
		"theme", cfg.UI.Theme)
}
