// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the kspmod command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	opts := &globalOptions{}
	inst := &installOptions{}

	rootCmd := &cobra.Command{
		Use:   "kspmod [ref...]",
		Short: "Install Kerbal Space Program mods",
		Long: TitleStyle.Render("kspmod") + SubtitleStyle.Render(" - Install Kerbal Space Program mods") + `

kspmod fetches a mod, finds its GameData folder and copies the contents
into your KSP GameData directory, replacing older copies of the same files.

` + SubtitleStyle.Render("References:") + `
  ./path/to/Mod                A mod directory on disk
  Mod-1.2.zip, Mod.tar.gz      A local archive
  url:https://host/mod.zip     A direct download (also http://:<url>)
  sd:<id>                      A SpaceDock mod id
  sds:<query>                  A SpaceDock search
  gh:<owner>/<repo>[/<ref>]    The latest GitHub release, or the source of <ref>
  git:<url>[#<ref>]            A shallow git clone`,
		Example: `  kspmod sd:123
  kspmod gh:KSPModdingLibs/KSPCommunityFixes ./MyMod
  kspmod --batch mods.toml --dest /games/KSP/GameData`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, app, opts, inst, args)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/kspmod/config.cue)")
	rootCmd.PersistentFlags().BoolVar(&opts.plain, "plain", false, "use line-based prompts instead of interactive forms")
	rootCmd.Flags().StringVarP(&inst.dest, "dest", "d", "", "KSP GameData directory to install into")
	rootCmd.Flags().StringVarP(&inst.batch, "batch", "b", "", "file listing references to install (TOML, YAML or one per line)")

	rootCmd.AddCommand(newSearchCommand(app, opts))
	rootCmd.AddCommand(newShowCommand(app, opts))
	rootCmd.AddCommand(newConfigCommand(app, opts))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command and exits with its status. It is called by
// main.main().
func Execute() {
	rootCmd := NewRootCommand(NewApp(Dependencies{}))

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
