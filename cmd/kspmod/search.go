// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/kspmod/kspmod/internal/config"
	"github.com/kspmod/kspmod/internal/source"

	"github.com/spf13/cobra"
)

func newSearchCommand(app *App, opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search SpaceDock for mods",
		Long: `Search SpaceDock for mods and list the matches with their ids.

Install a match with 'kspmod sd:<id>', or search and pick interactively
with 'kspmod sds:<query>'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := app.loadConfig(cmd.Context(), opts)
			if err != nil {
				return failed(cmd.ErrOrStderr(), err, opts.verbose, config.ColorSchemeAuto)
			}

			query := strings.Join(args, " ")
			mods, err := app.newRegistry(cfg).Search(cmd.Context(), query)
			if err != nil {
				return failed(cmd.ErrOrStderr(), err, cfg.UI.Verbose, cfg.UI.ColorScheme)
			}
			if len(mods) == 0 {
				return failed(cmd.ErrOrStderr(), fmt.Errorf("%q: %w", query, source.ErrNoResults), cfg.UI.Verbose, cfg.UI.ColorScheme)
			}

			w := cmd.OutOrStdout()
			for _, m := range mods {
				fmt.Fprintf(w, "%s %s %s\n",
					CmdStyle.Render(fmt.Sprintf("sd:%d", m.ID)),
					TitleStyle.Render(m.Name),
					SubtitleStyle.Render(fmt.Sprintf("- %s (%s)", m.ShortDescription, m.Author)))
			}
			return nil
		},
	}
}
