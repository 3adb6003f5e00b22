// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kspmod/kspmod/internal/config"
	"github.com/kspmod/kspmod/internal/issue"
	"github.com/kspmod/kspmod/internal/spacedock"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

const descriptionWrap = 80

func newShowCommand(app *App, opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a SpaceDock mod",
		Long:  `Show the details and description of a SpaceDock mod.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := app.loadConfig(cmd.Context(), opts)
			if err != nil {
				return failed(cmd.ErrOrStderr(), err, opts.verbose, config.ColorSchemeAuto)
			}

			id := strings.TrimPrefix(args[0], "sd:")
			mod, err := app.newRegistry(cfg).Mod(cmd.Context(), id)
			if err != nil {
				if errors.Is(err, spacedock.ErrModNotFound) {
					err = issue.NewErrorContext().
						WithOperation("show mod").
						WithResource("sd:" + id).
						WithSuggestion("Find the id with 'kspmod search <query>'").
						WithIssue(issue.ReferenceNotFoundId).
						Wrap(err).
						BuildError()
				}
				return failed(cmd.ErrOrStderr(), err, cfg.UI.Verbose, cfg.UI.ColorScheme)
			}

			return renderMod(cmd.OutOrStdout(), mod, cfg.UI.ColorScheme)
		},
	}
}

func renderMod(w io.Writer, mod *spacedock.Mod, scheme config.ColorScheme) error {
	fmt.Fprintln(w, TitleStyle.Render(mod.Name)+" "+SubtitleStyle.Render("by "+mod.Author))
	if mod.ShortDescription != "" {
		fmt.Fprintln(w, mod.ShortDescription)
	}
	fmt.Fprintln(w)

	field := func(key, value string) {
		if value != "" {
			fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render(key), value)
		}
	}
	field("Install", fmt.Sprintf("kspmod sd:%d", mod.ID))
	if len(mod.Versions) > 0 {
		latest := mod.Versions[0]
		field("Latest", latest.FriendlyVersion)
		field("KSP", latest.GameVersion)
	}
	field("License", mod.License)
	field("Website", mod.Website)
	if mod.Downloads > 0 {
		field("Downloads", fmt.Sprintf("%d", mod.Downloads))
	}

	if strings.TrimSpace(mod.Description) == "" {
		return nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(string(scheme)),
		glamour.WithWordWrap(descriptionWrap),
	)
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(mod.Description)
	if err != nil {
		return fmt.Errorf("rendering description: %w", err)
	}
	fmt.Fprint(w, out)
	return nil
}
