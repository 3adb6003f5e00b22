// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/kspmod/kspmod/internal/config"
	"github.com/kspmod/kspmod/internal/install"
	"github.com/kspmod/kspmod/internal/modlist"
	"github.com/kspmod/kspmod/internal/source"
	"github.com/kspmod/kspmod/internal/tui"

	"github.com/spf13/cobra"
)

// installOptions are the root command's own flags.
type installOptions struct {
	dest  string
	batch string
}

// runInstall installs the mods named by args and the batch file. The
// destination is chosen first; with no references at all the user is asked
// for one. Declining a confirmation ends the run successfully with
// "Aborted.".
func runInstall(cmd *cobra.Command, app *App, opts *globalOptions, inst *installOptions, args []string) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	ctx := cmd.Context()
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	cfg, err := app.loadConfig(ctx, opts)
	if err != nil {
		return failed(stderr, err, opts.verbose, config.ColorSchemeAuto)
	}
	scheme := cfg.UI.ColorScheme
	logger := app.newLogger(cfg)
	prompter := app.newPrompter(cfg)

	refs := append([]string(nil), args...)
	if inst.batch != "" {
		listed, loadErr := modlist.Load(inst.batch)
		if loadErr != nil {
			return failed(stderr, loadErr, cfg.UI.Verbose, scheme)
		}
		refs = append(refs, listed...)
	}

	dest := inst.dest
	if dest == "" {
		if dest, err = install.FindDestination(cfg.Destinations, prompter); err != nil {
			return finish(cmd, err, cfg)
		}
	}

	if len(refs) == 0 {
		ref, askErr := prompter.Input("Choose mod location")
		if askErr != nil {
			return finish(cmd, askErr, cfg)
		}
		if ref == "" {
			return failed(stderr, fmt.Errorf("no mod given: %w", source.ErrInvalidReference), cfg.UI.Verbose, scheme)
		}
		refs = []string{ref}
	}
	logger.Debug("installing", "refs", refs, "dest", dest)

	batch := &install.Batch{
		Resolver: app.newResolver(cfg, prompter, logger),
		Locator:  app.newLocator(cfg, prompter, logger),
		Dest:     dest,
		Out:      stdout,
		Logger:   logger,
	}
	report, err := batch.Run(ctx, refs)
	if err != nil {
		return finish(cmd, err, cfg)
	}

	for _, s := range report.Skipped {
		fmt.Fprintln(stdout, WarningStyle.Render(fmt.Sprintf("Skipped %s: %v", s.Ref, s.Reason)))
	}
	if cfg.UI.Verbose {
		fmt.Fprintln(stdout, SuccessStyle.Render(fmt.Sprintf("Installed %d of %d mod(s)", len(report.Installed), len(refs))))
	}
	return nil
}

// finish turns a failed install into the command result: declines and
// cancelled prompts print "Aborted.", declines exit 0 and everything else
// exits 1.
func finish(cmd *cobra.Command, err error, cfg *config.Config) error {
	switch {
	case errors.Is(err, source.ErrDeclined):
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	case errors.Is(err, tui.ErrCancelled):
		fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
		return &ExitError{Code: 1, Err: err}
	default:
		return failed(cmd.ErrOrStderr(), err, cfg.UI.Verbose, cfg.UI.ColorScheme)
	}
}
