// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/kspmod/kspmod/internal/config"
	"github.com/kspmod/kspmod/internal/github"
	"github.com/kspmod/kspmod/internal/install"
	"github.com/kspmod/kspmod/internal/issue"
	"github.com/kspmod/kspmod/internal/source"
)

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// issueFor maps an error to its catalog entry.
func issueFor(err error) (issue.Id, bool) {
	if id, ok := issue.IssueOf(err); ok {
		return id, true
	}

	var rlErr *github.RateLimitError
	switch {
	case errors.As(err, &rlErr):
		return issue.RateLimitedId, true
	case errors.Is(err, source.ErrInvalidReference):
		return issue.InvalidReferenceId, true
	case errors.Is(err, source.ErrNoResults):
		return issue.NoSearchResultsId, true
	case errors.Is(err, source.ErrNoDownload):
		return issue.NoDownloadId, true
	case errors.Is(err, source.ErrNotFound):
		return issue.ReferenceNotFoundId, true
	case errors.Is(err, install.ErrNoDestination):
		return issue.GameDataNotFoundId, true
	}
	return 0, false
}

// renderError writes err to w. In verbose mode the matching catalog entry
// is rendered below it with the configured markdown style.
func renderError(w io.Writer, err error, verbose bool, scheme config.ColorScheme) {
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	if !verbose {
		return
	}
	id, ok := issueFor(err)
	if !ok {
		return
	}
	if entry := issue.Get(id); entry != nil {
		rendered, renderErr := entry.Render(string(scheme))
		if renderErr != nil {
			fmt.Fprintln(w, VerboseStyle.Render("(could not render help: "+renderErr.Error()+")"))
			return
		}
		fmt.Fprint(w, rendered)
	}
}

// failed renders err and wraps it so the process exits with status 1.
func failed(w io.Writer, err error, verbose bool, scheme config.ColorScheme) error {
	renderError(w, err, verbose, scheme)
	return &ExitError{Code: 1, Err: err}
}
