// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kspmod/kspmod/internal/issue"
	"github.com/kspmod/kspmod/internal/source"

	"github.com/charmbracelet/log"
)

// ErrEmptySelection is the Skip reason when no payload was selected.
var ErrEmptySelection = errors.New("no payload selected")

type (
	// Acquirer materializes a reference for the duration of fn.
	Acquirer interface {
		Acquire(ctx context.Context, raw string, fn func(*source.ModDir) error) (source.Outcome, error)
	}

	// PayloadLocator picks the payload directories of a mod.
	PayloadLocator interface {
		Locate(modDir string) ([]string, error)
	}

	// Batch installs references one after the other into Dest.
	Batch struct {
		Resolver Acquirer
		Locator  PayloadLocator
		Dest     string
		Out      io.Writer
		Logger   *log.Logger
	}

	// Installed records one installed mod.
	Installed struct {
		Ref      string
		Payloads []string
		Entries  []string
	}

	// Skipped records one mod that was not installed.
	Skipped struct {
		Ref    string
		Reason error
	}

	// Report summarizes a batch run.
	Report struct {
		Installed []Installed
		Skipped   []Skipped
	}

	// AbortError stops a batch because resolving Ref ended with an Abort.
	AbortError struct {
		Ref    string
		Reason error
	}
)

func (e *AbortError) Error() string {
	return e.Reason.Error()
}

func (e *AbortError) Unwrap() error {
	return e.Reason
}

// Run installs refs in order. A mod whose payload selection is empty ends
// with a Skip outcome and the batch continues; an Abort outcome stops the
// batch with an *AbortError and any other failure is returned as is. The
// report covers the mods handled before the batch stopped. Each mod's
// temporary files are removed before the next one is resolved.
func (b *Batch) Run(ctx context.Context, refs []string) (Report, error) {
	var report Report
	out := b.Out
	if out == nil {
		out = os.Stdout
	}
	logger := b.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	if !isDir(b.Dest) {
		return report, issue.NewErrorContext().
			WithOperation("open GameData directory").
			WithResource(b.Dest).
			WithSuggestion("Pass the folder with --dest or list it under destinations in the config file").
			WithIssue(issue.GameDataNotFoundId).
			Wrap(fs.ErrNotExist).
			BuildError()
	}

	fmt.Fprintf(out, "Installing to %s...\n\n", b.Dest)

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var installed *Installed
		outcome, err := b.Resolver.Acquire(ctx, ref, func(d *source.ModDir) error {
			var installErr error
			installed, installErr = b.installMod(out, logger, ref, d)
			return installErr
		})
		if err != nil {
			return report, err
		}

		switch outcome.Action {
		case source.Abort:
			logger.Debug("batch aborted", "ref", ref, "reason", outcome.Reason)
			return report, &AbortError{Ref: ref, Reason: outcome.Reason}
		case source.Skip:
			fmt.Fprintf(out, "Skipping %s: %v\n", ref, outcome.Reason)
			report.Skipped = append(report.Skipped, Skipped{Ref: ref, Reason: outcome.Reason})
			continue
		}

		report.Installed = append(report.Installed, *installed)
		logger.Info("installed mod", "ref", ref, "entries", len(installed.Entries))
	}

	fmt.Fprintln(out, "\nDone!")
	return report, nil
}

// installMod reports an empty selection through source.SkipMod so that
// Acquire ends with a Skip outcome.
func (b *Batch) installMod(out io.Writer, logger *log.Logger, ref string, d *source.ModDir) (*Installed, error) {
	payloads, err := b.Locator.Locate(d.Root)
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, source.SkipMod(ErrEmptySelection)
	}

	mode := Copy
	if d.Temporary() {
		mode = Move
	}

	result := &Installed{Ref: ref}
	for _, p := range payloads {
		// The enclosing payload already carries a nested one.
		if outer, ok := enclosing(p, payloads); ok {
			logger.Debug("skipping nested payload", "payload", relTo(d.Root, p), "within", relTo(d.Root, outer))
			continue
		}
		if !isDir(p) {
			return nil, issue.NewErrorContext().
				WithOperation("install payload").
				WithResource(p).
				WithIssue(issue.PayloadNotFoundId).
				Wrap(fs.ErrNotExist).
				BuildError()
		}

		fmt.Fprintf(out, "Installing from %s ...\n", relTo(d.Root, p))
		names, err := Payload(p, b.Dest, mode)
		for _, n := range names {
			fmt.Fprintln(out, n)
		}
		result.Entries = append(result.Entries, names...)
		if err != nil {
			id := issue.InstallFailedId
			if errors.Is(err, fs.ErrPermission) {
				id = issue.PermissionDeniedId
			}
			return nil, issue.NewErrorContext().
				WithOperation("install payload").
				WithResource(relTo(d.Root, p)).
				WithIssue(id).
				Wrap(err).
				BuildError()
		}
		result.Payloads = append(result.Payloads, p)
	}
	return result, nil
}

// enclosing returns the entry of payloads that p lies strictly below.
func enclosing(p string, payloads []string) (string, bool) {
	for _, outer := range payloads {
		r, err := filepath.Rel(outer, p)
		if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			continue
		}
		return outer, true
	}
	return "", false
}

func relTo(base, target string) string {
	r, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return filepath.ToSlash(r)
}
