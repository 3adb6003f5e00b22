// SPDX-License-Identifier: MPL-2.0

package source

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

const (
	// Proceed means the mod was materialized and Outcome.Dir is set.
	Proceed Action = iota
	// Skip means this mod is not installed but the batch continues.
	Skip
	// Abort means the remaining batch must not run.
	Abort
)

var (
	// ErrDeclined is the Abort reason when the user says no to a confirmation.
	ErrDeclined = errors.New("declined by user")
	// ErrNoResults is the Abort reason for a registry search without hits.
	ErrNoResults = errors.New("no search results")
	// ErrInvalidReference is returned for a known prefix with a malformed remainder.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrNotFound is the Abort reason for an unrecognized reference or an
	// unknown registry id or repository.
	ErrNotFound = errors.New("not found")
	// ErrNoDownload is the Abort reason when a registry entry or repository
	// offers nothing to download.
	ErrNoDownload = errors.New("nothing to download")
	// ErrUnknownLength is returned when a server omits Content-Length and
	// unknown lengths are not allowed.
	ErrUnknownLength = errors.New("server did not report a content length")
	// ErrUnsupportedArchive is returned for files that are neither zip nor gzip-compressed tar.
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	// ErrUnsafePath is returned for archive entries that would land outside
	// the extraction directory.
	ErrUnsafePath = errors.New("archive entry escapes extraction directory")
)

type (
	// Action tells the install loop what to do after resolving a reference.
	Action int

	// Outcome is the result of resolving one reference.
	Outcome struct {
		Action Action
		// Dir is set when Action is Proceed.
		Dir *ModDir
		// Reason explains a Skip or Abort.
		Reason error
	}

	// ModDir is a materialized mod. Root always exists while the ModDir is
	// live. A temporary ModDir owns its workspace and Release removes it;
	// releasing a local directory does nothing.
	ModDir struct {
		// Root is the directory the payload search starts from.
		Root string
		// Name is the payload name the contents were extracted under.
		Name string
		// Ref is the classified reference Root came from.
		Ref Reference

		workspace string
		once      sync.Once
		err       error
	}
)

func (a Action) String() string {
	switch a {
	case Proceed:
		return "proceed"
	case Skip:
		return "skip"
	case Abort:
		return "abort"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

func proceed(dir *ModDir) Outcome {
	return Outcome{Action: Proceed, Dir: dir}
}

func abort(reason error) Outcome {
	return Outcome{Action: Abort, Reason: reason}
}

func skip(reason error) Outcome {
	return Outcome{Action: Skip, Reason: reason}
}

// skipError marks a callback error that should end as a Skip outcome.
type skipError struct {
	reason error
}

func (e *skipError) Error() string { return "skipped: " + e.reason.Error() }

func (e *skipError) Unwrap() error { return e.reason }

// SkipMod returns an error that, when returned from an Acquire callback,
// turns the outcome into a Skip carrying reason.
func SkipMod(reason error) error {
	return &skipError{reason: reason}
}

// Declined reports whether the outcome is an Abort caused by the user
// declining a confirmation.
func (o Outcome) Declined() bool {
	return o.Action == Abort && errors.Is(o.Reason, ErrDeclined)
}

// Temporary reports whether Release deletes files.
func (d *ModDir) Temporary() bool {
	return d.workspace != ""
}

// Workspace returns the temporary directory backing d, or "".
func (d *ModDir) Workspace() string {
	return d.workspace
}

// Release removes the workspace of a temporary ModDir. It is safe to call
// more than once; only the first call does any work and later calls return
// its result.
func (d *ModDir) Release() error {
	d.once.Do(func() {
		if d.workspace == "" {
			return
		}
		if err := os.RemoveAll(d.workspace); err != nil {
			d.err = fmt.Errorf("removing workspace %s: %w", d.workspace, err)
		}
	})
	return d.err
}
