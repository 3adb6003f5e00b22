// SPDX-License-Identifier: MPL-2.0

// Package source turns the location strings users pass on the command line
// into mod directories on disk.
//
// Classify maps a string to a Reference: a local directory or archive, a
// direct download URL, a SpaceDock id or search, a GitHub repository or an
// arbitrary git remote. A Resolver materializes a Reference, asking the user
// through a tui.Prompter where a choice is needed, and reports an Outcome.
// Temporary files live in a per-mod workspace owned by the returned ModDir
// and are removed by ModDir.Release.
package source
