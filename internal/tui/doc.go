// SPDX-License-Identifier: MPL-2.0

// Package tui provides the interactive pieces of kspmod: the Prompter used to
// confirm installs and pick payload folders, and the download progress bar.
//
// On a terminal, questions are asked with charmbracelet/huh forms. When
// stdin is not a terminal, or plain mode is requested, a LinePrompter reads
// one answer per line so kspmod can be scripted and tested.
package tui
