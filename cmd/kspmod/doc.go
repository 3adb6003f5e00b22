// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for kspmod.
//
// The root command installs mods; search, show and config are subcommands.
// Commands are built around an App that carries the configuration provider
// and the standard streams, so tests can drive them without a terminal.
package cmd
