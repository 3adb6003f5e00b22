// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/kspmod/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/kspmod/config.cue on macOS, %APPDATA%\kspmod\config.cue
// on Windows) and may be overridden per key with KSPMOD_* environment variables, for
// example KSPMOD_DOWNLOAD_ALLOW_UNKNOWN_LENGTH=true. It covers the GameData destinations,
// the payload folder name, registry and GitHub endpoints, download tuning and UI settings.
//
// The file is validated against an embedded CUE schema (config_schema.cue).
package config
