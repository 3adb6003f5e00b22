// SPDX-License-Identifier: MPL-2.0

// Package spacedock is a client for the SpaceDock KSP mod registry, used by
// sd: and sds: references and the search and show commands.
package spacedock
