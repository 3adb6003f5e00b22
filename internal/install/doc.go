// SPDX-License-Identifier: MPL-2.0

// Package install places mod payloads into the game's GameData directory.
//
// FindDestination picks the GameData directory, Payload moves or copies one
// payload directory into it, and Batch drives the resolve, locate, copy and
// release sequence over a list of references, one mod at a time.
package install
