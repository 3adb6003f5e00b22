// SPDX-License-Identifier: MPL-2.0

// Package testutil builds mod fixtures for tests: directory trees, zip and
// tar.gz archives. Helpers fail the test immediately on I/O errors.
package testutil
