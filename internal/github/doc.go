// SPDX-License-Identifier: MPL-2.0

// Package github resolves gh: mod references against the GitHub Releases API
// and builds source archive URLs for explicit refs.
package github
