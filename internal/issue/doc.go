// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the mod reference or path
// involved and remediation hints. The catalog in issue.go holds longer
// markdown explanations, rendered with glamour, for the failure classes an
// installer run can hit.
package issue
