// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and a
// list of remediation hints. The Issue catalog holds longer Markdown guidance
// for the failures users hit most often (missing container engine, missing
// Dockerfile, unwritable destination, missing dist directory), rendered for
// the terminal with glamour.
package issue
