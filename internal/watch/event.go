// SPDX-License-Identifier: MPL-2.0

// Package watch turns raw filesystem notifications into a filtered stream
// of ChangeEvents. See spec.md §4.2.
package watch

// Kind classifies a filesystem change.
type Kind string

const (
	Created  Kind = "created"
	Modified Kind = "modified"
	Removed  Kind = "removed"
)

// ChangeEvent is an accepted (PathFilter-passed) filesystem change.
type ChangeEvent struct {
	Path string
	Kind Kind
}
