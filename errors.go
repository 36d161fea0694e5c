// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package cgroups

import "errors"

// The error kinds surfaced by this package. Operations wrap one of these
// sentinels (plus a human readable message) so callers can branch with
// errors.Is without parsing text.
var (
	// ErrNotSupported indicates cgroups are unavailable on this system,
	// or a required subsystem or kernel feature is not enabled.
	ErrNotSupported = errors.New("cgroups: not supported")

	// ErrInvalidArgument indicates a malformed input such as an empty
	// subsystem list or a negative polling interval.
	ErrInvalidArgument = errors.New("cgroups: invalid argument")

	// ErrNotFound indicates a hierarchy that is not mounted, a missing
	// cgroup directory, a missing control file, or an unknown subsystem.
	ErrNotFound = errors.New("cgroups: not found")

	// ErrBusy indicates a subsystem already attached to another
	// hierarchy, or a cgroup that still has sub-cgroups at remove time.
	ErrBusy = errors.New("cgroups: busy")

	// ErrParse indicates a malformed line in /proc/cgroups or a tasks
	// file. Errors from reading the mount table do not wrap it.
	ErrParse = errors.New("cgroups: parse error")

	// ErrCancelled indicates the operation's context was cancelled
	// before the driver reached a terminal state.
	ErrCancelled = errors.New("cgroups: operation cancelled")

	// ErrInvariant indicates the kernel reported a state this library
	// considers unreachable, e.g. an unknown freezer.state value.
	ErrInvariant = errors.New("cgroups: invariant violation")
)
