// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux && !(386 || amd64 || arm || ppc64 || ppc64le || s390x)

package cgroups

import "golang.org/x/sys/unix"

// Architectures added after eventfd2 never carried the original
// eventfd syscall, so there is nothing to fall back to.
func legacyEventFD() (int, error) {
	return -1, unix.ENOSYS
}
