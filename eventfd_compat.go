// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux && (386 || amd64 || arm || ppc64 || ppc64le || s390x)

package cgroups

import "golang.org/x/sys/unix"

// legacyEventFD falls back to the original eventfd syscall on kernels
// that predate eventfd2. The caller applies CLOEXEC and NONBLOCK
// afterwards; the old syscall takes no flags.
func legacyEventFD() (int, error) {
	r0, _, errno := unix.Syscall(unix.SYS_EVENTFD, 0, 0, 0)
	if errno != 0 {
		return -1, errno
	}
	return int(r0), nil
}
