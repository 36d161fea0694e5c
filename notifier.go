// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux

package cgroups

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
)

// eventFD opens an eventfd with close-on-exec and non-blocking set.
// Older kernels lack eventfd2; there the flags are applied manually
// before the descriptor escapes.
func eventFD() (int, error) {
	efd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err == nil {
		return efd, nil
	}
	if !errors.Is(err, unix.ENOSYS) {
		return -1, fmt.Errorf("failed to create eventfd: %w", err)
	}

	efd, err = legacyEventFD()
	if err != nil {
		return -1, fmt.Errorf("failed to create eventfd: %w", err)
	}

	unix.CloseOnExec(efd)
	if err := unix.SetNonblock(efd, true); err != nil {
		_ = unix.Close(efd)
		return -1, fmt.Errorf("failed to set eventfd non-blocking: %w", err)
	}
	return efd, nil
}

type eventResult struct {
	value uint64
	err   error
}

// EventListener delivers exactly one kernel cgroup event. It owns an
// eventfd registered through cgroup.event_control; the first time the
// associated event fires, the kernel makes the eventfd readable and the
// listener hands the 8 byte counter to the waiter. A listener cannot be
// re-armed; register a new one instead.
type EventListener struct {
	logger hclog.Logger
	efd    *os.File
	result chan eventResult

	closeOnce sync.Once
	closeErr  error
}

// ListenEvent registers an eventfd for the event described by the
// control file and its optional arguments, and starts listening. The
// registration and validation happen synchronously; the returned
// listener's Wait delivers the event.
func (c *Client) ListenEvent(hierarchy, cgroup, control, args string) (*EventListener, error) {
	if err := c.CheckControl(hierarchy, cgroup, control); err != nil {
		return nil, err
	}

	efd, err := eventFD()
	if err != nil {
		return nil, err
	}

	// The control file descriptor only needs to live for the duration
	// of the registration; the kernel keeps its own reference.
	cpath := filepath.Join(hierarchy, cgroup, control)
	cf, err := os.OpenFile(cpath, os.O_RDWR, 0)
	if err != nil {
		_ = unix.Close(efd)
		return nil, fmt.Errorf("failed to open %s: %w", cpath, err)
	}

	line := fmt.Sprintf("%d %d", efd, cf.Fd())
	if args != "" {
		line += " " + args
	}
	if err := c.edit(hierarchy, cgroup).write("cgroup.event_control", line); err != nil {
		mErr := multierror.Append(&multierror.Error{}, err)
		if cerr := unix.Close(efd); cerr != nil {
			mErr = multierror.Append(mErr, cerr)
		}
		if cerr := cf.Close(); cerr != nil {
			mErr = multierror.Append(mErr, cerr)
		}
		return nil, mErr.ErrorOrNil()
	}
	if err := cf.Close(); err != nil {
		_ = unix.Close(efd)
		return nil, fmt.Errorf("failed to close %s: %w", cpath, err)
	}

	l := &EventListener{
		logger: c.logger.Named("notifier").With("cgroup", cgroup, "control", control),
		efd:    os.NewFile(uintptr(efd), "eventfd"),
		result: make(chan eventResult, 1),
	}

	go l.listen()

	l.logger.Debug("armed event listener", "eventfd", efd)
	return l, nil
}

// listen blocks on the eventfd until the event fires or the listener is
// closed, then publishes the single result.
func (l *EventListener) listen() {
	buf := make([]byte, 8)
	n, err := io.ReadFull(l.efd, buf)

	switch {
	case err != nil && errors.Is(err, os.ErrClosed):
		l.result <- eventResult{err: fmt.Errorf("event listener closed: %w", ErrCancelled)}
	case err != nil:
		l.result <- eventResult{err: fmt.Errorf("failed to read eventfd: %w", err)}
	case n != len(buf):
		l.result <- eventResult{err: fmt.Errorf("short read of %d bytes from eventfd: %w", n, ErrInvariant)}
	default:
		value := binary.NativeEndian.Uint64(buf)
		l.logger.Debug("event fired", "value", value)
		l.result <- eventResult{value: value}
	}
}

// Wait blocks until the event fires, the listener is closed, or ctx is
// cancelled. Cancellation tears the listener down; a single-shot
// listener has nothing left to deliver afterwards.
func (l *EventListener) Wait(ctx context.Context) (uint64, error) {
	select {
	case r := <-l.result:
		return r.value, r.err
	case <-ctx.Done():
		_ = l.Close()
		return 0, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
}

// Close releases the eventfd and unblocks any waiter. Safe to call more
// than once.
func (l *EventListener) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.efd.Close()
		l.logger.Debug("event listener closed")
	})
	return l.closeErr
}
