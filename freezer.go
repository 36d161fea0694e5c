// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux

package cgroups

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// FreezerState is a value of the freezer.state control file.
type FreezerState string

const (
	Thawed   FreezerState = "THAWED"
	Freezing FreezerState = "FREEZING"
	Frozen   FreezerState = "FROZEN"

	freezerControl = "freezer.state"
)

// FreezerState returns the current freezer state of the cgroup.
func (c *Client) FreezerState(hierarchy, cgroup string) (FreezerState, error) {
	value, err := c.ReadControl(hierarchy, cgroup, freezerControl)
	if err != nil {
		return "", err
	}
	return FreezerState(strings.TrimSpace(value)), nil
}

// Freeze drives the cgroup to FROZEN, polling freezer.state every
// interval until the kernel reports the transition complete. Freezing
// an already frozen cgroup succeeds immediately without touching the
// control file.
//
// While the kernel reports FREEZING, tasks stuck in the stopped or
// traced state are sent SIGCONT and the freeze is re-requested; older
// kernels will not finish a freeze over such tasks on their own. The
// kernel guarantees the cgroup's task set cannot change while it is
// FREEZING, so there is no race against fork here.
//
// Cancelling ctx abandons the driver; a cgroup already driven to
// FROZEN stays frozen and must be thawed to recover.
func (c *Client) Freeze(ctx context.Context, hierarchy, cgroup string, interval time.Duration) error {
	if interval < 0 {
		return fmt.Errorf("invalid interval %v: %w", interval, ErrInvalidArgument)
	}
	if err := c.CheckControl(hierarchy, cgroup, freezerControl); err != nil {
		return err
	}

	e := c.edit(hierarchy, cgroup)

	state, err := e.read(freezerControl)
	if err != nil {
		return err
	}
	if FreezerState(strings.TrimSpace(state)) == Frozen {
		return nil
	}

	c.logger.Debug("freezing cgroup", "hierarchy", hierarchy, "cgroup", cgroup)

	if err := e.write(freezerControl, string(Frozen)); err != nil {
		return err
	}
	return c.watchFrozen(ctx, hierarchy, cgroup, interval)
}

// Thaw drives the cgroup back to THAWED. Thawing an already thawed
// cgroup succeeds immediately without touching the control file.
func (c *Client) Thaw(ctx context.Context, hierarchy, cgroup string, interval time.Duration) error {
	if interval < 0 {
		return fmt.Errorf("invalid interval %v: %w", interval, ErrInvalidArgument)
	}
	if err := c.CheckControl(hierarchy, cgroup, freezerControl); err != nil {
		return err
	}

	e := c.edit(hierarchy, cgroup)

	state, err := e.read(freezerControl)
	if err != nil {
		return err
	}
	if FreezerState(strings.TrimSpace(state)) == Thawed {
		return nil
	}

	c.logger.Debug("thawing cgroup", "hierarchy", hierarchy, "cgroup", cgroup)

	if err := e.write(freezerControl, string(Thawed)); err != nil {
		return err
	}
	return c.watchThawed(ctx, hierarchy, cgroup, interval)
}

// watchFrozen polls freezer.state until the freeze completes.
func (c *Client) watchFrozen(ctx context.Context, hierarchy, cgroup string, interval time.Duration) error {
	e := c.edit(hierarchy, cgroup)

	for {
		value, err := e.read(freezerControl)
		if err != nil {
			return err
		}

		switch FreezerState(strings.TrimSpace(value)) {
		case Frozen:
			c.logger.Debug("froze cgroup", "hierarchy", hierarchy, "cgroup", cgroup)
			return nil

		case Freezing:
			// At least one task is stopped or traced; the kernel will
			// sit in FREEZING until it runs again.
			if err := c.resumeStoppedTasks(hierarchy, cgroup); err != nil {
				return err
			}
			if err := e.write(freezerControl, string(Frozen)); err != nil {
				return err
			}
			if err := sleepOrDone(ctx, interval); err != nil {
				return err
			}

		default:
			return fmt.Errorf("unexpected freezer state %q: %w", strings.TrimSpace(value), ErrInvariant)
		}
	}
}

// watchThawed polls freezer.state until the thaw completes.
func (c *Client) watchThawed(ctx context.Context, hierarchy, cgroup string, interval time.Duration) error {
	e := c.edit(hierarchy, cgroup)

	for {
		value, err := e.read(freezerControl)
		if err != nil {
			return err
		}

		switch FreezerState(strings.TrimSpace(value)) {
		case Thawed:
			c.logger.Debug("thawed cgroup", "hierarchy", hierarchy, "cgroup", cgroup)
			return nil

		case Frozen:
			if err := sleepOrDone(ctx, interval); err != nil {
				return err
			}

		default:
			return fmt.Errorf("unexpected freezer state %q: %w", strings.TrimSpace(value), ErrInvariant)
		}
	}
}

// resumeStoppedTasks sends SIGCONT to every task in the cgroup whose
// /proc/<pid>/stat state is 'T'.
func (c *Client) resumeStoppedTasks(hierarchy, cgroup string) error {
	pids, err := c.GetTasks(hierarchy, cgroup)
	if err != nil {
		return err
	}

	for _, pid := range pids.Slice() {
		state, err := c.taskState(pid)
		if err != nil {
			return err
		}
		if state != "T" {
			continue
		}

		c.logger.Debug("resuming stopped task", "cgroup", cgroup, "pid", pid)
		if err := unix.Kill(pid, unix.SIGCONT); err != nil {
			return fmt.Errorf("failed to resume process %d: %w", pid, err)
		}
	}
	return nil
}

// sleepOrDone suspends for the polling interval, honoring cancellation.
func sleepOrDone(ctx context.Context, interval time.Duration) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
}
