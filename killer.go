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

// KillTasks atomically terminates every task in the cgroup. The
// pipeline is freeze, signal, thaw, drain: freezing pins the task set
// so no fork can race the kill, SIGKILL is queued against every task,
// thawing lets the kernel deliver the queued signals, and the drain
// polls the tasks file every interval until the cgroup is empty.
//
// The hierarchy must have the freezer subsystem attached. Each phase
// starts only after the previous one completed; the first failing
// phase aborts the pipeline with its error.
func (c *Client) KillTasks(ctx context.Context, hierarchy, cgroup string, interval time.Duration) error {
	if interval < 0 {
		return fmt.Errorf("invalid interval %v: %w", interval, ErrInvalidArgument)
	}
	if err := c.CheckHierarchy(hierarchy, "freezer"); err != nil {
		return err
	}
	if err := c.CheckCgroup(hierarchy, cgroup); err != nil {
		return err
	}

	if err := c.Freeze(ctx, hierarchy, cgroup, interval); err != nil {
		return fmt.Errorf("failed to freeze cgroup %s: %w", cgroup, err)
	}

	if err := c.signalTasks(hierarchy, cgroup, unix.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill tasks in cgroup %s: %w", cgroup, err)
	}

	// Signals queued against frozen tasks are not delivered until the
	// cgroup thaws.
	if err := c.Thaw(ctx, hierarchy, cgroup, interval); err != nil {
		return fmt.Errorf("failed to thaw cgroup %s: %w", cgroup, err)
	}

	if err := c.waitEmpty(ctx, hierarchy, cgroup, interval); err != nil {
		return fmt.Errorf("failed to drain cgroup %s: %w", cgroup, err)
	}

	c.logger.Debug("killed all tasks", "hierarchy", hierarchy, "cgroup", cgroup)
	return nil
}

// signalTasks sends the signal to every task in the cgroup. Any kill
// failure fails the whole operation.
func (c *Client) signalTasks(hierarchy, cgroup string, signal unix.Signal) error {
	pids, err := c.GetTasks(hierarchy, cgroup)
	if err != nil {
		return err
	}

	for _, pid := range pids.Slice() {
		if err := unix.Kill(pid, signal); err != nil {
			return fmt.Errorf("failed to signal process %d: %w", pid, err)
		}
	}

	c.logger.Debug("signalled tasks", "cgroup", cgroup, "signal", signal, "count", pids.Size())
	return nil
}

// waitEmpty polls the cgroup's tasks file until no task remains.
func (c *Client) waitEmpty(ctx context.Context, hierarchy, cgroup string, interval time.Duration) error {
	e := c.edit(hierarchy, cgroup)

	for {
		value, err := e.read("tasks")
		if err != nil {
			return err
		}
		if strings.TrimSpace(value) == "" {
			return nil
		}

		if err := sleepOrDone(ctx, interval); err != nil {
			return err
		}
	}
}
