// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux

package cgroups

import (
	"fmt"
	"strconv"
	"strings"
)

// MemoryLimit returns the memory.limit_in_bytes value of the cgroup.
func (c *Client) MemoryLimit(hierarchy, cgroup string) (int64, error) {
	return c.readMemoryValue(hierarchy, cgroup, "memory.limit_in_bytes")
}

// SetMemoryLimit writes memory.limit_in_bytes for the cgroup.
func (c *Client) SetMemoryLimit(hierarchy, cgroup string, limit int64) error {
	return c.WriteControl(hierarchy, cgroup, "memory.limit_in_bytes", strconv.FormatInt(limit, 10))
}

// MemoryUsage returns the current memory.usage_in_bytes of the cgroup.
func (c *Client) MemoryUsage(hierarchy, cgroup string) (int64, error) {
	return c.readMemoryValue(hierarchy, cgroup, "memory.usage_in_bytes")
}

// DisableOOMKiller turns the kernel OOM killer off for the cgroup, so
// tasks exceeding the limit stall instead of being killed and an OOM
// listener can react first.
func (c *Client) DisableOOMKiller(hierarchy, cgroup string) error {
	return c.WriteControl(hierarchy, cgroup, "memory.oom_control", "1")
}

// ListenOOM arms a single-shot listener for the cgroup's next
// out-of-memory event.
func (c *Client) ListenOOM(hierarchy, cgroup string) (*EventListener, error) {
	return c.ListenEvent(hierarchy, cgroup, "memory.oom_control", "")
}

func (c *Client) readMemoryValue(hierarchy, cgroup, control string) (int64, error) {
	value, err := c.ReadControl(hierarchy, cgroup, control)
	if err != nil {
		return 0, err
	}

	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed value %q in %s: %w", strings.TrimSpace(value), control, ErrParse)
	}
	return n, nil
}
