// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux

package cgroups

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-set/v3"
)

// GetTasks returns the set of pids currently in the cgroup, read from
// its tasks file. The kernel may list a pid more than once; the result
// is deduplicated.
func (c *Client) GetTasks(hierarchy, cgroup string) (*set.Set[int], error) {
	if err := c.CheckCgroup(hierarchy, cgroup); err != nil {
		return nil, err
	}

	value, err := c.edit(hierarchy, cgroup).read("tasks")
	if err != nil {
		return nil, err
	}

	pids := set.New[int](8)
	for _, field := range strings.Fields(value) {
		pid, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("malformed pid %q in tasks: %w", field, ErrParse)
		}
		pids.Insert(pid)
	}
	return pids, nil
}

// AssignTask moves a task into the cgroup by writing its pid to the
// tasks file. The kernel accepts one pid per write.
func (c *Client) AssignTask(hierarchy, cgroup string, pid int) error {
	if err := c.CheckCgroup(hierarchy, cgroup); err != nil {
		return err
	}
	return c.edit(hierarchy, cgroup).write("tasks", strconv.Itoa(pid))
}

// CgroupOf returns the cgroup path of a pid within the hierarchy the
// given subsystem is attached to, read from /proc/<pid>/cgroup. The
// path is relative to the hierarchy root.
func (c *Client) CgroupOf(pid int, subsystem string) (string, error) {
	p, err := c.proc.Proc(pid)
	if err != nil {
		return "", fmt.Errorf("process %d: %w", pid, ErrNotFound)
	}

	memberships, err := p.Cgroups()
	if err != nil {
		return "", fmt.Errorf("failed to read cgroup membership of %d: %w", pid, err)
	}

	for _, m := range memberships {
		for _, controller := range m.Controllers {
			if controller == subsystem {
				return m.Path, nil
			}
		}
	}
	return "", fmt.Errorf("pid %d has no cgroup for subsystem %s: %w", pid, subsystem, ErrNotFound)
}

// taskState returns the single character run state of a pid from
// /proc/<pid>/stat. 'T' marks a stopped or traced task.
func (c *Client) taskState(pid int) (string, error) {
	p, err := c.proc.Proc(pid)
	if err != nil {
		return "", fmt.Errorf("process %d: %w", pid, ErrNotFound)
	}

	stat, err := p.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat process %d: %w", pid, err)
	}
	return stat.State, nil
}
