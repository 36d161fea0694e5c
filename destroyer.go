// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux

package cgroups

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

// Destroy removes the cgroup and every descendant, tasks included. All
// cgroups in the subtree are emptied by parallel task killers; sibling
// cgroups freeze independently, so the latency of the whole teardown is
// bounded by the deepest branch rather than the sum. Only after every
// killer succeeds are the directories removed, leaves first.
//
// Naming the hierarchy root ("/" or "") empties every descendant but
// never removes the root directory itself.
//
// Cancelling ctx cancels every in-flight killer.
func (c *Client) Destroy(ctx context.Context, hierarchy, cgroup string, interval time.Duration) error {
	if interval < 0 {
		return fmt.Errorf("invalid interval %v: %w", interval, ErrInvalidArgument)
	}
	if err := c.CheckCgroup(hierarchy, cgroup); err != nil {
		return err
	}

	targets, err := c.destroyList(hierarchy, cgroup)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	c.logger.Debug("destroying cgroups", "hierarchy", hierarchy, "cgroup", cgroup, "count", len(targets))

	group, ctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		group.Go(func() error {
			return c.KillTasks(ctx, hierarchy, target, interval)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	return c.removeList(hierarchy, targets)
}

// destroyList builds the removal work list: every descendant of cgroup
// in post-order, then cgroup itself unless it is the hierarchy root.
// Appending the root last preserves the leaf-first ordering.
func (c *Client) destroyList(hierarchy, cgroup string) ([]string, error) {
	targets, err := c.GetCgroups(hierarchy, cgroup)
	if err != nil {
		return nil, err
	}

	if filepath.Join("/", cgroup) != "/" {
		targets = append(targets, cgroup)
	}
	return targets, nil
}

// removeList removes cgroup directories in list order. The list is
// post-ordered, so every cgroup is removed before its parent. The
// first failure aborts.
func (c *Client) removeList(hierarchy string, targets []string) error {
	for _, target := range targets {
		if err := rmdirCgroup(filepath.Join(hierarchy, target)); err != nil {
			return err
		}
	}
	return nil
}
