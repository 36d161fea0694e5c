// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux

package cgroups

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CreateHierarchy creates the directory at hierarchy and mounts a
// cgroup filesystem there with the given comma separated subsystems
// attached. The path must not already exist, every subsystem must be
// enabled, and none may be attached to another hierarchy.
func (c *Client) CreateHierarchy(hierarchy, subsystems string) error {
	if _, err := os.Stat(hierarchy); err == nil {
		return fmt.Errorf("%s already exists in the file system", hierarchy)
	}

	enabled, err := c.Enabled(subsystems)
	if err != nil {
		return err
	}
	if !enabled {
		return fmt.Errorf("some subsystems are not enabled: %w", ErrNotSupported)
	}

	busy, err := c.Busy(subsystems)
	if err != nil {
		return err
	}
	if busy {
		return fmt.Errorf("some subsystems are currently attached to another hierarchy: %w", ErrBusy)
	}

	if err := os.MkdirAll(hierarchy, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", hierarchy, err)
	}

	if err := mountHierarchy(hierarchy, subsystems); err != nil {
		// Best effort cleanup; the mount failure is the error that
		// matters.
		_ = os.Remove(hierarchy)
		return err
	}

	c.logger.Debug("created hierarchy", "hierarchy", hierarchy, "subsystems", subsystems)
	return nil
}

// RemoveHierarchy unmounts the hierarchy and removes its root
// directory. All cgroups in the hierarchy must be removed first.
func (c *Client) RemoveHierarchy(hierarchy string) error {
	if err := c.CheckHierarchy(hierarchy); err != nil {
		return err
	}

	if err := unmountHierarchy(hierarchy); err != nil {
		return err
	}

	if err := os.Remove(hierarchy); err != nil {
		return fmt.Errorf("failed to remove %s: %w", hierarchy, err)
	}

	c.logger.Debug("removed hierarchy", "hierarchy", hierarchy)
	return nil
}

// CreateCgroup creates one cgroup in the hierarchy. The parent cgroup
// must already exist. When the cpuset subsystem is attached to the
// hierarchy the new cgroup inherits cpuset.cpus and cpuset.mems from
// its parent; without that the kernel refuses to accept tasks into the
// child with EBUSY.
func (c *Client) CreateCgroup(hierarchy, cgroup string) error {
	if err := c.CheckHierarchy(hierarchy); err != nil {
		return err
	}

	if err := mkdirCgroup(filepath.Join(hierarchy, cgroup)); err != nil {
		return err
	}

	if err := c.CheckHierarchy(hierarchy, "cpuset"); err == nil {
		parent := filepath.Dir(filepath.Join("/", cgroup))
		if err := c.cloneCpusetCpusMems(hierarchy, parent, cgroup); err != nil {
			return err
		}
	}

	c.logger.Debug("created cgroup", "hierarchy", hierarchy, "cgroup", cgroup)
	return nil
}

// cloneCpusetCpusMems copies cpuset.cpus and cpuset.mems from a parent
// cgroup to a child. Empty parent values are copied verbatim; no
// defaults are synthesized.
func (c *Client) cloneCpusetCpusMems(hierarchy, parent, child string) error {
	pe := c.edit(hierarchy, parent)
	ce := c.edit(hierarchy, child)

	for _, control := range []string{"cpuset.cpus", "cpuset.mems"} {
		value, err := pe.read(control)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", control, err)
		}
		if err := ce.write(control, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("failed to write %s: %w", control, err)
		}
	}
	return nil
}

// RemoveCgroup removes one cgroup from the hierarchy. The cgroup must
// contain no sub-cgroups and no tasks.
func (c *Client) RemoveCgroup(hierarchy, cgroup string) error {
	if err := c.CheckCgroup(hierarchy, cgroup); err != nil {
		return err
	}

	children, err := c.GetCgroups(hierarchy, cgroup)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return fmt.Errorf("sub-cgroups exist in %s: %w", cgroup, ErrBusy)
	}

	if err := rmdirCgroup(filepath.Join(hierarchy, cgroup)); err != nil {
		return err
	}

	c.logger.Debug("removed cgroup", "hierarchy", hierarchy, "cgroup", cgroup)
	return nil
}
