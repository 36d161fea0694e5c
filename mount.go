// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux

package cgroups

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-set/v3"
	"github.com/prometheus/procfs"
)

// Hierarchies returns the canonicalized mount points of every mounted
// cgroup v1 hierarchy.
func (c *Client) Hierarchies() (*set.Set[string], error) {
	entries, err := c.mounts()
	if err != nil {
		return nil, fmt.Errorf("failed to read mount table: %w", err)
	}

	results := set.New[string](4)
	for _, entry := range entries {
		if entry.FSType != "cgroup" {
			continue
		}
		dir, err := realpath(entry.MountPoint)
		if err != nil {
			return nil, err
		}
		results.Insert(dir)
	}
	return results, nil
}

// SubsystemsOf returns the subsystems attached to the hierarchy mounted
// at the given path: the intersection of the kernel's enabled subsystems
// with the options of the matching mount entry. Mount options carry
// non-subsystem noise (rw, relatime, ...) so a plain option list is not
// the answer.
func (c *Client) SubsystemsOf(hierarchy string) (*set.Set[string], error) {
	abs, err := realpath(hierarchy)
	if err != nil {
		return nil, fmt.Errorf("%s is not a mount point for cgroups: %w", hierarchy, ErrNotFound)
	}

	entries, err := c.mounts()
	if err != nil {
		return nil, fmt.Errorf("failed to read mount table: %w", err)
	}

	// A directory can be mounted more than once, with earlier mounts
	// obscured by later ones. Scan the whole table and keep the last
	// entry that matches.
	var found *procfs.MountInfo
	for _, entry := range entries {
		if entry.FSType != "cgroup" {
			continue
		}
		dir, err := realpath(entry.MountPoint)
		if err != nil {
			return nil, err
		}
		if dir == abs {
			found = entry
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%s is not a mount point for cgroups: %w", hierarchy, ErrNotFound)
	}

	enabled, err := c.Subsystems()
	if err != nil {
		return nil, err
	}

	attached := set.New[string](enabled.Size())
	for name := range enabled.Items() {
		if hasMountOption(found, name) {
			attached.Insert(name)
		}
	}
	return attached, nil
}

// hasMountOption reports whether the mount entry carries the named
// option, looking at both the per-mount and the superblock options
// (subsystem names live in the latter for cgroup mounts).
func hasMountOption(entry *procfs.MountInfo, name string) bool {
	if _, ok := entry.SuperOptions[name]; ok {
		return true
	}
	_, ok := entry.Options[name]
	return ok
}

// realpath canonicalizes a path the way the mount table reports it.
func realpath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}
