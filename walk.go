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

// GetCgroups returns the relative paths of every cgroup strictly below
// the given cgroup, in post-order: every child precedes its parent, so
// the result can be removed front to back. The cgroup itself is not
// included.
func (c *Client) GetCgroups(hierarchy, cgroup string) ([]string, error) {
	if err := c.CheckCgroup(hierarchy, cgroup); err != nil {
		return nil, err
	}

	root, err := realpath(hierarchy)
	if err != nil {
		return nil, err
	}
	dir, err := realpath(filepath.Join(hierarchy, cgroup))
	if err != nil {
		return nil, err
	}

	var cgroups []string
	err = walkPostOrder(dir, func(path string) {
		rel := strings.Trim(strings.TrimPrefix(path, root), "/")
		cgroups = append(cgroups, rel)
	})
	if err != nil {
		return nil, err
	}
	return cgroups, nil
}

// walkPostOrder visits every directory strictly below dir, children
// before parents. The standard library walkers are pre-order only,
// which is the wrong way around for removal.
func walkPostOrder(dir string, fn func(path string)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		if err := walkPostOrder(sub, fn); err != nil {
			return err
		}
		fn(sub)
	}
	return nil
}
