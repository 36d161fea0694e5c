// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux

package cgroups

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/procfs"
	"github.com/shoenig/test/must"
)

func TestClient_Hierarchies(t *testing.T) {
	c, _ := testClient(t)

	one, err := filepath.EvalSymlinks(t.TempDir())
	must.NoError(t, err)
	two, err := filepath.EvalSymlinks(t.TempDir())
	must.NoError(t, err)

	c.mounts = func() ([]*procfs.MountInfo, error) {
		return []*procfs.MountInfo{
			mountEntry(one, "cgroup", "cpu"),
			mountEntry("/sys/fs/pstore", "pstore"),
			mountEntry(two, "cgroup", "freezer"),
		}, nil
	}

	hierarchies, err := c.Hierarchies()
	must.NoError(t, err)
	must.Eq(t, 2, hierarchies.Size())
	must.True(t, hierarchies.Contains(one))
	must.True(t, hierarchies.Contains(two))
}

func TestClient_SubsystemsOf(t *testing.T) {
	c, hierarchy := testClient(t, "cpu", "memory")

	attached, err := c.SubsystemsOf(hierarchy)
	must.NoError(t, err)
	must.Eq(t, 2, attached.Size())
	must.True(t, attached.Contains("cpu"))
	must.True(t, attached.Contains("memory"))

	// Generic mount options such as rw are not subsystems and must not
	// leak into the attached set.
	must.False(t, attached.Contains("rw"))
}

func TestClient_SubsystemsOf_lastMountWins(t *testing.T) {
	c, hierarchy := testClient(t)

	// The same directory mounted twice: the earlier cpu mount is
	// obscured by the later memory mount.
	c.mounts = func() ([]*procfs.MountInfo, error) {
		return []*procfs.MountInfo{
			mountEntry(hierarchy, "cgroup", "cpu"),
			mountEntry(hierarchy, "cgroup", "memory"),
		}, nil
	}

	attached, err := c.SubsystemsOf(hierarchy)
	must.NoError(t, err)
	must.Eq(t, 1, attached.Size())
	must.True(t, attached.Contains("memory"))
}

func TestClient_SubsystemsOf_notMounted(t *testing.T) {
	c, _ := testClient(t, "cpu")

	// An existing directory that is not in the mount table.
	_, err := c.SubsystemsOf(t.TempDir())
	must.ErrorIs(t, err, ErrNotFound)

	// A path that does not exist at all.
	_, err = c.SubsystemsOf("/does/not/exist")
	must.ErrorIs(t, err, ErrNotFound)
}

func TestClient_SubsystemsOf_disabledExcluded(t *testing.T) {
	c, hierarchy := testClient(t, "cpu", "devices")

	// devices appears in the mount options but is disabled in the
	// kernel, so the intersection drops it.
	attached, err := c.SubsystemsOf(hierarchy)
	must.NoError(t, err)
	must.Eq(t, 1, attached.Size())
	must.True(t, attached.Contains("cpu"))
}
