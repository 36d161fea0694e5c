// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux

package cgroups

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shoenig/test/must"
	"github.com/stretchr/testify/require"
)

// fakeProcPid materializes /proc/<pid>/stat and /proc/<pid>/cgroup in
// the client's fake procfs. The stat line carries the full field set
// the parser expects; only pid and state vary.
func fakeProcPid(t *testing.T, c *Client, pid int, state string) {
	t.Helper()

	dir := filepath.Join(c.procMount, fmt.Sprintf("%d", pid))
	must.NoError(t, os.MkdirAll(dir, 0755))

	stat := fmt.Sprintf("%d (sleep) %s 1 %d %d 0 -1 4194304 151 0 0 0 0 0 0 0 20 0 1 0 "+
		"24385982 5619712 185 18446744073709551615 94070986430464 94070987219301 "+
		"140726085988880 0 0 0 0 0 0 0 0 0 17 3 0 0 0 0 0 94070987452528 "+
		"94070987500208 94071015268352 140726085995574 140726085995580 "+
		"140726085995580 140726085999594 0\n", pid, state, pid, pid)
	writeFile(t, filepath.Join(dir, "stat"), stat)

	cgroup := "4:freezer:/test\n" +
		"3:memory:/test\n" +
		"2:cpu,cpuacct:/\n" +
		"0::/init.scope\n"
	writeFile(t, filepath.Join(dir, "cgroup"), cgroup)
}

func TestClient_GetTasks(t *testing.T) {
	c, hierarchy := testClient(t, "cpu")

	// The kernel may emit duplicates and trailing whitespace.
	mkCgroup(t, hierarchy, "test", map[string]string{
		"tasks": "10\n11\n11\n12\n\n",
	})

	pids, err := c.GetTasks(hierarchy, "test")
	must.NoError(t, err)
	must.Eq(t, 3, pids.Size())
	must.True(t, pids.Contains(10))
	must.True(t, pids.Contains(11))
	must.True(t, pids.Contains(12))
}

func TestClient_GetTasks_empty(t *testing.T) {
	c, hierarchy := testClient(t, "cpu")
	mkCgroup(t, hierarchy, "test", map[string]string{"tasks": ""})

	pids, err := c.GetTasks(hierarchy, "test")
	must.NoError(t, err)
	must.Eq(t, 0, pids.Size())
}

func TestClient_GetTasks_malformed(t *testing.T) {
	c, hierarchy := testClient(t, "cpu")
	mkCgroup(t, hierarchy, "test", map[string]string{"tasks": "10\nbogus\n"})

	_, err := c.GetTasks(hierarchy, "test")
	must.ErrorIs(t, err, ErrParse)
}

func TestClient_AssignTask(t *testing.T) {
	c, hierarchy := testClient(t, "cpu")
	dir := mkCgroup(t, hierarchy, "test", map[string]string{"tasks": ""})

	must.NoError(t, c.AssignTask(hierarchy, "test", 42))
	must.Eq(t, "42\n", readFile(t, filepath.Join(dir, "tasks")))

	must.ErrorIs(t, c.AssignTask(hierarchy, "missing", 42), ErrNotFound)
}

func TestClient_taskState(t *testing.T) {
	c, _ := testClient(t)

	fakeProcPid(t, c, 100, "S")
	fakeProcPid(t, c, 101, "T")

	cases := []struct {
		name string
		pid  int
		exp  string
	}{
		{name: "sleeping", pid: 100, exp: "S"},
		{name: "stopped", pid: 101, exp: "T"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state, err := c.taskState(tc.pid)
			require.NoError(t, err)
			require.Equal(t, tc.exp, state)
		})
	}

	_, err := c.taskState(999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClient_CgroupOf(t *testing.T) {
	c, _ := testClient(t)
	fakeProcPid(t, c, 100, "S")

	path, err := c.CgroupOf(100, "freezer")
	must.NoError(t, err)
	must.Eq(t, "/test", path)

	path, err = c.CgroupOf(100, "cpuacct")
	must.NoError(t, err)
	must.Eq(t, "/", path)

	_, err = c.CgroupOf(100, "blkio")
	must.ErrorIs(t, err, ErrNotFound)

	_, err = c.CgroupOf(999, "freezer")
	must.ErrorIs(t, err, ErrNotFound)
}
