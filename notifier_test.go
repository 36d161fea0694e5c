// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux

package cgroups

import (
	"context"
	"encoding/binary"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shoenig/test/must"
	"golang.org/x/sys/unix"
)

const oomControlContent = "oom_kill_disable 0\nunder_oom 0\n"

func testListenerCgroup(t *testing.T) (*Client, string) {
	t.Helper()
	c, hierarchy := testClient(t, "memory", "freezer")
	mkCgroup(t, hierarchy, "test", map[string]string{
		"memory.oom_control":   oomControlContent,
		"cgroup.event_control": "",
	})
	return c, hierarchy
}

// registeredEventfd extracts the eventfd number from the registration
// line the listener wrote to cgroup.event_control.
func registeredEventfd(t *testing.T, hierarchy string) (int, []string) {
	t.Helper()
	line := strings.TrimSpace(readFile(t, filepath.Join(hierarchy, "test", "cgroup.event_control")))
	fields := strings.Fields(line)
	must.True(t, len(fields) >= 2)

	efd, err := strconv.Atoi(fields[0])
	must.NoError(t, err)
	return efd, fields
}

// fire makes the listener's eventfd readable the way the kernel would,
// by adding to its counter.
func fire(t *testing.T, efd int, value uint64) {
	t.Helper()
	buf := make([]byte, 8)
	binary.NativeEndian.PutUint64(buf, value)
	n, err := unix.Write(efd, buf)
	must.NoError(t, err)
	must.Eq(t, 8, n)
}

func TestClient_ListenEvent(t *testing.T) {
	c, hierarchy := testListenerCgroup(t)

	l, err := c.ListenEvent(hierarchy, "test", "memory.oom_control", "")
	must.NoError(t, err)
	defer l.Close()

	efd, fields := registeredEventfd(t, hierarchy)
	must.Len(t, 2, fields)

	fire(t, efd, 7)

	value, err := l.Wait(context.Background())
	must.NoError(t, err)
	must.Eq(t, uint64(7), value)
}

func TestClient_ListenEvent_args(t *testing.T) {
	c, hierarchy := testListenerCgroup(t)

	// Threshold style registrations append their arguments to the
	// eventfd and control fd pair.
	writeFile(t, filepath.Join(hierarchy, "test", "memory.usage_in_bytes"), "0\n")

	l, err := c.ListenEvent(hierarchy, "test", "memory.usage_in_bytes", "67108864")
	must.NoError(t, err)
	defer l.Close()

	_, fields := registeredEventfd(t, hierarchy)
	must.Len(t, 3, fields)
	must.Eq(t, "67108864", fields[2])
}

func TestClient_ListenEvent_missingControl(t *testing.T) {
	c, hierarchy := testListenerCgroup(t)

	_, err := c.ListenEvent(hierarchy, "test", "memory.missing", "")
	must.ErrorIs(t, err, ErrNotFound)

	_, err = c.ListenEvent(hierarchy, "missing", "memory.oom_control", "")
	must.ErrorIs(t, err, ErrNotFound)
}

func TestEventListener_Close(t *testing.T) {
	c, hierarchy := testListenerCgroup(t)

	l, err := c.ListenEvent(hierarchy, "test", "memory.oom_control", "")
	must.NoError(t, err)

	must.NoError(t, l.Close())

	_, err = l.Wait(context.Background())
	must.ErrorIs(t, err, ErrCancelled)

	// Closing again is fine.
	must.NoError(t, l.Close())
}

func TestEventListener_WaitCancelled(t *testing.T) {
	c, hierarchy := testListenerCgroup(t)

	l, err := c.ListenEvent(hierarchy, "test", "memory.oom_control", "")
	must.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = l.Wait(ctx)
	must.ErrorIs(t, err, ErrCancelled)
}

func TestClient_ListenOOM(t *testing.T) {
	c, hierarchy := testListenerCgroup(t)

	l, err := c.ListenOOM(hierarchy, "test")
	must.NoError(t, err)
	defer l.Close()

	efd, _ := registeredEventfd(t, hierarchy)
	fire(t, efd, 1)

	value, err := l.Wait(context.Background())
	must.NoError(t, err)
	must.Eq(t, uint64(1), value)
}
