// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux

package cgroups

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// editor is a handle on one cgroup directory through which all control
// file reads and writes go. It performs no validation of its own; the
// public Client surface validates before opening an editor.
type editor struct {
	dpath string
}

func (c *Client) edit(hierarchy, cgroup string) *editor {
	return &editor{dpath: filepath.Join(hierarchy, cgroup)}
}

// read streams the content of a control file. Control files do not
// support lseek, so size-probing reads are off the table.
func (e *editor) read(control string) (string, error) {
	path := filepath.Join(e.dpath, control)

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return string(b), nil
}

// write truncates a control file and writes value followed by a
// newline.
func (e *editor) write(control, value string) error {
	path := filepath.Join(e.dpath, control)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}

	_, err = f.WriteString(value + "\n")
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

// exists reports whether the named control file is present.
func (e *editor) exists(control string) bool {
	_, err := os.Stat(filepath.Join(e.dpath, control))
	return err == nil
}

// mkdirCgroup creates one cgroup directory. Deliberately non-recursive: a
// cgroup may only be created under an existing parent.
func mkdirCgroup(path string) error {
	if err := os.Mkdir(path, 0755); err != nil {
		return fmt.Errorf("failed to create cgroup at %s: %w", path, err)
	}
	return nil
}

// rmdirCgroup removes one cgroup directory. The kernel refuses while the
// cgroup still holds tasks or sub-cgroups.
func rmdirCgroup(path string) error {
	if err := unix.Rmdir(path); err != nil {
		return fmt.Errorf("failed to remove cgroup at %s: %w", path, err)
	}
	return nil
}

// mountHierarchy mounts a cgroup filesystem with the given subsystems
// attached at the hierarchy root.
func mountHierarchy(hierarchy, subsystems string) error {
	if err := unix.Mount(subsystems, hierarchy, "cgroup", 0, subsystems); err != nil {
		return fmt.Errorf("failed to mount %s: %w", hierarchy, err)
	}
	return nil
}

// unmountHierarchy detaches the cgroup filesystem from the hierarchy
// root. Every cgroup in the hierarchy must already be removed.
func unmountHierarchy(hierarchy string) error {
	if err := unix.Unmount(hierarchy, 0); err != nil {
		return fmt.Errorf("failed to unmount %s: %w", hierarchy, err)
	}
	return nil
}
