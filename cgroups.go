// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build linux

package cgroups

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-set/v3"
	"github.com/prometheus/procfs"
)

const defaultProcMount = "/proc"

// Subsystem is a snapshot of one line of /proc/cgroups describing a
// kernel resource controller.
type Subsystem struct {
	// Name of the subsystem (cpu, memory, cpuset, freezer, ...).
	Name string

	// Hierarchy is the id of the hierarchy the subsystem is attached
	// to; 0 means the subsystem is not attached anywhere.
	Hierarchy int

	// Cgroups is the number of cgroups currently using the subsystem.
	Cgroups int

	// Enabled reports whether the subsystem is enabled in the kernel.
	Enabled bool
}

// Config parameterizes a Client. The zero value is usable.
type Config struct {
	// Logger receives driver state transitions at debug level. Defaults
	// to a no-op logger.
	Logger hclog.Logger

	// ProcMount is the procfs mount point, normally /proc.
	ProcMount string
}

// Client exposes the cgroups v1 management operations. Methods never
// cache kernel state; every call reads a fresh snapshot of /proc.
//
// Concurrent operations on disjoint cgroups are safe. Concurrent
// operations on the same cgroup, from this or any other process, are
// undefined and must be serialized by the caller.
type Client struct {
	logger    hclog.Logger
	procMount string
	proc      procfs.FS

	// mounts returns the current mount table. Swapped out in tests.
	mounts func() ([]*procfs.MountInfo, error)
}

// New returns a Client backed by the procfs mounted at cfg.ProcMount.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	procMount := cfg.ProcMount
	if procMount == "" {
		procMount = defaultProcMount
	}

	fs, err := procfs.NewFS(procMount)
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs at %s: %w", procMount, err)
	}

	return &Client{
		logger:    logger.Named("cgroups"),
		procMount: procMount,
		proc:      fs,
		mounts:    procfs.GetMounts,
	}, nil
}

// Supported reports whether the kernel exposes cgroups at all, i.e.
// whether /proc/cgroups exists.
func (c *Client) Supported() bool {
	_, err := os.Stat(filepath.Join(c.procMount, "cgroups"))
	return err == nil
}

// subsystemInfo reads /proc/cgroups into a map keyed by subsystem name.
func (c *Client) subsystemInfo() (map[string]Subsystem, error) {
	summaries, err := c.proc.CgroupSummarys()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open %s/cgroups: %w", c.procMount, ErrNotSupported)
		}
		return nil, fmt.Errorf("failed to read %s/cgroups: %w: %v", c.procMount, ErrParse, err)
	}

	infos := make(map[string]Subsystem, len(summaries))
	for _, s := range summaries {
		infos[s.SubsysName] = Subsystem{
			Name:      s.SubsysName,
			Hierarchy: s.Hierarchy,
			Cgroups:   s.Cgroups,
			Enabled:   s.Enabled == 1,
		}
	}
	return infos, nil
}

// Subsystems returns the names of all subsystems enabled in the kernel.
func (c *Client) Subsystems() (*set.Set[string], error) {
	infos, err := c.subsystemInfo()
	if err != nil {
		return nil, err
	}

	names := set.New[string](len(infos))
	for name, info := range infos {
		if info.Enabled {
			names.Insert(name)
		}
	}
	return names, nil
}

// Enabled reports whether every subsystem in the comma separated list
// is enabled in the kernel. Unknown names are an error rather than
// false so callers can distinguish typos from disabled controllers.
func (c *Client) Enabled(subsystems string) (bool, error) {
	names := tokenize(subsystems)
	if len(names) == 0 {
		return false, fmt.Errorf("no subsystem specified: %w", ErrInvalidArgument)
	}

	infos, err := c.subsystemInfo()
	if err != nil {
		return false, err
	}

	enabled := true
	for _, name := range names {
		info, ok := infos[name]
		if !ok {
			return false, fmt.Errorf("subsystem %s: %w", name, ErrNotFound)
		}
		// Keep scanning so an invalid name anywhere in the list is
		// still reported as an error.
		if !info.Enabled {
			enabled = false
		}
	}
	return enabled, nil
}

// Busy reports whether any subsystem in the comma separated list is
// already attached to a hierarchy.
func (c *Client) Busy(subsystems string) (bool, error) {
	names := tokenize(subsystems)
	if len(names) == 0 {
		return false, fmt.Errorf("no subsystem specified: %w", ErrInvalidArgument)
	}

	infos, err := c.subsystemInfo()
	if err != nil {
		return false, err
	}

	busy := false
	for _, name := range names {
		info, ok := infos[name]
		if !ok {
			return false, fmt.Errorf("subsystem %s: %w", name, ErrNotFound)
		}
		if info.Hierarchy != 0 {
			busy = true
		}
	}
	return busy, nil
}

// CheckHierarchy verifies that hierarchy is a mounted cgroup hierarchy
// and, if subsystem names are given, that each one is enabled in the
// kernel and attached to that hierarchy.
func (c *Client) CheckHierarchy(hierarchy string, subsystems ...string) error {
	attached, err := c.SubsystemsOf(hierarchy)
	if err != nil {
		return err
	}
	if attached.Empty() {
		return fmt.Errorf("no subsystem is attached to %s: %w", hierarchy, ErrNotFound)
	}

	if len(subsystems) == 0 {
		return nil
	}

	enabled, err := c.Enabled(strings.Join(subsystems, ","))
	if err != nil {
		return err
	}
	if !enabled {
		return fmt.Errorf("some subsystems are not enabled: %w", ErrNotSupported)
	}

	for _, name := range subsystems {
		if !attached.Contains(name) {
			return fmt.Errorf("subsystem %s is not attached to %s: %w", name, hierarchy, ErrNotFound)
		}
	}
	return nil
}

// CheckCgroup verifies that cgroup exists under a mounted hierarchy.
func (c *Client) CheckCgroup(hierarchy, cgroup string) error {
	if err := c.CheckHierarchy(hierarchy); err != nil {
		return err
	}

	path := filepath.Join(hierarchy, cgroup)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cgroup %s is not valid: %w", cgroup, ErrNotFound)
	}
	return nil
}

// CheckControl verifies that the named control file exists in cgroup.
func (c *Client) CheckControl(hierarchy, cgroup, control string) error {
	if err := c.CheckCgroup(hierarchy, cgroup); err != nil {
		return err
	}

	if !c.edit(hierarchy, cgroup).exists(control) {
		path := filepath.Join(hierarchy, cgroup, control)
		return fmt.Errorf("control file %s does not exist: %w", path, ErrNotFound)
	}
	return nil
}

// ReadControl reads the value of a control file.
func (c *Client) ReadControl(hierarchy, cgroup, control string) (string, error) {
	if err := c.CheckControl(hierarchy, cgroup, control); err != nil {
		return "", err
	}
	return c.edit(hierarchy, cgroup).read(control)
}

// WriteControl writes a value to a control file.
func (c *Client) WriteControl(hierarchy, cgroup, control, value string) error {
	if err := c.CheckControl(hierarchy, cgroup, control); err != nil {
		return err
	}
	return c.edit(hierarchy, cgroup).write(control, value)
}

// tokenize splits a comma separated subsystem list, dropping empty
// tokens so inputs like "cpu,,memory," parse cleanly.
func tokenize(subsystems string) []string {
	var names []string
	for _, name := range strings.Split(subsystems, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
