package cgroup

import "github.com/greenplum-db/gp-resgroup-cgroup/cgfs"

// ScanPermissions runs the permission matrix in probe mode (report=false)
// against the gpdb root and returns the resulting capability flags without
// raising and without mutating anything on disk. It is the non-committing
// half of what Init does, so a caller can build a capability-aware
// Tunables before calling Init.
func (c *Context) ScanPermissions() (CapabilityFlags, error) {
	if _, err := c.permissionCheck(Root, false); err != nil {
		return CapabilityFlags{}, err
	}
	return c.caps, nil
}

// Check performs the strict, raising init validation: the cpu/cpuset
// hierarchy-collision check, followed by a report-mode permission scan
// that raises ConfigError identifying the first unsatisfied mandatory
// list.
func (c *Context) Check() error {
	if err := checkHierarchy(procCgroupPath); err != nil {
		return err
	}
	if _, err := c.permissionCheck(Root, true); err != nil {
		return err
	}
	return nil
}

// Init performs the one-time, process-wide setup: Check, the system probe,
// creating the gpdb sub-tree and seeding its CPU/cpuset state from the
// parent, and creating the System group for the postmaster and its
// auxiliary processes. tunables must already reflect the capability flags
// from a prior ScanPermissions call (NewTunables enforces this).
func (c *Context) Init(tunables *Tunables) error {
	if err := c.Check(); err != nil {
		return err
	}

	host, err := c.probe()
	if err != nil {
		return err
	}
	c.host = host
	c.tunables = tunables

	if err := c.Create(Root); err != nil {
		return err
	}
	if err := c.InitCPU(); err != nil {
		return err
	}
	if c.caps.CPUSet {
		if err := c.InitCPUSet(); err != nil {
			return err
		}
	}
	return c.Create(System)
}

// AdjustTunables resets group's cpu.shares to the gpdb sub-tree's own
// shares, the nice(0) equivalent baseline: cgroup shares supersede any
// OS-level nice value a worker process might otherwise have inherited, so
// every group starts from the same weight regardless of it.
func (c *Context) AdjustTunables(group GroupID) error {
	gpdbShares, err := c.readI64(Root, baseGpdb, ControllerCPU, "cpu.shares")
	if err != nil {
		return err
	}
	path, err := c.path(group, baseGpdb, ControllerCPU, "cpu.shares")
	if err != nil {
		return err
	}
	if err := cgfs.WriteI64(path, gpdbShares); err != nil {
		return newIOError("write", path, err)
	}
	return nil
}
