package main

import (
	"fmt"
	"strings"

	"github.com/greenplum-db/gp-resgroup-cgroup"
)

type initCommand struct{ m *meta }

func (c *initCommand) Synopsis() string { return "Create the gpdb sub-tree and the system group" }

func (c *initCommand) Help() string {
	return strings.TrimSpace(`
Usage: resgroupctl init [options]

  Performs the one-time setup a postmaster does at startup: validates the
  controller hierarchy, stamps capability flags, creates the gpdb
  sub-tree under every discovered controller, and creates the system
  group used for the postmaster itself.

Options:

  -mount-root=<dir>        See "probe -help".
  -legacy-kernel            See "probe -help".
  -cpu-limit=<float>        Fraction (0,1] of the parent CFS quota. Default 1.0.
  -cpu-priority=<int>       Multiplier on the inherited cpu.shares. Default 1.
  -no-cpu-ceiling           Disable per-group cfs_quota_us enforcement.
`)
}

func (c *initCommand) Run(args []string) int {
	fs, mountRoot, legacyKernel := c.m.flagSet("init")
	cpuLimit := fs.Float64("cpu-limit", 1.0, "")
	cpuPriority := fs.Int("cpu-priority", 1, "")
	noCeiling := fs.Bool("no-cpu-ceiling", false, "")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	b, err := c.m.backend(*mountRoot, *legacyKernel)
	if err != nil {
		c.m.ui.Error(err.Error())
		return 1
	}

	caps, err := b.ScanPermissions()
	if err != nil {
		c.m.ui.Error(fmt.Sprintf("permission scan failed: %v", err))
		return 1
	}

	tun, err := cgroup.NewTunables(caps,
		cgroup.WithCPULimit(*cpuLimit),
		cgroup.WithCPUPriority(*cpuPriority),
		cgroup.WithCPUCeilingEnforcement(!*noCeiling),
	)
	if err != nil {
		c.m.ui.Error(fmt.Sprintf("building tunables: %v", err))
		return 1
	}

	if err := b.Init(tun); err != nil {
		c.m.ui.Error(fmt.Sprintf("init failed: %v", err))
		return 1
	}

	c.m.ui.Info("initialized gpdb resource group sub-tree")
	return 0
}
