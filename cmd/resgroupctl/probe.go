package main

import (
	"fmt"
	"strings"

	"github.com/greenplum-db/gp-resgroup-cgroup"
)

type probeCommand struct{ m *meta }

func (c *probeCommand) Synopsis() string { return "Report discovered controllers and capability flags" }

func (c *probeCommand) Help() string {
	return strings.TrimSpace(`
Usage: resgroupctl probe [options]

  Runs a non-raising permission scan against the root of the discovered
  cgroup v1 hierarchy and reports which controllers were found and which
  optional capabilities (memory, swap accounting, cpuset) this process
  can use. Nothing on disk is created or modified.

Options:

  -mount-root=<dir>    Diagnose a recorded cgroup/mountinfo snapshot
                        instead of this host's own /proc.
  -legacy-kernel        Treat memory/cpuset as optional controllers.
`)
}

func (c *probeCommand) Run(args []string) int {
	fs, mountRoot, legacyKernel := c.m.flagSet("probe")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	b, err := c.m.backend(*mountRoot, *legacyKernel)
	if err != nil {
		c.m.ui.Error(err.Error())
		return 1
	}

	for _, ctrl := range []cgroup.Controller{
		cgroup.ControllerCPU, cgroup.ControllerCPUAcct, cgroup.ControllerCPUSet, cgroup.ControllerMemory,
	} {
		dir, ok := b.ControllerDir(ctrl)
		if !ok {
			c.m.ui.Warn(fmt.Sprintf("%-10s not discovered", ctrl))
			continue
		}
		c.m.ui.Output(fmt.Sprintf("%-10s %s", ctrl, dir))
	}

	caps, err := b.ScanPermissions()
	if err != nil {
		c.m.ui.Error(fmt.Sprintf("permission scan failed: %v", err))
		return 1
	}

	c.m.ui.Output("")
	c.m.ui.Output(fmt.Sprintf("memory  capability: %v", caps.Memory))
	c.m.ui.Output(fmt.Sprintf("swap    capability: %v", caps.Swap))
	c.m.ui.Output(fmt.Sprintf("cpuset  capability: %v", caps.CPUSet))
	return 0
}
