package main

import (
	"fmt"
	"strconv"
	"strings"
)

type attachCommand struct{ m *meta }

func (c *attachCommand) Synopsis() string { return "Attach a pid to a resource group" }

func (c *attachCommand) Help() string {
	return strings.TrimSpace(`
Usage: resgroupctl attach [options] <group> <pid>

  Writes <pid> into <group>'s cpu/cpuacct (and, unless -no-cpuset is
  given, cpuset) cgroup.procs files.

Options:

  -mount-root=<dir>    See "probe -help".
  -legacy-kernel        See "probe -help".
  -no-cpuset            Attach to the default cpuset group instead of
                        <group>'s own, leaving its cpu/cpuacct binding
                        untouched.
`)
}

func (c *attachCommand) Run(args []string) int {
	fs, mountRoot, legacyKernel := c.m.flagSet("attach")
	noCpuset := fs.Bool("no-cpuset", false, "")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 2 {
		c.m.ui.Error("expected <group> <pid>")
		return 1
	}

	group, err := parseGroupID(fs.Arg(0))
	if err != nil {
		c.m.ui.Error(err.Error())
		return 1
	}
	pid, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		c.m.ui.Error(fmt.Sprintf("invalid pid %q: %v", fs.Arg(1), err))
		return 1
	}

	b, err := c.m.backend(*mountRoot, *legacyKernel)
	if err != nil {
		c.m.ui.Error(err.Error())
		return 1
	}
	if _, err := b.ScanPermissions(); err != nil {
		c.m.ui.Error(fmt.Sprintf("permission scan failed: %v", err))
		return 1
	}

	if err := b.Attach(group, pid, !*noCpuset); err != nil {
		c.m.ui.Error(fmt.Sprintf("attach failed: %v", err))
		return 1
	}

	c.m.ui.Info(fmt.Sprintf("attached pid %d to group %v", pid, group))
	return 0
}
