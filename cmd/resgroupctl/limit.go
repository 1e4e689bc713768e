package main

import (
	"fmt"
	"strconv"
	"strings"
)

type limitCPUCommand struct{ m *meta }

func (c *limitCPUCommand) Synopsis() string { return "Set a group's CPU limit" }

func (c *limitCPUCommand) Help() string {
	return strings.TrimSpace(`
Usage: resgroupctl limit-cpu [options] <group> <rate>

  Sets <group>'s cpu.shares to <rate> percent of the gpdb sub-tree's own
  and, if ceiling enforcement is in effect, its cfs_quota_us to <rate>
  percent of the gpdb sub-tree's cfs_period_us times the host core count.

Options:

  -mount-root=<dir>    See "probe -help".
  -legacy-kernel        See "probe -help".
`)
}

func (c *limitCPUCommand) Run(args []string) int {
	fs, mountRoot, legacyKernel := c.m.flagSet("limit-cpu")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 2 {
		c.m.ui.Error("expected <group> <rate>")
		return 1
	}

	group, err := parseGroupID(fs.Arg(0))
	if err != nil {
		c.m.ui.Error(err.Error())
		return 1
	}
	rate, err := strconv.ParseFloat(fs.Arg(1), 64)
	if err != nil {
		c.m.ui.Error(fmt.Sprintf("invalid rate %q: %v", fs.Arg(1), err))
		return 1
	}

	b, err := c.m.backend(*mountRoot, *legacyKernel)
	if err != nil {
		c.m.ui.Error(err.Error())
		return 1
	}

	if err := b.SetCPULimit(group, rate); err != nil {
		c.m.ui.Error(fmt.Sprintf("limit-cpu failed: %v", err))
		return 1
	}

	c.m.ui.Info(fmt.Sprintf("set group %v cpu limit to %g%%", group, rate))
	return 0
}

type limitMemoryCommand struct{ m *meta }

func (c *limitMemoryCommand) Synopsis() string { return "Set a group's memory limit by chunk count" }

func (c *limitMemoryCommand) Help() string {
	return strings.TrimSpace(`
Usage: resgroupctl limit-memory [options] <group> <chunks>

  Sets <group>'s memory.limit_in_bytes (and memory.memsw.limit_in_bytes,
  when swap accounting is enabled) to <chunks> * 32MiB, ordering the two
  writes so the kernel's limit <= memsw invariant is never violated.

Options:

  -mount-root=<dir>    See "probe -help".
  -legacy-kernel        See "probe -help".
`)
}

func (c *limitMemoryCommand) Run(args []string) int {
	fs, mountRoot, legacyKernel := c.m.flagSet("limit-memory")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 2 {
		c.m.ui.Error("expected <group> <chunks>")
		return 1
	}

	group, err := parseGroupID(fs.Arg(0))
	if err != nil {
		c.m.ui.Error(err.Error())
		return 1
	}
	chunks, err := strconv.ParseInt(fs.Arg(1), 10, 64)
	if err != nil {
		c.m.ui.Error(fmt.Sprintf("invalid chunk count %q: %v", fs.Arg(1), err))
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

	if err := b.SetMemoryLimitByChunks(group, chunks); err != nil {
		c.m.ui.Error(fmt.Sprintf("limit-memory failed: %v", err))
		return 1
	}

	c.m.ui.Info(fmt.Sprintf("set group %v memory limit to %d chunks", group, chunks))
	return 0
}
