package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type inspectCommand struct{ m *meta }

func (c *inspectCommand) Synopsis() string { return "Report a group's current limits and usage" }

func (c *inspectCommand) Help() string {
	return strings.TrimSpace(`
Usage: resgroupctl inspect [options] <group>

  Reads <group>'s current cpuset, memory limit, and memory usage without
  modifying anything. Output is colorized when stdout is a terminal.

Options:

  -mount-root=<dir>    See "probe -help".
  -legacy-kernel        See "probe -help".
`)
}

func (c *inspectCommand) Run(args []string) int {
	fs, mountRoot, legacyKernel := c.m.flagSet("inspect")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		c.m.ui.Error("expected exactly one group id")
		return 1
	}

	group, err := parseGroupID(fs.Arg(0))
	if err != nil {
		c.m.ui.Error(err.Error())
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

	label := color.New(color.Bold)
	value := color.New(color.FgGreen)
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		label.DisableColor()
		value.DisableColor()
	}

	print := func(name string, v any) {
		fmt.Fprintf(os.Stdout, "%s %v\n", label.Sprintf("%-16s", name), value.Sprint(v))
	}

	print("group", group)
	print("memory capability", caps.Memory)
	print("swap capability", caps.Swap)
	print("cpuset capability", caps.CPUSet)

	if caps.CPUSet {
		if set, err := b.GetCPUSet(group); err == nil {
			print("cpuset.cpus", set.String())
		} else {
			c.m.ui.Warn(fmt.Sprintf("reading cpuset: %v", err))
		}
	}

	if caps.Memory {
		if limit, err := b.GetMemoryLimitChunks(group); err == nil {
			print("memory limit (chunks)", limit)
		} else {
			c.m.ui.Warn(fmt.Sprintf("reading memory limit: %v", err))
		}
		if usage, err := b.GetMemoryUsage(group); err == nil {
			print("memory usage (chunks)", usage)
		} else {
			c.m.ui.Warn(fmt.Sprintf("reading memory usage: %v", err))
		}
	}

	if usage, err := b.GetCPUUsage(group); err == nil {
		print("cpu usage (ns)", usage)
	} else {
		c.m.ui.Warn(fmt.Sprintf("reading cpu usage: %v", err))
	}

	return 0
}
