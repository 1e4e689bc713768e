package main

import (
	"fmt"
	"strings"
)

type createCommand struct{ m *meta }

func (c *createCommand) Synopsis() string { return "Create a resource group" }

func (c *createCommand) Help() string {
	return strings.TrimSpace(`
Usage: resgroupctl create [options] <group>

  Creates <group>'s directory under every managed controller and seeds
  its cpuset from the gpdb sub-tree.

Options:

  -mount-root=<dir>    See "probe -help".
  -legacy-kernel        See "probe -help".
`)
}

func (c *createCommand) Run(args []string) int {
	fs, mountRoot, legacyKernel := c.m.flagSet("create")
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
	if _, err := b.ScanPermissions(); err != nil {
		c.m.ui.Error(fmt.Sprintf("permission scan failed: %v", err))
		return 1
	}

	if err := b.Create(group); err != nil {
		c.m.ui.Error(fmt.Sprintf("create failed: %v", err))
		return 1
	}

	c.m.ui.Info(fmt.Sprintf("created group %v", group))
	return 0
}
