package main

import (
	"fmt"
	"strings"
)

type destroyCommand struct{ m *meta }

func (c *destroyCommand) Synopsis() string { return "Destroy a resource group" }

func (c *destroyCommand) Help() string {
	return strings.TrimSpace(`
Usage: resgroupctl destroy [options] <group>

  Removes <group>'s directory under every managed controller. With
  -migrate, any pid still attached is moved to the default group first;
  per-pid migration failures are logged but don't abort the destroy.

Options:

  -mount-root=<dir>    See "probe -help".
  -legacy-kernel        See "probe -help".
  -migrate              Migrate residual pids to the default group first.
`)
}

func (c *destroyCommand) Run(args []string) int {
	fs, mountRoot, legacyKernel := c.m.flagSet("destroy")
	migrate := fs.Bool("migrate", false, "")
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

	if err := b.Destroy(group, *migrate); err != nil {
		c.m.ui.Error(fmt.Sprintf("destroy failed: %v", err))
		return 1
	}

	c.m.ui.Info(fmt.Sprintf("destroyed group %v", group))
	return 0
}
