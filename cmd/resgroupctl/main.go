// Command resgroupctl is a debug tool for exercising the cgroup v1
// resource-group backend outside a running database: probing capability
// flags, driving the group lifecycle by hand, and inspecting a group's
// current limits and usage.
package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-hclog"
)

const appName = "resgroupctl"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  appName,
		Level: hclog.LevelFromString(os.Getenv("RESGROUPCTL_LOG_LEVEL")),
	})

	ui := &cli.ColoredUi{
		Ui: &cli.BasicUi{
			Reader:      os.Stdin,
			Writer:      os.Stdout,
			ErrorWriter: os.Stderr,
		},
		OutputColor: cli.UiColorNone,
		InfoColor:   cli.UiColorNone,
		ErrorColor:  cli.UiColorRed,
		WarnColor:   cli.UiColorYellow,
	}

	c := &cli.CLI{
		Name:     appName,
		Args:     args,
		Commands: commands(ui, logger),
		HelpFunc: cli.BasicHelpFunc(appName),
	}

	exitCode, err := c.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}
