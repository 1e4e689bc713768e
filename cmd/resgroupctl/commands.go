package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-homedir"

	"github.com/greenplum-db/gp-resgroup-cgroup"
)

// errCgroupV2 is returned by meta.backend when DetectMode finds the target
// host running the unified v2 hierarchy. cgroup v2 is an explicit non-goal
// (spec.md §1; a sibling backend would mediate it) — this tool refuses
// outright rather than discover a partial, unusable v1 controller table.
var errCgroupV2 = errors.New("cgroup v2 not supported by this backend")

func commands(ui cli.Ui, logger hclog.Logger) map[string]cli.CommandFactory {
	m := &meta{ui: ui, logger: logger}
	return map[string]cli.CommandFactory{
		"probe":        func() (cli.Command, error) { return &probeCommand{m}, nil },
		"init":         func() (cli.Command, error) { return &initCommand{m}, nil },
		"create":       func() (cli.Command, error) { return &createCommand{m}, nil },
		"attach":       func() (cli.Command, error) { return &attachCommand{m}, nil },
		"limit-cpu":    func() (cli.Command, error) { return &limitCPUCommand{m}, nil },
		"limit-memory": func() (cli.Command, error) { return &limitMemoryCommand{m}, nil },
		"inspect":      func() (cli.Command, error) { return &inspectCommand{m}, nil },
		"destroy":      func() (cli.Command, error) { return &destroyCommand{m}, nil },
	}
}

// meta is shared by every subcommand through its m field, the way the
// teacher's own command package shares a single Meta across its CLI verbs.
type meta struct {
	ui     cli.Ui
	logger hclog.Logger
}

// flagSet builds a FlagSet carrying the two flags every subcommand accepts:
// -mount-root (an alternate cgroup/mountinfo snapshot to diagnose) and
// -legacy-kernel (treat memory/cpuset as optional).
func (m *meta) flagSet(name string) (fs *flag.FlagSet, mountRoot *string, legacyKernel *bool) {
	fs = flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	mountRoot = fs.String("mount-root", "", "directory holding recorded cgroup/mountinfo files to diagnose instead of this host's own /proc")
	legacyKernel = fs.Bool("legacy-kernel", false, "treat memory/cpuset controllers as optional, for pre-3.x kernels")
	return fs, mountRoot, legacyKernel
}

func (m *meta) backend(mountRoot string, legacyKernel bool) (cgroup.Backend, error) {
	cgroupPath := cgroup.DefaultProcCgroupPath
	mountInfoPath := cgroup.DefaultProcMountInfoPath

	if mountRoot != "" {
		expanded, err := homedir.Expand(mountRoot)
		if err != nil {
			return nil, fmt.Errorf("expanding -mount-root: %w", err)
		}
		cgroupPath = filepath.Join(expanded, "cgroup")
		mountInfoPath = filepath.Join(expanded, "mountinfo")
	}

	// A failure to even read mountinfo is left for discovery itself to
	// report; only a confirmed v2 host is grounds for refusing here.
	if mode, err := cgroup.DetectMode(mountInfoPath); err == nil && mode == cgroup.ModeV2 {
		return nil, errCgroupV2
	}

	if mountRoot == "" {
		return cgroup.NewBackend(m.logger, legacyKernel), nil
	}
	return cgroup.NewBackendAt(m.logger, legacyKernel, cgroupPath, mountInfoPath), nil
}

func parseGroupID(s string) (cgroup.GroupID, error) {
	switch s {
	case "root":
		return cgroup.Root, nil
	case "default":
		return cgroup.DefaultCpuset, nil
	case "system":
		return cgroup.System, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("group id must be a number or one of root/default/system, got %q", s)
	}
	return cgroup.GroupID(v), nil
}
