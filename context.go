// Package cgroup mediates between a multi-process database server and the
// Linux kernel's cgroup v1 controllers, enforcing per-resource-group CPU,
// cpuset, and memory limits on database worker processes.
package cgroup

import (
	"github.com/hashicorp/go-hclog"

	"github.com/greenplum-db/gp-resgroup-cgroup/cgfs"
)

// DefaultProcCgroupPath (PID 1's cgroup membership) and
// DefaultProcMountInfoPath (this process's mount table) are the /proc paths
// an un-overridden New discovers against, exported so a caller outside this
// package (resgroupctl's mode check) can build the same paths.
const (
	DefaultProcCgroupPath    = "/proc/1/cgroup"
	DefaultProcMountInfoPath = "/proc/self/mountinfo"
)

// procCgroupPath and procMountInfoPath are package vars rather than
// constants so tests can point discovery at a fake /proc tree.
var (
	procCgroupPath    = DefaultProcCgroupPath
	procMountInfoPath = DefaultProcMountInfoPath
)

// Context is the immutable-after-init, process-wide handle every operation
// in this package is called against. It replaces what the original
// implementation kept as process globals (spec §9 "process-wide state"):
// the controller directory table, capability flags, system info, and CFS
// calibration are all gathered once and then only ever read.
type Context struct {
	logger hclog.Logger

	dirs         map[Controller]string
	caps         CapabilityFlags
	sys          SystemInfo
	cfs          cfsCalibration
	host         hostInfo
	tunables     *Tunables
	legacyKernel bool

	// currentGroup caches the last group id this process wrote itself
	// into, to suppress redundant cgroup.procs writes. It is never
	// consulted across processes; a forked child must not trust a value
	// copied from its parent (see attach in lifecycle.go).
	currentGroup      GroupID
	currentGroupValid bool

	// postForked is set once by MarkForked, called by a forked child
	// immediately after fork(); it gates when the currentGroup cache is
	// trusted (see Attach).
	postForked bool
}

// New builds a Context without touching the filesystem beyond discovery and
// the permission scan; it does not create the gpdb sub-tree. Use Init for
// that. logger may be nil, in which case a discarding logger is used.
func New(logger hclog.Logger, legacyKernel bool) *Context {
	return NewAt(logger, legacyKernel, procCgroupPath, procMountInfoPath)
}

// NewAt is New with the /proc/1/cgroup and /proc/self/mountinfo paths
// supplied explicitly instead of read from this process's own /proc. It
// exists for resgroupctl, which can point discovery at a different
// process's recorded cgroup membership (e.g. a saved snapshot, or a
// container other than its own) instead of always diagnosing itself.
func NewAt(logger hclog.Logger, legacyKernel bool, procCgroupPath, procMountInfoPath string) *Context {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Context{
		logger:       logger.Named("cgroup"),
		dirs:         discoverControllers(procCgroupPath, procMountInfoPath),
		legacyKernel: legacyKernel,
	}
}

// path builds a controller-relative path for group under the given base
// anchor, per spec §4.1's build_path.
func (c *Context) path(group GroupID, base baseDir, controller Controller, leaf string) (string, error) {
	prefix, ok := c.dirs[controller]
	if !ok {
		return "", newConfigError("no discovered directory for controller %s", controller)
	}

	segments := []string{prefix}
	if base == baseGpdb {
		segments = append(segments, baseDirGpdbName)
	}
	if group != Root {
		segments = append(segments, group.dirName())
	}
	if leaf != "" {
		segments = append(segments, leaf)
	}

	return cgfs.BuildPath(segments...)
}

// pathSafe is the non-raising variant used by readiness probes.
func (c *Context) pathSafe(group GroupID, base baseDir, controller Controller, leaf string) (string, bool) {
	p, err := c.path(group, base, controller, leaf)
	return p, err == nil
}

// ControllerDir returns the directory discovery placed controller's mount
// under, for diagnostics (resgroupctl probe/inspect). None of this
// package's own operations use it; they always go through path/pathSafe.
func (c *Context) ControllerDir(controller Controller) (string, bool) {
	d, ok := c.dirs[controller]
	return d, ok
}

// SystemInfo returns the host information discovered once at init.
func (c *Context) SystemInfo() SystemInfo { return c.sys }

// Capabilities returns the capability flags stamped by the permission scan.
func (c *Context) Capabilities() CapabilityFlags { return c.caps }

// Tunables returns the tunables the Context was initialized with.
func (c *Context) Tunables() *Tunables { return c.tunables }
