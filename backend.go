package cgroup

import (
	"github.com/hashicorp/go-hclog"

	"github.com/greenplum-db/gp-resgroup-cgroup/coreset"
)

// Backend is the uniform resource-group control surface the database talks
// to, independent of which cgroup version backs it. *Context is the cgroup
// v1 implementation; a future v2 backend (not implemented here — the
// distribution this package targets runs exclusively on cgroup v1 hosts)
// would satisfy the same interface so callers never branch on version.
type Backend interface {
	Name() string

	ScanPermissions() (CapabilityFlags, error)
	Check() error
	Init(tunables *Tunables) error

	Create(group GroupID) error
	Attach(group GroupID, pid int, withCpuset bool) error
	MarkForked()
	Destroy(group GroupID, migrate bool) error

	Lock(group GroupID, controller Controller, block bool) (int, error)
	Unlock(fd int) error

	SetCPULimit(group GroupID, rate float64) error
	GetCPUSet(group GroupID) (*coreset.Set, error)
	SetCPUSet(group GroupID, set *coreset.Set) error
	SetMemoryLimit(group GroupID, rate float64) error
	SetMemoryLimitByChunks(group GroupID, chunks int64) error

	GetCPUUsage(group GroupID) (int64, error)
	ConvertCPUUsage(usageNS, durationUS int64) float64
	GetMemoryUsage(group GroupID) (int64, error)
	GetMemoryLimitChunks(group GroupID) (int64, error)
	GetTotalMemoryMiB() (int64, error)

	AdjustTunables(group GroupID) error

	ControllerDir(controller Controller) (string, bool)
	SystemInfo() SystemInfo
	Capabilities() CapabilityFlags
	Tunables() *Tunables
}

// Name identifies the backend for logging and the debug CLI.
func (c *Context) Name() string { return "cgroup" }

// NewBackend constructs the cgroup v1 Backend. It and NewBackendAt are the
// constructors a caller outside this package (such as cmd/resgroupctl)
// uses; Context itself stays exported for callers that need lower-level
// access than the interface exposes.
func NewBackend(logger hclog.Logger, legacyKernel bool) Backend {
	return New(logger, legacyKernel)
}

// NewBackendAt is NewBackend with an explicit /proc/1/cgroup and
// /proc/self/mountinfo pair; see NewAt.
func NewBackendAt(logger hclog.Logger, legacyKernel bool, procCgroupPath, procMountInfoPath string) Backend {
	return NewAt(logger, legacyKernel, procCgroupPath, procMountInfoPath)
}

var _ Backend = (*Context)(nil)
