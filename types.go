package cgroup

import "fmt"

// Controller is a cgroup v1 subsystem this backend mediates. The zero value
// is the unknown sentinel.
type Controller int

const (
	ControllerUnknown Controller = iota
	ControllerCPU
	ControllerCPUAcct
	ControllerCPUSet
	ControllerMemory
)

// String returns the controller's canonical lower-case kernel subsystem
// name.
func (c Controller) String() string {
	switch c {
	case ControllerCPU:
		return "cpu"
	case ControllerCPUAcct:
		return "cpuacct"
	case ControllerCPUSet:
		return "cpuset"
	case ControllerMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// requiredControllers are the subsystems discovery must place, in a stable
// order used for deterministic iteration during discovery and fallback.
var requiredControllers = []Controller{ControllerCPU, ControllerCPUAcct, ControllerMemory, ControllerCPUSet}

// baseDir selects which anchor a built path addresses: the controller's
// top-level mount point, or the gpdb sub-tree under which every managed
// group lives.
type baseDir int

const (
	baseParent baseDir = iota
	baseGpdb
)

// baseDirGpdbName is the directory name of the gpdb sub-tree under each
// controller's mount point.
const baseDirGpdbName = "gpdb"

// GroupID is an opaque, database-issued, non-zero identifier for a
// resource group, plus three reserved sentinels.
type GroupID int32

const (
	// Root refers to the gpdb sub-tree itself: no group segment is appended
	// to a built path.
	Root GroupID = 0
	// DefaultCpuset is a pseudo-group receiving processes whose resource
	// group has no explicit cpuset binding.
	DefaultCpuset GroupID = -1
	// System is the sentinel used for the postmaster and auxiliary
	// processes that are not tied to any SQL-visible resource group.
	System GroupID = -2
)

func (g GroupID) dirName() string {
	switch g {
	case DefaultCpuset:
		return "default"
	case System:
		return "system"
	default:
		return fmt.Sprintf("%d", int32(g))
	}
}

// CapabilityFlags records which optional controllers/features this process
// may use, as stamped once by the permission scan at init. After Init
// returns these are never mutated again for the life of the process.
type CapabilityFlags struct {
	Memory bool
	Swap   bool
	CPUSet bool
}

// SystemInfo is host-level information discovered once at init.
type SystemInfo struct {
	NumCores int
	MountDir string
}

// cfsCalibration holds the two quota figures used both to enforce and to
// scale CPU usage percentages.
type cfsCalibration struct {
	// systemCFSQuotaUS is period * cores: the amount of CPU time available
	// to the whole host per period across every core.
	systemCFSQuotaUS int64
	// parentCFSQuotaUS is read from the parent directory; -1 means the
	// parent itself is unconstrained.
	parentCFSQuotaUS int64
}

func (c cfsCalibration) parentUnlimited() bool { return c.parentCFSQuotaUS < 0 }
