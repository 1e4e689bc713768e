package cgroup

import (
	"math"

	"github.com/greenplum-db/gp-resgroup-cgroup/cgfs"
	"github.com/greenplum-db/gp-resgroup-cgroup/coreset"
)

// ChunkSizeBytes is the fixed power-of-two byte count the database's vmem
// accounting uses; set_memory_limit and get_memory_usage convert to and
// from this unit at the cgroup boundary.
const ChunkSizeBytes int64 = 32 * 1024 * 1024

// unlimitedCFSQuota is the kernel's sentinel for "no cfs_quota_us cap".
const unlimitedCFSQuota int64 = -1

// InitCPU determines the gpdb sub-tree's own cfs_quota_us from the parent's
// quota (or, if the parent is unlimited, from the whole-system quota) and
// sets its cpu.shares from the parent's, scaled by cpu_priority. Inheriting
// the parent's share base avoids absurd share values on a low-core host.
func (c *Context) InitCPU() error {
	quota := c.cfs.systemCFSQuotaUS
	if !c.cfs.parentUnlimited() {
		quota = c.cfs.parentCFSQuotaUS
	}
	gpdbQuota := int64(float64(quota) * c.tunables.CPULimit)

	quotaPath, err := c.path(Root, baseGpdb, ControllerCPU, "cpu.cfs_quota_us")
	if err != nil {
		return err
	}
	if err := cgfs.WriteI64(quotaPath, gpdbQuota); err != nil {
		return newIOError("write", quotaPath, err)
	}

	parentShares, err := c.readI64(Root, baseParent, ControllerCPU, "cpu.shares")
	if err != nil {
		return err
	}
	gpdbShares := parentShares * int64(c.tunables.CPUPriority)

	sharesPath, err := c.path(Root, baseGpdb, ControllerCPU, "cpu.shares")
	if err != nil {
		return err
	}
	if err := cgfs.WriteI64(sharesPath, gpdbShares); err != nil {
		return newIOError("write", sharesPath, err)
	}
	return nil
}

// InitCPUSet copies cpuset.mems/cpuset.cpus from the true parent directory
// into the gpdb sub-tree, then creates the default cpuset group, which
// Create seeds from the gpdb sub-tree.
func (c *Context) InitCPUSet() error {
	for _, leaf := range []string{"cpuset.mems", "cpuset.cpus"} {
		srcPath, err := c.path(Root, baseParent, ControllerCPUSet, leaf)
		if err != nil {
			return err
		}
		val, err := cgfs.ReadString(srcPath)
		if err != nil {
			return newIOError("read", srcPath, err)
		}
		dstPath, err := c.path(Root, baseGpdb, ControllerCPUSet, leaf)
		if err != nil {
			return err
		}
		if err := cgfs.WriteString(dstPath, val); err != nil {
			return newIOError("write", dstPath, err)
		}
	}

	return c.Create(DefaultCpuset)
}

// SetCPULimit sets group's cpu.shares proportional to rate (a percentage in
// [0,100]) of the gpdb sub-tree's own shares, and, if ceiling enforcement is
// enabled, sets its cfs_quota_us proportionally too; otherwise the group's
// quota is left/set unlimited.
func (c *Context) SetCPULimit(group GroupID, rate float64) error {
	gpdbShares, err := c.readI64(Root, baseGpdb, ControllerCPU, "cpu.shares")
	if err != nil {
		return err
	}
	shares := int64(float64(gpdbShares) * rate / 100)

	sharesPath, err := c.path(group, baseGpdb, ControllerCPU, "cpu.shares")
	if err != nil {
		return err
	}
	if err := cgfs.WriteI64(sharesPath, shares); err != nil {
		return newIOError("write", sharesPath, err)
	}

	quotaPath, err := c.path(group, baseGpdb, ControllerCPU, "cpu.cfs_quota_us")
	if err != nil {
		return err
	}
	quota := int64(unlimitedCFSQuota)
	if c.tunables.CPUCeilingEnforcement {
		periodPath, err := c.path(Root, baseGpdb, ControllerCPU, "cpu.cfs_period_us")
		if err != nil {
			return err
		}
		period, err := cgfs.ReadI64(periodPath)
		if err != nil {
			return classifyReadErr("read", periodPath, err)
		}
		quota = int64(float64(period*int64(c.sys.NumCores)) * rate / 100)
	}
	if err := cgfs.WriteI64(quotaPath, quota); err != nil {
		return newIOError("write", quotaPath, err)
	}
	return nil
}

// GetCPUSet returns group's cpuset.cpus as a parsed core set.
func (c *Context) GetCPUSet(group GroupID) (*coreset.Set, error) {
	path, err := c.path(group, baseGpdb, ControllerCPUSet, "cpuset.cpus")
	if err != nil {
		return nil, err
	}
	s, err := cgfs.ReadString(path)
	if err != nil {
		return nil, newIOError("read", path, err)
	}
	set, err := coreset.Parse(s)
	if err != nil {
		return nil, newParseError(path, s, err)
	}
	return set, nil
}

// SetCPUSet writes group's cpuset.cpus. Validation of the resulting mask
// (whether the listed cores actually exist) is left to the kernel.
func (c *Context) SetCPUSet(group GroupID, set *coreset.Set) error {
	path, err := c.path(group, baseGpdb, ControllerCPUSet, "cpuset.cpus")
	if err != nil {
		return err
	}
	if err := cgfs.WriteString(path, set.String()); err != nil {
		return newIOError("write", path, err)
	}
	return nil
}

// SetMemoryLimitByChunks converts chunks to bytes and writes
// memory.limit_in_bytes (and, when swap accounting is enabled,
// memory.memsw.limit_in_bytes). The kernel enforces limit <= memsw at all
// times, so when raising the limit memsw is written first; when lowering,
// memory is written first. Equal new/old is a no-op.
func (c *Context) SetMemoryLimitByChunks(group GroupID, chunks int64) error {
	if !c.caps.Memory {
		return nil
	}

	newBytes := chunks * ChunkSizeBytes

	memPath, err := c.path(group, baseGpdb, ControllerMemory, "memory.limit_in_bytes")
	if err != nil {
		return err
	}
	oldBytes, err := cgfs.ReadI64(memPath)
	if err != nil {
		return classifyReadErr("read", memPath, err)
	}
	if oldBytes == newBytes {
		return nil
	}

	if !c.caps.Swap {
		if err := cgfs.WriteI64(memPath, newBytes); err != nil {
			return newIOError("write", memPath, err)
		}
		return nil
	}

	memswPath, err := c.path(group, baseGpdb, ControllerMemory, "memory.memsw.limit_in_bytes")
	if err != nil {
		return err
	}

	if newBytes > oldBytes {
		if err := cgfs.WriteI64(memswPath, newBytes); err != nil {
			return newIOError("write", memswPath, err)
		}
		if err := cgfs.WriteI64(memPath, newBytes); err != nil {
			return newIOError("write", memPath, err)
		}
		return nil
	}

	if err := cgfs.WriteI64(memPath, newBytes); err != nil {
		return newIOError("write", memPath, err)
	}
	if err := cgfs.WriteI64(memswPath, newBytes); err != nil {
		return newIOError("write", memswPath, err)
	}
	return nil
}

// SetMemoryLimit computes the group's target chunk limit from rate (a
// percentage) and the database's vmem budget, then applies it while holding
// the group's memory lock, which prevents concurrent chunk recomputation.
func (c *Context) SetMemoryLimit(group GroupID, rate float64) error {
	if !c.caps.Memory {
		return nil
	}

	chunks := int64(float64(c.tunables.VMemLimitChunks) * rate / 100 * float64(c.tunables.PrimarySegmentCount))

	fd, err := c.Lock(group, ControllerMemory, true)
	if err != nil {
		return err
	}
	defer c.Unlock(fd)

	return c.SetMemoryLimitByChunks(group, chunks)
}

// GetCPUUsage reads group's cumulative CPU time in nanoseconds.
func (c *Context) GetCPUUsage(group GroupID) (int64, error) {
	return c.readI64(group, baseGpdb, ControllerCPUAcct, "cpuacct.usage")
}

// ConvertCPUUsage scales a cumulative nanosecond usage figure over
// durationUS microseconds into a percentage of one core, rescaled by the
// number of cores. When the parent's cfs_quota_us is bounded, the result is
// further rescaled so that a container-limited deployment reports 100% at
// the parent's quota rather than at the whole host's.
func (c *Context) ConvertCPUUsage(usageNS, durationUS int64) float64 {
	if durationUS <= 0 || c.sys.NumCores <= 0 {
		return 0
	}

	// usageNS is in nanoseconds, durationUS in microseconds, so
	// usageNS/10/durationUS equals 100*usage/duration in a common unit, i.e.
	// a percentage. All of it is float arithmetic, so nothing is truncated
	// to an integer along the way.
	percent := float64(usageNS) / 10 / float64(durationUS) / float64(c.sys.NumCores)

	if !c.cfs.parentUnlimited() && c.cfs.parentCFSQuotaUS > 0 {
		percent *= float64(c.cfs.systemCFSQuotaUS) / float64(c.cfs.parentCFSQuotaUS)
	}
	return percent
}

// GetMemoryUsage reads group's current memory usage (memsw if swap
// accounting is enabled, else plain memory) converted to chunks.
func (c *Context) GetMemoryUsage(group GroupID) (int64, error) {
	if !c.caps.Memory {
		return 0, nil
	}
	leaf := "memory.usage_in_bytes"
	if c.caps.Swap {
		leaf = "memory.memsw.usage_in_bytes"
	}
	bytes, err := c.readI64(group, baseGpdb, ControllerMemory, leaf)
	if err != nil {
		return 0, err
	}
	return bytes / ChunkSizeBytes, nil
}

// GetMemoryLimitChunks returns math.MaxInt32 when the memory controller is
// disabled (an effectively unbounded limit), else group's
// memory.limit_in_bytes converted to chunks.
func (c *Context) GetMemoryLimitChunks(group GroupID) (int64, error) {
	if !c.caps.Memory {
		return math.MaxInt32, nil
	}
	bytes, err := c.readI64(group, baseGpdb, ControllerMemory, "memory.limit_in_bytes")
	if err != nil {
		return 0, err
	}
	return bytes / ChunkSizeBytes, nil
}

// GetTotalMemoryMiB computes the effective total memory (RAM eligible for
// overcommit plus swap) available under whatever limit the surrounding
// container/cgroup imposes, per spec §4.5. It uses the host RAM/swap/
// overcommit-ratio figures captured once during Init.
func (c *Context) GetTotalMemoryMiB() (int64, error) {
	host := c.host
	ram := int64(host.totalRAMBytes)
	swap := int64(host.totalSwapBytes)

	overcommitTotal := swap + ram*int64(host.overcommitRatioPct)/100

	if c.caps.Memory {
		memLimit, err := c.readI64(Root, baseGpdb, ControllerMemory, "memory.limit_in_bytes")
		if err != nil {
			return 0, err
		}
		if memLimit < ram {
			ram = memLimit
		}
		if c.caps.Swap {
			memswLimit, err := c.readI64(Root, baseGpdb, ControllerMemory, "memory.memsw.limit_in_bytes")
			if err != nil {
				return 0, err
			}
			if memswLimit < ram+swap {
				swap = memswLimit - ram
			}
		}
	}

	total := overcommitTotal
	if ram+swap < total {
		total = ram + swap
	}
	return total >> 20, nil
}
