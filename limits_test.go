package cgroup

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/shoenig/test/must"
	"github.com/stretchr/testify/require"

	"github.com/greenplum-db/gp-resgroup-cgroup/cgfs"
)

func TestInitCPU_parentUnlimitedUsesSystemQuota(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{})
	c.cfs = cfsCalibration{systemCFSQuotaUS: 400000, parentCFSQuotaUS: -1}
	c.tunables = &Tunables{CPULimit: 0.9, CPUPriority: 1}

	require.NoError(t, c.InitCPU())

	quota, err := c.readI64(Root, baseGpdb, ControllerCPU, "cpu.cfs_quota_us")
	require.NoError(t, err)
	must.Eq(t, int64(360000), quota)
}

func TestInitCPU_sharesScaledByPriority(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{})
	c.cfs = cfsCalibration{systemCFSQuotaUS: 400000, parentCFSQuotaUS: -1}
	c.tunables = &Tunables{CPULimit: 1.0, CPUPriority: 3}

	require.NoError(t, c.InitCPU())

	shares, err := c.readI64(Root, baseGpdb, ControllerCPU, "cpu.shares")
	require.NoError(t, err)
	must.Eq(t, int64(1024*3), shares)
}

func TestSetCPULimit_ceilingEnforcementSetsQuota(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{})
	c.sys.NumCores = 4
	c.tunables = &Tunables{CPUCeilingEnforcement: true}

	require.NoError(t, c.SetCPULimit(Root, 50))

	quota, err := c.readI64(Root, baseGpdb, ControllerCPU, "cpu.cfs_quota_us")
	require.NoError(t, err)
	must.Eq(t, int64(100000*4*50/100), quota)

	shares, err := c.readI64(Root, baseGpdb, ControllerCPU, "cpu.shares")
	require.NoError(t, err)
	must.Eq(t, int64(1024*50/100), shares)
}

func TestSetCPULimit_noCeilingEnforcementLeavesQuotaUnlimited(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{})
	c.tunables = &Tunables{CPUCeilingEnforcement: false}

	require.NoError(t, c.SetCPULimit(Root, 50))

	quota, err := c.readI64(Root, baseGpdb, ControllerCPU, "cpu.cfs_quota_us")
	require.NoError(t, err)
	must.Eq(t, unlimitedCFSQuota, quota)
}

func TestSetMemoryLimitByChunks_noopWhenUnchanged(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{Memory: true, Swap: true})

	path := filepath.Join(c.dirs[ControllerMemory], "gpdb", "memory.limit_in_bytes")
	current, err := cgfs.ReadI64(path)
	require.NoError(t, err)

	require.NoError(t, c.SetMemoryLimitByChunks(Root, current/ChunkSizeBytes))

	after, err := cgfs.ReadI64(path)
	require.NoError(t, err)
	must.Eq(t, current, after)
}

func TestSetMemoryLimitByChunks_raisingEndsWithBothLimitsEqual(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{Memory: true, Swap: true})

	newChunks := int64(2 << 30 / ChunkSizeBytes)
	require.NoError(t, c.SetMemoryLimitByChunks(Root, newChunks))

	mem, err := c.readI64(Root, baseGpdb, ControllerMemory, "memory.limit_in_bytes")
	require.NoError(t, err)
	memsw, err := c.readI64(Root, baseGpdb, ControllerMemory, "memory.memsw.limit_in_bytes")
	require.NoError(t, err)
	must.Eq(t, newChunks*ChunkSizeBytes, mem)
	must.Eq(t, newChunks*ChunkSizeBytes, memsw)
	must.True(t, mem <= memsw)
}

func TestSetMemoryLimitByChunks_lowering_memoryNeverExceedsMemsw(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{Memory: true, Swap: true})

	lowChunks := int64(1 << 20 / ChunkSizeBytes)
	require.NoError(t, c.SetMemoryLimitByChunks(Root, lowChunks))

	mem, err := c.readI64(Root, baseGpdb, ControllerMemory, "memory.limit_in_bytes")
	require.NoError(t, err)
	memsw, err := c.readI64(Root, baseGpdb, ControllerMemory, "memory.memsw.limit_in_bytes")
	require.NoError(t, err)
	must.True(t, mem <= memsw)
}

func TestSetMemoryLimitByChunks_memoryDisabledIsNoop(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{Memory: false})
	require.NoError(t, c.SetMemoryLimitByChunks(Root, 7))
}

func TestConvertCPUUsage_idleIsZero(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{})
	c.sys.NumCores = 8
	must.Eq(t, float64(0), c.ConvertCPUUsage(0, 1_000_000))
}

func TestConvertCPUUsage_parentUnlimited(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{})
	c.sys.NumCores = 8
	c.cfs = cfsCalibration{systemCFSQuotaUS: 800000, parentCFSQuotaUS: -1}

	got := c.ConvertCPUUsage(1_000_000_000, 1_000_000)
	must.Eq(t, 12.5, got)
}

func TestConvertCPUUsage_rescaledWhenParentBounded(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{})
	c.sys.NumCores = 8
	// Parent bounded to half the system quota: usage should read out twice
	// as large a share of it.
	c.cfs = cfsCalibration{systemCFSQuotaUS: 800000, parentCFSQuotaUS: 400000}

	unrestricted := 1_000_000_000.0 / 10 / 1_000_000 / 8
	got := c.ConvertCPUUsage(1_000_000_000, 1_000_000)
	must.Eq(t, unrestricted*2, got)
}

func TestGetMemoryLimitChunks_disabledReturnsMaxInt32(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{Memory: false})
	chunks, err := c.GetMemoryLimitChunks(Root)
	require.NoError(t, err)
	must.Eq(t, int64(math.MaxInt32), chunks)
}

func TestGetTotalMemoryMiB_cappedByOvercommitRatio(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{Memory: false})
	c.host = hostInfo{
		overcommitRatioPct: 50,
		totalRAMBytes:      8 << 30,
		totalSwapBytes:     2 << 30,
	}

	mib, err := c.GetTotalMemoryMiB()
	require.NoError(t, err)
	// overcommitTotal = swap + ram*50% = 2GiB + 4GiB = 6GiB < ram+swap(10GiB)
	must.Eq(t, int64(6<<30)>>20, mib)
}
