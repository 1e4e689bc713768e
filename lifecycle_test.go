package cgroup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shoenig/test/must"
	"github.com/stretchr/testify/require"

	"github.com/greenplum-db/gp-resgroup-cgroup/cgfs"
)

// seedGroup creates group's directory and a kernel-populated set of
// interface files under every managed controller, standing in for what a
// real mkdir under cgroupfs would have left in place synchronously. Tests
// use this instead of driving Create's own mkdir, since there is no kernel
// here to populate the files Create then polls for.
func seedGroup(t *testing.T, c *Context, group GroupID) {
	t.Helper()
	for _, ctrl := range c.managedControllers() {
		dir := mkdirT(t, c.dirs[ctrl], "gpdb", group.dirName())
		writeStringT(t, filepath.Join(dir, "cgroup.procs"), "")
		switch ctrl {
		case ControllerCPU:
			writeI64T(t, filepath.Join(dir, "cpu.shares"), 1024)
			writeI64T(t, filepath.Join(dir, "cpu.cfs_period_us"), 100000)
			writeI64T(t, filepath.Join(dir, "cpu.cfs_quota_us"), -1)
		case ControllerCPUAcct:
			writeI64T(t, filepath.Join(dir, "cpuacct.usage"), 0)
		case ControllerCPUSet:
			writeStringT(t, filepath.Join(dir, "cpuset.cpus"), "")
			writeStringT(t, filepath.Join(dir, "cpuset.mems"), "")
		case ControllerMemory:
			writeI64T(t, filepath.Join(dir, "memory.limit_in_bytes"), 1<<30)
			writeI64T(t, filepath.Join(dir, "memory.usage_in_bytes"), 0)
			writeI64T(t, filepath.Join(dir, "memory.memsw.limit_in_bytes"), 1<<30)
			writeI64T(t, filepath.Join(dir, "memory.memsw.usage_in_bytes"), 0)
		}
	}
}

func TestCreate_seedsCpusetFromRoot(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{Memory: true, CPUSet: true})
	seedGroup(t, c, GroupID(42))

	require.NoError(t, c.Create(GroupID(42)))

	set, err := c.GetCPUSet(GroupID(42))
	require.NoError(t, err)
	must.Eq(t, "0-3", set.String())
}

func TestAttach_withCpuset(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{Memory: true, CPUSet: true})
	seedGroup(t, c, GroupID(42))

	require.NoError(t, c.Attach(GroupID(42), 1001, true))

	for _, ctrl := range []Controller{ControllerCPU, ControllerCPUAcct, ControllerCPUSet} {
		path, ok := c.pathSafe(GroupID(42), baseGpdb, ctrl, "cgroup.procs")
		must.True(t, ok)
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		must.Eq(t, "1001", string(b))
	}
}

func TestAttach_withoutCpuset_usesDefaultGroup(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{Memory: true, CPUSet: true})
	seedGroup(t, c, GroupID(42))

	require.NoError(t, c.Attach(GroupID(42), 1001, false))

	groupCpusetPath, _ := c.pathSafe(GroupID(42), baseGpdb, ControllerCPUSet, "cgroup.procs")
	b, err := os.ReadFile(groupCpusetPath)
	require.NoError(t, err)
	must.Eq(t, "", string(b))

	defaultPath, _ := c.pathSafe(DefaultCpuset, baseGpdb, ControllerCPUSet, "cgroup.procs")
	b, err = os.ReadFile(defaultPath)
	require.NoError(t, err)
	must.Eq(t, "1001", string(b))
}

func TestAttach_skipsRedundantWriteAfterFork(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{Memory: true, CPUSet: true})
	seedGroup(t, c, GroupID(42))

	require.NoError(t, c.Attach(GroupID(42), 1001, true))
	c.MarkForked()
	require.NoError(t, c.Attach(GroupID(42), 1001, true))

	must.True(t, c.currentGroupValid)
	must.Eq(t, GroupID(42), c.currentGroup)

	// The cache now reflects a write made since the fork, so a repeat
	// attach to the same group leaves cgroup.procs alone.
	procsPath, _ := c.pathSafe(GroupID(42), baseGpdb, ControllerCPU, "cgroup.procs")
	require.NoError(t, os.WriteFile(procsPath, nil, 0o644))
	require.NoError(t, c.Attach(GroupID(42), 1001, true))
	b, err := os.ReadFile(procsPath)
	require.NoError(t, err)
	must.Eq(t, "", string(b))
}

func TestDestroy_removesDirAndMigratesResidualPids(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{Memory: true, CPUSet: true})
	seedGroup(t, c, GroupID(42))

	for _, ctrl := range c.managedControllers() {
		path, _ := c.pathSafe(GroupID(42), baseGpdb, ctrl, "cgroup.procs")
		require.NoError(t, os.WriteFile(path, []byte("1001\n1002\n"), 0o644))
	}

	require.NoError(t, c.Destroy(GroupID(42), true))

	for _, ctrl := range c.managedControllers() {
		dir, _ := c.pathSafe(GroupID(42), baseGpdb, ctrl, "")
		_, err := os.Stat(dir)
		must.True(t, os.IsNotExist(err))
	}
}

func TestDestroy_alreadyGoneIsNotAnError(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{Memory: true, CPUSet: true})
	require.NoError(t, c.Destroy(GroupID(999), true))
}

func TestLockUnlock_roundTrip(t *testing.T) {
	c := newTestContext(t, CapabilityFlags{Memory: true, CPUSet: true})
	seedGroup(t, c, GroupID(42))

	fd, err := c.Lock(GroupID(42), ControllerMemory, true)
	require.NoError(t, err)
	must.True(t, fd >= 0)

	fd2, err := cgfs.LockDir(mustPath(t, c, GroupID(42), ControllerMemory), false)
	require.NoError(t, err)
	must.Eq(t, -1, fd2)

	require.NoError(t, c.Unlock(fd))
}

func mustPath(t *testing.T, c *Context, group GroupID, ctrl Controller) string {
	t.Helper()
	p, ok := c.pathSafe(group, baseGpdb, ctrl, "")
	must.True(t, ok)
	return p
}
