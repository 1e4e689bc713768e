package cgroup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/greenplum-db/gp-resgroup-cgroup/cgfs"
)

// writeProcFiles lays out fake /proc/1/cgroup and /proc/self/mountinfo
// contents under dir, used throughout the discovery tests in place of a
// real mounted cgroupfs.
func writeProcFiles(t *testing.T, dir, procCgroup, mountInfo string) {
	t.Helper()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(os.WriteFile(procPath(dir), []byte(procCgroup), 0o644))
	must(os.WriteFile(mountPath(dir), []byte(mountInfo), 0o644))
}

func procPath(dir string) string  { return filepath.Join(dir, "cgroup") }
func mountPath(dir string) string { return filepath.Join(dir, "mountinfo") }

func mkdirT(t *testing.T, dir string, parts ...string) string {
	t.Helper()
	p := filepath.Join(append([]string{dir}, parts...)...)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func asConfigError(err error, target **ConfigError) bool {
	return errors.As(err, target)
}

// newTestContext builds a Context wired to a throwaway directory tree that
// stands in for a mounted cgroupfs, with the parent-level and gpdb
// sub-tree interface files pre-seeded the way the kernel would have left
// them after a real mount and an InitCPU/InitCPUSet call. It bypasses
// discovery and the permission scan entirely, so tests can exercise
// lifecycle/limits/permission logic directly against caps they control.
func newTestContext(t *testing.T, caps CapabilityFlags) *Context {
	t.Helper()
	root := t.TempDir()

	dirs := map[Controller]string{}
	for _, ctrl := range []Controller{ControllerCPU, ControllerCPUAcct, ControllerCPUSet, ControllerMemory} {
		dirs[ctrl] = mkdirT(t, root, ctrl.String())
	}

	c := &Context{
		logger: hclog.NewNullLogger().Named("cgroup-test"),
		dirs:   dirs,
		caps:   caps,
		cfs:    cfsCalibration{systemCFSQuotaUS: 400000, parentCFSQuotaUS: -1},
		sys:    SystemInfo{NumCores: 4, MountDir: dirs[ControllerCPU]},
	}

	writeI64T(t, filepath.Join(dirs[ControllerCPU], "cpu.shares"), 1024)
	writeI64T(t, filepath.Join(dirs[ControllerCPU], "cpu.cfs_period_us"), 100000)
	writeI64T(t, filepath.Join(dirs[ControllerCPU], "cpu.cfs_quota_us"), -1)
	writeStringT(t, filepath.Join(dirs[ControllerCPUSet], "cpuset.cpus"), "0-3")
	writeStringT(t, filepath.Join(dirs[ControllerCPUSet], "cpuset.mems"), "0")

	for _, ctrl := range []Controller{ControllerCPU, ControllerCPUAcct, ControllerCPUSet, ControllerMemory} {
		mkdirT(t, dirs[ctrl], "gpdb")
	}
	writeI64T(t, filepath.Join(dirs[ControllerCPU], "gpdb", "cpu.shares"), 1024)
	writeI64T(t, filepath.Join(dirs[ControllerCPU], "gpdb", "cpu.cfs_period_us"), 100000)
	writeI64T(t, filepath.Join(dirs[ControllerCPU], "gpdb", "cpu.cfs_quota_us"), -1)
	writeStringT(t, filepath.Join(dirs[ControllerCPU], "gpdb", "cgroup.procs"), "")
	writeStringT(t, filepath.Join(dirs[ControllerCPUAcct], "gpdb", "cgroup.procs"), "")
	writeI64T(t, filepath.Join(dirs[ControllerCPUAcct], "gpdb", "cpuacct.usage"), 0)
	writeStringT(t, filepath.Join(dirs[ControllerCPUSet], "gpdb", "cpuset.cpus"), "0-3")
	writeStringT(t, filepath.Join(dirs[ControllerCPUSet], "gpdb", "cpuset.mems"), "0")
	writeStringT(t, filepath.Join(dirs[ControllerCPUSet], "gpdb", "cgroup.procs"), "")
	writeI64T(t, filepath.Join(dirs[ControllerMemory], "gpdb", "memory.limit_in_bytes"), 1<<30)
	writeI64T(t, filepath.Join(dirs[ControllerMemory], "gpdb", "memory.usage_in_bytes"), 0)
	writeI64T(t, filepath.Join(dirs[ControllerMemory], "gpdb", "memory.memsw.limit_in_bytes"), 1<<30)
	writeI64T(t, filepath.Join(dirs[ControllerMemory], "gpdb", "memory.memsw.usage_in_bytes"), 0)
	writeStringT(t, filepath.Join(dirs[ControllerMemory], "gpdb", "cgroup.procs"), "")

	seedAllControllerFiles(t, dirs, "default")

	// Init creates the System group the same way it creates the gpdb root
	// and the default cpuset group, so it needs the same kernel-populated
	// stand-in.
	seedAllControllerFiles(t, dirs, "system")

	return c
}

// seedAllControllerFiles lays out every interface file a real cgroup v1
// mount would have already populated for groupName under every controller,
// regardless of which capability flags a given test configures — the files
// always exist on disk; it's only this package's own business logic that
// chooses whether to look at them.
func seedAllControllerFiles(t *testing.T, dirs map[Controller]string, groupName string) {
	t.Helper()

	cpuDir := mkdirT(t, dirs[ControllerCPU], "gpdb", groupName)
	writeI64T(t, filepath.Join(cpuDir, "cpu.shares"), 1024)
	writeI64T(t, filepath.Join(cpuDir, "cpu.cfs_period_us"), 100000)
	writeI64T(t, filepath.Join(cpuDir, "cpu.cfs_quota_us"), -1)
	writeStringT(t, filepath.Join(cpuDir, "cgroup.procs"), "")

	acctDir := mkdirT(t, dirs[ControllerCPUAcct], "gpdb", groupName)
	writeI64T(t, filepath.Join(acctDir, "cpuacct.usage"), 0)
	writeStringT(t, filepath.Join(acctDir, "cgroup.procs"), "")

	cpusetDir := mkdirT(t, dirs[ControllerCPUSet], "gpdb", groupName)
	writeStringT(t, filepath.Join(cpusetDir, "cpuset.cpus"), "0-3")
	writeStringT(t, filepath.Join(cpusetDir, "cpuset.mems"), "0")
	writeStringT(t, filepath.Join(cpusetDir, "cgroup.procs"), "")

	memDir := mkdirT(t, dirs[ControllerMemory], "gpdb", groupName)
	writeI64T(t, filepath.Join(memDir, "memory.limit_in_bytes"), 1<<30)
	writeI64T(t, filepath.Join(memDir, "memory.usage_in_bytes"), 0)
	writeI64T(t, filepath.Join(memDir, "memory.memsw.limit_in_bytes"), 1<<30)
	writeI64T(t, filepath.Join(memDir, "memory.memsw.usage_in_bytes"), 0)
	writeStringT(t, filepath.Join(memDir, "cgroup.procs"), "")
}

func writeI64T(t *testing.T, path string, v int64) {
	t.Helper()
	if err := cgfs.WriteI64(path, v); err != nil {
		t.Fatal(err)
	}
}

func writeStringT(t *testing.T, path string, v string) {
	t.Helper()
	if err := cgfs.WriteString(path, v); err != nil {
		t.Fatal(err)
	}
}
