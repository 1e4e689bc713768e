package cgroup

import (
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/greenplum-db/gp-resgroup-cgroup/cgfs"
)

// anchorFiles names, per controller, the interface file whose writability
// proves a group directory is still "ours" before destroy rmdir's it.
// cpuacct and cpuset have no anchor.
var anchorFiles = map[Controller]string{
	ControllerCPU:    "cpu.shares",
	ControllerMemory: "memory.limit_in_bytes",
}

// managedControllers returns the controllers create/destroy iterate over:
// cpu and cpuacct always, memory and cpuset only when enabled.
func (c *Context) managedControllers() []Controller {
	out := []Controller{ControllerCPU, ControllerCPUAcct}
	if c.caps.Memory {
		out = append(out, ControllerMemory)
	}
	if c.caps.CPUSet {
		out = append(out, ControllerCPUSet)
	}
	return out
}

// Create brings a group from absent to created: it mkdirs the group under
// every managed controller, waits for the kernel to populate the new
// directories' interface files, and seeds cpuset inheritance from the gpdb
// root so the new group doesn't start with an empty (attachment-rejecting)
// cpuset.
func (c *Context) Create(group GroupID) error {
	for _, ctrl := range c.managedControllers() {
		dir, err := c.path(group, baseGpdb, ctrl, "")
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return newIOError("mkdir", dir, err)
		}
	}

	ready, err := pollUntil(MaxRetry, retryInterval, func() (bool, error) {
		return c.permissionCheck(group, false)
	})
	if err != nil {
		return err
	}
	if !ready {
		// Escalate to the raising variant, which identifies the specific
		// mandatory list still unsatisfied.
		if _, err := c.permissionCheck(group, true); err != nil {
			return err
		}
	}

	if c.caps.CPUSet {
		if err := c.copyCpuset(Root, group); err != nil {
			return err
		}
	}

	c.logger.Info("created resource group", "group", group)
	return nil
}

// copyCpuset copies cpuset.mems and cpuset.cpus from one group's directory
// to another's. The kernel leaves a freshly created cpuset group's files
// empty, and an empty cpuset rejects every attachment, so Create uses this to
// seed a new group's mask from the gpdb root. (InitCPUSet, which seeds the
// gpdb root from the true parent, does its own copy.)
func (c *Context) copyCpuset(from, to GroupID) error {
	for _, leaf := range []string{"cpuset.mems", "cpuset.cpus"} {
		srcPath, err := c.path(from, baseGpdb, ControllerCPUSet, leaf)
		if err != nil {
			return err
		}
		val, err := cgfs.ReadString(srcPath)
		if err != nil {
			return newIOError("read", srcPath, err)
		}

		dstPath, err := c.path(to, baseGpdb, ControllerCPUSet, leaf)
		if err != nil {
			return err
		}
		if err := cgfs.WriteString(dstPath, val); err != nil {
			return newIOError("write", dstPath, err)
		}
	}
	return nil
}

// Attach writes pid into group's cpu and cpuacct cgroup.procs, and into its
// cpuset (or the default cpuset group) when cpuset is enabled. It never
// writes to memory, to preserve continuity of memory accounting across
// group changes. If this process already cached group as its attachment
// and has observed a fork since, the write is skipped.
func (c *Context) Attach(group GroupID, pid int, withCpuset bool) error {
	if c.currentGroupValid && c.currentGroup == group && c.postForked {
		return nil
	}

	for _, ctrl := range []Controller{ControllerCPU, ControllerCPUAcct} {
		path, err := c.path(group, baseGpdb, ctrl, "cgroup.procs")
		if err != nil {
			return err
		}
		if err := cgfs.WritePID(path, pid); err != nil {
			return newIOError("write", path, err)
		}
	}

	if c.caps.CPUSet {
		target := group
		if !withCpuset {
			target = DefaultCpuset
		}
		path, err := c.path(target, baseGpdb, ControllerCPUSet, "cgroup.procs")
		if err != nil {
			return err
		}
		if err := cgfs.WritePID(path, pid); err != nil {
			return newIOError("write", path, err)
		}
	}

	c.currentGroup = group
	c.currentGroupValid = true
	return nil
}

// MarkForked records that the postmaster has forked. It must be called
// exactly once, by the child, immediately after fork — the
// currentGroup cache is copied from the parent by fork but must be ignored
// by the child's first Attach call, since the cache reflects at most the
// local process and is never valid across a process boundary until that
// process has itself issued a write.
func (c *Context) MarkForked() {
	c.postForked = true
	c.currentGroupValid = false
}

// detach reads every pid out of group's cgroup.procs for controller and
// re-emits them one at a time into the default group's cgroup.procs. The
// caller must already hold heldFD, an advisory lock on the gpdb top-level
// directory for controller, acquired via Lock; detach always closes heldFD
// before returning, on every exit path, so the caller must not also unlock
// it. A failure to enumerate pids is fatal; a failure to migrate an
// individual pid is logged and does not stop the remaining migrations
// (spec: partial migration is preferred to a wedged group), and the
// accumulated per-pid failures are returned as a single error.
func (c *Context) detach(group GroupID, controller Controller, heldFD int) error {
	defer cgfs.Unlock(heldFD)

	procsPath, err := c.path(group, baseGpdb, controller, "cgroup.procs")
	if err != nil {
		return err
	}
	pids, err := cgfs.ReadPIDs(procsPath)
	if err != nil {
		return classifyReadErr("read", procsPath, err)
	}

	defaultPath, err := c.path(DefaultCpuset, baseGpdb, controller, "cgroup.procs")
	if err != nil {
		return err
	}

	var merr *multierror.Error
	for _, pid := range pids {
		if err := cgfs.WritePID(defaultPath, pid); err != nil {
			c.logger.Warn("failed to migrate pid out of group", "pid", pid, "controller", controller.String(), "error", err)
			merr = multierror.Append(merr, newIOError("write", defaultPath, err))
		}
	}
	return merr.ErrorOrNil()
}

// Lock opens group's directory under controller and takes an advisory
// exclusive flock, returning its descriptor (or -1 on non-blocking
// contention).
func (c *Context) Lock(group GroupID, controller Controller, block bool) (int, error) {
	dir, err := c.path(group, baseGpdb, controller, "")
	if err != nil {
		return -1, err
	}
	fd, err := cgfs.LockDir(dir, block)
	if err != nil {
		return -1, newIOError("flock", dir, err)
	}
	return fd, nil
}

// Unlock releases a descriptor obtained from Lock.
func (c *Context) Unlock(fd int) error {
	return cgfs.Unlock(fd)
}

// Destroy removes group's directories under every managed controller,
// optionally migrating residual pids to the default group first. Per-pid
// migration failures are logged and do not abort the destroy; the
// aggregate is returned once every controller has been processed.
func (c *Context) Destroy(group GroupID, migrate bool) error {
	var merr *multierror.Error
	for _, ctrl := range c.managedControllers() {
		if err := c.deleteDir(group, ctrl, migrate); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if merr.ErrorOrNil() == nil {
		c.logger.Info("destroyed resource group", "group", group)
	}
	return merr.ErrorOrNil()
}

func (c *Context) deleteDir(group GroupID, controller Controller, migrate bool) error {
	dir, err := c.path(group, baseGpdb, controller, "")
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Already gone; nothing to destroy.
		return nil
	}

	if anchor, ok := anchorFiles[controller]; ok {
		anchorPath, err := c.path(group, baseGpdb, controller, anchor)
		if err != nil {
			return err
		}
		if !cgfs.Access(anchorPath, cgfs.AccessWrite) {
			// Already gone, or never ours; nothing to destroy.
			return nil
		}
	}

	var migrateErr error
	if migrate {
		fd, err := c.Lock(Root, controller, true)
		if err != nil {
			return err
		}
		// detach closes fd itself on every exit path; do not unlock again here.
		migrateErr = c.detach(group, controller, fd)
	}

	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		if migrateErr != nil {
			return multierror.Append(migrateErr, newIOError("rmdir", dir, err)).ErrorOrNil()
		}
		return newIOError("rmdir", dir, err)
	}
	return migrateErr
}
