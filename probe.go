package cgroup

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/greenplum-db/gp-resgroup-cgroup/cgfs"
)

// defaultCFSPeriodUS is substituted whenever cpu.cfs_period_us reads back
// as 0. Spec §9b: older kernels were observed to leave this file at 0 right
// after a fresh mount; it is unclear whether current kernels still do this,
// so the defensive rewrite stays, gated behind this comment.
const defaultCFSPeriodUS = 100000

const procOvercommitRatioPath = "/proc/sys/vm/overcommit_ratio"

// hostInfo is the subset of §4.4's system probe that isn't already part of
// the exported SystemInfo/cfsCalibration types.
type hostInfo struct {
	overcommitRatioPct int
	totalRAMBytes      uint64
	totalSwapBytes     uint64
}

// probe performs the system probe (component §4.4): host core count,
// parent CFS period/quota, overcommit ratio, and total RAM/swap.
func (c *Context) probe() (hostInfo, error) {
	cores := runtime.NumCPU()
	c.sys.NumCores = cores
	if cpuDir, ok := c.dirs[ControllerCPU]; ok {
		c.sys.MountDir = cpuDir
	}

	period, err := c.parentCFSPeriod()
	if err != nil {
		return hostInfo{}, err
	}

	quota, err := c.readI64(Root, baseParent, ControllerCPU, "cpu.cfs_quota_us")
	if err != nil {
		return hostInfo{}, err
	}
	c.cfs = cfsCalibration{
		systemCFSQuotaUS: period * int64(cores),
		parentCFSQuotaUS: quota,
	}

	ratio, err := readOvercommitRatio(procOvercommitRatioPath)
	if err != nil {
		return hostInfo{}, err
	}

	ram, swap, err := readSysinfo()
	if err != nil {
		return hostInfo{}, err
	}

	return hostInfo{overcommitRatioPct: ratio, totalRAMBytes: ram, totalSwapBytes: swap}, nil
}

// parentCFSPeriod reads cpu.cfs_period_us from the parent directory,
// rewriting it to defaultCFSPeriodUS if the kernel reports 0 (see the
// comment on defaultCFSPeriodUS).
func (c *Context) parentCFSPeriod() (int64, error) {
	period, err := c.readI64(Root, baseParent, ControllerCPU, "cpu.cfs_period_us")
	if err != nil {
		return 0, err
	}
	if period == 0 {
		period = defaultCFSPeriodUS
		path, perr := c.path(Root, baseParent, ControllerCPU, "cpu.cfs_period_us")
		if perr != nil {
			return 0, perr
		}
		if werr := cgfs.WriteI64(path, period); werr != nil {
			return 0, newIOError("write", path, werr)
		}
	}
	return period, nil
}

func (c *Context) readI64(group GroupID, base baseDir, controller Controller, leaf string) (int64, error) {
	path, err := c.path(group, base, controller, leaf)
	if err != nil {
		return 0, err
	}
	v, err := cgfs.ReadI64(path)
	if err != nil {
		return 0, classifyReadErr("read", path, err)
	}
	return v, nil
}

func readOvercommitRatio(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, newIOError("read", path, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, newParseError(path, strings.TrimSpace(string(b)), err)
	}
	return v, nil
}

func readSysinfo() (ramBytes, swapBytes uint64, err error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, 0, newIOError("sysinfo", "sysinfo(2)", err)
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return uint64(info.Totalram) * unit, uint64(info.Totalswap) * unit, nil
}
