package cgroup

import "github.com/greenplum-db/gp-resgroup-cgroup/cgfs"

// permItem is one (controller, leaf, required access bits) tuple.
type permItem struct {
	controller Controller
	leaf       string
	bits       cgfs.AccessBits
}

// permList is a named group of permItems, either mandatory or optional. An
// optional list clears a capability flag on failure instead of raising.
type permList struct {
	name     string
	items    []permItem
	optional bool
	flag     *bool // stamped by a check against Root, whether optional or not
}

// permissionLists is the declarative table from spec §4.3. cpuset and
// memory are mandatory on current kernels and optional on legacy ones; that
// distinction is applied here from legacyKernel.
func permissionLists(caps *CapabilityFlags, legacyKernel bool) []*permList {
	return []*permList{
		{
			name: "cpu",
			items: []permItem{
				{ControllerCPU, "cpu.shares", cgfs.AccessRead | cgfs.AccessWrite},
				{ControllerCPU, "cpu.cfs_period_us", cgfs.AccessRead | cgfs.AccessWrite},
				{ControllerCPU, "cpu.cfs_quota_us", cgfs.AccessRead | cgfs.AccessWrite},
				{ControllerCPU, "cgroup.procs", cgfs.AccessRead | cgfs.AccessWrite},
			},
			optional: false,
		},
		{
			name: "cpuacct",
			items: []permItem{
				{ControllerCPUAcct, "cpuacct.usage", cgfs.AccessRead},
				{ControllerCPUAcct, "cgroup.procs", cgfs.AccessRead | cgfs.AccessWrite},
			},
			optional: false,
		},
		{
			name: "memory",
			items: []permItem{
				{ControllerMemory, "memory.limit_in_bytes", cgfs.AccessRead | cgfs.AccessWrite},
				{ControllerMemory, "memory.usage_in_bytes", cgfs.AccessRead},
				{ControllerMemory, "cgroup.procs", cgfs.AccessRead | cgfs.AccessWrite},
			},
			optional: legacyKernel,
			flag:     &caps.Memory,
		},
		{
			name: "swap",
			items: []permItem{
				{ControllerMemory, "memory.memsw.limit_in_bytes", cgfs.AccessRead | cgfs.AccessWrite},
				{ControllerMemory, "memory.memsw.usage_in_bytes", cgfs.AccessRead},
			},
			optional: true,
			flag:     &caps.Swap,
		},
		{
			name: "cpuset",
			items: []permItem{
				{ControllerCPUSet, "cpuset.cpus", cgfs.AccessRead | cgfs.AccessWrite},
				{ControllerCPUSet, "cpuset.mems", cgfs.AccessRead | cgfs.AccessWrite},
				{ControllerCPUSet, "cgroup.procs", cgfs.AccessRead | cgfs.AccessWrite},
			},
			optional: legacyKernel,
			flag:     &caps.CPUSet,
		},
	}
}

// permissionCheck implements the two-mode contract from spec §4.3: with
// report true, any failed mandatory list raises ConfigError; with report
// false, a failed mandatory list just makes the overall result false
// without raising. A check against Root stamps each list's capability flag
// (if it has one) with whether that list actually passed, independent of
// whether the list is mandatory on this kernel; "optional" only governs
// whether failure is fatal. A check against any other group is a readiness
// probe and leaves the flags as they are. It returns true iff every
// mandatory list passed.
func (c *Context) permissionCheck(group GroupID, report bool) (bool, error) {
	lists := permissionLists(&c.caps, c.legacyKernel)

	allMandatoryOK := true
	for _, list := range lists {
		ok, err := c.permListSatisfied(group, list)
		if err != nil {
			return false, err
		}

		if list.flag != nil && group == Root {
			*list.flag = ok
		}

		if ok {
			continue
		}

		if !list.optional {
			allMandatoryOK = false
			if report {
				return false, newConfigError("permission check failed for mandatory list %q on group %v", list.name, group)
			}
		}
	}

	return allMandatoryOK, nil
}

func (c *Context) permListSatisfied(group GroupID, list *permList) (bool, error) {
	for _, item := range list.items {
		path, err := c.path(group, baseGpdb, item.controller, item.leaf)
		if err != nil {
			return false, err
		}
		if !cgfs.Access(path, item.bits) {
			return false, nil
		}
	}
	return true, nil
}
