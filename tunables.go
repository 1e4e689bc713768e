package cgroup

// Tunables carries the configuration values the surrounding database
// supplies, enumerated in spec §6. It is constructed once, with Options
// applied over capability-aware defaults, and is immutable afterward.
type Tunables struct {
	// CPULimit is the fraction (0,1] of the parent CFS quota the gpdb
	// sub-tree as a whole may claim.
	CPULimit float64
	// CPUPriority multiplies the gpdb sub-tree's inherited cpu.shares.
	CPUPriority int
	// CPUCeilingEnforcement, when true, causes per-group cfs_quota_us to be
	// set; when false, groups get unlimited quota and only shares apply.
	CPUCeilingEnforcement bool

	// EnableMemory, EnableSwap, EnableCPUSet mirror the capability flags
	// but are the tunables a caller may *request*; NewTunables rejects a
	// request to enable a capability the permission scan cleared.
	EnableMemory bool
	EnableSwap   bool
	EnableCPUSet bool

	// VMemLimitChunks and PrimarySegmentCount feed set_memory_limit's
	// percentage-to-chunks conversion (spec §4.5).
	VMemLimitChunks     int64
	PrimarySegmentCount int
}

// Option mutates a Tunables under construction. Options that would force a
// capability flag true over a scan result that cleared it are rejected by
// NewTunables, not by the Option itself, so every Option can be applied
// independently of ordering.
type Option func(*Tunables)

func WithCPULimit(v float64) Option {
	return func(t *Tunables) { t.CPULimit = v }
}

func WithCPUPriority(v int) Option {
	return func(t *Tunables) { t.CPUPriority = v }
}

func WithCPUCeilingEnforcement(v bool) Option {
	return func(t *Tunables) { t.CPUCeilingEnforcement = v }
}

func WithMemoryEnabled(v bool) Option {
	return func(t *Tunables) { t.EnableMemory = v }
}

func WithSwapEnabled(v bool) Option {
	return func(t *Tunables) { t.EnableSwap = v }
}

func WithCPUSetEnabled(v bool) Option {
	return func(t *Tunables) { t.EnableCPUSet = v }
}

func WithVMemLimitChunks(v int64) Option {
	return func(t *Tunables) { t.VMemLimitChunks = v }
}

func WithPrimarySegmentCount(v int) Option {
	return func(t *Tunables) { t.PrimarySegmentCount = v }
}

// NewTunables builds a Tunables from capability-aware defaults plus the
// supplied options, and rejects any attempt to request a capability the
// permission scan already cleared.
func NewTunables(caps CapabilityFlags, opts ...Option) (*Tunables, error) {
	t := &Tunables{
		CPULimit:              1.0,
		CPUPriority:           1,
		CPUCeilingEnforcement: true,
		EnableMemory:          caps.Memory,
		EnableSwap:            caps.Swap,
		EnableCPUSet:          caps.CPUSet,
		PrimarySegmentCount:   1,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.EnableMemory && !caps.Memory {
		return nil, newConfigError("tunable requests memory controller but the permission scan cleared it")
	}
	if t.EnableSwap && !caps.Swap {
		return nil, newConfigError("tunable requests swap accounting but the permission scan cleared it")
	}
	if t.EnableCPUSet && !caps.CPUSet {
		return nil, newConfigError("tunable requests cpuset controller but the permission scan cleared it")
	}
	if t.CPULimit <= 0 || t.CPULimit > 1 {
		return nil, newConfigError("cpu_limit must be in (0,1], got %v", t.CPULimit)
	}
	if t.CPUPriority < 1 {
		return nil, newConfigError("cpu_priority must be >= 1, got %d", t.CPUPriority)
	}

	return t, nil
}
