package cgroup

import (
	"testing"

	"github.com/shoenig/test/must"
	"github.com/stretchr/testify/require"
)

func TestNewTunables_capabilityAwareDefaults(t *testing.T) {
	caps := CapabilityFlags{Memory: true, Swap: false, CPUSet: true}

	tun, err := NewTunables(caps)
	require.NoError(t, err)
	must.Eq(t, 1.0, tun.CPULimit)
	must.Eq(t, 1, tun.CPUPriority)
	must.True(t, tun.EnableMemory)
	must.False(t, tun.EnableSwap)
	must.True(t, tun.EnableCPUSet)
}

func TestNewTunables_rejectsEnablingClearedCapability(t *testing.T) {
	caps := CapabilityFlags{Memory: false}

	_, err := NewTunables(caps, WithMemoryEnabled(true))
	require.Error(t, err)

	var cfgErr *ConfigError
	must.True(t, asConfigError(err, &cfgErr))
}

func TestNewTunables_rejectsOutOfRangeCPULimit(t *testing.T) {
	caps := CapabilityFlags{}

	_, err := NewTunables(caps, WithCPULimit(0))
	require.Error(t, err)

	_, err = NewTunables(caps, WithCPULimit(1.5))
	require.Error(t, err)
}

func TestNewTunables_rejectsSubOneCPUPriority(t *testing.T) {
	caps := CapabilityFlags{}
	_, err := NewTunables(caps, WithCPUPriority(0))
	require.Error(t, err)
}

func TestNewTunables_optionsApply(t *testing.T) {
	caps := CapabilityFlags{Memory: true, Swap: true, CPUSet: true}

	tun, err := NewTunables(caps,
		WithCPULimit(0.75),
		WithCPUPriority(2),
		WithCPUCeilingEnforcement(false),
		WithVMemLimitChunks(100),
		WithPrimarySegmentCount(3),
	)
	require.NoError(t, err)
	must.Eq(t, 0.75, tun.CPULimit)
	must.Eq(t, 2, tun.CPUPriority)
	must.False(t, tun.CPUCeilingEnforcement)
	must.Eq(t, int64(100), tun.VMemLimitChunks)
	must.Eq(t, 3, tun.PrimarySegmentCount)
}
