package credpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygate/gateway/internal/gwerrors"
)

func newTestPool(mode SelectionMode) *Pool {
	return New(mode, []CredentialEntry{
		{Priority: 2, AuthMethod: AuthBearer, BearerToken: "tok-0"},
		{Priority: 1, AuthMethod: AuthBearer, BearerToken: "tok-1"},
		{Priority: 3, AuthMethod: AuthBearer, BearerToken: "tok-2"},
	})
}

func TestAcquirePriorityPicksLowestNumber(t *testing.T) {
	t.Parallel()
	p := newTestPool(ModePriority)

	h, err := p.Acquire("")
	require.NoError(t, err)
	assert.Equal(t, 1, h.Index, "priority 1 should win over priority 2 and 3")
}

func TestAcquireBalancedRoundRobins(t *testing.T) {
	t.Parallel()
	p := newTestPool(ModeBalanced)

	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		h, err := p.Acquire("")
		require.NoError(t, err)
		seen[h.Index] = true
		p.SwitchToNext()
	}
	assert.Len(t, seen, 3, "balanced mode should visit every entry once per cycle when rotated via SwitchToNext")
}

func TestAcquireBalancedIsStickyWithoutSwitchToNext(t *testing.T) {
	t.Parallel()
	p := newTestPool(ModeBalanced)

	first, err := p.Acquire("")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		h, err := p.Acquire("")
		require.NoError(t, err)
		assert.Equal(t, first.Index, h.Index, "balanced mode must not rotate on its own; only SwitchToNext advances it")
	}
}

func TestAcquireExhausted(t *testing.T) {
	t.Parallel()
	p := New(ModePriority, []CredentialEntry{{Disabled: true}})

	_, err := p.Acquire("")
	require.Error(t, err)
	ge, ok := gwerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, gwerrors.QuotaExhausted, ge.Kind)
}

func TestAffinityPinsToSameEntry(t *testing.T) {
	t.Parallel()
	p := newTestPool(ModeBalanced)

	first, err := p.Acquire("user-123")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		h, err := p.Acquire("user-123")
		require.NoError(t, err)
		assert.Equal(t, first.Index, h.Index, "same affinity key should pin to the same entry")
	}
}

func TestReportFailureAutoDisables(t *testing.T) {
	t.Parallel()
	p := New(ModePriority, []CredentialEntry{{AuthMethod: AuthBearer}})

	for i := 0; i < autoDisableThreshold; i++ {
		p.ReportFailure(0, FailureCredentialExhausted)
	}

	snap := p.Snapshot()
	assert.True(t, snap[0].Disabled, "entry should auto-disable past the failure threshold")
}

func TestResetAndEnableClearsFailures(t *testing.T) {
	t.Parallel()
	p := New(ModePriority, []CredentialEntry{{AuthMethod: AuthBearer}})

	for i := 0; i < autoDisableThreshold; i++ {
		p.ReportFailure(0, FailureCredentialExhausted)
	}
	p.ResetAndEnable(0)

	snap := p.Snapshot()
	assert.False(t, snap[0].Disabled)
	assert.Zero(t, snap[0].FailureCount)
}

func TestSetDisabledAdvancesCursorOffCurrent(t *testing.T) {
	t.Parallel()
	p := newTestPool(ModeBalanced)

	h, err := p.Acquire("")
	require.NoError(t, err)
	p.SetDisabled(h.Index, true)

	next, err := p.Acquire("")
	require.NoError(t, err)
	assert.NotEqual(t, h.Index, next.Index, "disabling the selected entry should route around it")
}

func TestAcquireFallsBackWhenPreferredEntryIsGated(t *testing.T) {
	t.Parallel()
	p := New(ModePriority, []CredentialEntry{
		{Priority: 1, AuthMethod: AuthBearer, BearerToken: "tok-0", TargetRPM: 1},
		{Priority: 2, AuthMethod: AuthBearer, BearerToken: "tok-1"},
	})

	first, err := p.Acquire("")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Index, "credential 0 should win on priority before its RPM budget is spent")

	second, err := p.Acquire("")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Index, "credential 0 is gated immediately after its one-per-minute budget is used, so credential 1 should be picked instead")
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()
	p := newTestPool(ModePriority)

	snap := p.Snapshot()
	snap[0].Priority = 999

	again := p.Snapshot()
	assert.NotEqual(t, uint32(999), again[0].Priority, "mutating a snapshot must not affect pool state")
}
