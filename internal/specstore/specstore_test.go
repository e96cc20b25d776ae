package specstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statsig-io/go-core/internal/spectypes"
)

func fullPayload(lcut int64) []byte {
	return []byte(`{"has_updates": true, "time": ` + itoa(lcut) + `, "feature_gates": {}, "dynamic_configs": {}, "layer_configs": {}, "condition_map": {}, "experiment_to_layer": {}}`)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func TestNewStoreUninitializedSnapshot(t *testing.T) {
	s := New()
	snap := s.Snapshot()
	assert.Equal(t, spectypes.SourceUninitialized, snap.Source)
	assert.NotNil(t, snap.Ruleset)
}

func TestApplyUpdateMonotonicLCUT(t *testing.T) {
	s := New()

	require.NoError(t, s.ApplyUpdate(spectypes.SpecsUpdate{
		Data:   fullPayload(100),
		Source: spectypes.SourceNetwork,
	}))
	assert.EqualValues(t, 100, s.Snapshot().LCUT)

	// Older lcut from Network is dropped.
	require.NoError(t, s.ApplyUpdate(spectypes.SpecsUpdate{
		Data:   fullPayload(90),
		Source: spectypes.SourceNetwork,
	}))
	assert.EqualValues(t, 100, s.Snapshot().LCUT)

	// Newer lcut is applied.
	require.NoError(t, s.ApplyUpdate(spectypes.SpecsUpdate{
		Data:   fullPayload(200),
		Source: spectypes.SourceNetwork,
	}))
	assert.EqualValues(t, 200, s.Snapshot().LCUT)
}

func TestApplyUpdateParseFailureRetainsPriorRuleset(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyUpdate(spectypes.SpecsUpdate{
		Data:   fullPayload(100),
		Source: spectypes.SourceNetwork,
	}))

	err := s.ApplyUpdate(spectypes.SpecsUpdate{
		Data:   []byte("not json"),
		Source: spectypes.SourceNetwork,
	})
	assert.Error(t, err)
	assert.EqualValues(t, 100, s.Snapshot().LCUT)
	assert.Error(t, s.LastError())
}

func TestApplyUpdateNoUpdatesKeepsRulesetButMarksNotModified(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyUpdate(spectypes.SpecsUpdate{
		Data:   fullPayload(100),
		Source: spectypes.SourceNetwork,
	}))

	require.NoError(t, s.ApplyUpdate(spectypes.SpecsUpdate{
		Data:   []byte(`{"has_updates": false}`),
		Source: spectypes.SourceNetwork,
	}))

	snap := s.Snapshot()
	assert.Equal(t, spectypes.SourceNetworkNotModified, snap.Source)
	assert.EqualValues(t, 100, snap.LCUT)
}

func TestCurrentSpecsInfo(t *testing.T) {
	s := New()
	info := s.CurrentSpecsInfo()
	assert.Nil(t, info.LCUT)
	assert.Equal(t, spectypes.SourceUninitialized, info.Source)

	require.NoError(t, s.ApplyUpdate(spectypes.SpecsUpdate{
		Data:   fullPayload(42),
		Source: spectypes.SourceBootstrap,
	}))
	info = s.CurrentSpecsInfo()
	require.NotNil(t, info.LCUT)
	assert.EqualValues(t, 42, *info.LCUT)
	assert.Equal(t, spectypes.SourceBootstrap, info.Source)
}

func TestBootstrapThenNetworkPrecedence(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyUpdate(spectypes.SpecsUpdate{
		Data:   fullPayload(10),
		Source: spectypes.SourceBootstrap,
	}))
	assert.Equal(t, spectypes.SourceBootstrap, s.Snapshot().Source)

	require.NoError(t, s.ApplyUpdate(spectypes.SpecsUpdate{
		Data:   fullPayload(20),
		Source: spectypes.SourceNetwork,
	}))
	assert.Equal(t, spectypes.SourceNetwork, s.Snapshot().Source)
	assert.EqualValues(t, 20, s.Snapshot().LCUT)
}
