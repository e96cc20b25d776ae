package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statsig-io/go-core/internal/specstore"
	"github.com/statsig-io/go-core/internal/spectypes"
)

func seedStore(t *testing.T, payload string, source spectypes.Source) *specstore.Store {
	t.Helper()
	s := specstore.New()
	require.NoError(t, s.ApplyUpdate(spectypes.SpecsUpdate{Data: []byte(payload), Source: source}))
	return s
}

const scenario1Payload = `{
  "has_updates": true,
  "time": 100,
  "feature_gates": {
    "g": {
      "type": "feature_gate", "salt": "salt1", "defaultValue": false, "enabled": true,
      "rules": [
        {"name": "rule1", "passPercentage": 100, "returnValue": true, "id": "rule_id_1", "conditions": ["pub"], "idType": "userID"}
      ],
      "idType": "userID"
    }
  },
  "dynamic_configs": {}, "layer_configs": {},
  "condition_map": {"pub": {"type": "public", "idType": "userID"}},
  "experiment_to_layer": {}
}`

func TestCheckGateBootstrapOnly(t *testing.T) {
	s := seedStore(t, scenario1Payload, spectypes.SourceBootstrap)
	e := New(s)

	result := e.CheckGate(&spectypes.User{UserID: "u1"}, "g", 0)
	assert.True(t, result.BoolValue)
	assert.Equal(t, "rule_id_1", result.RuleID)
	assert.Equal(t, spectypes.ReasonBootstrap, result.Reason)
}

func TestCheckGateNotFound(t *testing.T) {
	s := seedStore(t, scenario1Payload, spectypes.SourceBootstrap)
	e := New(s)

	result := e.CheckGate(&spectypes.User{UserID: "u1"}, "missing", 0)
	assert.False(t, result.BoolValue)
	assert.Equal(t, "default", result.RuleID)
	assert.Equal(t, spectypes.ReasonUnrecognized, result.Reason)
}

const disabledGatePayload = `{
  "has_updates": true, "time": 1,
  "feature_gates": {
    "h": {
      "type": "feature_gate", "salt": "s", "defaultValue": false, "enabled": false,
      "rules": [{"name": "r", "passPercentage": 100, "returnValue": true, "id": "rid", "conditions": ["pub"], "idType": "userID"}],
      "idType": "userID"
    }
  },
  "dynamic_configs": {}, "layer_configs": {},
  "condition_map": {"pub": {"type": "public", "idType": "userID"}},
  "experiment_to_layer": {}
}`

func TestCheckGateDisabledSpec(t *testing.T) {
	s := seedStore(t, disabledGatePayload, spectypes.SourceNetwork)
	e := New(s)

	result := e.CheckGate(&spectypes.User{UserID: "u1"}, "h", 0)
	assert.False(t, result.BoolValue)
	assert.Equal(t, "disabled", result.RuleID)
	assert.Equal(t, spectypes.ReasonDisabled, result.Reason)
}

const bucketingBoundaryPayload = `{
  "has_updates": true, "time": 1,
  "feature_gates": {
    "zero": {
      "type": "feature_gate", "salt": "s0", "defaultValue": false, "enabled": true,
      "rules": [{"name": "r", "passPercentage": 0, "returnValue": true, "id": "rid0", "conditions": ["pub"], "idType": "userID"}],
      "idType": "userID"
    },
    "hundred": {
      "type": "feature_gate", "salt": "s100", "defaultValue": false, "enabled": true,
      "rules": [{"name": "r", "passPercentage": 100, "returnValue": true, "id": "rid100", "conditions": ["pub"], "idType": "userID"}],
      "idType": "userID"
    }
  },
  "dynamic_configs": {}, "layer_configs": {},
  "condition_map": {"pub": {"type": "public", "idType": "userID"}},
  "experiment_to_layer": {}
}`

func TestBucketingBoundaryExclusive(t *testing.T) {
	s := seedStore(t, bucketingBoundaryPayload, spectypes.SourceBootstrap)
	e := New(s)

	for i := 0; i < 200; i++ {
		user := &spectypes.User{UserID: "u" + string(rune('a'+i%26)) + string(rune('0'+i%10))}
		assert.False(t, e.CheckGate(user, "zero", 0).BoolValue)
		assert.True(t, e.CheckGate(user, "hundred", 0).BoolValue)
	}
}

func TestBucketingDistributionNear50Percent(t *testing.T) {
	payload := `{
	  "has_updates": true, "time": 1,
	  "feature_gates": {
	    "half": {
	      "type": "feature_gate", "salt": "halfsalt", "defaultValue": false, "enabled": true,
	      "rules": [{"name": "r", "passPercentage": 50, "returnValue": true, "id": "rid", "conditions": ["pub"], "idType": "userID"}],
	      "idType": "userID"
	    }
	  },
	  "dynamic_configs": {}, "layer_configs": {},
	  "condition_map": {"pub": {"type": "public", "idType": "userID"}},
	  "experiment_to_layer": {}
	}`
	s := seedStore(t, payload, spectypes.SourceBootstrap)
	e := New(s)

	pass := 0
	const n = 10000
	for i := 0; i < n; i++ {
		user := &spectypes.User{UserID: randomishID(i)}
		if e.CheckGate(user, "half", 0).BoolValue {
			pass++
		}
	}
	assert.InDelta(t, n/2, pass, 300)
}

func randomishID(i int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, 12)
	x := uint64(i)*2654435761 + 1
	for j := range buf {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		buf[j] = alphabet[x%uint64(len(alphabet))]
	}
	return string(buf)
}

const delegatedExperimentPayload = `{
  "has_updates": true, "time": 1,
  "feature_gates": {
    "dep_gate": {
      "type": "feature_gate", "salt": "dg", "defaultValue": false, "enabled": true,
      "rules": [{"name": "r", "passPercentage": 100, "returnValue": true, "id": "dep_rule_1", "conditions": ["pub"], "idType": "userID"}],
      "idType": "userID"
    }
  },
  "dynamic_configs": {
    "exp": {
      "type": "dynamic_config", "salt": "expSalt", "defaultValue": {}, "enabled": true,
      "rules": [{"name": "r1", "passPercentage": 100, "returnValue": {"param1": "expValue1"}, "id": "exp_rule_1", "conditions": ["pub", "dep_on_gate"], "idType": "userID", "configDelegate": "exp_layer", "groupName": "test_group", "isExperimentGroup": true}],
      "idType": "userID", "entity": "experiment", "hasSharedParams": true, "explicitParameters": ["param1"]
    }
  },
  "layer_configs": {
    "exp_layer": {
      "type": "layer", "salt": "layerSalt", "defaultValue": {"param1": "layerDefault1", "param2": "layerDefault2"}, "enabled": true,
      "rules": [{"name": "lr1", "passPercentage": 100, "returnValue": {"param1": "layerRet1", "param2": "layerRet2"}, "id": "layer_rule_1", "conditions": ["pub"], "idType": "userID"}],
      "idType": "userID"
    }
  },
  "condition_map": {
    "pub": {"type": "public", "idType": "userID"},
    "dep_on_gate": {"type": "pass_gate", "operator": "", "targetValue": "dep_gate", "idType": "userID"}
  },
  "experiment_to_layer": {"exp": "exp_layer"}
}`

func TestDelegatedExperimentReturnsLayerValueWithPreDelegationExposures(t *testing.T) {
	s := seedStore(t, delegatedExperimentPayload, spectypes.SourceNetwork)
	e := New(s)

	result := e.GetDynamicConfig(&spectypes.User{UserID: "u1"}, "exp", 0)

	assert.Equal(t, map[string]any{"param1": "layerRet1", "param2": "layerRet2"}, result.JSONValue)
	assert.Equal(t, "exp_layer", result.ConfigDelegate)
	require.Len(t, result.SecondaryExposures, 1)
	assert.Equal(t, "dep_gate", result.SecondaryExposures[0].Gate)
	assert.Equal(t, "true", result.SecondaryExposures[0].GateValue)
	assert.Equal(t, result.SecondaryExposures, result.UndelegatedSecondaryExposures)
}

func TestGetClientInitializeResponseShape(t *testing.T) {
	s := seedStore(t, delegatedExperimentPayload, spectypes.SourceNetwork)
	e := New(s)

	resp := e.GetClientInitializeResponse(&spectypes.User{UserID: "u1"}, 0)

	assert.True(t, resp.HasUpdates)
	assert.Len(t, resp.FeatureGates, 1)
	assert.Len(t, resp.DynamicConfigs, 1)
	assert.Len(t, resp.LayerConfigs, 1)

	for _, cfg := range resp.DynamicConfigs {
		require.NotNil(t, cfg.IsInLayer)
		assert.True(t, *cfg.IsInLayer)
		// exp's rule delegates to exp_layer, so its evaluated value already
		// is the layer's own rule output, merged over the layer default.
		assert.Equal(t, "layerRet1", cfg.Value["param1"])
		assert.Equal(t, "layerRet2", cfg.Value["param2"])
	}
}

const unsupportedOperatorPayload = `{
  "has_updates": true, "time": 1,
  "feature_gates": {
    "weird": {
      "type": "feature_gate", "salt": "s", "defaultValue": false, "enabled": true,
      "rules": [{"name": "r", "passPercentage": 100, "returnValue": true, "id": "rid", "conditions": ["bogus"], "idType": "userID"}],
      "idType": "userID"
    }
  },
  "dynamic_configs": {}, "layer_configs": {},
  "condition_map": {"bogus": {"type": "user_field", "operator": "frobnicate", "field": "email", "targetValue": "x", "idType": "userID"}},
  "experiment_to_layer": {}
}`

func TestUnsupportedOperatorMarksReasonUnsupported(t *testing.T) {
	s := seedStore(t, unsupportedOperatorPayload, spectypes.SourceNetwork)
	e := New(s)

	result := e.CheckGate(&spectypes.User{UserID: "u1", Email: "a@example.com"}, "weird", 0)
	assert.False(t, result.BoolValue)
	assert.Equal(t, spectypes.ReasonUnsupported, result.Reason)
}

func TestAppIDScoping(t *testing.T) {
	payload := `{
	  "has_updates": true, "time": 1,
	  "feature_gates": {
	    "scoped": {
	      "type": "feature_gate", "salt": "s", "defaultValue": false, "enabled": true,
	      "rules": [{"name": "r", "passPercentage": 100, "returnValue": true, "id": "rid", "conditions": ["pub"], "idType": "userID"}],
	      "idType": "userID", "targetAppIDs": ["app1"]
	    }
	  },
	  "dynamic_configs": {}, "layer_configs": {},
	  "condition_map": {"pub": {"type": "public", "idType": "userID"}},
	  "experiment_to_layer": {}
	}`
	s := seedStore(t, payload, spectypes.SourceNetwork)

	inScope := New(s, WithAppID("app1"))
	assert.True(t, inScope.CheckGate(&spectypes.User{UserID: "u1"}, "scoped", 0).BoolValue)

	outOfScope := New(s, WithAppID("app2"))
	result := outOfScope.CheckGate(&spectypes.User{UserID: "u1"}, "scoped", 0)
	assert.False(t, result.BoolValue)
	assert.Equal(t, spectypes.ReasonUnrecognized, result.Reason)
}
