package spectypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullPayload = `{
  "has_updates": true,
  "time": 100,
  "feature_gates": {
    "g": {
      "type": "feature_gate",
      "salt": "salt1",
      "defaultValue": false,
      "enabled": true,
      "rules": [
        {
          "name": "rule1",
          "passPercentage": 100,
          "returnValue": true,
          "id": "rule_id_1",
          "conditions": ["c1"],
          "idType": "userID"
        }
      ],
      "idType": "userID"
    }
  },
  "dynamic_configs": {},
  "layer_configs": {},
  "condition_map": {
    "c1": {"type": "public", "idType": "userID"},
    "c2": {"type": "user_field", "operator": "str_matches", "field": "email", "targetValue": "^a.*z$", "idType": "userID"}
  },
  "experiment_to_layer": {}
}`

const noUpdatesPayload = `{"has_updates": false}`

func TestParseFull(t *testing.T) {
	rs, hasUpdates, err := Parse([]byte(fullPayload))
	require.NoError(t, err)
	require.True(t, hasUpdates)
	require.NotNil(t, rs)

	assert.EqualValues(t, 100, rs.Time)
	gate, ok := rs.Gate("g")
	require.True(t, ok)
	assert.True(t, gate.Enabled)
	require.Len(t, gate.Rules, 1)
	assert.Equal(t, "rule_id_1", gate.Rules[0].ID)

	cond, ok := rs.Condition("c1")
	require.True(t, ok)
	assert.Equal(t, "public", cond.Type)
}

func TestParseCompilesStrMatchesRegexAtParseTime(t *testing.T) {
	rs, _, err := Parse([]byte(fullPayload))
	require.NoError(t, err)

	cond, ok := rs.Condition("c2")
	require.True(t, ok)
	re, ok := cond.TargetValue.Regexp()
	require.True(t, ok)
	assert.True(t, re.MatchString("az"))
	assert.False(t, re.MatchString("bz"))
}

func TestParseNoUpdates(t *testing.T) {
	rs, hasUpdates, err := Parse([]byte(noUpdatesPayload))
	require.NoError(t, err)
	assert.False(t, hasUpdates)
	assert.Nil(t, rs)
}

func TestParseInvalidJSON(t *testing.T) {
	_, _, err := Parse([]byte("not json"))
	assert.Error(t, err)
}

func TestSpecHasTargetAppID(t *testing.T) {
	s := &Spec{}
	assert.True(t, s.HasTargetAppID("anything"))

	s.TargetAppIDs = []string{"app1", "app2"}
	assert.True(t, s.HasTargetAppID("app1"))
	assert.False(t, s.HasTargetAppID("app3"))
	assert.True(t, s.HasTargetAppID(""))
}

func TestRuleBucketingSalt(t *testing.T) {
	r := &Rule{ID: "rule_id"}
	assert.Equal(t, "rule_id", r.BucketingSalt())

	r.Salt = "explicit_salt"
	assert.Equal(t, "explicit_salt", r.BucketingSalt())
}

func TestUserUnitIDAndField(t *testing.T) {
	u := &User{
		UserID: "u1",
		CustomIDs: map[string]string{
			"stableID": "stable-1",
		},
		Email: "a@example.com",
		Custom: map[string]any{
			"plan": "pro",
		},
		PrivateAttributes: map[string]any{
			"ssn": "secret",
		},
	}

	id, ok := u.UnitID("userID")
	require.True(t, ok)
	assert.Equal(t, "u1", id)

	id, ok = u.UnitID("stableID")
	require.True(t, ok)
	assert.Equal(t, "stable-1", id)

	v, ok := u.Field("email")
	require.True(t, ok)
	assert.Equal(t, "a@example.com", v)

	v, ok = u.Field("plan")
	require.True(t, ok)
	assert.Equal(t, "pro", v)

	v, ok = u.Field("ssn")
	require.True(t, ok)
	assert.Equal(t, "secret", v)

	sanitized := u.SanitizedForNetwork()
	assert.Nil(t, sanitized.PrivateAttributes)
	assert.Equal(t, "u1", sanitized.UserID)
}

func TestUserValidate(t *testing.T) {
	assert.False(t, (&User{}).Validate())
	assert.True(t, (&User{UserID: "u1"}).Validate())
	assert.True(t, (&User{CustomIDs: map[string]string{"stableID": "s1"}}).Validate())
}
