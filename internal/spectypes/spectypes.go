// Package spectypes defines the wire and in-memory shapes of the ruleset:
// Spec, Rule, Condition, and the SpecsResponse/SpecsUpdate envelopes that
// carry them from an authority into the evaluator.
//
// Grounded on original_source/statsig-lib/src/spec_types.rs (field layout,
// the eager str_matches regex compile at parse time) and on
// other_examples/d1b76d4a_statsig-io-go-sdk__store.go.go (configSpec /
// configRule / configCondition wire tags, TargetAppIDs, diagnostics/sdk_flags
// passthrough).
package spectypes

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/statsig-io/go-core/internal/dynamicvalue"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Spec is a single feature gate, dynamic config, or layer/experiment
// definition, keyed by name within one of RuleSet's three maps.
type Spec struct {
	Type               string                    `json:"type"`
	Salt               string                    `json:"salt"`
	DefaultValue       *dynamicvalue.Value        `json:"defaultValue"`
	Enabled            bool                      `json:"enabled"`
	Rules              []Rule                    `json:"rules"`
	IDType             string                    `json:"idType"`
	ExplicitParameters []string                  `json:"explicitParameters,omitempty"`
	Entity             string                    `json:"entity"`
	HasSharedParams    bool                      `json:"hasSharedParams,omitempty"`
	IsActive           bool                      `json:"isActive,omitempty"`
	TargetAppIDs       []string                  `json:"targetAppIDs,omitempty"`
}

// HasTargetAppID reports whether spec is visible to appID. A spec with no
// TargetAppIDs is visible to every app, matching configSpec.hasTargetAppID
// in the statsig-io-go-sdk reference.
func (s *Spec) HasTargetAppID(appID string) bool {
	if appID == "" || len(s.TargetAppIDs) == 0 {
		return true
	}
	for _, id := range s.TargetAppIDs {
		if id == appID {
			return true
		}
	}
	return false
}

// Rule is one conjunction of conditions inside a Spec. The first rule whose
// conditions all pass, and whose bucketing check passes, wins.
type Rule struct {
	Name              string              `json:"name"`
	PassPercentage    float64             `json:"passPercentage"`
	ReturnValue       *dynamicvalue.Value `json:"returnValue"`
	ID                string              `json:"id"`
	Salt              string              `json:"salt,omitempty"`
	Conditions        []string            `json:"conditions"`
	IDType            string              `json:"idType"`
	GroupName         string              `json:"groupName,omitempty"`
	ConfigDelegate    string              `json:"configDelegate,omitempty"`
	IsExperimentGroup bool                `json:"isExperimentGroup,omitempty"`
}

// BucketingSalt is the salt used for this rule's hash input: rule.Salt when
// present, otherwise rule.ID, per spec.md §4.3 step 5.
func (r *Rule) BucketingSalt() string {
	if r.Salt != "" {
		return r.Salt
	}
	return r.ID
}

// Condition is one leaf of a rule's evaluation. Conditions are shared via
// RuleSet.ConditionMap and referenced by id from Rule.Conditions; the
// evaluator must never mutate a Condition after parse.
type Condition struct {
	Type             string                         `json:"type"`
	Operator         string                         `json:"operator"`
	Field            string                         `json:"field,omitempty"`
	TargetValue      *dynamicvalue.Value            `json:"targetValue"`
	// AdditionalValues carries any extra named values a condition's wire
	// payload attaches beyond target_value. No operator in spec.md §4.3
	// reads from it today; it round-trips through parse so a future
	// operator can without a wire-format change.
	AdditionalValues map[string]*dynamicvalue.Value `json:"additionalValues,omitempty"`
	IDType           string                         `json:"idType"`
}

// compileIfRegex eagerly compiles TargetValue as a regex when Operator is
// str_matches, exactly once at parse time, per Condition::deserialize in
// spec_types.rs and the Design Notes' "compile regexes up front during
// parse" guidance for languages without interior mutability.
func (c *Condition) compileIfRegex() {
	if c.Operator == "str_matches" && c.TargetValue != nil {
		c.TargetValue.CompileRegex()
	}
}

// RuleSet is one immutable, fully-parsed ruleset version: the snapshot a
// SpecStore reader holds. It is never mutated after Parse returns it.
type RuleSet struct {
	FeatureGates           map[string]*Spec
	DynamicConfigs         map[string]*Spec
	LayerConfigs           map[string]*Spec
	ConditionMap           map[string]*Condition
	ExperimentToLayer      map[string]string
	Time                   int64
	DiagnosticsSampleRates map[string]int
	SDKFlags               map[string]bool
}

// wireSpec mirrors Spec's JSON shape field for field (rules are decoded
// directly into []Rule) and is converted to a Spec with a plain type
// conversion.
type wireSpec struct {
	Type               string                         `json:"type"`
	Salt               string                         `json:"salt"`
	DefaultValue       *dynamicvalue.Value            `json:"defaultValue"`
	Enabled            bool                           `json:"enabled"`
	Rules              []Rule                         `json:"rules"`
	IDType             string                         `json:"idType"`
	ExplicitParameters []string                       `json:"explicitParameters,omitempty"`
	Entity             string                         `json:"entity"`
	HasSharedParams    bool                           `json:"hasSharedParams,omitempty"`
	IsActive           bool                           `json:"isActive,omitempty"`
	TargetAppIDs       []string                       `json:"targetAppIDs,omitempty"`
}

// wireFull is the has_updates=true variant of SpecsResponse.
type wireFull struct {
	HasUpdates             bool                    `json:"has_updates"`
	Time                   int64                   `json:"time"`
	FeatureGates           map[string]wireSpec     `json:"feature_gates"`
	DynamicConfigs         map[string]wireSpec     `json:"dynamic_configs"`
	LayerConfigs           map[string]wireSpec     `json:"layer_configs"`
	ConditionMap           map[string]*Condition   `json:"condition_map"`
	ExperimentToLayer      map[string]string       `json:"experiment_to_layer"`
	DiagnosticsSampleRates map[string]int          `json:"diagnostics,omitempty"`
	SDKFlags               map[string]bool         `json:"sdk_flags,omitempty"`
}

// wireNoUpdates is the has_updates=false variant.
type wireNoUpdates struct {
	HasUpdates bool `json:"has_updates"`
}

// Parse decodes a raw SpecsResponse payload (bootstrap blob, HTTP body, or
// gRPC stream message body) into a RuleSet. hasUpdates reports whether the
// payload carried a Full response; when false the caller (SpecStore) keeps
// its existing ruleset and just refreshes bookkeeping.
//
// Unknown condition operators/types are not a parse error: the condition
// decodes normally and is left for the evaluator to treat as unsupported
// (spec.md §4.1 parse contract).
func Parse(raw []byte) (ruleset *RuleSet, hasUpdates bool, err error) {
	var probe wireNoUpdates
	if err := jsonAPI.Unmarshal(raw, &probe); err != nil {
		return nil, false, err
	}
	if !probe.HasUpdates {
		return nil, false, nil
	}

	var full wireFull
	if err := jsonAPI.Unmarshal(raw, &full); err != nil {
		return nil, false, err
	}

	for id, cond := range full.ConditionMap {
		cond.compileIfRegex()
		full.ConditionMap[id] = cond
	}

	toSpecs := func(in map[string]wireSpec) map[string]*Spec {
		out := make(map[string]*Spec, len(in))
		for name, w := range in {
			s := Spec(w)
			out[name] = &s
		}
		return out
	}

	rs := &RuleSet{
		FeatureGates:           toSpecs(full.FeatureGates),
		DynamicConfigs:         toSpecs(full.DynamicConfigs),
		LayerConfigs:           toSpecs(full.LayerConfigs),
		ConditionMap:           full.ConditionMap,
		ExperimentToLayer:      full.ExperimentToLayer,
		Time:                   full.Time,
		DiagnosticsSampleRates: full.DiagnosticsSampleRates,
		SDKFlags:               full.SDKFlags,
	}
	if rs.ConditionMap == nil {
		rs.ConditionMap = map[string]*Condition{}
	}
	if rs.ExperimentToLayer == nil {
		rs.ExperimentToLayer = map[string]string{}
	}
	return rs, true, nil
}

// Gate looks up a feature gate by name.
func (r *RuleSet) Gate(name string) (*Spec, bool) {
	if r == nil {
		return nil, false
	}
	s, ok := r.FeatureGates[name]
	return s, ok
}

// DynamicConfig looks up a dynamic config or experiment by name (experiments
// live in the same map, distinguished by Spec.Entity).
func (r *RuleSet) DynamicConfig(name string) (*Spec, bool) {
	if r == nil {
		return nil, false
	}
	s, ok := r.DynamicConfigs[name]
	return s, ok
}

// Layer looks up a layer config by name.
func (r *RuleSet) Layer(name string) (*Spec, bool) {
	if r == nil {
		return nil, false
	}
	s, ok := r.LayerConfigs[name]
	return s, ok
}

// Condition resolves a condition reference from a rule's Conditions list.
func (r *RuleSet) Condition(id string) (*Condition, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.ConditionMap[id]
	return c, ok
}
