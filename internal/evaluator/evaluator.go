// Package evaluator implements the ruleset evaluation engine: condition
// trees, rule iteration, deterministic user-bucketing, and layer/experiment
// delegation, reading exclusively from a specstore.Store snapshot so the hot
// path never suspends.
//
// Grounded on other_examples/c5f0c6fe_statsig-io-go-sdk__client_initialize_response.go.go
// (hashName/cleanExposures/shared-params-merge logic for GetClientInitializeResponse)
// and other_examples/d1b76d4a_statsig-io-go-sdk__store.go.go (rule/condition
// iteration shape), with the exact bucketing and failure semantics from
// spec.md §4.3.
package evaluator

import (
	"github.com/statsig-io/go-core/internal/specstore"
	"github.com/statsig-io/go-core/internal/spectypes"
)

// specKind selects which of RuleSet's three maps a lookup targets.
type specKind int

const (
	specKindGate specKind = iota
	specKindConfig
	specKindLayer
)

// SegmentStore resolves in_segment_list conditions against an externally
// maintained id list. Persistent file/network-backed id-list adapters are
// out of scope (spec.md §1); a nil SegmentStore makes every in_segment_list
// condition fail closed rather than panic.
type SegmentStore interface {
	Contains(listName, unitID string) bool
}

// Evaluator evaluates users against the ruleset held by a store.
type Evaluator struct {
	store    *specstore.Store
	appID    string
	segments SegmentStore
}

// Option configures an Evaluator at construction.
type Option func(*Evaluator)

// WithAppID scopes evaluation to specs whose TargetAppIDs includes appID (or
// which carry no TargetAppIDs at all).
func WithAppID(appID string) Option {
	return func(e *Evaluator) { e.appID = appID }
}

// WithSegmentStore wires an id-list backend for in_segment_list conditions.
func WithSegmentStore(s SegmentStore) Option {
	return func(e *Evaluator) { e.segments = s }
}

// New builds an Evaluator reading from store.
func New(store *specstore.Store, opts ...Option) *Evaluator {
	e := &Evaluator{store: store}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// evalCtx threads the snapshot, user, and current time through one
// evaluation call tree, including nested pass_gate/fail_gate/delegate calls.
type evalCtx struct {
	snap  specstore.Snapshot
	user  *spectypes.User
	nowMs int64
	depth int
}

func (c *evalCtx) nested() *evalCtx {
	return &evalCtx{snap: c.snap, user: c.user, nowMs: c.nowMs, depth: c.depth + 1}
}

func reasonForSource(src spectypes.Source) spectypes.Reason {
	switch src {
	case spectypes.SourceBootstrap:
		return spectypes.ReasonBootstrap
	case spectypes.SourceNetwork:
		return spectypes.ReasonNetwork
	case spectypes.SourceNetworkNotModified:
		return spectypes.ReasonNetworkNotModified
	case spectypes.SourceDataStore:
		return spectypes.ReasonDataStore
	default:
		return spectypes.ReasonUninitialized
	}
}

// CheckGate evaluates a feature gate and returns the full evaluation
// result; the facade's CheckGate reads its BoolValue.
func (e *Evaluator) CheckGate(user *spectypes.User, name string, nowMs int64) spectypes.EvaluationResult {
	ctx := &evalCtx{snap: e.store.Snapshot(), user: user, nowMs: nowMs}
	return e.evalSpec(ctx, specKindGate, name)
}

// GetDynamicConfig evaluates a dynamic config (or experiment, which lives in
// the same map, distinguished only by Spec.Entity).
func (e *Evaluator) GetDynamicConfig(user *spectypes.User, name string, nowMs int64) spectypes.EvaluationResult {
	ctx := &evalCtx{snap: e.store.Snapshot(), user: user, nowMs: nowMs}
	return e.evalSpec(ctx, specKindConfig, name)
}

// GetLayer evaluates a layer config by name. A matched rule that carries a
// config_delegate is forwarded like any other spec (see delegate).
func (e *Evaluator) GetLayer(user *spectypes.User, name string, nowMs int64) spectypes.EvaluationResult {
	ctx := &evalCtx{snap: e.store.Snapshot(), user: user, nowMs: nowMs}
	return e.evalSpec(ctx, specKindLayer, name)
}

func (e *Evaluator) specMap(snap specstore.Snapshot, kind specKind) map[string]*spectypes.Spec {
	switch kind {
	case specKindGate:
		return snap.Ruleset.FeatureGates
	case specKindConfig:
		return snap.Ruleset.DynamicConfigs
	default:
		return snap.Ruleset.LayerConfigs
	}
}

// evalSpec is the 7-step core algorithm from spec.md §4.3:
//  1. look up the spec by name, scoped to the requesting app;
//  2. short-circuit if disabled;
//  3. resolve the unit id for the spec's id_type;
//  4. iterate rules in order, evaluating each rule's condition conjunction;
//  5. on the first rule whose conditions all pass, apply the bucketing check;
//  6. if the rule carries a config_delegate, forward to that spec;
//  7. otherwise return the rule's or the spec's default value, decorated
//     with every secondary exposure collected along the way.
func (e *Evaluator) evalSpec(ctx *evalCtx, kind specKind, name string) spectypes.EvaluationResult {
	baseReason := reasonForSource(ctx.snap.Source)

	specs := e.specMap(ctx.snap, kind)
	spec, ok := specs[name]
	if !ok || !spec.HasTargetAppID(e.appID) {
		return spectypes.EvaluationResult{RuleID: "default", Reason: spectypes.ReasonUnrecognized, LCUT: ctx.snap.LCUT}
	}

	if !spec.Enabled {
		result := defaultResultFor(spec)
		result.RuleID = "disabled"
		result.Reason = spectypes.ReasonDisabled
		result.IDType = spec.IDType
		result.LCUT = ctx.snap.LCUT
		return result
	}

	unitID, _ := ctx.user.UnitID(spec.IDType)

	var collected []spectypes.Exposure
	unsupported := false

	for i := range spec.Rules {
		rule := &spec.Rules[i]
		condPass, exps, condUnsupported := e.evaluateConditions(ctx, spec.Salt, rule.Conditions)
		collected = append(collected, exps...)
		if condUnsupported {
			unsupported = true
		}
		if !condPass {
			continue
		}

		var result spectypes.EvaluationResult
		if bucketPass(spec, rule, unitID) {
			result = resultFromRule(spec, rule)
		} else {
			result = defaultResultFor(spec)
			result.RuleID = "default"
		}
		result.SecondaryExposures = collected
		result.IDType = spec.IDType
		result.LCUT = ctx.snap.LCUT
		if unsupported {
			result.Reason = spectypes.ReasonUnsupported
		} else {
			result.Reason = baseReason
		}

		if rule.ConfigDelegate != "" {
			return e.delegate(ctx, rule.ConfigDelegate, result)
		}
		return result
	}

	result := defaultResultFor(spec)
	result.RuleID = "default"
	result.SecondaryExposures = collected
	result.IDType = spec.IDType
	result.LCUT = ctx.snap.LCUT
	if unsupported {
		result.Reason = spectypes.ReasonUnsupported
	} else {
		result.Reason = baseReason
	}
	return result
}

func defaultResultFor(spec *spectypes.Spec) spectypes.EvaluationResult {
	result := spectypes.EvaluationResult{ExplicitParameters: spec.ExplicitParameters}
	if spec.DefaultValue == nil {
		return result
	}
	if b, ok := spec.DefaultValue.AsBool(); ok {
		result.BoolValue = b
	}
	if m, ok := spec.DefaultValue.Raw().(map[string]any); ok {
		result.JSONValue = m
	}
	return result
}

func resultFromRule(spec *spectypes.Spec, rule *spectypes.Rule) spectypes.EvaluationResult {
	result := spectypes.EvaluationResult{
		RuleID:             rule.ID,
		GroupName:          rule.GroupName,
		IsExperimentGroup:  rule.IsExperimentGroup,
		ExplicitParameters: spec.ExplicitParameters,
	}
	if rule.ReturnValue != nil {
		if b, ok := rule.ReturnValue.AsBool(); ok {
			result.BoolValue = b
		}
		if m, ok := rule.ReturnValue.Raw().(map[string]any); ok {
			result.JSONValue = m
		}
	}
	return result
}

// delegate forwards a matched rule's config_delegate to the layer/experiment
// it names, per spec.md §8 scenario 5: the rendered value comes from the
// delegate, but secondary_exposures stays the pre-delegation set (the
// delegate's own exposures are discarded; UndelegatedSecondaryExposures
// carries the same pre-delegation set). The name is looked up among layer
// configs first and otherwise among dynamic configs/experiments.
func (e *Evaluator) delegate(ctx *evalCtx, delegateName string, preDelegation spectypes.EvaluationResult) spectypes.EvaluationResult {
	if ctx.depth >= maxGateRecursionDepth {
		preDelegation.Reason = spectypes.ReasonUnsupported
		return preDelegation
	}

	kind := specKindLayer
	if _, ok := ctx.snap.Ruleset.LayerConfigs[delegateName]; !ok {
		kind = specKindConfig
	}
	nested := e.evalSpec(ctx.nested(), kind, delegateName)
	nested.ConfigDelegate = delegateName
	nested.UndelegatedSecondaryExposures = preDelegation.SecondaryExposures
	nested.SecondaryExposures = preDelegation.SecondaryExposures
	nested.LCUT = ctx.snap.LCUT
	return nested
}
