package evaluator

import (
	"strconv"

	"github.com/statsig-io/go-core/internal/dynamicvalue"
	"github.com/statsig-io/go-core/internal/hashing"
	"github.com/statsig-io/go-core/internal/spectypes"
)

// maxGateRecursionDepth bounds pass_gate/fail_gate recursion, matching
// spec.md §5's "recursion is bounded by spec static depth": a malformed
// ruleset with a condition cycle fails closed instead of recursing forever.
const maxGateRecursionDepth = 64

// evaluateConditions evaluates every condition referenced by a rule and
// ANDs the results. All conditions are evaluated even after one fails, so
// that every pass_gate/fail_gate nested along the way still contributes its
// secondary exposure — spec.md never says to short-circuit, and exposure
// completeness depends on not doing so.
func (e *Evaluator) evaluateConditions(ctx *evalCtx, specSalt string, conditionIDs []string) (pass bool, exposures []spectypes.Exposure, unsupported bool) {
	pass = true
	for _, id := range conditionIDs {
		cond, ok := ctx.snap.Ruleset.ConditionMap[id]
		if !ok {
			pass = false
			unsupported = true
			continue
		}
		condPass, exps, condUnsupported := e.evaluateCondition(ctx, specSalt, cond)
		if !condPass {
			pass = false
		}
		if condUnsupported {
			unsupported = true
		}
		exposures = append(exposures, exps...)
	}
	return pass, exposures, unsupported
}

func (e *Evaluator) evaluateCondition(ctx *evalCtx, specSalt string, cond *spectypes.Condition) (pass bool, exposures []spectypes.Exposure, unsupported bool) {
	switch cond.Type {
	case "public":
		return true, nil, false

	case "pass_gate", "fail_gate":
		return e.evaluateGateCondition(ctx, cond)

	case "user_field":
		value, ok := e.fieldValue(ctx, cond.Field)
		if !ok {
			return false, nil, false
		}
		return outcomeResult(applyOperator(cond.Operator, value, cond.TargetValue))

	case "unit_id":
		unitID, ok := ctx.user.UnitID(cond.IDType)
		if !ok {
			return false, nil, false
		}
		return outcomeResult(applyOperator(cond.Operator, dynamicvalue.New(unitID), cond.TargetValue))

	case "current_time":
		return outcomeResult(applyOperator(cond.Operator, dynamicvalue.New(float64(ctx.nowMs)), cond.TargetValue))

	case "environment_field":
		if ctx.user.StatsigEnvironment == nil {
			return false, nil, false
		}
		v, ok := ctx.user.StatsigEnvironment[cond.Field]
		if !ok {
			return false, nil, false
		}
		return outcomeResult(applyOperator(cond.Operator, dynamicvalue.New(v), cond.TargetValue))

	case "user_bucket":
		unitID, ok := ctx.user.UnitID(cond.IDType)
		if !ok {
			return false, nil, false
		}
		bucket := hashing.EvaluationHash(specSalt+"."+unitID) % 1000
		return outcomeResult(applyOperator(cond.Operator, dynamicvalue.New(float64(bucket)), cond.TargetValue))

	case "in_segment_list":
		if e.segments == nil {
			return false, nil, false
		}
		unitID, ok := ctx.user.UnitID(cond.IDType)
		if !ok {
			return false, nil, false
		}
		listName, ok := cond.TargetValue.AsString()
		if !ok {
			return false, nil, true
		}
		return e.segments.Contains(listName, unitID), nil, false

	default:
		return false, nil, true
	}
}

func outcomeResult(o evalOutcome) (bool, []spectypes.Exposure, bool) {
	switch o {
	case outcomePass:
		return true, nil, false
	case outcomeFail:
		return false, nil, false
	default:
		return false, nil, true
	}
}

// evaluateGateCondition recursively evaluates the gate named by
// cond.TargetValue and folds the recursion's own secondary exposures into
// this condition's, before appending an exposure entry for the nested gate
// itself — so a chain of dependent gates produces one exposure per hop.
func (e *Evaluator) evaluateGateCondition(ctx *evalCtx, cond *spectypes.Condition) (bool, []spectypes.Exposure, bool) {
	gateName, ok := cond.TargetValue.AsString()
	if !ok {
		return false, nil, true
	}
	if ctx.depth >= maxGateRecursionDepth {
		return false, nil, true
	}

	nested := e.evalSpec(ctx.nested(), specKindGate, gateName)

	pass := nested.BoolValue
	if cond.Type == "fail_gate" {
		pass = !nested.BoolValue
	}

	exposures := append(append([]spectypes.Exposure{}, nested.SecondaryExposures...), spectypes.Exposure{
		Gate:      gateName,
		GateValue: strconv.FormatBool(nested.BoolValue),
		RuleID:    nested.RuleID,
	})
	return pass, exposures, nested.Reason == spectypes.ReasonUnsupported
}

// fieldValue extracts a user_field condition's operand, wrapping it in a
// dynamicvalue.Value so the shared operator implementations can coerce it.
func (e *Evaluator) fieldValue(ctx *evalCtx, field string) (*dynamicvalue.Value, bool) {
	v, ok := ctx.user.Field(field)
	if !ok {
		return nil, false
	}
	return dynamicvalue.New(v), true
}

// bucketPass implements the deterministic 0..10_000 slot assignment spec.md
// §4.3/Glossary describe: hash(spec.salt + "." + rule.salt|rule.id + "." +
// unit_id) compared against pass_percentage*100 with a strict less-than, so
// pass_percentage=0 never passes and pass_percentage=100 always does.
func bucketPass(spec *spectypes.Spec, rule *spectypes.Rule, unitID string) bool {
	hash := hashing.EvaluationHash(spec.Salt + "." + rule.BucketingSalt() + "." + unitID)
	slot := float64(hash % 10000)
	return slot < rule.PassPercentage*100
}
