package evaluator

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/statsig-io/go-core/internal/dynamicvalue"
)

// evalOutcome is the three-way result of applying an operator: pass, fail,
// or unsupported (unknown operator / incomparable types). Unsupported fails
// the containing rule but is distinguished so the caller can set
// reason=Unsupported on the overall evaluation, per spec.md §4.3's failure
// semantics.
type evalOutcome int

const (
	outcomeFail evalOutcome = iota
	outcomePass
	outcomeUnsupported
)

// applyOperator evaluates op against value (the field/unit-id/time/etc
// extracted for this condition) and target (the condition's target_value),
// following the operator catalogue enumerated in spec.md §4.3.
func applyOperator(op string, value *dynamicvalue.Value, target *dynamicvalue.Value) evalOutcome {
	switch op {
	case "eq":
		return boolOutcome(looseEquals(value, target))
	case "neq":
		return boolOutcome(!looseEquals(value, target))

	case "gt", "lt", "gte", "lte":
		return numericCompare(op, value, target)

	case "version_gt", "version_gte", "version_lt", "version_lte", "version_eq", "version_neq":
		return versionCompare(op, value, target)

	case "str_contains_any":
		return membershipOutcome(stringContainsAny(value, target))
	case "str_contains_none":
		return boolOutcome(!stringContainsAny(value, target))
	case "str_starts_with_any":
		return membershipOutcome(stringStartsWithAny(value, target))
	case "str_ends_with_any":
		return membershipOutcome(stringEndsWithAny(value, target))
	case "str_matches":
		return strMatches(value, target)

	case "any", "any_case_sensitive":
		return membershipOutcome(membershipContains(value, target, op == "any_case_sensitive"))
	case "none", "none_case_sensitive":
		return boolOutcome(!membershipContains(value, target, op == "none_case_sensitive"))

	case "before":
		return numericCompare("lt", value, target)
	case "after":
		return numericCompare("gt", value, target)
	case "on":
		return sameDayOutcome(value, target)

	default:
		return outcomeUnsupported
	}
}

func boolOutcome(b bool) evalOutcome {
	if b {
		return outcomePass
	}
	return outcomeFail
}

// membershipOutcome treats an absent or non-list target, or a value with no
// string form, as unsupported rather than a silent fail, surfacing malformed
// specs instead of masquerading as a legitimate no-match. An empty list is
// an ordinary no-match.
func membershipOutcome(result, ok bool) evalOutcome {
	if !ok {
		return outcomeUnsupported
	}
	return boolOutcome(result)
}

func looseEquals(value, target *dynamicvalue.Value) bool {
	if value == nil || target == nil {
		return false
	}
	if vf, ok1 := value.AsFloat64(); ok1 {
		if tf, ok2 := target.AsFloat64(); ok2 {
			return vf == tf
		}
	}
	vl, _ := value.Lower()
	tl, _ := target.Lower()
	return vl == tl
}

func numericCompare(op string, value, target *dynamicvalue.Value) evalOutcome {
	vf, ok1 := value.AsFloat64()
	tf, ok2 := target.AsFloat64()
	if !ok1 || !ok2 {
		return outcomeUnsupported
	}
	switch op {
	case "gt":
		return boolOutcome(vf > tf)
	case "lt":
		return boolOutcome(vf < tf)
	case "gte":
		return boolOutcome(vf >= tf)
	case "lte":
		return boolOutcome(vf <= tf)
	default:
		return outcomeUnsupported
	}
}

func sameDayOutcome(value, target *dynamicvalue.Value) evalOutcome {
	vf, ok1 := value.AsFloat64()
	tf, ok2 := target.AsFloat64()
	if !ok1 || !ok2 {
		return outcomeUnsupported
	}
	const dayMs = 24 * 60 * 60 * 1000
	return boolOutcome(int64(vf)/dayMs == int64(tf)/dayMs)
}

func stringContainsAny(value, target *dynamicvalue.Value) (bool, bool) {
	vl, ok := value.Lower()
	if !ok {
		return false, false
	}
	list, ok := target.AsSlice()
	if !ok {
		return false, false
	}
	for _, t := range list {
		if strings.Contains(vl, t) {
			return true, true
		}
	}
	return false, true
}

func stringStartsWithAny(value, target *dynamicvalue.Value) (bool, bool) {
	vl, ok := value.Lower()
	if !ok {
		return false, false
	}
	list, ok := target.AsSlice()
	if !ok {
		return false, false
	}
	for _, t := range list {
		if strings.HasPrefix(vl, t) {
			return true, true
		}
	}
	return false, true
}

func stringEndsWithAny(value, target *dynamicvalue.Value) (bool, bool) {
	vl, ok := value.Lower()
	if !ok {
		return false, false
	}
	list, ok := target.AsSlice()
	if !ok {
		return false, false
	}
	for _, t := range list {
		if strings.HasSuffix(vl, t) {
			return true, true
		}
	}
	return false, true
}

func strMatches(value, target *dynamicvalue.Value) evalOutcome {
	re, ok := target.Regexp()
	if !ok {
		return outcomeUnsupported
	}
	s, ok := value.AsString()
	if !ok {
		return outcomeUnsupported
	}
	return boolOutcome(re.MatchString(s))
}

func membershipContains(value, target *dynamicvalue.Value, caseSensitive bool) (bool, bool) {
	list, ok := target.AsSlice()
	if !ok {
		return false, false
	}
	if caseSensitive {
		s, ok := value.AsString()
		if !ok {
			return false, false
		}
		raw, _ := target.Raw().([]any)
		for _, el := range raw {
			if ts, ok := dynamicvalue.New(el).AsString(); ok && s == ts {
				return true, true
			}
		}
		return false, true
	}
	vl, ok := value.Lower()
	if !ok {
		return false, false
	}
	for _, t := range list {
		if vl == t {
			return true, true
		}
	}
	return false, true
}

// versionCompare implements version_gt/gte/lt/lte/eq/neq. It prefers semver
// comparison (Masterminds/semver/v3's NewVersion, which also accepts
// shorthand such as "1.0") and falls back to the dotted-component
// lexicographic compare spec.md §4.3 documents ("semver-lexicographic
// compare up to last non-zero component") when either side fails to parse
// that way, e.g. a four-component "1.2.3.4".
func versionCompare(op string, value, target *dynamicvalue.Value) evalOutcome {
	vs, ok1 := value.AsString()
	ts, ok2 := target.AsString()
	if !ok1 || !ok2 {
		return outcomeUnsupported
	}

	cmp, ok := compareVersionStrings(vs, ts)
	if !ok {
		return outcomeUnsupported
	}

	switch op {
	case "version_gt":
		return boolOutcome(cmp > 0)
	case "version_gte":
		return boolOutcome(cmp >= 0)
	case "version_lt":
		return boolOutcome(cmp < 0)
	case "version_lte":
		return boolOutcome(cmp <= 0)
	case "version_eq":
		return boolOutcome(cmp == 0)
	case "version_neq":
		return boolOutcome(cmp != 0)
	default:
		return outcomeUnsupported
	}
}

// compareVersionStrings returns -1/0/1 the way strings.Compare does.
func compareVersionStrings(a, b string) (int, bool) {
	av, aErr := semver.NewVersion(stripBuildMetadata(a))
	bv, bErr := semver.NewVersion(stripBuildMetadata(b))
	if aErr == nil && bErr == nil {
		return av.Compare(bv), true
	}
	return compareDottedComponents(a, b)
}

// stripBuildMetadata trims everything from the first '-' or '+' onward, so
// pre-release and build suffixes play no part in the semver comparison.
func stripBuildMetadata(v string) string {
	for i, r := range v {
		if r == '-' || r == '+' {
			return v[:i]
		}
	}
	return v
}

// compareDottedComponents compares dotted numeric version strings
// component-by-component, treating missing trailing components as 0 (so
// "1.0" == "1.0.0"), per spec.md §4.3.
func compareDottedComponents(a, b string) (int, bool) {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var av, bv int64
		var aOK, bOK error
		if i < len(as) {
			av, aOK = parseIntPart(as[i])
		}
		if i < len(bs) {
			bv, bOK = parseIntPart(bs[i])
		}
		if aOK != nil || bOK != nil {
			return 0, false
		}
		if av != bv {
			if av < bv {
				return -1, true
			}
			return 1, true
		}
	}
	return 0, true
}

func parseIntPart(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
