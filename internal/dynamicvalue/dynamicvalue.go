// Package dynamicvalue coerces untyped JSON into the typed views the
// evaluator's operators need, and carries the pre-computed lower-case form
// every string comparison wants on the hot path.
//
// Grounded on original_source/statsig-lib/src/spec_types.rs's DynamicValue
// and DynamicString wrappers, and on the custom Condition deserializer that
// eagerly compiles a str_matches target_value's regex once at parse time
// instead of on every evaluation.
package dynamicvalue

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Value wraps an arbitrary JSON-decoded value (string, float64, bool,
// []any, map[string]any, or nil) along with its pre-computed lower-case
// string form. A str_matches target_value additionally carries a
// pre-compiled regex, compiled once when the owning Condition is parsed
// rather than on every evaluation. Both derived views are computed once at
// construction and never mutated afterward, so a *Value — including one
// shared across an immutable RuleSet snapshot, such as a Condition's
// TargetValue — is safe to read concurrently from every goroutine
// evaluating against that snapshot.
type Value struct {
	raw     any
	lower   string
	lowerOk bool
	re      *regexp.Regexp
	reErr   error
}

// New wraps raw in a Value, pre-computing its lower-case string form. raw
// is typically the result of decoding a JSON scalar, array, or object.
func New(raw any) *Value {
	v := &Value{raw: raw}
	v.lower, v.lowerOk = computeLower(raw)
	return v
}

// computeLower derives the lower-case string form of raw the same way
// AsString coerces it, without requiring a constructed *Value to call
// through.
func computeLower(raw any) (string, bool) {
	if raw == nil {
		return "", false
	}
	switch t := raw.(type) {
	case string:
		return strings.ToLower(t), true
	case float64:
		return strings.ToLower(strconv.FormatFloat(t, 'f', -1, 64)), true
	case bool:
		return strings.ToLower(strconv.FormatBool(t)), true
	default:
		return "", false
	}
}

// Raw returns the underlying decoded value unchanged.
func (v *Value) Raw() any {
	if v == nil {
		return nil
	}
	return v.raw
}

// CompileRegex compiles v's string form as a regular expression and caches
// the result. Called once, at parse time, for any target_value paired with
// the str_matches operator — mirrors Condition::deserialize's eager
// tv.compile_regex() call in the Rust source.
func (v *Value) CompileRegex() {
	if v == nil || v.re != nil || v.reErr != nil {
		return
	}
	s, ok := v.AsString()
	if !ok {
		v.reErr = errNotAString
		return
	}
	v.re, v.reErr = regexp.Compile(s)
}

var errNotAString = regexErr("target_value is not a string")

type regexErr string

func (e regexErr) Error() string { return string(e) }

// Regexp returns the pre-compiled regex and whether compilation succeeded.
// Returns false if CompileRegex was never called or compilation failed.
func (v *Value) Regexp() (*regexp.Regexp, bool) {
	if v == nil || v.re == nil {
		return nil, false
	}
	return v.re, true
}

// AsString returns v's string form. Numbers and bools are formatted, not
// rejected, since condition fields are frequently typed loosely on the wire.
func (v *Value) AsString() (string, bool) {
	if v == nil || v.raw == nil {
		return "", false
	}
	switch t := v.raw.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// Lower returns the pre-computed lower-cased string form. It never mutates
// v: the lower-case view is derived once, at construction (New or
// UnmarshalJSON), so repeated string-operator evaluations — including
// concurrent ones against a Condition's shared TargetValue — only ever read
// it.
func (v *Value) Lower() (string, bool) {
	if v == nil {
		return "", false
	}
	return v.lower, v.lowerOk
}

// AsFloat64 returns v's numeric form, parsing strings as a fallback for
// loosely-typed wire payloads.
func (v *Value) AsFloat64() (float64, bool) {
	if v == nil || v.raw == nil {
		return 0, false
	}
	switch t := v.raw.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// AsBool returns v's boolean form.
func (v *Value) AsBool() (bool, bool) {
	if v == nil || v.raw == nil {
		return false, false
	}
	switch t := v.raw.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	default:
		return false, false
	}
}

// AsSlice returns v's array form, coercing each element to its lower-cased
// string form for use by the any/none membership operators.
func (v *Value) AsSlice() ([]string, bool) {
	if v == nil || v.raw == nil {
		return nil, false
	}
	arr, ok := v.raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		ev := New(el)
		s, _ := ev.Lower()
		out = append(out, s)
	}
	return out, true
}

// UnmarshalJSON decodes any JSON scalar, array, or object into Value,
// pre-computing its lower-case form and leaving regex compilation to an
// explicit CompileRegex call.
func (v *Value) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &v.raw); err != nil {
		return err
	}
	v.lower, v.lowerOk = computeLower(v.raw)
	return nil
}

// MarshalJSON renders Value's underlying raw form.
func (v *Value) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

// String is a lower-case-aware lookup wrapper used for id_type and field
// names: both the original casing and a pre-computed lower-case form are
// carried so repeated case-insensitive lookups never re-fold the string.
//
// Grounded on DynamicString in spec_types.rs.
type String struct {
	value string
	lower string
}

// NewString builds a String, pre-computing its lower-case form.
func NewString(s string) String {
	return String{value: s, lower: strings.ToLower(s)}
}

// Value returns the original-case string.
func (s String) Value() string { return s.value }

// Lower returns the pre-computed lower-case string.
func (s String) Lower() string { return s.lower }

// IsEmpty reports whether the wrapped string is the empty string.
func (s String) IsEmpty() bool { return s.value == "" }

// EqualFold reports whether s and other are equal ignoring case, using the
// pre-computed lower-case forms rather than re-folding either argument.
func (s String) EqualFold(other String) bool { return s.lower == other.lower }

// MarshalJSON renders String as its original-case string form.
func (s String) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.value)), nil
}

// UnmarshalJSON decodes a JSON string into String, pre-computing its
// lower-case form.
func (s *String) UnmarshalJSON(data []byte) error {
	unquoted, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	*s = NewString(unquoted)
	return nil
}
