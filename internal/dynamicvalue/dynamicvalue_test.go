package dynamicvalue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueAsString(t *testing.T) {
	s, ok := New("hello").AsString()
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	s, ok = New(float64(42)).AsString()
	assert.True(t, ok)
	assert.Equal(t, "42", s)

	_, ok = New(nil).AsString()
	assert.False(t, ok)
}

func TestValueLowerIsPrecomputedAndCorrect(t *testing.T) {
	v := New("Hello World")
	lower, ok := v.Lower()
	require.True(t, ok)
	assert.Equal(t, "hello world", lower)

	// repeated calls only ever read the precomputed fields, never mutate v.
	lower2, ok2 := v.Lower()
	assert.True(t, ok2)
	assert.Equal(t, lower, lower2)
}

func TestValueLowerEmptyStringStillReportsOk(t *testing.T) {
	// A coercible-but-empty string must still report ok=true; the bug this
	// guards against conflated "lower form is the empty string" with
	// "v has no string form at all".
	v := New("")
	lower, ok := v.Lower()
	assert.True(t, ok)
	assert.Equal(t, "", lower)

	_, ok = New(nil).Lower()
	assert.False(t, ok)
}

func TestValueAsFloat64(t *testing.T) {
	f, ok := New(float64(3.5)).AsFloat64()
	assert.True(t, ok)
	assert.Equal(t, 3.5, f)

	f, ok = New("3.5").AsFloat64()
	assert.True(t, ok)
	assert.Equal(t, 3.5, f)

	_, ok = New("not-a-number").AsFloat64()
	assert.False(t, ok)
}

func TestValueAsSliceLowerCasesElements(t *testing.T) {
	v := New([]any{"Foo", "BAR"})
	out, ok := v.AsSlice()
	require.True(t, ok)
	assert.Equal(t, []string{"foo", "bar"}, out)
}

func TestValueCompileRegexForStrMatches(t *testing.T) {
	v := New("^abc.*")
	v.CompileRegex()
	re, ok := v.Regexp()
	require.True(t, ok)
	assert.True(t, re.MatchString("abcdef"))
	assert.False(t, re.MatchString("zzz"))
}

func TestValueCompileRegexNonStringFails(t *testing.T) {
	v := New(map[string]any{"a": 1})
	v.CompileRegex()
	_, ok := v.Regexp()
	assert.False(t, ok)
}

func TestValueJSONRoundTrip(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":["x","y"]}`), &v))

	out, err := json.Marshal(&v)
	require.NoError(t, err)

	var roundTripped map[string]any
	require.NoError(t, json.Unmarshal(out, &roundTripped))
	assert.Equal(t, float64(1), roundTripped["a"])
}

func TestStringCaseInsensitiveLookup(t *testing.T) {
	a := NewString("Country")
	b := NewString("country")
	assert.True(t, a.EqualFold(b))
	assert.Equal(t, "Country", a.Value())
	assert.Equal(t, "country", a.Lower())
}

func TestStringUnmarshalJSON(t *testing.T) {
	var s String
	require.NoError(t, json.Unmarshal([]byte(`"MixedCase"`), &s))
	assert.Equal(t, "MixedCase", s.Value())
	assert.Equal(t, "mixedcase", s.Lower())
}

func TestStringIsEmpty(t *testing.T) {
	assert.True(t, NewString("").IsEmpty())
	assert.False(t, NewString("x").IsEmpty())
}
