package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/statsig-io/go-core/internal/dynamicvalue"
)

func TestApplyOperatorEquality(t *testing.T) {
	assert.Equal(t, outcomePass, applyOperator("eq", dynamicvalue.New("A"), dynamicvalue.New("a")))
	assert.Equal(t, outcomePass, applyOperator("eq", dynamicvalue.New(float64(5)), dynamicvalue.New("5")))
	assert.Equal(t, outcomePass, applyOperator("neq", dynamicvalue.New("a"), dynamicvalue.New("b")))
	assert.Equal(t, outcomeFail, applyOperator("eq", dynamicvalue.New("a"), dynamicvalue.New("b")))
}

func TestApplyOperatorNumeric(t *testing.T) {
	assert.Equal(t, outcomePass, applyOperator("gt", dynamicvalue.New(float64(10)), dynamicvalue.New(float64(5))))
	assert.Equal(t, outcomePass, applyOperator("lte", dynamicvalue.New(float64(5)), dynamicvalue.New(float64(5))))
	assert.Equal(t, outcomeFail, applyOperator("gt", dynamicvalue.New(float64(1)), dynamicvalue.New(float64(5))))
	assert.Equal(t, outcomeUnsupported, applyOperator("gt", dynamicvalue.New("not-a-number"), dynamicvalue.New(float64(5))))
}

func TestApplyOperatorStringMembership(t *testing.T) {
	list := dynamicvalue.New([]any{"US", "CA"})
	assert.Equal(t, outcomePass, applyOperator("any", dynamicvalue.New("us"), list))
	assert.Equal(t, outcomeFail, applyOperator("none", dynamicvalue.New("us"), list))
	assert.Equal(t, outcomeFail, applyOperator("any", dynamicvalue.New("de"), list))
}

func TestApplyOperatorStrMatches(t *testing.T) {
	target := dynamicvalue.New("^a.*z$")
	target.CompileRegex()
	assert.Equal(t, outcomePass, applyOperator("str_matches", dynamicvalue.New("az"), target))
	assert.Equal(t, outcomeFail, applyOperator("str_matches", dynamicvalue.New("bz"), target))
}

func TestApplyOperatorVersionSemver(t *testing.T) {
	assert.Equal(t, outcomePass, applyOperator("version_gt", dynamicvalue.New("2.0.0"), dynamicvalue.New("1.9.9")))
	assert.Equal(t, outcomePass, applyOperator("version_eq", dynamicvalue.New("1.0.0"), dynamicvalue.New("1.0.0")))
	assert.Equal(t, outcomeFail, applyOperator("version_lt", dynamicvalue.New("2.0.0"), dynamicvalue.New("1.0.0")))
}

func TestApplyOperatorVersionLexicographicFallback(t *testing.T) {
	// Four-component versions are not semver, so semver.NewVersion rejects
	// them and this exercises compareDottedComponents instead.
	assert.Equal(t, outcomePass, applyOperator("version_eq", dynamicvalue.New("1.0.0.0"), dynamicvalue.New("1.0.0")))
	assert.Equal(t, outcomePass, applyOperator("version_gt", dynamicvalue.New("1.2.0.0"), dynamicvalue.New("1.1.9.9")))
}

func TestApplyOperatorUnknown(t *testing.T) {
	assert.Equal(t, outcomeUnsupported, applyOperator("frobnicate", dynamicvalue.New("a"), dynamicvalue.New("a")))
}
