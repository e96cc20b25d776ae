package hashing

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDjb2Stable(t *testing.T) {
	require.Equal(t, Djb2("hello"), Djb2("hello"))
	assert.NotEqual(t, Djb2("hello"), Djb2("world"))
}

func TestSha256Hex(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sha256(""))
}

func TestEvaluationHashMemoConsistent(t *testing.T) {
	a := EvaluationHash("some-unit-id")
	b := EvaluationHash("some-unit-id")
	assert.Equal(t, a, b)
}

func TestEvaluationHashDistinctInputs(t *testing.T) {
	assert.NotEqual(t, EvaluationHash("a"), EvaluationHash("b"))
}

func TestEvaluationHashBucketDistribution(t *testing.T) {
	pass := 0
	const n = 10000
	for i := 0; i < n; i++ {
		id := "user-" + strconv.Itoa(i)
		h := EvaluationHash("salt.rule-id." + id)
		if (h % 10000) < 5000 {
			pass++
		}
	}
	// 3-sigma band around the 5000/10000 expected pass rate.
	assert.InDelta(t, 5000, pass, 300)
}
