// Package hashing provides the three named hash functions the evaluator and
// specs pipeline depend on: djb2 (bucketing salts predate sha256 in the wire
// format and some id-list file IDs still use it), sha256 (hex digests for
// dedup keys), and evaluation_hash (the truncated sha256 used for bucketing).
//
// Ported from original_source/statsig-lib/src/hashing/hashing.rs and its djb2
// sibling. evaluation_hash is memoized the way MemoSha256 memoizes sha256,
// backed by a bounded LRU instead of an unbounded map (see DESIGN.md).
package hashing

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// memoCapacity bounds the evaluation_hash memo cache. The Rust source left
// this cap undocumented; spec.md's Open Question resolves it to a small
// bounded LRU so hot-path hashing never grows memory unboundedly.
const memoCapacity = 2000

var evalHashCache = mustNewCache()

func mustNewCache() *lru.Cache[string, uint64] {
	c, err := lru.New[string, uint64](memoCapacity)
	if err != nil {
		// Only returns an error for a non-positive size, which memoCapacity
		// never is.
		panic(err)
	}
	return c
}

// Djb2 computes the classic 5381/33 rolling hash over the UTF-8 bytes of s,
// returned as a decimal string (the wire format expects a string, not a
// number, since some callers treat it as an opaque key).
func Djb2(s string) string {
	var hash uint32 = 5381
	for i := 0; i < len(s); i++ {
		hash = ((hash << 5) + hash) + uint32(s[i])
	}
	return strconv.FormatUint(uint64(hash), 10)
}

// Sha256 returns the lowercase hex sha256 digest of s.
func Sha256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// EvaluationHash returns the first 8 bytes of sha256(s), interpreted as a
// big-endian unsigned 64-bit integer. It is memoized by input string in a
// bounded LRU shared across all evaluations in the process.
func EvaluationHash(s string) uint64 {
	if v, ok := evalHashCache.Get(s); ok {
		return v
	}

	sum := sha256.Sum256([]byte(s))
	v := binary.BigEndian.Uint64(sum[:8])

	evalHashCache.Add(s, v)
	return v
}
