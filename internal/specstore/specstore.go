// Package specstore holds the current parsed ruleset behind a single
// atomic pointer so evaluation reads never suspend and never take a lock.
//
// Grounded on other_examples/d1b76d4a_statsig-io-go-sdk__store.go.go's
// store.setConfigSpecs (monotonic lcut guard, has_updates branch) realized
// as the RCU-like atomic-pointer swap spec.md §4.1 and Design Notes §9 call
// for, instead of that reference's sync.RWMutex-guarded maps.
package specstore

import (
	"sync/atomic"

	"github.com/statsig-io/go-core/internal/spectypes"
)

// snapshot is one immutable, fully-consistent (ruleset, source, lcut) view.
// A new snapshot is built and swapped in wholesale; nothing in an existing
// snapshot is ever mutated.
type snapshot struct {
	ruleset    *spectypes.RuleSet
	source     spectypes.Source
	lcut       int64
	receivedAt int64
	lastError  error
}

// Store is the process-lifetime holder of the ruleset. The zero value is
// not usable; construct with New.
type Store struct {
	ptr atomic.Pointer[snapshot]
}

// New returns a Store seeded with an empty, uninitialized ruleset so
// Snapshot() is always safe to call, even before the first update arrives.
func New() *Store {
	s := &Store{}
	s.ptr.Store(&snapshot{
		ruleset: emptyRuleSet(),
		source:  spectypes.SourceUninitialized,
	})
	return s
}

func emptyRuleSet() *spectypes.RuleSet {
	return &spectypes.RuleSet{
		FeatureGates:      map[string]*spectypes.Spec{},
		DynamicConfigs:    map[string]*spectypes.Spec{},
		LayerConfigs:      map[string]*spectypes.Spec{},
		ConditionMap:      map[string]*spectypes.Condition{},
		ExperimentToLayer: map[string]string{},
	}
}

// Snapshot is a stable, immutable read-handle to the ruleset, source, and
// lcut as of a single atomic load. Returned by Store.Snapshot.
type Snapshot struct {
	Ruleset *spectypes.RuleSet
	Source  spectypes.Source
	LCUT    int64
}

// Snapshot returns the current (ruleset, source, lcut) triple with a single
// atomic load. O(1), lock-free, never suspends — the hot evaluation path
// goes through here exclusively.
func (s *Store) Snapshot() Snapshot {
	sn := s.ptr.Load()
	return Snapshot{Ruleset: sn.ruleset, Source: sn.source, LCUT: sn.lcut}
}

// CurrentSpecsInfo reports the metadata adapters need to build conditional
// requests (spec.md §4.1).
func (s *Store) CurrentSpecsInfo() spectypes.SpecsInfo {
	sn := s.ptr.Load()
	if sn.source == spectypes.SourceUninitialized {
		return spectypes.SpecsInfo{Source: spectypes.SourceUninitialized}
	}
	lcut := sn.lcut
	return spectypes.SpecsInfo{LCUT: &lcut, Source: sn.source}
}

// LastError returns the error recorded by the most recent failed parse, if
// any. The prior ruleset is always retained on a parse failure.
func (s *Store) LastError() error {
	return s.ptr.Load().lastError
}

// monotonicSources are the sources whose lcut must never regress: an update
// from one of these with a strictly older lcut than the store's current
// value is dropped (spec.md §3 invariant).
func monotonicSources(src spectypes.Source) bool {
	switch src {
	case spectypes.SourceNetwork, spectypes.SourceBootstrap, spectypes.SourceDataStore:
		return true
	default:
		return false
	}
}

// ApplyUpdate parses update.Data and swaps it in, subject to the
// monotonicity and has_updates rules in spec.md §4.1:
//
//   - parse failure: prior ruleset retained, error recorded.
//   - has_updates=false: source becomes NetworkNotModified, receivedAt
//     refreshed, payload/ruleset untouched.
//   - has_updates=true: for monotonic sources, an older lcut is dropped
//     silently (not an error); otherwise the ruleset is swapped.
func (s *Store) ApplyUpdate(update spectypes.SpecsUpdate) error {
	ruleset, hasUpdates, err := spectypes.Parse(update.Data)
	if err != nil {
		prior := s.ptr.Load()
		next := *prior
		next.lastError = err
		s.ptr.Store(&next)
		return err
	}

	if !hasUpdates {
		prior := s.ptr.Load()
		next := *prior
		next.source = spectypes.SourceNetworkNotModified
		next.receivedAt = update.ReceivedAt
		next.lastError = nil
		s.ptr.Store(&next)
		return nil
	}

	prior := s.ptr.Load()
	if monotonicSources(update.Source) && prior.source != spectypes.SourceUninitialized && ruleset.Time < prior.lcut {
		return nil
	}

	s.ptr.Store(&snapshot{
		ruleset:    ruleset,
		source:     update.Source,
		lcut:       ruleset.Time,
		receivedAt: update.ReceivedAt,
	})
	return nil
}
