package statsig

import "github.com/statsig-io/go-core/internal/spectypes"

// User is the subject of an evaluation: a re-export of the internal wire
// type so callers never need to import internal/spectypes directly.
type User = spectypes.User

// StatsigEvent is a logged exposure or custom event, per spec.md §6.
type StatsigEvent = spectypes.StatsigEvent

// EvaluationDetails carries the degraded-state reason every evaluation API
// surfaces instead of an error, per spec.md §7.
type EvaluationDetails struct {
	Reason string
	LCUT   int64
}

// FeatureGate is the public rendering of a gate evaluation.
type FeatureGate struct {
	Name    string
	Value   bool
	RuleID  string
	IDType  string
	Details EvaluationDetails
}

// DynamicConfig is the public rendering of a dynamic config evaluation.
type DynamicConfig struct {
	Name    string
	Value   map[string]any
	RuleID  string
	GroupName string
	IDType  string
	Details EvaluationDetails
}

// Experiment is the public rendering of an experiment evaluation (a
// dynamic config whose Spec.Entity is "experiment").
type Experiment struct {
	Name               string
	Value              map[string]any
	RuleID             string
	GroupName          string
	IDType             string
	IsExperimentGroup  bool
	Details            EvaluationDetails
}

// Layer is the public rendering of a layer evaluation, including the
// delegated experiment's name when one allocated this user into it.
type Layer struct {
	Name                string
	Value               map[string]any
	RuleID              string
	GroupName           string
	IDType              string
	AllocatedExperiment string
	Details             EvaluationDetails
}

func toDetails(r spectypes.EvaluationResult) EvaluationDetails {
	return EvaluationDetails{Reason: string(r.Reason), LCUT: r.LCUT}
}
