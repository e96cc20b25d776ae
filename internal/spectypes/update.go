package spectypes

// Source identifies where a SpecsUpdate (or the ruleset currently held by a
// SpecStore) came from, per spec.md §3.
type Source string

const (
	SourceNoValues           Source = "NoValues"
	SourceUninitialized      Source = "Uninitialized"
	SourceLoading            Source = "Loading"
	SourceBootstrap          Source = "Bootstrap"
	SourceDataStore          Source = "DataStore"
	SourceNetwork            Source = "Network"
	SourceNetworkNotModified Source = "NetworkNotModified"
	SourceError              Source = "Error"
)

// SpecsUpdate is the message a SpecsAdapter pushes to its listener: the raw
// payload plus provenance. SpecStore.ApplyUpdate is the sole consumer.
type SpecsUpdate struct {
	Data       []byte
	Source     Source
	ReceivedAt int64 // ms epoch
}

// SpecsInfo is what SpecStore exposes back to adapters so they can build
// conditional ("sinceTime") requests, per spec.md §4.1.
type SpecsInfo struct {
	LCUT   *int64
	Source Source
}

// Reason encodes why an evaluation returned the value it did, surfaced on
// every EvaluationResult since evaluation APIs never return an error
// (spec.md §7).
type Reason string

const (
	ReasonUninitialized      Reason = "Uninitialized"
	ReasonBootstrap          Reason = "Bootstrap"
	ReasonNetwork            Reason = "Network"
	ReasonNetworkNotModified Reason = "NetworkNotModified"
	ReasonDataStore          Reason = "DataStore"
	ReasonUnrecognized       Reason = "Unrecognized"
	ReasonDisabled           Reason = "Disabled"
	ReasonUnsupported        Reason = "Unsupported"
)

// Exposure is one secondary exposure entry: a record that a nested
// pass_gate/fail_gate condition itself evaluated a gate, carried alongside
// the top-level EvaluationResult for later logging.
type Exposure struct {
	Gate      string `json:"gate"`
	GateValue string `json:"gateValue"`
	RuleID    string `json:"ruleID"`
}

// EvaluationResult is what every evaluator entry point computes internally
// before the facade renders it into a public FeatureGate/DynamicConfig/
// Experiment/Layer type, per spec.md §3.
type EvaluationResult struct {
	BoolValue                     bool
	JSONValue                     map[string]any
	RuleID                        string
	SecondaryExposures            []Exposure
	IDType                        string
	GroupName                     string
	ConfigDelegate                string
	UndelegatedSecondaryExposures []Exposure
	IsExperimentGroup             bool
	ExplicitParameters            []string
	Reason                        Reason
	LCUT                          int64
}

// DefaultResult builds a bare result carrying only a rule id and reason.
// The evaluator builds its own early-return results inline and does not
// call it.
func DefaultResult(ruleID string, reason Reason) EvaluationResult {
	return EvaluationResult{
		RuleID: ruleID,
		Reason: reason,
	}
}
