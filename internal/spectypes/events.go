package spectypes

// StatsigEvent is one event logged by the facade: either an automatic
// exposure (gate check, config/experiment/layer evaluation) or a
// caller-supplied custom event via LogEvent, per spec.md §6's events
// ingestion contract.
type StatsigEvent struct {
	EventName          string         `json:"eventName"`
	User               *User          `json:"user"`
	Value              any            `json:"value,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	SecondaryExposures []Exposure     `json:"secondaryExposures,omitempty"`
	Time               int64          `json:"time"`
}

// Sanitize returns a copy of e with the user's private attributes
// stripped, matching spec.md §6's "user (sanitized: private_attributes
// stripped)" requirement for the events ingestion payload.
func (e StatsigEvent) Sanitize() StatsigEvent {
	e.User = e.User.SanitizedForNetwork()
	return e
}

// DedupKey builds the (gate_name, rule_id, value, user_hash) tuple
// spec.md §4.5 uses to identify duplicate exposures within the TTL window.
// Only exposure-shaped events (those carrying a rule id in Metadata) are
// deduplicated; custom events always pass through.
func (e StatsigEvent) DedupKey(userHash string) (string, bool) {
	ruleID, ok := e.Metadata["ruleID"].(string)
	if !ok {
		return "", false
	}
	gateName, _ := e.Metadata["gate"].(string)
	valueStr, _ := e.Metadata["value"].(string)
	return e.EventName + "|" + gateName + "|" + ruleID + "|" + valueStr + "|" + userHash, true
}
