package spectypes

import "strings"

// User is the subject of an evaluation. Either UserID or a non-empty
// CustomIDs map is required (spec.md §3); PrivateAttributes is carried for
// user_field lookups but is stripped before any network payload (events
// ingestion, client-init response) per spec.md §6.
type User struct {
	UserID             string                         `json:"userID,omitempty"`
	CustomIDs          map[string]string              `json:"customIDs,omitempty"`
	Email              string                         `json:"email,omitempty"`
	IP                 string                         `json:"ip,omitempty"`
	UserAgent          string                         `json:"userAgent,omitempty"`
	Country             string                        `json:"country,omitempty"`
	Locale             string                         `json:"locale,omitempty"`
	AppVersion         string                         `json:"appVersion,omitempty"`
	Custom             map[string]any                 `json:"custom,omitempty"`
	PrivateAttributes  map[string]any                 `json:"privateAttributes,omitempty"`
	StatsigEnvironment map[string]string              `json:"statsigEnvironment,omitempty"`
}

// UnitID resolves the bucketing identifier for idType: user_id for
// "userid" (case-insensitive), otherwise a lookup into CustomIDs keyed by
// idType, per spec.md §4.3's unit_id condition semantics.
func (u *User) UnitID(idType string) (string, bool) {
	if u == nil {
		return "", false
	}
	if idType == "" || strings.EqualFold(idType, "userID") {
		if u.UserID != "" {
			return u.UserID, true
		}
	}
	if u.CustomIDs != nil {
		for k, v := range u.CustomIDs {
			if strings.EqualFold(k, idType) {
				return v, true
			}
		}
	}
	if strings.EqualFold(idType, "userID") {
		return "", false
	}
	return "", false
}

// Field performs a case-insensitive lookup across the top-level fields,
// Custom, then PrivateAttributes, in that order, per spec.md §4.3's
// user_field condition semantics.
func (u *User) Field(name string) (any, bool) {
	if u == nil {
		return nil, false
	}
	if v, ok := u.topLevelField(name); ok {
		return v, true
	}
	if v, ok := lookupFold(u.Custom, name); ok {
		return v, true
	}
	if v, ok := lookupFold(u.PrivateAttributes, name); ok {
		return v, true
	}
	return nil, false
}

func (u *User) topLevelField(name string) (any, bool) {
	switch strings.ToLower(name) {
	case "userid":
		return u.UserID, u.UserID != ""
	case "email":
		return u.Email, u.Email != ""
	case "ip":
		return u.IP, u.IP != ""
	case "useragent":
		return u.UserAgent, u.UserAgent != ""
	case "country":
		return u.Country, u.Country != ""
	case "locale":
		return u.Locale, u.Locale != ""
	case "appversion":
		return u.AppVersion, u.AppVersion != ""
	default:
		return nil, false
	}
}

func lookupFold(m map[string]any, name string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Validate enforces the "user_id or non-empty custom_ids" invariant from
// spec.md §3.
func (u *User) Validate() bool {
	if u == nil {
		return false
	}
	return u.UserID != "" || len(u.CustomIDs) > 0
}

// SanitizedForNetwork returns a copy of u with PrivateAttributes stripped,
// for use in exposure events and client-init responses (spec.md §3, §6).
func (u *User) SanitizedForNetwork() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PrivateAttributes = nil
	return &clone
}
