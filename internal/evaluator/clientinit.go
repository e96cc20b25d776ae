package evaluator

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/statsig-io/go-core/internal/spectypes"
)

// GateInitResponse is one feature gate entry in a ClientInitializeResponse.
type GateInitResponse struct {
	Name               string               `json:"name"`
	RuleID             string               `json:"rule_id"`
	SecondaryExposures []spectypes.Exposure `json:"secondary_exposures"`
	Value              bool                 `json:"value"`
}

// ConfigInitResponse is one dynamic config or experiment entry.
type ConfigInitResponse struct {
	Name               string               `json:"name"`
	RuleID             string               `json:"rule_id"`
	SecondaryExposures []spectypes.Exposure `json:"secondary_exposures"`
	Value              map[string]any       `json:"value"`
	Group              string               `json:"group"`
	IsDeviceBased      bool                 `json:"is_device_based"`
	IsExperimentActive *bool                `json:"is_experiment_active,omitempty"`
	IsUserInExperiment *bool                `json:"is_user_in_experiment,omitempty"`
	IsInLayer          *bool                `json:"is_in_layer,omitempty"`
	ExplicitParameters *[]string            `json:"explicit_parameters,omitempty"`
}

// LayerInitResponse is one layer config entry.
type LayerInitResponse struct {
	Name                          string               `json:"name"`
	RuleID                        string               `json:"rule_id"`
	SecondaryExposures            []spectypes.Exposure `json:"secondary_exposures"`
	Value                         map[string]any       `json:"value"`
	Group                         string               `json:"group"`
	IsDeviceBased                 bool                 `json:"is_device_based"`
	IsExperimentActive            *bool                `json:"is_experiment_active,omitempty"`
	IsUserInExperiment            *bool                `json:"is_user_in_experiment,omitempty"`
	ExplicitParameters            *[]string            `json:"explicit_parameters,omitempty"`
	AllocatedExperimentName       string               `json:"allocated_experiment_name,omitempty"`
	UndelegatedSecondaryExposures []spectypes.Exposure `json:"undelegated_secondary_exposures"`
}

// ClientInitializeResponse is the bundle a server SDK hands to a trusted
// client-side bootstrap: every visible spec pre-evaluated for one user.
type ClientInitializeResponse struct {
	FeatureGates   map[string]GateInitResponse   `json:"feature_gates"`
	DynamicConfigs map[string]ConfigInitResponse `json:"dynamic_configs"`
	LayerConfigs   map[string]LayerInitResponse  `json:"layer_configs"`
	SDKParams      map[string]string             `json:"sdk_params"`
	HasUpdates     bool                          `json:"has_updates"`
	Generator      string                        `json:"generator"`
	EvaluatedKeys  map[string]any                `json:"evaluated_keys"`
	Time           int64                         `json:"time"`
}

// hashName obscures a spec name the same way the reference client library
// does: callers get a stable opaque key, never the plaintext gate/config
// name, in the client-facing bundle.
func hashName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// cleanExposures drops duplicate secondary exposures (same gate/value/rule),
// preserving first-seen order.
func cleanExposures(exposures []spectypes.Exposure) []spectypes.Exposure {
	seen := make(map[string]bool, len(exposures))
	out := make([]spectypes.Exposure, 0, len(exposures))
	for _, exp := range exposures {
		key := fmt.Sprintf("%s|%s|%s", exp.Gate, exp.GateValue, exp.RuleID)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, exp)
	}
	return out
}

// mergeMaps overlays b's keys onto a in place.
func mergeMaps(a, b map[string]any) {
	for k, v := range b {
		a[k] = v
	}
}

// GetClientInitializeResponse evaluates every visible gate, dynamic config,
// and layer for user and bundles the results the way a client SDK's
// bootstrap endpoint would, per spec.md §6's get_client_init_response.
//
// Grounded on other_examples/c5f0c6fe_statsig-io-go-sdk__client_initialize_response.go.go's
// getClientInitializeResponse: name hashing, exposure dedup, and the
// shared-params merge that folds an allocated experiment's value over its
// layer's default_value.
func (e *Evaluator) GetClientInitializeResponse(user *spectypes.User, nowMs int64) *ClientInitializeResponse {
	snap := e.store.Snapshot()
	base := &evalCtx{snap: snap, user: user, nowMs: nowMs}

	gates := make(map[string]GateInitResponse, len(snap.Ruleset.FeatureGates))
	for name, spec := range snap.Ruleset.FeatureGates {
		entity := strings.ToLower(spec.Entity)
		if entity == "segment" || entity == "holdout" {
			continue
		}
		result := e.evalSpec(base.nested(), specKindGate, name)
		hashed := hashName(name)
		gates[hashed] = GateInitResponse{
			Name:               hashed,
			RuleID:             result.RuleID,
			SecondaryExposures: cleanExposures(result.SecondaryExposures),
			Value:              result.BoolValue,
		}
	}

	configs := make(map[string]ConfigInitResponse, len(snap.Ruleset.DynamicConfigs))
	for name, spec := range snap.Ruleset.DynamicConfigs {
		result := e.evalSpec(base.nested(), specKindConfig, name)
		hashed := hashName(name)
		resp := ConfigInitResponse{
			Name:               hashed,
			RuleID:             result.RuleID,
			SecondaryExposures: cleanExposures(result.SecondaryExposures),
			Value:              result.JSONValue,
			Group:              result.RuleID,
			IsDeviceBased:      strings.EqualFold(spec.IDType, "stableid"),
		}
		if strings.EqualFold(spec.Entity, "experiment") {
			isUserInExperiment := result.IsExperimentGroup
			isExperimentActive := spec.IsActive
			resp.IsUserInExperiment = &isUserInExperiment
			resp.IsExperimentActive = &isExperimentActive
			if spec.HasSharedParams {
				inLayer := true
				resp.IsInLayer = &inLayer
				params := append([]string{}, spec.ExplicitParameters...)
				resp.ExplicitParameters = &params
				resp.Value = mergeOverLayerDefault(snap.Ruleset, name, resp.Value)
			}
		}
		configs[hashed] = resp
	}

	layers := make(map[string]LayerInitResponse, len(snap.Ruleset.LayerConfigs))
	for name, spec := range snap.Ruleset.LayerConfigs {
		result := e.evalSpec(base.nested(), specKindLayer, name)
		hashed := hashName(name)
		params := make([]string, 0, len(spec.ExplicitParameters))
		params = append(params, spec.ExplicitParameters...)
		resp := LayerInitResponse{
			Name:                          hashed,
			RuleID:                        result.RuleID,
			SecondaryExposures:            cleanExposures(result.SecondaryExposures),
			Value:                         result.JSONValue,
			Group:                         result.RuleID,
			IsDeviceBased:                 strings.EqualFold(spec.IDType, "stableid"),
			UndelegatedSecondaryExposures: cleanExposures(result.UndelegatedSecondaryExposures),
			ExplicitParameters:            &params,
		}
		if result.ConfigDelegate != "" {
			if delegateSpec, ok := snap.Ruleset.DynamicConfigs[result.ConfigDelegate]; ok {
				delegateResult := e.evalSpec(base.nested(), specKindConfig, result.ConfigDelegate)
				resp.AllocatedExperimentName = hashName(result.ConfigDelegate)
				isUserIn := delegateResult.IsExperimentGroup
				resp.IsUserInExperiment = &isUserIn
				isActive := delegateSpec.IsActive
				resp.IsExperimentActive = &isActive
				if len(delegateSpec.ExplicitParameters) > 0 {
					p := append([]string{}, delegateSpec.ExplicitParameters...)
					resp.ExplicitParameters = &p
				}
			}
		}
		layers[hashed] = resp
	}

	evaluatedKeys := map[string]any{"userID": user.UserID}
	if len(user.CustomIDs) > 0 {
		evaluatedKeys["customIDs"] = user.CustomIDs
	}

	return &ClientInitializeResponse{
		FeatureGates:   gates,
		DynamicConfigs: configs,
		LayerConfigs:   layers,
		SDKParams:      map[string]string{},
		HasUpdates:     true,
		Generator:      "statsig-go-core",
		EvaluatedKeys:  evaluatedKeys,
		Time:           snap.LCUT,
	}
}

// mergeOverLayerDefault folds an experiment's evaluated value over the
// default_value of the layer it shares parameters with, so a client reading
// only the experiment entry still sees every layer parameter populated.
func mergeOverLayerDefault(rs *spectypes.RuleSet, experimentName string, value map[string]any) map[string]any {
	layerName, ok := rs.ExperimentToLayer[experimentName]
	if !ok {
		return value
	}
	layer, ok := rs.LayerConfigs[layerName]
	if !ok {
		return value
	}
	merged := map[string]any{}
	if layer.DefaultValue != nil {
		if m, ok := layer.DefaultValue.Raw().(map[string]any); ok {
			for k, v := range m {
				merged[k] = v
			}
		}
	}
	mergeMaps(merged, value)
	return merged
}
