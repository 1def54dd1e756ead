package main

import "github.com/pthm-cable/grapple/config"

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the coordinator and search parameters under tuning.
func NewParamVector(base *config.Config) *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "release_priority_weight", Path: "body.release_priority_weight", Min: 0, Max: 1, Default: base.Body.ReleasePriorityWeight},
			{Name: "min_search_angle", Path: "body.min_search_angle", Min: 0.05, Max: 1.2, Default: base.Body.MinSearchAngle},
			{Name: "forward_cone", Path: "body.forward_cone", Min: 0.2, Max: 1.6, Default: base.Body.ForwardCone},
			{Name: "reach_speed", Path: "rope.reach_speed", Min: 2, Max: 30, Default: base.Rope.ReachSpeed},
			{Name: "search_radius", Path: "search.radius", Min: 1, Max: 8, Default: base.Search.Radius},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		out[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return out
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		out[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return out
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		out[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return out
}

// ApplyToConfig writes clamped values into cfg. Order matches Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)
	cfg.Body.ReleasePriorityWeight = c[0]
	cfg.Body.MinSearchAngle = c[1]
	cfg.Body.ForwardCone = c[2]
	cfg.Rope.ReachSpeed = c[3]
	cfg.Search.Radius = c[4]
}
