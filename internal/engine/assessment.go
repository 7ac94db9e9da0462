package engine

import (
	"fmt"
	"math"

	"YieldScope/internal/domain/models"
)

// RecoveryPolicy selects how confidence grows back while a market is stable.
type RecoveryPolicy string

const (
	// RecoverySaturating adds (1-c)·Δt/τ, approaching 1 asymptotically.
	RecoverySaturating RecoveryPolicy = "saturating"
	// RecoveryLinear adds Δt/τ and relies on the clamp.
	RecoveryLinear RecoveryPolicy = "linear"
)

// AssessmentParams tunes the optional confidence and decision stage that
// runs after the core update.
type AssessmentParams struct {
	RecoveryTimeConstant float64
	InstabilityDecay     float64
	LiquidityDecay       float64
	TimeDecay            float64 // per minute of staleness beyond GapThreshold
	GapThreshold         float64
	MinWarmupSamples     int
	Recovery             RecoveryPolicy

	StableConfidence     float64
	RiskyConfidence      float64
	MaxLiquidityStress   float64
	InstabilityThreshold float64
}

// DefaultAssessmentParams returns the production thresholds of the
// confidence and decision stage.
func DefaultAssessmentParams() AssessmentParams {
	return AssessmentParams{
		RecoveryTimeConstant: 4 * 3600,
		InstabilityDecay:     0.7,
		LiquidityDecay:       1.0,
		TimeDecay:            0.05,
		GapThreshold:         1800,
		MinWarmupSamples:     15,
		Recovery:             RecoverySaturating,
		StableConfidence:     0.7,
		RiskyConfidence:      0.3,
		MaxLiquidityStress:   0.95,
		InstabilityThreshold: 0.01,
	}
}

// Validate rejects thresholds the stage cannot work with.
func (a AssessmentParams) Validate() error {
	if !isFinite(a.RecoveryTimeConstant) || a.RecoveryTimeConstant <= 0 {
		return fmt.Errorf("recovery time constant must be positive, got %v", a.RecoveryTimeConstant)
	}
	switch a.Recovery {
	case RecoverySaturating, RecoveryLinear:
	default:
		return fmt.Errorf("unknown recovery policy %q", a.Recovery)
	}
	if a.RiskyConfidence > a.StableConfidence {
		return fmt.Errorf("risky confidence %v above stable confidence %v", a.RiskyConfidence, a.StableConfidence)
	}
	if a.MinWarmupSamples < 0 {
		return fmt.Errorf("min warmup samples must be non-negative")
	}
	return nil
}

// Warm reports whether c has seen enough observations to be judged.
func (a AssessmentParams) Warm(c ConfidenceState) bool {
	return c.SampleCount >= a.MinWarmupSamples
}

// StepConfidence returns the confidence of c advanced by elapsed seconds
// given the post-update state s. Confidence is held until c is warm.
func (a AssessmentParams) StepConfidence(c ConfidenceState, s State, elapsed float64) float64 {
	conf := c.Confidence
	if !isFinite(elapsed) || elapsed <= 0 || !a.Warm(c) {
		return conf
	}
	tau := a.RecoveryTimeConstant
	rate := a.InstabilityDecay*math.Max(0, s.InstabilityVariance) + a.LiquidityDecay*math.Max(0, s.LiquidityStress)
	conf *= math.Exp(-rate * elapsed / tau)

	if stale := elapsed - a.GapThreshold; stale > 0 {
		conf *= math.Exp(-a.TimeDecay * stale / 60)
	}

	if s.InstabilityVariance < 1 && s.LiquidityStress < 0.5 {
		frac := math.Min(1, elapsed/tau)
		switch a.Recovery {
		case RecoveryLinear:
			conf += frac
		default:
			conf += (1 - conf) * frac
		}
	}
	return Clamp(conf, 0, 1)
}

// Decide labels a market from its state, effective yield and confidence.
func (a AssessmentParams) Decide(s State, c ConfidenceState, effective float64) models.Decision {
	confidence := c.Confidence
	if !isFinite(effective) {
		return models.DecisionAvoid
	}
	if effective <= 0 && confidence < a.RiskyConfidence {
		return models.DecisionAvoid
	}
	if s.LiquidityStress >= a.MaxLiquidityStress {
		return models.DecisionAvoid
	}
	if !a.Warm(c) {
		return models.DecisionRisky
	}
	if confidence < a.RiskyConfidence {
		return models.DecisionAvoid
	}
	if confidence < a.StableConfidence {
		return models.DecisionRisky
	}
	normalized := SafeDivide(s.InstabilityVariance, s.SmoothedYield*s.SmoothedYield, 0)
	if normalized > a.InstabilityThreshold {
		return models.DecisionRisky
	}
	return models.DecisionStable
}

// ConfidenceState is the assessment bookkeeping of one market. It is kept
// beside the engine State and never read by the core update.
type ConfidenceState struct {
	Confidence float64
	// SampleCount counts committed observations, the initial one included.
	SampleCount int
}

// Assessor runs the confidence and decision stage after an Engine. Like
// the Engine it serves one market and is not safe for concurrent use.
type Assessor struct {
	params AssessmentParams
	state  ConfidenceState
}

// NewAssessor starts a market at full confidence with one observation, the
// snapshot its engine was created from.
func NewAssessor(params AssessmentParams) *Assessor {
	return &Assessor{
		params: params,
		state:  ConfidenceState{Confidence: 1, SampleCount: 1},
	}
}

// Observe folds one engine step into the confidence state. elapsed is the
// value returned by Engine.Advance; 0 leaves the state untouched.
func (a *Assessor) Observe(s State, elapsed float64) {
	if !isFinite(elapsed) || elapsed <= 0 {
		return
	}
	a.state.SampleCount++
	a.state.Confidence = a.params.StepConfidence(a.state, s, elapsed)
}

// State returns a copy of the confidence state.
func (a *Assessor) State() ConfidenceState { return a.state }

// Annotate sets the confidence and decision on out, rendered from s.
func (a *Assessor) Annotate(out *models.Output, s State) {
	c := a.state.Confidence
	out.Metrics.Confidence = &c
	out.Decision = a.params.Decide(s, a.state, out.Metrics.EffectiveYield)
}
