package chem

import "math"

// KineticsRequest describes one opportunity for a reaction to fire.
type KineticsRequest struct {
	Step     int
	Kind     ReactionKind
	Reaction ReactionDescription
	// Odds scales the rate. Cells pass the reaction's own odds; a molecule
	// weighing a disproportionation passes 1 and draws the branch later.
	Odds float64
	// Available is the number of reaction events the reactants could
	// support, already divided by stoichiometric multiplicity.
	Available int64
	Volume    float64
	Random    Uniform
}

// Kinetics decides how many reaction events happen in one step. The engine
// bounds the result to [0, Available].
type Kinetics interface {
	Quantity(req KineticsRequest) int64
}

// KineticsFunc adapts a function to the Kinetics interface.
type KineticsFunc func(req KineticsRequest) int64

func (f KineticsFunc) Quantity(req KineticsRequest) int64 { return f(req) }

// FirstOrderKinetics treats every pathway as a first-order decay with rate
// constant rate*odds (times UVIntensity for photolysis) over TimeStep
// seconds. The expected number of events is rounded stochastically.
type FirstOrderKinetics struct {
	TimeStep    float64
	UVIntensity float64
}

func (k FirstOrderKinetics) Quantity(req KineticsRequest) int64 {
	if req.Available <= 0 {
		return 0
	}
	rate := req.Reaction.Rate() * req.Odds
	if req.Kind == Photolysis {
		rate *= k.UVIntensity
	}
	if rate <= 0 || k.TimeStep <= 0 {
		return 0
	}

	expected := float64(req.Available) * -math.Expm1(-rate*k.TimeStep)
	whole := math.Floor(expected)
	q := int64(whole)
	if frac := expected - whole; frac > 0 && req.Random != nil && req.Random.Float64() < frac {
		q++
	}
	return min(q, req.Available)
}

// boundQuantity clamps a kinetics result to what the reactants allow.
func boundQuantity(q, available int64) int64 {
	if q < 0 {
		return 0
	}
	return min(q, available)
}
