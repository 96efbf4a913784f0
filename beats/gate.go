package beats

import "math"

// Candidate carries the cues measured at one analysis frame
type Candidate struct {
	Frame        int
	Energy       float64 // mean smoothed RMS over the sustain span from the frame
	EnergyP95    float64 // p95 of the preceding lookback
	EnergyMedian float64 // median of the preceding lookback
	Slope        float64 // least-squares RMS slope over the preceding span
	Flux         float64 // ratios against the mean of the preceding window
	Bass         float64
	Harmonic     float64
}

// EnergyRatio is the energy over the lookback median
func (c Candidate) EnergyRatio() float64 {
	return c.Energy / (c.EnergyMedian + 1e-6)
}

// Predicate is one named stage of the drop gate
type Predicate struct {
	Name string
	Pass func(Candidate) bool
}

// Term is one weighted contribution to the drop confidence; the cue is
// divided by Scale and capped at 1 before weighting
type Term struct {
	Name   string
	Weight float64
	Scale  float64
	Value  func(Candidate) float64
}

// DropGate is an ordered chain of named predicates followed by a weighted
// confidence threshold. The first failing predicate rejects the candidate.
type DropGate struct {
	Predicates    []Predicate
	Terms         []Term
	MinConfidence float64
}

// NewDropGate builds the gate for the given thresholds
func NewDropGate(cfg GateConfig) *DropGate {
	return &DropGate{
		Predicates: []Predicate{
			{Name: "energy_above_p95", Pass: func(c Candidate) bool {
				return c.Energy > c.EnergyP95 && c.EnergyMedian >= cfg.MinMedianEnergy
			}},
			{Name: "energy_ratio", Pass: func(c Candidate) bool { return c.EnergyRatio() > cfg.EnergyRatio }},
			{Name: "rising_slope", Pass: func(c Candidate) bool { return c.Slope > 0 }},
			{Name: "flux_ratio", Pass: func(c Candidate) bool { return c.Flux > cfg.FluxRatio }},
			{Name: "bass_ratio", Pass: func(c Candidate) bool { return c.Bass > cfg.BassRatio }},
			{Name: "harmonic_ratio", Pass: func(c Candidate) bool { return c.Harmonic > cfg.HarmonicRatio }},
		},
		Terms: []Term{
			{Name: "energy", Weight: 0.3, Scale: 2, Value: Candidate.EnergyRatio},
			{Name: "flux", Weight: 0.25, Scale: 2, Value: func(c Candidate) float64 { return c.Flux }},
			{Name: "bass", Weight: 0.2, Scale: 2, Value: func(c Candidate) float64 { return c.Bass }},
			{Name: "harmonic", Weight: 0.25, Scale: 1.5, Value: func(c Candidate) float64 { return c.Harmonic }},
		},
		MinConfidence: cfg.MinConfidence,
	}
}

// Confidence is the capped weighted sum of the terms, at most 1
func (g *DropGate) Confidence(c Candidate) float64 {
	sum := 0.0
	for _, t := range g.Terms {
		sum += t.Weight * math.Min(t.Value(c)/t.Scale, 1)
	}
	return math.Min(1, sum)
}

// Evaluate runs the chain. It returns the confidence, the name of the
// rejecting stage ("confidence" when only the threshold failed) and whether
// the candidate passed.
func (g *DropGate) Evaluate(c Candidate) (float64, string, bool) {
	for _, p := range g.Predicates {
		if !p.Pass(c) {
			return 0, p.Name, false
		}
	}
	confidence := g.Confidence(c)
	if confidence <= g.MinConfidence {
		return confidence, "confidence", false
	}
	return confidence, "", true
}
