// Package score turns per-aspect confidences into a single acceptance
// score. Weighting lives here, apart from detection, so scoring policy can
// change without touching the validator.
package score

import (
	"github.com/chapterline/continuity/internal/validate"
)

// Weights assigns a relative weight to each validation aspect. Zero-value
// weights fall back to equal weighting.
type Weights struct {
	Character float64 `yaml:"character" validate:"gte=0"`
	World     float64 `yaml:"world" validate:"gte=0"`
	Plot      float64 `yaml:"plot" validate:"gte=0"`
	Emotional float64 `yaml:"emotional" validate:"gte=0"`
	Timeline  float64 `yaml:"timeline" validate:"gte=0"`
}

// DefaultWeights weighs all five aspects equally.
func DefaultWeights() Weights {
	return Weights{Character: 1, World: 1, Plot: 1, Emotional: 1, Timeline: 1}
}

func (w Weights) total() float64 {
	return w.Character + w.World + w.Plot + w.Emotional + w.Timeline
}

// Scorer combines aspect scores into an overall score and a tier grade.
type Scorer struct {
	weights Weights
}

func NewScorer(weights Weights) *Scorer {
	if weights.total() == 0 {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Score returns the weighted overall consistency score in [0,1].
// Missing aspect entries read as zero confidence.
func (s *Scorer) Score(aspectScores map[string]float64) float64 {
	total := s.weights.total()
	weighted := s.weights.Character*clamp(aspectScores[validate.AspectCharacter]) +
		s.weights.World*clamp(aspectScores[validate.AspectWorld]) +
		s.weights.Plot*clamp(aspectScores[validate.AspectPlot]) +
		s.weights.Emotional*clamp(aspectScores[validate.AspectEmotional]) +
		s.weights.Timeline*clamp(aspectScores[validate.AspectTimeline])
	return weighted / total
}

// Grade maps a score onto a letter tier.
func (s *Scorer) Grade(overall float64) string {
	switch {
	case overall >= 0.95:
		return "S"
	case overall >= 0.85:
		return "A"
	case overall >= 0.7:
		return "B"
	case overall >= 0.5:
		return "C"
	default:
		return "D"
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
