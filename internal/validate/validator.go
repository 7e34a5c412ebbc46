package validate

import (
	"github.com/chapterline/continuity/internal/story"
)

// Thresholds are the tunable cutoffs for the aspect checks. Defaults match
// the documented validation protocol; override through configuration, not
// by editing detection logic.
type Thresholds struct {
	ForeshadowingLimit    int     `yaml:"foreshadowing_limit" validate:"min=1"`
	ForeshadowingSpan     int     `yaml:"foreshadowing_span" validate:"min=1"`
	DiscontinuityDistance float64 `yaml:"discontinuity_distance" validate:"gt=0,lte=1"`
	PacingDistance        float64 `yaml:"pacing_distance" validate:"gt=0,lte=1"`
	OOCDistance           float64 `yaml:"ooc_distance" validate:"gt=0,lte=1"`
	EscalatePlotHoles     bool    `yaml:"escalate_plot_holes"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		ForeshadowingLimit:    10,
		ForeshadowingSpan:     20,
		DiscontinuityDistance: 0.7,
		PacingDistance:        0.5,
		OOCDistance:           0.5,
	}
}

// Chapter is the validator's input: the extracted chapter state plus the
// raw text the world and plot aspects scan directly.
type Chapter struct {
	story.ChapterState
	Text string
}

// Validator runs the five aspect checks and merges their findings.
// It is stateless between calls: identical inputs give identical results.
type Validator struct {
	thresholds Thresholds
}

func New(thresholds Thresholds) *Validator {
	return &Validator{thresholds: thresholds}
}

// ValidateAllAspects checks the new chapter against the story's
// accumulated state. Confidence is the arithmetic mean of the five aspect
// confidences; Valid is true iff no blocking finding was produced.
func (v *Validator) ValidateAllAspects(st *story.Story, ch Chapter) Result {
	prev, hasPrev := st.PreviousChapter(ch.Number)

	reports := map[string]aspectReport{
		AspectCharacter: v.checkCharacters(st, ch, prev, hasPrev),
		AspectWorld:     v.checkWorld(st, ch),
		AspectPlot:      v.checkPlot(st, ch),
		AspectEmotional: v.checkEmotional(ch, prev, hasPrev),
		AspectTimeline:  v.checkTimeline(st, ch, prev, hasPrev),
	}

	result := Result{
		Valid:        true,
		Errors:       []Finding{},
		Warnings:     []Finding{},
		AspectScores: make(map[string]float64, len(reports)),
	}

	total := 0.0
	for _, aspect := range []string{AspectCharacter, AspectWorld, AspectPlot, AspectEmotional, AspectTimeline} {
		report := reports[aspect]
		result.AspectScores[aspect] = report.confidence
		total += report.confidence

		for _, f := range report.findings {
			if f.Severity == SeverityLow {
				result.Warnings = append(result.Warnings, f)
				continue
			}
			result.Errors = append(result.Errors, f)
			if f.Severity.Blocks() {
				result.Valid = false
			}
		}
	}

	result.Confidence = total / float64(len(reports))
	return result
}
