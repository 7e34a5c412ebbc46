// Package validate checks a newly produced chapter against a story's
// accumulated state along five independent aspects and reports structured
// findings. Findings are the validator's output payload, never Go errors.
package validate

// Severity classifies how strongly a finding should weigh on acceptance.
// Critical and high findings block a chapter; medium and low findings are
// surfaced but never block.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Blocks reports whether a finding of this severity rejects the chapter.
func (s Severity) Blocks() bool {
	return s == SeverityCritical || s == SeverityHigh
}

// Code identifies the kind of continuity violation detected.
type Code string

const (
	CodeCharacterNameChanged   Code = "CHARACTER_NAME_CHANGED"
	CodeAbilityInconsistency   Code = "ABILITY_INCONSISTENCY"
	CodeCharacterOOC           Code = "CHARACTER_OOC"
	CodeWorldRuleViolation     Code = "WORLD_RULE_VIOLATION"
	CodeMinorInconsistency     Code = "MINOR_INCONSISTENCY"
	CodeForeshadowingDelay     Code = "FORESHADOWING_DELAY"
	CodePlotHole               Code = "PLOT_HOLE"
	CodeEmotionalDiscontinuity Code = "EMOTIONAL_DISCONTINUITY"
	CodePacingIssue            Code = "PACING_ISSUE"
	CodeTimelineContradiction  Code = "TIMELINE_CONTRADICTION"
)

// Aspect names the five validation dimensions.
const (
	AspectCharacter = "character"
	AspectWorld     = "world"
	AspectPlot      = "plot"
	AspectEmotional = "emotional"
	AspectTimeline  = "timeline"
)

// Finding is a single detected violation or warning.
type Finding struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Aspect   string   `json:"aspect"`
	Message  string   `json:"message"`
	Chapter  int      `json:"chapter"`
	Subject  string   `json:"subject,omitempty"`
}

// Result aggregates the five aspect checks. Errors hold findings of
// severity medium and above; Warnings hold low-severity findings.
// Valid is false only when a blocking finding is present.
type Result struct {
	Valid        bool               `json:"valid"`
	Errors       []Finding          `json:"errors"`
	Warnings     []Finding          `json:"warnings"`
	Confidence   float64            `json:"confidence"`
	AspectScores map[string]float64 `json:"aspect_scores"`
}

// aspectReport is what a single aspect check produces.
type aspectReport struct {
	findings   []Finding
	confidence float64
}

// confidenceFor derates an aspect's confidence by the severity of what it
// found, clamped to [0,1].
func confidenceFor(findings []Finding) float64 {
	score := 1.0
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			score -= 0.5
		case SeverityHigh:
			score -= 0.3
		case SeverityMedium:
			score -= 0.15
		default:
			score -= 0.05
		}
	}
	if score < 0 {
		return 0
	}
	return score
}
