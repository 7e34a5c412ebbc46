package validate

import (
	"fmt"
	"math"

	"github.com/chapterline/continuity/internal/extract"
	"github.com/chapterline/continuity/internal/story"
)

// checkEmotional measures the jump between the previous chapter's ending
// tone and the new chapter's opening tone on the fixed ordinal scale.
func (v *Validator) checkEmotional(ch Chapter, prev story.ChapterState, hasPrev bool) aspectReport {
	if !hasPrev {
		return aspectReport{confidence: 1.0}
	}

	var findings []Finding
	distance := math.Abs(extract.ToneScale(prev.EndingTone) - extract.ToneScale(ch.Tone))

	switch {
	case distance > v.thresholds.DiscontinuityDistance:
		severity := SeverityMedium
		if distance > 0.9 {
			severity = SeverityHigh
		}
		findings = append(findings, Finding{
			Code:     CodeEmotionalDiscontinuity,
			Severity: severity,
			Aspect:   AspectEmotional,
			Chapter:  ch.Number,
			Message: fmt.Sprintf("tone jumps from %q to %q (distance %.2f) between chapters %d and %d",
				prev.EndingTone, ch.Tone, distance, prev.Number, ch.Number),
		})
	case distance > v.thresholds.PacingDistance:
		findings = append(findings, Finding{
			Code:     CodePacingIssue,
			Severity: SeverityLow,
			Aspect:   AspectEmotional,
			Chapter:  ch.Number,
			Message: fmt.Sprintf("tone shift from %q to %q (distance %.2f) may read as rushed pacing",
				prev.EndingTone, ch.Tone, distance),
		})
	}

	return aspectReport{findings: findings, confidence: confidenceFor(findings)}
}
