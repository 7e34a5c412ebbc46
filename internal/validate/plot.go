package validate

import (
	"fmt"
	"strings"

	"github.com/chapterline/continuity/internal/story"
)

// suddenResolutionTerms paired with "suddenly" signal a payoff that arrived
// without setup.
var suddenResolutionTerms = []string{"resolved", "ended", "was over", "solved itself"}

// checkPlot watches the foreshadowing backlog and scans for sudden,
// unearned resolutions.
func (v *Validator) checkPlot(st *story.Story, ch Chapter) aspectReport {
	var findings []Finding

	unresolved := st.Plot.Unresolved()
	if len(unresolved) > v.thresholds.ForeshadowingLimit {
		findings = append(findings, Finding{
			Code:     CodeForeshadowingDelay,
			Severity: SeverityLow,
			Aspect:   AspectPlot,
			Chapter:  ch.Number,
			Message: fmt.Sprintf("%d foreshadowing entries remain unresolved (limit %d)",
				len(unresolved), v.thresholds.ForeshadowingLimit),
		})
	}

	var stale []string
	for _, f := range unresolved {
		if ch.Number-f.PlantedChapter > v.thresholds.ForeshadowingSpan {
			stale = append(stale, f.ID)
		}
	}
	if len(stale) > 0 {
		findings = append(findings, Finding{
			Code:     CodeForeshadowingDelay,
			Severity: SeverityLow,
			Aspect:   AspectPlot,
			Chapter:  ch.Number,
			Subject:  strings.Join(stale, ","),
			Message: fmt.Sprintf("foreshadowing unresolved for more than %d chapters: %s",
				v.thresholds.ForeshadowingSpan, strings.Join(stale, ", ")),
		})
	}

	lower := strings.ToLower(ch.Text)
	if strings.Contains(lower, "suddenly") {
		for _, term := range suddenResolutionTerms {
			if strings.Contains(lower, term) {
				severity := SeverityMedium
				if v.thresholds.EscalatePlotHoles {
					severity = SeverityHigh
				}
				findings = append(findings, Finding{
					Code:     CodePlotHole,
					Severity: severity,
					Aspect:   AspectPlot,
					Chapter:  ch.Number,
					Message:  fmt.Sprintf("chapter %d resolves a thread abruptly (%q near \"suddenly\")", ch.Number, term),
				})
				break
			}
		}
	}

	return aspectReport{findings: findings, confidence: confidenceFor(findings)}
}
