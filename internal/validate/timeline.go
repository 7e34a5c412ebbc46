package validate

import (
	"fmt"

	"github.com/chapterline/continuity/internal/story"
)

// checkTimeline enforces non-decreasing published dates and timeline
// chapter numbers.
func (v *Validator) checkTimeline(st *story.Story, ch Chapter, prev story.ChapterState, hasPrev bool) aspectReport {
	var findings []Finding

	if hasPrev && !prev.PublishedAt.IsZero() && !ch.PublishedAt.IsZero() && ch.PublishedAt.Before(prev.PublishedAt) {
		findings = append(findings, Finding{
			Code:     CodeTimelineContradiction,
			Severity: SeverityHigh,
			Aspect:   AspectTimeline,
			Chapter:  ch.Number,
			Message: fmt.Sprintf("chapter %d published %s, before chapter %d (%s)",
				ch.Number, ch.PublishedAt.Format("2006-01-02"), prev.Number, prev.PublishedAt.Format("2006-01-02")),
		})
	}

	if n := len(st.Continuity.Timeline); n > 0 {
		last := st.Continuity.Timeline[n-1]
		if ch.Number < last.Chapter {
			findings = append(findings, Finding{
				Code:     CodeTimelineContradiction,
				Severity: SeverityHigh,
				Aspect:   AspectTimeline,
				Chapter:  ch.Number,
				Message: fmt.Sprintf("chapter %d precedes the last recorded timeline event (chapter %d)",
					ch.Number, last.Chapter),
			})
		}
	}

	return aspectReport{findings: findings, confidence: confidenceFor(findings)}
}
