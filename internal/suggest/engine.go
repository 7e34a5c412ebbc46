// Package suggest maps validator findings to structured remediation
// proposals the generation pipeline can apply or feed back into a rewrite.
package suggest

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chapterline/continuity/internal/validate"
)

// FixSuggestion is one concrete remediation for a finding.
type FixSuggestion struct {
	ID             string         `json:"id"`
	Code           validate.Code  `json:"code"`
	TargetChapters []int          `json:"target_chapters"`
	OldHint        string         `json:"old_hint,omitempty"`
	NewHint        string         `json:"new_hint,omitempty"`
	Rationale      string         `json:"rationale"`
	Confidence     float64        `json:"confidence"`
}

// template is the static remediation recipe for one finding code.
type template struct {
	rationale  string
	newHint    string
	confidence float64
}

// templates keys remediation recipes by finding code. Codes without an
// entry simply produce no suggestion; that is not an error condition.
var templates = map[validate.Code]template{
	validate.CodeCharacterNameChanged: {
		rationale:  "rename the new protagonist back to the established one, or add an explicit handoff scene merging the two identities",
		newHint:    "replace the new name with the established protagonist's name throughout the chapter",
		confidence: 0.9,
	},
	validate.CodeAbilityInconsistency: {
		rationale:  "restore the contradicted ability or add an on-page event that removes it before this chapter",
		newHint:    "remove the contradicting phrase, or insert a scene where the ability is lost",
		confidence: 0.8,
	},
	validate.CodeWorldRuleViolation: {
		rationale:  "rewrite the offending passage to comply with the established world rule",
		newHint:    "rephrase so the passage respects the rule's expected value",
		confidence: 0.75,
	},
	validate.CodeEmotionalDiscontinuity: {
		rationale:  "add a transitional beat bridging the previous chapter's ending tone and this chapter's opening tone",
		newHint:    "open with a short passage acknowledging the previous chapter's emotional state",
		confidence: 0.7,
	},
	validate.CodeTimelineContradiction: {
		rationale:  "correct the publication date or chapter ordering so the timeline stays non-decreasing",
		newHint:    "set the published date at or after the previous chapter's date",
		confidence: 0.85,
	},
	validate.CodePlotHole: {
		rationale:  "foreshadow the resolution earlier or slow it down across more scenes",
		newHint:    "replace the abrupt resolution with an earned one referencing planted setup",
		confidence: 0.6,
	},
	validate.CodeForeshadowingDelay: {
		rationale:  "resolve one or more stale foreshadowing entries in an upcoming chapter",
		newHint:    "work the oldest planted element into this or the next chapter's events",
		confidence: 0.55,
	},
}

// Engine produces fix suggestions by deterministic table lookup.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// SuggestFixes maps each finding to its remediation template. Findings
// with unknown codes are skipped.
func (e *Engine) SuggestFixes(findings []validate.Finding) []FixSuggestion {
	suggestions := make([]FixSuggestion, 0, len(findings))
	for _, f := range findings {
		tpl, ok := templates[f.Code]
		if !ok {
			continue
		}

		oldHint := f.Message
		if f.Subject != "" {
			oldHint = fmt.Sprintf("%s (subject: %s)", f.Message, f.Subject)
		}

		suggestions = append(suggestions, FixSuggestion{
			ID:             uuid.New().String(),
			Code:           f.Code,
			TargetChapters: []int{f.Chapter},
			OldHint:        oldHint,
			NewHint:        tpl.newHint,
			Rationale:      tpl.rationale,
			Confidence:     tpl.confidence,
		})
	}
	return suggestions
}
