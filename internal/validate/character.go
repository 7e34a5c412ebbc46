package validate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/chapterline/continuity/internal/extract"
	"github.com/chapterline/continuity/internal/story"
)

// checkCharacters compares the new chapter's cast against the previous
// chapter and the accumulated registry: protagonist identity, ability
// continuity, and emotional consistency per character.
func (v *Validator) checkCharacters(st *story.Story, ch Chapter, prev story.ChapterState, hasPrev bool) aspectReport {
	var findings []Finding

	if hasPrev && prev.Protagonist != "" && ch.Protagonist != "" && prev.Protagonist != ch.Protagonist {
		findings = append(findings, Finding{
			Code:     CodeCharacterNameChanged,
			Severity: SeverityCritical,
			Aspect:   AspectCharacter,
			Chapter:  ch.Number,
			Subject:  ch.Protagonist,
			Message: fmt.Sprintf("protagonist changed from %q to %q between chapters %d and %d",
				prev.Protagonist, ch.Protagonist, prev.Number, ch.Number),
		})
	}

	lowerText := strings.ToLower(ch.Text)

	for _, name := range sortedStateNames(ch.CharacterStates) {
		state := ch.CharacterStates[name]

		// Ability continuity is deliberately a one-way check: an ability
		// the chapter does not restate stays granted. Only text that
		// explicitly contradicts a known ability counts as a revocation.
		if profile, ok := st.Characters.Lookup(name); ok {
			for _, revoked := range state.RevokedAbilities {
				if containsString(profile.Abilities, revoked) {
					findings = append(findings, Finding{
						Code:     CodeAbilityInconsistency,
						Severity: SeverityHigh,
						Aspect:   AspectCharacter,
						Chapter:  ch.Number,
						Subject:  name,
						Message: fmt.Sprintf("%s established %q in chapter %d but chapter %d contradicts it",
							name, revoked, profile.FirstAppearance, ch.Number),
					})
				}
			}
		}

		if !hasPrev {
			continue
		}
		prevState, ok := prev.CharacterStates[name]
		if !ok {
			continue
		}

		distance := math.Abs(extract.ToneScale(prevState.Tone) - extract.ToneScale(state.Tone))
		if distance > v.thresholds.OOCDistance && !strings.Contains(lowerText, strings.ToLower(prevState.Tone)) {
			findings = append(findings, Finding{
				Code:     CodeCharacterOOC,
				Severity: SeverityLow,
				Aspect:   AspectCharacter,
				Chapter:  ch.Number,
				Subject:  name,
				Message: fmt.Sprintf("%s shifts from %q to %q with no reference to the earlier state",
					name, prevState.Tone, state.Tone),
			})
		}
	}

	return aspectReport{findings: findings, confidence: confidenceFor(findings)}
}

func sortedStateNames(states map[string]story.CharacterState) []string {
	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if strings.EqualFold(s, target) {
			return true
		}
	}
	return false
}
