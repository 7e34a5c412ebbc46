package validate

import (
	"reflect"
	"testing"
	"time"

	"github.com/chapterline/continuity/internal/story"
)

var (
	day1 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
)

func storyWithChapter(ch story.ChapterState) *story.Story {
	st := story.New("test-novel", story.Metadata{Title: "Test Novel", Genre: "fantasy"})
	st.Chapters[ch.Number] = ch
	return st
}

func hasCode(findings []Finding, code Code) bool {
	for _, f := range findings {
		if f.Code == code {
			return true
		}
	}
	return false
}

func TestProtagonistChangeBlocks(t *testing.T) {
	v := New(DefaultThresholds())
	st := storyWithChapter(story.ChapterState{
		Number: 1, Protagonist: "Aria", Tone: "neutral", EndingTone: "neutral", PublishedAt: day1,
	})

	result := v.ValidateAllAspects(st, Chapter{
		ChapterState: story.ChapterState{
			Number: 2, Protagonist: "Elena", Tone: "neutral", PublishedAt: day2,
		},
		Text: "Elena walked on.",
	})

	if result.Valid {
		t.Error("Valid = true, want false")
	}
	if !hasCode(result.Errors, CodeCharacterNameChanged) {
		t.Errorf("errors = %v, want CHARACTER_NAME_CHANGED", result.Errors)
	}
	if result.AspectScores[AspectCharacter] >= 1.0 {
		t.Errorf("character aspect score = %v, want derated", result.AspectScores[AspectCharacter])
	}
}

func TestWorldRuleContradiction(t *testing.T) {
	v := New(DefaultThresholds())
	st := story.New("test-novel", story.Metadata{Genre: "fantasy"})
	st.Worldbuilding.MagicSystem = []story.WorldRule{{
		ID:          "magic-limited",
		Description: "magic drains the caster and cannot be used without cost",
		Aspect:      "magic",
		Expected:    "limited",
		Importance:  "high",
	}}

	tests := []struct {
		name      string
		text      string
		wantValid bool
	}{
		{"contradiction detected", "He laughed as his magic proved unlimited, reshaping the valley at a whim.", false},
		{"rule keyword without contradiction", "Her magic flickered and failed, limited as ever.", true},
		{"rule aspect absent", "They traveled by horse and slept under the stars.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateAllAspects(st, Chapter{
				ChapterState: story.ChapterState{Number: 1, Tone: "neutral", PublishedAt: day1},
				Text:         tt.text,
			})
			if result.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors %v)", result.Valid, tt.wantValid, result.Errors)
			}
			if !tt.wantValid && !hasCode(result.Errors, CodeWorldRuleViolation) {
				t.Errorf("errors = %v, want WORLD_RULE_VIOLATION", result.Errors)
			}
		})
	}
}

func TestForeshadowingBacklogWarnsWithoutBlocking(t *testing.T) {
	v := New(DefaultThresholds())
	st := storyWithChapter(story.ChapterState{
		Number: 1, Tone: "neutral", EndingTone: "neutral", PublishedAt: day1,
	})
	for i := 0; i < 11; i++ {
		st.Plot.Foreshadowing = append(st.Plot.Foreshadowing, story.Foreshadowing{
			ID:             string(rune('a' + i)),
			Content:        "planted element",
			PlantedChapter: 1,
		})
	}

	result := v.ValidateAllAspects(st, Chapter{
		ChapterState: story.ChapterState{Number: 2, Tone: "neutral", PublishedAt: day2},
		Text:         "The journey continued without incident.",
	})

	if !result.Valid {
		t.Errorf("Valid = false, want true (errors %v)", result.Errors)
	}
	if !hasCode(result.Warnings, CodeForeshadowingDelay) {
		t.Errorf("warnings = %v, want FORESHADOWING_DELAY", result.Warnings)
	}
}

func TestStaleForeshadowingNamesEntries(t *testing.T) {
	v := New(DefaultThresholds())
	st := storyWithChapter(story.ChapterState{
		Number: 24, Tone: "neutral", EndingTone: "neutral", PublishedAt: day1,
	})
	st.Plot.Foreshadowing = []story.Foreshadowing{
		{ID: "old-sword", PlantedChapter: 2},
		{ID: "recent-letter", PlantedChapter: 20},
	}

	result := v.ValidateAllAspects(st, Chapter{
		ChapterState: story.ChapterState{Number: 25, Tone: "neutral", PublishedAt: day2},
		Text:         "The road wound on.",
	})

	if !result.Valid {
		t.Errorf("Valid = false, want true (errors %v)", result.Errors)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Code == CodeForeshadowingDelay && w.Subject == "old-sword" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want stale entry old-sword named", result.Warnings)
	}
}

func TestEmotionalDiscontinuityBlocks(t *testing.T) {
	v := New(DefaultThresholds())
	st := storyWithChapter(story.ChapterState{
		Number: 1, Tone: "sad", EndingTone: "sad", PublishedAt: day1,
	})

	result := v.ValidateAllAspects(st, Chapter{
		ChapterState: story.ChapterState{Number: 2, Tone: "positive", PublishedAt: day2},
		Text:         "They laughed and celebrated all day.",
	})

	if result.Valid {
		t.Error("Valid = true, want false")
	}
	if !hasCode(result.Errors, CodeEmotionalDiscontinuity) {
		t.Errorf("errors = %v, want EMOTIONAL_DISCONTINUITY", result.Errors)
	}
}

func TestPacingIssueIsWarningOnly(t *testing.T) {
	thresholds := DefaultThresholds()
	thresholds.DiscontinuityDistance = 0.8
	v := New(thresholds)

	st := storyWithChapter(story.ChapterState{
		Number: 1, Tone: "tense", EndingTone: "tense", PublishedAt: day1,
	})

	result := v.ValidateAllAspects(st, Chapter{
		ChapterState: story.ChapterState{Number: 2, Tone: "positive", PublishedAt: day2},
		Text:         "Victory at last.",
	})

	if !result.Valid {
		t.Errorf("Valid = false, want true (errors %v)", result.Errors)
	}
	if !hasCode(result.Warnings, CodePacingIssue) {
		t.Errorf("warnings = %v, want PACING_ISSUE", result.Warnings)
	}
}

func TestPublicationDateRegressionBlocks(t *testing.T) {
	v := New(DefaultThresholds())
	st := storyWithChapter(story.ChapterState{
		Number: 1, Tone: "neutral", EndingTone: "neutral", PublishedAt: day2,
	})

	result := v.ValidateAllAspects(st, Chapter{
		ChapterState: story.ChapterState{Number: 2, Tone: "neutral", PublishedAt: day1},
		Text:         "Time moved strangely here.",
	})

	if result.Valid {
		t.Error("Valid = true, want false")
	}
	if !hasCode(result.Errors, CodeTimelineContradiction) {
		t.Errorf("errors = %v, want TIMELINE_CONTRADICTION", result.Errors)
	}
}

func TestTimelineEventRegressionBlocks(t *testing.T) {
	v := New(DefaultThresholds())
	st := story.New("test-novel", story.Metadata{})
	st.Continuity.Timeline = []story.TimelineEvent{{Chapter: 5, Event: "the siege began"}}

	result := v.ValidateAllAspects(st, Chapter{
		ChapterState: story.ChapterState{Number: 3, Tone: "neutral", PublishedAt: day1},
		Text:         "Before the siege there was peace.",
	})

	if result.Valid {
		t.Error("Valid = true, want false")
	}
	if !hasCode(result.Errors, CodeTimelineContradiction) {
		t.Errorf("errors = %v, want TIMELINE_CONTRADICTION", result.Errors)
	}
}

func TestAbilityContinuity(t *testing.T) {
	newStory := func() *story.Story {
		st := storyWithChapter(story.ChapterState{
			Number: 1, Tone: "neutral", EndingTone: "neutral", PublishedAt: day1,
		})
		st.Characters.Minor["Mira"] = &story.CharacterProfile{
			Name:            "Mira",
			Abilities:       []string{"magic"},
			FirstAppearance: 1,
			LastSeen:        1,
		}
		return st
	}

	t.Run("explicit revocation of established ability blocks", func(t *testing.T) {
		v := New(DefaultThresholds())
		result := v.ValidateAllAspects(newStory(), Chapter{
			ChapterState: story.ChapterState{
				Number: 2, Tone: "neutral", PublishedAt: day2,
				CharacterStates: map[string]story.CharacterState{
					"Mira": {Name: "Mira", RevokedAbilities: []string{"magic"}, Tone: "neutral"},
				},
			},
			Text: "Mira has no magic left.",
		})

		if result.Valid {
			t.Error("Valid = true, want false")
		}
		if !hasCode(result.Errors, CodeAbilityInconsistency) {
			t.Errorf("errors = %v, want ABILITY_INCONSISTENCY", result.Errors)
		}
	})

	t.Run("ability not restated is not a revocation", func(t *testing.T) {
		v := New(DefaultThresholds())
		result := v.ValidateAllAspects(newStory(), Chapter{
			ChapterState: story.ChapterState{
				Number: 2, Tone: "neutral", PublishedAt: day2,
				CharacterStates: map[string]story.CharacterState{
					"Mira": {Name: "Mira", Tone: "neutral"},
				},
			},
			Text: "Mira walked to the market and back.",
		})

		if !result.Valid {
			t.Errorf("Valid = false, want true (errors %v)", result.Errors)
		}
		if len(result.Errors) != 0 || len(result.Warnings) != 0 {
			t.Errorf("findings = %v / %v, want none", result.Errors, result.Warnings)
		}
	})
}

func TestCharacterToneShift(t *testing.T) {
	base := func() *story.Story {
		return storyWithChapter(story.ChapterState{
			Number: 1, Tone: "sad", EndingTone: "positive", PublishedAt: day1,
			CharacterStates: map[string]story.CharacterState{
				"Mira": {Name: "Mira", Tone: "sad"},
			},
		})
	}

	t.Run("unexplained shift warns", func(t *testing.T) {
		v := New(DefaultThresholds())
		result := v.ValidateAllAspects(base(), Chapter{
			ChapterState: story.ChapterState{
				Number: 2, Tone: "positive", PublishedAt: day2,
				CharacterStates: map[string]story.CharacterState{
					"Mira": {Name: "Mira", Tone: "positive"},
				},
			},
			Text: "Mira laughed all morning.",
		})

		if !result.Valid {
			t.Errorf("Valid = false, want true (errors %v)", result.Errors)
		}
		if !hasCode(result.Warnings, CodeCharacterOOC) {
			t.Errorf("warnings = %v, want CHARACTER_OOC", result.Warnings)
		}
	})

	t.Run("shift referencing the earlier state passes", func(t *testing.T) {
		v := New(DefaultThresholds())
		result := v.ValidateAllAspects(base(), Chapter{
			ChapterState: story.ChapterState{
				Number: 2, Tone: "positive", PublishedAt: day2,
				CharacterStates: map[string]story.CharacterState{
					"Mira": {Name: "Mira", Tone: "positive"},
				},
			},
			Text: "No longer sad, Mira laughed all morning.",
		})

		if hasCode(result.Warnings, CodeCharacterOOC) {
			t.Errorf("warnings = %v, want no CHARACTER_OOC", result.Warnings)
		}
	})
}

func TestUnknownLocationWarns(t *testing.T) {
	v := New(DefaultThresholds())
	st := story.New("test-novel", story.Metadata{})
	st.Worldbuilding.Geography["Silver City"] = "the capital"

	result := v.ValidateAllAspects(st, Chapter{
		ChapterState: story.ChapterState{Number: 1, Tone: "neutral", PublishedAt: day1},
		Text:         "They left Silver City and rode toward Ember Vale.",
	})

	if !result.Valid {
		t.Errorf("Valid = false, want true (errors %v)", result.Errors)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Code == CodeMinorInconsistency && w.Subject == "Ember Vale" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want unknown location Ember Vale", result.Warnings)
	}
}

func TestPlotHoleSeverityEscalation(t *testing.T) {
	st := story.New("test-novel", story.Metadata{})
	ch := Chapter{
		ChapterState: story.ChapterState{Number: 1, Tone: "neutral", PublishedAt: day1},
		Text:         "Suddenly the curse was over, as if it had never been.",
	}

	v := New(DefaultThresholds())
	result := v.ValidateAllAspects(st, ch)
	if !result.Valid {
		t.Errorf("Valid = false, want true at default severity (errors %v)", result.Errors)
	}
	if !hasCode(result.Errors, CodePlotHole) {
		t.Errorf("errors = %v, want PLOT_HOLE surfaced", result.Errors)
	}

	escalated := DefaultThresholds()
	escalated.EscalatePlotHoles = true
	result = New(escalated).ValidateAllAspects(st, ch)
	if result.Valid {
		t.Error("Valid = true, want false with escalation enabled")
	}
}

func TestEmptyChapterAgainstEmptyStory(t *testing.T) {
	v := New(DefaultThresholds())
	st := story.New("test-novel", story.Metadata{})

	result := v.ValidateAllAspects(st, Chapter{
		ChapterState: story.ChapterState{Number: 1, Tone: "neutral"},
	})

	if !result.Valid {
		t.Errorf("Valid = false, want true (errors %v)", result.Errors)
	}
	if result.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", result.Confidence)
	}
	for aspect, score := range result.AspectScores {
		if score < 0 || score > 1 {
			t.Errorf("aspect %s score = %v, out of [0,1]", aspect, score)
		}
	}
}

func TestValidationIsDeterministic(t *testing.T) {
	v := New(DefaultThresholds())
	st := storyWithChapter(story.ChapterState{
		Number: 1, Protagonist: "Aria", Tone: "sad", EndingTone: "sad", PublishedAt: day2,
	})
	ch := Chapter{
		ChapterState: story.ChapterState{Number: 2, Protagonist: "Elena", Tone: "positive", PublishedAt: day1},
		Text:         "Suddenly everything was resolved.",
	}

	first := v.ValidateAllAspects(st, ch)
	second := v.ValidateAllAspects(st, ch)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated validation differs:\nfirst  %+v\nsecond %+v", first, second)
	}
	if first.Confidence < 0 || first.Confidence > 1 {
		t.Errorf("Confidence = %v, out of [0,1]", first.Confidence)
	}
}
