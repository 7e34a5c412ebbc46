// Package extract derives structured narrative signals from raw chapter
// text. Everything here is pure and deterministic: the same text always
// produces the same signals, and empty or junk input yields neutral
// defaults rather than errors.
package extract

import (
	"strings"
	"time"

	"github.com/chapterline/continuity/internal/story"
)

// ToneResult carries the dominant emotional tone of a chapter and the tone
// of its closing paragraphs, which often differ.
type ToneResult struct {
	Tone       string `json:"tone"`
	EndingTone string `json:"ending_tone"`
}

// Abilities separates what a chapter grants a character from what it
// explicitly takes away. An ability the text simply does not restate
// appears in neither list.
type Abilities struct {
	Granted []string `json:"granted"`
	Revoked []string `json:"revoked"`
}

// Analyzer is the text-analysis capability behind the extractor. The
// keyword heuristics in this package are the default implementation;
// validator control flow never depends on how the signals were produced,
// so a better backend can be swapped in without touching it.
type Analyzer interface {
	ExtractCharacterNames(text string) []string
	IdentifyProtagonist(names []string, text string) string
	ExtractCharacterAbilities(text string, names []string) map[string]Abilities
	ClassifyEmotionalTone(text string) ToneResult
	DetectCliffhanger(text string) string
	ExtractKeyEvents(text string) []string
}

// ToneNeutral is the default when no emotional signal is found.
const ToneNeutral = "neutral"

// toneScale maps tone labels onto a fixed ordinal 0..1 scale used to
// measure emotional-shift distance between chapters.
var toneScale = map[string]float64{
	"sad":      0.0,
	"tense":    0.25,
	"neutral":  0.5,
	"hopeful":  0.75,
	"positive": 1.0,
}

// ToneScale returns the scale value for a tone label; unknown labels read
// as neutral so distance math stays bounded.
func ToneScale(tone string) float64 {
	if v, ok := toneScale[strings.ToLower(tone)]; ok {
		return v
	}
	return toneScale[ToneNeutral]
}

// ChapterState assembles a full chapter-state record from raw text using
// the given analyzer.
func ChapterState(a Analyzer, number int, title, text string, publishedAt time.Time) story.ChapterState {
	names := a.ExtractCharacterNames(text)
	abilities := a.ExtractCharacterAbilities(text, names)
	tone := a.ClassifyEmotionalTone(text)

	states := make(map[string]story.CharacterState, len(names))
	for _, name := range names {
		ab := abilities[name]
		states[name] = story.CharacterState{
			Name:             name,
			Abilities:        ab.Granted,
			RevokedAbilities: ab.Revoked,
			Tone:             tone.Tone,
		}
	}

	return story.ChapterState{
		Number:          number,
		Title:           title,
		Summary:         summarize(text),
		KeyEvents:       a.ExtractKeyEvents(text),
		Protagonist:     a.IdentifyProtagonist(names, text),
		CharacterStates: states,
		Tone:            tone.Tone,
		EndingTone:      tone.EndingTone,
		Cliffhanger:     a.DetectCliffhanger(text),
		PublishedAt:     publishedAt,
		WordCount:       len(strings.Fields(text)),
	}
}

// summarize takes the opening sentences as a stand-in summary.
func summarize(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	n := 2
	if len(sentences) < n {
		n = len(sentences)
	}
	return strings.Join(sentences[:n], " ")
}
