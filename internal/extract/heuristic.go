package extract

import (
	"regexp"
	"sort"
	"strings"
)

// HeuristicAnalyzer is the default Analyzer: fixed keyword tables and
// regular expressions, no external models.
type HeuristicAnalyzer struct {
	nameThreshold  int
	keyEventLimit  int
	abilityWindow  int
	endingSentence int
}

// HeuristicOption customizes analyzer thresholds.
type HeuristicOption func(*HeuristicAnalyzer)

// WithNameThreshold sets the minimum mention count for a candidate name to
// count as a character. Filters incidental name-like tokens.
func WithNameThreshold(n int) HeuristicOption {
	return func(a *HeuristicAnalyzer) {
		if n > 0 {
			a.nameThreshold = n
		}
	}
}

// WithKeyEventLimit caps the number of extracted key events.
func WithKeyEventLimit(n int) HeuristicOption {
	return func(a *HeuristicAnalyzer) {
		if n > 0 {
			a.keyEventLimit = n
		}
	}
}

func NewHeuristicAnalyzer(options ...HeuristicOption) *HeuristicAnalyzer {
	a := &HeuristicAnalyzer{
		nameThreshold:  2,
		keyEventLimit:  5,
		abilityWindow:  80,
		endingSentence: 3,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

var namePattern = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)

// nameStopwords are capitalized tokens that start sentences or otherwise
// look like names without being characters.
var nameStopwords = map[string]bool{
	"The": true, "She": true, "They": true, "His": true, "Her": true,
	"But": true, "And": true, "Then": true, "When": true, "While": true,
	"After": true, "Before": true, "Suddenly": true, "Later": true,
	"Chapter": true, "There": true, "This": true, "That": true,
	"Once": true, "Now": true, "Here": true, "With": true, "Inside": true,
	"Outside": true, "Everyone": true, "Nobody": true, "Someone": true,
	"Yes": true, "What": true, "Why": true, "How": true, "Not": true,
	"Meanwhile": true, "Tonight": true, "Today": true, "Tomorrow": true,
}

// abilityKeywords is the fixed vocabulary of abilities the extractor can
// attribute to a character.
var abilityKeywords = []string{
	"magic", "sorcery", "healing", "swordsmanship", "archery",
	"telepathy", "flight", "alchemy", "stealth", "prophecy",
	"fire", "ice", "lightning", "strength",
}

// negationMarkers preceding or following an ability keyword mark an
// explicit revocation rather than a grant.
var negationMarkers = []string{
	"no longer", "never again", "lost her", "lost his", "lost the",
	"stripped of", "without", "has no", "had no", "could not use",
	"couldn't use", "drained of",
}

// toneKeywords per category. Priority for tie-breaks follows tonePriority.
var toneKeywords = map[string][]string{
	"sad":      {"wept", "tears", "grief", "mourning", "sorrow", "cried", "loss", "funeral", "despair", "lonely"},
	"tense":    {"danger", "feared", "trembling", "threat", "blade", "blood", "scream", "panic", "shadow", "enemy", "attack"},
	"hopeful":  {"hope", "dawn", "promise", "dream", "believed", "courage", "determined", "light"},
	"positive": {"laughed", "joy", "smiled", "celebrate", "warmth", "happiness", "triumph", "embraced", "victory"},
}

var tonePriority = []string{"sad", "tense", "neutral", "hopeful", "positive"}

// cliffhangerMarkers match as whole words so "but" fires on the
// conjunction without also firing inside words that contain it.
var cliffhangerMarkers = regexp.MustCompile(`\b(suddenly|but|until|unless)\b`)

var actionVerbs = []string{
	"attacked", "revealed", "discovered", "died", "killed", "arrived",
	"escaped", "fought", "betrayed", "vanished", "confessed", "awakened",
	"destroyed", "stole", "rescued",
}

// ExtractCharacterNames returns candidate character names mentioned at
// least nameThreshold times, sorted by descending frequency then name.
func (a *HeuristicAnalyzer) ExtractCharacterNames(text string) []string {
	counts := a.nameCounts(text)

	var names []string
	for name, n := range counts {
		if n >= a.nameThreshold {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// IdentifyProtagonist picks the candidate with the highest mention count.
// Returns "" when there are no candidates.
func (a *HeuristicAnalyzer) IdentifyProtagonist(names []string, text string) string {
	if len(names) == 0 {
		return ""
	}

	counts := a.nameCounts(text)
	best := ""
	bestCount := 0
	for _, name := range names {
		if c := counts[name]; c > bestCount || (c == bestCount && (best == "" || name < best)) {
			best = name
			bestCount = c
		}
	}
	return best
}

// ExtractCharacterAbilities attributes ability keywords to characters by
// proximity co-occurrence, splitting grants from explicit revocations.
func (a *HeuristicAnalyzer) ExtractCharacterAbilities(text string, names []string) map[string]Abilities {
	result := make(map[string]Abilities, len(names))
	lower := strings.ToLower(text)

	for _, name := range names {
		var granted, revoked []string
		nameLower := strings.ToLower(name)

		for _, ability := range abilityKeywords {
			idx := 0
			attributed, negated := false, false
			for {
				pos := strings.Index(lower[idx:], nameLower)
				if pos < 0 {
					break
				}
				pos += idx
				window := windowAround(lower, pos, len(nameLower), a.abilityWindow)
				if strings.Contains(window, ability) {
					attributed = true
					for _, neg := range negationMarkers {
						if strings.Contains(window, neg) {
							negated = true
							break
						}
					}
				}
				idx = pos + len(nameLower)
			}
			if !attributed {
				continue
			}
			if negated {
				revoked = append(revoked, ability)
			} else {
				granted = append(granted, ability)
			}
		}

		result[name] = Abilities{Granted: granted, Revoked: revoked}
	}
	return result
}

// ClassifyEmotionalTone tallies tone keywords over the whole text and over
// the final paragraphs separately. Ties break by the fixed category
// priority order; no hits at all reads as neutral.
func (a *HeuristicAnalyzer) ClassifyEmotionalTone(text string) ToneResult {
	if strings.TrimSpace(text) == "" {
		return ToneResult{Tone: ToneNeutral, EndingTone: ToneNeutral}
	}
	return ToneResult{
		Tone:       dominantTone(text),
		EndingTone: dominantTone(finalParagraphs(text, 2)),
	}
}

// DetectCliffhanger scans the last few sentences for discourse markers of
// an unresolved ending. Returns the matching sentence, or "".
func (a *HeuristicAnalyzer) DetectCliffhanger(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	start := len(sentences) - a.endingSentence
	if start < 0 {
		start = 0
	}

	for i := len(sentences) - 1; i >= start; i-- {
		s := sentences[i]
		lower := strings.ToLower(s)
		trimmed := strings.TrimSpace(s)
		if strings.HasSuffix(trimmed, "...") || strings.HasSuffix(trimmed, "…") {
			return s
		}
		if i == len(sentences)-1 && strings.HasSuffix(trimmed, "?") {
			return s
		}
		if cliffhangerMarkers.MatchString(lower) {
			return s
		}
	}
	return ""
}

// ExtractKeyEvents selects sentences carrying dialogue or action markers,
// in document order, capped at keyEventLimit.
func (a *HeuristicAnalyzer) ExtractKeyEvents(text string) []string {
	var events []string
	for _, s := range splitSentences(text) {
		if len(events) >= a.keyEventLimit {
			break
		}
		lower := strings.ToLower(s)
		if strings.Contains(s, `"`) || strings.Contains(s, "“") {
			events = append(events, s)
			continue
		}
		for _, verb := range actionVerbs {
			if strings.Contains(lower, verb) {
				events = append(events, s)
				break
			}
		}
	}
	return events
}

func (a *HeuristicAnalyzer) nameCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range namePattern.FindAllString(text, -1) {
		if nameStopwords[tok] {
			continue
		}
		counts[tok]++
	}
	return counts
}

func dominantTone(text string) string {
	lower := strings.ToLower(text)
	scores := make(map[string]int, len(toneKeywords))
	for tone, words := range toneKeywords {
		for _, w := range words {
			scores[tone] += strings.Count(lower, w)
		}
	}

	best, bestScore := ToneNeutral, 0
	for _, tone := range tonePriority {
		if scores[tone] > bestScore {
			best = tone
			bestScore = scores[tone]
		}
	}
	return best
}

func finalParagraphs(text string, n int) string {
	paragraphs := strings.Split(strings.TrimSpace(text), "\n\n")
	if len(paragraphs) <= n {
		return text
	}
	return strings.Join(paragraphs[len(paragraphs)-n:], "\n\n")
}

var sentenceEnd = regexp.MustCompile(`[.!?…]+(\s+|$)`)

func splitSentences(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var sentences []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(trimmed, -1) {
		s := strings.TrimSpace(trimmed[last:loc[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(trimmed[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

func windowAround(text string, pos, length, radius int) string {
	start := pos - radius
	if start < 0 {
		start = 0
	}
	end := pos + length + radius
	if end > len(text) {
		end = len(text)
	}
	return text[start:end]
}
