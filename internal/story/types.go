// Package story defines the durable narrative state for one serialized work:
// world rules, characters, plot threads, timeline, and every processed chapter.
package story

import "time"

// Story is the top-level persisted state for one serialized work.
// It is the single source of truth the continuity validator checks
// new chapters against.
type Story struct {
	ID            string               `json:"id"`
	Metadata      Metadata             `json:"metadata"`
	Worldbuilding Worldbuilding        `json:"worldbuilding"`
	Characters    CharacterRegistry    `json:"characters"`
	Plot          PlotProgress         `json:"plot"`
	Chapters      map[int]ChapterState `json:"-"`
	Continuity    Continuity           `json:"continuity"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Metadata describes the work itself, independent of its content.
type Metadata struct {
	Title          string   `json:"title"`
	Author         string   `json:"author"`
	Genre          string   `json:"genre"`
	Tropes         []string `json:"tropes"`
	CurrentChapter int      `json:"current_chapter"`
	TotalChapters  int      `json:"total_chapters"`
	Status         string   `json:"status"`
}

// Worldbuilding holds the rules the fictional world must obey.
type Worldbuilding struct {
	MagicSystem []WorldRule       `json:"magic_system"`
	Geography   map[string]string `json:"-"`
	Hierarchy   []WorldRule       `json:"hierarchy"`
	Rules       []string          `json:"rules"`
}

// WorldRule is a single checkable constraint on the world.
// Expected holds the keyword phrase whose contradiction signals a violation.
type WorldRule struct {
	ID          string `json:"id" validate:"required"`
	Description string `json:"description" validate:"required"`
	Aspect      string `json:"aspect" validate:"required"`
	Expected    string `json:"expected" validate:"required"`
	Importance  string `json:"importance" validate:"oneof=critical high medium low"`
}

// CharacterRegistry groups character profiles by narrative weight.
type CharacterRegistry struct {
	Main       map[string]*CharacterProfile `json:"-"`
	Supporting map[string]*CharacterProfile `json:"-"`
	Minor      map[string]*CharacterProfile `json:"-"`
}

// CharacterProfile accumulates everything the story has established about
// one character. Created on first appearance, updated after every chapter
// that mentions the character, never deleted while the story exists.
type CharacterProfile struct {
	Name             string            `json:"name"`
	ExpectedBehavior string            `json:"expected_behavior"`
	Abilities        []string          `json:"abilities"`
	SpeechPatterns   []string          `json:"speech_patterns"`
	Relationships    map[string]string `json:"relationships,omitempty"`
	FirstAppearance  int               `json:"first_appearance"`
	LastSeen         int               `json:"last_seen"`
}

// PlotProgress tracks arc position and planted narrative elements.
type PlotProgress struct {
	MainArcStage  string          `json:"main_arc_stage"`
	Subplots      []Subplot       `json:"subplots"`
	Foreshadowing []Foreshadowing `json:"foreshadowing"`
	ChekhovGuns   []Foreshadowing `json:"chekhov_guns"`
}

// Subplot is a secondary thread with its own stage marker.
type Subplot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stage string `json:"stage"`
}

// Foreshadowing is a planted element expected to pay off in a later
// chapter. ResolvedChapter is meaningful only when Resolved is set.
type Foreshadowing struct {
	ID              string `json:"id"`
	Content         string `json:"content"`
	PlantedChapter  int    `json:"planted_chapter"`
	Resolved        bool   `json:"resolved"`
	ResolvedChapter int    `json:"resolved_chapter,omitempty"`
}

// ChapterState is the structured, extracted representation of one
// installment used for validation and timeline bookkeeping.
type ChapterState struct {
	Number          int                       `json:"number"`
	Title           string                    `json:"title"`
	Summary         string                    `json:"summary"`
	KeyEvents       []string                  `json:"key_events"`
	Protagonist     string                    `json:"protagonist,omitempty"`
	CharacterStates map[string]CharacterState `json:"-"`
	Tone            string                    `json:"tone"`
	EndingTone      string                    `json:"ending_tone"`
	Cliffhanger     string                    `json:"cliffhanger,omitempty"`
	PublishedAt     time.Time                 `json:"published_at"`
	WordCount       int                       `json:"word_count"`
}

// CharacterState is what a single chapter established about a character.
// RevokedAbilities lists abilities the chapter text explicitly contradicts;
// an ability merely not restated is not revoked.
type CharacterState struct {
	Name             string   `json:"name"`
	Abilities        []string `json:"abilities"`
	RevokedAbilities []string `json:"revoked_abilities,omitempty"`
	Tone             string   `json:"tone"`
	Location         string   `json:"location,omitempty"`
}

// Continuity is the cross-chapter bookkeeping: ordered event timeline plus
// latest known character and location snapshots.
type Continuity struct {
	Timeline       []TimelineEvent           `json:"timeline"`
	CharacterSnaps map[string]CharacterState `json:"-"`
	LocationStates map[string]LocationState  `json:"-"`
}

// TimelineEvent records one significant happening and who was involved.
type TimelineEvent struct {
	Chapter      int      `json:"chapter"`
	Event        string   `json:"event"`
	Participants []string `json:"participants"`
	Significance string   `json:"significance"`
}

// LocationState is the last known condition of a named place.
type LocationState struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	LastChapter int    `json:"last_chapter"`
}

// New builds an empty story for the given slug and metadata.
func New(id string, meta Metadata) *Story {
	now := time.Now().UTC()
	return &Story{
		ID:       id,
		Metadata: meta,
		Worldbuilding: Worldbuilding{
			Geography: make(map[string]string),
		},
		Characters: CharacterRegistry{
			Main:       make(map[string]*CharacterProfile),
			Supporting: make(map[string]*CharacterProfile),
			Minor:      make(map[string]*CharacterProfile),
		},
		Chapters: make(map[int]ChapterState),
		Continuity: Continuity{
			CharacterSnaps: make(map[string]CharacterState),
			LocationStates: make(map[string]LocationState),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MaxChapter returns the highest processed chapter number, or 0 when the
// story has no chapters yet.
func (s *Story) MaxChapter() int {
	max := 0
	for n := range s.Chapters {
		if n > max {
			max = n
		}
	}
	return max
}

// PreviousChapter returns the chapter immediately before n, if processed.
func (s *Story) PreviousChapter(n int) (ChapterState, bool) {
	ch, ok := s.Chapters[n-1]
	return ch, ok
}

// Lookup finds a character profile in any tier of the registry.
func (r *CharacterRegistry) Lookup(name string) (*CharacterProfile, bool) {
	for _, tier := range []map[string]*CharacterProfile{r.Main, r.Supporting, r.Minor} {
		if p, ok := tier[name]; ok {
			return p, true
		}
	}
	return nil, false
}

// Ensure returns the profile for name, creating a minor-tier profile on
// first appearance.
func (r *CharacterRegistry) Ensure(name string, chapter int) *CharacterProfile {
	if p, ok := r.Lookup(name); ok {
		return p
	}
	p := &CharacterProfile{
		Name:            name,
		FirstAppearance: chapter,
		LastSeen:        chapter,
	}
	if r.Minor == nil {
		r.Minor = make(map[string]*CharacterProfile)
	}
	r.Minor[name] = p
	return p
}

// All returns every registered profile across the three tiers.
func (r *CharacterRegistry) All() []*CharacterProfile {
	var out []*CharacterProfile
	for _, tier := range []map[string]*CharacterProfile{r.Main, r.Supporting, r.Minor} {
		for _, p := range tier {
			out = append(out, p)
		}
	}
	return out
}

// Unresolved returns foreshadowing and Chekhov-gun entries still waiting
// for a payoff.
func (p *PlotProgress) Unresolved() []Foreshadowing {
	var out []Foreshadowing
	for _, f := range p.Foreshadowing {
		if !f.Resolved {
			out = append(out, f)
		}
	}
	for _, f := range p.ChekhovGuns {
		if !f.Resolved {
			out = append(out, f)
		}
	}
	return out
}
