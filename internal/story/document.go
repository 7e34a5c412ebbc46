package story

import (
	"sort"
	"time"
)

// Document is the persisted form of a Story: one JSON document per story,
// with every map-typed field flattened into an ordered key/value list so the
// layout is storage-engine-agnostic and round-trips identically everywhere.
type Document struct {
	ID            string           `json:"id"`
	Metadata      Metadata         `json:"metadata"`
	Worldbuilding WorldbuildingDoc `json:"worldbuilding"`
	Characters    []CharacterEntry `json:"characters"`
	Plot          PlotProgress     `json:"plot"`
	Chapters      []ChapterEntry   `json:"chapters"`
	Continuity    ContinuityDoc    `json:"continuity"`
	CreatedAt     string           `json:"created_at"`
	UpdatedAt     string           `json:"updated_at"`
}

type WorldbuildingDoc struct {
	MagicSystem []WorldRule      `json:"magic_system"`
	Geography   []GeographyEntry `json:"geography"`
	Hierarchy   []WorldRule      `json:"hierarchy"`
	Rules       []string         `json:"rules"`
}

type GeographyEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CharacterEntry struct {
	Name    string           `json:"name"`
	Tier    string           `json:"tier"`
	Profile CharacterProfile `json:"profile"`
}

type ChapterEntry struct {
	Number int        `json:"number"`
	State  ChapterDoc `json:"state"`
}

// ChapterDoc mirrors ChapterState with the per-character map flattened.
type ChapterDoc struct {
	ChapterState
	CharacterStates []SnapshotEntry `json:"character_states"`
}

type SnapshotEntry struct {
	Name  string         `json:"name"`
	State CharacterState `json:"state"`
}

type LocationEntry struct {
	Name  string        `json:"name"`
	State LocationState `json:"state"`
}

type ContinuityDoc struct {
	Timeline       []TimelineEvent `json:"timeline"`
	CharacterSnaps []SnapshotEntry `json:"character_snapshots"`
	LocationStates []LocationEntry `json:"location_states"`
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// ToDocument flattens the story into its persisted form. Entries are sorted
// by key so repeated saves of the same state produce identical bytes.
func (s *Story) ToDocument() *Document {
	doc := &Document{
		ID:       s.ID,
		Metadata: s.Metadata,
		Worldbuilding: WorldbuildingDoc{
			MagicSystem: s.Worldbuilding.MagicSystem,
			Geography:   geographyEntries(s.Worldbuilding.Geography),
			Hierarchy:   s.Worldbuilding.Hierarchy,
			Rules:       s.Worldbuilding.Rules,
		},
		Plot: s.Plot,
		Continuity: ContinuityDoc{
			Timeline:       s.Continuity.Timeline,
			CharacterSnaps: snapshotEntries(s.Continuity.CharacterSnaps),
			LocationStates: locationEntries(s.Continuity.LocationStates),
		},
		CreatedAt: s.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt: s.UpdatedAt.UTC().Format(timeLayout),
	}

	for tier, m := range map[string]map[string]*CharacterProfile{
		"main":       s.Characters.Main,
		"supporting": s.Characters.Supporting,
		"minor":      s.Characters.Minor,
	} {
		for _, p := range m {
			doc.Characters = append(doc.Characters, CharacterEntry{Name: p.Name, Tier: tier, Profile: *p})
		}
	}
	sort.Slice(doc.Characters, func(i, j int) bool {
		return doc.Characters[i].Name < doc.Characters[j].Name
	})

	for n, ch := range s.Chapters {
		doc.Chapters = append(doc.Chapters, ChapterEntry{
			Number: n,
			State: ChapterDoc{
				ChapterState:    ch,
				CharacterStates: snapshotEntries(ch.CharacterStates),
			},
		})
	}
	sort.Slice(doc.Chapters, func(i, j int) bool {
		return doc.Chapters[i].Number < doc.Chapters[j].Number
	})

	return doc
}

// ToStory rebuilds the in-memory representation from the persisted form.
// Slices are copied rather than aliased; Clone depends on that.
func (d *Document) ToStory() *Story {
	s := New(d.ID, d.Metadata)
	s.Worldbuilding.MagicSystem = append([]WorldRule(nil), d.Worldbuilding.MagicSystem...)
	s.Worldbuilding.Hierarchy = append([]WorldRule(nil), d.Worldbuilding.Hierarchy...)
	s.Worldbuilding.Rules = append([]string(nil), d.Worldbuilding.Rules...)
	for _, g := range d.Worldbuilding.Geography {
		s.Worldbuilding.Geography[g.Name] = g.Description
	}

	for _, e := range d.Characters {
		p := e.Profile
		p.Abilities = append([]string(nil), p.Abilities...)
		p.SpeechPatterns = append([]string(nil), p.SpeechPatterns...)
		if p.Relationships != nil {
			rel := make(map[string]string, len(p.Relationships))
			for k, v := range p.Relationships {
				rel[k] = v
			}
			p.Relationships = rel
		}
		switch e.Tier {
		case "main":
			s.Characters.Main[e.Name] = &p
		case "supporting":
			s.Characters.Supporting[e.Name] = &p
		default:
			s.Characters.Minor[e.Name] = &p
		}
	}

	s.Plot = PlotProgress{
		MainArcStage:  d.Plot.MainArcStage,
		Subplots:      append([]Subplot(nil), d.Plot.Subplots...),
		Foreshadowing: append([]Foreshadowing(nil), d.Plot.Foreshadowing...),
		ChekhovGuns:   append([]Foreshadowing(nil), d.Plot.ChekhovGuns...),
	}

	for _, e := range d.Chapters {
		ch := e.State.ChapterState
		ch.KeyEvents = append([]string(nil), ch.KeyEvents...)
		ch.CharacterStates = snapshotMap(e.State.CharacterStates)
		s.Chapters[e.Number] = ch
	}

	s.Continuity.Timeline = make([]TimelineEvent, 0, len(d.Continuity.Timeline))
	for _, ev := range d.Continuity.Timeline {
		ev.Participants = append([]string(nil), ev.Participants...)
		s.Continuity.Timeline = append(s.Continuity.Timeline, ev)
	}
	s.Continuity.CharacterSnaps = snapshotMap(d.Continuity.CharacterSnaps)
	for _, e := range d.Continuity.LocationStates {
		s.Continuity.LocationStates[e.Name] = e.State
	}

	if t, err := parseTime(d.CreatedAt); err == nil {
		s.CreatedAt = t
	}
	if t, err := parseTime(d.UpdatedAt); err == nil {
		s.UpdatedAt = t
	}
	return s
}

// Clone returns a deep copy, used by the store to hand out snapshots that
// cannot observe an in-progress mutation.
func (s *Story) Clone() *Story {
	return s.ToDocument().ToStory()
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func geographyEntries(m map[string]string) []GeographyEntry {
	out := make([]GeographyEntry, 0, len(m))
	for name, desc := range m {
		out = append(out, GeographyEntry{Name: name, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func snapshotEntries(m map[string]CharacterState) []SnapshotEntry {
	out := make([]SnapshotEntry, 0, len(m))
	for name, st := range m {
		out = append(out, SnapshotEntry{Name: name, State: st})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func snapshotMap(entries []SnapshotEntry) map[string]CharacterState {
	out := make(map[string]CharacterState, len(entries))
	for _, e := range entries {
		st := e.State
		st.Abilities = append([]string(nil), st.Abilities...)
		st.RevokedAbilities = append([]string(nil), st.RevokedAbilities...)
		out[e.Name] = st
	}
	return out
}

func locationEntries(m map[string]LocationState) []LocationEntry {
	out := make([]LocationEntry, 0, len(m))
	for name, st := range m {
		out = append(out, LocationEntry{Name: name, State: st})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
