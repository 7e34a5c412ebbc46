package story

import (
	"encoding/json"
	"testing"
	"time"
)

func sampleStory() *Story {
	st := New("test-novel", Metadata{Title: "Test Novel", Genre: "fantasy"})
	st.Worldbuilding.Geography["Silver City"] = "the capital"
	st.Worldbuilding.Geography["Ashwood Forest"] = "cursed woods"
	st.Worldbuilding.MagicSystem = []WorldRule{{
		ID: "magic-limited", Description: "magic exacts a cost",
		Aspect: "magic", Expected: "limited", Importance: "high",
	}}

	st.Characters.Main["Aria"] = &CharacterProfile{
		Name: "Aria", Abilities: []string{"magic"}, FirstAppearance: 1, LastSeen: 2,
	}
	st.Characters.Minor["Brann"] = &CharacterProfile{
		Name: "Brann", FirstAppearance: 2, LastSeen: 2,
	}

	st.Plot.Foreshadowing = []Foreshadowing{
		{ID: "gate", Content: "the sealed gate", PlantedChapter: 1},
	}

	st.Chapters[1] = ChapterState{
		Number: 1, Title: "One", Tone: "neutral", EndingTone: "tense",
		PublishedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		CharacterStates: map[string]CharacterState{
			"Aria": {Name: "Aria", Abilities: []string{"magic"}, Tone: "neutral"},
		},
	}
	st.Chapters[2] = ChapterState{Number: 2, Title: "Two", Tone: "tense", EndingTone: "tense"}

	st.Continuity.Timeline = []TimelineEvent{
		{Chapter: 1, Event: "the gate was found", Participants: []string{"Aria"}, Significance: "chapter"},
	}
	st.Continuity.CharacterSnaps["Aria"] = CharacterState{Name: "Aria", Tone: "neutral"}
	st.Continuity.LocationStates["Silver City"] = LocationState{Name: "Silver City", LastChapter: 1}
	return st
}

func TestDocumentRoundTrip(t *testing.T) {
	original := sampleStory()

	data, err := json.Marshal(original.ToDocument())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	got := doc.ToStory()

	if got.ID != original.ID || got.Metadata.Title != original.Metadata.Title {
		t.Errorf("identity = %q/%q, want %q/%q", got.ID, got.Metadata.Title, original.ID, original.Metadata.Title)
	}
	if got.Worldbuilding.Geography["Ashwood Forest"] != "cursed woods" {
		t.Errorf("Geography = %v, want entries restored", got.Worldbuilding.Geography)
	}
	if _, ok := got.Characters.Main["Aria"]; !ok {
		t.Error("Main[Aria] missing, want tier preserved")
	}
	if _, ok := got.Characters.Minor["Brann"]; !ok {
		t.Error("Minor[Brann] missing, want tier preserved")
	}
	if got.MaxChapter() != 2 {
		t.Errorf("MaxChapter() = %d, want 2", got.MaxChapter())
	}

	ch := got.Chapters[1]
	if state, ok := ch.CharacterStates["Aria"]; !ok || state.Tone != "neutral" {
		t.Errorf("chapter 1 character states = %v, want Aria restored", ch.CharacterStates)
	}
	if !ch.PublishedAt.Equal(original.Chapters[1].PublishedAt) {
		t.Errorf("PublishedAt = %v, want %v", ch.PublishedAt, original.Chapters[1].PublishedAt)
	}

	if len(got.Continuity.Timeline) != 1 || got.Continuity.Timeline[0].Event != "the gate was found" {
		t.Errorf("Timeline = %v, want event restored", got.Continuity.Timeline)
	}
	if loc := got.Continuity.LocationStates["Silver City"]; loc.LastChapter != 1 {
		t.Errorf("LocationStates = %v, want Silver City at chapter 1", got.Continuity.LocationStates)
	}
}

func TestDocumentSerializationIsDeterministic(t *testing.T) {
	st := sampleStory()

	first, err := json.Marshal(st.ToDocument())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	second, err := json.Marshal(st.ToDocument())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	if string(first) != string(second) {
		t.Error("repeated serialization of the same state differs")
	}

	// Map-typed fields must not leak Go map encoding into the document.
	var doc Document
	if err := json.Unmarshal(first, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(doc.Worldbuilding.Geography) != 2 || doc.Worldbuilding.Geography[0].Name != "Ashwood Forest" {
		t.Errorf("Geography = %v, want sorted entries", doc.Worldbuilding.Geography)
	}
	if len(doc.Characters) != 2 || doc.Characters[0].Name != "Aria" {
		t.Errorf("Characters = %v, want sorted by name", doc.Characters)
	}
	if len(doc.Chapters) != 2 || doc.Chapters[0].Number != 1 {
		t.Errorf("Chapters = %v, want sorted by number", doc.Chapters)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	original := sampleStory()
	clone := original.Clone()

	clone.Metadata.Title = "Tampered"
	clone.Chapters[3] = ChapterState{Number: 3}
	clone.Plot.Foreshadowing[0].Resolved = true
	clone.Characters.Main["Aria"].Abilities = append(clone.Characters.Main["Aria"].Abilities, "flight")
	clone.Worldbuilding.Geography["New Keep"] = "built later"
	clone.Continuity.Timeline[0].Participants[0] = "Nobody"

	if original.Metadata.Title != "Test Novel" {
		t.Error("clone mutation leaked into Metadata")
	}
	if original.MaxChapter() != 2 {
		t.Error("clone mutation leaked into Chapters")
	}
	if original.Plot.Foreshadowing[0].Resolved {
		t.Error("clone mutation leaked into Plot.Foreshadowing")
	}
	if len(original.Characters.Main["Aria"].Abilities) != 1 {
		t.Error("clone mutation leaked into character abilities")
	}
	if _, ok := original.Worldbuilding.Geography["New Keep"]; ok {
		t.Error("clone mutation leaked into Geography")
	}
	if original.Continuity.Timeline[0].Participants[0] != "Aria" {
		t.Error("clone mutation leaked into timeline participants")
	}
}
