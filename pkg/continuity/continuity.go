// Package continuity is the public API of the narrative continuity core:
// durable per-story state plus five-aspect validation of new chapters
// against that state. It is a library embedded in a generation pipeline,
// not a service.
package continuity

import (
	"github.com/chapterline/continuity/internal/config"
	"github.com/chapterline/continuity/internal/source"
	"github.com/chapterline/continuity/internal/store"
	"github.com/chapterline/continuity/internal/story"
	"github.com/chapterline/continuity/internal/suggest"
	"github.com/chapterline/continuity/internal/validate"
)

// Domain types.
type (
	Story          = story.Story
	Metadata       = story.Metadata
	ChapterState   = story.ChapterState
	CharacterState = story.CharacterState
	WorldRule      = story.WorldRule
	Foreshadowing  = story.Foreshadowing
	TimelineEvent  = story.TimelineEvent
)

// Validation types.
type (
	Result        = validate.Result
	Finding       = validate.Finding
	Severity      = validate.Severity
	Code          = validate.Code
	Thresholds    = validate.Thresholds
	FixSuggestion = suggest.FixSuggestion
)

// Collaborator contract.
type (
	ContentSource = source.ContentSource
	ChapterText   = source.ChapterText
	NovelMetadata = source.NovelMetadata
	MockSource    = source.MockSource
)

// Configuration.
type Config = config.Config

// LoadConfig reads configuration from file and environment. A malformed
// configuration is a fatal error with no retry.
func LoadConfig() (*Config, error) {
	return config.Load()
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return config.Default()
}

// NewMockSource returns an in-memory content source for tests and local
// pipelines.
func NewMockSource() *MockSource {
	return source.NewMockSource()
}

// Append options re-exported from the store.
var (
	WithNonSequential         = store.WithNonSequential
	WithForeshadowingPlanted  = store.WithForeshadowingPlanted
	WithForeshadowingResolved = store.WithForeshadowingResolved
)

// Sentinel errors callers branch on.
var (
	ErrDuplicateStory       = store.ErrDuplicateStory
	ErrStoryNotFound        = store.ErrStoryNotFound
	ErrNonSequentialChapter = store.ErrNonSequentialChapter
)

// IsPersistenceError reports whether err is an I/O failure at the
// persistence boundary; story state is guaranteed unchanged when it is.
func IsPersistenceError(err error) bool {
	return store.IsPersistenceError(err)
}
