// Package store owns the durable per-story narrative state. It is the
// single writable source of truth: reads hand out snapshots, and all
// mutations for one story id serialize through a keyed lock before being
// persisted atomically.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/chapterline/continuity/internal/source"
	"github.com/chapterline/continuity/internal/storage"
	"github.com/chapterline/continuity/internal/story"
)

// Store is the StoryStateStore: a read-through cache over document storage
// with per-story serialized mutation.
type Store struct {
	storage        storage.Storage
	source         source.ContentSource
	persistTimeout time.Duration
	logger         *slog.Logger
	validate       *validator.Validate

	mu    sync.RWMutex
	cache map[string]*story.Story

	locks *keyedLocks
	group singleflight.Group
}

type StoreOption func(*Store)

// WithContentSource wires the external content store used to lazily
// initialize stories that have no persisted record yet.
func WithContentSource(src source.ContentSource) StoreOption {
	return func(s *Store) {
		s.source = src
	}
}

// WithPersistTimeout bounds every storage call.
func WithPersistTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func New(st storage.Storage, opts ...StoreOption) *Store {
	s := &Store{
		storage:        st,
		persistTimeout: 10 * time.Second,
		logger:         slog.Default().With("component", "story_store"),
		validate:       validator.New(),
		cache:          make(map[string]*story.Story),
		locks:          newKeyedLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func storyPath(id string) string {
	return fmt.Sprintf("stories/%s.json", id)
}

// Initialize creates a new story with default worldbuilding rules and
// empty registries. Fails with ErrDuplicateStory when the slug is taken.
func (s *Store) Initialize(ctx context.Context, id string, meta story.Metadata) (*story.Story, error) {
	var created *story.Story
	err := s.locks.withLock(id, func() error {
		st, err := s.initializeLocked(ctx, id, meta)
		if err != nil {
			return err
		}
		created = st.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("story initialized", "story", id, "title", meta.Title)
	return created, nil
}

// initializeLocked creates and caches a new story. The caller must hold
// the story's keyed lock; the lock is non-reentrant, so nothing here may
// call back into a locking method for the same id.
func (s *Store) initializeLocked(ctx context.Context, id string, meta story.Metadata) (*story.Story, error) {
	s.mu.RLock()
	_, cached := s.cache[id]
	s.mu.RUnlock()
	if cached || s.storage.Exists(ctx, storyPath(id)) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateStory, id)
	}

	st := story.New(id, meta)
	wb, err := s.defaultWorldbuilding(meta.Genre)
	if err != nil {
		return nil, err
	}
	st.Worldbuilding = wb

	if err := s.persist(ctx, st); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[id] = st
	s.mu.Unlock()
	return st, nil
}

// Get returns a snapshot of the story. Cache miss falls through to
// storage; an absent record falls back to lazy initialization from the
// content source's novel metadata. Concurrent loads of the same story are
// collapsed into one.
func (s *Store) Get(ctx context.Context, id string) (*story.Story, error) {
	s.mu.RLock()
	if st, ok := s.cache[id]; ok {
		snapshot := st.Clone()
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do(id, func() (any, error) {
		return s.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*story.Story).Clone(), nil
}

func (s *Store) load(ctx context.Context, id string) (*story.Story, error) {
	return s.loadWith(ctx, id, false)
}

// loadLocked is load for callers already holding the story's keyed lock.
func (s *Store) loadLocked(ctx context.Context, id string) (*story.Story, error) {
	return s.loadWith(ctx, id, true)
}

func (s *Store) loadWith(ctx context.Context, id string, locked bool) (*story.Story, error) {
	// Another goroutine may have filled the cache while we queued.
	s.mu.RLock()
	if st, ok := s.cache[id]; ok {
		s.mu.RUnlock()
		return st, nil
	}
	s.mu.RUnlock()

	loadCtx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	data, err := s.storage.Load(loadCtx, storyPath(id))
	switch {
	case err == nil:
		var doc story.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &PersistenceError{Op: "load", StoryID: id, Err: err}
		}
		st := doc.ToStory()
		s.mu.Lock()
		s.cache[id] = st
		s.mu.Unlock()
		return st, nil

	case errors.Is(err, storage.ErrNotFound):
		return s.initializeFromSource(ctx, id, locked)

	default:
		return nil, &PersistenceError{Op: "load", StoryID: id, Err: err}
	}
}

// initializeFromSource backfills a story from the content source's novel
// metadata. The keyed lock is non-reentrant, so callers that already hold
// it pass locked=true and the creation runs without re-acquiring.
func (s *Store) initializeFromSource(ctx context.Context, id string, locked bool) (*story.Story, error) {
	if s.source == nil {
		return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, id)
	}

	meta, err := s.source.GetNovelMetadata(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (metadata unavailable: %v)", ErrStoryNotFound, id, err)
	}

	s.logger.Info("lazily initializing story from content source", "story", id)
	storyMeta := story.Metadata{
		Title:  meta.Title,
		Author: meta.Author,
		Genre:  meta.Genre,
		Tropes: meta.Tropes,
		Status: "ongoing",
	}

	if locked {
		return s.initializeLocked(ctx, id, storyMeta)
	}

	var st *story.Story
	err = s.locks.withLock(id, func() error {
		var lockedErr error
		st, lockedErr = s.initializeLocked(ctx, id, storyMeta)
		return lockedErr
	})
	if errors.Is(err, ErrDuplicateStory) {
		// Lost the creation race; the winner's story is in the cache.
		s.mu.RLock()
		st = s.cache[id]
		s.mu.RUnlock()
		if st != nil {
			return st, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// AppendOption adjusts a single append.
type AppendOption func(*appendConfig)

type appendConfig struct {
	nonSequential bool
	planted       []story.Foreshadowing
	resolved      []string
}

// WithNonSequential allows a chapter number other than max+1. Appends are
// sequential by default.
func WithNonSequential() AppendOption {
	return func(c *appendConfig) {
		c.nonSequential = true
	}
}

// WithForeshadowingPlanted records new planted entries with this chapter.
func WithForeshadowingPlanted(entries ...story.Foreshadowing) AppendOption {
	return func(c *appendConfig) {
		c.planted = append(c.planted, entries...)
	}
}

// WithForeshadowingResolved marks existing entries resolved by this chapter.
func WithForeshadowingResolved(ids ...string) AppendOption {
	return func(c *appendConfig) {
		c.resolved = append(c.resolved, ids...)
	}
}

// AppendChapter merges the chapter into the story under the story's keyed
// lock and persists the result atomically. A failed persist leaves both
// the in-memory and stored state exactly as they were.
func (s *Store) AppendChapter(ctx context.Context, id string, ch story.ChapterState, opts ...AppendOption) error {
	cfg := appendConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	return s.locks.withLock(id, func() error {
		cur, err := s.loadLocked(ctx, id)
		if err != nil {
			return err
		}

		if max := cur.MaxChapter(); !cfg.nonSequential && ch.Number != max+1 {
			return fmt.Errorf("%w: got %d, want %d", ErrNonSequentialChapter, ch.Number, max+1)
		}

		// Mutate a copy and swap it in only after a successful persist,
		// so concurrent readers see either the pre- or post-append state
		// and a failed save changes nothing.
		next := cur.Clone()
		if err := applyChapter(next, ch, cfg); err != nil {
			return err
		}

		if err := s.persist(ctx, next); err != nil {
			return err
		}

		s.mu.Lock()
		s.cache[id] = next
		s.mu.Unlock()

		s.logger.Info("chapter appended",
			"story", id,
			"chapter", ch.Number,
			"characters", len(ch.CharacterStates),
			"events", len(ch.KeyEvents))
		return nil
	})
}

// applyChapter folds a chapter into the story: chapters map, character
// registry, continuity snapshots, locations, timeline, and foreshadowing
// deltas.
func applyChapter(st *story.Story, ch story.ChapterState, cfg appendConfig) error {
	for _, f := range cfg.planted {
		if f.PlantedChapter == 0 {
			f.PlantedChapter = ch.Number
		}
		st.Plot.Foreshadowing = append(st.Plot.Foreshadowing, f)
	}
	for _, id := range cfg.resolved {
		if err := resolveForeshadowing(st, id, ch.Number); err != nil {
			return err
		}
	}

	st.Chapters[ch.Number] = ch

	for name, state := range ch.CharacterStates {
		profile := st.Characters.Ensure(name, ch.Number)
		profile.LastSeen = ch.Number
		for _, ability := range state.Abilities {
			if !hasAbility(profile.Abilities, ability) {
				profile.Abilities = append(profile.Abilities, ability)
			}
		}
		st.Continuity.CharacterSnaps[name] = state

		if state.Location != "" {
			st.Continuity.LocationStates[state.Location] = story.LocationState{
				Name:        state.Location,
				Description: st.Continuity.LocationStates[state.Location].Description,
				LastChapter: ch.Number,
			}
		}
	}

	participants := make([]string, 0, len(ch.CharacterStates))
	for name := range ch.CharacterStates {
		participants = append(participants, name)
	}
	sort.Strings(participants)
	for _, event := range ch.KeyEvents {
		st.Continuity.Timeline = append(st.Continuity.Timeline, story.TimelineEvent{
			Chapter:      ch.Number,
			Event:        event,
			Participants: participants,
			Significance: "chapter",
		})
	}

	if ch.Number > st.Metadata.CurrentChapter {
		st.Metadata.CurrentChapter = ch.Number
	}
	st.UpdatedAt = time.Now().UTC()
	return nil
}

func hasAbility(list []string, ability string) bool {
	for _, a := range list {
		if strings.EqualFold(a, ability) {
			return true
		}
	}
	return false
}

func resolveForeshadowing(st *story.Story, id string, chapter int) error {
	for _, list := range []*[]story.Foreshadowing{&st.Plot.Foreshadowing, &st.Plot.ChekhovGuns} {
		for i := range *list {
			f := &(*list)[i]
			if f.ID != id {
				continue
			}
			if chapter < f.PlantedChapter {
				return fmt.Errorf("%w: %s planted in chapter %d, resolution in %d",
					ErrResolveBeforePlant, id, f.PlantedChapter, chapter)
			}
			f.Resolved = true
			f.ResolvedChapter = chapter
			return nil
		}
	}
	return fmt.Errorf("foreshadowing entry %q not found", id)
}

// Delete removes the story from the cache and from storage.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.locks.withLock(id, func() error {
		delCtx, cancel := context.WithTimeout(ctx, s.persistTimeout)
		defer cancel()

		if err := s.storage.Delete(delCtx, storyPath(id)); err != nil {
			return &PersistenceError{Op: "delete", StoryID: id, Err: err}
		}

		s.mu.Lock()
		delete(s.cache, id)
		s.mu.Unlock()
		return nil
	})
}

func (s *Store) persist(ctx context.Context, st *story.Story) error {
	data, err := json.MarshalIndent(st.ToDocument(), "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", StoryID: st.ID, Err: err}
	}

	saveCtx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	if err := s.storage.Save(saveCtx, storyPath(st.ID), data); err != nil {
		return &PersistenceError{Op: "save", StoryID: st.ID, Err: err}
	}
	return nil
}

// defaultWorldbuilding seeds a new story with baseline rules. Every rule
// is struct-validated; a malformed rule is a fatal configuration error.
func (s *Store) defaultWorldbuilding(genre string) (story.Worldbuilding, error) {
	wb := story.Worldbuilding{
		Geography: make(map[string]string),
		MagicSystem: []story.WorldRule{
			{
				ID:          "magic-limited",
				Description: "magic is limited and always exacts a cost",
				Aspect:      "magic",
				Expected:    "limited",
				Importance:  "high",
			},
		},
		Hierarchy: []story.WorldRule{
			{
				ID:          "succession-hereditary",
				Description: "noble succession is hereditary",
				Aspect:      "succession",
				Expected:    "hereditary",
				Importance:  "medium",
			},
		},
		Rules: []string{"established character deaths are permanent"},
	}
	if genre != "" {
		wb.Rules = append(wb.Rules, fmt.Sprintf("genre conventions of %s apply", genre))
	}

	for _, rule := range append(append([]story.WorldRule{}, wb.MagicSystem...), wb.Hierarchy...) {
		if err := s.validate.Struct(rule); err != nil {
			return story.Worldbuilding{}, fmt.Errorf("%w: %s: %v", ErrInvalidWorldRule, rule.ID, err)
		}
	}
	return wb, nil
}

// AddWorldRule registers an additional world rule for the story, validated
// the same way as the defaults.
func (s *Store) AddWorldRule(ctx context.Context, id string, rule story.WorldRule) error {
	if err := s.validate.Struct(rule); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidWorldRule, rule.ID, err)
	}

	return s.locks.withLock(id, func() error {
		cur, err := s.loadLocked(ctx, id)
		if err != nil {
			return err
		}

		next := cur.Clone()
		if rule.Aspect == "magic" {
			next.Worldbuilding.MagicSystem = append(next.Worldbuilding.MagicSystem, rule)
		} else {
			next.Worldbuilding.Hierarchy = append(next.Worldbuilding.Hierarchy, rule)
		}

		if err := s.persist(ctx, next); err != nil {
			return err
		}

		s.mu.Lock()
		s.cache[id] = next
		s.mu.Unlock()
		return nil
	})
}
