package continuity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chapterline/continuity/internal/config"
	"github.com/chapterline/continuity/internal/extract"
	"github.com/chapterline/continuity/internal/pipeline"
	"github.com/chapterline/continuity/internal/score"
	"github.com/chapterline/continuity/internal/source"
	"github.com/chapterline/continuity/internal/storage"
	"github.com/chapterline/continuity/internal/store"
	"github.com/chapterline/continuity/internal/suggest"
	"github.com/chapterline/continuity/internal/validate"
)

// Report is the outcome of processing one chapter: the validation result,
// the combined score and grade, and remediation suggestions when the
// chapter was rejected.
type Report struct {
	RunID       string          `json:"run_id"`
	StoryID     string          `json:"story_id"`
	Chapter     int             `json:"chapter"`
	Result      Result          `json:"result"`
	Overall     float64         `json:"overall"`
	Grade       string          `json:"grade"`
	Suggestions []FixSuggestion `json:"suggestions,omitempty"`
	Accepted    bool            `json:"accepted"`
}

// Engine wires extraction, state storage, validation, scoring, and fix
// suggestion into one pipeline entry point.
type Engine struct {
	analyzer  extract.Analyzer
	store     *store.Store
	validator *validate.Validator
	suggester *suggest.Engine
	scorer    *score.Scorer
	source    source.ContentSource
	limits    config.Limits
	logger    *slog.Logger
}

type EngineOption func(*Engine)

// WithContentSource overrides the content source built from config (or
// supplies one when the config has no source endpoint).
func WithContentSource(src ContentSource) EngineOption {
	return func(e *Engine) {
		e.source = src
	}
}

// WithAnalyzer swaps the text-analysis backend.
func WithAnalyzer(a extract.Analyzer) EngineOption {
	return func(e *Engine) {
		e.analyzer = a
	}
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine builds an engine from configuration.
func NewEngine(cfg *Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	e := &Engine{
		analyzer: extract.NewHeuristicAnalyzer(
			extract.WithNameThreshold(cfg.Extraction.NameThreshold),
			extract.WithKeyEventLimit(cfg.Extraction.KeyEventLimit),
		),
		validator: validate.New(cfg.Thresholds),
		suggester: suggest.NewEngine(),
		scorer:    score.NewScorer(cfg.Weights),
		limits:    cfg.Limits,
		logger:    slog.Default().With("component", "continuity_engine"),
	}

	if cfg.Source.BaseURL != "" {
		e.source = source.NewClient(cfg.Source.BaseURL,
			source.WithTimeout(time.Duration(cfg.Source.TimeoutSeconds)*time.Second),
			source.WithRateLimit(cfg.Source.RequestsPerMinute, cfg.Source.Burst),
		)
	}

	for _, opt := range opts {
		opt(e)
	}

	storeOpts := []store.StoreOption{
		store.WithPersistTimeout(cfg.Limits.PersistTimeout),
		store.WithLogger(e.logger.With("component", "story_store")),
	}
	if e.source != nil {
		storeOpts = append(storeOpts, store.WithContentSource(e.source))
	}
	e.store = store.New(storage.NewFileSystem(cfg.Storage.BaseDir), storeOpts...)

	return e, nil
}

// InitializeStory creates the durable record for a new story.
func (e *Engine) InitializeStory(ctx context.Context, id string, meta Metadata) (*Story, error) {
	return e.store.Initialize(ctx, id, meta)
}

// StoryState returns a snapshot of the story's accumulated state.
func (e *Engine) StoryState(ctx context.Context, id string) (*Story, error) {
	return e.store.Get(ctx, id)
}

// DeleteStory removes the story's in-memory and persisted state.
func (e *Engine) DeleteStory(ctx context.Context, id string) error {
	return e.store.Delete(ctx, id)
}

// AddWorldRule registers an extra checkable world rule for a story.
func (e *Engine) AddWorldRule(ctx context.Context, id string, rule WorldRule) error {
	return e.store.AddWorldRule(ctx, id, rule)
}

// ProcessChapter fetches the chapter from the content source, validates it
// against the story's accumulated state, and either appends it to the
// canon or returns the violations with suggested fixes. The append for a
// given story id is serialized by the store.
func (e *Engine) ProcessChapter(ctx context.Context, storyID string, chapter int, appendOpts ...store.AppendOption) (*Report, error) {
	if e.source == nil {
		return nil, fmt.Errorf("no content source configured")
	}

	text, err := e.source.GetChapterText(ctx, storyID, chapter)
	if err != nil {
		return nil, fmt.Errorf("loading chapter text: %w", err)
	}

	report, chState, err := e.validateText(ctx, storyID, chapter, text.Title, text.Text, text.PublishedAt)
	if err != nil {
		return nil, err
	}

	if report.Result.Valid {
		if err := e.store.AppendChapter(ctx, storyID, chState, appendOpts...); err != nil {
			return report, err
		}
		report.Accepted = true
	}

	e.logger.Info("chapter processed",
		"run", report.RunID,
		"story", storyID,
		"chapter", chapter,
		"valid", report.Result.Valid,
		"accepted", report.Accepted,
		"confidence", report.Result.Confidence,
		"grade", report.Grade)
	return report, nil
}

// ValidateChapter checks chapter text against the story state without
// appending anything, for dry runs and regeneration loops.
func (e *Engine) ValidateChapter(ctx context.Context, storyID string, chapter int, title, text string, publishedAt time.Time) (*Report, error) {
	report, _, err := e.validateText(ctx, storyID, chapter, title, text, publishedAt)
	return report, err
}

func (e *Engine) validateText(ctx context.Context, storyID string, chapter int, title, text string, publishedAt time.Time) (*Report, ChapterState, error) {
	if limit := e.limits.MaxChapterWords; limit > 0 {
		if words := len(strings.Fields(text)); words > limit {
			return nil, ChapterState{}, fmt.Errorf("chapter %d of %s is %d words, over the %d word limit", chapter, storyID, words, limit)
		}
	}

	st, err := e.store.Get(ctx, storyID)
	if err != nil {
		return nil, ChapterState{}, err
	}

	chState := extract.ChapterState(e.analyzer, chapter, title, text, publishedAt)
	result := e.validator.ValidateAllAspects(st, validate.Chapter{ChapterState: chState, Text: text})

	report := &Report{
		RunID:   uuid.New().String(),
		StoryID: storyID,
		Chapter: chapter,
		Result:  result,
		Overall: e.scorer.Score(result.AspectScores),
	}
	report.Grade = e.scorer.Grade(report.Overall)

	if !result.Valid {
		report.Suggestions = e.suggester.SuggestFixes(result.Errors)
	}
	return report, chState, nil
}

// ChapterRef identifies one chapter of one story for batch processing.
type ChapterRef struct {
	StoryID string
	Chapter int
}

// ID implements pipeline.Job.
func (r ChapterRef) ID() string {
	return fmt.Sprintf("%s#%d", r.StoryID, r.Chapter)
}

// ProcessBatch validates and appends chapters for many stories with
// bounded concurrency. Chapters of different stories run in parallel;
// the per-story lock in the store keeps same-story appends serialized.
func (e *Engine) ProcessBatch(ctx context.Context, refs []ChapterRef) ([]pipeline.Outcome[*Report], error) {
	pool := pipeline.NewWorkerPool[ChapterRef, *Report](
		pipeline.WithWorkers(e.limits.MaxConcurrentValidations),
		pipeline.WithLogger(e.logger.With("component", "batch")),
	)
	return pool.Process(ctx, refs, func(ctx context.Context, ref ChapterRef) (*Report, error) {
		return e.ProcessChapter(ctx, ref.StoryID, ref.Chapter)
	})
}
