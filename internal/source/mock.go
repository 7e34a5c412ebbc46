package source

import (
	"context"
	"fmt"
	"time"
)

// MockSource provides canned chapters and metadata for tests and for
// wiring the store's lazy-initialization path without a live content store.
type MockSource struct {
	Chapters map[string]map[int]ChapterText
	Metadata map[string]NovelMetadata
}

func NewMockSource() *MockSource {
	return &MockSource{
		Chapters: make(map[string]map[int]ChapterText),
		Metadata: make(map[string]NovelMetadata),
	}
}

// AddChapter registers a chapter for a novel.
func (m *MockSource) AddChapter(novelID string, chapter int, title, text string, publishedAt time.Time) {
	if m.Chapters[novelID] == nil {
		m.Chapters[novelID] = make(map[int]ChapterText)
	}
	m.Chapters[novelID][chapter] = ChapterText{Text: text, Title: title, PublishedAt: publishedAt}
}

func (m *MockSource) GetChapterText(ctx context.Context, novelID string, chapter int) (ChapterText, error) {
	if ch, ok := m.Chapters[novelID][chapter]; ok {
		return ch, nil
	}
	return ChapterText{}, fmt.Errorf("no chapter %d for novel %s", chapter, novelID)
}

func (m *MockSource) GetNovelMetadata(ctx context.Context, novelID string) (NovelMetadata, error) {
	if meta, ok := m.Metadata[novelID]; ok {
		return meta, nil
	}
	return NovelMetadata{}, fmt.Errorf("no metadata for novel %s", novelID)
}
