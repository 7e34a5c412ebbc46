// Package source is the inbound collaborator contract: the external
// content store the pipeline reads chapter text and novel metadata from.
package source

import (
	"context"
	"time"
)

// ChapterText is what the content store returns for one chapter.
type ChapterText struct {
	Text        string    `json:"text"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
}

// NovelMetadata describes a work as the content store knows it.
type NovelMetadata struct {
	Title  string   `json:"title"`
	Author string   `json:"author"`
	Genre  string   `json:"genre"`
	Tropes []string `json:"tropes"`
}

// ContentSource exposes the two read operations the continuity core
// consumes. Implementations own transport, retries, and rate limiting.
type ContentSource interface {
	GetChapterText(ctx context.Context, novelID string, chapter int) (ChapterText, error)
	GetNovelMetadata(ctx context.Context, novelID string) (NovelMetadata, error)
}
