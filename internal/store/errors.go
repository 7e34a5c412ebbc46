package store

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateStory is returned by Initialize when the slug is taken.
	ErrDuplicateStory = errors.New("story already exists")

	// ErrStoryNotFound is returned when neither storage nor the content
	// source can produce the story.
	ErrStoryNotFound = errors.New("story not found")

	// ErrNonSequentialChapter rejects an append whose chapter number is
	// not exactly max+1. Sequential-by-default; see WithNonSequential.
	ErrNonSequentialChapter = errors.New("chapter number is not sequential")

	// ErrResolveBeforePlant rejects marking a foreshadowing entry
	// resolved in a chapter earlier than the one that planted it.
	ErrResolveBeforePlant = errors.New("foreshadowing resolved before planted chapter")

	// ErrInvalidWorldRule reports a malformed world rule. Fatal, no retry.
	ErrInvalidWorldRule = errors.New("invalid world rule")
)

// PersistenceError wraps an I/O failure on load or save. The in-memory and
// persisted story state are unchanged when one of these is returned.
type PersistenceError struct {
	Op      string
	StoryID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed for story %s: %v", e.Op, e.StoryID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError checks whether err is a persistence failure the
// caller should retry or abort on.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
