package config

import "time"

type Limits struct {
	MaxConcurrentValidations int           `yaml:"max_concurrent_validations" validate:"required,min=1,max=100"`
	PersistTimeout           time.Duration `yaml:"persist_timeout" validate:"required,min=1s,max=5m"`
	MaxChapterWords          int           `yaml:"max_chapter_words" validate:"required,min=100,max=100000"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxConcurrentValidations: 8,
		PersistTimeout:           10 * time.Second,
		MaxChapterWords:          20000,
	}
}
