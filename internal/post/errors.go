package post

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingFile is returned when a post directory has no markdown file.
	ErrMissingFile = errors.New("missing post file")
	// ErrMissingMetadata is returned when a required front-matter key is absent.
	ErrMissingMetadata = errors.New("missing required metadata")
)

// LoadError reports which post stopped a load.
type LoadError struct {
	ID   string
	File string
	Err  error
}

func (e *LoadError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("post: load %s: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("post: load %s/%s: %v", e.ID, e.File, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
