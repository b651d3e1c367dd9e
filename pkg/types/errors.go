package types

import "errors"

// Domain errors for type validation
var (
	// Entry errors
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// Search result errors
	ErrMissingEntry  = errors.New("entry is required")
	ErrInvalidScore  = errors.New("score must be between 0 and 1")
	ErrInvalidOrigin = errors.New("origin must be keyword, vector, or both")
)
