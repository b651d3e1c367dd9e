package types

import "time"

// Entry represents one recorded interaction: the user's prompt, the model's
// response, and where it happened. Entries are append-only; the ID is assigned
// by the store at insert time and never changes.
type Entry struct {
	ID          int64
	Prompt      string
	Response    string
	WorkingDir  string
	TimestampMS int64 // Milliseconds since epoch, assigned at insert
}

// Time returns the entry timestamp as a time.Time.
func (e *Entry) Time() time.Time {
	return time.UnixMilli(e.TimestampMS)
}

// EmbeddingText returns the text embedded for this entry: prompt and
// response joined so both sides of the interaction contribute to
// semantic recall.
func (e *Entry) EmbeddingText() string {
	return e.Prompt + "\n" + e.Response
}

// Validate checks if the entry is well-formed for insertion.
func (e *Entry) Validate() error {
	if e.Prompt == "" {
		return ErrEmptyPrompt
	}
	return nil
}
