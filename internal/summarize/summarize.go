package summarize

import "context"

// Result is the structured output of one summarization run.
type Result struct {
	Content     string   `json:"content"`
	ActionItems []string `json:"action_items"`
	KeyPoints   []string `json:"key_points"`
}

// Summarizer synthesizes a summary with action items and key points from a
// transcript.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (Result, error)
}
