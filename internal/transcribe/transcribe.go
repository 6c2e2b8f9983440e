package transcribe

import (
	"context"
	"io"
)

// Transcript is the result of one transcription run, treated as a single
// atomic step by the pipeline.
type Transcript struct {
	Text            string
	DurationSeconds float64
}

// Transcriber turns stored audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (Transcript, error)
}
