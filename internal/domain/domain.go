package domain

import (
	"errors"
	"time"
)

type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// CanTransition is the authoritative lifecycle graph. Status only moves
// forward; the single backward edge is error -> processing, taken on an
// explicit reprocess request.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusUploaded:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusError
	case StatusError:
		return to == StatusProcessing
	default:
		return false
	}
}

// Terminal reports whether no further automatic transition occurs.
func Terminal(s Status) bool {
	return s == StatusCompleted || s == StatusError
}

type Recording struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	Status Status `json:"status"`

	// AudioRef is the stored object name, immutable after creation.
	AudioRef string `json:"audio_ref"`

	OriginalName    string  `json:"original_name"`
	FileSizeBytes   int64   `json:"file_size_bytes"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`

	Transcript  string `json:"transcript,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`

	Summary *Summary `json:"summary,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary exists only for a completed Recording and is removed with it.
type Summary struct {
	Content     string   `json:"content"`
	ActionItems []string `json:"action_items"`
	KeyPoints   []string `json:"key_points"`
}

type CreateRecordingParams struct {
	Title         string
	OriginalName  string
	AudioRef      string
	FileSizeBytes int64
}

type ProcessMode string

const (
	ModeSync  ProcessMode = "sync"
	ModeAsync ProcessMode = "async"
)

// ProcessResult is the bundle returned by a sync process call. In async
// mode only ID and Status are populated at return time.
type ProcessResult struct {
	ID          string   `json:"id"`
	Status      Status   `json:"status"`
	Transcript  string   `json:"transcript,omitempty"`
	Summary     *Summary `json:"summary,omitempty"`
	ErrorDetail string   `json:"error_detail,omitempty"`
}

// StatusSnapshot is the projector's read model: status plus whatever
// artifacts exist at call time.
type StatusSnapshot struct {
	ID          string   `json:"id"`
	Status      Status   `json:"status"`
	Transcript  string   `json:"transcript,omitempty"`
	Summary     *Summary `json:"summary,omitempty"`
	ErrorDetail string   `json:"error_detail,omitempty"`
}

type UploadResponse struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Status        Status `json:"status"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

type RecordingList struct {
	Recordings []Recording `json:"recordings"`
	Total      int         `json:"total"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var (
	ErrNotFound          = errors.New("recording not found")
	ErrAlreadyProcessing = errors.New("recording is already processing")
	ErrAlreadyCompleted  = errors.New("recording is already completed")
	ErrValidation        = errors.New("validation failed")
)
