package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/akarpov/talknotes/internal/domain"
	"github.com/akarpov/talknotes/internal/summarize"
	"github.com/akarpov/talknotes/internal/transcribe"

	"github.com/google/uuid"
)

type RecordingStore interface {
	Create(ctx context.Context, p domain.CreateRecordingParams) (domain.Recording, error)
	Get(ctx context.Context, id string) (domain.Recording, error)
	List(ctx context.Context) ([]domain.Recording, error)
	Claim(ctx context.Context, id string) (domain.Recording, error)
	SetTranscript(ctx context.Context, id, transcript string, durationSeconds float64) error
	SetCompleted(ctx context.Context, id string, summary domain.Summary) error
	SetError(ctx context.Context, id, detail string) error
	Delete(ctx context.Context, id string) error
}

type FileStore interface {
	Save(ctx context.Context, reader io.Reader, name string, size int64) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, name string) error
}

type Queue interface {
	Enqueue(ctx context.Context, recordingID string) error
}

var allowedAudioExts = map[string]bool{
	".mp3": true,
	".m4a": true,
	".wav": true,
	".aac": true,
	".mp4": true,
}

type usecase struct {
	store       RecordingStore
	files       FileStore
	queue       Queue
	transcriber transcribe.Transcriber
	summarizer  summarize.Summarizer
}

func New(
	store RecordingStore,
	files FileStore,
	queue Queue,
	transcriber transcribe.Transcriber,
	summarizer summarize.Summarizer,
) *usecase {
	return &usecase{
		store:       store,
		files:       files,
		queue:       queue,
		transcriber: transcriber,
		summarizer:  summarizer,
	}
}

// Upload validates and stores the audio, then creates the recording in
// state "uploaded". Validation failures happen before any state change.
func (uc *usecase) Upload(ctx context.Context, title, filename string, size int64, file io.Reader) (domain.Recording, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Recording{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedAudioExts[ext] {
		return domain.Recording{}, fmt.Errorf("%w: unsupported audio type %q", domain.ErrValidation, ext)
	}

	audioRef := uuid.NewString() + ext
	written, err := uc.files.Save(ctx, file, audioRef, size)
	if err != nil {
		return domain.Recording{}, fmt.Errorf("save audio: %w", err)
	}
	if written == 0 {
		_ = uc.files.Delete(ctx, audioRef)
		return domain.Recording{}, fmt.Errorf("%w: empty audio file", domain.ErrValidation)
	}

	rec, err := uc.store.Create(ctx, domain.CreateRecordingParams{
		Title:         title,
		OriginalName:  filename,
		AudioRef:      audioRef,
		FileSizeBytes: written,
	})
	if err != nil {
		_ = uc.files.Delete(ctx, audioRef)
		return domain.Recording{}, fmt.Errorf("create recording: %w", err)
	}

	return rec, nil
}

// Process claims the recording and drives it through the pipeline. The
// claim is the mutual-exclusion point: at most one active run per
// recording. A completed recording is not re-run; its stored bundle is
// returned as-is.
func (uc *usecase) Process(ctx context.Context, id string, mode domain.ProcessMode) (domain.ProcessResult, error) {
	rec, err := uc.store.Claim(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyCompleted) {
			cur, gerr := uc.store.Get(ctx, id)
			if gerr != nil {
				return domain.ProcessResult{}, gerr
			}
			return resultFrom(cur), nil
		}
		return domain.ProcessResult{}, err
	}

	if mode == domain.ModeAsync {
		if err := uc.queue.Enqueue(ctx, rec.ID); err != nil {
			slog.Error("enqueue failed",
				slog.String("recording_id", rec.ID),
				slog.String("error", err.Error()),
			)
			_ = uc.store.SetError(ctx, rec.ID, "enqueue: "+err.Error())
			return domain.ProcessResult{}, fmt.Errorf("enqueue: %w", err)
		}
		return domain.ProcessResult{ID: rec.ID, Status: domain.StatusProcessing}, nil
	}

	if err := uc.Run(ctx, rec.ID); err != nil {
		return domain.ProcessResult{}, err
	}

	cur, err := uc.store.Get(ctx, rec.ID)
	if err != nil {
		return domain.ProcessResult{}, err
	}
	return resultFrom(cur), nil
}

// Run executes the pipeline stages for an already-claimed recording.
// Stage failures are persisted as the terminal error state and reported as
// nil: they must not be retried by the queue. A non-nil return means the
// terminal state could not be persisted and the run may be redelivered.
func (uc *usecase) Run(ctx context.Context, id string) error {
	rec, err := uc.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("recording deleted before processing", slog.String("recording_id", id))
			return nil
		}
		return err
	}

	audio, _, err := uc.files.Open(ctx, rec.AudioRef)
	if err != nil {
		return uc.fail(ctx, id, "transcription", err)
	}

	tr, err := uc.transcriber.Transcribe(ctx, audio)
	audio.Close()
	if err != nil {
		return uc.fail(ctx, id, "transcription", err)
	}
	if strings.TrimSpace(tr.Text) == "" {
		return uc.fail(ctx, id, "transcription", fmt.Errorf("empty transcript"))
	}

	if err := uc.store.SetTranscript(ctx, id, tr.Text, tr.DurationSeconds); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("recording deleted during processing", slog.String("recording_id", id))
			return nil
		}
		return err
	}

	res, err := uc.summarizer.Summarize(ctx, tr.Text)
	if err != nil {
		return uc.fail(ctx, id, "summarization", err)
	}

	summary := domain.Summary{
		Content:     res.Content,
		ActionItems: res.ActionItems,
		KeyPoints:   res.KeyPoints,
	}
	if err := uc.store.SetCompleted(ctx, id, summary); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("recording deleted during processing", slog.String("recording_id", id))
			return nil
		}
		return err
	}

	slog.Info("processing completed", slog.String("recording_id", id))
	return nil
}

func (uc *usecase) fail(ctx context.Context, id, stage string, cause error) error {
	detail := stage + ": " + cause.Error()
	slog.Warn("pipeline stage failed",
		slog.String("recording_id", id),
		slog.String("stage", stage),
		slog.String("error", cause.Error()),
	)

	if err := uc.store.SetError(ctx, id, detail); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("recording deleted during processing", slog.String("recording_id", id))
			return nil
		}
		return err
	}
	return nil
}

// GetStatus is a pure read of the current persisted state: status plus
// whatever artifacts exist at call time. Terminal statuses never revert.
func (uc *usecase) GetStatus(ctx context.Context, id string) (domain.StatusSnapshot, error) {
	rec, err := uc.store.Get(ctx, id)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}

	return domain.StatusSnapshot{
		ID:          rec.ID,
		Status:      rec.Status,
		Transcript:  rec.Transcript,
		Summary:     rec.Summary,
		ErrorDetail: rec.ErrorDetail,
	}, nil
}

func (uc *usecase) Get(ctx context.Context, id string) (domain.Recording, error) {
	return uc.store.Get(ctx, id)
}

func (uc *usecase) List(ctx context.Context) ([]domain.Recording, error) {
	return uc.store.List(ctx)
}

// Delete removes the recording and its summary atomically; the stored
// audio is removed best effort afterwards.
func (uc *usecase) Delete(ctx context.Context, id string) error {
	rec, err := uc.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.store.Delete(ctx, id); err != nil {
		return err
	}

	if err := uc.files.Delete(ctx, rec.AudioRef); err != nil {
		slog.Warn("delete audio",
			slog.String("recording_id", id),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

func resultFrom(rec domain.Recording) domain.ProcessResult {
	return domain.ProcessResult{
		ID:          rec.ID,
		Status:      rec.Status,
		Transcript:  rec.Transcript,
		Summary:     rec.Summary,
		ErrorDetail: rec.ErrorDetail,
	}
}
