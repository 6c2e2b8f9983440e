package recstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akarpov/talknotes/internal/domain"

	"github.com/google/uuid"
)

// memoryStore keeps recordings in a mutex-guarded map. It backs tests and
// single-node deployments running without Redis.
type memoryStore struct {
	mu   sync.Mutex
	recs map[string]domain.Recording
}

func NewMemoryStore() *memoryStore {
	return &memoryStore{recs: make(map[string]domain.Recording)}
}

func (s *memoryStore) Create(ctx context.Context, p domain.CreateRecordingParams) (domain.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec := domain.Recording{
		ID:            uuid.NewString(),
		Title:         p.Title,
		Status:        domain.StatusUploaded,
		AudioRef:      p.AudioRef,
		OriginalName:  p.OriginalName,
		FileSizeBytes: p.FileSizeBytes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.recs[rec.ID] = rec
	return rec, nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (domain.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[id]
	if !ok {
		return domain.Recording{}, domain.ErrNotFound
	}
	return rec, nil
}

func (s *memoryStore) List(ctx context.Context) ([]domain.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]domain.Recording, 0, len(s.recs))
	for _, rec := range s.recs {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}

func (s *memoryStore) Claim(ctx context.Context, id string) (domain.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[id]
	if !ok {
		return domain.Recording{}, domain.ErrNotFound
	}

	switch rec.Status {
	case domain.StatusProcessing:
		return domain.Recording{}, domain.ErrAlreadyProcessing
	case domain.StatusCompleted:
		return domain.Recording{}, domain.ErrAlreadyCompleted
	}

	rec.Status = domain.StatusProcessing
	rec.Transcript = ""
	rec.ErrorDetail = ""
	rec.Summary = nil
	rec.UpdatedAt = time.Now()
	s.recs[id] = rec
	return rec, nil
}

func (s *memoryStore) SetTranscript(ctx context.Context, id, transcript string, durationSeconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Transcript = transcript
	rec.DurationSeconds = durationSeconds
	rec.UpdatedAt = time.Now()
	s.recs[id] = rec
	return nil
}

func (s *memoryStore) SetCompleted(ctx context.Context, id string, summary domain.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = domain.StatusCompleted
	rec.Summary = &summary
	rec.ErrorDetail = ""
	rec.UpdatedAt = time.Now()
	s.recs[id] = rec
	return nil
}

func (s *memoryStore) SetError(ctx context.Context, id, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = domain.StatusError
	rec.ErrorDetail = detail
	rec.Summary = nil
	rec.UpdatedAt = time.Now()
	s.recs[id] = rec
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.recs, id)
	return nil
}
