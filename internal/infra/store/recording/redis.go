package recstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/akarpov/talknotes/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// claimScript atomically moves a recording into "processing". Only
// "uploaded" and "error" may be claimed; a reclaim from "error" wipes the
// prior artifacts so the pipeline re-runs from scratch.
var claimScript = redis.NewScript(`
local status = redis.call("HGET", KEYS[1], "status")
if not status then return "missing" end
if status == "processing" then return "processing" end
if status == "completed" then return "completed" end
redis.call("HSET", KEYS[1], "status", "processing", "error_detail", "", "transcript", "", "summary", "", "updated_at", ARGV[1])
return "ok"
`)

// completeScript refuses to resurrect a recording deleted mid-pipeline.
var completeScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then return "missing" end
redis.call("HSET", KEYS[1], "status", ARGV[1], "summary", ARGV[2], "error_detail", ARGV[3], "updated_at", ARGV[4])
return "ok"
`)

// transcriptScript carries the same guard: a plain HSET would recreate
// the hash for a deleted recording.
var transcriptScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then return "missing" end
redis.call("HSET", KEYS[1], "transcript", ARGV[1], "duration", ARGV[2], "updated_at", ARGV[3])
return "ok"
`)

type redisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) *redisStore {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Create(ctx context.Context, p domain.CreateRecordingParams) (domain.Recording, error) {
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

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, recordingKey(rec.ID), map[string]interface{}{
		"id":              rec.ID,
		"title":           rec.Title,
		"status":          string(rec.Status),
		"audio_ref":       rec.AudioRef,
		"original_name":   rec.OriginalName,
		"file_size":       rec.FileSizeBytes,
		"duration":        rec.DurationSeconds,
		"transcript":      "",
		"summary":         "",
		"error_detail":    "",
		"created_at":      rec.CreatedAt.UnixNano(),
		"updated_at":      rec.UpdatedAt.UnixNano(),
	})
	pipe.ZAdd(ctx, recordingsByCreatedKey(), redis.Z{
		Score:  float64(rec.CreatedAt.Unix()),
		Member: rec.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Recording{}, fmt.Errorf("redis pipeline Create: %w", err)
	}

	return rec, nil
}

func (s *redisStore) Get(ctx context.Context, id string) (domain.Recording, error) {
	res, err := s.rdb.HGetAll(ctx, recordingKey(id)).Result()
	if err != nil {
		return domain.Recording{}, fmt.Errorf("redis HGetAll: %w", err)
	}
	if len(res) == 0 {
		return domain.Recording{}, domain.ErrNotFound
	}

	return recordingFromHash(id, res), nil
}

func (s *redisStore) List(ctx context.Context) ([]domain.Recording, error) {
	ids, err := s.rdb.ZRevRange(ctx, recordingsByCreatedKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ZRevRange: %w", err)
	}

	recs := make([]domain.Recording, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *redisStore) Claim(ctx context.Context, id string) (domain.Recording, error) {
	res, err := claimScript.Run(ctx, s.rdb,
		[]string{recordingKey(id)},
		time.Now().UnixNano(),
	).Text()
	if err != nil {
		return domain.Recording{}, fmt.Errorf("redis claim: %w", err)
	}

	switch res {
	case "ok":
		return s.Get(ctx, id)
	case "missing":
		return domain.Recording{}, domain.ErrNotFound
	case "processing":
		return domain.Recording{}, domain.ErrAlreadyProcessing
	case "completed":
		return domain.Recording{}, domain.ErrAlreadyCompleted
	default:
		return domain.Recording{}, fmt.Errorf("redis claim: unexpected result %q", res)
	}
}

func (s *redisStore) SetTranscript(ctx context.Context, id, transcript string, durationSeconds float64) error {
	res, err := transcriptScript.Run(ctx, s.rdb,
		[]string{recordingKey(id)},
		transcript, durationSeconds, time.Now().UnixNano(),
	).Text()
	if err != nil {
		return fmt.Errorf("redis SetTranscript: %w", err)
	}
	if res == "missing" {
		return domain.ErrNotFound
	}
	return nil
}

func (s *redisStore) SetCompleted(ctx context.Context, id string, summary domain.Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return s.finish(ctx, id, domain.StatusCompleted, string(raw), "")
}

func (s *redisStore) SetError(ctx context.Context, id, detail string) error {
	return s.finish(ctx, id, domain.StatusError, "", detail)
}

func (s *redisStore) finish(ctx context.Context, id string, status domain.Status, summary, detail string) error {
	res, err := completeScript.Run(ctx, s.rdb,
		[]string{recordingKey(id)},
		string(status), summary, detail, time.Now().UnixNano(),
	).Text()
	if err != nil {
		return fmt.Errorf("redis finish: %w", err)
	}
	if res == "missing" {
		return domain.ErrNotFound
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	exists, err := s.rdb.Exists(ctx, recordingKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis Exists: %w", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, recordingKey(id))
	pipe.ZRem(ctx, recordingsByCreatedKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline Delete: %w", err)
	}
	return nil
}

func recordingFromHash(id string, res map[string]string) domain.Recording {
	rec := domain.Recording{ID: id}

	rec.Title = res["title"]
	rec.Status = domain.Status(res["status"])
	rec.AudioRef = res["audio_ref"]
	rec.OriginalName = res["original_name"]
	rec.Transcript = res["transcript"]
	rec.ErrorDetail = res["error_detail"]

	if v := res["file_size"]; v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			rec.FileSizeBytes = n
		}
	}
	if v := res["duration"]; v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			rec.DurationSeconds = f
		}
	}
	if v := res["summary"]; v != "" {
		var sum domain.Summary
		if err := json.Unmarshal([]byte(v), &sum); err == nil {
			rec.Summary = &sum
		} else {
			slog.Warn("redis: corrupt summary payload", slog.String("recording_id", id))
		}
	}
	if v := res["created_at"]; v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			rec.CreatedAt = time.Unix(0, n)
		}
	}
	if v := res["updated_at"]; v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			rec.UpdatedAt = time.Unix(0, n)
		}
	}

	return rec
}

func recordingKey(id string) string {
	return "recording:" + id
}

func recordingsByCreatedKey() string {
	return "recordings:by_created"
}
