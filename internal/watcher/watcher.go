package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/akarpov/talknotes/internal/domain"

	"github.com/fsnotify/fsnotify"
)

// Ingestor is the slice of the usecase the watcher needs: create a
// recording from a local file and kick off async processing.
type Ingestor interface {
	Upload(ctx context.Context, title, filename string, size int64, file io.Reader) (domain.Recording, error)
	Process(ctx context.Context, id string, mode domain.ProcessMode) (domain.ProcessResult, error)
}

var audioExts = map[string]bool{
	".mp3": true,
	".m4a": true,
	".wav": true,
	".aac": true,
	".mp4": true,
}

// inbox watches a drop folder: every new audio file becomes an uploaded
// recording that is immediately queued for processing.
type inbox struct {
	dir       string
	ingestor  Ingestor
	watcher   *fsnotify.Watcher
	semaphore chan struct{}
	wg        sync.WaitGroup
}

func New(dir string, ingestor Ingestor, maxConcurrent int) (*inbox, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}

	return &inbox{
		dir:       dir,
		ingestor:  ingestor,
		watcher:   w,
		semaphore: make(chan struct{}, maxConcurrent),
	}, nil
}

func (in *inbox) Start(ctx context.Context) error {
	slog.Info("inbox watcher started", slog.String("dir", in.dir))

	for {
		select {
		case <-ctx.Done():
			in.wg.Wait()
			slog.Info("inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-in.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !isAudioFile(event.Name) {
				slog.Debug("ignoring non-audio file", slog.String("path", event.Name))
				continue
			}

			slog.Info("new audio detected", slog.String("path", event.Name))

			// Give the writer a moment to finish the file.
			time.Sleep(500 * time.Millisecond)

			select {
			case in.semaphore <- struct{}{}:
				in.wg.Add(1)
				go func(path string) {
					defer in.wg.Done()
					defer func() { <-in.semaphore }()

					if err := in.ingest(ctx, path); err != nil {
						slog.Error("ingest failed",
							slog.String("path", path),
							slog.String("error", err.Error()),
						)
					}
				}(event.Name)
			case <-ctx.Done():
				return ctx.Err()
			}

		case err, ok := <-in.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			slog.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

func (in *inbox) Stop() error {
	return in.watcher.Close()
}

func (in *inbox) ingest(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat file: %w", err)
	}

	name := filepath.Base(path)
	title := strings.TrimSuffix(name, filepath.Ext(name))

	rec, err := in.ingestor.Upload(ctx, title, name, info.Size(), f)
	f.Close()
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	if _, err := in.ingestor.Process(ctx, rec.ID, domain.ModeAsync); err != nil {
		return fmt.Errorf("process: %w", err)
	}

	if err := os.Remove(path); err != nil {
		slog.Warn("remove ingested file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}

	slog.Info("ingested recording",
		slog.String("recording_id", rec.ID),
		slog.String("title", title),
	)
	return nil
}

func isAudioFile(path string) bool {
	return audioExts[strings.ToLower(filepath.Ext(path))]
}
