package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLocalSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	written, err := s.Save(ctx, strings.NewReader("audio bytes"), "rec.mp3", 0)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if written != int64(len("audio bytes")) {
		t.Errorf("written = %d, want %d", written, len("audio bytes"))
	}

	rc, size, err := s.Open(ctx, "rec.mp3")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	if size != written {
		t.Errorf("size = %d, want %d", size, written)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "audio bytes" {
		t.Errorf("content = %q", got)
	}

	if err := s.Delete(ctx, "rec.mp3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := s.Open(ctx, "rec.mp3"); err == nil {
		t.Error("Open succeeded after delete")
	}

	// Deleting a missing file is not an error.
	if err := s.Delete(ctx, "rec.mp3"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestLocalRejectsPathTraversal(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	for _, name := range []string{"", "  ", "../escape.mp3", "../../etc/passwd"} {
		if _, err := s.Save(ctx, strings.NewReader("x"), name, 0); err == nil {
			t.Errorf("Save(%q) succeeded, want error", name)
		}
	}
}

func TestLocalCleanupOlderThan(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	for _, name := range []string{"orphan.mp3", "kept.mp3", "new.mp3"} {
		if _, err := s.Save(ctx, strings.NewReader("audio"), name, 0); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
	}

	stale := time.Now().Add(-48 * time.Hour)
	for _, name := range []string{"orphan.mp3", "kept.mp3"} {
		if err := os.Chtimes(filepath.Join(dir, name), stale, stale); err != nil {
			t.Fatalf("Chtimes %s: %v", name, err)
		}
	}

	if err := s.CleanupOlderThan(ctx, 24*time.Hour, map[string]bool{"kept.mp3": true}); err != nil {
		t.Fatalf("CleanupOlderThan: %v", err)
	}

	if _, _, err := s.Open(ctx, "orphan.mp3"); err == nil {
		t.Error("stale orphan survived cleanup")
	}
	if _, _, err := s.Open(ctx, "kept.mp3"); err != nil {
		t.Errorf("referenced file removed by cleanup despite its age: %v", err)
	}
	if _, _, err := s.Open(ctx, "new.mp3"); err != nil {
		t.Errorf("fresh file removed by cleanup: %v", err)
	}
}
