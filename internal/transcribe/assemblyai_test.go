package transcribe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fakeAssemblyAI serves the three endpoints the client touches: upload,
// job creation and job polling.
type fakeAssemblyAI struct {
	t *testing.T

	uploadedBody atomic.Pointer[string]
	polls        atomic.Int32
	// pollsUntilDone is how many "processing" responses precede the
	// terminal one.
	pollsUntilDone int32
	finalStatus    string
	finalText      string
	finalError     string
}

func (f *fakeAssemblyAI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		s := string(body)
		f.uploadedBody.Store(&s)
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/audio-1"})
	})

	mux.HandleFunc("POST /transcript", func(w http.ResponseWriter, r *http.Request) {
		var req transcriptReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.AudioURL != "https://cdn.example/audio-1" {
			f.t.Errorf("job created with audio_url %q", req.AudioURL)
		}
		json.NewEncoder(w).Encode(transcriptResp{ID: "job-1", Status: "queued"})
	})

	mux.HandleFunc("GET /transcript/job-1", func(w http.ResponseWriter, r *http.Request) {
		n := f.polls.Add(1)
		resp := transcriptResp{ID: "job-1", Status: "processing"}
		if n > f.pollsUntilDone {
			resp.Status = f.finalStatus
			resp.Text = f.finalText
			resp.Error = f.finalError
			resp.AudioDuration = 12.5
		}
		json.NewEncoder(w).Encode(resp)
	})

	return mux
}

func TestAssemblyAITranscribe(t *testing.T) {
	fake := &fakeAssemblyAI{t: t, pollsUntilDone: 2, finalStatus: "completed", finalText: "hello team"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewAssemblyAI("test-key", WithBaseURL(srv.URL), WithPollInterval(time.Millisecond))

	tr, err := client.Transcribe(context.Background(), strings.NewReader("raw audio bytes"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if tr.Text != "hello team" {
		t.Errorf("text = %q, want %q", tr.Text, "hello team")
	}
	if tr.DurationSeconds != 12.5 {
		t.Errorf("duration = %v, want 12.5", tr.DurationSeconds)
	}
	if got := fake.uploadedBody.Load(); got == nil || *got != "raw audio bytes" {
		t.Error("audio bytes were not uploaded verbatim")
	}
	if got := fake.polls.Load(); got != 3 {
		t.Errorf("polled %d times, want 3", got)
	}
}

func TestAssemblyAITranscribeJobError(t *testing.T) {
	fake := &fakeAssemblyAI{t: t, finalStatus: "error", finalError: "audio too short"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewAssemblyAI("test-key", WithBaseURL(srv.URL), WithPollInterval(time.Millisecond))

	_, err := client.Transcribe(context.Background(), strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "audio too short") {
		t.Errorf("Transcribe error = %v, want the vendor error detail", err)
	}
}

func TestAssemblyAITranscribeAuthFailure(t *testing.T) {
	fake := &fakeAssemblyAI{t: t, finalStatus: "completed"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewAssemblyAI("wrong-key", WithBaseURL(srv.URL), WithPollInterval(time.Millisecond))

	_, err := client.Transcribe(context.Background(), strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("Transcribe error = %v, want http 401", err)
	}
}

func TestAssemblyAITranscribeCancel(t *testing.T) {
	// Never reaches a terminal status; cancellation must end the poll loop.
	fake := &fakeAssemblyAI{t: t, pollsUntilDone: 1 << 30, finalStatus: "completed"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewAssemblyAI("test-key", WithBaseURL(srv.URL), WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Transcribe(ctx, strings.NewReader("x"))
	if err == nil {
		t.Fatal("Transcribe succeeded, want cancellation error")
	}
}
