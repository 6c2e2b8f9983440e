package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.assemblyai.com/v2"

// assemblyAI speech-to-text: upload raw audio bytes, create a transcript
// job, then poll it until it reaches a terminal status.
type assemblyAI struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	hc           *http.Client
}

type Option func(*assemblyAI)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(a *assemblyAI) { a.baseURL = url }
}

func WithPollInterval(d time.Duration) Option {
	return func(a *assemblyAI) { a.pollInterval = d }
}

func NewAssemblyAI(apiKey string, opts ...Option) *assemblyAI {
	a := &assemblyAI{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		pollInterval: 3 * time.Second,
		hc:           &http.Client{Timeout: 60 * time.Minute},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type uploadResp struct {
	UploadURL string `json:"upload_url"`
}

type transcriptReq struct {
	AudioURL   string `json:"audio_url"`
	Punctuate  bool   `json:"punctuate"`
	FormatText bool   `json:"format_text"`
}

type transcriptResp struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	Text          string  `json:"text"`
	AudioDuration float64 `json:"audio_duration"`
	Error         string  `json:"error"`
}

func (a *assemblyAI) Transcribe(ctx context.Context, audio io.Reader) (Transcript, error) {
	uploadURL, err := a.upload(ctx, audio)
	if err != nil {
		return Transcript{}, fmt.Errorf("upload audio: %w", err)
	}

	jobID, err := a.createJob(ctx, uploadURL)
	if err != nil {
		return Transcript{}, fmt.Errorf("create transcript job: %w", err)
	}

	slog.Debug("transcript job created", slog.String("job_id", jobID))

	for {
		tr, err := a.pollJob(ctx, jobID)
		if err != nil {
			return Transcript{}, fmt.Errorf("poll transcript job: %w", err)
		}

		switch tr.Status {
		case "completed":
			return Transcript{
				Text:            tr.Text,
				DurationSeconds: tr.AudioDuration,
			}, nil
		case "error":
			return Transcript{}, fmt.Errorf("transcription failed: %s", tr.Error)
		}

		select {
		case <-ctx.Done():
			return Transcript{}, ctx.Err()
		case <-time.After(a.pollInterval):
		}
	}
}

func (a *assemblyAI) upload(ctx context.Context, audio io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/upload", audio)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", a.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var resp uploadResp
	if err := a.do(req, &resp); err != nil {
		return "", err
	}
	if resp.UploadURL == "" {
		return "", fmt.Errorf("empty upload_url in response")
	}
	return resp.UploadURL, nil
}

func (a *assemblyAI) createJob(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(transcriptReq{
		AudioURL:   audioURL,
		Punctuate:  true,
		FormatText: true,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var resp transcriptResp
	if err := a.do(req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("empty transcript id in response")
	}
	return resp.ID, nil
}

func (a *assemblyAI) pollJob(ctx context.Context, jobID string) (transcriptResp, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/transcript/"+jobID, nil)
	if err != nil {
		return transcriptResp{}, err
	}
	req.Header.Set("Authorization", a.apiKey)

	var resp transcriptResp
	if err := a.do(req, &resp); err != nil {
		return transcriptResp{}, err
	}
	return resp, nil
}

func (a *assemblyAI) do(req *http.Request, out any) error {
	resp, err := a.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("assemblyai http %d: %s", resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
