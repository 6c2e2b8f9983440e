package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const summaryPrompt = `You are an assistant that analyzes meeting recordings. Based on the transcript below, respond with a single JSON object and nothing else:

{"content": "<a concise summary of the recording>", "action_items": ["<one concrete follow-up per entry>"], "key_points": ["<one key takeaway per entry>"]}

Rules:
- "content" is 2-5 sentences of plain prose.
- "action_items" lists tasks someone committed to or must do; empty array if none.
- "key_points" lists the main facts or decisions; empty array if none.
- Do not wrap the JSON in markdown fences.

Transcript:
---
%s
---`

type gemini struct {
	model   string
	apiKeys []string

	mu         sync.Mutex
	currentKey int
}

// NewGemini builds a Summarizer backed by the Gemini API. Keys are rotated
// on quota errors.
func NewGemini(model string, apiKeys []string) (*gemini, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("no API keys provided")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &gemini{model: model, apiKeys: apiKeys}, nil
}

func (g *gemini) Summarize(ctx context.Context, transcript string) (Result, error) {
	prompt := fmt.Sprintf(summaryPrompt, transcript)

	attempts := len(g.apiKeys)
	var lastErr error

	for range attempts {
		idx, key := g.key()

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			g.rotateKey()
			continue
		}

		resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			errMsg := err.Error()
			if strings.Contains(errMsg, "429") || strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "RESOURCE_EXHAUSTED") {
				slog.Warn("gemini key rate limited, rotating", slog.Int("key_index", idx))
				g.rotateKey()
				lastErr = err
				continue
			}
			return Result{}, fmt.Errorf("generate content: %w", err)
		}

		text := collectText(resp)
		if text == "" {
			return Result{}, fmt.Errorf("empty response from Gemini")
		}

		return parseResult(text)
	}

	return Result{}, fmt.Errorf("all API keys exhausted: %w", lastErr)
}

// key and rotateKey guard currentKey: one gemini instance serves every
// pipeline worker concurrently.
func (g *gemini) key() (int, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentKey, g.apiKeys[g.currentKey]
}

func (g *gemini) rotateKey() {
	g.mu.Lock()
	g.currentKey = (g.currentKey + 1) % len(g.apiKeys)
	g.mu.Unlock()
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return text
}

// parseResult decodes the model's JSON, tolerating markdown code fences the
// model sometimes adds despite the prompt.
func parseResult(text string) (Result, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var res Result
	if err := json.Unmarshal([]byte(trimmed), &res); err != nil {
		return Result{}, fmt.Errorf("parse summary JSON: %w", err)
	}
	if res.Content == "" {
		return Result{}, fmt.Errorf("summary content is empty")
	}
	if res.ActionItems == nil {
		res.ActionItems = []string{}
	}
	if res.KeyPoints == nil {
		res.KeyPoints = []string{}
	}
	return res, nil
}
