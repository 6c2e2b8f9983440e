package summarize

import (
	"context"
	"regexp"
	"strings"
)

const (
	maxActionItems = 5
	maxKeyPoints   = 5
)

var (
	reSentenceEnd = regexp.MustCompile(`[.!?]+`)
	rePointSplit  = regexp.MustCompile(`[.!?;]+`)

	actionKeywords = []string{
		"need to", "should", "must", "have to", "will",
		"action", "todo", "to do", "follow up", "next step",
		"assign", "responsible", "deadline", "schedule",
		"contact", "email", "call", "meeting", "send",
		"remember", "don't forget", "make sure",
	}
)

// heuristic is a keyword-based fallback used when no AI summarizer is
// configured. It never fails, so the pipeline stays usable offline.
type heuristic struct{}

func NewHeuristic() *heuristic {
	return &heuristic{}
}

func (h *heuristic) Summarize(ctx context.Context, transcript string) (Result, error) {
	content := simpleSummary(transcript)
	return Result{
		Content:     content,
		ActionItems: extractActionItems(transcript),
		KeyPoints:   extractKeyPoints(content, transcript),
	}, nil
}

func simpleSummary(transcript string) string {
	trimmed := strings.TrimSpace(transcript)
	if len(trimmed) < 10 {
		return "Short audio clip with minimal content."
	}

	sentences := splitSentences(trimmed)
	if len(sentences) <= 2 {
		if r := []rune(trimmed); len(r) > 100 {
			trimmed = string(r[:100])
		}
		return "Brief audio containing: " + trimmed + "..."
	}

	first := strings.ToLower(sentences[0])
	last := strings.ToLower(sentences[len(sentences)-1])

	summary := "The audio discusses " + first
	if last != "" {
		summary += " and concludes with " + last
	}
	return summary + "."
}

func extractActionItems(transcript string) []string {
	if transcript == "" {
		return []string{}
	}

	items := []string{}
	for _, sentence := range splitSentences(transcript) {
		if len(sentence) < 5 {
			continue
		}

		lower := strings.ToLower(sentence)
		for _, kw := range actionKeywords {
			if strings.Contains(lower, kw) {
				items = append(items, finishSentence(capitalize(sentence)))
				break
			}
		}
	}

	if len(items) == 0 {
		lower := strings.ToLower(transcript)
		switch {
		case strings.Contains(lower, "meeting"):
			items = append(items, "Follow up on meeting discussion.")
		case strings.Contains(lower, "call"):
			items = append(items, "Review call notes and next steps.")
		default:
			items = append(items, "Review recording content for further action.")
		}
	}

	if len(items) > maxActionItems {
		items = items[:maxActionItems]
	}
	return items
}

func extractKeyPoints(summary, transcript string) []string {
	points := []string{}

	for _, raw := range rePointSplit.Split(summary, -1) {
		point := strings.TrimSpace(raw)
		if len(point) > 15 {
			points = append(points, finishSentence(capitalize(point)))
		}
	}

	if len(points) < 3 && transcript != "" {
		sentences := splitSentences(transcript)
		if len(sentences) > 3 {
			sentences = sentences[:3]
		}
		for _, sentence := range sentences {
			if len(sentence) > 20 {
				points = append(points, finishSentence(capitalize(sentence)))
			}
		}
	}

	seen := make(map[string]bool)
	unique := []string{}
	for _, point := range points {
		key := strings.ToLower(point)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, point)
	}

	if len(unique) > maxKeyPoints {
		unique = unique[:maxKeyPoints]
	}
	return unique
}

func splitSentences(text string) []string {
	var sentences []string
	for _, raw := range reSentenceEnd.Split(text, -1) {
		if s := strings.TrimSpace(raw); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func finishSentence(s string) string {
	if !strings.HasSuffix(s, ".") {
		return s + "."
	}
	return s
}
