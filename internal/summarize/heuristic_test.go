package summarize

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

const meetingTranscript = "Welcome everyone to the weekly planning meeting. " +
	"We shipped the new importer last Friday and adoption looks strong. " +
	"Alice will send the release notes to the customer list. " +
	"We need to schedule a follow up with the infrastructure team. " +
	"Overall the quarter is on track and morale is high."

func TestHeuristicSummarize(t *testing.T) {
	res, err := NewHeuristic().Summarize(context.Background(), meetingTranscript)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if res.Content == "" {
		t.Error("summary content is empty")
	}
	if len(res.ActionItems) == 0 {
		t.Error("no action items extracted from transcript with action keywords")
	}
	if len(res.ActionItems) > maxActionItems {
		t.Errorf("%d action items, cap is %d", len(res.ActionItems), maxActionItems)
	}
	if len(res.KeyPoints) == 0 {
		t.Error("no key points extracted")
	}
	if len(res.KeyPoints) > maxKeyPoints {
		t.Errorf("%d key points, cap is %d", len(res.KeyPoints), maxKeyPoints)
	}
}

func TestSimpleSummary(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		wantPrefix string
	}{
		{"tiny clip", "uh hi", "Short audio clip"},
		{"one sentence", "This is a single short sentence about the weather today.", "Brief audio containing: "},
		{"multiple sentences", meetingTranscript, "The audio discusses "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := simpleSummary(tt.transcript)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("simpleSummary() = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}

func TestSimpleSummaryKeepsRuneBoundaries(t *testing.T) {
	// One long sentence of multi-byte runes: the excerpt cut must not
	// split a rune.
	got := simpleSummary(strings.Repeat("é", 150))
	if !utf8.ValidString(got) {
		t.Errorf("simpleSummary produced invalid UTF-8: %q", got)
	}
	if want := "Brief audio containing: " + strings.Repeat("é", 100) + "..."; got != want {
		t.Errorf("simpleSummary() = %q, want the 100-rune excerpt", got)
	}
}

func TestExtractActionItems(t *testing.T) {
	t.Run("keyword sentences", func(t *testing.T) {
		items := extractActionItems("We need to finish the migration. The weather was nice. Bob should email the vendor.")
		if len(items) != 2 {
			t.Fatalf("got %d items, want 2: %v", len(items), items)
		}
		for _, item := range items {
			if !strings.HasSuffix(item, ".") {
				t.Errorf("item %q is not a finished sentence", item)
			}
			if item[:1] != strings.ToUpper(item[:1]) {
				t.Errorf("item %q is not capitalized", item)
			}
		}
	})

	t.Run("fallback item", func(t *testing.T) {
		items := extractActionItems("Some unrelated rambling about nothing in particular here.")
		want := "Review recording content for further action."
		if len(items) != 1 || items[0] != want {
			t.Errorf("extractActionItems() = %v, want [%s]", items, want)
		}
	})

	t.Run("capped", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 10; i++ {
			sb.WriteString("We need to do another thing in this long sentence. ")
		}
		if items := extractActionItems(sb.String()); len(items) > maxActionItems {
			t.Errorf("got %d items, cap is %d", len(items), maxActionItems)
		}
	})
}

func TestExtractKeyPointsDeduplicates(t *testing.T) {
	summary := "The team shipped the importer. the team shipped the importer. Adoption is growing quickly"
	points := extractKeyPoints(summary, "")

	seen := make(map[string]bool)
	for _, p := range points {
		key := strings.ToLower(p)
		if seen[key] {
			t.Errorf("duplicate key point %q", p)
		}
		seen[key] = true
	}
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{
			"plain json",
			`{"content": "Quick sync", "action_items": ["Ship v2"], "key_points": ["Velocity up"]}`,
			false,
		},
		{
			"json fenced",
			"```json\n{\"content\": \"Quick sync\", \"action_items\": [], \"key_points\": []}\n```",
			false,
		},
		{
			"bare fence",
			"```\n{\"content\": \"Quick sync\"}\n```",
			false,
		},
		{"not json", "I could not summarize that.", true},
		{"empty content", `{"content": "", "action_items": [], "key_points": []}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parseResult(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseResult() succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseResult: %v", err)
			}
			if res.Content != "Quick sync" {
				t.Errorf("content = %q, want %q", res.Content, "Quick sync")
			}
			if res.ActionItems == nil || res.KeyPoints == nil {
				t.Error("missing lists must decode to empty slices, not nil")
			}
		})
	}
}
