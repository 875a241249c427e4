package openai

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/cafematch/internal/domain"
)

func TestParseScores(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[int]float64
	}{
		{
			name:    "plain array",
			content: `[{"cafeId": 1, "relevanceScore": 85}, {"cafeId": 2, "relevanceScore": 42}]`,
			want:    map[int]float64{1: 85, 2: 42},
		},
		{
			name:    "fenced json",
			content: "```json\n[{\"cafeId\":1,\"relevanceScore\":90}]\n```",
			want:    map[int]float64{1: 90},
		},
		{
			name:    "bare fence",
			content: "```\n[{\"cafeId\":4,\"relevanceScore\":50}]\n```",
			want:    map[int]float64{4: 50},
		},
		{
			name:    "prose around array",
			content: `Here are the results: [{"cafeId": 3, "relevanceScore": 70}] Hope this helps!`,
			want:    map[int]float64{3: 70},
		},
		{
			name:    "bracket inside string before close",
			content: `Sure. [{"cafeId": 5, "relevanceScore": 60, "note": "has ] inside"}] trailing [x]`,
			want:    map[int]float64{5: 60},
		},
		{
			name:    "non ascii noise",
			content: "[{\"cafeId\": 6,\u00a0\"relevanceScore\": 55}]\u200b",
			want:    map[int]float64{6: 55},
		},
		{
			name:    "clamped scores",
			content: `[{"cafeId": 1, "relevanceScore": 140}, {"cafeId": 2, "relevanceScore": -5}]`,
			want:    map[int]float64{1: 100, 2: 0},
		},
		{
			name:    "integral float id",
			content: `[{"cafeId": 7.0, "relevanceScore": 33}]`,
			want:    map[int]float64{7: 33},
		},
		{
			name:    "empty array",
			content: `[]`,
			want:    map[int]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScores(tt.content)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d scores, got %d (%v)", len(tt.want), len(got), got)
			}
			for _, s := range got {
				want, ok := tt.want[s.CafeID]
				if !ok {
					t.Errorf("unexpected cafe %d", s.CafeID)
					continue
				}
				if s.RelevanceScore != want {
					t.Errorf("cafe %d: expected %v, got %v", s.CafeID, want, s.RelevanceScore)
				}
			}
		})
	}
}

func TestParseScores_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"prose only", "I could not find any cafes matching that."},
		{"unterminated array", `[{"cafeId": 1, "relevanceScore": 85}`},
		{"object not array", `{"cafeId": 1, "relevanceScore": 85}`},
		{"wrong element type", `["one", "two"]`},
		{"fractional id", `[{"cafeId": 1.5, "relevanceScore": 85}]`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScores(tt.content)
			if !errors.Is(err, domain.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestExtractArray_Nested(t *testing.T) {
	got, ok := extractArray(`x [[1,2],[3]] y`)
	if !ok {
		t.Fatal("expected array")
	}
	if got != "[[1,2],[3]]" {
		t.Errorf("unexpected extraction %q", got)
	}
}

func TestSanitize(t *testing.T) {
	in := "a\tb\nc\rd\x01e\x7ff\u00e9"
	if got := sanitize(in); got != "a\tb\nc\rdef" {
		t.Errorf("unexpected sanitize result %q", got)
	}
}
