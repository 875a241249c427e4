package openai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/cafematch/internal/domain"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
)

// wireScore is the shape the service is asked to return. cafeId is decoded as a
// number so that "3.0" is accepted.
type wireScore struct {
	CafeID         float64 `json:"cafeId"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// ParseScores extracts a score array from free-form completion text.
// The text may be wrapped in markdown fences or surrounded by prose.
// Scores are clamped to [0,100]. Any failure wraps domain.ErrMalformedResponse.
func ParseScores(content string) ([]score.Raw, error) {
	payload := stripFences(content)

	if !strings.HasPrefix(payload, "[") {
		extracted, ok := extractArray(payload)
		if !ok {
			return nil, fmt.Errorf("no JSON array in response: %w", domain.ErrMalformedResponse)
		}
		payload = extracted
	}

	payload = sanitize(payload)

	var wire []wireScore
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, fmt.Errorf("decode scores: %v: %w", err, domain.ErrMalformedResponse)
	}

	out := make([]score.Raw, 0, len(wire))
	for _, w := range wire {
		if w.CafeID != math.Trunc(w.CafeID) {
			return nil, fmt.Errorf("non-integer cafeId %v: %w", w.CafeID, domain.ErrMalformedResponse)
		}
		out = append(out, score.Raw{
			CafeID:         int(w.CafeID),
			RelevanceScore: score.Clamp(w.RelevanceScore, 0, score.MaxPercent),
		})
	}
	return out, nil
}

// stripFences removes ```json and ``` delimiters.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractArray returns the first balanced [...] literal in s. Brackets inside
// JSON strings are ignored.
func extractArray(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// sanitize drops control and non-ASCII bytes, keeping tab, newline and carriage return.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\t' || ch == '\n' || ch == '\r' || (ch >= 0x20 && ch <= 0x7E) {
			b.WriteByte(ch)
		}
	}
	return b.String()
}
