package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/cafematch/internal/domain"
)

func TestNew(t *testing.T) {
	r, err := New("  quiet study spot \n", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "quiet study spot" {
		t.Errorf("Query() = %q", r.Query())
	}
	if r.Sequence() != 3 {
		t.Errorf("Sequence() = %d", r.Sequence())
	}
}

func TestNew_Empty(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		if _, err := New(q, 1); !errors.Is(err, domain.ErrEmptyQuery) {
			t.Errorf("New(%q): expected ErrEmptyQuery, got %v", q, err)
		}
	}
}

func TestNew_TooLong(t *testing.T) {
	if _, err := New(strings.Repeat("a", MaxQueryLength+1), 1); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if _, err := New(" "+strings.Repeat("a", MaxQueryLength)+" ", 1); err != nil {
		t.Fatalf("query at the limit after trimming should pass: %v", err)
	}
}
