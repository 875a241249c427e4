package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/cafematch/internal/domain"
)

// MaxQueryLength is the maximum allowed search query length in bytes.
const MaxQueryLength = 4096

// Request is a validated search query tagged with its sequence number.
type Request struct {
	query    string
	sequence uint64
}

// New trims query and validates it. Blank queries return domain.ErrEmptyQuery,
// oversized ones domain.ErrInvalidQuery.
func New(query string, sequence uint64) (Request, error) {
	query = strings.TrimSpace(query)
	if err := Validate(query); err != nil {
		return Request{}, err
	}
	return Request{query: query, sequence: sequence}, nil
}

// Validate checks query text without building a Request.
func Validate(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.ErrEmptyQuery
	}
	if len(query) > MaxQueryLength {
		return fmt.Errorf("query too long (max %d bytes): %w", MaxQueryLength, domain.ErrInvalidQuery)
	}
	return nil
}

// Query returns the trimmed query text.
func (r Request) Query() string { return r.query }

// Sequence returns the sequence number the request was issued under.
func (r Request) Sequence() uint64 { return r.sequence }
