package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/cafematch/internal/domain"
	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
)

// Catalog is a read-only, in-memory café catalog.
type Catalog struct {
	cafes []cafe.Cafe
	index map[int]int
}

// Load reads a JSON array of café records from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a JSON array of café records.
func Parse(data []byte) (*Catalog, error) {
	var cafes []cafe.Cafe
	if err := json.Unmarshal(data, &cafes); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(cafes)
}

// New builds a catalog from cafés in catalog order. Duplicate ids are rejected.
func New(cafes []cafe.Cafe) (*Catalog, error) {
	index := make(map[int]int, len(cafes))
	for i := range cafes {
		if _, dup := index[cafes[i].ID]; dup {
			return nil, fmt.Errorf("duplicate cafe id %d", cafes[i].ID)
		}
		index[cafes[i].ID] = i
	}
	return &Catalog{cafes: cafes, index: index}, nil
}

// All returns every café in catalog order. Callers must not modify the slice.
func (c *Catalog) All() []cafe.Cafe { return c.cafes }

// Len returns the number of cafés.
func (c *Catalog) Len() int { return len(c.cafes) }

// Get returns the café with the given id.
func (c *Catalog) Get(id int) (cafe.Cafe, error) {
	i, ok := c.index[id]
	if !ok {
		return cafe.Cafe{}, fmt.Errorf("cafe %d: %w", id, domain.ErrNotFound)
	}
	return c.cafes[i], nil
}

// Lookup returns the café with the given id and whether it exists.
func (c *Catalog) Lookup(id int) (*cafe.Cafe, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return &c.cafes[i], true
}
