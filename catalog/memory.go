package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// InMemoryCatalog implements Catalog over a map keyed by visa code.
// Safe for concurrent use.
type InMemoryCatalog struct {
	visas map[string]VisaType
	mu    sync.RWMutex
}

// NewInMemoryCatalog creates a catalog holding the given visa types.
func NewInMemoryCatalog(visas ...VisaType) *InMemoryCatalog {
	c := &InMemoryCatalog{visas: make(map[string]VisaType, len(visas))}
	for _, v := range visas {
		c.visas[strings.ToUpper(v.Code)] = v
	}
	return c
}

// ListActive returns active visa types ordered by ID.
func (c *InMemoryCatalog) ListActive(ctx context.Context) ([]VisaType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	active := make([]VisaType, 0, len(c.visas))
	for _, v := range c.visas {
		if v.Active {
			active = append(active, v)
		}
	}
	sortByID(active)
	return active, nil
}

// All returns every visa type, active or not, ordered by ID.
func (c *InMemoryCatalog) All() []VisaType {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make([]VisaType, 0, len(c.visas))
	for _, v := range c.visas {
		all = append(all, v)
	}
	sortByID(all)
	return all
}

// Put adds or replaces a visa type.
func (c *InMemoryCatalog) Put(v VisaType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visas[strings.ToUpper(v.Code)] = v
}

// SetActive toggles the active flag of an existing visa type.
func (c *InMemoryCatalog) SetActive(code string, active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToUpper(strings.TrimSpace(code))
	v, ok := c.visas[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	v.Active = active
	c.visas[key] = v
	return nil
}

func sortByID(visas []VisaType) {
	sort.Slice(visas, func(i, j int) bool { return visas[i].ID < visas[j].ID })
}
