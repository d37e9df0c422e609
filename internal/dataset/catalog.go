package dataset

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Catalog is the set of known patient identifiers, sorted ascending
type Catalog struct {
	ids []string
	set map[string]struct{}
}

// NewCatalog builds a catalog from ids. Duplicates are dropped.
func NewCatalog(ids []string) *Catalog {
	c := &Catalog{set: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if _, ok := c.set[id]; ok || id == "" {
			continue
		}
		c.set[id] = struct{}{}
		c.ids = append(c.ids, id)
	}
	sort.Strings(c.ids)
	return c
}

// LoadCatalog reads patient ids from the sub-directories of root whose name
// starts with prefix. "CGMacros-032" with prefix "CGMacros-" yields "032".
func LoadCatalog(root, prefix string) (*Catalog, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read patient root", goerr.V("root", root))
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		ids = append(ids, strings.TrimPrefix(e.Name(), prefix))
	}

	return NewCatalog(ids), nil
}

// IDs returns a copy of all ids
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Len number of patients
func (c *Catalog) Len() int {
	return len(c.ids)
}

// Sample returns at most n ids from the front of the sorted list
func (c *Catalog) Sample(n int) []string {
	if n > len(c.ids) {
		n = len(c.ids)
	}
	return c.IDs()[:n]
}

// Lookup resolves id to its catalog form. An exact match wins, otherwise a
// numeric id matches the entry with the same value ("32" finds "032").
func (c *Catalog) Lookup(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if _, ok := c.set[id]; ok {
		return id, true
	}

	want, err := strconv.Atoi(id)
	if err != nil {
		return "", false
	}
	for _, known := range c.ids {
		if n, err := strconv.Atoi(known); err == nil && n == want {
			return known, true
		}
	}
	return "", false
}
