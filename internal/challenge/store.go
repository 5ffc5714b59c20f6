package challenge

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed challenges/*.json
var embeddedChallenges embed.FS

// Store is a read-only collection of challenge definitions keyed by id.
type Store struct {
	challenges map[string]Challenge
}

// NewStore loads the embedded challenge set.
func NewStore() (*Store, error) {
	sub, err := fs.Sub(embeddedChallenges, "challenges")
	if err != nil {
		return nil, err
	}
	return newStoreFromFS(sub)
}

// NewStoreFromDir loads challenge definitions from a directory on disk.
func NewStoreFromDir(dir string) (*Store, error) {
	return newStoreFromFS(os.DirFS(dir))
}

func newStoreFromFS(fsys fs.FS) (*Store, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read challenges: %w", err)
	}

	challenges := make(map[string]Challenge)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read challenge %s: %w", entry.Name(), err)
		}

		var c Challenge
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("invalid challenge %s: %w", entry.Name(), err)
		}
		if c.ID == "" {
			c.ID = strings.TrimSuffix(entry.Name(), ".json")
		}

		challenges[c.ID] = c
	}

	if len(challenges) == 0 {
		return nil, fmt.Errorf("no challenge definitions found")
	}

	return &Store{challenges: challenges}, nil
}

// List returns id/title summaries keyed by challenge id.
func (s *Store) List() map[string]Summary {
	out := make(map[string]Summary, len(s.challenges))
	for id, c := range s.challenges {
		out[id] = Summary{ID: id, Title: c.Title}
	}
	return out
}

// Get returns the full challenge definition, including hidden test cases.
func (s *Store) Get(id string) (Challenge, bool) {
	c, ok := s.challenges[id]
	return c, ok
}

// IDs returns challenge ids in sorted order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.challenges))
	for id := range s.challenges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
