package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cognicore/labelrisk/pkg/labelrisk/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	rows      map[int64]store.DatasetRow
	nameIndex map[string]int64
	scans     map[string]store.Scan
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		nextID:    1,
		rows:      make(map[int64]store.DatasetRow),
		nameIndex: make(map[string]int64),
		scans:     make(map[string]store.Scan),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// CountDataset implements store.Store.
func (s *Store) CountDataset(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.rows)), nil
}

// FindByName implements store.Store.
func (s *Store) FindByName(ctx context.Context, name string) (store.DatasetRow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.nameIndex[strings.ToLower(name)]
	if !ok {
		return store.DatasetRow{}, false, nil
	}
	return s.rows[id], true, nil
}

// FindAliasCandidates implements store.Store with the same coarse
// containment semantics as the SQL backends.
func (s *Store) FindAliasCandidates(ctx context.Context, token string) ([]store.DatasetRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(token))
	var out []store.DatasetRow
	for _, r := range s.rows {
		if strings.Contains(strings.ToLower(r.Aliases), needle) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpsertDatasetRows inserts or updates rows keyed by ingredient name.
func (s *Store) UpsertDatasetRows(ctx context.Context, rows []store.DatasetRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range rows {
		if strings.TrimSpace(r.IngredientName) == "" {
			continue
		}
		key := strings.ToLower(r.IngredientName)
		id, ok := s.nameIndex[key]
		if !ok {
			id = s.nextID
			s.nextID++
			s.nameIndex[key] = id
		}
		r.ID = id
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = time.Now()
		}
		s.rows[id] = r
		n++
	}
	return n, nil
}

// SaveScan implements store.Store.
func (s *Store) SaveScan(ctx context.Context, sc store.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now()
	}
	s.scans[sc.ID] = copyScan(sc)
	return nil
}

// GetScan implements store.Store.
func (s *Store) GetScan(ctx context.Context, id string) (store.Scan, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scans[id]
	if !ok {
		return store.Scan{}, false, nil
	}
	return copyScan(sc), true, nil
}

// ListScans returns a user's scans, newest first.
func (s *Store) ListScans(ctx context.Context, userID string, limit int) ([]store.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	var out []store.Scan
	for _, sc := range s.scans {
		if sc.UserID == userID {
			out = append(out, copyScan(sc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyScan(sc store.Scan) store.Scan {
	cp := sc
	if sc.Ingredients != nil {
		cp.Ingredients = make([]store.ScanIngredient, len(sc.Ingredients))
		copy(cp.Ingredients, sc.Ingredients)
		for i := range cp.Ingredients {
			cp.Ingredients[i].Position = i
		}
	}
	return cp
}
