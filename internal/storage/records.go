package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/acord-review/backend/internal/models"
)

// ErrDuplicateID is returned when a batch carries an id that is already stored
// or repeated within the batch.
var ErrDuplicateID = errors.New("duplicate record id")

// Store defines the interface for the in-memory record collection.
type Store interface {
	Add(records []models.FileRecord) error
	Remove(id string) bool
	Update(id string, patch models.RecordPatch) (models.FileRecord, bool)
	Get(id string) (models.FileRecord, bool)
	Snapshot() []models.FileRecord
	Len() int
}

// MemoryStore implements Store with an ordered slice and an id index.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*models.FileRecord
	index   map[string]*models.FileRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[string]*models.FileRecord),
	}
}

// Add appends records in order. The whole batch is rejected if any id collides.
func (s *MemoryStore) Add(records []models.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := s.index[r.ID]; ok {
			return fmt.Errorf("adding record %s: %w", r.ID, ErrDuplicateID)
		}
		if _, ok := seen[r.ID]; ok {
			return fmt.Errorf("adding record %s: %w", r.ID, ErrDuplicateID)
		}
		seen[r.ID] = struct{}{}
	}

	for _, r := range records {
		rec := r
		s.records = append(s.records, &rec)
		s.index[rec.ID] = &rec
	}

	return nil
}

// Remove deletes the record with the given id. Missing ids are a no-op.
func (s *MemoryStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.index[id]
	if !ok {
		return false
	}

	for i, r := range s.records {
		if r == rec {
			copy(s.records[i:], s.records[i+1:])
			s.records[len(s.records)-1] = nil
			s.records = s.records[:len(s.records)-1]
			break
		}
	}
	delete(s.index, id)

	return true
}

// Update applies patch to the record with the given id and returns the result.
func (s *MemoryStore) Update(id string, patch models.RecordPatch) (models.FileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.index[id]
	if !ok {
		return models.FileRecord{}, false
	}

	*rec = patch.Apply(*rec)
	return *rec, true
}

// Get returns a copy of the record with the given id.
func (s *MemoryStore) Get(id string) (models.FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.index[id]
	if !ok {
		return models.FileRecord{}, false
	}
	return *rec, true
}

// Snapshot returns a copy of all records in insertion order.
func (s *MemoryStore) Snapshot() []models.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FileRecord, len(s.records))
	for i, r := range s.records {
		out[i] = *r
	}
	return out
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
