// Package store holds the ordered, in-memory itinerary. Insertion order is
// the display and export order; nothing here sorts.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/Joseda-hg/lazytrip/internal/model"
)

// Store is the sole owner of itinerary records. A single mutex guards the
// whole sequence so a half-applied swap or replace is never visible.
type Store struct {
	mu      sync.Mutex
	records []model.Record
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// NewWithSample returns a store seeded with two example entries dated
// relative to today.
func NewWithSample(today time.Time) *Store {
	s := New()
	s.Insert(model.Record{
		Date:     today.AddDate(0, 0, 1).Format(time.DateOnly),
		Time:     "09:00",
		City:     "Barcelona",
		Activity: "Sagrada Familia visit",
		Duration: "2h",
		Notes:    "Buy tickets online",
	})
	s.Insert(model.Record{
		Date:     today.AddDate(0, 0, 2).Format(time.DateOnly),
		Time:     "14:00",
		City:     "Madrid",
		Activity: "Prado Museum",
		Duration: "3h",
		Notes:    "Check guided tour times",
	})
	return s
}

// Insert appends a record and returns its index.
func (s *Store) Insert(record model.Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return len(s.records) - 1
}

// Update replaces the record at index.
func (s *Store) Update(index int, record model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	s.records[index] = record
	return nil
}

// Delete removes the record at index, shifting later records left.
func (s *Store) Delete(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	s.records = append(s.records[:index], s.records[index+1:]...)
	return nil
}

// Swap exchanges the record at index with its neighbour at index+offset.
// offset must be -1 or +1. Moving past either end of the list does nothing
// and reports false.
func (s *Store) Swap(index, offset int) (bool, error) {
	if offset != -1 && offset != 1 {
		return false, fmt.Errorf("swap offset %d: %w", offset, model.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	target := index + offset
	if index < 0 || index >= len(s.records) || target < 0 || target >= len(s.records) {
		return false, nil
	}
	s.records[index], s.records[target] = s.records[target], s.records[index]
	return true, nil
}

// Clear removes every record.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

// Replace swaps the whole contents for records, as a clear followed by bulk
// insert under one lock.
func (s *Store) Replace(records []model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]model.Record(nil), records...)
}

// Append adds records in order and returns how many were added.
func (s *Store) Append(records []model.Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return len(records)
}

// All returns a copy of the records in order.
func (s *Store) All() []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns the record at index.
func (s *Store) Get(index int) (model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return model.Record{}, fmt.Errorf("get: %w", err)
	}
	return s.records[index], nil
}

// Count returns the number of records.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) checkIndex(index int) error {
	if index < 0 || index >= len(s.records) {
		return fmt.Errorf("%w: %d not in [0, %d)", model.ErrIndexOutOfRange, index, len(s.records))
	}
	return nil
}
