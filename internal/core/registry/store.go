// Package registry holds the ordered in-memory collection of user records.
//
// Store is not safe for concurrent use; callers that share one across
// goroutines must serialise access themselves.
package registry

import (
	"github.com/usuarios/registry/internal/core/domain"
)

// Store is an insertion-ordered collection of user records.
type Store struct {
	records []domain.UserRecord
	// lastID is the highest id ever assigned, so deleted ids are never handed out again.
	lastID int
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Seed returns a store holding records in the given order. Ids must be unique.
func Seed(records ...domain.UserRecord) *Store {
	s := &Store{records: append([]domain.UserRecord(nil), records...)}
	for _, r := range records {
		if r.ID > s.lastID {
			s.lastID = r.ID
		}
	}
	return s
}

// Validate reports the missing fields of c.
func (s *Store) Validate(c domain.Candidate) domain.ValidationError {
	return domain.Validate(c)
}

// Add validates c and appends it under the next id. On validation failure the
// store is left untouched and a domain.ValidationError is returned.
func (s *Store) Add(c domain.Candidate) (domain.UserRecord, error) {
	if errs := domain.Validate(c); len(errs) > 0 {
		return domain.UserRecord{}, errs
	}

	s.lastID++
	rec := c.Record(s.lastID)
	s.records = append(s.records, rec)
	return rec, nil
}

// Update replaces the record whose id matches c.ID, keeping its position.
// When no record matches, nothing changes and the candidate is returned as is
// with applied set to false.
func (s *Store) Update(c domain.Candidate) (rec domain.UserRecord, applied bool, err error) {
	if errs := domain.Validate(c); len(errs) > 0 {
		return domain.UserRecord{}, false, errs
	}

	i := s.indexOf(c.ID)
	if i < 0 {
		return c.Record(c.ID), false, nil
	}

	s.records[i] = c.Record(c.ID)
	return s.records[i], true, nil
}

// Remove deletes the record with the given id and reports whether it existed.
func (s *Store) Remove(id int) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	return true
}

// Get returns the record with the given id.
func (s *Store) Get(id int) (domain.UserRecord, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return domain.UserRecord{}, false
	}
	return s.records[i], true
}

// List returns a copy of the records in collection order.
func (s *Store) List() []domain.UserRecord {
	out := make([]domain.UserRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) Len() int { return len(s.records) }

func (s *Store) indexOf(id int) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
