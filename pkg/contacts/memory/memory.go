// Package memory provides an in-memory contact source for tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/perunhq/blackbook-sync/pkg/contacts"
)

// Source is an in-memory contacts.Source. Failures can be injected per
// operation to exercise the orchestrator's error paths.
type Source struct {
	mu           sync.Mutex
	records      map[string]contacts.Record
	errs         map[string]error
	resourceErrs map[string]error
	calls        map[string]int
}

// New creates an empty in-memory source.
func New() *Source {
	return &Source{
		records:      make(map[string]contacts.Record),
		errs:         make(map[string]error),
		resourceErrs: make(map[string]error),
		calls:        make(map[string]int),
	}
}

// Seed inserts a record with a generated resource id and returns the id.
func (s *Source) Seed(rec contacts.Record) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ResourceID == "" {
		rec.ResourceID = uuid.New().String()
	}
	s.records[rec.ResourceID] = rec
	return rec.ResourceID
}

// FailWith makes every subsequent call of the named operation (list, create,
// update, delete) return err. Pass nil to clear.
func (s *Source) FailWith(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, op)
		return
	}
	s.errs[op] = err
}

// FailResourceWith makes the named operation (update, delete) return err for
// one resource id while the rest of the records keep working. Pass nil to
// clear.
func (s *Source) FailResourceWith(op, resourceID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := op + ":" + resourceID
	if err == nil {
		delete(s.resourceErrs, key)
		return
	}
	s.resourceErrs[key] = err
}

// Calls returns how many times the named operation was invoked.
func (s *Source) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Get returns the stored record for a resource id.
func (s *Source) Get(resourceID string) (contacts.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[resourceID]
	return rec, ok
}

// Len returns the number of stored records.
func (s *Source) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Source) List(ctx context.Context) ([]contacts.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["list"]++
	if err := s.errs["list"]; err != nil {
		return nil, err
	}

	out := make([]contacts.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out, nil
}

func (s *Source) Create(ctx context.Context, rec contacts.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["create"]++
	if err := s.errs["create"]; err != nil {
		return "", err
	}

	rec.ResourceID = uuid.New().String()
	s.records[rec.ResourceID] = rec
	return rec.ResourceID, nil
}

func (s *Source) Update(ctx context.Context, resourceID string, rec contacts.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["update"]++
	if err := s.errs["update"]; err != nil {
		return err
	}
	if err := s.resourceErrs["update:"+resourceID]; err != nil {
		return err
	}

	if _, ok := s.records[resourceID]; !ok {
		return contacts.Permanent("update", fmt.Errorf("resource %s not found", resourceID))
	}
	rec.ResourceID = resourceID
	s.records[resourceID] = rec
	return nil
}

func (s *Source) Delete(ctx context.Context, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["delete"]++
	if err := s.errs["delete"]; err != nil {
		return err
	}
	if err := s.resourceErrs["delete:"+resourceID]; err != nil {
		return err
	}

	if _, ok := s.records[resourceID]; !ok {
		return contacts.Permanent("delete", fmt.Errorf("resource %s not found", resourceID))
	}
	delete(s.records, resourceID)
	return nil
}
