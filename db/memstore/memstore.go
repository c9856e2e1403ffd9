// Package memstore implements db.Store entirely in memory, grounded on
// the pack's oriys-nova/internal/cache InMemoryCache: a mutex-guarded
// map keyed by the same (vtable UUID, serialized question) fingerprint
// the dispatcher itself uses for its in-process cache. Answers and
// dependency edges do not survive process restart; this store exists
// for tests and for cmd/askhash when run without a database DSN.
package memstore

import (
	"sync"

	"github.com/joeycumines/go-buildcore/qa"
)

type answerEntry struct {
	vtableUUID qa.TypeUUID
	answer     qa.Answer
}

// Store is an in-memory, process-lifetime db.Store. Safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	answers map[qa.Fingerprint]answerEntry
	deps    map[qa.Fingerprint]map[qa.Fingerprint]struct{}
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		answers: make(map[qa.Fingerprint]answerEntry),
		deps:    make(map[qa.Fingerprint]map[qa.Fingerprint]struct{}),
	}
}

// RecordDependency implements db.Store.
func (s *Store) RecordDependency(fromQ qa.Question, fromV *qa.VTable, toQ qa.Question, toV *qa.VTable) error {
	fromFP := qa.NewFingerprint(fromV, fromQ)
	toFP := qa.NewFingerprint(toV, toQ)

	s.mu.Lock()
	defer s.mu.Unlock()
	edges, ok := s.deps[fromFP]
	if !ok {
		edges = make(map[qa.Fingerprint]struct{})
		s.deps[fromFP] = edges
	}
	edges[toFP] = struct{}{}
	return nil
}

// RecordAnswer implements db.Store.
func (s *Store) RecordAnswer(q qa.Question, v *qa.VTable, answer qa.Answer) error {
	fp := qa.NewFingerprint(v, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[fp] = answerEntry{vtableUUID: v.UUID, answer: answer}
	return nil
}

// LookUpAnswer implements db.Store.
func (s *Store) LookUpAnswer(q qa.Question, v *qa.VTable) (qa.Answer, bool, error) {
	fp := qa.NewFingerprint(v, q)

	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.answers[fp]
	if !ok {
		return nil, false, nil
	}
	return entry.answer, true, nil
}

// CheckAll implements db.Store: it discards every stored answer and
// every dependency edge whose vtable UUID (on either end, for an edge)
// isn't in registry, and never invokes a rule.
func (s *Store) CheckAll(registry *qa.Registry) error {
	live := make(map[qa.TypeUUID]struct{})
	for _, id := range registry.UUIDs() {
		live[id] = struct{}{}
	}
	// A fingerprint starts with its vtable's 16 raw UUID bytes.
	isLive := func(fp qa.Fingerprint) bool {
		var id qa.TypeUUID
		copy(id[:], fp)
		_, ok := live[id]
		return ok
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for fp, entry := range s.answers {
		if _, ok := live[entry.vtableUUID]; !ok {
			delete(s.answers, fp)
			delete(s.deps, fp)
		}
	}
	for from, edges := range s.deps {
		for to := range edges {
			if !isLive(from) || !isLive(to) {
				delete(edges, to)
			}
		}
	}
	return nil
}

// Len reports the number of answers currently stored. Test-only helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.answers)
}
