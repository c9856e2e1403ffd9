package qa

import (
	"fmt"
	"sync"

	"github.com/joeycumines/go-buildcore/serialize"
)

// Registry maps a type UUID to its VTable, so the dispatcher and the
// database layer can resolve the correct deserializer from a stored
// fingerprint without the caller threading vtables through every call.
//
// Grounded on the shape of the teacher's registries (logiface's level
// tables, eventloop's promise registry): a static lookup table guarded
// by a single mutex. Unlike eventloop's registry, entries here are
// never garbage-collected — VTables are process-lifetime singletons.
type Registry struct {
	mu   sync.RWMutex
	qs   map[TypeUUID]*VTable
	ans  map[TypeUUID]*AnswerVTable
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		qs:  make(map[TypeUUID]*VTable),
		ans: make(map[TypeUUID]*AnswerVTable),
	}
}

// Register adds v to the registry, keyed by its UUID, and its paired
// Answer vtable. Registering the same UUID twice with a different
// VTable value is a precondition violation and panics, matching this
// engine's general policy of treating such misuse as a bug rather than
// a recoverable error.
func (r *Registry) Register(v *VTable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.qs[v.UUID]; ok && existing != v {
		panic(fmt.Sprintf("qa: type UUID %s already registered to a different VTable (%s)", v.UUID, existing.Name))
	}
	r.qs[v.UUID] = v
	if v.Answer != nil {
		if existing, ok := r.ans[v.Answer.UUID]; ok && existing != v.Answer {
			panic(fmt.Sprintf("qa: answer type UUID %s already registered to a different AnswerVTable (%s)", v.Answer.UUID, existing.Name))
		}
		r.ans[v.Answer.UUID] = v.Answer
	}
}

// Lookup returns the VTable registered for id, or nil if none.
func (r *Registry) Lookup(id TypeUUID) *VTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.qs[id]
}

// LookupAnswer returns the AnswerVTable registered for id, or nil if
// none.
func (r *Registry) LookupAnswer(id TypeUUID) *AnswerVTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ans[id]
}

// UUIDs returns every Question type UUID currently registered. The
// returned slice is a snapshot; mutating it does not affect the
// Registry.
func (r *Registry) UUIDs() []TypeUUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TypeUUID, 0, len(r.qs))
	for id := range r.qs {
		out = append(out, id)
	}
	return out
}

// Fingerprint is the answer-cache key: the pair (type UUID, serialized
// question bytes), per spec.
type Fingerprint string

// NewFingerprint computes the cache key for q under v: the 16 raw
// UUID bytes followed by q's serialized form.
func NewFingerprint(v *VTable, q Question) Fingerprint {
	sink := serialize.NewSink(32)
	raw, _ := v.UUID.MarshalBinary()
	sink.WriteRaw(raw)
	v.Serialize(q, sink)
	return Fingerprint(sink.Bytes())
}
