// Package db defines Store, the storage-agnostic persistence interface
// dispatch.Main uses to record dependency edges, persist resolved
// answers, and purge state for retired question types. The core stays
// generic over Store; concrete implementations live in db/memstore and
// db/pgstore.
package db

import "github.com/joeycumines/go-buildcore/qa"

// Store is the minimal key/value interface spec.md leaves as an
// external collaborator: record a dependency edge, persist a resolved
// answer, look one up, and purge state for vtables no longer
// registered.
type Store interface {
	// RecordDependency records that answering fromQ (under fromV)
	// depends on toQ (under toV). Called by answerctx.Context.Need
	// before asking the sub-question, so a crash between recording the
	// edge and the sub-question resolving still leaves an accurate
	// dependency graph on disk.
	RecordDependency(fromQ qa.Question, fromV *qa.VTable, toQ qa.Question, toV *qa.VTable) error

	// RecordAnswer persists q's resolved answer, keyed by (v.UUID,
	// serialized q).
	RecordAnswer(q qa.Question, v *qa.VTable, answer qa.Answer) error

	// LookUpAnswer returns a previously persisted answer for q, if any.
	LookUpAnswer(q qa.Question, v *qa.VTable) (qa.Answer, bool, error)

	// CheckAll purges any stored answer (and its dependency edges)
	// whose vtable UUID is no longer present in registry. It never
	// invokes a rule; it only discards stale state — the resolved
	// reading of this engine's CheckAll Open Question.
	CheckAll(registry *qa.Registry) error
}
