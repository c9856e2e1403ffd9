// Package qa defines the polymorphic Question/Answer value protocol
// over which the build engine is generic: a Question describes a query
// about system state, an Answer describes its result, and each
// Question/Answer pair is described by a VTable carrying the type's
// stable identity and its value-protocol operations.
package qa

import (
	"github.com/google/uuid"

	"github.com/joeycumines/go-buildcore/serialize"
)

// TypeUUID is the 16-byte identifier used as a serialization
// discriminator and cache-key prefix for a Question/Answer type pair.
// It is backed by google/uuid's [16]byte representation, which is
// already in the standard RFC 4122 byte order the wire format calls
// for; no additional conversion layer is needed.
type TypeUUID = uuid.UUID

// Question is an opaque value naming a query about system state.
// Implementations are expected to be small, comparable-by-Equal value
// types; the engine never inspects a Question's concrete type, only
// its paired VTable.
type Question interface {
	// Kind returns the VTable describing this Question's type. It
	// must be the same VTable instance (or an equal one) across
	// every Question of this type.
	Kind() *VTable
}

// Answer is an opaque value describing the result of a Question.
// Like Question, the engine never inspects its concrete type.
type Answer interface {
	// AnswerKind returns the VTable describing this Answer's type.
	AnswerKind() *AnswerVTable
}

// QueryResult is the outcome of VTable.QueryAnswer: either an Answer
// was derived natively (Ok true), or the dispatcher must invoke a rule
// (Ok false, Err nil), or deriving an answer failed outright (Err set).
type QueryResult struct {
	Answer Answer
	Ok     bool
	Err    error
}

// NoAnswer is the zero QueryResult: "no native answer; a rule must
// build this question."
var NoAnswer = QueryResult{}

// Answered wraps a successfully, natively-derived Answer.
func Answered(a Answer) QueryResult { return QueryResult{Answer: a, Ok: true} }

// QueryFailed wraps an error encountered while attempting to derive a
// native answer.
func QueryFailed(err error) QueryResult { return QueryResult{Err: err} }

// VTable is the type descriptor for a Question type. Exactly one
// VTable value should exist per concrete Question type; register it
// with a Registry so the dispatcher and database layer can resolve the
// right deserializer from a stored fingerprint.
type VTable struct {
	// UUID is this type's stable 16-byte identifier.
	UUID TypeUUID

	// Name is a human-readable label, used only in logs and error
	// messages.
	Name string

	// Answer is the VTable of this Question type's paired Answer
	// type, so the dispatcher can choose the correct deserializer
	// when reading a stored answer from the database.
	Answer *AnswerVTable

	// Equal reports whether a and b (both Questions of this type)
	// are equal.
	Equal func(a, b Question) bool

	// Replicate returns a deep copy of q, safe to store independently
	// of the caller's value.
	Replicate func(q Question) Question

	// Serialize appends q's wire representation to sink.
	Serialize func(q Question, sink *serialize.Sink)

	// Deserialize reads a Question from source. It must report
	// ErrTruncated for insufficient input, distinct from a malformed
	// payload.
	Deserialize func(source *serialize.Source) (Question, error)

	// QueryAnswer attempts to derive q's answer directly from the
	// current system state, without invoking a rule. It must be
	// side-effect-free with respect to the engine (it may read
	// external state, such as a file's current contents).
	QueryAnswer func(q Question) QueryResult
}

// AnswerVTable is the type descriptor for an Answer type.
type AnswerVTable struct {
	// UUID is this type's stable 16-byte identifier.
	UUID TypeUUID

	Name string

	Equal       func(a, b Answer) bool
	Replicate   func(a Answer) Answer
	Serialize   func(a Answer, sink *serialize.Sink)
	Deserialize func(source *serialize.Source) (Answer, error)
}
