// Package pgstore implements db.Store on top of Postgres via
// github.com/jackc/pgx/v5, modeling the relational shape the spec
// describes for a persistent dependency store: one table of resolved
// answers keyed by (vtable UUID, serialized question), one table of
// dependency edges between fingerprints.
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joeycumines/go-buildcore/qa"
	"github.com/joeycumines/go-buildcore/serialize"
)

// Store is a Postgres-backed db.Store.
//
// db.Store's interface, grounded in spec.md's synchronous
// LookUpAnswer/RecordAnswer contract, takes no per-call context. Store
// therefore carries one fixed context from construction, matching how
// the reference engine's own database collaborator has no built-in
// cancellation story; callers needing per-call cancellation should wrap
// Store rather than extend its signatures.
type Store struct {
	pool *pgxpool.Pool
	ctx  context.Context
}

// New wraps an already-connected pool.
func New(ctx context.Context, pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, ctx: ctx}
}

// Migrate creates the answers and dependency tables if they do not
// already exist. Safe to call on every process start.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS buildcore_answers (
	vtable_uuid bytea NOT NULL,
	question    bytea NOT NULL,
	answer      bytea NOT NULL,
	PRIMARY KEY (vtable_uuid, question)
);
CREATE TABLE IF NOT EXISTS buildcore_dependencies (
	from_vtable_uuid bytea NOT NULL,
	from_question    bytea NOT NULL,
	to_vtable_uuid   bytea NOT NULL,
	to_question      bytea NOT NULL,
	PRIMARY KEY (from_vtable_uuid, from_question, to_vtable_uuid, to_question)
);
`)
	return err
}

func serializeQuestion(v *qa.VTable, q qa.Question) []byte {
	sink := serialize.NewSink(64)
	v.Serialize(q, sink)
	return sink.Bytes()
}

// RecordDependency implements db.Store.
func (s *Store) RecordDependency(fromQ qa.Question, fromV *qa.VTable, toQ qa.Question, toV *qa.VTable) error {
	_, err := s.pool.Exec(s.ctx, `
INSERT INTO buildcore_dependencies (from_vtable_uuid, from_question, to_vtable_uuid, to_question)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING
`,
		fromV.UUID[:], serializeQuestion(fromV, fromQ),
		toV.UUID[:], serializeQuestion(toV, toQ),
	)
	return err
}

// RecordAnswer implements db.Store.
func (s *Store) RecordAnswer(q qa.Question, v *qa.VTable, answer qa.Answer) error {
	answerSink := serialize.NewSink(64)
	answer.AnswerKind().Serialize(answer, answerSink)

	_, err := s.pool.Exec(s.ctx, `
INSERT INTO buildcore_answers (vtable_uuid, question, answer)
VALUES ($1, $2, $3)
ON CONFLICT (vtable_uuid, question) DO UPDATE SET answer = excluded.answer
`, v.UUID[:], serializeQuestion(v, q), answerSink.Bytes())
	return err
}

// LookUpAnswer implements db.Store. The stored bytes are decoded with
// v.Answer.Deserialize, since the question's own vtable already names
// its paired answer type.
func (s *Store) LookUpAnswer(q qa.Question, v *qa.VTable) (qa.Answer, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(s.ctx, `
SELECT answer FROM buildcore_answers WHERE vtable_uuid = $1 AND question = $2
`, v.UUID[:], serializeQuestion(v, q)).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	if v.Answer == nil {
		return nil, false, fmt.Errorf("pgstore: vtable %s has no Answer vtable registered", v.Name)
	}
	answer, err := v.Answer.Deserialize(serialize.NewSource(raw))
	if err != nil {
		return nil, false, err
	}
	return answer, true, nil
}

// CheckAll implements db.Store: it deletes every answer and dependency
// edge whose vtable UUID isn't in registry, and never invokes a rule.
func (s *Store) CheckAll(registry *qa.Registry) error {
	ids := registry.UUIDs()
	live := make([][]byte, len(ids))
	for i, id := range ids {
		raw := id // copy so the slice below doesn't alias the loop variable
		live[i] = raw[:]
	}

	tx, err := s.pool.Begin(s.ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(s.ctx)

	if _, err := tx.Exec(s.ctx, `
DELETE FROM buildcore_answers WHERE NOT (vtable_uuid = ANY($1))
`, live); err != nil {
		return err
	}
	if _, err := tx.Exec(s.ctx, `
DELETE FROM buildcore_dependencies
WHERE NOT (from_vtable_uuid = ANY($1)) OR NOT (to_vtable_uuid = ANY($1))
`, live); err != nil {
		return err
	}
	return tx.Commit(s.ctx)
}
