package memstore_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-buildcore/db/memstore"
	"github.com/joeycumines/go-buildcore/qa"
	"github.com/joeycumines/go-buildcore/serialize"
)

func intVTable(name string) *qa.VTable {
	v := &qa.VTable{
		UUID: uuid.New(),
		Name: name,
		Equal: func(a, b qa.Question) bool {
			return a.(intQ) == b.(intQ)
		},
		Replicate: func(q qa.Question) qa.Question { return q },
		Serialize: func(q qa.Question, sink *serialize.Sink) {
			sink.WriteUint32(uint32(q.(intQ)))
		},
		Deserialize: func(source *serialize.Source) (qa.Question, error) {
			n, err := source.ReadUint32()
			if err != nil {
				return nil, err
			}
			return intQ(n), nil
		},
		QueryAnswer: func(qa.Question) qa.QueryResult { return qa.NoAnswer },
	}
	v.Answer = &qa.AnswerVTable{
		UUID: uuid.New(),
		Name: name + "Answer",
		Equal: func(a, b qa.Answer) bool {
			return a.(intAns) == b.(intAns)
		},
		Replicate: func(a qa.Answer) qa.Answer { return a },
		Serialize: func(a qa.Answer, sink *serialize.Sink) {
			sink.WriteUint32(uint32(a.(intAns)))
		},
		Deserialize: func(source *serialize.Source) (qa.Answer, error) {
			n, err := source.ReadUint32()
			if err != nil {
				return nil, err
			}
			return intAns(n), nil
		},
	}
	return v
}

type intQ int

func (q intQ) Kind() *qa.VTable { return testVTable }

type intAns int

func (a intAns) AnswerKind() *qa.AnswerVTable { return testVTable.Answer }

var testVTable = intVTable("memstoreTestQuestion")

func TestMemstore_RecordAndLookUpAnswer(t *testing.T) {
	s := memstore.New()
	q := intQ(7)

	_, ok, err := s.LookUpAnswer(q, testVTable)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.RecordAnswer(q, testVTable, intAns(42)))

	got, ok, err := s.LookUpAnswer(q, testVTable)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, intAns(42), got)
}

func TestMemstore_CheckAllPurgesUnregisteredVTables(t *testing.T) {
	s := memstore.New()
	q := intQ(1)
	require.NoError(t, s.RecordAnswer(q, testVTable, intAns(1)))
	require.Equal(t, 1, s.Len())

	empty := qa.NewRegistry()
	require.NoError(t, s.CheckAll(empty))
	require.Equal(t, 0, s.Len())
}

func TestMemstore_CheckAllKeepsRegisteredVTables(t *testing.T) {
	s := memstore.New()
	q := intQ(2)
	require.NoError(t, s.RecordAnswer(q, testVTable, intAns(2)))

	reg := qa.NewRegistry()
	reg.Register(testVTable)
	require.NoError(t, s.CheckAll(reg))
	require.Equal(t, 1, s.Len())
}

func TestMemstore_RecordDependencyDoesNotError(t *testing.T) {
	s := memstore.New()
	from := intQ(1)
	to := intQ(2)
	require.NoError(t, s.RecordDependency(from, testVTable, to, testVTable))
	// Recording the same edge twice must stay idempotent.
	require.NoError(t, s.RecordDependency(from, testVTable, to, testVTable))
}
