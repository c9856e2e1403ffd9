package qaexamples_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-buildcore/db/memstore"
	"github.com/joeycumines/go-buildcore/dispatch"
	"github.com/joeycumines/go-buildcore/future"
	"github.com/joeycumines/go-buildcore/qa"
	"github.com/joeycumines/go-buildcore/qaexamples"
)

type fakeScheduler struct{ pending []func() }

func (s *fakeScheduler) AddFunction(cb func(), _ func()) { s.pending = append(s.pending, cb) }

func (s *fakeScheduler) drain() {
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		next()
	}
}

func TestFileHashQuestion_NativeChecksum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte{0x41, 0x42, 0x43}, 0o644))

	result := qaexamples.FileHashVTable.QueryAnswer(qaexamples.FileHashQuestion{Path: path})
	require.True(t, result.Ok)
	require.NoError(t, result.Err)
	require.Equal(t, qaexamples.FileHashAnswer(0xC6), result.Answer)
}

func TestFileHashQuestion_MissingFileHasNoNativeAnswer(t *testing.T) {
	dir := t.TempDir()
	result := qaexamples.FileHashVTable.QueryAnswer(qaexamples.FileHashQuestion{Path: filepath.Join(dir, "missing.txt")})
	require.Equal(t, qa.NoAnswer, result)
}

func TestJoinRule_ConcatenatesAndChecksums(t *testing.T) {
	dir := t.TempDir()
	one := filepath.Join(dir, "one.txt")
	two := filepath.Join(dir, "two.txt")
	joined := filepath.Join(dir, "joined.txt")

	require.NoError(t, os.WriteFile(one, []byte{0x41}, 0o644))
	require.NoError(t, os.WriteFile(two, []byte{0x42, 0x43}, 0o644))

	sched := &fakeScheduler{}
	reg := qa.NewRegistry()
	store := memstore.New()
	m := dispatch.Allocate(sched, reg, store)
	m.RegisterRule(qaexamples.FileHashVTable, qaexamples.NewRootRule(joined, []string{one, two}))

	f := m.Ask(qaexamples.FileHashQuestion{Path: joined}, qaexamples.FileHashVTable)
	sched.drain()

	require.Equal(t, future.Resolved, f.State())
	require.Equal(t, qaexamples.FileHashAnswer(0xC6), f.Answer(0))

	contents, err := os.ReadFile(joined)
	require.NoError(t, err)
	require.Equal(t, []byte{0x41, 0x42, 0x43}, contents)
}

func TestRootRule_UnrecognizedPathFails(t *testing.T) {
	dir := t.TempDir()
	one := filepath.Join(dir, "one.txt")
	joined := filepath.Join(dir, "joined.txt")
	require.NoError(t, os.WriteFile(one, []byte{0x41}, 0o644))

	sched := &fakeScheduler{}
	reg := qa.NewRegistry()
	store := memstore.New()
	m := dispatch.Allocate(sched, reg, store)
	m.RegisterRule(qaexamples.FileHashVTable, qaexamples.NewRootRule(joined, []string{one}))

	f := m.Ask(qaexamples.FileHashQuestion{Path: filepath.Join(dir, "unknown.txt")}, qaexamples.FileHashVTable)
	sched.drain()

	require.Equal(t, future.Failed, f.State())
}
