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
	"github.com/joeycumines/go-buildcore/runloop"
)

func TestCompileRule_SuccessfulExitProducesAnswer(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.txt")

	rl, err := runloop.AllocatePreferred()
	require.NoError(t, err)
	defer rl.Deallocate()

	reg := qa.NewRegistry()
	store := memstore.New()
	m := dispatch.Allocate(rl, reg, store)
	m.RegisterRule(qaexamples.CompileVTable, qaexamples.NewCompileRule(rl, "/bin/sh", []string{"-c", "echo built > " + output}))

	f := m.Ask(qaexamples.CompileQuestion{OutputPath: output}, qaexamples.CompileVTable)
	f.AddCallback(func(*future.Future, any) { rl.Stop() }, nil)

	require.NoError(t, rl.Run())
	require.Equal(t, future.Resolved, f.State())
	require.Equal(t, qaexamples.CompileAnswer(0), f.Answer(0))

	contents, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, "built\n", string(contents))
}

func TestCompileRule_NonZeroExitFails(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "never.txt")

	rl, err := runloop.AllocatePreferred()
	require.NoError(t, err)
	defer rl.Deallocate()

	reg := qa.NewRegistry()
	store := memstore.New()
	m := dispatch.Allocate(rl, reg, store)
	m.RegisterRule(qaexamples.CompileVTable, qaexamples.NewCompileRule(rl, "/bin/sh", []string{"-c", "exit 1"}))

	f := m.Ask(qaexamples.CompileQuestion{OutputPath: output}, qaexamples.CompileVTable)
	f.AddCallback(func(*future.Future, any) { rl.Stop() }, nil)

	require.NoError(t, rl.Run())
	require.Equal(t, future.Failed, f.State())
}
