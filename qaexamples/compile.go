package qaexamples

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/google/uuid"

	"github.com/joeycumines/go-buildcore/answerctx"
	"github.com/joeycumines/go-buildcore/process"
	"github.com/joeycumines/go-buildcore/qa"
	"github.com/joeycumines/go-buildcore/runloop"
	"github.com/joeycumines/go-buildcore/serialize"
)

// CompileQuestion asks whether outputPath has already been produced by
// an external command. Grounded on spec.md §1's "process spawn" being
// an out-of-core-scope collaborator the reference still needs a
// consumer for: process.Spawn plus runloop.AddProcessID give a rule
// something real to depend on, unlike FileHashQuestion/NewJoinRule
// which never leave the process.
type CompileQuestion struct {
	OutputPath string
}

// Kind implements qa.Question.
func (CompileQuestion) Kind() *qa.VTable { return CompileVTable }

// CompileAnswer is the exit code recorded for OutputPath. Only 0 is
// ever produced: QueryAnswer reports 0 once the output file exists
// (NoAnswer while it does not), and NewCompileRule fails the question
// on a nonzero exit instead of answering it with that code.
type CompileAnswer int64

// AnswerKind implements qa.Answer.
func (CompileAnswer) AnswerKind() *qa.AnswerVTable { return CompileVTable.Answer }

var compileAnswerVTable = &qa.AnswerVTable{
	UUID: uuid.MustParse("6a2f9cf0-6e87-4f3f-ae8f-0e7a8c9b6b33"),
	Name: "CompileAnswer",
	Equal: func(a, b qa.Answer) bool {
		return a.(CompileAnswer) == b.(CompileAnswer)
	},
	Replicate: func(a qa.Answer) qa.Answer { return a },
	Serialize: func(a qa.Answer, sink *serialize.Sink) {
		sink.WriteInt64(int64(a.(CompileAnswer)))
	},
	Deserialize: func(source *serialize.Source) (qa.Answer, error) {
		n, err := source.ReadInt64()
		if err != nil {
			return nil, err
		}
		return CompileAnswer(n), nil
	},
}

// CompileVTable is the singleton VTable for CompileQuestion.
// QueryAnswer reports NoAnswer until OutputPath exists, at which point
// a rule has already run the command and it natively resolves to exit
// code 0.
var CompileVTable = &qa.VTable{
	UUID:   uuid.MustParse("b6f0e6a1-2c1a-4b1a-9b3b-6e0d9b2a7e10"),
	Name:   "CompileQuestion",
	Answer: compileAnswerVTable,
	Equal: func(a, b qa.Question) bool {
		return a.(CompileQuestion).OutputPath == b.(CompileQuestion).OutputPath
	},
	Replicate: func(q qa.Question) qa.Question { return q },
	Serialize: func(q qa.Question, sink *serialize.Sink) {
		sink.WriteBlob([]byte(q.(CompileQuestion).OutputPath))
	},
	Deserialize: func(source *serialize.Source) (qa.Question, error) {
		raw, err := source.ReadBlob()
		if err != nil {
			return nil, err
		}
		return CompileQuestion{OutputPath: string(raw)}, nil
	},
	QueryAnswer: func(q qa.Question) qa.QueryResult {
		if _, err := os.Stat(q.(CompileQuestion).OutputPath); err != nil {
			if os.IsNotExist(err) {
				return qa.NoAnswer
			}
			return qa.QueryFailed(err)
		}
		return qa.Answered(CompileAnswer(0))
	},
}

// NewCompileRule returns a CompileVTable rule that spawns program with
// args (via process.Spawn) and registers it with rl for exit
// notification (via runloop.AddProcessID), succeeding once the child
// exits with code 0 and failing otherwise. rl's backend must support
// process watching (runloop.ErrUnsupported on the plain backend).
func NewCompileRule(rl *runloop.RunLoop, program string, args []string) func(ctx *answerctx.Context) {
	return func(ctx *answerctx.Context) {
		cmd := exec.Command(program, args...)
		pid, err := process.Spawn(cmd)
		if err != nil {
			ctx.Fail(fmt.Errorf("qaexamples: spawning %s: %w", program, err))
			return
		}
		err = rl.AddProcessID(pid, func(_ *runloop.RunLoop, status process.ExitStatus, _ any) error {
			if status.Kind() == process.KindCode && status.ExitCode() == 0 {
				ctx.Succeed()
			} else {
				ctx.Fail(fmt.Errorf("qaexamples: %s exited with %s", program, status))
			}
			return nil
		}, nil, nil)
		if err != nil {
			ctx.Fail(fmt.Errorf("qaexamples: watching pid %d: %w", pid, err))
		}
	}
}
