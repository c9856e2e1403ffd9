package qaexamples

import (
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/go-buildcore/answerctx"
	"github.com/joeycumines/go-buildcore/future"
	"github.com/joeycumines/go-buildcore/qa"
)

// NewJoinRule returns a rule for FileHashVTable that answers outputPath
// by concatenating the bytes of every file in inputPaths, in order,
// then succeeding natively. Grounded on
// Examples/JoinFiles/Source/Main.c's join_files_/build_joined_/
// join_callback_ sequence: Need the inputs, write the concatenation
// once they all resolve, then call ctx.Succeed() so FileHashVTable's
// own QueryAnswer re-reads the file it just wrote, rather than the rule
// computing and reporting the checksum itself.
func NewJoinRule(outputPath string, inputPaths []string) func(ctx *answerctx.Context) {
	return func(ctx *answerctx.Context) {
		questions := make([]qa.Question, len(inputPaths))
		vtables := make([]*qa.VTable, len(inputPaths))
		for i, p := range inputPaths {
			questions[i] = FileHashQuestion{Path: p}
			vtables[i] = FileHashVTable
		}
		needed := ctx.Need(questions, vtables)
		needed.AddCallback(func(f *future.Future, _ any) {
			if f.State() != future.Resolved {
				ctx.Fail(f.Err())
				return
			}
			if err := joinFiles(outputPath, inputPaths); err != nil {
				ctx.Fail(err)
				return
			}
			ctx.Succeed()
		}, nil)
	}
}

// NewRootRule builds the single FileHashVTable rule a join scenario
// needs, mirroring dispatch_question_'s path-based dispatch: the join
// output path triggers NewJoinRule, a known input path resolves via the
// vtable's own native QueryAnswer, and anything else fails.
func NewRootRule(outputPath string, inputPaths []string) func(ctx *answerctx.Context) {
	join := NewJoinRule(outputPath, inputPaths)
	known := make(map[string]bool, len(inputPaths))
	for _, p := range inputPaths {
		known[p] = true
	}
	return func(ctx *answerctx.Context) {
		q, _ := ctx.Question()
		path := q.(FileHashQuestion).Path
		switch {
		case path == outputPath:
			join(ctx)
		case known[path]:
			ctx.Succeed()
		default:
			ctx.Fail(fmt.Errorf("qaexamples: unrecognized path %q", path))
		}
	}
}

func joinFiles(outputPath string, inputPaths []string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("qaexamples: creating %s: %w", outputPath, err)
	}
	defer out.Close()

	for _, p := range inputPaths {
		if err := appendFile(out, p); err != nil {
			return err
		}
	}
	return out.Sync()
}

func appendFile(out *os.File, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("qaexamples: reading %s: %w", path, err)
	}
	defer in.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("qaexamples: copying %s: %w", path, err)
	}
	return nil
}
