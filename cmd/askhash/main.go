// Command askhash is a runnable demonstration of the build engine,
// mirroring original_source/Examples/JoinFiles/Source/Main.c: it joins
// a set of input files into an output file and reports the joined
// file's content-sum, driving the whole cache/database/rule pipeline
// through a single root question.
//
// Grounded on oriys-nova/cmd/nova/main.go's cobra conventions: a root
// command with persistent flags, subcommand-factory functions
// returning *cobra.Command, and RunE functions that do the actual
// work and return errors for cobra to report.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joeycumines/logiface"
	"github.com/spf13/cobra"

	"github.com/joeycumines/go-buildcore/cmd/askhash/config"
	"github.com/joeycumines/go-buildcore/db"
	"github.com/joeycumines/go-buildcore/db/memstore"
	"github.com/joeycumines/go-buildcore/db/pgstore"
	"github.com/joeycumines/go-buildcore/dispatch"
	"github.com/joeycumines/go-buildcore/future"
	"github.com/joeycumines/go-buildcore/internal/corelog"
	"github.com/joeycumines/go-buildcore/qa"
	"github.com/joeycumines/go-buildcore/qaexamples"
	"github.com/joeycumines/go-buildcore/runloop"
)

var (
	configPath string
	dbDSN      string
	logLevel   string
	cycleGuard bool
)

// Exit codes mirror Main.c's run_()/main() split: 0 for a resolved
// root question, 1 for one still Pending (a deadlock, since nothing
// else could have woken the loop), 2 for Failed or any setup error.
const (
	exitResolved = 0
	exitPending  = 1
	exitFailed   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var code int
	cmd := rootCmd(&code)
	if err := cmd.Execute(); err != nil {
		return exitFailed
	}
	return code
}

func rootCmd(code *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "askhash",
		Short:        "Dependency-tracked build engine demonstration CLI",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&dbDSN, "db-dsn", "", "persistent store DSN (postgres://...); empty uses an in-memory store")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "disabled, error, warning, info, debug, or trace")
	cmd.PersistentFlags().BoolVar(&cycleGuard, "cycle-guard", false, "enable the opt-in synchronous cycle detector")

	cmd.AddCommand(joinCmd(code))
	cmd.AddCommand(compileCmd(code))
	return cmd
}

// loadConfig layers config file, environment, and flag overrides, in
// that order, matching oriys-nova/internal/config's
// LoadFromFile-then-LoadFromEnv layering (flags are applied last here
// since cobra has already parsed them into package vars by the time
// RunE runs).
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("askhash: loading config %s: %w", configPath, err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	config.LoadFromEnv(cfg)

	if cmd.Flags().Changed("db-dsn") {
		cfg.DatabaseDSN = dbDSN
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("cycle-guard") {
		cfg.CycleGuard = cycleGuard
	}
	return cfg, nil
}

func parseLevel(name string) logiface.Level {
	switch name {
	case "disabled":
		return logiface.LevelDisabled
	case "error":
		return logiface.LevelError
	case "warning", "warn":
		return logiface.LevelWarning
	case "debug":
		return logiface.LevelDebug
	case "trace":
		return logiface.LevelTrace
	default:
		return logiface.LevelInformational
	}
}

// joinCmd mirrors Main.c's run_(): it builds a single FileHashVTable
// question for the output path, runs it to completion on a RunLoop,
// and sets *code to 0/1/2 depending on whether the root future
// resolved, is still pending, or failed.
func joinCmd(code *int) *cobra.Command {
	return &cobra.Command{
		Use:   "join OUTPUT INPUT [INPUT ...]",
		Short: "Join INPUT files into OUTPUT and report its content-sum",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath := args[0]
			inputPaths := args[1:]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := corelog.New(os.Stderr, parseLevel(cfg.LogLevel))

			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			rl, err := runloop.AllocatePreferred(runloop.WithLogger(log))
			if err != nil {
				return fmt.Errorf("askhash: allocating run loop: %w", err)
			}
			defer rl.Deallocate()

			registry := qa.NewRegistry()
			dispatchOpts := []dispatch.Option{dispatch.WithLogger(log)}
			if cfg.CycleGuard {
				dispatchOpts = append(dispatchOpts, dispatch.WithCycleGuard())
			}
			m := dispatch.Allocate(rl, registry, store, dispatchOpts...)
			defer m.Deallocate()

			m.RegisterRule(qaexamples.FileHashVTable, qaexamples.NewRootRule(outputPath, inputPaths))

			root := m.Ask(qaexamples.FileHashQuestion{Path: outputPath}, qaexamples.FileHashVTable)
			root.AddCallback(func(*future.Future, any) { rl.Stop() }, nil)

			if err := rl.Run(); err != nil {
				return fmt.Errorf("askhash: run loop: %w", err)
			}

			return reportResult(cmd, root, code)
		},
	}
}

// compileCmd demonstrates qaexamples.CompileVTable: OUTPUT is asked
// about, and a miss spawns PROGRAM [ARGS...] (via process.Spawn and
// runloop.AddProcessID) to produce it.
func compileCmd(code *int) *cobra.Command {
	return &cobra.Command{
		Use:   "compile OUTPUT PROGRAM [ARGS...]",
		Short: "Ask whether OUTPUT exists, running PROGRAM to produce it on a miss",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath := args[0]
			program := args[1]
			programArgs := args[2:]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := corelog.New(os.Stderr, parseLevel(cfg.LogLevel))

			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			rl, err := runloop.AllocatePreferred(runloop.WithLogger(log))
			if err != nil {
				return fmt.Errorf("askhash: allocating run loop: %w", err)
			}
			defer rl.Deallocate()

			registry := qa.NewRegistry()
			dispatchOpts := []dispatch.Option{dispatch.WithLogger(log)}
			if cfg.CycleGuard {
				dispatchOpts = append(dispatchOpts, dispatch.WithCycleGuard())
			}
			m := dispatch.Allocate(rl, registry, store, dispatchOpts...)
			defer m.Deallocate()

			m.RegisterRule(qaexamples.CompileVTable, qaexamples.NewCompileRule(rl, program, programArgs))

			root := m.Ask(qaexamples.CompileQuestion{OutputPath: outputPath}, qaexamples.CompileVTable)
			root.AddCallback(func(*future.Future, any) { rl.Stop() }, nil)

			if err := rl.Run(); err != nil {
				return fmt.Errorf("askhash: run loop: %w", err)
			}

			return reportResult(cmd, root, code)
		},
	}
}

func reportResult(cmd *cobra.Command, root *future.Future, code *int) error {
	switch root.State() {
	case future.Resolved:
		*code = exitResolved
		fmt.Fprintf(cmd.OutOrStdout(), "%v\n", root.Answer(0))
		return nil
	case future.Failed:
		*code = exitFailed
		return root.Err()
	default:
		*code = exitPending
		return nil
	}
}

func openStore(cfg *config.Config) (db.Store, func(), error) {
	if cfg.DatabaseDSN == "" {
		return memstore.New(), func() {}, nil
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("askhash: connecting to %s: %w", cfg.DatabaseDSN, err)
	}
	store := pgstore.New(ctx, pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("askhash: migrating database: %w", err)
	}
	return store, pool.Close, nil
}
