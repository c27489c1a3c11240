package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bamsammich/splitcp/internal/config"
	"github.com/bamsammich/splitcp/internal/engine"
	"github.com/bamsammich/splitcp/internal/size"
	"github.com/bamsammich/splitcp/internal/stats"
	"github.com/bamsammich/splitcp/internal/ui"
)

var version = "dev"

// stderr receives diagnostics, the plain progress bar and the completion lines.
var stderr io.Writer = os.Stderr

const (
	defaultWorkers    = 1
	defaultBufferSize = 10000
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// options holds the parsed command line.
type options struct {
	workers     int
	bufferSize  int64
	bwLimit     int64
	verify      bool
	verbose     bool
	quiet       bool
	noProgress  bool
	benchmark   bool
	showVersion bool
	logFile     string
}

func run(args []string) int {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "splitcp [flags] <source> <target>",
		Short: "Copy a file with parallel workers, each writing its own byte range",
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				return nil
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(os.Stdout, "splitcp %s\n", version)
				return nil
			}
			return copyFile(cmd, &opts, args[0], args[1])
		},
	}

	rootCmd.Flags().BoolVar(&opts.showVersion, "version", false, "print version and exit")
	rootCmd.Flags().
		IntVarP(&opts.workers, "workers", "n", defaultWorkers, "number of concurrent copy workers")
	rootCmd.Flags().
		VarP(size.NewValue(defaultBufferSize, &opts.bufferSize), "buffer-size", "b", "per-worker buffer size (e.g. 64K, 1M)")
	rootCmd.Flags().
		Var(size.NewValue(0, &opts.bwLimit), "bwlimit", "bandwidth limit across all workers (e.g. 100M, 1G)")
	rootCmd.Flags().BoolVar(&opts.verify, "verify", false, "verify checksums after copy (BLAKE3)")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable progress display")
	rootCmd.Flags().
		StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")
	rootCmd.Flags().
		BoolVar(&opts.benchmark, "benchmark", false, "measure throughput before copy and auto-tune workers")

	rootCmd.AddCommand(newDocsCmd())
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	return 0
}

func copyFile(cmd *cobra.Command, opts *options, src, dst string) error {
	// Load optional config file.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config %s: %w", config.Path(), err)
	}
	if err := applyConfigDefaults(cmd, cfg.Defaults, opts); err != nil {
		return err
	}

	closeLog, err := setupLogging(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	// Set up context with signal handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Benchmark mode: measure throughput and auto-tune workers.
	if opts.benchmark {
		res, benchErr := engine.RunBenchmark(ctx, src, dst)
		if benchErr != nil {
			slog.Warn("benchmark failed", "error", benchErr)
		} else {
			fmt.Fprintln(stderr, engine.FormatBenchmark(res))
			if !cmd.Flags().Changed("workers") && cfg.Defaults.Workers == nil {
				opts.workers = res.SuggestedWorkers
			}
		}
	}

	collector := stats.NewCollector()

	accent := ui.DefaultAccent
	if cfg.Theme.Accent != nil {
		accent = *cfg.Theme.Accent
	}
	// The strip needs stdout to draw on and stdin to read cursor reports.
	isTTY := ui.IsTTY(os.Stdout.Fd()) && ui.IsTTY(os.Stdin.Fd())
	var term ui.Terminal
	if isTTY {
		term = ui.NewTerminal(os.Stdin, os.Stdout, accent)
	}
	presenter := ui.NewPresenter(ui.Config{
		Writer:     stderr,
		Terminal:   term,
		Stats:      collector,
		IsTTY:      isTTY,
		Quiet:      opts.quiet,
		NoProgress: opts.noProgress,
	})

	slog.Debug("starting copy",
		"src", src,
		"dst", dst,
		"workers", opts.workers,
		"buffer", opts.bufferSize,
		"bwlimit", opts.bwLimit,
		"verify", opts.verify,
	)

	result := engine.Run(ctx, engine.Config{
		Presenter:  presenter,
		Stats:      collector,
		Src:        src,
		Dst:        dst,
		Workers:    opts.workers,
		BufferSize: int(opts.bufferSize),
		BWLimit:    opts.bwLimit,
		Verify:     opts.verify,
	})

	if result.Err != nil {
		code := exitCode(result)
		if code == 1 && !opts.quiet {
			printSummary(presenter)
		}
		return &exitError{code: code, err: result.Err}
	}

	if !opts.quiet {
		fmt.Fprintln(stderr, ui.FormatElapsed(result.Elapsed))
		printSummary(presenter)
	}
	return nil
}

func printSummary(p ui.Presenter) {
	if summary := p.Summary(); summary != "" {
		fmt.Fprintln(stderr, summary)
	}
}

// exitCode maps a failed result to the process exit status: 1 when the
// copy ran but some ranges failed or the checksums differ, 2 otherwise.
func exitCode(result engine.Result) int {
	failed := result.Failed()
	if len(failed) > 0 {
		ranges := make([]string, len(failed))
		for i, re := range failed {
			ranges[i] = re.Range.String()
		}
		slog.Error("copy incomplete", "failed_ranges", ranges, "error", result.Err)
		return 1
	}
	slog.Error("copy failed", "error", result.Err)
	if errors.Is(result.Err, engine.ErrChecksumMismatch) {
		return 1
	}
	return 2
}

// setupLogging installs the default slog logger. Every record carries a
// run ID so lines from one invocation can be correlated in --log output.
func setupLogging(opts *options) (func(), error) {
	logLevel := slog.LevelWarn
	if opts.verbose {
		logLevel = slog.LevelDebug
	} else if !opts.quiet {
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler = slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	closeFn := func() {}
	if opts.logFile != "" {
		lf, err := os.Create(opts.logFile)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		closeFn = func() { lf.Close() }
		handler = ui.NewMultiHandler(handler, newJSONHandler(lf))
	}

	slog.SetDefault(slog.New(handler).With("run", uuid.NewString()))
	return closeFn, nil
}

func newJSONHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, opts *options) error {
	if !cmd.Flags().Changed("workers") && defaults.Workers != nil {
		opts.workers = *defaults.Workers
	}
	if !cmd.Flags().Changed("verify") && defaults.Verify != nil {
		opts.verify = *defaults.Verify
	}
	if !cmd.Flags().Changed("buffer-size") && defaults.BufferSize != nil {
		n, err := size.Parse(*defaults.BufferSize)
		if err != nil {
			return fmt.Errorf("config buffer_size: %w", err)
		}
		opts.bufferSize = n
	}
	if !cmd.Flags().Changed("bwlimit") && defaults.BWLimit != nil {
		n, err := size.Parse(*defaults.BWLimit)
		if err != nil {
			return fmt.Errorf("config bwlimit: %w", err)
		}
		opts.bwLimit = n
	}
	return nil
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) Unwrap() error { return e.err }
