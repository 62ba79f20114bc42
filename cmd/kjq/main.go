// Command kjq is a JQ-adjacent command-line query engine: it parses one
// expression, evaluates it against an implicit current value (null, or
// piped/file-supplied JSON), and prints the result as JSON.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/kjq/internal/eval"
	"github.com/aledsdavies/kjq/internal/parser"
	"github.com/aledsdavies/kjq/internal/val"
)

// Exit code constants. A parse error is not among these: per spec.md
// §6.1 it is reported as a Val.Err result on stdout with ExitSuccess,
// like any other Err value, not a distinct CLI-level failure.
const (
	ExitSuccess          = 0
	ExitInvalidArguments = 1
	ExitIOError          = 2
)

func main() {
	var (
		compact bool
		raw     bool
		file    string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:           "kjq [expression]",
		Short:         "Query and transform structured data with a JQ-adjacent expression language",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := silentLogger
			if verbose {
				log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
			}

			repl := len(args) == 0
			initial, err := loadInitialValue(file, repl)
			if err != nil {
				fmt.Fprintf(os.Stderr, "kjq: %v\n", err)
				os.Exit(ExitIOError)
			}

			if repl {
				runREPL(cmd.OutOrStdout(), os.Stdin, initial, compact, raw, log)
				return nil
			}

			result := evalOnce(args[0], initial, log)
			printResult(cmd.OutOrStdout(), result, compact, raw)
			return nil
		},
	}

	rootCmd.Flags().BoolVarP(&compact, "compact", "c", false, "Print minified JSON instead of indented")
	rootCmd.Flags().BoolVar(&raw, "raw", false, "Print a String result's bytes directly, unquoted")
	rootCmd.Flags().StringVarP(&file, "file", "f", "", "Read the initial value from this file instead of stdin")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug tracing of the parser and lexer")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kjq: %v\n", err)
		os.Exit(ExitInvalidArguments)
	}
}

var silentLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))

// loadInitialValue reads the piped/file input, if any, and parses it as
// JSON. With nothing piped in and no -f flag, the initial current value
// is Null. In REPL mode, stdin belongs to runREPL's own per-line reader,
// so a piped (non-TTY) stdin is left untouched unless -f names a file.
func loadInitialValue(file string, repl bool) (*val.Val, error) {
	var data []byte
	var err error
	switch {
	case file != "":
		data, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
	case repl:
		return val.Null, nil
	default:
		stat, statErr := os.Stdin.Stat()
		if statErr == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			return val.Null, nil
		}
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
	}
	if len(data) == 0 {
		return val.Null, nil
	}
	v, err := val.ParseJSON(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing input JSON: %w", err)
	}
	return v, nil
}

// evalOnce parses and evaluates src, returning a Val in every case - a
// parse failure becomes a Val.Err (per spec.md §7) rather than a Go
// error, so it is reported as JSON on stdout with exit code 0 like any
// other Err result.
func evalOnce(src string, initial *val.Val, log *slog.Logger) *val.Val {
	tree, perr := parser.Parse(src, parser.WithLogger(log))
	if perr != nil {
		return val.NewErr(perr.Message())
	}
	evaluator := eval.New(log)
	result, _ := evaluator.Eval(tree.Arena, tree.Root, initial, eval.Vars{})
	return result
}

func printResult(w io.Writer, result *val.Val, compact, raw bool) {
	if raw && result.IsString() {
		fmt.Fprintln(w, result.Str())
		return
	}
	out := val.WriteJSON(result, !compact)
	w.Write(out)
	if compact {
		fmt.Fprintln(w)
	}
}

// runREPL reads one expression per line from in, evaluating each against
// the same initial value, until "quit" or EOF - a minimal line-reader
// REPL rather than a full line-editing one.
func runREPL(w io.Writer, in io.Reader, initial *val.Val, compact, raw bool, log *slog.Logger) {
	scanner := bufio.NewScanner(in)
	evaluator := eval.New(log)
	fmt.Fprint(w, "> ")
	for scanner.Scan() {
		line := scanner.Text()
		if line == "quit" {
			return
		}
		if line == "" {
			fmt.Fprint(w, "> ")
			continue
		}
		tree, perr := parser.Parse(line, parser.WithLogger(log))
		var result *val.Val
		if perr != nil {
			result = val.NewErr(perr.Message())
		} else {
			result, _ = evaluator.Eval(tree.Arena, tree.Root, initial, eval.Vars{})
		}
		printResult(w, result, compact, raw)
		fmt.Fprint(w, "\n> ")
	}
}
