package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/verify"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a workload script against a fresh arena",
		Long: `The run command executes an allocation script, one statement per line:

  NAME = alloc N           allocate N bytes
  NAME = resize OTHER N    resize OTHER to N bytes, result in NAME
  free NAME                release NAME
  write NAME OFFSET TEXT   copy TEXT into NAME's payload (bounds-checked)
  poke NAME OFFSET BYTE    write one raw byte relative to NAME's payload,
                           which may land on a guard
  expect NAME TEXT         fail unless NAME's payload starts with TEXT
  dump LABEL               print a heap dump
  report                   print the memory report
  verify                   check the arena layout
  # comment

TEXT may be a Go-quoted string. Use "-" to read the script from stdin.

Example:
  heapctl run workload.heap
  heapctl run workload.heap --json
  echo 'p = alloc 12' | heapctl run -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(args)
		},
	}
	return cmd
}

func runScript(args []string) error {
	path := args[0]

	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		in = f
	}

	stmts, err := ParseScript(in)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	printVerbose("Parsed %d statements from %s\n", len(stmts), path)

	arena, err := newArena()
	if err != nil {
		return err
	}
	defer arena.Close()

	s, err := NewSession(arena, os.Stdout, newPrinter(os.Stdout), newLogger(os.Stderr), jsonOut || quiet)
	if err != nil {
		return err
	}

	runErr := s.Run(stmts)
	verifyErr := verify.Arena(arena.Region(), arena.End())

	res := s.Result()
	res.Valid = verifyErr == nil
	if runErr != nil {
		res.Error = runErr.Error()
	} else if verifyErr != nil {
		res.Error = verifyErr.Error()
	}

	if jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printSummary(res)
	}

	if runErr != nil {
		return runErr
	}
	return verifyErr
}

func printSummary(res RunResult) {
	printInfo("\n%s\n", headerStyle().Render("Run summary"))
	printInfo("  Statements: %d\n", res.Statements)
	if n := len(res.Events); n > 0 {
		printInfo("  Events:     %s\n", errorStyle().Render(fmt.Sprintf("%d", n)))
	} else {
		printInfo("  Events:     %s\n", mutedStyle().Render("0"))
	}
	if res.Valid {
		printInfo("  Layout:     %s\n", successStyle().Render("valid"))
	} else {
		printInfo("  Layout:     %s\n", errorStyle().Render("invalid"))
	}
}
