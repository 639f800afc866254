package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/printer"
)

var (
	// Global flags
	verbose   bool
	quiet     bool
	jsonOut   bool
	noColor   bool
	arenaSize int
	reserved  int
)

// numbers groups digits in human-readable byte counts.
var numbers = message.NewPrinter(language.English)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Exercise and inspect the debugging heap allocator",
	Long: `heapctl runs allocation workloads against a fresh arena and reports
what the allocator saw: heap dumps, leaks with the call paths that allocated
them, and guard corruption alerts.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().
		IntVar(&arenaSize, "arena-size", heap.DefaultSize, "Arena reservation in bytes")
	rootCmd.PersistentFlags().
		IntVar(&reserved, "reserved", heap.DefaultReserved, "Bytes at the top of the arena kept out of reach")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprint(os.Stderr, errorStyle().Render("Error:")+" "+fmt.Sprintf(format, args...))
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// newLogger returns the allocator's logger: allocator decisions at debug
// level with --verbose, otherwise warnings only.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newPrinter returns a printer honouring --json.
func newPrinter(w io.Writer) *printer.Printer {
	opts := printer.DefaultOptions()
	if jsonOut {
		opts.Format = printer.FormatJSON
	}
	return printer.New(w, opts)
}

// newArena reserves an arena sized by --arena-size and --reserved.
func newArena() (*heap.Arena, error) {
	return heap.New(heap.Config{Size: arenaSize, Reserved: reserved})
}

// newAllocator creates an allocator over arena that sends events to onEvent.
func newAllocator(arena *heap.Arena, onEvent func(alloc.Event)) (*alloc.Allocator, error) {
	return alloc.New(arena, &alloc.Options{
		Logger:  newLogger(os.Stderr),
		OnEvent: onEvent,
	})
}
