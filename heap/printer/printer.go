// Package printer renders allocator diagnostics as text or JSON.
package printer

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/heapkit/heap/alloc"
)

const DefaultIndentSize = 2

// Format specifies the output format for printing.
type Format string

const (
	// FormatText outputs human-readable text format.
	FormatText Format = "text"

	// FormatJSON outputs JSON format, one document per call.
	FormatJSON Format = "json"
)

// Options controls printing behavior.
type Options struct {
	// Format specifies output format (text, json).
	// Default: FormatText
	Format Format

	// IndentSize is the number of spaces per indent level (text format only).
	// Default: 2
	IndentSize int

	// Language selects digit grouping for byte counts (text format only).
	// Default: language.English
	Language language.Tag

	// ShowFrames includes resolved call paths in reports and events.
	// Default: true
	ShowFrames bool
}

// DefaultOptions returns sensible defaults for printing.
func DefaultOptions() Options {
	return Options{
		Format:     FormatText,
		IndentSize: DefaultIndentSize,
		Language:   language.English,
		ShowFrames: true,
	}
}

// Printer writes diagnostics to a writer.
type Printer struct {
	opts   Options
	writer io.Writer
	msg    *message.Printer
}

// New creates a new Printer.
//
// Example:
//
//	p := printer.New(os.Stdout, printer.DefaultOptions())
//	p.PrintDump(a.HeapDump("after setup"))
func New(w io.Writer, opts Options) *Printer {
	if opts.Format == "" {
		opts.Format = FormatText
	}
	if opts.IndentSize <= 0 {
		opts.IndentSize = DefaultIndentSize
	}
	if opts.Language == language.Und {
		opts.Language = language.English
	}
	return &Printer{
		opts:   opts,
		writer: w,
		msg:    message.NewPrinter(opts.Language),
	}
}

// PrintDump prints a heap dump.
func (p *Printer) PrintDump(d alloc.Dump) error {
	switch p.opts.Format {
	case FormatText:
		return p.printDumpText(d)
	case FormatJSON:
		return p.printJSON(d)
	default:
		return fmt.Errorf("unsupported format: %s", p.opts.Format)
	}
}

// PrintReport prints a memory report.
func (p *Printer) PrintReport(r alloc.Report) error {
	switch p.opts.Format {
	case FormatText:
		return p.printReportText(r)
	case FormatJSON:
		if !p.opts.ShowFrames {
			r = stripFrames(r)
		}
		return p.printJSON(r)
	default:
		return fmt.Errorf("unsupported format: %s", p.opts.Format)
	}
}

// PrintEvent prints one diagnostic event.
func (p *Printer) PrintEvent(ev alloc.Event) error {
	switch p.opts.Format {
	case FormatText:
		return p.printEventText(ev)
	case FormatJSON:
		if !p.opts.ShowFrames {
			ev.Frames = nil
		}
		return p.printJSON(ev)
	default:
		return fmt.Errorf("unsupported format: %s", p.opts.Format)
	}
}

func stripFrames(r alloc.Report) alloc.Report {
	leaks := make([]alloc.Leak, len(r.Leaks))
	for i, l := range r.Leaks {
		l.Frames = nil
		leaks[i] = l
	}
	r.Leaks = leaks
	return r
}
