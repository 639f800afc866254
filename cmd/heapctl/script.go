package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/printer"
	"github.com/joshuapare/heapkit/heap/verify"
)

// Op is a workload script statement kind.
type Op string

const (
	OpAlloc  Op = "alloc"
	OpResize Op = "resize"
	OpFree   Op = "free"
	OpWrite  Op = "write"
	OpPoke   Op = "poke"
	OpExpect Op = "expect"
	OpDump   Op = "dump"
	OpReport Op = "report"
	OpVerify Op = "verify"
)

// Statement is one parsed script line.
//
//	NAME = alloc N
//	NAME = resize OTHER N
//	free NAME
//	write NAME OFFSET TEXT
//	poke NAME OFFSET BYTE
//	expect NAME TEXT
//	dump LABEL
//	report
//	verify
type Statement struct {
	Line   int    `json:"line"`
	Op     Op     `json:"op"`
	Name   string `json:"name,omitempty"`
	Source string `json:"source,omitempty"`
	Size   int    `json:"size,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Byte   byte   `json:"byte,omitempty"`
	Text   string `json:"text,omitempty"`
}

// ParseScript reads statements from r. Blank lines and lines starting with
// '#' are skipped.
func ParseScript(r io.Reader) ([]Statement, error) {
	var stmts []Statement
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		st, err := parseStatement(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		st.Line = n
		stmts = append(stmts, st)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return stmts, nil
}

func parseStatement(line string) (Statement, error) {
	if name, rhs, ok := strings.Cut(line, "="); ok && !strings.ContainsAny(strings.TrimSpace(name), " \t") {
		name = strings.TrimSpace(name)
		if !validName(name) {
			return Statement{}, fmt.Errorf("invalid name %q", name)
		}
		f := strings.Fields(rhs)
		switch {
		case len(f) == 2 && f[0] == string(OpAlloc):
			size, err := parseSize(f[1])
			return Statement{Op: OpAlloc, Name: name, Size: size}, err
		case len(f) == 3 && f[0] == string(OpResize):
			size, err := parseSize(f[2])
			return Statement{Op: OpResize, Name: name, Source: f[1], Size: size}, err
		default:
			return Statement{}, fmt.Errorf("expected 'alloc N' or 'resize NAME N' after '=', got %q", strings.TrimSpace(rhs))
		}
	}

	op, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch Op(op) {
	case OpFree:
		if !validName(rest) {
			return Statement{}, fmt.Errorf("free: invalid name %q", rest)
		}
		return Statement{Op: OpFree, Name: rest}, nil

	case OpWrite, OpPoke:
		f := strings.SplitN(rest, " ", 3)
		if len(f) != 3 {
			return Statement{}, fmt.Errorf("%s: expected NAME OFFSET VALUE", op)
		}
		off, err := strconv.Atoi(f[1])
		if err != nil {
			return Statement{}, fmt.Errorf("%s: offset: %w", op, err)
		}
		st := Statement{Op: Op(op), Name: f[0], Offset: off}
		if st.Op == OpPoke {
			b, err := strconv.ParseUint(strings.TrimSpace(f[2]), 0, 8)
			if err != nil {
				return Statement{}, fmt.Errorf("poke: byte: %w", err)
			}
			st.Byte = byte(b)
			return st, nil
		}
		st.Text, err = parseText(f[2])
		return st, err

	case OpExpect:
		name, text, ok := strings.Cut(rest, " ")
		if !ok {
			return Statement{}, errors.New("expect: expected NAME TEXT")
		}
		t, err := parseText(text)
		return Statement{Op: OpExpect, Name: name, Text: t}, err

	case OpDump:
		return Statement{Op: OpDump, Text: rest}, nil

	case OpReport, OpVerify:
		if rest != "" {
			return Statement{}, fmt.Errorf("%s takes no arguments", op)
		}
		return Statement{Op: Op(op)}, nil

	default:
		return Statement{}, fmt.Errorf("unknown statement %q", op)
	}
}

// parseText accepts either bare text or a Go-quoted string, which allows
// escapes such as \x00.
func parseText(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"`) {
		return strconv.Unquote(s)
	}
	return s, nil
}

func parseSize(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("size: %w", err)
	}
	return n, nil
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// Session executes statements against one allocator.
type Session struct {
	arena   *heap.Arena
	alloc   *alloc.Allocator
	names   map[string]alloc.Handle
	out     io.Writer
	printer *printer.Printer
	// collect keeps output in the result instead of printing it.
	collect bool

	result RunResult
}

// RunResult is everything a run produced, for JSON output.
type RunResult struct {
	Statements int            `json:"statements"`
	Events     []alloc.Event  `json:"events"`
	Dumps      []alloc.Dump   `json:"dumps,omitempty"`
	Reports    []alloc.Report `json:"reports,omitempty"`
	Notes      []string       `json:"notes,omitempty"`
	Valid      bool           `json:"valid"`
	Error      string         `json:"error,omitempty"`
}

// NewSession creates an allocator over arena. Text output goes to out;
// with collect set, dumps, reports and events are only recorded.
func NewSession(arena *heap.Arena, out io.Writer, p *printer.Printer, log *slog.Logger, collect bool) (*Session, error) {
	s := &Session{
		arena:   arena,
		names:   make(map[string]alloc.Handle),
		out:     out,
		printer: p,
		collect: collect,
		result:  RunResult{Events: []alloc.Event{}},
	}
	a, err := alloc.New(arena, &alloc.Options{Logger: log, OnEvent: s.onEvent})
	if err != nil {
		return nil, err
	}
	s.alloc = a
	return s, nil
}

// Allocator returns the session's allocator.
func (s *Session) Allocator() *alloc.Allocator { return s.alloc }

// Result returns what the session has recorded so far.
func (s *Session) Result() RunResult { return s.result }

func (s *Session) onEvent(ev alloc.Event) {
	s.result.Events = append(s.result.Events, ev)
	if s.collect {
		return
	}
	var buf bytes.Buffer
	_ = printer.New(&buf, printer.DefaultOptions()).PrintEvent(ev)
	fmt.Fprintln(s.out, alertStyle().Render(strings.TrimRight(buf.String(), "\n")))
}

func (s *Session) note(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.result.Notes = append(s.result.Notes, msg)
	if !s.collect {
		fmt.Fprintln(s.out, warningStyle().Render(msg))
	}
}

func (s *Session) handle(name string) (alloc.Handle, error) {
	h, ok := s.names[name]
	if !ok {
		return alloc.Nil, fmt.Errorf("undefined name %q", name)
	}
	return h, nil
}

// Run executes every statement, stopping at the first failure.
func (s *Session) Run(stmts []Statement) error {
	for _, st := range stmts {
		if err := s.Exec(st); err != nil {
			return fmt.Errorf("line %d: %w", st.Line, err)
		}
		s.result.Statements++
	}
	return nil
}

// Exec executes one statement. Allocator diagnostics such as guard
// corruption or a double free are reported as events, not errors.
func (s *Session) Exec(st Statement) error {
	switch st.Op {
	case OpAlloc:
		h, err := s.alloc.Allocate(st.Size)
		if errors.Is(err, alloc.ErrNoSpace) {
			s.note("%s = alloc %d: arena exhausted", st.Name, st.Size)
		} else if err != nil {
			return err
		}
		s.names[st.Name] = h

	case OpResize:
		old, err := s.handle(st.Source)
		if err != nil {
			return err
		}
		h, err := s.alloc.Resize(old, st.Size)
		switch {
		case errors.Is(err, alloc.ErrNoSpace):
			s.note("%s = resize %s %d: arena exhausted, %s unchanged", st.Name, st.Source, st.Size, st.Source)
		case errors.Is(err, alloc.ErrBadRef):
			// Reported through the event sink.
		case err != nil:
			return err
		}
		if err == nil || st.Name != st.Source {
			s.names[st.Name] = h
		}

	case OpFree:
		h, err := s.handle(st.Name)
		if err != nil {
			return err
		}
		if err := s.alloc.Release(h); err != nil && !errors.Is(err, alloc.ErrBadRef) {
			return err
		}

	case OpWrite:
		p, err := s.payload(st.Name)
		if err != nil {
			return err
		}
		if st.Offset < 0 || st.Offset+len(st.Text) > len(p) {
			return fmt.Errorf("write of %d bytes at %d outside %s's %d usable bytes (use poke)",
				len(st.Text), st.Offset, st.Name, len(p))
		}
		copy(p[st.Offset:], st.Text)

	case OpPoke:
		h, err := s.handle(st.Name)
		if err != nil {
			return err
		}
		at := int(h) + st.Offset
		data := s.arena.Bytes()
		if at < 0 || at >= len(data) {
			return fmt.Errorf("poke at %d is outside the arena [0, %d)", at, len(data))
		}
		data[at] = st.Byte

	case OpExpect:
		p, err := s.payload(st.Name)
		if err != nil {
			return err
		}
		if !bytes.HasPrefix(p, []byte(st.Text)) {
			n := min(len(p), len(st.Text))
			return fmt.Errorf("expect %s: got %q, want %q", st.Name, p[:n], st.Text)
		}

	case OpDump:
		d := s.alloc.HeapDump(st.Text)
		s.result.Dumps = append(s.result.Dumps, d)
		if !s.collect {
			return s.printer.PrintDump(d)
		}

	case OpReport:
		r := s.alloc.MemoryReport()
		s.result.Reports = append(s.result.Reports, r)
		if !s.collect {
			return s.printer.PrintReport(r)
		}

	case OpVerify:
		if err := verify.Arena(s.arena.Region(), s.arena.End()); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown statement %q", st.Op)
	}
	return nil
}

func (s *Session) payload(name string) ([]byte, error) {
	h, err := s.handle(name)
	if err != nil {
		return nil, err
	}
	p := s.alloc.Payload(h)
	if p == nil {
		return nil, fmt.Errorf("%s (handle %d) is not a live allocation", name, h)
	}
	return p, nil
}
