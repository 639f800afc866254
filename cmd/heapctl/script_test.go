package main

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/printer"
	"github.com/joshuapare/heapkit/internal/testutil"
)

func TestParseScript(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Statement
		wantErr string
	}{
		{name: "alloc", line: "a = alloc 50", want: Statement{Op: OpAlloc, Name: "a", Size: 50}},
		{name: "alloc no spaces", line: "buf_1=alloc 8", want: Statement{Op: OpAlloc, Name: "buf_1", Size: 8}},
		{name: "resize", line: "d = resize d 200", want: Statement{Op: OpResize, Name: "d", Source: "d", Size: 200}},
		{name: "free", line: "free a", want: Statement{Op: OpFree, Name: "a"}},
		{name: "write", line: "write a 0 hello world", want: Statement{Op: OpWrite, Name: "a", Text: "hello world"}},
		{name: "write with equals", line: "write a 2 x=y", want: Statement{Op: OpWrite, Name: "a", Offset: 2, Text: "x=y"}},
		{name: "write quoted", line: `write a 0 "hi\x00"`, want: Statement{Op: OpWrite, Name: "a", Text: "hi\x00"}},
		{name: "poke negative", line: "poke a -1 0x45", want: Statement{Op: OpPoke, Name: "a", Offset: -1, Byte: 0x45}},
		{name: "expect", line: "expect a hello", want: Statement{Op: OpExpect, Name: "a", Text: "hello"}},
		{name: "dump", line: "dump My heap", want: Statement{Op: OpDump, Text: "My heap"}},
		{name: "report", line: "report", want: Statement{Op: OpReport}},
		{name: "verify", line: "verify", want: Statement{Op: OpVerify}},
		{name: "bad size", line: "a = alloc many", wantErr: "size"},
		{name: "bad rhs", line: "a = calloc 4", wantErr: "expected 'alloc N'"},
		{name: "bad name", line: "a-b = alloc 4", wantErr: "invalid name"},
		{name: "poke overflow", line: "poke a 0 256", wantErr: "poke: byte"},
		{name: "report args", line: "report now", wantErr: "no arguments"},
		{name: "unknown", line: "mmap 4096", wantErr: "unknown statement"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, err := ParseScript(strings.NewReader(tt.line))
			if tt.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.wantErr)
				require.Contains(t, err.Error(), "line 1")
				return
			}
			require.NoError(t, err)
			require.Len(t, stmts, 1)
			tt.want.Line = 1
			require.Equal(t, tt.want, stmts[0])
		})
	}
}

func TestParseScript_SkipsCommentsAndBlanks(t *testing.T) {
	stmts, err := ParseScript(strings.NewReader("# setup\n\na = alloc 4\n   # indented\nfree a\n"))
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	require.Equal(t, 3, stmts[0].Line)
	require.Equal(t, 5, stmts[1].Line)
}

// newTestSession runs statements in text mode and returns the session and
// its output.
func newTestSession(t *testing.T, collect bool) (*Session, *bytes.Buffer) {
	t.Helper()
	noColor = true
	t.Cleanup(func() { noColor = false })

	var out bytes.Buffer
	arena := testutil.NewTestArena(t, 64<<10)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewSession(arena, &out, printer.New(&out, printer.DefaultOptions()), log, collect)
	require.NoError(t, err)
	return s, &out
}

func runLines(t *testing.T, s *Session, script string) error {
	t.Helper()
	stmts, err := ParseScript(strings.NewReader(script))
	require.NoError(t, err)
	return s.Run(stmts)
}

func TestSession_HelloWorld(t *testing.T) {
	s, out := newTestSession(t, false)

	err := runLines(t, s, `
s = alloc 6
write s 0 hello
s = resize s 12
write s 5 " world"
expect s hello world
free s
dump after
report
verify
`)
	require.NoError(t, err)
	require.Equal(t, 9, s.Result().Statements)
	require.Contains(t, out.String(), "HEAP DUMP (after)")
	require.Contains(t, out.String(), "No leaks.")
	require.Empty(t, s.Result().Events)
}

func TestSession_RedzoneAlerts(t *testing.T) {
	s, out := newTestSession(t, false)

	err := runLines(t, s, `
p = alloc 9
write p 0 aaaaaaaaa
free p
p = alloc 5
poke p -1 0x45
free p
p = alloc 12
poke p 13 0x45
free p
`)
	require.NoError(t, err)

	events := s.Result().Events
	require.Len(t, events, 2)
	require.Equal(t, alloc.EventGuardCorruption, events[0].Kind)
	require.Equal(t, uint32(0x45FDFDFD), events[0].NearGuard)
	require.Equal(t, uint32(0xFDFD45FD), events[1].FarGuard)
	require.Equal(t, 2, strings.Count(out.String(), "Heap Alert"))
}

func TestSession_DoubleFreeIsAnEvent(t *testing.T) {
	s, _ := newTestSession(t, true)

	require.NoError(t, runLines(t, s, "a = alloc 8\nfree a\nfree a\n"))
	require.Len(t, s.Result().Events, 1)
	require.Equal(t, alloc.EventInvalidRelease, s.Result().Events[0].Kind)
}

func TestSession_Exhaustion(t *testing.T) {
	s, out := newTestSession(t, false)

	require.NoError(t, runLines(t, s, "a = alloc 100\nwrite a 0 kept\nb = alloc 1000000\na = resize a 1000000\nexpect a kept\n"))
	require.Len(t, s.Result().Notes, 2)
	require.Contains(t, out.String(), "arena exhausted")
}

func TestSession_Errors(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{name: "undefined name", script: "free nope", wantErr: `undefined name "nope"`},
		{name: "write overflow", script: "a = alloc 4\nwrite a 2 abcdef", wantErr: "outside a's 4 usable bytes"},
		{name: "write to freed", script: "a = alloc 4\nfree a\nwrite a 0 x", wantErr: "not a live allocation"},
		{name: "expect mismatch", script: "a = alloc 8\nwrite a 0 abc\nexpect a abd", wantErr: `got "abc", want "abd"`},
		{name: "poke outside arena", script: "a = alloc 8\npoke a 1000 1", wantErr: "outside the arena"},
		{name: "negative alloc", script: "a = alloc -1", wantErr: "negative size"},
		{name: "broken layout", script: "a = alloc 8\npoke a -40 0\npoke a -39 0\nverify", wantErr: "Tiling"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t, true)
			err := runLines(t, s, tt.script)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
			require.Contains(t, err.Error(), "line ")
		})
	}
}
