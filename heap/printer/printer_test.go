package printer

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/trace"
	"github.com/joshuapare/heapkit/internal/testutil"
)

func TestPrintDump_Text(t *testing.T) {
	a, _, _ := testutil.SetupTestAllocator(t)
	h := testutil.MustAllocate(t, a, 50)
	_ = testutil.MustAllocate(t, a, 30)
	require.NoError(t, a.Release(h))

	var buf bytes.Buffer
	p := New(&buf, DefaultOptions())
	require.NoError(t, p.PrintDump(a.HeapDump("My heap")))

	out := buf.String()
	require.Contains(t, out, "---------- HEAP DUMP (My heap) ----------")
	require.Contains(t, out, "0x000000  handle=0x000028  capacity=56  usable=52  free\n")
	require.Contains(t, out, "capacity=40  usable=36  allocated  #2\n")
	require.Contains(t, out, "176 bytes in 2 blocks")
	require.Contains(t, out, "----------  END DUMP (My heap) ----------")
}

func TestPrintDump_Truncated(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, DefaultOptions())
	require.NoError(t, p.PrintDump(alloc.Dump{Label: "x", Truncated: true}))
	require.Contains(t, buf.String(), "walk stopped")
}

func TestPrintDump_JSON(t *testing.T) {
	a, _, _ := testutil.SetupTestAllocator(t)
	_ = testutil.MustAllocate(t, a, 10)

	var buf bytes.Buffer
	p := New(&buf, Options{Format: FormatJSON})
	require.NoError(t, p.PrintDump(a.HeapDump("json")))

	var d alloc.Dump
	require.NoError(t, json.Unmarshal(buf.Bytes(), &d))
	require.Equal(t, "json", d.Label)
	require.Len(t, d.Blocks, 1)
	require.Equal(t, "allocated", d.Blocks[0].State)
}

func TestPrintReport_GroupsDigits(t *testing.T) {
	r := alloc.Report{
		Stats: alloc.Stats{AllocCalls: 1234567, FreeCalls: 3, BytesAllocated: 9876543},
		End:   65536,
		Leaks: []alloc.Leak{
			{Handle: 0x28, Capacity: 4104, Usable: 4100, Seq: 7, Frames: []trace.Frame{
				{PC: 0x4a10, Name: "main.serve", Offset: 32},
			}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, New(&buf, DefaultOptions()).PrintReport(r))

	out := buf.String()
	require.Contains(t, out, "1,234,567 allocs, 3 releases")
	require.Contains(t, out, "9,876,543 bytes allocated")
	require.Contains(t, out, "4,100 bytes are lost (handle 0x28, #7), allocated by\n")
	require.Contains(t, out, "  0x4a10 at main.serve+32\n")
	require.Contains(t, out, "Lost 4,100 total bytes in 1 blocks.")
	require.NotContains(t, out, "errors:")
}

func TestPrintReport_Clean(t *testing.T) {
	a, _, _ := testutil.SetupTestAllocator(t)

	var buf bytes.Buffer
	require.NoError(t, New(&buf, DefaultOptions()).PrintReport(a.MemoryReport()))
	require.Contains(t, buf.String(), "No leaks.")
}

func TestPrintReport_JSONWithoutFrames(t *testing.T) {
	r := alloc.Report{Leaks: []alloc.Leak{{Handle: 40, Frames: []trace.Frame{{PC: 1, Name: "f"}}}}}

	opts := DefaultOptions()
	opts.Format = FormatJSON
	opts.ShowFrames = false
	var buf bytes.Buffer
	require.NoError(t, New(&buf, opts).PrintReport(r))

	var got alloc.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Leaks, 1)
	require.Empty(t, got.Leaks[0].Frames)
	require.Len(t, r.Leaks[0].Frames, 1, "caller's report must not be modified")
}

func TestPrintEvent_Text(t *testing.T) {
	tests := []struct {
		name string
		ev   alloc.Event
		want []string
	}{
		{
			name: "guard corruption",
			ev: alloc.Event{
				Kind: alloc.EventGuardCorruption, Handle: 0x28, Capacity: 16, Seq: 2,
				NearGuard: 0x45FDFDFD, FarGuard: 0xFDFDFDFD,
			},
			want: []string{"Heap Alert", "[45FDFDFD] [FDFDFDFD]", "capacity 16 bytes (#2)", "(no call path recorded)"},
		},
		{
			name: "invalid release",
			ev:   alloc.Event{Kind: alloc.EventInvalidRelease, Handle: 0x30},
			want: []string{"Heap Alert", "handle 0x30 that is not a live allocation"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, New(&buf, DefaultOptions()).PrintEvent(tt.ev))
			for _, w := range tt.want {
				require.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestPrintEvent_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Options{Format: FormatJSON})
	require.NoError(t, p.PrintEvent(alloc.Event{Kind: alloc.EventInvalidRelease, Handle: 8}))
	require.JSONEq(t, `{"kind":"invalid-release","handle":8}`, buf.String())
}

func TestUnsupportedFormat(t *testing.T) {
	p := New(&bytes.Buffer{}, Options{Format: "reg"})
	require.Error(t, p.PrintDump(alloc.Dump{}))
	require.Error(t, p.PrintReport(alloc.Report{}))
	require.Error(t, p.PrintEvent(alloc.Event{}))
}
