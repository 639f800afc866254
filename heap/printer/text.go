package printer

import (
	"strings"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/trace"
)

const rule = "============================================="

// printDumpText prints one line per block between labelled rules.
func (p *Printer) printDumpText(d alloc.Dump) error {
	indent := strings.Repeat(" ", p.opts.IndentSize)

	p.msg.Fprintf(p.writer, "---------- HEAP DUMP (%s) ----------\n", d.Label)
	p.msg.Fprintf(p.writer, "Arena [0x0, 0x%x): %d bytes in %d blocks\n", d.End, d.End, len(d.Blocks))
	for _, b := range d.Blocks {
		p.msg.Fprintf(p.writer, "%s0x%06x  handle=0x%06x  capacity=%d  usable=%d  %s",
			indent, b.Offset, uint32(b.Handle), b.Capacity, b.Usable, b.State)
		if b.Seq != 0 {
			p.msg.Fprintf(p.writer, "  #%d", b.Seq)
		}
		p.msg.Fprintf(p.writer, "\n")
	}
	if d.Truncated {
		p.msg.Fprintf(p.writer, "%s(walk stopped at a damaged header)\n", indent)
	}
	p.msg.Fprintf(p.writer, "----------  END DUMP (%s) ----------\n", d.Label)
	return nil
}

// printReportText prints counters followed by every leaked block.
func (p *Printer) printReportText(r alloc.Report) error {
	s := r.Stats
	p.msg.Fprintf(p.writer, "%s\n%s\n%s\n", rule, "               Memory Report", rule)
	p.msg.Fprintf(p.writer, "alloc/release: %d allocs, %d releases, %d resizes, %d bytes allocated\n",
		s.AllocCalls, s.FreeCalls, s.ResizeCalls, s.BytesAllocated)
	p.msg.Fprintf(p.writer, "arena: %d bytes, grown %d times, %d reuse hits, %d merges\n",
		r.End, s.GrowCalls, s.ReuseHits, s.CoalesceForward)
	p.msg.Fprintf(p.writer, "resize: %d in place, %d relocated\n", s.InPlaceGrowths, s.Relocations)
	if s.GuardViolations > 0 || s.InvalidReleases > 0 || s.Exhausted > 0 {
		p.msg.Fprintf(p.writer, "errors: %d guard violations, %d invalid releases, %d exhausted\n",
			s.GuardViolations, s.InvalidReleases, s.Exhausted)
	}

	for _, l := range r.Leaks {
		p.msg.Fprintf(p.writer, "\n%d bytes are lost (handle 0x%x, #%d), allocated by\n",
			l.Usable, uint32(l.Handle), l.Seq)
		p.printFrames(l.Frames)
	}

	if len(r.Leaks) == 0 {
		p.msg.Fprintf(p.writer, "\nAll allocations released. No leaks.\n")
		return nil
	}
	p.msg.Fprintf(p.writer, "\nLost %d total bytes in %d blocks.\n", r.LeakedBytes(), len(r.Leaks))
	return nil
}

// printEventText prints an alert banner for a diagnostic event.
func (p *Printer) printEventText(ev alloc.Event) error {
	p.msg.Fprintf(p.writer, "%s\n%s\n%s\n", rule, "**********   Heap Alert   **********", rule)
	switch ev.Kind {
	case alloc.EventGuardCorruption:
		p.msg.Fprintf(p.writer, "Release of handle 0x%x with damaged guard(s): [%08X] [%08X]\n",
			uint32(ev.Handle), ev.NearGuard, ev.FarGuard)
		p.msg.Fprintf(p.writer, "Block of capacity %d bytes (#%d), allocated by\n", ev.Capacity, ev.Seq)
		p.printFrames(ev.Frames)
	case alloc.EventInvalidRelease:
		p.msg.Fprintf(p.writer, "Release of handle 0x%x that is not a live allocation\n", uint32(ev.Handle))
	default:
		p.msg.Fprintf(p.writer, "%s at handle 0x%x\n", ev.Kind, uint32(ev.Handle))
	}
	return nil
}

func (p *Printer) printFrames(frames []trace.Frame) {
	if !p.opts.ShowFrames {
		return
	}
	indent := strings.Repeat(" ", p.opts.IndentSize)
	if len(frames) == 0 {
		p.msg.Fprintf(p.writer, "%s(no call path recorded)\n", indent)
		return
	}
	for _, f := range frames {
		p.msg.Fprintf(p.writer, "%s0x%x at %s+%d\n", indent, f.PC, f.Name, f.Offset)
	}
}
