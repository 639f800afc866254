package alloc

import (
	"log/slog"
	"os"

	"github.com/joshuapare/heapkit/heap/trace"
)

// Runtime debug flag for allocation logging - controlled by HEAP_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAP_LOG_ALLOC") != ""

// Options configures an Allocator. A nil *Options selects every default.
type Options struct {
	// Capturer records allocation call paths. Default: trace.NewRuntime
	// skipping the allocator's own frames.
	Capturer trace.Capturer

	// Logger receives debug traces of allocator decisions and, when OnEvent
	// is nil, warnings for diagnostic events. Default: text on stderr at
	// warn level, or debug level when HEAP_LOG_ALLOC is set.
	Logger *slog.Logger

	// OnEvent receives guard corruption and invalid release events.
	// Default: log the event at warn level.
	OnEvent func(Event)
}

func defaultLogger() *slog.Logger {
	level := slog.LevelWarn
	if logAlloc {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
