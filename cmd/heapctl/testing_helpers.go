package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/joshuapare/heapkit/heap"
)

// resetFlags restores global flags to their defaults for the duration of a
// test.
func resetFlags(t *testing.T) {
	t.Helper()
	verbose, quiet, jsonOut, noColor = false, false, false, true
	arenaSize, reserved = 64<<10, 4<<10
	recycleIterations, recycleMaxSize, recycleSeed = 10, 1024, 1
	t.Cleanup(func() {
		verbose, quiet, jsonOut, noColor = false, false, false, false
		arenaSize, reserved = heap.DefaultSize, heap.DefaultReserved
	})
}

// writeScript writes a workload script to a temporary file and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workload.heap")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	// Save original stdout
	origStdout := os.Stdout

	// Create a pipe to capture output
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}

	// Redirect stdout to pipe
	os.Stdout = w

	// Drain concurrently so large outputs cannot block the writer
	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	// Run function
	fnErr := fn()

	// Close write end and restore stdout
	w.Close()
	os.Stdout = origStdout

	return string(<-done), fnErr
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) {
	t.Helper()
	var result interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Errorf("output is not valid JSON: %v\nOutput: %s", err, output)
	}
}
