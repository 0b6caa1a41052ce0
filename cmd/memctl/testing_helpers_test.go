package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

// runCommand resets global flag state, runs memctl with args and returns
// captured stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	verbose, quiet, jsonOut, logOn, logDir = false, false, false, false, ""
	demoCount = 5
	churnRounds, churnDepth = 10, 100
	t.Setenv("MEMKIT_PROVIDER", "heap")
	t.Setenv("MEMKIT_LIMIT", "0")

	rootCmd.SetArgs(args)
	return captureOutput(t, rootCmd.Execute)
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
	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	fnErr := fn()

	// Close write end and restore stdout
	w.Close()
	os.Stdout = origStdout
	<-done

	return buf.String(), fnErr
}

// decodeJSON unmarshals output into v, failing the test on invalid JSON.
func decodeJSON(t *testing.T, output string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(output), v); err != nil {
		t.Fatalf("output is not valid JSON: %v\nOutput: %s", err, output)
	}
}
