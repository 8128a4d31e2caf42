// testing/helpers.go
package testing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Context returns a context cancelled after 30s or when the test ends.
func Context(t *testing.T) context.Context {
	t.Helper()
	return ContextWithTimeout(t, 30*time.Second)
}

// ContextWithTimeout returns a context with a custom timeout.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// TempFile writes content to name inside a fresh temp dir and returns the path.
func TempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// Eventually polls check until it returns true or timeout passes.
func Eventually(t *testing.T, check func() bool, timeout, interval time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(interval)
	}
	t.Fatalf("condition not met within %v", timeout)
}
