// Package tempfs creates throwaway directory trees for tests.
package tempfs

import (
	"os"
	"path/filepath"
	"testing"
)

// WithTempFS writes files (slash-separated path to content) below a fresh
// temporary directory and calls fn with its root.
func WithTempFS(t *testing.T, files map[string]string, fn func(t *testing.T, root string)) {
	t.Helper()
	root := t.TempDir()
	Write(t, root, files)
	fn(t, root)
}

// Write adds files below root.
func Write(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for p, content := range files {
		dst := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}
