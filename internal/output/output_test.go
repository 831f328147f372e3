package output_test

import (
	"context"
	"errors"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sebas5384/now-builders/internal/builder"
	"github.com/sebas5384/now-builders/internal/files"
	"github.com/sebas5384/now-builders/internal/lambda"
	"github.com/sebas5384/now-builders/internal/output"
)

func artifacts() builder.Output {
	return builder.Output{
		"frontend/index": &lambda.Lambda{ZipBuffer: []byte("index zip"), Handler: "now__launcher.launcher", Runtime: "nodejs8.10"},
		"frontend/blog/post": &lambda.Lambda{
			ZipBuffer:   []byte("post zip"),
			Handler:     "now__launcher.launcher",
			Runtime:     "nodejs8.10",
			Environment: map[string]string{"NODE_ENV": "production"},
		},
		"frontend/static/logo.png":             &files.Blob{Data: []byte("logo")},
		"frontend/_next/static/chunks/main.js": &files.Blob{Data: []byte("main"), FileMode: 0o600},
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()

	m, err := output.Write(t.Context(), artifacts(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	exp := &output.Manifest{Output: map[string]output.Entry{
		"frontend/index": {Type: "Lambda", Path: "frontend/index.zip", Size: 9, Handler: "now__launcher.launcher", Runtime: "nodejs8.10"},
		"frontend/blog/post": {
			Type: "Lambda", Path: "frontend/blog/post.zip", Size: 8, Handler: "now__launcher.launcher", Runtime: "nodejs8.10",
			Environment: map[string]string{"NODE_ENV": "production"},
		},
		"frontend/static/logo.png":             {Type: "FileBlob", Path: "frontend/static/logo.png", Size: 4, Mode: 0o644},
		"frontend/_next/static/chunks/main.js": {Type: "FileBlob", Path: "frontend/_next/static/chunks/main.js", Size: 4, Mode: 0o600},
	}}
	if diff := cmp.Diff(exp, m); diff != "" {
		t.Fatalf("unexpected manifest (-want, +got):\n%s", diff)
	}

	for p, content := range map[string]string{
		"frontend/index.zip":                   "index zip",
		"frontend/blog/post.zip":               "post zip",
		"frontend/static/logo.png":             "logo",
		"frontend/_next/static/chunks/main.js": "main",
	} {
		bs, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(p)))
		if err != nil {
			t.Fatal(err)
		}
		if string(bs) != content {
			t.Errorf("%s: expected %q, got %q", p, content, bs)
		}
	}

	read, err := output.ReadManifest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(m, read); diff != "" {
		t.Fatalf("manifest on disk differs (-want, +got):\n%s", diff)
	}
}

func TestWriteConflict(t *testing.T) {
	_, err := output.Write(t.Context(), builder.Output{
		"index":     &lambda.Lambda{ZipBuffer: []byte("zip")},
		"index.zip": &files.Blob{Data: []byte("static")},
	}, t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected conflict error")
	}
}

type memUploader struct {
	mu       sync.Mutex
	objects  map[string]string
	metadata map[string]map[string]string
	fail     string
}

func (u *memUploader) Upload(_ context.Context, key string, body io.ReadSeeker, metadata map[string]string) error {
	if key == u.fail {
		return errors.New("access denied")
	}
	bs, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = string(bs)
	u.metadata[key] = metadata
	return nil
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	m, err := output.Write(t.Context(), artifacts(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	u := &memUploader{objects: map[string]string{}, metadata: map[string]map[string]string{}}
	if err := output.Publish(t.Context(), dir, m, u, "deployments/1", 2); err != nil {
		t.Fatal(err)
	}

	exp := []string{
		"deployments/1/frontend/_next/static/chunks/main.js",
		"deployments/1/frontend/blog/post.zip",
		"deployments/1/frontend/index.zip",
		"deployments/1/frontend/static/logo.png",
		"deployments/1/output.json",
	}
	if diff := cmp.Diff(exp, slices.Sorted(maps.Keys(u.objects))); diff != "" {
		t.Fatalf("unexpected keys (-want, +got):\n%s", diff)
	}
	if exp, act := map[string]string{"type": "Lambda", "route": "frontend/index"}, u.metadata["deployments/1/frontend/index.zip"]; !cmp.Equal(exp, act) {
		t.Fatalf("expected metadata %v, got %v", exp, act)
	}

	u = &memUploader{objects: map[string]string{}, metadata: map[string]map[string]string{}, fail: "frontend/index.zip"}
	if err := output.Publish(t.Context(), dir, m, u, "", 1); err == nil {
		t.Fatal("expected publish error")
	}
	if _, ok := u.objects[output.ManifestFile]; ok {
		t.Fatal("expected manifest not to be published after a failure")
	}
}
