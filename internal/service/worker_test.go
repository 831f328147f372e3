package service

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sebas5384/now-builders/internal/builder"
	"github.com/sebas5384/now-builders/internal/config"
	"github.com/sebas5384/now-builders/internal/files"
	"github.com/sebas5384/now-builders/internal/logging"
	"github.com/sebas5384/now-builders/internal/metrics"
	"github.com/sebas5384/now-builders/internal/s3"
)

type fakeRunner struct {
	pages     []string
	scriptErr error
}

func (*fakeRunner) Install(context.Context, string) error { return nil }

func (r *fakeRunner) RunScript(_ context.Context, dir, _ string) error {
	if r.scriptErr != nil {
		return r.scriptErr
	}
	for _, p := range r.pages {
		dst := filepath.Join(dir, ".next", "serverless", "pages", filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dst, []byte("module.exports = {}"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type failingUploader struct{}

func (failingUploader) Upload(context.Context, string, io.ReadSeeker, map[string]string) error {
	return errors.New("access denied")
}

func input(entryDir string) files.Files {
	return files.Files{
		entryDir + "/package.json":    &files.Blob{Data: []byte(`{"scripts":{"now-build":"next build"}}`)},
		entryDir + "/pages/index.js":  &files.Blob{Data: []byte("export default () => null")},
		entryDir + "/static/logo.png": &files.Blob{Data: []byte("logo")},
	}
}

func TestBuildWorker(t *testing.T) {
	cases := []struct {
		note      string
		entryDir  string
		entry     string
		runner    *fakeRunner
		outputDir func(t *testing.T) string
		failing   bool
		exp       BuildState
	}{
		{
			note:     "success",
			entryDir: "svc-success",
			entry:    "package.json",
			runner:   &fakeRunner{pages: []string{"index.js", "_app.js"}},
			exp:      BuildStateSuccess,
		},
		{
			note:     "invalid entrypoint",
			entryDir: "svc-invalid",
			entry:    "index.js",
			runner:   &fakeRunner{},
			exp:      BuildStateInvalidEntrypoint,
		},
		{
			note:     "script failed",
			entryDir: "svc-script",
			entry:    "package.json",
			runner:   &fakeRunner{scriptErr: errors.New("exit status 1")},
			exp:      BuildStateStepFailed,
		},
		{
			note:     "no pages built",
			entryDir: "svc-nopages",
			entry:    "next.config.js",
			runner:   &fakeRunner{},
			exp:      BuildStateNoPagesBuilt,
		},
		{
			note:     "output directory is a file",
			entryDir: "svc-write",
			entry:    "package.json",
			runner:   &fakeRunner{pages: []string{"index.js"}},
			outputDir: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "out")
				if err := os.WriteFile(p, nil, 0o644); err != nil {
					t.Fatal(err)
				}
				return p
			},
			exp: BuildStateWriteFailed,
		},
		{
			note:     "publish failed",
			entryDir: "svc-push",
			entry:    "package.json",
			runner:   &fakeRunner{pages: []string{"index.js"}},
			failing:  true,
			exp:      BuildStatePushFailed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			outputDir := t.TempDir()
			if tc.outputDir != nil {
				outputDir = tc.outputDir(t)
			}

			entrypoint := tc.entryDir + "/" + tc.entry
			b := builder.New().WithRunner(tc.runner)
			w := NewBuildWorker(b, builder.Params{Files: input(tc.entryDir), Entrypoint: entrypoint, WorkPath: t.TempDir()}, outputDir, logging.NewNoOpLogger())
			if tc.failing {
				w = w.WithPublisher(failingUploader{}, "")
			}

			before := testutil.ToFloat64(metrics.BuildFailed.WithLabelValues(entrypoint, tc.exp.String()))

			status := w.Execute(t.Context())
			if status.State != tc.exp {
				t.Fatalf("expected state %v, got %v (%s)", tc.exp, status.State, status.Message)
			}
			if status != w.Status() {
				t.Fatalf("expected Status() to return %v, got %v", status, w.Status())
			}

			if tc.exp == BuildStateSuccess {
				if status.Message != "" {
					t.Fatalf("expected no message, got %q", status.Message)
				}
				if w.Manifest() == nil {
					t.Fatal("expected manifest")
				}
				return
			}

			if status.Message == "" {
				t.Fatal("expected failure message")
			}
			after := testutil.ToFloat64(metrics.BuildFailed.WithLabelValues(entrypoint, tc.exp.String()))
			if after != before+1 {
				t.Fatalf("expected failure counter to be incremented, got %v -> %v", before, after)
			}
		})
	}
}

func TestBuildWorkerPublish(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "mock-access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "mock-secret-key")
	t.Setenv("AWS_REGION", "us-east-1")

	mock := s3mem.New()
	if err := mock.CreateBucket("deployments"); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(gofakes3.New(mock).Server())
	t.Cleanup(ts.Close)

	storage, err := s3.New(t.Context(), config.AmazonS3{Bucket: "deployments", URL: ts.URL})
	if err != nil {
		t.Fatal(err)
	}

	b := builder.New().WithRunner(&fakeRunner{pages: []string{"index.js", "blog/post.js"}})
	w := NewBuildWorker(b, builder.Params{Files: input("site"), Entrypoint: "site/package.json", WorkPath: t.TempDir()}, t.TempDir(), logging.NewNoOpLogger()).
		WithPublisher(storage, "v1").
		WithWorkers(2)

	if status := w.Execute(t.Context()); status.State != BuildStateSuccess {
		t.Fatalf("expected success, got %v (%s)", status.State, status.Message)
	}

	if diff := cmp.Diff([]string{"site/blog/post", "site/index", "site/static/logo.png"}, w.Output().Paths()); diff != "" {
		t.Fatalf("unexpected output (-want, +got):\n%s", diff)
	}

	for _, key := range []string{"v1/site/index.zip", "v1/site/blog/post.zip", "v1/site/static/logo.png", "v1/output.json"} {
		obj, err := mock.GetObject("deployments", key, nil)
		if err != nil {
			t.Errorf("expected %s to be published: %v", key, err)
			continue
		}
		obj.Contents.Close()
	}
}

func TestBuildStateString(t *testing.T) {
	if exp, act := "NO_PAGES_BUILT", BuildStateNoPagesBuilt.String(); exp != act {
		t.Fatalf("expected %q, got %q", exp, act)
	}
	if exp, act := "UNKNOWN", BuildState(100).String(); exp != act {
		t.Fatalf("expected %q, got %q", exp, act)
	}
}
