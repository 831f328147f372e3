// Package output writes build output to a directory and publishes it.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/sebas5384/now-builders/internal/builder"
	"github.com/sebas5384/now-builders/internal/files"
	"github.com/sebas5384/now-builders/internal/lambda"
	"github.com/sebas5384/now-builders/internal/pool"
)

// ManifestFile is written next to the artifacts and describes them.
const ManifestFile = "output.json"

// Entry describes one output path. Path is the file holding it, relative to
// the output directory.
type Entry struct {
	Type        string            `json:"type"`
	Path        string            `json:"path"`
	Size        int64             `json:"size"`
	Mode        fs.FileMode       `json:"mode,omitempty"`
	Handler     string            `json:"handler,omitempty"`
	Runtime     string            `json:"runtime,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
}

// Manifest maps output paths to their entries.
type Manifest struct {
	Output map[string]Entry `json:"output"`
}

// Write stores every artifact of out below dir: lambdas as <route>.zip,
// files at their own path. The manifest is written last.
func Write(ctx context.Context, out builder.Output, dir string, store files.Store) (*Manifest, error) {
	m := &Manifest{Output: make(map[string]Entry, len(out))}
	written := map[string]string{}

	for _, p := range out.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var entry Entry
		switch a := out[p].(type) {
		case *lambda.Lambda:
			entry = Entry{
				Type:        a.Type(),
				Path:        p + ".zip",
				Size:        int64(len(a.ZipBuffer)),
				Handler:     a.Handler,
				Runtime:     a.Runtime,
				Environment: a.Environment,
			}
			if err := writeBytes(filepath.Join(dir, filepath.FromSlash(entry.Path)), a.ZipBuffer); err != nil {
				return nil, fmt.Errorf("write lambda %s: %w", p, err)
			}
		case files.File:
			entry = Entry{Type: a.Type(), Path: p, Mode: a.Mode()}
			n, err := copyFile(ctx, store, a, filepath.Join(dir, filepath.FromSlash(p)))
			if err != nil {
				return nil, fmt.Errorf("write file %s: %w", p, err)
			}
			entry.Size = n
		default:
			return nil, fmt.Errorf("unsupported artifact %T at %s", a, p)
		}

		if other, ok := written[entry.Path]; ok {
			return nil, fmt.Errorf("%s and %s both write %s", other, p, entry.Path)
		}
		written[entry.Path] = p
		m.Output[p] = entry
	}

	bs, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeBytes(filepath.Join(dir, ManifestFile), bs); err != nil {
		return nil, err
	}

	return m, nil
}

// ReadManifest loads the manifest written to dir.
func ReadManifest(dir string) (*Manifest, error) {
	bs, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(bs, &m); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ManifestFile, err)
	}
	return &m, nil
}

func writeBytes(dst string, bs []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, bs, 0o644)
}

func copyFile(ctx context.Context, store files.Store, f files.File, dst string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}

	src, err := files.Open(ctx, store, f)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode().Perm())
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, src)
	if err != nil {
		_ = out.Close()
		return 0, err
	}
	return n, out.Close()
}

// Uploader stores objects by key. Implemented by *s3.AmazonS3.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.ReadSeeker, metadata map[string]string) error
}

// Publish uploads every artifact listed in m from dir to keys below prefix,
// using up to workers concurrent uploads, and then the manifest itself.
func Publish(ctx context.Context, dir string, m *Manifest, u Uploader, prefix string, workers int) error {
	routes := make([]string, 0, len(m.Output))
	for route := range m.Output {
		routes = append(routes, route)
	}

	_, err := pool.Map(ctx, workers, routes, func(ctx context.Context, route string) (struct{}, error) {
		entry := m.Output[route]
		return struct{}{}, upload(ctx, u, filepath.Join(dir, filepath.FromSlash(entry.Path)), path.Join(prefix, entry.Path),
			map[string]string{"type": entry.Type, "route": route})
	})
	if err != nil {
		return err
	}

	return upload(ctx, u, filepath.Join(dir, ManifestFile), path.Join(prefix, ManifestFile), nil)
}

func upload(ctx context.Context, u Uploader, src, key string, metadata map[string]string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := u.Upload(ctx, key, f, metadata); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}
