// Package files holds the virtual file tree the builder transforms: a mapping
// from slash-separated relative paths to immutable content handles.
package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"slices"
)

const defaultMode fs.FileMode = 0o644

// File is an immutable content handle. Implementations are *Ref, *FsRef and
// *Blob; they are never mutated once created.
type File interface {
	Type() string
	Mode() fs.FileMode
}

// Ref is a content-addressable file, fetched from a Store by its digest.
type Ref struct {
	Digest   string
	FileMode fs.FileMode
}

func (*Ref) Type() string { return "FileRef" }

func (r *Ref) Mode() fs.FileMode { return modeOrDefault(r.FileMode) }

// FsRef is a file on the local filesystem.
type FsRef struct {
	FsPath   string
	FileMode fs.FileMode
}

func (*FsRef) Type() string { return "FileFsRef" }

func (r *FsRef) Mode() fs.FileMode { return modeOrDefault(r.FileMode) }

// Blob is a file held in memory.
type Blob struct {
	Data     []byte
	FileMode fs.FileMode
}

func (*Blob) Type() string { return "FileBlob" }

func (b *Blob) Mode() fs.FileMode { return modeOrDefault(b.FileMode) }

func modeOrDefault(m fs.FileMode) fs.FileMode {
	if m == 0 {
		return defaultMode
	}
	return m
}

// Store resolves digests of *Ref files to their content.
type Store interface {
	Fetch(ctx context.Context, digest string) (io.ReadCloser, error)
}

// ErrNoStore is returned when a *Ref has to be opened without a Store.
var ErrNoStore = errors.New("no store configured for content-addressable files")

// Open returns the content of f.
func Open(ctx context.Context, store Store, f File) (io.ReadCloser, error) {
	switch f := f.(type) {
	case *Blob:
		return io.NopCloser(bytes.NewReader(f.Data)), nil
	case *FsRef:
		return os.Open(f.FsPath)
	case *Ref:
		if store == nil {
			return nil, fmt.Errorf("open %s: %w", f.Digest, ErrNoStore)
		}
		return store.Fetch(ctx, f.Digest)
	default:
		return nil, fmt.Errorf("unsupported file type %T", f)
	}
}

// Files maps normalized relative paths (no leading slash, no "." or ".."
// segments) to content handles.
type Files map[string]File

// Paths returns the keys of fs in lexical order.
func (fs Files) Paths() []string {
	return slices.Sorted(maps.Keys(fs))
}
