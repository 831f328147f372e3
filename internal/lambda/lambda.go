// Package lambda packages file trees into serverless function archives.
package lambda

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"

	"github.com/sebas5384/now-builders/internal/files"
)

// MaxLambdaSize is the largest archive the host platform accepts.
const MaxLambdaSize = 5 * 1024 * 1024

// epoch is stamped on every archive entry so identical inputs produce
// identical archives.
var epoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Lambda is a packaged serverless function.
type Lambda struct {
	ZipBuffer   []byte
	Handler     string
	Runtime     string
	Environment map[string]string
}

func (*Lambda) Type() string { return "Lambda" }

type Options struct {
	Files       files.Files
	Handler     string
	Runtime     string
	Environment map[string]string
}

type Packager interface {
	Create(ctx context.Context, opts Options) (*Lambda, error)
}

// SizeError is returned when an archive exceeds the size limit.
type SizeError struct {
	Size, Max int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("lambda archive is %s, exceeding the maximum of %s",
		humanize.IBytes(uint64(e.Size)), humanize.IBytes(uint64(e.Max)))
}

// ZipPackager writes lambda file trees into zip archives. Files of type
// *files.Ref are fetched from Store.
type ZipPackager struct {
	Store   files.Store
	MaxSize int // zero means MaxLambdaSize
}

func (p *ZipPackager) Create(ctx context.Context, opts Options) (*Lambda, error) {
	buf := bytes.Buffer{}
	w := zip.NewWriter(&buf)

	for _, name := range opts.Files.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.add(ctx, w, name, opts.Files[name]); err != nil {
			return nil, fmt.Errorf("add %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	maxSize := p.MaxSize
	if maxSize == 0 {
		maxSize = MaxLambdaSize
	}
	if buf.Len() > maxSize {
		return nil, &SizeError{Size: buf.Len(), Max: maxSize}
	}

	return &Lambda{
		ZipBuffer:   buf.Bytes(),
		Handler:     opts.Handler,
		Runtime:     opts.Runtime,
		Environment: opts.Environment,
	}, nil
}

func (p *ZipPackager) add(ctx context.Context, w *zip.Writer, name string, f files.File) error {
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: epoch,
	}
	hdr.SetMode(f.Mode())

	dst, err := w.CreateHeader(hdr)
	if err != nil {
		return err
	}

	src, err := files.Open(ctx, p.Store, f)
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = io.Copy(dst, src)
	return err
}
