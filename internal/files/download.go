package files

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Download writes files below dir, creating parent directories as needed,
// and returns FsRefs to the written copies.
func Download(ctx context.Context, files Files, dir string, store Store) (Files, error) {
	result := make(Files, len(files))

	for _, p := range files.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f := files[p]
		dst := filepath.Join(dir, filepath.FromSlash(p))
		if err := writeFile(ctx, store, f, dst); err != nil {
			return nil, fmt.Errorf("download %s: %w", p, err)
		}
		result[p] = &FsRef{FsPath: dst, FileMode: f.Mode()}
	}

	return result, nil
}

func writeFile(ctx context.Context, store Store, f File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	src, err := Open(ctx, store, f)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
