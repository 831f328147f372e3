// Package launcher provides the files every page lambda is bundled with: the
// bootstrap that serves the compiled page and the bridge translating platform
// invocations into local HTTP requests.
package launcher

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/yalue/merged_fs"

	"github.com/sebas5384/now-builders/internal/files"
)

const (
	LauncherFile = "now__launcher.js"
	BridgeFile   = "now__bridge.js"
)

//go:embed assets/*.js
var assets embed.FS

// Files returns the launcher files as in-memory blobs. Files found in
// overrideDir, if set, replace or extend the embedded ones.
func Files(overrideDir string) (files.Files, error) {
	fsys, err := fs.Sub(assets, "assets")
	if err != nil {
		return nil, err
	}
	if overrideDir != "" {
		fi, err := os.Stat(overrideDir)
		if err != nil {
			return nil, fmt.Errorf("launcher directory: %w", err)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("launcher directory: %s is not a directory", overrideDir)
		}
		fsys = merged_fs.NewMergedFS(os.DirFS(overrideDir), fsys)
	}

	result := files.Files{}
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		bs, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		result[p] = &files.Blob{Data: bs}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
