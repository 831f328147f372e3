package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
)

// Glob returns the regular files below dir whose slash-separated relative
// path matches pattern. "**" matches across directories, "*" does not. A
// missing dir yields no files.
func Glob(pattern, dir string) (Files, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return walk(dir, func(rel string) bool { return g.Match(rel) }, nil)
}

// FromDir returns every regular file below dir, except those matching one
// of the ignore patterns. Ignored directories are not descended into.
func FromDir(dir string, ignore []string) (Files, error) {
	globs := make([]glob.Glob, 0, len(ignore))
	for _, pattern := range ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	ignored := func(rel string) bool {
		for _, g := range globs {
			if g.Match(rel) {
				return true
			}
		}
		return false
	}

	return walk(dir, func(rel string) bool { return !ignored(rel) }, ignored)
}

func walk(dir string, include func(rel string) bool, skipDir func(rel string) bool) (Files, error) {
	result := Files{}

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return result, nil
	} else if err != nil {
		return nil, err
	}

	err := fs.WalkDir(os.DirFS(dir), ".", func(rel string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// "x/**" patterns match everything below x, so probe with a child.
			if rel != "." && skipDir != nil && (skipDir(rel) || skipDir(rel+"/")) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !include(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		result[rel] = &FsRef{
			FsPath:   filepath.Join(dir, filepath.FromSlash(rel)),
			FileMode: info.Mode().Perm(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
