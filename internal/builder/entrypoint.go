package builder

import (
	"path"
	"slices"
)

// Entrypoints lists the basenames accepted as build entrypoints.
var Entrypoints = []string{"package.json", "next.config.js"}

// ValidateEntrypoint fails with *InvalidEntrypointError unless the basename
// of p is one of Entrypoints.
func ValidateEntrypoint(p string) error {
	if !slices.Contains(Entrypoints, path.Base(p)) {
		return &InvalidEntrypointError{Path: p, Allowed: slices.Clone(Entrypoints)}
	}
	return nil
}

// EntryDirectory returns the directory holding the entrypoint, "." for the
// project root.
func EntryDirectory(entrypoint string) string {
	return path.Dir(entrypoint)
}
