package files

import (
	"maps"
	"path"
	"slices"
	"strings"
)

// StaticDirectory is the project directory served verbatim, outside of the
// framework build.
const StaticDirectory = "static"

// LockFiles are package manager lock files kept away from the install step.
var LockFiles = []string{"package-lock.json", "yarn.lock"}

// ExcludeFiles returns the entries of files whose path does not satisfy
// matcher.
func ExcludeFiles(files Files, matcher func(path string) bool) Files {
	result := make(Files, len(files))
	for p, f := range files {
		if matcher(p) {
			continue
		}
		result[p] = f
	}
	return result
}

// IncludeOnlyEntryDirectory keeps the files below entryDirectory. The root
// directory "." keeps everything.
func IncludeOnlyEntryDirectory(files Files, entryDirectory string) Files {
	if entryDirectory == "." {
		return maps.Clone(files)
	}

	prefix := entryDirectory + "/"
	return ExcludeFiles(files, func(p string) bool {
		return !strings.HasPrefix(p, prefix)
	})
}

// MoveEntryDirectoryToRoot strips entryDirectory from every path. Paths
// outside of entryDirectory are dropped without error: callers scope the
// files with IncludeOnlyEntryDirectory first.
func MoveEntryDirectoryToRoot(files Files, entryDirectory string) Files {
	if entryDirectory == "." {
		return maps.Clone(files)
	}

	prefix := entryDirectory + "/"
	result := make(Files, len(files))
	for p, f := range files {
		rel, ok := strings.CutPrefix(p, prefix)
		if !ok || rel == "" {
			continue
		}
		result[rel] = f
	}
	return result
}

// ExcludeLockFiles drops package-lock.json and yarn.lock at any depth.
func ExcludeLockFiles(files Files) Files {
	return ExcludeFiles(files, func(p string) bool {
		return slices.Contains(LockFiles, path.Base(p))
	})
}

// ExcludeStaticDirectory drops everything below the root static directory.
func ExcludeStaticDirectory(files Files) Files {
	return ExcludeFiles(files, inStaticDirectory)
}

// OnlyStaticDirectory keeps only what is below the root static directory.
func OnlyStaticDirectory(files Files) Files {
	return ExcludeFiles(files, func(p string) bool {
		return !inStaticDirectory(p)
	})
}

func inStaticDirectory(p string) bool {
	return strings.HasPrefix(p, StaticDirectory+"/")
}

// Prefix moves every file below prefix.
func Prefix(files Files, prefix string) Files {
	result := make(Files, len(files))
	for p, f := range files {
		result[path.Join(prefix, p)] = f
	}
	return result
}
