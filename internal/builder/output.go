package builder

import (
	"maps"
	"slices"

	"github.com/sebas5384/now-builders/internal/files"
	"github.com/sebas5384/now-builders/internal/lambda"
)

// Artifact is an output entry: a *lambda.Lambda for routes, a files.File for
// static assets.
type Artifact interface {
	Type() string
}

// Output maps deployable paths to artifacts.
type Output map[string]Artifact

// Paths returns the output paths in lexical order.
func (o Output) Paths() []string {
	return slices.Sorted(maps.Keys(o))
}

// Lambdas returns the route lambdas.
func (o Output) Lambdas() map[string]*lambda.Lambda {
	result := map[string]*lambda.Lambda{}
	for p, a := range o {
		if l, ok := a.(*lambda.Lambda); ok {
			result[p] = l
		}
	}
	return result
}

// Files returns the static assets.
func (o Output) Files() files.Files {
	result := files.Files{}
	for p, a := range o {
		if f, ok := a.(files.File); ok {
			result[p] = f
		}
	}
	return result
}

// merge adds every entry of src, failing on the first path already taken.
func merge[A Artifact](dst Output, src map[string]A) error {
	for _, p := range slices.Sorted(maps.Keys(src)) {
		if _, ok := dst[p]; ok {
			return &OutputConflictError{Path: p}
		}
		dst[p] = src[p]
	}
	return nil
}
