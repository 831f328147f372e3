// Package cache keeps recently fetched file contents in memory.
package cache

import (
	"bytes"
	"context"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sebas5384/now-builders/internal/files"
)

// Store is a files.Store remembering the contents of the last size digests
// it fetched. Contents of a digest never change, so entries are never
// invalidated.
type Store struct {
	next  files.Store
	cache *lru.Cache[string, []byte]
}

func New(next files.Store, size int) (*Store, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Store{next: next, cache: c}, nil
}

func (s *Store) Fetch(ctx context.Context, digest string) (io.ReadCloser, error) {
	if bs, ok := s.cache.Get(digest); ok {
		return io.NopCloser(bytes.NewReader(bs)), nil
	}

	rc, err := s.next.Fetch(ctx, digest)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	bs, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	s.cache.Add(digest, bs)

	return io.NopCloser(bytes.NewReader(bs)), nil
}

// Len returns the number of cached digests.
func (s *Store) Len() int {
	return s.cache.Len()
}
