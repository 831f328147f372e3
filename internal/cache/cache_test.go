package cache_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sebas5384/now-builders/internal/cache"
)

type countingStore struct {
	objects map[string]string
	fetches map[string]int
}

func (s *countingStore) Fetch(_ context.Context, digest string) (io.ReadCloser, error) {
	s.fetches[digest]++
	content, ok := s.objects[digest]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func read(t *testing.T, s *cache.Store, digest string) string {
	t.Helper()
	rc, err := s.Fetch(t.Context(), digest)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	bs, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	return string(bs)
}

func TestCache(t *testing.T) {
	next := &countingStore{
		objects: map[string]string{"a": "content a", "b": "content b", "c": "content c"},
		fetches: map[string]int{},
	}
	s, err := cache.New(next, 2)
	if err != nil {
		t.Fatal(err)
	}

	for range 3 {
		if got := read(t, s, "a"); got != "content a" {
			t.Fatalf("expected %q, got %q", "content a", got)
		}
	}
	if exp, act := 1, next.fetches["a"]; exp != act {
		t.Fatalf("expected %d fetch of a, got %d", exp, act)
	}

	read(t, s, "b")
	read(t, s, "c") // evicts a
	read(t, s, "a")

	if exp, act := 2, next.fetches["a"]; exp != act {
		t.Fatalf("expected %d fetches of a after eviction, got %d", exp, act)
	}
	if exp, act := 2, s.Len(); exp != act {
		t.Fatalf("expected %d entries, got %d", exp, act)
	}
}

func TestCacheErrorsAreNotCached(t *testing.T) {
	next := &countingStore{objects: map[string]string{}, fetches: map[string]int{}}
	s, err := cache.New(next, 2)
	if err != nil {
		t.Fatal(err)
	}

	for range 2 {
		if _, err := s.Fetch(t.Context(), "missing"); err == nil {
			t.Fatal("expected error")
		}
	}
	if exp, act := 2, next.fetches["missing"]; exp != act {
		t.Fatalf("expected %d fetches, got %d", exp, act)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", s.Len())
	}
}

func TestNewInvalidSize(t *testing.T) {
	if _, err := cache.New(&countingStore{}, 0); err == nil {
		t.Fatal("expected error for size 0")
	}
}
