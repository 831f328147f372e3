// Package httpstore fetches content-addressable files from an HTTP server.
package httpstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sebas5384/now-builders/internal/config"
)

// Store answers Fetch with GET <base>/<digest>.
type Store struct {
	base   string
	token  config.Secret
	client *http.Client
}

func New(cfg config.HTTP) *Store {
	return &Store{base: strings.TrimSuffix(cfg.URL, "/"), token: cfg.Token, client: http.DefaultClient}
}

// WithClient replaces the default HTTP client.
func (s *Store) WithClient(c *http.Client) *Store {
	s.client = c
	return s
}

// StatusError reports an unsuccessful response.
type StatusError struct {
	Digest     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unsuccessful status code %d", e.Digest, e.StatusCode)
}

func (s *Store) Fetch(ctx context.Context, digest string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/"+url.PathEscape(digest), nil)
	if err != nil {
		return nil, err
	}
	if token := s.token.Value(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_ = resp.Body.Close()
		return nil, &StatusError{Digest: digest, StatusCode: resp.StatusCode}
	}

	return resp.Body, nil
}
