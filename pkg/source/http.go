package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "eldamo-cli"

// HTTPSource reads the document from a URL. Its version is the Last-Modified time
// reported by a HEAD request. A server that sends no Last-Modified header yields
// version 0, so the document is fetched once and never considered stale.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Version(ctx context.Context) (int64, error) {
	resp, err := s.do(ctx, http.MethodHead)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()

	lm := resp.Header.Get("Last-Modified")
	if lm == "" {
		return 0, nil
	}
	t, err := http.ParseTime(lm)
	if err != nil {
		return 0, fmt.Errorf("parse Last-Modified %q: %w", lm, err)
	}
	return t.UnixNano(), nil
}

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.do(ctx, http.MethodGet)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// do sends a request and rejects any status other than 200. On success the caller owns
// the response body.
func (s *HTTPSource) do(ctx context.Context, method string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: %s", method, s.URL, resp.Status)
	}
	return resp, nil
}
