// Package source provides the document sources the snapshot cache reads from: a local
// file, a local file watched for changes, and a remote URL.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
)

// DefaultURL is where the current Eldamo release is published.
const DefaultURL = "https://eldamo.org/content/data-model/eldamo-data.xml"

// FileSource reads the document from a local file. Its version is the file's
// modification time in nanoseconds.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Version(context.Context) (int64, error) {
	fi, err := os.Stat(s.Path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", s.Path, err)
	}
	return fi.ModTime().UnixNano(), nil
}

func (s *FileSource) Open(context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	return f, nil
}
