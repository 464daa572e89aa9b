package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// WatchedFileSource is a FileSource whose version also advances on every filesystem
// event for the file, so rewrites within the filesystem's timestamp granularity are
// still seen as changes.
//
// The parent directory is watched rather than the file itself: editors and release
// scripts usually replace the file by renaming, which drops a watch on the old inode.
type WatchedFileSource struct {
	file    *FileSource
	path    string
	watcher *fsnotify.Watcher
	log     *slog.Logger

	mu      sync.Mutex
	version int64
	changes chan struct{}

	done     chan struct{}
	stopOnce sync.Once
}

// NewWatchedFileSource starts watching path. The watch stops when ctx is done or Close
// is called.
func NewWatchedFileSource(ctx context.Context, path string, log *slog.Logger) (*WatchedFileSource, error) {
	if log == nil {
		log = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	s := &WatchedFileSource{
		file:    NewFileSource(abs),
		path:    abs,
		watcher: w,
		log:     log,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	if v, err := s.file.Version(ctx); err == nil {
		s.version = v
	}
	go s.processEvents(ctx)
	return s, nil
}

// Version returns a value that increases on every change to the file. It fails if the
// file does not currently exist.
func (s *WatchedFileSource) Version(ctx context.Context) (int64, error) {
	mtime, err := s.file.Version(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if mtime > s.version {
		s.version = mtime
	}
	return s.version, nil
}

func (s *WatchedFileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return s.file.Open(ctx)
}

// Changes delivers a signal after each change. Signals are coalesced; a receiver that
// falls behind sees one pending signal.
func (s *WatchedFileSource) Changes() <-chan struct{} {
	return s.changes
}

// Close stops watching.
func (s *WatchedFileSource) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		err = s.watcher.Close()
	})
	return err
}

func (s *WatchedFileSource) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			s.bump()
			s.log.Debug("document changed", "path", s.path, "op", ev.Op.String())
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("file watcher error", "path", s.path, "error", err)
		}
	}
}

func (s *WatchedFileSource) bump() {
	s.mu.Lock()
	s.version++
	s.mu.Unlock()

	select {
	case s.changes <- struct{}{}:
	default:
	}
}
