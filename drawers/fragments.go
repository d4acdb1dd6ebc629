package drawers

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"nami/markup"
)

const FRAGMENT_EXT = ".html"

//go:embed fragments/*.html templates/*.gohtml
var embedded embed.FS

// FragmentLoader serves sanitized drawer shells by drawer id, from the embedded set or from a directory on disk.
type FragmentLoader struct {
	fsys   fs.FS
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// NewFragmentLoader reads fragments from dir, or from the embedded set when dir is empty.
func NewFragmentLoader(dir string, logger *slog.Logger) *FragmentLoader {
	var fsys fs.FS
	if dir == "" {
		fsys, _ = fs.Sub(embedded, "fragments")
	} else {
		fsys = os.DirFS(dir)
	}
	return &FragmentLoader{
		fsys:   fsys,
		dir:    dir,
		logger: logger,
		cache:  make(map[string]string),
	}
}

func (l *FragmentLoader) Load(id string) (string, error) {
	l.mu.RLock()
	fragment, ok := l.cache[id]
	l.mu.RUnlock()
	if ok {
		return fragment, nil
	}

	name := id + FRAGMENT_EXT
	if strings.ContainsAny(id, `/\`) || !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: %q", ErrUnknownDrawer, id)
	}
	raw, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return "", fmt.Errorf("load fragment %s: %w", name, err)
	}
	fragment = string(markup.SanitizeFragment(raw))

	l.mu.Lock()
	l.cache[id] = fragment
	l.mu.Unlock()
	return fragment, nil
}

func (l *FragmentLoader) Invalidate(id string) {
	l.mu.Lock()
	delete(l.cache, id)
	l.mu.Unlock()
}

// Watch drops cached fragments when their files change. It is a no-op for the embedded set. The watcher runs until ctx
// is done.
func (l *FragmentLoader) Watch(ctx context.Context) error {
	if l.dir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(l.dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", l.dir, err)
	}
	go l.watchLoop(ctx, w)
	return nil
}

func (l *FragmentLoader) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer func() { _ = w.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, FRAGMENT_EXT) {
				continue
			}
			id := strings.TrimSuffix(name, FRAGMENT_EXT)
			l.Invalidate(id)
			l.logger.Debug("fragment changed", "drawer", id, "op", event.Op.String())
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.logger.Warn("fragment watcher", "error", err)
		}
	}
}
