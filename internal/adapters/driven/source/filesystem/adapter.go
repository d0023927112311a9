// Package filesystem implements a source adapter over local directories.
// Each matching file becomes one source unit; watch mode pushes updates
// via fsnotify.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragline-cli/internal/logger"
)

// DefaultExtensions are the file extensions indexed when none are
// configured.
var DefaultExtensions = []string{".md", ".txt"}

// Adapter walks configured directories and emits one unit per file.
type Adapter struct {
	roots      []string
	extensions map[string]bool
	watcher    *fsnotify.Watcher
}

var _ driven.SourceAdapter = (*Adapter)(nil)

// New creates a filesystem adapter over the given root directories.
func New(roots []string, extensions []string) (*Adapter, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: filesystem adapter needs at least one path", domain.ErrInvalidConfig)
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extSet[strings.ToLower(ext)] = true
	}

	cleaned := make([]string, len(roots))
	for i, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolving path %s: %w", root, err)
		}
		cleaned[i] = abs
	}

	return &Adapter{roots: cleaned, extensions: extSet}, nil
}

// Name returns a human-readable adapter name.
func (a *Adapter) Name() string {
	return "filesystem"
}

// Type returns the source type this adapter produces.
func (a *Adapter) Type() domain.SourceType {
	return domain.SourceTypeFile
}

// Capabilities reports that a walk is a complete snapshot, so files that
// disappeared can be retired, and that live watching is available.
func (a *Adapter) Capabilities() driven.AdapterCapabilities {
	return driven.AdapterCapabilities{
		SnapshotComplete: true,
		SupportsWatch:    true,
	}
}

// Units streams all matching files under the configured roots.
func (a *Adapter) Units(ctx context.Context) (<-chan domain.SourceUnit, <-chan error) {
	units := make(chan domain.SourceUnit)
	errs := make(chan error, 1)

	go func() {
		defer close(units)
		defer close(errs)

		for _, root := range a.roots {
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					if strings.HasPrefix(d.Name(), ".") && path != root {
						return filepath.SkipDir
					}
					return nil
				}
				if !a.matches(path) {
					return nil
				}

				unit, err := a.loadUnit(path)
				if err != nil {
					logger.Warn("Skipping %s: %v", path, err)
					return nil
				}

				select {
				case <-ctx.Done():
					return ctx.Err()
				case units <- unit:
					return nil
				}
			})
			if err != nil {
				errs <- fmt.Errorf("walking %s: %w", root, err)
				return
			}
		}
	}()

	return units, errs
}

// Watch pushes a unit whenever a matching file is created or modified.
// The stream closes when the context is cancelled.
func (a *Adapter) Watch(ctx context.Context) (<-chan domain.SourceUnit, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	a.watcher = watcher

	// Watch every directory under the roots; fsnotify is not recursive.
	for _, root := range a.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watching %s: %w", root, err)
		}
	}

	units := make(chan domain.SourceUnit)

	go func() {
		defer close(units)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}

				// New directories need watching too.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						logger.Warn("Cannot watch %s: %v", event.Name, err)
					}
					continue
				}

				if !a.matches(event.Name) {
					continue
				}
				unit, err := a.loadUnit(event.Name)
				if err != nil {
					logger.Warn("Skipping %s: %v", event.Name, err)
					continue
				}

				select {
				case <-ctx.Done():
					return
				case units <- unit:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error: %v", err)
			}
		}
	}()

	return units, nil
}

// Close stops any active watcher.
func (a *Adapter) Close() error {
	if a.watcher != nil {
		return a.watcher.Close()
	}
	return nil
}

func (a *Adapter) matches(path string) bool {
	return a.extensions[strings.ToLower(filepath.Ext(path))]
}

// loadUnit reads a file into a source unit. The source ID is the path
// relative to its root, so moving a corpus directory does not re-ingest
// every file.
func (a *Adapter) loadUnit(path string) (domain.SourceUnit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.SourceUnit{}, fmt.Errorf("reading file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.SourceUnit{}, fmt.Errorf("stat file: %w", err)
	}

	sourceID := path
	for _, root := range a.roots {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			sourceID = filepath.ToSlash(rel)
			break
		}
	}

	text := string(content)
	unit := domain.SourceUnit{
		SourceID:   sourceID,
		SourceType: domain.SourceTypeFile,
		RawText:    text,
		Metadata: map[string]string{
			"path":     path,
			"title":    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			"modified": info.ModTime().UTC().Format(time.RFC3339),
		},
	}
	unit.ContentHash = domain.HashContent(text, map[string]string{"path": path})
	return unit, nil
}
