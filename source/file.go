package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/mobilitykit/logger"
	"github.com/kbukum/mobilitykit/provider"
)

// fileDocument is the YAML layout read by File:
//
//	providers:
//	  - id: velib
//	    implementation: gbfs
//	    arguments: {feed_url: "...", network: Velib}
//	    last_update: 2024-03-01T12:00:00Z
type fileDocument struct {
	Providers []provider.Definition `yaml:"providers"`
}

// File reads provider definitions from a YAML document. Definitions without
// last_update take the file modification time, so editing the file rebuilds
// them.
type File struct {
	path string
	log  *logger.Logger
}

// NewFile creates a File source for path.
func NewFile(path string, log *logger.Logger) *File {
	if log == nil {
		log = logger.Get("source.file")
	}
	return &File{path: path, log: log}
}

// Path returns the watched document path.
func (f *File) Path() string { return f.path }

// ListProviders implements provider.Source. A missing file is an error, an
// empty document means no provider.
func (f *File) ListProviders(context.Context) ([]provider.Definition, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading provider file: %w", err)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading provider file: %w", err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing provider file %s: %w", f.path, err)
	}
	defs := make([]provider.Definition, 0, len(doc.Providers))
	for _, d := range doc.Providers {
		if d.LastUpdate.IsZero() {
			d.LastUpdate = info.ModTime()
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// Watch calls onChange after the document is written, created, renamed or
// removed, once per burst of events separated by less than debounce. The
// parent directory is watched so editors that replace the file are seen.
// Watch blocks until ctx is done.
func (f *File) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	target := filepath.Clean(f.path)
	f.log.Debug("provider file watch started", logger.Fields("path", target))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				f.log.Info("provider file changed", logger.Fields("path", target, "op", event.Op.String()))
				onChange()
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.log.Warn("provider file watcher error", logger.MergeWithError(nil, err))
		}
	}
}
