// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agents

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/messaging"
)

const (
	// DefaultSettleDelay is how long a new file must go without writes
	// before it is announced.
	DefaultSettleDelay = 500 * time.Millisecond

	// DefaultEventBuffer bounds the number of unconsumed detections.
	DefaultEventBuffer = 64
)

// Watcher announces documents created in its watched directories.
// Each detection is sent to subscribers as document_detected and pushed
// to the Events channel. Subdirectories are not watched.
type Watcher struct {
	*Agent
	fs       *fsnotify.Watcher
	supports func(path string) bool
	settle   time.Duration
	events   chan string

	mu   sync.Mutex
	dirs []string
}

// NewWatcher builds a watcher announcing files for which supports returns
// true. A nil supports accepts every file.
func NewWatcher(broker *messaging.Broker, supports func(path string) bool, settle time.Duration, opts ...Option) (*Watcher, error) {
	a, err := newAgent(NameWatcher, "watcher", broker, nil, opts)
	if err != nil {
		return nil, err
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if supports == nil {
		supports = func(string) bool { return true }
	}
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Watcher{
		Agent:    a,
		fs:       fs,
		supports: supports,
		settle:   settle,
		events:   make(chan string, DefaultEventBuffer),
	}, nil
}

// Watch adds dir to the watched set. It may be called while Run is active.
func (w *Watcher) Watch(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if slices.Contains(w.dirs, abs) {
		return nil
	}
	if err := w.fs.Add(abs); err != nil {
		return fmt.Errorf("watching %s: %w", abs, err)
	}
	w.dirs = append(w.dirs, abs)
	w.logger.Info("started watching directory", "dir", abs)
	return nil
}

// Dirs lists watched directories.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.dirs)
}

// Events delivers the paths of detected documents. It is closed when Run returns.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Close releases the underlying watcher. Run does this itself on return.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run processes file system events until ctx ends, then releases the
// underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer w.fs.Close()

	settleTimer := time.NewTimer(w.settle)
	settleTimer.Stop()
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopped watching")
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			_, known := pending[event.Name]
			switch {
			case event.Has(fsnotify.Create) && w.supports(event.Name):
				pending[event.Name] = struct{}{}
			case event.Has(fsnotify.Write) && known:
			case (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) && known:
				delete(pending, event.Name)
				continue
			default:
				continue
			}
			settleTimer.Reset(w.settle)

		case <-settleTimer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)
			for _, p := range paths {
				w.announce(ctx, p)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "err", err)
		}
	}
}

func (w *Watcher) announce(ctx context.Context, path string) {
	w.logger.Info("new document detected", "path", path)
	w.Notify(ctx, DocumentDetected{Path: path}, core.MessageTypeDocumentDetected,
		map[string]string{core.MetaSourceFile: path, core.MetaFileName: filepath.Base(path)})

	select {
	case w.events <- path:
	case <-ctx.Done():
	default:
		w.logger.Warn("detection buffer full, dropping event", "path", path)
	}
}
