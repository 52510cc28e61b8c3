// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events editors emit per save.
const watchDebounce = 200 * time.Millisecond

// Watcher reloads configuration when the config file changes on disk and
// hands the result to a callback. Invalid or unreadable files are ignored,
// keeping the last good config active.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	ctx     context.Context
	cancel  context.CancelFunc
}

// WatchConfig watches the given config file path. onChange runs on the
// watcher goroutine with each successfully reloaded config.
func WatchConfig(path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files via rename, which drops
	// a watch placed on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{watcher: fw, path: path, ctx: ctx, cancel: cancel}
	go w.run(onChange)
	return w, nil
}

func (w *Watcher) run(onChange func(*Config)) {
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			cfg := Default()
			if err := LoadTOML(cfg, w.path); err != nil {
				continue
			}
			cfg.ApplyEnvOverrides()
			fillDefaults(cfg)
			if cfg.Validate() != nil {
				continue
			}
			onChange(cfg)

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}
