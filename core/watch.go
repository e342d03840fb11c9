// Copyright 2026 The Outline Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/Jigsaw-Code/corectl/internal/debounce"
)

// WatchConfig restarts the core whenever the configuration file is written or
// replaced. It blocks until ctx is done.
func (m *Manager) WatchConfig(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	file := filepath.Clean(m.opts.ConfigFile)
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", file, err)
	}

	restart := debounce.New(m.opts.WatchDebounce, func() {
		m.opts.Logger.Info("config changed, restarting core", "file", file)
		if err := m.Restart(ctx); err != nil {
			m.opts.Logger.Error("failed to restart core", "error", err)
		}
	})
	defer restart.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != file || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			restart.Trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.opts.Logger.Warn("config watcher error", "error", err)
		}
	}
}
