// Zaparoo Console
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Console.
//
// Zaparoo Console is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Console is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Console.  If not, see <http://www.gnu.org/licenses/>.

package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ZaparooProject/zaparoo-console/pkg/helpers/syncutil"
)

const DefaultWatchDelay = 2 * time.Second

// Watcher reports changes below an ingested folder. Bursts of events, like
// copying a batch of ROMs, are coalesced into one callback.
type Watcher struct {
	fs       afero.Fs
	clock    clockwork.Clock
	timer    clockwork.Timer
	fsw      *fsnotify.Watcher
	onChange func(root string)
	root     string
	delay    time.Duration
	mu       syncutil.Mutex
}

// NewWatcher walks folders through fs, the OS filesystem when nil. Events
// come from fsnotify, so fs must resolve to real paths.
func NewWatcher(
	fs afero.Fs,
	clock clockwork.Clock,
	delay time.Duration,
	onChange func(root string),
) *Watcher {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if delay <= 0 {
		delay = DefaultWatchDelay
	}
	return &Watcher{
		fs:       fs,
		clock:    clock,
		delay:    delay,
		onChange: onChange,
	}
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// watchDirs lists root and every non-hidden directory below it.
func watchDirs(fs afero.Fs, root string) ([]string, error) {
	var dirs []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && isHidden(path) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return dirs, nil
}

// Watch replaces any previous watch with root and its subdirectories.
func (w *Watcher) Watch(root string) error {
	w.Stop()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create folder watcher: %w", err)
	}

	dirs, err := watchDirs(w.fs, root)
	if err == nil {
		for _, dir := range dirs {
			if addErr := fsw.Add(dir); addErr != nil {
				err = fmt.Errorf("failed to watch %s: %w", dir, addErr)
				break
			}
		}
	}
	if err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("closing folder watcher")
		}
		return err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.root = root
	w.mu.Unlock()

	go w.run(fsw, root)
	log.Info().Msgf("watching folder: %s", root)
	return nil
}

func (w *Watcher) run(fsw *fsnotify.Watcher, root string) {
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if isHidden(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := w.fs.Stat(event.Name); err == nil && info.IsDir() {
					if err := fsw.Add(event.Name); err != nil {
						log.Warn().Err(err).Msgf("failed to watch new folder: %s", event.Name)
					}
				}
			}
			log.Debug().Msgf("folder change: %s", event)
			w.schedule(fsw, root)
		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Error().Msgf("error in folder watcher: %s", watchErr)
		}
	}
}

func (w *Watcher) schedule(fsw *fsnotify.Watcher, root string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != fsw {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = w.clock.AfterFunc(w.delay, func() {
		w.mu.Lock()
		current := w.fsw == fsw
		w.mu.Unlock()
		if current && w.onChange != nil {
			w.onChange(root)
		}
	})
}

// Root is the watched folder, empty when not watching.
func (w *Watcher) Root() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.root
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw := w.fsw
	w.fsw = nil
	w.root = ""
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if fsw != nil {
		if err := fsw.Close(); err != nil {
			log.Warn().Err(err).Msg("closing folder watcher")
		}
	}
}
