// Copyright 2014 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fspoll implements a primitive polling-based filesystem watcher.
package fspoll

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileState struct {
	mode    os.FileMode
	modTime time.Time
	size    int64
}

type Watcher struct {
	dir           string
	excludeGlobs  []string
	state         map[string]fileState
	interval      time.Duration
	sleepInterval time.Duration
	closed        chan struct{}
	closeOnce     sync.Once

	// event channels
	Change chan bool
	Error  chan error
}

const (
	DefaultInterval = 1 * time.Second
	SleepAfter      = 5 * time.Minute
)

// Watch polls the given directory and subdirectories and files inside it,
// excluding the given globs, for changes with the given interval.
//
// When there was no change for the given interval in 5 minutes, interval
// changes to sleepInterval (interval * 5 by default).
// It's back to normal interval if a change is detected.
// If sleepInterval is negative, don't sleep.
//
// It returns a Watcher or an error.
func Watch(dir string, excludeGlobs []string, interval, sleepInterval time.Duration) (w *Watcher, err error) {
	if interval == 0 {
		interval = DefaultInterval
	}
	if sleepInterval < 0 {
		sleepInterval = interval
	} else if sleepInterval == 0 {
		sleepInterval = interval * 5
	}
	w = &Watcher{
		dir:           dir,
		excludeGlobs:  excludeGlobs,
		interval:      interval,
		sleepInterval: sleepInterval,
		Change:        make(chan bool),
		Error:         make(chan error),
		closed:        make(chan struct{}),
	}
	// Get initial state
	w.state, err = w.getState()
	if err != nil {
		return nil, err
	}
	// Start watching goroutine
	go w.start()
	return w, nil
}

func (w *Watcher) start() {
	lastChangeTime := time.Now()
	currentInterval := w.interval
	for {
		hasChange, err := w.check()
		switch {
		case err != nil:
			if !w.sendError(err) {
				return
			}
		case hasChange:
			now := time.Now()
			if now.Sub(lastChangeTime) > SleepAfter {
				currentInterval = w.sleepInterval
			} else {
				currentInterval = w.interval
			}
			lastChangeTime = now
			if !w.sendChange() {
				return
			}
		}
		select {
		case <-time.After(currentInterval):
			continue
		case <-w.closed:
			return
		}
	}
}

// sendChange delivers a change event unless the watcher is closed.
func (w *Watcher) sendChange() bool {
	select {
	case w.Change <- true:
		return true
	case <-w.closed:
		return false
	}
}

func (w *Watcher) sendError(err error) bool {
	select {
	case w.Error <- err:
		return true
	case <-w.closed:
		return false
	}
}

func (w *Watcher) isExcluded(path string, fi os.FileInfo) (bool, error) {
	for _, glob := range w.excludeGlobs {
		matched, err := filepath.Match(glob, path)
		if err != nil {
			return false, err
		}
		if !matched {
			if matched, err = filepath.Match(glob, fi.Name()); err != nil {
				return false, err
			}
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func (w *Watcher) getState() (map[string]fileState, error) {
	ns := make(map[string]fileState)
	err := filepath.Walk(w.dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		excluded, err := w.isExcluded(path, fi)
		if err != nil {
			return err
		}
		if excluded {
			// Skip excluded path
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		st := fileState{mode: fi.Mode()}
		if !fi.IsDir() {
			st.modTime = fi.ModTime()
			st.size = fi.Size()
		}
		ns[path] = st
		return nil
	})
	return ns, err
}

func (w *Watcher) check() (hasChange bool, err error) {
	ns, err := w.getState()
	if err != nil {
		return false, err
	}
	defer func() {
		// Set new state as current when this function finishes.
		w.state = ns
	}()
	if len(ns) != len(w.state) {
		return true, nil
	}
	for path, nst := range ns {
		ost, ok := w.state[path]
		if !ok || !ost.modTime.Equal(nst.modTime) || ost.mode != nst.mode || ost.size != nst.size {
			return true, nil
		}
	}
	// Same number of paths, all of them known: nothing was deleted.
	return false, nil
}

// Done returns a channel which is closed when the watcher is closed.
func (w *Watcher) Done() <-chan struct{} {
	return w.closed
}

// Close stops the watcher.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.closed)
	})
}
