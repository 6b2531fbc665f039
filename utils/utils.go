// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package utils contains utility functions.
package utils

import (
	"crypto/sha256"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v1"
)

// UnmarshallYAMLFile reads YAML file and unmarshalls it into data.
func UnmarshallYAMLFile(filename string, data interface{}) error {
	b, err := ioutil.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, data)
}

// Hash returns an SHA256 hash of the given string.
func Hash(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// DirExist returns true if the given directory exists.
func DirExist(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.IsDir()
}

// Returns true if filename has one of the given extension.
// Extensions must start with dot.
func HasFileExt(filename string, extensions []string) bool {
	ext := filepath.Ext(filename)
	for _, v := range extensions {
		if v == ext {
			return true
		}
	}
	return false
}

// Pool is a worker pool for parallel job processing.
type Pool struct {
	sync.Mutex
	wg   sync.WaitGroup
	jobs chan interface{}
	err  error
}

// NewPool creates a new pool of the given number of workers which calls
// fn for each added item and stores the first returned error.
// If parallelism is not positive, the number of CPUs is used.
func NewPool(parallelism int, fn func(interface{}) error) *Pool {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	p := &Pool{
		jobs: make(chan interface{}, parallelism),
	}
	// Launch workers.
	for i := 0; i < parallelism; i++ {
		go func() {
			for j := range p.jobs {
				err := fn(j)
				if err != nil {
					p.Lock()
					if p.err == nil {
						p.err = err
					}
					p.Unlock()
				}
				p.wg.Done()
			}
		}()
	}
	return p
}

// Add adds a new job to pool. Function passed to
// NewPool will be called for each job in a worker goroutine.
//
// After finishing adding items, Err must be called on the pool
// to wait for unfinished jobs to complete and get the first error.
func (p *Pool) Add(job interface{}) {
	p.wg.Add(1)
	p.jobs <- job
}

// Err waits for all jobs to complete, stops workers and
// returns the first error. The pool can't be used after that.
func (p *Pool) Err() error {
	p.wg.Wait()
	close(p.jobs)
	return p.err
}
