// Copyright 2018 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package build implements a small build system which turns source
// files into assets and lets plugins process them before they are
// written out.
package build

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dchest/cssopt/assets"
)

// Module is a unit of compilation producing one asset.
type Module struct {
	Name     string // asset key
	Filename string

	// UseSourceMap tells the loader to keep source map
	// information for the module.
	UseSourceMap bool
}

// Loader loads an asset for the module.
type Loader func(m *Module) (assets.Asset, error)

// Compiler runs compilations.
type Compiler struct {
	compilationHooks []func(*Compilation)
}

func NewCompiler() *Compiler {
	return &Compiler{}
}

// OnCompilation registers fn to be called for each new compilation
// before any module is built.
func (c *Compiler) OnCompilation(fn func(*Compilation)) {
	c.compilationHooks = append(c.compilationHooks, fn)
}

// Compile builds the given modules with load and lets plugins
// optimize the resulting assets. Errors of individual modules
// are recorded in the compilation.
func (c *Compiler) Compile(modules []*Module, load Loader) *Compilation {
	comp := &Compilation{
		ID:     uuid.NewString(),
		Assets: make(map[string]assets.Asset),
	}
	for _, fn := range c.compilationHooks {
		fn(comp)
	}
	for _, m := range modules {
		for _, fn := range comp.buildModuleHooks {
			fn(m)
		}
		a, err := load(m)
		if err != nil {
			comp.AddError(fmt.Errorf("%s: %w", m.Name, err))
			continue
		}
		comp.Assets[m.Name] = a
	}
	for _, fn := range comp.optimizeAssetsHooks {
		fn(comp.Assets)
	}
	return comp
}

// Compilation is a single run of the compiler.
type Compilation struct {
	// ID identifies the compilation in logs.
	ID string
	// Assets maps asset keys to assets.
	Assets map[string]assets.Asset

	mu     sync.Mutex
	errors []error

	buildModuleHooks    []func(*Module)
	optimizeAssetsHooks []func(map[string]assets.Asset)
}

// OnBuildModule registers fn to be called before each module is built.
func (c *Compilation) OnBuildModule(fn func(*Module)) {
	c.buildModuleHooks = append(c.buildModuleHooks, fn)
}

// OnOptimizeAssets registers fn to be called when all assets are built.
// It may replace assets in the map.
func (c *Compilation) OnOptimizeAssets(fn func(map[string]assets.Asset)) {
	c.optimizeAssetsHooks = append(c.optimizeAssetsHooks, fn)
}

// CompilationError is an error recorded by a compilation.
type CompilationError struct {
	ID  string // compilation ID
	Err error
}

func (e *CompilationError) Error() string {
	id := e.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("compilation %s: %s", id, e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }

// AddError records an error tagged with the compilation ID.
// It is safe for concurrent use. Errors don't stop the compilation.
func (c *Compilation) AddError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, &CompilationError{ID: c.ID, Err: err})
}

// Errors returns recorded errors.
func (c *Compilation) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errors...)
}
