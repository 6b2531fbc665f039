// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package build

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dchest/cssopt/assets"
	"github.com/dchest/cssopt/filewriter"
	"github.com/dchest/cssopt/fspoll"
	"github.com/dchest/cssopt/hashcache"
	"github.com/dchest/cssopt/utils"
)

const (
	ConfigFileName = "cssopt.yml"
	CacheFileName  = ".cssopt-cache"

	DefaultInputDir  = "src"
	DefaultOutputDir = "out"
)

type Config struct {
	Input      string                     `yaml:"input"`
	Output     string                     `yaml:"output"`
	SourceMaps bool                       `yaml:"sourcemaps"`
	Compress   *filewriter.CompressConfig `yaml:"compress"`
	Optimize   OptimizeConfig             `yaml:"optimize"`

	// Poll makes watching poll the input directory instead of
	// relying on filesystem notifications.
	Poll bool `yaml:"poll"`
}

// OptimizeConfig is the "optimize" section of the config file.
type OptimizeConfig struct {
	Engine    string                 `yaml:"engine"`
	SourceMap *bool                  `yaml:"sourcemap"`
	Filter    string                 `yaml:"filter"`
	Options   map[string]interface{} `yaml:"options"`
}

// PluginOptions returns options as a map with
// "engine" and "sourceMap" keys set if configured.
func (c *OptimizeConfig) PluginOptions() map[string]interface{} {
	m := make(map[string]interface{}, len(c.Options)+2)
	for k, v := range c.Options {
		m[k] = v
	}
	if c.Engine != "" {
		m["engine"] = c.Engine
	}
	if c.SourceMap != nil {
		m["sourceMap"] = *c.SourceMap
	}
	return m
}

// PluginFilter returns the filter pattern or nil if it's not set.
func (c *OptimizeConfig) PluginFilter() interface{} {
	if c.Filter == "" {
		return nil
	}
	return c.Filter
}

// ReadConfig reads configuration from the file.
// A missing file results in the default configuration.
func ReadConfig(filename string) (*Config, error) {
	var c Config
	if err := utils.UnmarshallYAMLFile(filename, &c); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	// Set defaults.
	if c.Input == "" {
		c.Input = DefaultInputDir
	}
	if c.Output == "" {
		c.Output = DefaultOutputDir
	}
	return &c, nil
}

type buildResult struct {
	comp *Compilation
	err  error
}

// Project builds assets from the input directory into the output directory.
type Project struct {
	BaseDir  string
	Config   *Config
	Compiler *Compiler

	writer *filewriter.FileWriter
	cache  *hashcache.Cache

	buildQueue   chan bool
	buildResults chan buildResult

	notifier            *fsnotify.Watcher
	poller              *fspoll.Watcher
	cleanBeforeBuilding bool
}

// Open opens the project in dir with the given config file.
// If configFile is empty, ConfigFileName in dir is used.
func Open(dir, configFile string) (p *Project, err error) {
	if configFile == "" {
		configFile = filepath.Join(dir, ConfigFileName)
	}
	conf, err := ReadConfig(configFile)
	if err != nil {
		return nil, err
	}
	writer, err := filewriter.New(conf.Compress)
	if err != nil {
		return nil, err
	}
	cache, err := hashcache.Open(filepath.Join(dir, CacheFileName))
	if err != nil {
		log.Printf("! cache: %s (starting with empty cache)", err)
		cache = hashcache.New(filepath.Join(dir, CacheFileName))
	}
	p = &Project{
		BaseDir:      dir,
		Config:       conf,
		Compiler:     NewCompiler(),
		writer:       writer,
		cache:        cache,
		buildQueue:   make(chan bool),
		buildResults: make(chan buildResult),
	}
	// Launch builder goroutine.
	go func() {
		for {
			do := <-p.buildQueue
			if !do {
				return
			}
			comp, err := p.runBuild()
			p.buildResults <- buildResult{comp, err}
		}
	}()
	return p, nil
}

// Close stops the builder and the watcher.
func (p *Project) Close() {
	p.StopWatching()
	p.buildQueue <- false
}

func (p *Project) dir(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.BaseDir, name)
}

func (p *Project) InputDir() string  { return p.dir(p.Config.Input) }
func (p *Project) OutputDir() string { return p.dir(p.Config.Output) }

// isIgnoredFile returns true if filename should be ignored
// when collecting modules.
func isIgnoredFile(filename string) bool {
	// Files ending with ~ are considered temporary.
	if filename[len(filename)-1] == '~' {
		return true
	}
	// Crap from OS X Finder.
	if filename == ".DS_Store" {
		return true
	}
	// Source maps go along with their files.
	return filepath.Ext(filename) == assets.MapExt
}

// Modules returns a module for each file in the input directory.
func (p *Project) Modules() (modules []*Module, err error) {
	inDir := p.InputDir()
	if !utils.DirExist(inDir) {
		return nil, fmt.Errorf("input directory %s doesn't exist", inDir)
	}
	err = filepath.Walk(inDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() || isIgnoredFile(fi.Name()) {
			return nil
		}
		relname, err := filepath.Rel(inDir, path)
		if err != nil {
			return err
		}
		modules = append(modules, &Module{
			Name:         filepath.ToSlash(relname),
			Filename:     path,
			UseSourceMap: p.Config.SourceMaps,
		})
		return nil
	})
	return
}

func loadModule(m *Module) (assets.Asset, error) {
	return assets.ReadFile(m.Filename, m.UseSourceMap)
}

func (p *Project) runBuild() (*Compilation, error) {
	if p.cleanBeforeBuilding {
		if err := p.Clean(); err != nil {
			return nil, err
		}
	}
	modules, err := p.Modules()
	if err != nil {
		return nil, err
	}
	comp := p.Compiler.Compile(modules, loadModule)
	errs := comp.Errors()
	for _, err := range errs {
		log.Printf("! %s", err)
	}
	log.Printf("* Compilation %s: %d assets, %d errors", comp.ID, len(comp.Assets), len(errs))
	if err := p.Emit(comp); err != nil {
		return comp, err
	}
	return comp, p.cache.Save()
}

// Build builds the project. Errors of individual assets don't fail the
// build: they are logged and available from the returned compilation.
func (p *Project) Build() (*Compilation, error) {
	t := time.Now()
	defer func() {
		log.Printf("* Build in %s", time.Since(t))
	}()

	p.buildQueue <- true
	r := <-p.buildResults
	return r.comp, r.err
}

// Emit writes assets of the compilation into the output directory.
// Assets with a source map get a ".map" file next to them.
func (p *Project) Emit(comp *Compilation) error {
	keys := make([]string, 0, len(comp.Assets))
	for k := range comp.Assets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	outDir := p.OutputDir()
	for _, key := range keys {
		a := comp.Assets[key]
		content, m, err := assets.Extract(a)
		if err != nil {
			// Write the content as is without the broken map.
			log.Printf("! %s: %s", key, err)
			if content, err = a.Source(); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			m = nil
		}
		outfile := filepath.Join(outDir, filepath.FromSlash(key))
		if m != nil {
			mapData, err := m.Bytes()
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if err := p.write(outfile+assets.MapExt, mapData); err != nil {
				return err
			}
			if utils.HasFileExt(key, []string{".css"}) {
				comment := "\n/*# sourceMappingURL=" + path.Base(key) + assets.MapExt + " */\n"
				content = append(content[:len(content):len(content)], comment...)
			}
		}
		if err := p.write(outfile, content); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) write(filename string, data []byte) error {
	if p.cache.Seen(filename, data) {
		if _, err := os.Stat(filename); err == nil {
			return nil // unchanged
		}
	}
	relname, err := filepath.Rel(p.BaseDir, filename)
	if err != nil {
		relname = filename
	}
	log.Printf("W %s", relname)
	if err := p.writer.WriteFile(filename, data); err != nil {
		// The file may be partially written: don't trust its hash.
		p.cache.Forget(filename)
		return err
	}
	return nil
}

// Clean removes the output directory and the cache.
func (p *Project) Clean() error {
	log.Printf("* Cleaning.")
	p.cache.Reset()
	if err := p.cache.Remove(); err != nil {
		return err
	}
	return os.RemoveAll(p.OutputDir())
}

func (p *Project) SetCleanBeforeBuilding(clean bool) {
	p.cleanBeforeBuilding = clean
}

// isWatcherIgnored returns true if changes of the file don't
// require rebuilding.
func isWatcherIgnored(name string) bool {
	base := filepath.Base(name)
	return base[len(base)-1] == '~' || base == ".DS_Store"
}

func (p *Project) rebuild(reason string) {
	log.Printf("* Change detected: %s", reason)
	if _, err := p.Build(); err != nil {
		log.Printf("! build error: %s", err)
	}
}

// StartWatching starts rebuilding the project on changes in the
// input directory. It uses filesystem notifications, or polling if
// configured or if notifications are not available.
func (p *Project) StartWatching() error {
	if !p.Config.Poll {
		err := p.startNotifier()
		if err == nil {
			log.Printf("* Watching for changes.")
			return nil
		}
		log.Printf("! fsnotify: %s (falling back to polling)", err)
	}
	if err := p.startPoller(); err != nil {
		return err
	}
	log.Printf("* Watching for changes (polling).")
	return nil
}

// watchDirs adds dir and its subdirectories to the watcher.
func watchDirs(w *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func (p *Project) startNotifier() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watchDirs(w, p.InputDir()); err != nil {
		w.Close()
		return err
	}
	p.notifier = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op == fsnotify.Chmod || isWatcherIgnored(ev.Name) {
					continue
				}
				if ev.Has(fsnotify.Create) {
					if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
						if err := watchDirs(w, ev.Name); err != nil {
							log.Printf("! watcher error: %s", err)
						}
					}
				}
				p.rebuild(ev.String())
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("! watcher error: %s", err)
			}
		}
	}()
	return nil
}

func (p *Project) startPoller() error {
	w, err := fspoll.Watch(p.InputDir(), []string{"*~", ".DS_Store"}, 0, 0)
	if err != nil {
		return err
	}
	p.poller = w
	go func() {
		for {
			select {
			case <-w.Change:
				p.rebuild(p.Config.Input)
			case err := <-w.Error:
				log.Printf("! watcher error: %s", err)
			case <-w.Done():
				return
			}
		}
	}()
	return nil
}

func (p *Project) StopWatching() {
	if p.notifier != nil {
		p.notifier.Close()
		p.notifier = nil
	}
	if p.poller != nil {
		p.poller.Close()
		p.poller = nil
	}
}
