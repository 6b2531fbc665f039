// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/dchest/cssopt/build"
	"github.com/dchest/cssopt/minifier"
	"github.com/dchest/cssopt/optimize"
)

var (
	fConfig     = flag.String("config", "", "config file (default "+build.ConfigFileName+" in current directory)")
	fNoClean    = flag.Bool("noclean", false, "don't delete output directory before building")
	fSourceMap  = flag.String("sourcemap", "", "force source maps on (true) or off (false)")
	fNoCache    = flag.Bool("nocache", false, "disables caching of minified results when watching")
	fCPUProfile = flag.String("cpuprofile", "", "(debug) write CPU profile to file")
)

var Usage = func() {
	fmt.Printf(`usage: cssopt command [options]

Commands:
  build  - minify stylesheets
  watch  - build, then rebuild on changes
  clean  - clean caches and remove output directory

Minification engines: %s (default %s).
The CSSOPT_ENGINE environment variable (also read from .env)
overrides the engine set in the config file.

Options:
`, minifierNames(), minifier.Default)
	flag.PrintDefaults()
}

func minifierNames() (s string) {
	for i, name := range minifier.Names() {
		if i > 0 {
			s += ", "
		}
		s += name
	}
	return
}

func openProject(dir string, watch bool) (*build.Project, error) {
	project, err := build.Open(dir, *fConfig)
	if err != nil {
		return nil, err
	}
	conf := &project.Config.Optimize
	if engine := os.Getenv("CSSOPT_ENGINE"); engine != "" {
		conf.Engine = engine
	}
	if *fSourceMap != "" {
		b, err := strconv.ParseBool(*fSourceMap)
		if err != nil {
			return nil, fmt.Errorf("-sourcemap: %w", err)
		}
		conf.SourceMap = &b
	}
	plugin, err := optimize.New(conf.PluginOptions(), conf.PluginFilter())
	if err != nil {
		return nil, err
	}
	if watch && !*fNoCache {
		if plugin.Minifier, err = minifier.Cached(plugin.Minifier, minifier.DefaultCacheSize); err != nil {
			return nil, err
		}
	}
	plugin.Apply(project.Compiler)
	return project, nil
}

func main() {
	log.SetFlags(0)
	flag.Usage = Usage

	if len(os.Args) < 2 {
		flag.Usage()
		return
	}
	command := os.Args[1]
	os.Args = os.Args[1:]
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("! .env: %s", err)
	}
	os.Exit(run(command))
}

// run executes the command and returns the exit code.
// Deferred cleanup happens before the process exits.
func run(command string) int {
	if *fCPUProfile != "" {
		f, err := os.Create(*fCPUProfile)
		if err != nil {
			log.Printf("! %s", err)
			return 1
		}
		defer f.Close()
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	dir, err := os.Getwd()
	if err != nil {
		log.Printf("! os.Getwd(): %s", err)
		return 1
	}
	watch := command == "watch"
	project, err := openProject(dir, watch)
	if err != nil {
		log.Printf("! Cannot open project: %s", err)
		return 1
	}
	defer project.Close()
	project.SetCleanBeforeBuilding(!*fNoClean)

	switch command {
	case "build", "watch":
		comp, err := project.Build()
		if err != nil {
			log.Printf("! build error: %s", err)
		}
		if !watch {
			if err != nil || (comp != nil && len(comp.Errors()) > 0) {
				return 1
			}
			return 0
		}
		// Watching rebuilds without cleaning.
		project.SetCleanBeforeBuilding(false)
		if err := project.StartWatching(); err != nil {
			log.Printf("! Cannot start watcher: %s", err)
			return 1
		}
		log.Printf("Press Ctrl+C to quit.")
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		<-sig
	case "clean":
		if err := project.Clean(); err != nil {
			log.Printf("! clean error: %s", err)
			return 1
		}
	default:
		log.Printf("! unknown command %s", command)
		flag.Usage()
		return 2
	}
	return 0
}
