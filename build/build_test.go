package build

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dchest/cssopt/assets"
	"github.com/dchest/cssopt/sourcemap"
)

func TestCompile(t *testing.T) {
	c := NewCompiler()
	var order []string
	c.OnCompilation(func(comp *Compilation) {
		order = append(order, "compilation")
		comp.OnBuildModule(func(m *Module) {
			order = append(order, "build "+m.Name)
			m.UseSourceMap = true
		})
		comp.OnOptimizeAssets(func(list map[string]assets.Asset) {
			order = append(order, "optimize")
			list["a.css"] = assets.NewRawString("optimized")
		})
	})
	modules := []*Module{{Name: "a.css"}, {Name: "missing.css"}}
	comp := c.Compile(modules, func(m *Module) (assets.Asset, error) {
		if !m.UseSourceMap {
			t.Errorf("%s: build hook not applied", m.Name)
		}
		if m.Name == "missing.css" {
			return nil, os.ErrNotExist
		}
		return assets.NewRawString("a { }"), nil
	})
	expected := "compilation,build a.css,build missing.css,optimize"
	if got := strings.Join(order, ","); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
	if len(comp.Assets) != 1 {
		t.Errorf("expected 1 asset, got %d", len(comp.Assets))
	}
	if comp.ID == "" || comp.ID == c.Compile(nil, nil).ID {
		t.Errorf("bad compilation ID %q", comp.ID)
	}
	b, _ := comp.Assets["a.css"].Source()
	if string(b) != "optimized" {
		t.Errorf("asset not replaced: %q", b)
	}
	errs := comp.Errors()
	if len(errs) != 1 || !errors.Is(errs[0], os.ErrNotExist) {
		t.Errorf("bad errors: %v", errs)
	}
}

func TestCompilationErrorID(t *testing.T) {
	c := NewCompiler()
	modules := []*Module{{Name: "a.css"}, {Name: "b.css"}}
	comp := c.Compile(modules, func(m *Module) (assets.Asset, error) {
		return nil, os.ErrNotExist
	})
	comp.AddError(errors.New("plugin failed"))
	errs := comp.Errors()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %v", errs)
	}
	for i, err := range errs {
		var ce *CompilationError
		if !errors.As(err, &ce) || ce.ID != comp.ID {
			t.Errorf("%d: error %v not tagged with %s", i, err, comp.ID)
			continue
		}
		if prefix := "compilation " + comp.ID[:8] + ": "; !strings.HasPrefix(err.Error(), prefix) {
			t.Errorf("%d: expected prefix %q, got %q", i, prefix, err)
		}
	}
	tests := []struct {
		err      error
		expected string
	}{
		{errs[0], "a.css: " + os.ErrNotExist.Error()},
		{errs[2], "plugin failed"},
	}
	for i, v := range tests {
		if got := errors.Unwrap(v.err).Error(); got != v.expected {
			t.Errorf("%d: expected %q, got %q", i, v.expected, got)
		}
	}
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	for name, content := range files {
		filename := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
			t.Fatal(err)
		}
		if err := ioutil.WriteFile(filename, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func readFile(t *testing.T, filename string) string {
	b, err := ioutil.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestReadConfig(t *testing.T) {
	dir, err := os.MkdirTemp("", "build-test-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	c, err := ReadConfig(filepath.Join(dir, ConfigFileName))
	if err != nil {
		t.Fatal(err)
	}
	if c.Input != DefaultInputDir || c.Output != DefaultOutputDir {
		t.Errorf("bad defaults: %+v", c)
	}
	if opts := c.Optimize.PluginOptions(); len(opts) != 0 {
		t.Errorf("expected no options, got %v", opts)
	}
	if c.Optimize.PluginFilter() != nil {
		t.Errorf("expected nil filter")
	}

	writeFiles(t, dir, map[string]string{
		ConfigFileName: `
input: styles
sourcemaps: true
compress:
  methods: [gzip]
  extensions: [css]
optimize:
  engine: cssmin
  sourcemap: false
  filter: "\\.css$"
  options:
    restructure: false
`,
	})
	c, err = ReadConfig(filepath.Join(dir, ConfigFileName))
	if err != nil {
		t.Fatal(err)
	}
	if c.Input != "styles" || c.Output != DefaultOutputDir || !c.SourceMaps {
		t.Errorf("bad config: %+v", c)
	}
	if c.Compress == nil || len(c.Compress.Methods) != 1 {
		t.Errorf("bad compress config: %+v", c.Compress)
	}
	opts := c.Optimize.PluginOptions()
	if opts["engine"] != "cssmin" || opts["sourceMap"] != false || opts["restructure"] != false {
		t.Errorf("bad options: %v", opts)
	}
	if f, _ := c.Optimize.PluginFilter().(string); f != `\.css$` {
		t.Errorf("bad filter: %v", c.Optimize.PluginFilter())
	}
}

func TestProjectBuild(t *testing.T) {
	dir, err := os.MkdirTemp("", "build-test-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	inMap := `{"version":3,"file":"b.css","sources":["b.scss"],"names":[],"mappings":"AAAA"}`
	writeFiles(t, dir, map[string]string{
		ConfigFileName:      "sourcemaps: true\ncompress:\n  methods: [gzip]\n  extensions: [css]\n",
		"src/a.css":         "a { }",
		"src/sub/b.css":     "b { }",
		"src/sub/b.css.map": inMap,
		"src/a.css~":        "ignored",
	})
	p, err := Open(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	// Uppercase every stylesheet, giving it a map if it has none.
	p.Compiler.OnCompilation(func(comp *Compilation) {
		comp.OnOptimizeAssets(func(list map[string]assets.Asset) {
			for k, a := range list {
				content, m, err := assets.Extract(a)
				if err != nil {
					comp.AddError(err)
					continue
				}
				if m == nil {
					m = &sourcemap.Map{Version: 3, Sources: []string{k}, Mappings: "AAAA"}
				}
				list[k] = assets.NewSourceMapped([]byte(strings.ToUpper(string(content))), k, m, content, nil)
			}
		})
	})
	comp, err := p.Build()
	if err != nil {
		t.Fatal(err)
	}
	if errs := comp.Errors(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(comp.Assets) != 2 {
		t.Errorf("expected 2 assets, got %d", len(comp.Assets))
	}

	out := filepath.Join(dir, DefaultOutputDir)
	expected := "B { }\n/*# sourceMappingURL=b.css.map */\n"
	if got := readFile(t, filepath.Join(out, "sub", "b.css")); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
	m, err := sourcemap.Parse([]byte(readFile(t, filepath.Join(out, "sub", "b.css.map"))))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Sources) != 1 || m.Sources[0] != "b.scss" {
		t.Errorf("bad map sources: %v", m.Sources)
	}
	if _, err := os.Stat(filepath.Join(out, "a.css.gz")); err != nil {
		t.Errorf("compressed file: %s", err)
	}
	if _, err := os.Stat(filepath.Join(out, "a.css~")); !os.IsNotExist(err) {
		t.Errorf("ignored file was built")
	}

	if err := p.Clean(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output directory wasn't removed")
	}
}

func TestProjectNoSourceMaps(t *testing.T) {
	dir, err := os.MkdirTemp("", "build-test-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	writeFiles(t, dir, map[string]string{
		"src/b.css":     "b { }",
		"src/b.css.map": "{broken",
	})
	p, err := Open(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	comp, err := p.Build()
	if err != nil {
		t.Fatal(err)
	}
	if m, err := comp.Assets["b.css"].Map(); m != nil || err != nil {
		t.Errorf("map loaded without sourcemaps enabled: %v, %v", m, err)
	}
	out := filepath.Join(dir, DefaultOutputDir)
	if got := readFile(t, filepath.Join(out, "b.css")); got != "b { }" {
		t.Errorf("got %q", got)
	}
	if _, err := os.Stat(filepath.Join(out, "b.css.map")); !os.IsNotExist(err) {
		t.Errorf("map was written")
	}
}

func TestProjectRewritesAfterFailedWrite(t *testing.T) {
	dir, err := os.MkdirTemp("", "build-test-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	writeFiles(t, dir, map[string]string{"src/a.css": "a { }"})
	outfile := filepath.Join(dir, DefaultOutputDir, "a.css")
	// A directory in place of the output file makes writing fail.
	if err := os.MkdirAll(outfile, 0755); err != nil {
		t.Fatal(err)
	}
	p, err := Open(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if _, err := p.Build(); err == nil {
		t.Fatal("expected write error")
	}

	// Replace it with a stale file: the next build must overwrite it.
	if err := os.Remove(outfile); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, dir, map[string]string{DefaultOutputDir + "/a.css": "stale"})
	if _, err := p.Build(); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, outfile); got != "a { }" {
		t.Errorf("expected %q, got %q", "a { }", got)
	}
}

func waitForFile(filename string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(filename); err == nil {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func TestProjectWatch(t *testing.T) {
	// Notifications, then polling.
	for i, config := range []string{"", "poll: true\n"} {
		dir, err := os.MkdirTemp("", "build-test-")
		if err != nil {
			t.Fatal(err)
		}
		defer os.RemoveAll(dir)
		writeFiles(t, dir, map[string]string{
			ConfigFileName: config,
			"src/a.css":    "a { }",
		})
		p, err := Open(dir, "")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := p.Build(); err != nil {
			t.Fatal(err)
		}
		if err := p.StartWatching(); err != nil {
			t.Fatalf("%d: %s", i, err)
		}
		// New directories are watched too.
		if err := os.Mkdir(filepath.Join(dir, "src", "sub"), 0755); err != nil {
			t.Fatal(err)
		}
		time.Sleep(300 * time.Millisecond)
		writeFiles(t, dir, map[string]string{"src/sub/b.css": "b { }"})
		if !waitForFile(filepath.Join(dir, DefaultOutputDir, "sub", "b.css"), 10*time.Second) {
			t.Errorf("%d: change was not built", i)
		}
		p.Close()
	}
}
