package filewriter

import (
	"bytes"
	"compress/gzip"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/andybalholm/brotli"
)

func TestWriteFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "filewriter-test-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	w, err := New(&CompressConfig{Methods: []string{"gzip", "br"}, Extensions: []string{"css"}})
	if err != nil {
		t.Fatal(err)
	}
	data := bytes.Repeat([]byte("a{color:red}"), 100)
	css := filepath.Join(dir, "sub", "a.css")
	if err := w.WriteFile(css, data); err != nil {
		t.Fatal(err)
	}
	got, err := ioutil.ReadFile(css)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("content differs")
	}

	gz, err := os.Open(css + ".gz")
	if err != nil {
		t.Fatal(err)
	}
	defer gz.Close()
	zr, err := gzip.NewReader(gz)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := ioutil.ReadAll(zr); err != nil || !bytes.Equal(got, data) {
		t.Errorf("gzip content differs: %v", err)
	}

	br, err := os.Open(css + ".br")
	if err != nil {
		t.Fatal(err)
	}
	defer br.Close()
	if got, err := ioutil.ReadAll(brotli.NewReader(br)); err != nil || !bytes.Equal(got, data) {
		t.Errorf("brotli content differs: %v", err)
	}

	// Other extensions are not compressed.
	mapFile := css + ".map"
	if err := w.WriteFile(mapFile, []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(mapFile + ".gz"); !os.IsNotExist(err) {
		t.Errorf("unexpected compressed map file")
	}
}

func TestNewUnknownMethod(t *testing.T) {
	if _, err := New(&CompressConfig{Methods: []string{"zip"}}); err == nil {
		t.Errorf("expected error")
	}
}
