// Package filewriter writes output files along with their
// compressed versions.
package filewriter

import (
	"compress/gzip"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/andybalholm/brotli"
)

// cssopt.yml -> compress:
type CompressConfig struct {
	Methods    []string `yaml:"methods"`
	Extensions []string `yaml:"extensions"`
}

type Compressor struct {
	Ext string
	New func(w io.Writer) io.WriteCloser
}

var gzipCompressor = &Compressor{
	Ext: "gz",
	New: func(w io.Writer) io.WriteCloser {
		z, err := gzip.NewWriterLevel(w, gzipLevel)
		if err != nil {
			panic(err.Error()) // shouldn't happen
		}
		return z
	},
}

var brotliCompressor = &Compressor{
	Ext: "br",
	New: func(w io.Writer) io.WriteCloser {
		return brotli.NewWriterLevel(w, brotliLevel)
	},
}

const (
	gzipLevel   = 9
	brotliLevel = 11
)

type FileWriter struct {
	compressedExtensions map[string]struct{}
	compressors          []*Compressor
}

// New returns a writer compressing files as configured.
// If c is nil, files are not compressed.
func New(c *CompressConfig) (*FileWriter, error) {
	extensions := make(map[string]struct{})
	compressors := make([]*Compressor, 0)
	if c != nil {
		for _, v := range c.Extensions {
			extensions["."+v] = struct{}{}
		}
		for _, v := range c.Methods {
			switch v {
			case "gzip":
				compressors = append(compressors, gzipCompressor)
			case "br":
				compressors = append(compressors, brotliCompressor)
			default:
				return nil, fmt.Errorf("Unknown compression method: %q", v)
			}
		}
	}
	return &FileWriter{
		compressedExtensions: extensions,
		compressors:          compressors,
	}, nil
}

func (f *FileWriter) compressorsFor(filename string) []*Compressor {
	if _, ok := f.compressedExtensions[filepath.Ext(filename)]; ok {
		return f.compressors
	}
	return nil
}

// writeCompressed writes data compressed with c to filename + "." + c.Ext.
func writeCompressed(c *Compressor, filename string, data []byte) (err error) {
	outfile := filename + "." + c.Ext
	out, err := os.OpenFile(outfile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(outfile)
		}
	}()
	z := c.New(out)
	if _, err := z.Write(data); err != nil {
		z.Close()
		return err
	}
	return z.Close()
}

// WriteFile writes data to filename, creating directories if needed.
// If the file extension is configured for compression, it also writes
// a compressed file for each method in parallel.
func (f *FileWriter) WriteFile(filename string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	compressors := f.compressorsFor(filename)
	done := make(chan error, 1+len(compressors))
	go func() {
		done <- ioutil.WriteFile(filename, data, 0644)
	}()
	for _, c := range compressors {
		c := c
		go func() {
			done <- writeCompressed(c, filename, data)
		}()
	}
	var firstErr error
	for i := 0; i < cap(done); i++ {
		if err := <-done; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
