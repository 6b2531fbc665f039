// Package hashcache tells whether the given content at the path was already seen by it.
package hashcache

import (
	"crypto/md5"
	"encoding/gob"
	"hash"
	"os"
	"sync"
)

const hashSize = md5.Size

type Cache struct {
	sync.Mutex
	filename string
	m        map[string][hashSize]byte
	h        hash.Hash
}

// New returns an empty cache which is saved to filename.
// If filename is empty, the cache is not saved.
func New(filename string) *Cache {
	return &Cache{
		filename: filename,
		m:        make(map[string][hashSize]byte),
		h:        md5.New(),
	}
}

// Open loads the cache from filename. If the file doesn't exist,
// it returns an empty cache.
func Open(filename string) (c *Cache, err error) {
	c = New(filename)
	if filename == "" {
		return c, nil
	}
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&c.m); err != nil {
		return nil, err
	}
	return c, nil
}

// contentHash returns hash of content. Cache must be locked.
func (c *Cache) contentHash(content []byte) (sum [hashSize]byte) {
	c.h.Reset()
	c.h.Write(content)
	c.h.Sum(sum[:0])
	return
}

// Seen sets content hash for the given path to a new value.
// It returns true if the content was already cached and had the same hash.
func (c *Cache) Seen(path string, content []byte) bool {
	c.Lock()
	defer c.Unlock()
	origHash, ok := c.m[path]
	newHash := c.contentHash(content)
	if !ok || origHash != newHash {
		c.m[path] = newHash
		return false
	}
	return true
}

// Forget removes the path from the cache, so that the next
// Seen for it returns false.
func (c *Cache) Forget(path string) {
	c.Lock()
	defer c.Unlock()
	delete(c.m, path)
}

// Reset forgets all paths.
func (c *Cache) Reset() {
	c.Lock()
	defer c.Unlock()
	c.m = make(map[string][hashSize]byte)
}

// Save writes the cache to its file.
func (c *Cache) Save() (err error) {
	c.Lock()
	defer c.Unlock()
	if c.filename == "" {
		return nil
	}
	f, err := os.Create(c.filename)
	if err != nil {
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			// Delete file.
			os.Remove(c.filename)
		}
	}()
	return gob.NewEncoder(f).Encode(c.m)
}

// Remove deletes the cache file.
func (c *Cache) Remove() error {
	if c.filename == "" {
		return nil
	}
	if err := os.Remove(c.filename); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
