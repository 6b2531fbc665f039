package minifier

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dchest/cssopt/utils"
)

// DefaultCacheSize is the number of results kept by Cached when
// size is not positive.
const DefaultCacheSize = 512

type cached struct {
	m     Minifier
	cache *lru.Cache[string, *Result]
}

// Cached returns a minifier which remembers up to size successful
// results of m. Results are returned as copies, so callers can modify
// their maps.
func Cached(m Minifier, size int) (Minifier, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *Result](size)
	if err != nil {
		return nil, err
	}
	return &cached{m: m, cache: cache}, nil
}

func (c *cached) Name() string { return c.m.Name() }

func (c *cached) Minify(s string, opts *Options) (*Result, error) {
	key := cacheKey(c.m.Name(), s, opts)
	if r, ok := c.cache.Get(key); ok {
		return r.clone(), nil
	}
	r, err := c.m.Minify(s, opts)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, r.clone())
	return r, nil
}

func cacheKey(name, s string, opts *Options) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\x00%s\x00%t\x00", name, opts.Filename, opts.SourceMap)
	keys := make([]string, 0, len(opts.Params))
	for k := range opts.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%#v\x00", k, opts.Params[k])
	}
	buf.WriteString(s)
	return hex.EncodeToString(utils.Hash(buf.Bytes()))
}
