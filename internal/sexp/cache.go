package sexp

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/eqsat/internal/pattern"
)

// DefaultCacheSize is the default number of parsed patterns kept.
const DefaultCacheSize = 1024

// PatternCache memoizes ParsePattern for one language.
//
// Patterns are immutable once parsed, so cached values are shared between
// callers. Safe for concurrent use.
type PatternCache struct {
	lang  Language
	cache *lru.Cache[string, *pattern.Pattern]
}

// NewPatternCache creates a cache holding up to size patterns.
// size <= 0 uses DefaultCacheSize.
func NewPatternCache(lang Language, size int) *PatternCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, *pattern.Pattern](size)
	return &PatternCache{lang: lang, cache: cache}
}

// Pattern returns the parsed pattern for src. Parse errors are not cached.
func (c *PatternCache) Pattern(src string) (*pattern.Pattern, error) {
	if p, ok := c.cache.Get(src); ok {
		return p, nil
	}
	p, err := ParsePattern(c.lang, src)
	if err != nil {
		return nil, err
	}
	c.cache.Add(src, p)
	return p, nil
}

// Len returns the number of cached patterns.
func (c *PatternCache) Len() int {
	return c.cache.Len()
}
