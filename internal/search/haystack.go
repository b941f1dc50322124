package search

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/von/internal/demacro"
	"github.com/Aman-CERP/von/internal/entry"
)

// DefaultHaystackCacheSize is the default number of normalized bodies kept.
const DefaultHaystackCacheSize = 4096

// haystackCache memoizes demacro'd, case-folded bodies. Keys include the
// index generation, so a reindex never serves a stale body.
type haystackCache struct {
	cache *lru.Cache[string, string]
}

func newHaystackCache(size int) *haystackCache {
	if size <= 0 {
		size = DefaultHaystackCacheSize
	}
	cache, _ := lru.New[string, string](size)
	return &haystackCache{cache: cache}
}

// cacheKey combines generation, PUID and key.
func (c *haystackCache) cacheKey(gen uint64, e *entry.Entry) string {
	return strconv.FormatUint(gen, 10) + "\x00" + e.PUID + "\x00" + e.Key
}

// body returns the normalized search text of every body of e.
func (c *haystackCache) body(gen uint64, e *entry.Entry) string {
	key := c.cacheKey(gen, e)
	if hay, ok := c.cache.Get(key); ok {
		return hay
	}
	hay := fold(bodyText(e))
	c.cache.Add(key, hay)
	return hay
}

// Len returns the number of cached haystacks.
func (c *haystackCache) Len() int {
	return c.cache.Len()
}

// bodyText joins the demacro'd bodies of e.
func bodyText(e *entry.Entry) string {
	parts := make([]string, len(e.Bodies))
	for i, b := range e.Bodies {
		parts[i] = demacro.Expand(b)
	}
	return strings.Join(parts, "\n")
}
