package thumbnail

import (
	"image"

	"github.com/Paintersrp/folio/internal/cache"
	"github.com/Paintersrp/folio/internal/metrics"
)

// Key addresses one thumbnail. Different sizes of the same path never
// collide.
type Key struct {
	Path   string
	Width  int
	Height int
}

type entry struct {
	img  image.Image
	tier Tier
}

// Cache is a count-capped LRU of generated thumbnails.
type Cache struct {
	lru *cache.LRU[Key, entry]
}

func NewCache(capacity int) *Cache {
	return &Cache{lru: cache.NewLRU[Key, entry](capacity, nil)}
}

// Get returns the thumbnail for key and the tier that produced it.
func (c *Cache) Get(key Key) (image.Image, Tier, bool) {
	e, ok := c.lru.Get(key)
	metrics.RecordThumbnailRequest(ok)
	return e.img, e.tier, ok
}

// Peek looks key up without touching recency or the request metrics.
func (c *Cache) Peek(key Key) (image.Image, Tier, bool) {
	e, ok := c.lru.Peek(key)
	return e.img, e.tier, ok
}

func (c *Cache) Put(key Key, img image.Image, tier Tier) {
	c.lru.Put(key, entry{img: img, tier: tier})
	metrics.SetThumbnailCacheSize(c.lru.Len())
}

// Invalidate drops every size cached for path and returns how many went.
func (c *Cache) Invalidate(path string) int {
	n := c.lru.RemoveFunc(func(k Key) bool { return k.Path == path })
	metrics.SetThumbnailCacheSize(c.lru.Len())
	return n
}

func (c *Cache) Purge() {
	c.lru.Purge()
	metrics.SetThumbnailCacheSize(0)
}

func (c *Cache) Len() int {
	return c.lru.Len()
}
