// Package thumbcache holds fetched thumbnail payloads behind local handles.
// Each fetch gets its own handle, so two callers fetching the same key never
// share or invalidate each other's handle. The store is bounded in size and
// handles expire after a fixed lifetime; an evicted or expired handle is
// released and no longer resolves.
package thumbcache

import (
	"strings"
	"sync"
	"time"

	// Packages
	uuid "github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type Cache struct {
	lru  *lru.Cache[string, entry]
	ttl  time.Duration
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type entry struct {
	key         string
	contentType string
	data        []byte
	expires     time.Time
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	DefaultSize = 256
	DefaultTTL  = 10 * time.Minute
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New returns a handle store holding at most size payloads, each for at most
// ttl. Non-positive values select the defaults. onRelease, if not nil, is
// called with the handle and object key whenever a handle leaves the store.
// Expired handles are swept in the background until Close is called.
func New(size int, ttl time.Duration, onRelease func(handle, key string)) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	var evict func(string, entry)
	if onRelease != nil {
		evict = func(handle string, e entry) {
			onRelease(handle, e.key)
		}
	}

	// The size is always positive, so there is no error
	cache, _ := lru.NewWithEvict(size, evict)
	c := &Cache{
		lru:  cache,
		ttl:  ttl,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go c.run(ttl / 2)

	// Return success
	return c
}

// Close stops the expiry sweep and releases every handle. It is safe to call
// more than once.
func (c *Cache) Close() {
	c.once.Do(func() {
		close(c.stop)
	})
	<-c.done
	c.lru.Purge()
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Put stores a payload for an object key and returns a new handle to it
func (c *Cache) Put(key, contentType string, data []byte) schema.Thumbnail {
	handle := schema.ThumbnailHandlePrefix + uuid.NewString()
	c.lru.Add(handle, entry{key: key, contentType: contentType, data: data, expires: time.Now().Add(c.ttl)})
	return schema.Thumbnail{
		Key:         key,
		Handle:      handle,
		ContentType: contentType,
		Size:        len(data),
	}
}

// Get resolves a handle to its payload and content type
func (c *Cache) Get(handle string) ([]byte, string, bool) {
	if !strings.HasPrefix(handle, schema.ThumbnailHandlePrefix) {
		return nil, "", false
	}
	e, exists := c.lru.Get(handle)
	if !exists {
		return nil, "", false
	} else if time.Now().After(e.expires) {
		c.lru.Remove(handle)
		return nil, "", false
	}
	return e.data, e.contentType, true
}

// Release drops a handle, returning false if it had already been released
func (c *Cache) Release(handle string) bool {
	return c.lru.Remove(handle)
}

// Len returns the number of live handles
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge releases every handle
func (c *Cache) Purge() {
	c.lru.Purge()
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (c *Cache) run(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.expire(now)
		}
	}
}

// expire releases every handle whose lifetime ended before now
func (c *Cache) expire(now time.Time) {
	for _, handle := range c.lru.Keys() {
		if e, exists := c.lru.Peek(handle); exists && now.After(e.expires) {
			c.lru.Remove(handle)
		}
	}
}
