package thumbcache_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	// Packages
	thumbcache "github.com/mutablelogic/go-transfer/pkg/thumbcache"
	assert "github.com/stretchr/testify/assert"
)

func Test_Cache_PutGet(t *testing.T) {
	assert := assert.New(t)
	c := thumbcache.New(0, 0, nil)
	t.Cleanup(c.Close)

	a := c.Put("a.png", "image/jpeg", []byte("one"))
	b := c.Put("a.png", "image/jpeg", []byte("two"))
	assert.True(strings.HasPrefix(a.Handle, "blob:"))
	assert.NotEqual(a.Handle, b.Handle)
	assert.Equal("a.png", a.Key)
	assert.Equal(3, a.Size)
	assert.Equal(2, c.Len())

	data, contentType, ok := c.Get(a.Handle)
	assert.True(ok)
	assert.Equal("one", string(data))
	assert.Equal("image/jpeg", contentType)

	_, _, ok = c.Get("blob:missing")
	assert.False(ok)
	_, _, ok = c.Get("a.png")
	assert.False(ok)
}

func Test_Cache_Release(t *testing.T) {
	assert := assert.New(t)

	var mu sync.Mutex
	released := map[string]string{}
	c := thumbcache.New(2, time.Hour, func(handle, key string) {
		mu.Lock()
		defer mu.Unlock()
		released[handle] = key
	})
	t.Cleanup(c.Close)

	a := c.Put("a", "image/jpeg", []byte("a"))
	assert.True(c.Release(a.Handle))
	assert.False(c.Release(a.Handle))
	_, _, ok := c.Get(a.Handle)
	assert.False(ok)

	// Bounded: the oldest handle is evicted and released
	b := c.Put("b", "image/jpeg", []byte("b"))
	c.Put("c", "image/jpeg", []byte("c"))
	c.Put("d", "image/jpeg", []byte("d"))
	assert.Equal(2, c.Len())
	_, _, ok = c.Get(b.Handle)
	assert.False(ok)

	mu.Lock()
	assert.Equal("a", released[a.Handle])
	assert.Equal("b", released[b.Handle])
	mu.Unlock()

	c.Purge()
	assert.Equal(0, c.Len())
}

func Test_Cache_Expiry(t *testing.T) {
	assert := assert.New(t)

	var mu sync.Mutex
	released := map[string]string{}
	c := thumbcache.New(10, 50*time.Millisecond, func(handle, key string) {
		mu.Lock()
		defer mu.Unlock()
		released[handle] = key
	})
	t.Cleanup(c.Close)

	// Released by the sweep, without a lookup
	a := c.Put("a", "image/jpeg", []byte("a"))
	assert.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return released[a.Handle] == "a"
	}, time.Second, 10*time.Millisecond)
	_, _, ok := c.Get(a.Handle)
	assert.False(ok)
	assert.Equal(0, c.Len())
}

func Test_Cache_Close(t *testing.T) {
	assert := assert.New(t)

	var mu sync.Mutex
	var released []string
	c := thumbcache.New(10, time.Hour, func(_, key string) {
		mu.Lock()
		defer mu.Unlock()
		released = append(released, key)
	})
	c.Put("a", "image/jpeg", []byte("a"))
	c.Put("b", "image/jpeg", []byte("b"))

	c.Close()
	c.Close()
	assert.Equal(0, c.Len())
	mu.Lock()
	assert.ElementsMatch([]string{"a", "b"}, released)
	mu.Unlock()
}
