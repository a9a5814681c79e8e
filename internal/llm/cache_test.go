package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResponseCache(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		cache := newResponseCache(5 * time.Minute)
		defer cache.Close()

		// Test empty cache
		_, found := cache.get("non-existent")
		assert.False(t, found)

		// Test set and get
		cache.set("key1", "Стены")
		value, found := cache.get("key1")
		assert.True(t, found)
		assert.Equal(t, "Стены", value)

		// Test size
		assert.Equal(t, 1, cache.size())

		// Test clear
		cache.clear()
		assert.Equal(t, 0, cache.size())
		_, found = cache.get("key1")
		assert.False(t, found)
	})

	t.Run("empty value is still a hit", func(t *testing.T) {
		// Declined matches are cached as empty strings; an empty value must
		// be distinguishable from a miss.
		cache := newResponseCache(5 * time.Minute)
		defer cache.Close()

		cache.set("declined", "")
		value, found := cache.get("declined")
		assert.True(t, found)
		assert.Empty(t, value)
	})

	t.Run("expiration", func(t *testing.T) {
		// Use a very short TTL for testing
		cache := newResponseCache(50 * time.Millisecond)
		defer cache.Close()

		cache.set("key2", "Перекрытия")

		// Should be found immediately
		_, found := cache.get("key2")
		assert.True(t, found)

		// Wait for expiration
		time.Sleep(100 * time.Millisecond)

		// Should not be found after expiration
		_, found = cache.get("key2")
		assert.False(t, found)
	})

	t.Run("concurrent access", func(t *testing.T) {
		cache := newResponseCache(5 * time.Minute)
		defer cache.Close()

		done := make(chan bool)
		go func() {
			for i := 0; i < 100; i++ {
				cache.set("concurrent", "value")
			}
			done <- true
		}()
		go func() {
			for i := 0; i < 100; i++ {
				cache.get("concurrent")
			}
			done <- true
		}()

		<-done
		<-done
	})

	t.Run("default TTL", func(t *testing.T) {
		cache := newResponseCache(0)
		defer cache.Close()
		assert.Equal(t, 15*time.Minute, cache.ttl)
	})
}
