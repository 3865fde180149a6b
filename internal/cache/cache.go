package cache

import (
	"encoding/json"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const megabyte = 1024 * 1024

// Cache keeps JSON encoded values in a fixed size in-memory cache.
type Cache struct {
	fc     *freecache.Cache
	expire int // seconds, 0 never expires
}

// New creates a cache of sizeMB megabytes whose entries expire after ttl.
func New(sizeMB int, ttl time.Duration) *Cache {
	if sizeMB <= 0 {
		sizeMB = 1
	}
	return &Cache{
		fc:     freecache.NewCache(sizeMB * megabyte),
		expire: int(ttl / time.Second),
	}
}

// Get decodes the entry stored under key into dst. It reports false on a miss.
func (c *Cache) Get(key string, dst interface{}) bool {
	data, err := c.fc.Get([]byte(key))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Errorf("cache: failed to unmarshal %s: %s", key, err)
		c.Delete(key)
		return false
	}
	return true
}

// Set stores v under key. Values that cannot be stored are only logged.
func (c *Cache) Set(key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("cache: failed to marshal %s: %s", key, err)
		return
	}
	if err := c.fc.Set([]byte(key), data, c.expire); err != nil {
		log.Warnf("cache: failed to set %s: %s", key, err)
	}
}

func (c *Cache) Delete(key string) {
	c.fc.Del([]byte(key))
}
