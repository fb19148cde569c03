package cache

import "time"

// CacheService abstracts a TTL key-value cache so callers don't bind to a
// concrete cache library.
type CacheService interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, duration time.Duration)
	Delete(key string)
	Flush()
}
