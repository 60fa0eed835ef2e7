// Package cache provides a generic LRU cache safe for concurrent use.
//
//	c := cache.NewLRUCache[string, *feature.Feature](1000)
//	c.Put("new-ui", f)
//	if f, ok := c.Get("new-ui"); ok {
//		// ...
//	}
//
// Get, Put and Remove run in constant time. Stats reports hits, misses and
// evictions, and SetEvictCallback observes entries as they leave the cache.
package cache
