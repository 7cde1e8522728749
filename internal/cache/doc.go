// Package cache provides a small thread-safe LRU cache used to keep compiled
// kernel programs (SPIR-V words) across dispatches.
//
//	programs := cache.New[string, []uint32](8)
//	words, err := programs.GetOrCreate(source, func() ([]uint32, error) {
//	    return compile(source)
//	})
//
// Failed creations are not cached, so a later call retries them.
package cache
