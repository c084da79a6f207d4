package evaluator

import (
	"github.com/jellydator/ttlcache/v3"

	"llmeval/internal/engine"
)

const memoryKey = "memory"

func newMemoryCache(cfg Config) *ttlcache.Cache[string, engine.MemoryStats] {
	return ttlcache.New[string, engine.MemoryStats](
		ttlcache.WithTTL[string, engine.MemoryStats](cfg.MemoryTTL),
		ttlcache.WithDisableTouchOnHit[string, engine.MemoryStats](),
	)
}

// Memory returns accelerator memory statistics. Samples are cached for
// MemoryTTL so polling views do not stop the world on every refresh.
func (e *Evaluator) Memory() engine.MemoryStats {
	if it := e.memory.Get(memoryKey); it != nil {
		return it.Value()
	}
	st := e.accel.Memory()
	e.memory.Set(memoryKey, st, ttlcache.DefaultTTL)
	return st
}

// ClearCache frees cached accelerator memory and drops the cached sample.
func (e *Evaluator) ClearCache() {
	e.accel.ClearCache()
	e.memory.Delete(memoryKey)
}

// CacheLimit returns the configured accelerator cache limit in bytes.
func (e *Evaluator) CacheLimit() int64 { return e.cacheLimit }
