package engine

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// MemoryStats is a point-in-time view of accelerator memory, in bytes.
type MemoryStats struct {
	Active     int64
	Cache      int64
	Peak       int64
	CacheLimit int64
}

// Accelerator exposes the memory controls of the inference runtime.
type Accelerator interface {
	SetCacheLimit(bytes int64)
	ClearCache()
	Memory() MemoryStats
}

// RuntimeAccelerator reports the Go allocator: Active is live heap, Cache is
// heap the runtime holds but does not use. Memory owned by native backends
// does not show up here.
type RuntimeAccelerator struct {
	mu    sync.Mutex
	peak  int64
	limit int64
}

func NewRuntimeAccelerator() *RuntimeAccelerator { return &RuntimeAccelerator{} }

func (a *RuntimeAccelerator) SetCacheLimit(bytes int64) {
	a.mu.Lock()
	a.limit = bytes
	a.mu.Unlock()
}

// ClearCache returns idle heap to the operating system.
func (a *RuntimeAccelerator) ClearCache() { debug.FreeOSMemory() }

func (a *RuntimeAccelerator) Memory() MemoryStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	active := int64(ms.HeapAlloc)
	cache := int64(ms.HeapIdle - ms.HeapReleased)
	a.mu.Lock()
	defer a.mu.Unlock()
	if active > a.peak {
		a.peak = active
	}
	return MemoryStats{Active: active, Cache: cache, Peak: a.peak, CacheLimit: a.limit}
}

// TrimCache clears the cache when it has grown past the configured limit.
// It reports whether a clear happened.
func TrimCache(a Accelerator) bool {
	st := a.Memory()
	if st.CacheLimit > 0 && st.Cache > st.CacheLimit {
		a.ClearCache()
		return true
	}
	return false
}
