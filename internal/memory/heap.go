package memory

import "runtime"

// HeapProbe reports current heap usage in bytes. ok=false means the host
// cannot report it.
type HeapProbe func() (used uint64, ok bool)

// RuntimeHeapProbe reads live heap bytes from the Go runtime.
func RuntimeHeapProbe() (uint64, bool) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc, true
}

// StaticHeapProbe always reports used. Handy for tests and for forcing the
// heap path in staging.
func StaticHeapProbe(used uint64) HeapProbe {
	return func() (uint64, bool) { return used, true }
}

// UnavailableHeapProbe reports that heap usage cannot be read.
func UnavailableHeapProbe() (uint64, bool) { return 0, false }
