package tinyfs

import "sync"

// spinlock stands in for the short-held, never-slept-across locks of
// spec.md §5's lock taxonomy (icache.lock, log.lock, bufmap_lock,
// bufeviction_lock). The original kernel disables interrupts on the
// holding CPU for the duration; this module has no CPU-local interrupt
// state to protect, so a plain sync.Mutex gives the same mutual
// exclusion with none of the callers ever parking on it for long (by
// discipline: nothing here calls a blocking operation while holding
// one, mirroring spec.md §5's "never held across any sleep").
type spinlock struct {
	mu sync.Mutex
}

func (s *spinlock) lock()   { s.mu.Lock() }
func (s *spinlock) unlock() { s.mu.Unlock() }
