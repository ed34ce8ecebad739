package tinyfs

// MountOption configures a FileSystem at Mount time, the same
// functional-option shape as the teacher's Option/WriterOption: a
// function that mutates configuration and can fail.
type MountOption func(*mountConfig) error

type mountConfig struct {
	nbuf   int
	ninode int
}

func defaultMountConfig() *mountConfig {
	return &mountConfig{nbuf: NBUF, ninode: NINODE}
}

// WithBufferCount overrides the number of slots in the buffer cache.
// Mainly useful for tests exercising eviction (spec.md §8 scenario S5)
// without allocating NBUF real buffers.
func WithBufferCount(n int) MountOption {
	return func(c *mountConfig) error {
		if n <= 0 {
			fatalf("WithBufferCount", "n must be positive, got %d", n)
		}
		c.nbuf = n
		return nil
	}
}

// WithInodeCacheSize overrides the number of slots in the in-memory
// inode cache.
func WithInodeCacheSize(n int) MountOption {
	return func(c *mountConfig) error {
		if n <= 0 {
			fatalf("WithInodeCacheSize", "n must be positive, got %d", n)
		}
		c.ninode = n
		return nil
	}
}
