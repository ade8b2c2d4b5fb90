package sync

import (
	"sync/atomic"

	"github.com/pricorephp/pricore/internal/store"
)

// runCounters are the shared per-run outcome tallies. Units running on
// different workers increment them concurrently, so every bucket is atomic.
type runCounters struct {
	added   atomic.Int64
	updated atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
	removed atomic.Int64
}

func (c *runCounters) snapshot() store.RunCounters {
	return store.RunCounters{
		Added:   c.added.Load(),
		Updated: c.updated.Load(),
		Skipped: c.skipped.Load(),
		Failed:  c.failed.Load(),
		Removed: c.removed.Load(),
	}
}
