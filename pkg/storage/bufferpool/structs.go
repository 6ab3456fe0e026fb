package bufferpool

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"heapstore/pkg/storage/diskmanager"
	"heapstore/pkg/storage/page"
)

// ############################################# BUFFER POOL #############################################

// Pool is the buffer manager of spec.md §6: it pins/unpins page frames on
// behalf of the heap layer, loading from disk on a miss and evicting on
// capacity pressure. Pin-count bookkeeping lives entirely in pages/
// accessOrder — it must stay deterministic, so it is never delegated to
// the ristretto second-tier cache below.
//
// victims is a second-level cache of clean pages this pool has evicted.
// ristretto's admission policy (TinyLFU) decides what is worth keeping
// there; a ReadPage miss on the frame table checks victims before
// paying for a disk read. Pages only ever enter victims clean (dirty
// pages are flushed, not cached, and any earlier snapshot of a flushed
// victim is dropped — a stale victims entry could otherwise shadow a
// page that disk now holds newer bytes for).
type Pool struct {
	mu          sync.Mutex
	pages       map[int64]*page.Page // globalPageID -> frame
	accessOrder []int64              // least-recently-used first
	capacity    int

	disk    *diskmanager.Manager
	victims *ristretto.Cache[int64, []byte]
}

// Stats reports a snapshot of pool occupancy, used by tests and callers
// that want to reason about eviction pressure.
type Stats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
}
