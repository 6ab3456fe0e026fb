package bufferpool

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"heapstore/pkg/storage/diskmanager"
	"heapstore/pkg/storage/page"
)

/*
Pool implements the buffer manager contract consumed by the heap-file
layer (spec.md §6): allocPage, readPage, unPinPage, flushFile. Pages are
identified by a globalPageID so one pool can serve many open heap files
at once:

	globalPageID = int64(fileID)<<32 | localPageNo

This mirrors the teacher's disk-manager page-ID scheme (DaemonDB). The
fileID half is assigned by the disk manager in the order files are
opened, so a page's globalPageID is fixed only while its file stays open.
*/

func globalID(fileID uint32, localPageNo int64) int64 {
	return int64(fileID)<<32 | localPageNo
}

// New creates a buffer pool of the given frame capacity backed by dm. A
// small ristretto cache backs eviction as a second tier — see structs.go.
func New(capacity int, dm *diskmanager.Manager) (*Pool, error) {
	victims, err := ristretto.NewCache(&ristretto.Config[int64, []byte]{
		NumCounters: int64(capacity) * 10,
		MaxCost:     int64(capacity) * page.PageSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("bufferpool: create victim cache: %w", err)
	}

	return &Pool{
		pages:       make(map[int64]*page.Page, capacity),
		accessOrder: make([]int64, 0, capacity),
		capacity:    capacity,
		disk:        dm,
		victims:     victims,
	}, nil
}

// AllocPage allocates a new page in f, pins it, and returns both its local
// page number and the pinned frame.
func (p *Pool) AllocPage(f *diskmanager.File) (int64, *page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	localPageNo, err := p.disk.AllocatePage(f)
	if err != nil {
		return 0, nil, fmt.Errorf("bufferpool: alloc page: %w", err)
	}

	pg := page.New(globalID(f.ID(), localPageNo), f.ID())
	pg.PinCount = 1
	pg.IsDirty = true

	if err := p.addPageLocked(pg); err != nil {
		return 0, nil, fmt.Errorf("bufferpool: add new page to pool: %w", err)
	}
	return localPageNo, pg, nil
}

// ReadPage pins the page at localPageNo in f, loading it from disk (or
// the victim cache) if it is not already resident.
func (p *Pool) ReadPage(f *diskmanager.File, localPageNo int64) (*page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := globalID(f.ID(), localPageNo)

	if pg, ok := p.pages[id]; ok {
		p.touchLocked(id)
		pg.Lock()
		pg.PinCount++
		pg.Unlock()
		return pg, nil
	}

	var data []byte
	if cached, found := p.victims.Get(id); found {
		data = cached
	} else {
		read, err := p.disk.ReadPage(f, localPageNo)
		if err != nil {
			return nil, fmt.Errorf("bufferpool: read page %d: %w", localPageNo, err)
		}
		data = read
	}

	pg := page.New(id, f.ID())
	copy(pg.Data, data)
	pg.PinCount = 1

	if err := p.addPageLocked(pg); err != nil {
		return nil, fmt.Errorf("bufferpool: add page to pool: %w", err)
	}
	return pg, nil
}

// UnpinPage decrements the pin count for a page and ORs in the dirty
// flag. It is safe to call with dirty=false repeatedly.
func (p *Pool) UnpinPage(f *diskmanager.File, localPageNo int64, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := globalID(f.ID(), localPageNo)
	pg, ok := p.pages[id]
	if !ok {
		return fmt.Errorf("bufferpool: page %d not pinned", localPageNo)
	}

	pg.Lock()
	defer pg.Unlock()

	if pg.PinCount > 0 {
		pg.PinCount--
	}
	if dirty {
		pg.IsDirty = true
	}
	return nil
}

// FlushFile forces every dirty page belonging to f to disk. Present for
// teardown; not on the steady-state insert/scan paths.
func (p *Pool) FlushFile(f *diskmanager.File) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, pg := range p.pages {
		if pg.FileID != f.ID() {
			continue
		}
		pg.Lock()
		if pg.IsDirty {
			if err := p.disk.WritePage(f, localPageNo(id), pg.Data); err != nil {
				pg.Unlock()
				return fmt.Errorf("bufferpool: flush page %d: %w", localPageNo(id), err)
			}
			pg.IsDirty = false
		}
		pg.Unlock()
	}
	return nil
}

func localPageNo(globalPageID int64) int64 {
	return globalPageID & 0xFFFFFFFF
}

// addPageLocked inserts pg into the frame table, evicting an unpinned
// victim first if the pool is at capacity. Caller holds p.mu.
func (p *Pool) addPageLocked(pg *page.Page) error {
	if len(p.pages) >= p.capacity {
		if err := p.evictLocked(); err != nil {
			return err
		}
	}
	p.pages[pg.ID] = pg
	p.touchLocked(pg.ID)
	return nil
}

// evictLocked flushes (if dirty) and drops the least-recently-used
// unpinned frame, stashing its clean bytes in the victim cache. Caller
// holds p.mu.
func (p *Pool) evictLocked() error {
	for i, id := range p.accessOrder {
		pg, ok := p.pages[id]
		if !ok {
			p.accessOrder = append(p.accessOrder[:i], p.accessOrder[i+1:]...)
			return p.evictLocked()
		}

		pg.Lock()
		if pg.PinCount > 0 {
			pg.Unlock()
			continue
		}

		if pg.IsDirty {
			f, err := p.fileForLocked(pg.FileID)
			if err != nil {
				pg.Unlock()
				return err
			}
			if err := p.disk.WritePage(f, localPageNo(id), pg.Data); err != nil {
				pg.Unlock()
				return fmt.Errorf("bufferpool: flush victim page %d: %w", localPageNo(id), err)
			}
			p.victims.Del(id)
		} else {
			snapshot := make([]byte, len(pg.Data))
			copy(snapshot, pg.Data)
			p.victims.Set(id, snapshot, page.PageSize)
		}
		pg.Unlock()

		delete(p.pages, id)
		p.accessOrder = append(p.accessOrder[:i], p.accessOrder[i+1:]...)
		return nil
	}
	return fmt.Errorf("bufferpool: all %d frames are pinned, cannot evict", p.capacity)
}

func (p *Pool) fileForLocked(fileID uint32) (*diskmanager.File, error) {
	f, err := p.disk.FileByID(fileID)
	if err != nil {
		return nil, fmt.Errorf("bufferpool: resolve file %d: %w", fileID, err)
	}
	return f, nil
}

func (p *Pool) touchLocked(id int64) {
	for i, existing := range p.accessOrder {
		if existing == id {
			p.accessOrder = append(p.accessOrder[:i], p.accessOrder[i+1:]...)
			break
		}
	}
	p.accessOrder = append(p.accessOrder, id)
}

// Stats returns a point-in-time snapshot of pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{TotalPages: len(p.pages), Capacity: p.capacity}
	for _, pg := range p.pages {
		pg.RLock()
		if pg.PinCount > 0 {
			s.PinnedPages++
		}
		if pg.IsDirty {
			s.DirtyPages++
		}
		pg.RUnlock()
	}
	return s
}
