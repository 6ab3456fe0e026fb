package heap

import (
	"fmt"

	"heapstore/pkg/storage/bufferpool"
	"heapstore/pkg/storage/diskmanager"
	"heapstore/pkg/storage/page"
)

// HeapFile is C3 — a handle onto an open heap file: its header page, and
// at most one "current" data page pinned at a time. The header page stays
// pinned for the handle's whole lifetime; the current data page is pinned
// only while it is in use and is swapped (unpin old, pin new) whenever a
// caller asks for a record on a different page.
type HeapFile struct {
	name string
	disk *diskmanager.File
	pool *bufferpool.Pool

	headerPage *page.Page
	hdrDirty   bool

	curPageNo int64
	curPage   *page.Page
	curDirty  bool
}

// Open pins the header page of name, plus its first data page as the
// current page, and returns a handle to the heap file. The caller must
// Close the handle to release both pins.
func Open(name string, disk *diskmanager.Manager, pool *bufferpool.Pool) (*HeapFile, error) {
	f, err := disk.OpenFile(name)
	if err != nil {
		return nil, fmt.Errorf("heap: open %s: %w", name, err)
	}

	hdr, err := pool.ReadPage(f, f.GetFirstPage())
	if err != nil {
		return nil, fmt.Errorf("heap: pin header page of %s: %w", name, err)
	}

	hf := &HeapFile{
		name:       name,
		disk:       f,
		pool:       pool,
		headerPage: hdr,
		curPageNo:  -1,
	}

	if _, err := hf.pinAsCurrent(headerFirstPage(hdr)); err != nil {
		if unpinErr := pool.UnpinPage(f, f.GetFirstPage(), false); unpinErr != nil {
			return nil, fmt.Errorf("heap: pin first data page of %s: %w (and unpin header: %v)", name, err, unpinErr)
		}
		return nil, fmt.Errorf("heap: pin first data page of %s: %w", name, err)
	}
	return hf, nil
}

// Close unpins whatever pages this handle still holds pinned. It does not
// close the underlying disk file — other handles, or the buffer pool
// itself, may still reference it.
func (hf *HeapFile) Close() error {
	if err := hf.unpinCurrent(); err != nil {
		return err
	}
	if hf.headerPage != nil {
		if err := hf.pool.UnpinPage(hf.disk, hf.disk.GetFirstPage(), hf.hdrDirty); err != nil {
			return fmt.Errorf("heap: unpin header page: %w", err)
		}
		hf.headerPage = nil
	}
	return nil
}

// GetRecCnt returns the number of live records across the whole file, as
// tracked in the header page.
func (hf *HeapFile) GetRecCnt() int {
	return int(headerRecCnt(hf.headerPage))
}

// GetRecord fetches the record named by rid, switching the current page if
// rid names a page other than the one already pinned. The returned slice
// aliases the pinned page and is invalidated when the current page changes.
func (hf *HeapFile) GetRecord(rid RID) ([]byte, error) {
	pg, err := hf.pinAsCurrent(rid.PageNo)
	if err != nil {
		return nil, err
	}
	rec, err := getRecord(pg, rid.SlotNo)
	if err != nil {
		return nil, fmt.Errorf("heap: get record %+v: %w", rid, err)
	}
	return rec, nil
}

// pinAsCurrent ensures pageNo is the pinned current page, swapping out
// whatever page was current before. Unpinning the old current page happens
// before pinning the new one is attempted, matching the C++ original's
// makeCurPage control flow — at most one data page pin outstanding at a
// time, and none between the unpin and the new pin.
func (hf *HeapFile) pinAsCurrent(pageNo int64) (*page.Page, error) {
	if hf.curPage != nil && hf.curPageNo == pageNo {
		return hf.curPage, nil
	}

	if err := hf.unpinCurrent(); err != nil {
		return nil, err
	}

	pg, err := hf.pool.ReadPage(hf.disk, pageNo)
	if err != nil {
		return nil, fmt.Errorf("heap: pin page %d: %w", pageNo, err)
	}
	hf.curPage = pg
	hf.curPageNo = pageNo
	hf.curDirty = false
	return pg, nil
}

func (hf *HeapFile) unpinCurrent() error {
	if hf.curPage == nil {
		return nil
	}
	if err := hf.pool.UnpinPage(hf.disk, hf.curPageNo, hf.curDirty); err != nil {
		return fmt.Errorf("heap: unpin page %d: %w", hf.curPageNo, err)
	}
	hf.curPage = nil
	hf.curPageNo = -1
	hf.curDirty = false
	return nil
}

func (hf *HeapFile) markHeaderDirty() { hf.hdrDirty = true }
