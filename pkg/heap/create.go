package heap

import (
	"errors"
	"fmt"

	"heapstore/pkg/storage/bufferpool"
	"heapstore/pkg/storage/diskmanager"
)

// CreateHeapFile is C6 — it creates name on disk and populates it with a
// header page pointing at a single, empty first data page. It fails with
// ErrFileExists if name already exists (probed via OpenFile, mirroring
// the C++ original's use of open-should-fail as an existence check) and
// with ErrBadFile if name cannot be stored in the fixed-width header
// name field.
func CreateHeapFile(name string, disk *diskmanager.Manager, pool *bufferpool.Pool) error {
	if len(name) > MaxNameSize-1 {
		return fmt.Errorf("heap: create %s: %w", name, ErrBadFile)
	}

	if _, err := disk.OpenFile(name); err == nil {
		return fmt.Errorf("heap: create %s: %w", name, ErrFileExists)
	}

	if err := disk.CreateFile(name); err != nil {
		if errors.Is(err, diskmanager.ErrFileExists) {
			return fmt.Errorf("heap: create %s: %w", name, ErrFileExists)
		}
		return fmt.Errorf("heap: create %s: %w", name, err)
	}

	f, err := disk.OpenFile(name)
	if err != nil {
		return fmt.Errorf("heap: open newly created %s: %w", name, err)
	}

	headerPageNo, headerPage, err := pool.AllocPage(f)
	if err != nil {
		return fmt.Errorf("heap: allocate header page for %s: %w", name, err)
	}
	dataPageNo, dataPage, err := pool.AllocPage(f)
	if err != nil {
		return fmt.Errorf("heap: allocate first data page for %s: %w", name, err)
	}

	initPage(dataPage, dataPageNo)
	initHeader(headerPage, name, dataPageNo, dataPageNo)

	if err := pool.UnpinPage(f, dataPageNo, true); err != nil {
		return fmt.Errorf("heap: unpin first data page of %s: %w", name, err)
	}
	if err := pool.UnpinPage(f, headerPageNo, true); err != nil {
		return fmt.Errorf("heap: unpin header page of %s: %w", name, err)
	}
	return nil
}

// DestroyHeapFile removes name from disk entirely. The caller is
// responsible for ensuring no HeapFile handle onto name is still open.
func DestroyHeapFile(name string, disk *diskmanager.Manager) error {
	if err := disk.DestroyFile(name); err != nil {
		return fmt.Errorf("heap: destroy %s: %w", name, err)
	}
	return nil
}
