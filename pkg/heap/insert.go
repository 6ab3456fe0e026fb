package heap

import "fmt"

// maxRecordSize is the largest record that could ever fit a freshly
// initialized page: the whole page minus its header and the one slot
// entry every record consumes.
const maxRecordSize = PageSize - dataHeaderSize - slotSize

// InsertFileScan is C5 — the insert-only counterpart to HeapFileScan. It
// always appends to the file's last page, allocating and linking a new
// one when the last page runs out of room.
type InsertFileScan struct {
	file *HeapFile
}

// NewInsertScan wraps an already-open HeapFile for appends.
func NewInsertScan(file *HeapFile) *InsertFileScan {
	return &InsertFileScan{file: file}
}

// InsertRecord appends data as a new record and returns its RID. If the
// current last page has no room, a new page is allocated, linked onto the
// last page's next pointer, and made the new last page before the insert
// is retried.
func (s *InsertFileScan) InsertRecord(data []byte) (RID, error) {
	if len(data) > maxRecordSize {
		return NullRID, fmt.Errorf("heap: insert record of %d bytes: %w", len(data), ErrInvalidRecLen)
	}

	hf := s.file
	lastPageNo := headerLastPage(hf.headerPage)

	pg, err := hf.pinAsCurrent(lastPageNo)
	if err != nil {
		return NullRID, err
	}

	slotNo, err := insertRecord(pg, data)
	if err == errNoSpace {
		newPageNo, newPage, allocErr := hf.pool.AllocPage(hf.disk)
		if allocErr != nil {
			return NullRID, fmt.Errorf("heap: allocate page for insert: %w", allocErr)
		}
		initPage(newPage, newPageNo)

		setNextPage(pg, newPageNo)
		hf.curDirty = true

		if unpinErr := hf.pool.UnpinPage(hf.disk, newPageNo, true); unpinErr != nil {
			return NullRID, fmt.Errorf("heap: unpin newly allocated page: %w", unpinErr)
		}

		headerSetLastPage(hf.headerPage, newPageNo)
		headerSetPageCnt(hf.headerPage, headerPageCnt(hf.headerPage)+1)
		hf.markHeaderDirty()

		pg, err = hf.pinAsCurrent(newPageNo)
		if err != nil {
			return NullRID, err
		}
		slotNo, err = insertRecord(pg, data)
	}
	if err != nil {
		return NullRID, fmt.Errorf("heap: insert record: %w", err)
	}

	hf.curDirty = true
	headerSetRecCnt(hf.headerPage, headerRecCnt(hf.headerPage)+1)
	hf.markHeaderDirty()

	return RID{PageNo: hf.curPageNo, SlotNo: slotNo}, nil
}

// Close unpins whatever page the scan still holds current, unconditionally
// dirty — any insert path that reached this page left it modified, and an
// InsertFileScan that closes without ever inserting still must not assume
// otherwise.
func (s *InsertFileScan) Close() error {
	s.file.curDirty = true
	return s.file.Close()
}
