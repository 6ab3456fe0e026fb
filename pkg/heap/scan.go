package heap

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// HeapFileScan is C4 — a single forward scan cursor over a heap file,
// with an optional typed comparison filter predicate evaluated
// against each candidate record. It holds a *HeapFile by composition
// (spec.md §9 notes this explicitly invites composition over embedding
// a concrete base type) rather than inheriting one, since Go has no
// inheritance to invite in the first place.
type HeapFileScan struct {
	file *HeapFile

	scanning bool
	offset   int
	length   int
	dtype    DataType
	filter   []byte
	op       Operator

	curPageNo int64
	curRec    RID

	markedPageNo int64
	markedRec    RID
}

// NewScan wraps an already-open HeapFile in a scan cursor, positioned at
// the file's first data page. The cursor position is set up once here and
// is never reset by StartScan — callers that want a fresh scan construct
// a new HeapFileScan.
func NewScan(file *HeapFile) *HeapFileScan {
	return &HeapFileScan{
		file:      file,
		curPageNo: headerFirstPage(file.headerPage),
		curRec:    NullRID,
		markedRec: NullRID,
	}
}

// StartScan arms the cursor with a filter predicate; it does not move the
// cursor. A nil filter clears any existing filter and succeeds with no
// further validation. A non-nil filter must carry a valid offset/length/
// type/operator combination, checked before anything else runs:
//
//	diff := record[offset:offset+length] (as dtype) - filter (as dtype)
//	keep := diff <op> 0
func (s *HeapFileScan) StartScan(offset, length int, dtype DataType, filter []byte, op Operator) error {
	if filter == nil {
		s.filter = nil
		s.scanning = true
		return nil
	}

	if offset < 0 || length < 1 {
		return fmt.Errorf("heap: %w: offset must be >= 0 and length >= 1", ErrBadScanParm)
	}
	if dtype < TypeString || dtype > TypeFloat {
		return fmt.Errorf("heap: %w: unknown dtype %d", ErrBadScanParm, dtype)
	}
	if len(filter) != length {
		return fmt.Errorf("heap: %w: filter length %d != field length %d", ErrBadScanParm, len(filter), length)
	}
	if (dtype == TypeInteger || dtype == TypeFloat) && length != 4 {
		return fmt.Errorf("heap: %w: length %d does not match the wire size of dtype %d", ErrBadScanParm, length, dtype)
	}
	if op < LT || op > NE {
		return fmt.Errorf("heap: %w: unknown operator %d", ErrBadScanParm, op)
	}

	s.offset = offset
	s.length = length
	s.dtype = dtype
	s.filter = filter
	s.op = op
	s.scanning = true
	return nil
}

// ScanNext advances the cursor to the next record satisfying the filter
// and returns its RID, or ErrEOF once every data page has been exhausted.
func (s *HeapFileScan) ScanNext() (RID, error) {
	if !s.scanning {
		return NullRID, fmt.Errorf("heap: %w: scan not started", ErrBadScanParm)
	}

	for {
		pg, err := s.file.pinAsCurrent(s.curPageNo)
		if err != nil {
			return NullRID, err
		}

		var slotNo int
		if s.curRec.IsNull() {
			slotNo, err = firstRecord(pg)
		} else {
			slotNo, err = nextRecord(pg, s.curRec.SlotNo)
		}

		if err == errEndOfPage {
			next := getNextPage(pg)
			if next == noNextPage {
				return NullRID, ErrEOF
			}
			s.curPageNo = next
			s.curRec = NullRID
			continue
		}
		if err != nil {
			return NullRID, fmt.Errorf("heap: scan next: %w", err)
		}

		rid := RID{PageNo: s.curPageNo, SlotNo: slotNo}
		s.curRec = rid

		rec, err := getRecord(pg, slotNo)
		if err != nil {
			return NullRID, fmt.Errorf("heap: scan next: %w", err)
		}
		if s.matchRec(rec) {
			return rid, nil
		}
	}
}

// matchRec reports whether record satisfies the active filter. A nil
// filter matches unconditionally. The field bytes are copied out before
// decoding so a misaligned offset into the page buffer never trips the
// runtime's alignment expectations for multi-byte loads.
func (s *HeapFileScan) matchRec(record []byte) bool {
	if s.filter == nil {
		return true
	}
	if s.offset+s.length > len(record) {
		return false
	}

	field := make([]byte, s.length)
	copy(field, record[s.offset:s.offset+s.length])

	var diff int
	switch s.dtype {
	case TypeInteger:
		a := int32(binary.LittleEndian.Uint32(field))
		b := int32(binary.LittleEndian.Uint32(s.filter))
		switch {
		case a < b:
			diff = -1
		case a > b:
			diff = 1
		}
	case TypeFloat:
		a := math.Float32frombits(binary.LittleEndian.Uint32(field))
		b := math.Float32frombits(binary.LittleEndian.Uint32(s.filter))
		switch {
		case a < b:
			diff = -1
		case a > b:
			diff = 1
		}
	case TypeString:
		diff = bytes.Compare(field, s.filter)
	}

	switch s.op {
	case LT:
		return diff < 0
	case LTE:
		return diff <= 0
	case EQ:
		return diff == 0
	case GTE:
		return diff >= 0
	case GT:
		return diff > 0
	case NE:
		return diff != 0
	}
	return false
}

// MarkScan snapshots the cursor so a later ResetScan can return to it.
func (s *HeapFileScan) MarkScan() {
	s.markedPageNo = s.curPageNo
	s.markedRec = s.curRec
}

// ResetScan restores the cursor to its last marked position, repinning
// the marked page only if it differs from the one currently pinned.
func (s *HeapFileScan) ResetScan() error {
	if s.markedRec.IsNull() && s.curRec.IsNull() {
		return nil
	}
	if s.markedPageNo != s.curPageNo {
		if _, err := s.file.pinAsCurrent(s.markedPageNo); err != nil {
			return fmt.Errorf("heap: reset scan: %w", err)
		}
	}
	s.curPageNo = s.markedPageNo
	s.curRec = s.markedRec
	return nil
}

// EndScan releases whatever page the cursor still holds pinned. Safe to
// call even if the scan never matched a record.
func (s *HeapFileScan) EndScan() error {
	s.scanning = false
	return s.file.unpinCurrent()
}

// GetRecord returns the record the cursor currently sits on without
// advancing it.
func (s *HeapFileScan) GetRecord() ([]byte, error) {
	if s.curRec.IsNull() {
		return nil, fmt.Errorf("heap: %w: no current record", ErrNoRecords)
	}
	return s.file.GetRecord(s.curRec)
}

// DeleteRecord deletes the record the cursor currently sits on and
// decrements the file's record count.
func (s *HeapFileScan) DeleteRecord() error {
	if s.curRec.IsNull() {
		return fmt.Errorf("heap: %w: no current record", ErrNoRecords)
	}
	pg, err := s.file.pinAsCurrent(s.curRec.PageNo)
	if err != nil {
		return err
	}
	if err := deleteRecord(pg, s.curRec.SlotNo); err != nil {
		return fmt.Errorf("heap: delete record %+v: %w", s.curRec, err)
	}
	s.file.curDirty = true
	headerSetRecCnt(s.file.headerPage, headerRecCnt(s.file.headerPage)-1)
	s.file.markHeaderDirty()
	return nil
}

// MarkDirty flags the page the cursor currently sits on as modified, for
// callers that mutate a record's bytes in place via GetRecord.
func (s *HeapFileScan) MarkDirty() {
	s.file.curDirty = true
}
