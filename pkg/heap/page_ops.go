package heap

import (
	"encoding/binary"

	"heapstore/pkg/storage/page"
)

/*
page_ops.go backs the "page module" of spec.md §6 — slot directory,
record insert/delete/get, and page linkage — described there as an
external collaborator but implemented here, in the teacher's style
(heap_page.go), as standalone functions operating on *page.Page rather
than methods, because every data page frame is a generic buffer-pool
Page with no type of its own.

Data page layout (all values little-endian):

	Offset  Size  Field
	──────────────────────────────────────────────────────
	0       8     NextPage         int64   — -1 if this is the last page
	8       4     PageNo           uint32  — this page's own number
	12      2     RecordEndPtr     uint16  — first free byte after last record
	14      2     SlotRegionStart  uint16  — first byte of the slot directory
	16      2     SlotCount        uint16  — total slot entries (live + tombstone)
	18      2     NumLiveRows      uint16  — live records on this page
	──────────────────────────────────────────────────────
	20            dataHeaderSize

	[ header 20B ][ records → ][ free space ][ ← slot dir ]
	0            20            ^             ^             PageSize
	                           RecordEndPtr  SlotRegionStart

Records grow FORWARD from dataHeaderSize. The slot directory grows
BACKWARD from PageSize. A slot entry is 4 bytes: [Offset uint16][Length
uint16]; Length 0 marks a tombstone (deleted record, slot retained so
existing RIDs stay valid).
*/

const (
	dpOffNextPage        = 0
	dpOffPageNo          = 8
	dpOffRecordEndPtr    = 12
	dpOffSlotRegionStart = 14
	dpOffSlotCount       = 16
	dpOffNumLiveRows     = 18

	// dataHeaderSize is the fixed header size in bytes; records start
	// here on a fresh page.
	dataHeaderSize = 20

	// slotSize is the byte size of one slot directory entry.
	slotSize = 4
)

// initPage stamps a fresh, empty data page bound to pageNo with no next
// page.
func initPage(pg *page.Page, pageNo int64) {
	for i := range pg.Data {
		pg.Data[i] = 0
	}
	binary.LittleEndian.PutUint64(pg.Data[dpOffNextPage:], uint64(noNextPage))
	binary.LittleEndian.PutUint32(pg.Data[dpOffPageNo:], uint32(pageNo))
	binary.LittleEndian.PutUint16(pg.Data[dpOffRecordEndPtr:], dataHeaderSize)
	binary.LittleEndian.PutUint16(pg.Data[dpOffSlotRegionStart:], page.PageSize)
	binary.LittleEndian.PutUint16(pg.Data[dpOffSlotCount:], 0)
	binary.LittleEndian.PutUint16(pg.Data[dpOffNumLiveRows:], 0)
	pg.IsDirty = true
}

func getNextPage(pg *page.Page) int64 {
	return int64(binary.LittleEndian.Uint64(pg.Data[dpOffNextPage:]))
}

func setNextPage(pg *page.Page, next int64) {
	binary.LittleEndian.PutUint64(pg.Data[dpOffNextPage:], uint64(next))
	pg.IsDirty = true
}

func getRecordEndPtr(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[dpOffRecordEndPtr:])
}

func setRecordEndPtr(pg *page.Page, v uint16) {
	binary.LittleEndian.PutUint16(pg.Data[dpOffRecordEndPtr:], v)
}

func getSlotRegionStart(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[dpOffSlotRegionStart:])
}

func setSlotRegionStart(pg *page.Page, v uint16) {
	binary.LittleEndian.PutUint16(pg.Data[dpOffSlotRegionStart:], v)
}

func getSlotCount(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[dpOffSlotCount:])
}

func setSlotCount(pg *page.Page, v uint16) {
	binary.LittleEndian.PutUint16(pg.Data[dpOffSlotCount:], v)
}

func getNumLiveRows(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[dpOffNumLiveRows:])
}

func setNumLiveRows(pg *page.Page, v uint16) {
	binary.LittleEndian.PutUint16(pg.Data[dpOffNumLiveRows:], v)
}

// freeSpace returns the bytes available for one more record, including
// the slot entry it would consume.
func freeSpace(pg *page.Page) int {
	available := int(getSlotRegionStart(pg)) - int(getRecordEndPtr(pg)) - slotSize
	if available < 0 {
		return 0
	}
	return available
}

// slotByteOffset returns where slot i's 4-byte entry begins. Slot 0 sits
// at the highest address; slot i is slotSize bytes further back.
func slotByteOffset(i int) int {
	return page.PageSize - (i+1)*slotSize
}

func readSlot(pg *page.Page, i int) (offset, length uint16) {
	base := slotByteOffset(i)
	return binary.LittleEndian.Uint16(pg.Data[base:]),
		binary.LittleEndian.Uint16(pg.Data[base+2:])
}

func writeSlot(pg *page.Page, i int, offset, length uint16) {
	base := slotByteOffset(i)
	binary.LittleEndian.PutUint16(pg.Data[base:], offset)
	binary.LittleEndian.PutUint16(pg.Data[base+2:], length)
}

func isSlotLive(pg *page.Page, i int) bool {
	if i < 0 || i >= int(getSlotCount(pg)) {
		return false
	}
	_, length := readSlot(pg, i)
	return length > 0
}

// insertRecord writes data into the page's free space and returns the
// slot it was assigned. A fresh slot is appended unless a tombstone is
// available to recycle. Returns errNoSpace if data does not fit.
func insertRecord(pg *page.Page, data []byte) (int, error) {
	recLen := uint16(len(data))
	if freeSpace(pg) < int(recLen) {
		return 0, errNoSpace
	}

	slotNo := int(getSlotCount(pg))
	for i := 0; i < int(getSlotCount(pg)); i++ {
		if _, length := readSlot(pg, i); length == 0 {
			slotNo = i
			break
		}
	}

	recordOffset := getRecordEndPtr(pg)
	copy(pg.Data[recordOffset:], data)
	setRecordEndPtr(pg, recordOffset+recLen)
	writeSlot(pg, slotNo, recordOffset, recLen)

	if slotNo == int(getSlotCount(pg)) {
		setSlotRegionStart(pg, getSlotRegionStart(pg)-slotSize)
		setSlotCount(pg, getSlotCount(pg)+1)
	}
	setNumLiveRows(pg, getNumLiveRows(pg)+1)
	pg.IsDirty = true
	return slotNo, nil
}

// getRecord returns the record at slotNo as a slice of the page's own
// bytes, so in-place edits reach the page.
func getRecord(pg *page.Page, slotNo int) ([]byte, error) {
	if !isSlotLive(pg, slotNo) {
		return nil, errEndOfPage
	}
	offset, length := readSlot(pg, slotNo)
	end := int(offset) + int(length)
	return pg.Data[offset:end:end], nil
}

// deleteRecord tombstones slotNo. The slot entry is retained so other
// RIDs referencing later slots stay valid.
func deleteRecord(pg *page.Page, slotNo int) error {
	if !isSlotLive(pg, slotNo) {
		return errEndOfPage
	}
	writeSlot(pg, slotNo, 0, 0)
	setNumLiveRows(pg, getNumLiveRows(pg)-1)
	pg.IsDirty = true
	return nil
}

// firstRecord returns the lowest live slot number, or errEndOfPage if the
// page holds no live records.
func firstRecord(pg *page.Page) (int, error) {
	count := int(getSlotCount(pg))
	for i := 0; i < count; i++ {
		if isSlotLive(pg, i) {
			return i, nil
		}
	}
	return 0, errEndOfPage
}

// nextRecord returns the lowest live slot number strictly after prev, or
// errEndOfPage if none remains. prev need not itself be live — this is
// what lets a scan continue correctly immediately after deleting the
// current record (spec.md §9's contract requirement on the page module).
func nextRecord(pg *page.Page, prev int) (int, error) {
	count := int(getSlotCount(pg))
	for i := prev + 1; i < count; i++ {
		if isSlotLive(pg, i) {
			return i, nil
		}
	}
	return 0, errEndOfPage
}
