package heap

import (
	"encoding/binary"

	"heapstore/pkg/storage/page"
)

/*
header.go is C2 — the file header descriptor: a typed view of the first
page of every heap file.

Header page layout (all values little-endian):

	Offset  Size  Field
	──────────────────────────────────────────
	0       8     FirstPage  int64
	8       8     LastPage   int64
	16      4     PageCount  uint32
	20      4     RecCount   uint32
	24      2     NameLen    uint16
	26      MaxNameSize-1   Name bytes
	──────────────────────────────────────────

This mirrors the slotted-page header documentation style of the teacher's
heap_page.go, applied to the one page per file that never holds records —
only file-wide metadata.
*/

const (
	hdrOffFirstPage = 0
	hdrOffLastPage  = 8
	hdrOffPageCnt   = 16
	hdrOffRecCnt    = 20
	hdrOffNameLen   = 24
	hdrOffName      = 26

	// HeaderSize is the fixed byte length of the header region; the
	// remainder of the header page is unused.
	HeaderSize = hdrOffName + MaxNameSize - 1
)

// initHeader stamps a fresh header page for a newly created heap file.
func initHeader(pg *page.Page, fileName string, firstPage, lastPage int64) {
	for i := range pg.Data {
		pg.Data[i] = 0
	}

	binary.LittleEndian.PutUint64(pg.Data[hdrOffFirstPage:], uint64(firstPage))
	binary.LittleEndian.PutUint64(pg.Data[hdrOffLastPage:], uint64(lastPage))
	binary.LittleEndian.PutUint32(pg.Data[hdrOffPageCnt:], 1)
	binary.LittleEndian.PutUint32(pg.Data[hdrOffRecCnt:], 0)

	nameBytes := []byte(fileName)
	binary.LittleEndian.PutUint16(pg.Data[hdrOffNameLen:], uint16(len(nameBytes)))
	copy(pg.Data[hdrOffName:], nameBytes)

	pg.IsDirty = true
}

func headerFileName(pg *page.Page) string {
	n := binary.LittleEndian.Uint16(pg.Data[hdrOffNameLen:])
	return string(pg.Data[hdrOffName : hdrOffName+int(n)])
}

func headerFirstPage(pg *page.Page) int64 {
	return int64(binary.LittleEndian.Uint64(pg.Data[hdrOffFirstPage:]))
}

func headerSetFirstPage(pg *page.Page, v int64) {
	binary.LittleEndian.PutUint64(pg.Data[hdrOffFirstPage:], uint64(v))
	pg.IsDirty = true
}

func headerLastPage(pg *page.Page) int64 {
	return int64(binary.LittleEndian.Uint64(pg.Data[hdrOffLastPage:]))
}

func headerSetLastPage(pg *page.Page, v int64) {
	binary.LittleEndian.PutUint64(pg.Data[hdrOffLastPage:], uint64(v))
	pg.IsDirty = true
}

func headerPageCnt(pg *page.Page) uint32 {
	return binary.LittleEndian.Uint32(pg.Data[hdrOffPageCnt:])
}

func headerSetPageCnt(pg *page.Page, v uint32) {
	binary.LittleEndian.PutUint32(pg.Data[hdrOffPageCnt:], v)
	pg.IsDirty = true
}

func headerRecCnt(pg *page.Page) uint32 {
	return binary.LittleEndian.Uint32(pg.Data[hdrOffRecCnt:])
}

func headerSetRecCnt(pg *page.Page, v uint32) {
	binary.LittleEndian.PutUint32(pg.Data[hdrOffRecCnt:], v)
	pg.IsDirty = true
}
