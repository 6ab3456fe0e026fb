package heap

import (
	"bytes"
	"testing"

	"heapstore/pkg/storage/page"
)

func newTestPage(pageNo int64) *page.Page {
	pg := page.New(pageNo, 0)
	initPage(pg, pageNo)
	return pg
}

func TestInitPageStartsEmpty(t *testing.T) {
	pg := newTestPage(1)
	if getNextPage(pg) != noNextPage {
		t.Errorf("fresh page next = %d, want %d", getNextPage(pg), noNextPage)
	}
	if got := getNumLiveRows(pg); got != 0 {
		t.Errorf("fresh page live rows = %d, want 0", got)
	}
	if _, err := firstRecord(pg); err != errEndOfPage {
		t.Errorf("firstRecord on empty page = %v, want errEndOfPage", err)
	}
}

func TestInsertAndGetRecordRoundTrip(t *testing.T) {
	pg := newTestPage(1)
	want := []byte("hello, heap file")

	slotNo, err := insertRecord(pg, want)
	if err != nil {
		t.Fatalf("insertRecord: %v", err)
	}

	got, err := getRecord(pg, slotNo)
	if err != nil {
		t.Fatalf("getRecord: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("getRecord = %q, want %q", got, want)
	}
}

func TestInsertRecordFillsPageThenReportsNoSpace(t *testing.T) {
	pg := newTestPage(1)
	payload := bytes.Repeat([]byte{0xAB}, 64)

	inserted := 0
	for {
		if _, err := insertRecord(pg, payload); err != nil {
			if err != errNoSpace {
				t.Fatalf("insertRecord after %d inserts: %v", inserted, err)
			}
			break
		}
		inserted++
	}
	if inserted == 0 {
		t.Fatal("expected at least one record to fit on a fresh page")
	}
	t.Logf("page held %d records of %d bytes before filling", inserted, len(payload))
}

func TestDeleteRecordTombstonesSlot(t *testing.T) {
	pg := newTestPage(1)
	slotNo, err := insertRecord(pg, []byte("to be deleted"))
	if err != nil {
		t.Fatalf("insertRecord: %v", err)
	}

	if err := deleteRecord(pg, slotNo); err != nil {
		t.Fatalf("deleteRecord: %v", err)
	}
	if isSlotLive(pg, slotNo) {
		t.Error("slot still live after delete")
	}
	if _, err := getRecord(pg, slotNo); err == nil {
		t.Error("getRecord on deleted slot succeeded, want error")
	}
}

func TestNextRecordSkipsTombstones(t *testing.T) {
	pg := newTestPage(1)
	var slots []int
	for i := 0; i < 3; i++ {
		slotNo, err := insertRecord(pg, []byte{byte(i)})
		if err != nil {
			t.Fatalf("insertRecord %d: %v", i, err)
		}
		slots = append(slots, slotNo)
	}

	if err := deleteRecord(pg, slots[1]); err != nil {
		t.Fatalf("deleteRecord: %v", err)
	}

	first, err := firstRecord(pg)
	if err != nil {
		t.Fatalf("firstRecord: %v", err)
	}
	if first != slots[0] {
		t.Fatalf("firstRecord = %d, want %d", first, slots[0])
	}

	next, err := nextRecord(pg, first)
	if err != nil {
		t.Fatalf("nextRecord: %v", err)
	}
	if next != slots[2] {
		t.Errorf("nextRecord after deleting middle slot = %d, want %d", next, slots[2])
	}
}

func TestNextRecordFromDeletedCursorStillAdvances(t *testing.T) {
	pg := newTestPage(1)
	a, err := insertRecord(pg, []byte{1})
	if err != nil {
		t.Fatalf("insertRecord: %v", err)
	}
	b, err := insertRecord(pg, []byte{2})
	if err != nil {
		t.Fatalf("insertRecord: %v", err)
	}

	if err := deleteRecord(pg, a); err != nil {
		t.Fatalf("deleteRecord: %v", err)
	}

	next, err := nextRecord(pg, a)
	if err != nil {
		t.Fatalf("nextRecord from deleted slot: %v", err)
	}
	if next != b {
		t.Errorf("nextRecord from deleted cursor = %d, want %d", next, b)
	}
}
