package heap

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"heapstore/pkg/storage/bufferpool"
	"heapstore/pkg/storage/diskmanager"
)

func newTestEnv(t *testing.T, capacity int) (*diskmanager.Manager, *bufferpool.Pool, string) {
	t.Helper()
	dir := filepath.Join(os.TempDir(), "heapstore_test")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	dm := diskmanager.NewManager()
	pool, err := bufferpool.New(capacity, dm)
	if err != nil {
		t.Fatalf("bufferpool.New: %v", err)
	}
	return dm, pool, dir
}

func intRecord(v int32, pad int) []byte {
	rec := make([]byte, 4+pad)
	binary.LittleEndian.PutUint32(rec, uint32(v))
	return rec
}

func TestCreateThenOpenRoundTrip(t *testing.T) {
	dm, pool, dir := newTestEnv(t, 16)
	name := filepath.Join(dir, "round_trip.heap")

	if err := CreateHeapFile(name, dm, pool); err != nil {
		t.Fatalf("CreateHeapFile: %v", err)
	}

	hf, err := Open(name, dm, pool)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := hf.GetRecCnt(); got != 0 {
		t.Errorf("fresh file GetRecCnt = %d, want 0", got)
	}
	if err := hf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := CreateHeapFile(name, dm, pool); err == nil {
		t.Error("CreateHeapFile on existing name succeeded, want ErrFileExists")
	}
}

func TestInsertAcrossManyPages(t *testing.T) {
	dm, pool, dir := newTestEnv(t, 8)
	name := filepath.Join(dir, "insert_overflow.heap")

	if err := CreateHeapFile(name, dm, pool); err != nil {
		t.Fatalf("CreateHeapFile: %v", err)
	}

	hf, err := Open(name, dm, pool)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer hf.Close()

	ins := NewInsertScan(hf)
	const count = 500
	rids := make([]RID, 0, count)
	for i := 0; i < count; i++ {
		rid, err := ins.InsertRecord(intRecord(int32(i), 32))
		if err != nil {
			t.Fatalf("InsertRecord %d: %v", i, err)
		}
		rids = append(rids, rid)
	}

	if got := hf.GetRecCnt(); got != count {
		t.Fatalf("GetRecCnt = %d, want %d", got, count)
	}

	pages := map[int64]bool{}
	for _, rid := range rids {
		pages[rid.PageNo] = true
	}
	if len(pages) < 2 {
		t.Errorf("expected records spread across multiple pages, got %d page(s)", len(pages))
	}
	t.Logf("%d records landed on %d pages", count, len(pages))

	for i, rid := range rids {
		rec, err := hf.GetRecord(rid)
		if err != nil {
			t.Fatalf("GetRecord(%+v): %v", rid, err)
		}
		if got := int32(binary.LittleEndian.Uint32(rec)); got != int32(i) {
			t.Errorf("record %d = %d, want %d", i, got, i)
		}
	}
}

func TestScanWithFilter(t *testing.T) {
	dm, pool, dir := newTestEnv(t, 8)
	name := filepath.Join(dir, "filtered_scan.heap")

	if err := CreateHeapFile(name, dm, pool); err != nil {
		t.Fatalf("CreateHeapFile: %v", err)
	}
	hf, err := Open(name, dm, pool)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer hf.Close()

	ins := NewInsertScan(hf)
	const count = 50
	for i := 0; i < count; i++ {
		if _, err := ins.InsertRecord(intRecord(int32(i), 8)); err != nil {
			t.Fatalf("InsertRecord %d: %v", i, err)
		}
	}

	filter := make([]byte, 4)
	binary.LittleEndian.PutUint32(filter, uint32(25))

	scan := NewScan(hf)
	if err := scan.StartScan(0, 4, TypeInteger, filter, GT); err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	defer scan.EndScan()

	matched := 0
	for {
		_, err := scan.ScanNext()
		if err == ErrEOF {
			break
		}
		if err != nil {
			t.Fatalf("ScanNext: %v", err)
		}
		matched++
	}
	if matched != count-26 {
		t.Errorf("matched %d records, want %d", matched, count-26)
	}
}

func TestMarkAndResetScan(t *testing.T) {
	dm, pool, dir := newTestEnv(t, 8)
	name := filepath.Join(dir, "mark_reset.heap")

	if err := CreateHeapFile(name, dm, pool); err != nil {
		t.Fatalf("CreateHeapFile: %v", err)
	}
	hf, err := Open(name, dm, pool)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer hf.Close()

	ins := NewInsertScan(hf)
	for i := 0; i < 10; i++ {
		if _, err := ins.InsertRecord(intRecord(int32(i), 8)); err != nil {
			t.Fatalf("InsertRecord %d: %v", i, err)
		}
	}

	scan := NewScan(hf)
	if err := scan.StartScan(0, 0, TypeInteger, nil, EQ); err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	defer scan.EndScan()

	first, err := scan.ScanNext()
	if err != nil {
		t.Fatalf("ScanNext: %v", err)
	}
	second, err := scan.ScanNext()
	if err != nil {
		t.Fatalf("ScanNext: %v", err)
	}
	scan.MarkScan()

	third, err := scan.ScanNext()
	if err != nil {
		t.Fatalf("ScanNext: %v", err)
	}
	if third == second {
		t.Fatal("third scan returned same RID as second, test setup is broken")
	}

	if err := scan.ResetScan(); err != nil {
		t.Fatalf("ResetScan: %v", err)
	}
	replay, err := scan.ScanNext()
	if err != nil {
		t.Fatalf("ScanNext after reset: %v", err)
	}
	if replay != third {
		t.Errorf("ScanNext after reset = %+v, want %+v (first=%+v second=%+v)", replay, third, first, second)
	}
}

func TestDeleteRecordDuringScan(t *testing.T) {
	dm, pool, dir := newTestEnv(t, 8)
	name := filepath.Join(dir, "delete_during_scan.heap")

	if err := CreateHeapFile(name, dm, pool); err != nil {
		t.Fatalf("CreateHeapFile: %v", err)
	}
	hf, err := Open(name, dm, pool)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer hf.Close()

	ins := NewInsertScan(hf)
	for i := 0; i < 5; i++ {
		if _, err := ins.InsertRecord(intRecord(int32(i), 8)); err != nil {
			t.Fatalf("InsertRecord %d: %v", i, err)
		}
	}

	scan := NewScan(hf)
	if err := scan.StartScan(0, 0, TypeInteger, nil, EQ); err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	defer scan.EndScan()

	seen := 0
	deleted := 0
	for {
		_, err := scan.ScanNext()
		if err == ErrEOF {
			break
		}
		if err != nil {
			t.Fatalf("ScanNext: %v", err)
		}
		seen++
		if seen == 2 {
			if err := scan.DeleteRecord(); err != nil {
				t.Fatalf("DeleteRecord: %v", err)
			}
			deleted++
		}
	}
	if seen != 5 {
		t.Errorf("scanned %d records in total, want 5", seen)
	}
	if deleted != 1 {
		t.Fatalf("deleted %d records, want 1", deleted)
	}
	if got := hf.GetRecCnt(); got != 4 {
		t.Errorf("GetRecCnt after delete = %d, want 4", got)
	}
}

func TestStartScanRejectsBadParameters(t *testing.T) {
	dm, pool, dir := newTestEnv(t, 4)
	name := filepath.Join(dir, "bad_scan_parm.heap")

	if err := CreateHeapFile(name, dm, pool); err != nil {
		t.Fatalf("CreateHeapFile: %v", err)
	}
	hf, err := Open(name, dm, pool)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer hf.Close()

	fourBytes := []byte{1, 2, 3, 4}

	scan := NewScan(hf)
	cases := []struct {
		name   string
		offset int
		length int
		dtype  DataType
		filter []byte
		op     Operator
	}{
		{"negative offset", -1, 4, TypeInteger, fourBytes, EQ},
		{"zero length", 0, 0, TypeInteger, fourBytes, EQ},
		{"mismatched filter length", 0, 4, TypeInteger, []byte{1, 2, 3}, EQ},
		{"integer length not wire-sized", 0, 3, TypeInteger, []byte{1, 2, 3}, EQ},
		{"float length not wire-sized", 0, 8, TypeFloat, make([]byte, 8), EQ},
		{"unknown operator", 0, 4, TypeInteger, fourBytes, Operator(99)},
	}
	for _, tc := range cases {
		if err := scan.StartScan(tc.offset, tc.length, tc.dtype, tc.filter, tc.op); err == nil {
			t.Errorf("%s: StartScan succeeded, want ErrBadScanParm", tc.name)
		}
	}

	if err := scan.StartScan(0, 4, TypeInteger, nil, EQ); err != nil {
		t.Errorf("StartScan with nil filter = %v, want success regardless of other parameters", err)
	}
	if err := scan.StartScan(-1, -1, TypeInteger, nil, Operator(99)); err != nil {
		t.Errorf("StartScan with nil filter and garbage other parameters = %v, want success", err)
	}
}

func TestInsertRecordTooLargeIsRejected(t *testing.T) {
	dm, pool, dir := newTestEnv(t, 4)
	name := filepath.Join(dir, "invalid_rec_len.heap")

	if err := CreateHeapFile(name, dm, pool); err != nil {
		t.Fatalf("CreateHeapFile: %v", err)
	}
	hf, err := Open(name, dm, pool)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer hf.Close()

	ins := NewInsertScan(hf)
	_, err = ins.InsertRecord(make([]byte, maxRecordSize+1))
	if err == nil {
		t.Fatal("InsertRecord with oversized payload succeeded, want ErrInvalidRecLen")
	}
}
