package heap

import "errors"

// Sentinel errors for the status kinds of spec.md §7. Buffer/file/page
// manager errors are surfaced verbatim (wrapped with %w) rather than
// mapped onto these — only conditions this layer itself detects get a
// sentinel here.
var (
	// ErrBadFile is returned by CreateHeapFile when name exceeds
	// MaxNameSize-1 characters.
	ErrBadFile = errors.New("heap: file name too long")

	// ErrFileExists is returned by CreateHeapFile when name already
	// names an existing file.
	ErrFileExists = errors.New("heap: file already exists")

	// ErrEOF is returned by ScanNext when the scan has exhausted every
	// data page in the file.
	ErrEOF = errors.New("heap: end of file")

	// ErrNoRecords is never raised by the scanNext loop shape described
	// in spec.md §4.3. HeapFileScan.GetRecord and DeleteRecord return it
	// when the cursor has no current record.
	ErrNoRecords = errors.New("heap: no records")

	// errEndOfPage marks a page with no further records. ScanNext
	// consumes it; HeapFile.GetRecord and HeapFileScan.DeleteRecord
	// return it wrapped when the RID names a slot with no live record.
	errEndOfPage = errors.New("heap: end of page")

	// errNoSpace is internal: a page insert failed for lack of room.
	// Consumed by InsertRecord, which allocates a new page and retries.
	errNoSpace = errors.New("heap: no space on page")

	// ErrInvalidRecLen is returned by InsertRecord when a record could
	// never fit on any page, regardless of how much is free.
	ErrInvalidRecLen = errors.New("heap: record too large for a page")

	// ErrBadScanParm is returned by StartScan when the filter parameters
	// fail validation.
	ErrBadScanParm = errors.New("heap: bad scan parameters")
)
