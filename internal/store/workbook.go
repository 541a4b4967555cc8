package store

import "context"

// Sheet names and header rows for the backing workbook. The header layouts are
// part of the external contract and must not be reordered.
const (
	AttendanceSheet = "Attendance"
	LeaveSheet      = "LeaveRequests"
	ZoneSheet       = "Zones"
)

var sheetHeaders = map[string][]string{
	AttendanceSheet: {"Date", "UserKey", "CheckInTime", "CheckInZone", "CheckOutTime", "CheckOutZone"},
	// RequestID is a server-assigned correlation id; it trails the reporting
	// columns so readers that only know the first five keep working.
	LeaveSheet: {"RequestedAt", "UserKey", "StartDate", "EndDate", "Reason", "RequestID"},
	ZoneSheet:  {"Name", "Latitude", "Longitude", "RadiusMeters"},
}

// Workbook is the narrow row-level surface the ledger layer uses. Row indexes
// are 1-based and include the header row, matching how spreadsheet backends
// address rows. The backend offers no cross-call isolation; callers that need
// read-then-write atomicity must serialize above this interface.
type Workbook interface {
	Rows(ctx context.Context, sheet string) ([][]string, error)
	AppendRow(ctx context.Context, sheet string, row []string) error
	UpdateRow(ctx context.Context, sheet string, index int, row []string) error
	DeleteRow(ctx context.Context, sheet string, index int) error
}

// Cell returns the trimmed cell at idx, tolerating short rows. Spreadsheet
// backends drop trailing empty cells, so every consumer goes through this.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return trimmed(row[idx])
}

// DataRows strips the header row. The workbook is owned externally, so a
// sheet can show up with no rows at all; scans must not assume the header
// is present.
func DataRows(rows [][]string) [][]string {
	if len(rows) < 2 {
		return nil
	}
	return rows[1:]
}
