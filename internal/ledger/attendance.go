package ledger

import (
	"context"
	"time"

	"presencebot/internal/store"
)

// Storage date and time layouts shared by the workbook sheets.
const (
	DateLayout      = "02.01.2006"
	TimeLayout      = "15:04"
	ISODateLayout   = "2006-01-02"
	TimestampLayout = "02.01.2006 15:04"
)

// AttendanceRecord is one row of the attendance sheet. At most one exists per
// (Date, UserKey); the check-out fields stay empty until the matching
// check-out.
type AttendanceRecord struct {
	Date         string
	UserKey      string
	CheckInTime  string
	CheckInZone  string
	CheckOutTime string
	CheckOutZone string
}

func attendanceFromRow(row []string) AttendanceRecord {
	return AttendanceRecord{
		Date:         store.Cell(row, 0),
		UserKey:      store.Cell(row, 1),
		CheckInTime:  store.Cell(row, 2),
		CheckInZone:  store.Cell(row, 3),
		CheckOutTime: store.Cell(row, 4),
		CheckOutZone: store.Cell(row, 5),
	}
}

func (r AttendanceRecord) row() []string {
	return []string{r.Date, r.UserKey, r.CheckInTime, r.CheckInZone, r.CheckOutTime, r.CheckOutZone}
}

// Attendance owns the check-in/check-out rules over the workbook. All
// mutations for the same (date, userKey) are serialized through a keyed
// mutex because the workbook itself offers no read-then-write isolation.
type Attendance struct {
	wb    store.Workbook
	clock func() time.Time
	keyed *keyedMutex
}

func NewAttendance(wb store.Workbook, clock func() time.Time) *Attendance {
	return &Attendance{wb: wb, clock: clock, keyed: newKeyedMutex()}
}

// CheckIn appends today's record for userKey unless one already exists.
// A false return is the expected duplicate-check-in outcome, not an error.
func (a *Attendance) CheckIn(ctx context.Context, userKey, zoneName string) (bool, error) {
	now := a.clock()
	today := now.Format(DateLayout)

	unlock := a.keyed.lock(today + "|" + userKey)
	defer unlock()

	rows, err := a.wb.Rows(ctx, store.AttendanceSheet)
	if err != nil {
		return false, err
	}
	for _, row := range store.DataRows(rows) {
		rec := attendanceFromRow(row)
		if rec.Date == today && rec.UserKey == userKey {
			return false, nil
		}
	}

	rec := AttendanceRecord{
		Date:        today,
		UserKey:     userKey,
		CheckInTime: now.Format(TimeLayout),
		CheckInZone: zoneName,
	}
	if err := a.wb.AppendRow(ctx, store.AttendanceSheet, rec.row()); err != nil {
		return false, err
	}
	return true, nil
}

// CheckOut fills the check-out fields of today's open record for userKey.
// A false return means no open check-in exists today.
func (a *Attendance) CheckOut(ctx context.Context, userKey, zoneName string) (bool, error) {
	now := a.clock()
	today := now.Format(DateLayout)

	unlock := a.keyed.lock(today + "|" + userKey)
	defer unlock()

	rows, err := a.wb.Rows(ctx, store.AttendanceSheet)
	if err != nil {
		return false, err
	}
	for i, row := range store.DataRows(rows) {
		rec := attendanceFromRow(row)
		if rec.Date != today || rec.UserKey != userKey || rec.CheckOutTime != "" {
			continue
		}
		rec.CheckOutTime = now.Format(TimeLayout)
		rec.CheckOutZone = zoneName
		if err := a.wb.UpdateRow(ctx, store.AttendanceSheet, i+2, rec.row()); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Summarize returns every record for userKey in ledger order.
func (a *Attendance) Summarize(ctx context.Context, userKey string) ([]AttendanceRecord, error) {
	rows, err := a.wb.Rows(ctx, store.AttendanceSheet)
	if err != nil {
		return nil, err
	}
	var out []AttendanceRecord
	for _, row := range store.DataRows(rows) {
		rec := attendanceFromRow(row)
		if rec.UserKey == userKey {
			out = append(out, rec)
		}
	}
	return out, nil
}

// DayStatus is the roster view the reminder scheduler works from.
type DayStatus struct {
	// AllUsers is every user key that ever appeared in the ledger.
	AllUsers map[string]struct{}
	// CheckedIn is the user keys with a check-in on the given date.
	CheckedIn map[string]struct{}
	// CheckedOut is the user keys with a completed check-out on the given date.
	CheckedOut map[string]struct{}
}

// Status scans the ledger once and classifies users relative to date.
func (a *Attendance) Status(ctx context.Context, date string) (DayStatus, error) {
	status := DayStatus{
		AllUsers:   make(map[string]struct{}),
		CheckedIn:  make(map[string]struct{}),
		CheckedOut: make(map[string]struct{}),
	}
	rows, err := a.wb.Rows(ctx, store.AttendanceSheet)
	if err != nil {
		return status, err
	}
	for _, row := range store.DataRows(rows) {
		rec := attendanceFromRow(row)
		if rec.UserKey == "" {
			continue
		}
		status.AllUsers[rec.UserKey] = struct{}{}
		if rec.Date != date {
			continue
		}
		if rec.CheckInTime != "" {
			status.CheckedIn[rec.UserKey] = struct{}{}
		}
		if rec.CheckOutTime != "" {
			status.CheckedOut[rec.UserKey] = struct{}{}
		}
	}
	return status, nil
}

// MissingCheckIn is everyone ever seen minus those checked in on date.
func (s DayStatus) MissingCheckIn() []string {
	return subtract(s.AllUsers, s.CheckedIn)
}

// MissingCheckOut is those checked in on date minus those checked out. Users
// with only historical records on other days never appear here.
func (s DayStatus) MissingCheckOut() []string {
	return subtract(s.CheckedIn, s.CheckedOut)
}

func subtract(from, remove map[string]struct{}) []string {
	var out []string
	for key := range from {
		if _, ok := remove[key]; !ok {
			out = append(out, key)
		}
	}
	return out
}
