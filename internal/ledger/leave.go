package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"presencebot/internal/store"
)

// LeaveRequest is one row of the leave sheet. Requests are append-only;
// overlapping requests from the same user are allowed because approval is a
// manual process outside this system.
type LeaveRequest struct {
	RequestedAt string
	UserKey     string
	StartDate   string
	EndDate     string
	Reason      string
	RequestID   string
}

func leaveFromRow(row []string) LeaveRequest {
	return LeaveRequest{
		RequestedAt: store.Cell(row, 0),
		UserKey:     store.Cell(row, 1),
		StartDate:   store.Cell(row, 2),
		EndDate:     store.Cell(row, 3),
		Reason:      store.Cell(row, 4),
		RequestID:   store.Cell(row, 5),
	}
}

func (r LeaveRequest) row() []string {
	return []string{r.RequestedAt, r.UserKey, r.StartDate, r.EndDate, r.Reason, r.RequestID}
}

// LeaveLog records leave-of-absence requests.
type LeaveLog struct {
	wb    store.Workbook
	clock func() time.Time
}

func NewLeaveLog(wb store.Workbook, clock func() time.Time) *LeaveLog {
	return &LeaveLog{wb: wb, clock: clock}
}

// Submit validates and appends a request. It returns false without writing
// when either date fails to parse or the end precedes the start.
func (l *LeaveLog) Submit(ctx context.Context, userKey, startDate, endDate, reason string) (bool, error) {
	start, err := time.Parse(ISODateLayout, startDate)
	if err != nil {
		return false, nil
	}
	end, err := time.Parse(ISODateLayout, endDate)
	if err != nil {
		return false, nil
	}
	if end.Before(start) {
		return false, nil
	}

	req := LeaveRequest{
		RequestedAt: l.clock().Format(TimestampLayout),
		UserKey:     userKey,
		StartDate:   startDate,
		EndDate:     endDate,
		Reason:      reason,
		RequestID:   uuid.NewString(),
	}
	if err := l.wb.AppendRow(ctx, store.LeaveSheet, req.row()); err != nil {
		return false, err
	}
	return true, nil
}

// ForUser returns the user's requests in submission order.
func (l *LeaveLog) ForUser(ctx context.Context, userKey string) ([]LeaveRequest, error) {
	rows, err := l.wb.Rows(ctx, store.LeaveSheet)
	if err != nil {
		return nil, err
	}
	var out []LeaveRequest
	for _, row := range store.DataRows(rows) {
		req := leaveFromRow(row)
		if req.UserKey == userKey {
			out = append(out, req)
		}
	}
	return out, nil
}
