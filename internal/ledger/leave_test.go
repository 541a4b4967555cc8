package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presencebot/internal/store"
)

func TestSubmitRejectsEndBeforeStart(t *testing.T) {
	wb := store.NewMemWorkbook()
	leave := NewLeaveLog(wb, fixedClock(testDay))

	ok, err := leave.Submit(context.Background(), "Mario Rossi | 42", "2025-03-10", "2025-03-05", "x")
	require.NoError(t, err)
	assert.False(t, ok)

	rows, err := wb.Rows(context.Background(), store.LeaveSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "rejected request must not be written")
}

func TestSubmitAppendsRequest(t *testing.T) {
	wb := store.NewMemWorkbook()
	leave := NewLeaveLog(wb, fixedClock(time.Date(2025, 3, 1, 14, 20, 0, 0, time.UTC)))
	ctx := context.Background()

	ok, err := leave.Submit(ctx, "Mario Rossi | 42", "2025-03-05", "2025-03-10", "visita medica")
	require.NoError(t, err)
	require.True(t, ok)

	reqs, err := leave.ForUser(ctx, "Mario Rossi | 42")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "01.03.2025 14:20", reqs[0].RequestedAt)
	assert.Equal(t, "2025-03-05", reqs[0].StartDate)
	assert.Equal(t, "2025-03-10", reqs[0].EndDate)
	assert.Equal(t, "visita medica", reqs[0].Reason)
	assert.NotEmpty(t, reqs[0].RequestID)
}

func TestSubmitSameDayRange(t *testing.T) {
	wb := store.NewMemWorkbook()
	leave := NewLeaveLog(wb, fixedClock(testDay))

	ok, err := leave.Submit(context.Background(), "Mario Rossi | 42", "2025-03-05", "2025-03-05", "mezza giornata")
	require.NoError(t, err)
	assert.True(t, ok, "start == end is a valid single-day request")
}

func TestSubmitAllowsOverlappingRequests(t *testing.T) {
	wb := store.NewMemWorkbook()
	leave := NewLeaveLog(wb, fixedClock(testDay))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := leave.Submit(ctx, "Mario Rossi | 42", "2025-03-05", "2025-03-10", "ferie")
		require.NoError(t, err)
		require.True(t, ok)
	}
	reqs, err := leave.ForUser(ctx, "Mario Rossi | 42")
	require.NoError(t, err)
	assert.Len(t, reqs, 2, "overlapping requests are permitted by design")
	assert.NotEqual(t, reqs[0].RequestID, reqs[1].RequestID)
}

func TestSubmitRejectsUnparsableDates(t *testing.T) {
	wb := store.NewMemWorkbook()
	leave := NewLeaveLog(wb, fixedClock(testDay))

	ok, err := leave.Submit(context.Background(), "Mario Rossi | 42", "05/03/2025", "2025-03-10", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}
