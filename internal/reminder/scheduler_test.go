package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presencebot/internal/chat"
	"presencebot/internal/ledger"
	"presencebot/internal/store"
)

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string, _ *chat.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (f *fakeSender) EditMessageText(context.Context, int64, int, string, *chat.InlineKeyboardMarkup) error {
	return nil
}

func (f *fakeSender) EditMessageReplyMarkup(context.Context, int64, int, *chat.InlineKeyboardMarkup) error {
	return nil
}

func (f *fakeSender) SendDocument(context.Context, int64, string, []byte, string) error {
	return nil
}

func (f *fakeSender) AnswerCallbackQuery(context.Context, string) error { return nil }

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeSender) chatIDs() []int64 {
	var ids []int64
	for _, m := range f.messages() {
		ids = append(ids, m.ChatID)
	}
	return ids
}

// monday is a plain weekday used as "today" throughout.
var monday = time.Date(2025, time.March, 10, 8, 30, 0, 0, time.UTC)

func newScheduler(t *testing.T, now time.Time) (*Scheduler, *fakeSender, store.Workbook) {
	t.Helper()
	wb := store.NewMemWorkbook()
	clock := func() time.Time { return now }
	attendance := ledger.NewAttendance(wb, clock)
	sender := &fakeSender{}
	s := New(sender, attendance, Config{
		MorningAt:   "08:30",
		AfternoonAt: "16:00",
		Location:    time.UTC,
	})
	s.clock = clock
	return s, sender, wb
}

// recordAt writes attendance rows as of a chosen day, so tests can build
// yesterday's history against the same workbook the scheduler reads.
func recordAt(t *testing.T, wb store.Workbook, day time.Time, userKey string, checkOut bool) {
	t.Helper()
	att := ledger.NewAttendance(wb, func() time.Time { return day })
	ok, err := att.CheckIn(context.Background(), userKey, "Ufficio Centrale")
	require.NoError(t, err)
	require.True(t, ok)
	if checkOut {
		ok, err = att.CheckOut(context.Background(), userKey, "Ufficio Centrale")
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestMorningTriggerFiresOncePerDay(t *testing.T) {
	s, sender, wb := newScheduler(t, monday)
	ctx := context.Background()

	// One user checked in yesterday and has nothing today.
	recordAt(t, wb, monday.AddDate(0, 0, -1), ledger.UserKey("Anna Bianchi", 7), true)

	// Several wakes inside the trigger minute fire the fan-out exactly once.
	for i := 0; i < 3; i++ {
		s.tick(ctx)
	}
	waitForMessages(t, sender, 1)
	assert.Equal(t, []int64{7}, sender.chatIDs())
	assert.Contains(t, sender.messages()[0].Text, "Anna Bianchi")
	assert.Contains(t, sender.messages()[0].Text, "ingresso")
}

func TestAfternoonTriggerRemindsOpenRecordsOnly(t *testing.T) {
	afternoon := time.Date(2025, time.March, 10, 16, 0, 0, 0, time.UTC)
	s, sender, wb := newScheduler(t, afternoon)
	ctx := context.Background()

	recordAt(t, wb, afternoon, ledger.UserKey("Anna Bianchi", 7), true)
	recordAt(t, wb, afternoon, ledger.UserKey("Marco Rossi", 9), false)

	s.tick(ctx)
	waitForMessages(t, sender, 1)
	assert.Equal(t, []int64{9}, sender.chatIDs())
	assert.Contains(t, sender.messages()[0].Text, "uscita")
}

func TestOffMinuteNeverFires(t *testing.T) {
	s, sender, wb := newScheduler(t, time.Date(2025, time.March, 10, 8, 31, 0, 0, time.UTC))
	ctx := context.Background()
	recordAt(t, wb, monday.AddDate(0, 0, -1), ledger.UserKey("Anna Bianchi", 7), true)

	s.tick(ctx)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sender.messages())
}

func TestWeekendSkipsReminders(t *testing.T) {
	saturday := time.Date(2025, time.March, 8, 8, 30, 0, 0, time.UTC)
	s, sender, wb := newScheduler(t, saturday)
	ctx := context.Background()
	recordAt(t, wb, saturday.AddDate(0, 0, -1), ledger.UserKey("Anna Bianchi", 7), true)

	s.tick(ctx)
	s.FireNow(ctx)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sender.messages())
}

func TestFireNowBypassesTimeGuards(t *testing.T) {
	s, sender, wb := newScheduler(t, time.Date(2025, time.March, 10, 11, 15, 0, 0, time.UTC))
	ctx := context.Background()
	recordAt(t, wb, monday.AddDate(0, 0, -1), ledger.UserKey("Anna Bianchi", 7), true)

	s.FireNow(ctx)
	waitForMessages(t, sender, 1)
	assert.Equal(t, []int64{7}, sender.chatIDs())
}

func TestHistoricalUsersExcludedFromCheckOutReminder(t *testing.T) {
	afternoon := time.Date(2025, time.March, 10, 16, 0, 0, 0, time.UTC)
	s, sender, wb := newScheduler(t, afternoon)
	ctx := context.Background()

	// A user with only older records must not be told to check out.
	recordAt(t, wb, afternoon.AddDate(0, 0, -3), ledger.UserKey("Anna Bianchi", 7), false)

	s.tick(ctx)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sender.messages())
}

func waitForMessages(t *testing.T, sender *fakeSender, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sender.messages()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, got %d", n, len(sender.messages()))
}
