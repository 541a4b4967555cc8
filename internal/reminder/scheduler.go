package reminder

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"presencebot/internal/chat"
	"presencebot/internal/ledger"
)

const defaultTick = 30 * time.Second

// Config carries the trigger times as local HH:MM strings plus the timezone
// they are evaluated in.
type Config struct {
	MorningAt   string
	AfternoonAt string
	Location    *time.Location
	Tick        time.Duration
}

// State tracks the last date each trigger fired, so a trigger fires at most
// once per calendar day even when the loop wakes several times inside the
// trigger minute. It lives for the process lifetime and resets on restart.
type State struct {
	LastMorningDate   string
	LastAfternoonDate string
}

// Scheduler is the background loop that reminds users who have not completed
// today's check-in or check-out.
type Scheduler struct {
	sender     chat.Sender
	attendance *ledger.Attendance
	cfg        Config
	clock      func() time.Time

	mu    sync.Mutex
	state State
}

func New(sender chat.Sender, attendance *ledger.Attendance, cfg Config) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = defaultTick
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{
		sender:     sender,
		attendance: attendance,
		cfg:        cfg,
		clock:      time.Now,
	}
}

// Run wakes every tick and evaluates both triggers. It returns when ctx is
// canceled; the trigger state is never mutated mid-fan-out, so shutdown can
// never leave a trigger half-fired.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("reminder: loop started (tick %s, timezone %s)", s.cfg.Tick, s.cfg.Location)
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("reminder: loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.clock().In(s.cfg.Location)
	hhmm := now.Format("15:04")
	today := now.Format(ledger.DateLayout)

	s.mu.Lock()
	fireMorning := hhmm == s.cfg.MorningAt && s.state.LastMorningDate != today
	if fireMorning {
		s.state.LastMorningDate = today
	}
	fireAfternoon := hhmm == s.cfg.AfternoonAt && s.state.LastAfternoonDate != today
	if fireAfternoon {
		s.state.LastAfternoonDate = today
	}
	s.mu.Unlock()

	if fireMorning {
		go s.remindMissingCheckIn(ctx, now)
	}
	if fireAfternoon {
		go s.remindMissingCheckOut(ctx, now)
	}
}

// FireNow runs both reminder fan-outs immediately, bypassing the time-of-day
// guards. The weekend skip still applies. Used by /remindtest.
func (s *Scheduler) FireNow(ctx context.Context) {
	now := s.clock().In(s.cfg.Location)
	s.remindMissingCheckIn(ctx, now)
	s.remindMissingCheckOut(ctx, now)
}

func (s *Scheduler) remindMissingCheckIn(ctx context.Context, now time.Time) {
	if isWeekend(now) {
		return
	}
	today := now.Format(ledger.DateLayout)
	status, err := s.attendance.Status(ctx, today)
	if err != nil {
		log.Printf("reminder: read ledger for %s: %v", today, err)
		return
	}
	missing := status.MissingCheckIn()
	log.Printf("reminder: %s, users %d, checked in %d, missing check-in %d",
		today, len(status.AllUsers), len(status.CheckedIn), len(missing))
	s.fanOut(ctx, missing, func(name string) string {
		return fmt.Sprintf("Ciao %s, ricorda di registrare l'ingresso 🔔", name)
	})
}

func (s *Scheduler) remindMissingCheckOut(ctx context.Context, now time.Time) {
	if isWeekend(now) {
		return
	}
	today := now.Format(ledger.DateLayout)
	status, err := s.attendance.Status(ctx, today)
	if err != nil {
		log.Printf("reminder: read ledger for %s: %v", today, err)
		return
	}
	missing := status.MissingCheckOut()
	log.Printf("reminder: %s, checked in %d, checked out %d, missing check-out %d",
		today, len(status.CheckedIn), len(status.CheckedOut), len(missing))
	s.fanOut(ctx, missing, func(name string) string {
		return fmt.Sprintf("Ciao %s, non dimenticare di registrare l'uscita! 🔔", name)
	})
}

// fanOut sends one reminder per user key as independent tasks: a failure or
// a malformed key affects only that recipient.
func (s *Scheduler) fanOut(ctx context.Context, userKeys []string, text func(name string) string) {
	var wg sync.WaitGroup
	for _, key := range userKeys {
		name, id, ok := ledger.SplitUserKey(key)
		if !ok {
			log.Printf("reminder: malformed user key %q", key)
			continue
		}
		wg.Add(1)
		go func(name string, id int64) {
			defer wg.Done()
			if err := s.sender.SendMessage(ctx, id, text(name), nil); err != nil {
				log.Printf("reminder: send to %d: %v", id, err)
				return
			}
			log.Printf("reminder: sent to %d", id)
		}(name, id)
	}
	wg.Wait()
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}
