package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"presencebot/internal/calendarui"
	"presencebot/internal/chat"
	"presencebot/internal/ledger"
)

const (
	msgWelcome           = "Benvenuto! Scegli un'opzione:"
	msgSendCheckInLoc    = "Invia la tua posizione per registrare l'ingresso:"
	msgSendCheckOutLoc   = "Invia la tua posizione per registrare l'uscita:"
	msgCheckInDone       = "✅ Ingresso registrato!"
	msgCheckInDuplicate  = "❌ Ingresso già registrato per oggi."
	msgCheckOutDone      = "✅ Uscita registrata!"
	msgCheckOutNoEntry   = "❌ Nessun ingresso trovato per oggi."
	msgUnauthorizedPlace = "❌ Non sei in un luogo autorizzato."
	msgPickStartDate     = "📅 Seleziona data di inizio:"
	msgLeaveDone         = "✅ Permesso registrato!"
	msgLeaveBadRange     = "❌ La data di fine precede la data di inizio."
	msgSummaryEmpty      = "❌ Nessun dato trovato nel tuo registro."
	msgSummarySent       = "✅ Riepilogo inviato!"
	msgGenericFailure    = "⚠️ Si è verificato un errore, riprova più tardi."
	msgNotAuthorized     = "❌ Non sei autorizzato."
	msgSendZoneLocation  = "📍 Invia la posizione della nuova zona:"
	msgAskZoneName       = "Ora scrivi il nome della zona:"
	msgZoneAdded         = "✅ Zona aggiunta!"
	msgZoneRenamed       = "✅ Zona rinominata!"
	msgZoneDeleted       = "✅ Zona eliminata."
	msgZoneUnknown       = "❌ Zona non trovata."
	msgZoneList          = "Zone configurate:"
	msgRemindTest        = "Eseguo test reminder (ingresso + uscita)."
)

// Options carries the injectable collaborators of the engine.
type Options struct {
	IsAdmin func(userID int64) bool
	Clock   func() time.Time
	// ForceReminders is invoked by /remindtest; nil disables the command.
	ForceReminders func(ctx context.Context)
}

// Engine is the per-user conversation state machine. It owns the transient
// dialogue state and drives the geofence resolver, the attendance ledger,
// the leave log, and the zone registry. Dialogues of different users are
// fully independent.
type Engine struct {
	sender     chat.Sender
	zones      *ledger.ZoneRegistry
	attendance *ledger.Attendance
	leave      *ledger.LeaveLog
	opts       Options

	mu     sync.Mutex
	states map[int64]userState
}

func New(sender chat.Sender, zones *ledger.ZoneRegistry, attendance *ledger.Attendance, leave *ledger.LeaveLog, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.IsAdmin == nil {
		opts.IsAdmin = func(int64) bool { return false }
	}
	return &Engine{
		sender:     sender,
		zones:      zones,
		attendance: attendance,
		leave:      leave,
		opts:       opts,
		states:     make(map[int64]userState),
	}
}

func (e *Engine) state(userID int64) userState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[userID]
}

func (e *Engine) setState(userID int64, s userState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s == nil {
		delete(e.states, userID)
		return
	}
	e.states[userID] = s
}

// HandleUpdate processes one inbound transport event. Events the engine has
// no state or handler for are ignored. Returned errors are for the ingress
// to log; every failure has already been converted into a user-facing
// outcome where one applies.
func (e *Engine) HandleUpdate(ctx context.Context, upd chat.Update) error {
	switch {
	case upd.CallbackQuery != nil:
		return e.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		return e.handleMessage(ctx, upd.Message)
	default:
		return nil
	}
}

func (e *Engine) handleMessage(ctx context.Context, msg *chat.Message) error {
	if msg.From == nil {
		return nil
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	userKey := ledger.UserKey(msg.From.FullName(), userID)

	if msg.Location != nil {
		return e.handleLocation(ctx, msg, userKey)
	}

	// Recognized commands and menu labels always win over a pending dialogue,
	// mirroring how the transport's command layer dispatches.
	switch strings.TrimSpace(msg.Text) {
	case "/start":
		e.setState(userID, nil)
		return e.sender.SendMessage(ctx, chatID, msgWelcome, &chat.SendOptions{ReplyKeyboard: mainMenu()})
	case menuCheckIn:
		e.setState(userID, awaitingCheckInLocation{})
		return e.sender.SendMessage(ctx, chatID, msgSendCheckInLoc, &chat.SendOptions{ReplyKeyboard: locationRequestKeyboard()})
	case menuCheckOut:
		e.setState(userID, awaitingCheckOutLocation{})
		return e.sender.SendMessage(ctx, chatID, msgSendCheckOutLoc, &chat.SendOptions{ReplyKeyboard: locationRequestKeyboard()})
	case menuLeave:
		e.setState(userID, awaitingLeaveStart{})
		now := e.opts.Clock()
		grid := calendarui.Build(now.Year(), now.Month(), calendarui.PhaseStart, now)
		return e.sender.SendMessage(ctx, chatID, msgPickStartDate, &chat.SendOptions{InlineKeyboard: calendarMarkup(grid)})
	case menuSummary:
		return e.sendSummary(ctx, chatID, userKey)
	case "/remindtest":
		return e.handleRemindTest(ctx, chatID)
	case "/addzone":
		return e.startZoneCreation(ctx, chatID, userID)
	case "/listzones":
		return e.sendZoneList(ctx, chatID, userID)
	}

	return e.handleFreeText(ctx, msg, userKey)
}

func (e *Engine) handleLocation(ctx context.Context, msg *chat.Message, userKey string) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	loc := msg.Location

	switch e.state(userID).(type) {
	case awaitingCheckInLocation:
		e.setState(userID, nil)
		zoneName, ok := e.zones.Resolve(loc.Latitude, loc.Longitude)
		if !ok {
			return e.sender.SendMessage(ctx, chatID, msgUnauthorizedPlace, &chat.SendOptions{ReplyKeyboard: mainMenu()})
		}
		recorded, err := e.attendance.CheckIn(ctx, userKey, zoneName)
		if err != nil {
			return e.reportFailure(ctx, chatID, fmt.Errorf("check-in for %s: %w", userKey, err))
		}
		if recorded {
			return e.sender.SendMessage(ctx, chatID, msgCheckInDone, &chat.SendOptions{ReplyKeyboard: mainMenu()})
		}
		return e.sender.SendMessage(ctx, chatID, msgCheckInDuplicate, &chat.SendOptions{ReplyKeyboard: mainMenu()})

	case awaitingCheckOutLocation:
		e.setState(userID, nil)
		zoneName, ok := e.zones.Resolve(loc.Latitude, loc.Longitude)
		if !ok {
			return e.sender.SendMessage(ctx, chatID, msgUnauthorizedPlace, &chat.SendOptions{ReplyKeyboard: mainMenu()})
		}
		recorded, err := e.attendance.CheckOut(ctx, userKey, zoneName)
		if err != nil {
			return e.reportFailure(ctx, chatID, fmt.Errorf("check-out for %s: %w", userKey, err))
		}
		if recorded {
			return e.sender.SendMessage(ctx, chatID, msgCheckOutDone, &chat.SendOptions{ReplyKeyboard: mainMenu()})
		}
		return e.sender.SendMessage(ctx, chatID, msgCheckOutNoEntry, &chat.SendOptions{ReplyKeyboard: mainMenu()})

	case awaitingZoneLocation:
		if !e.opts.IsAdmin(userID) {
			e.setState(userID, nil)
			return nil
		}
		e.setState(userID, awaitingZoneName{lat: loc.Latitude, lon: loc.Longitude})
		return e.sender.SendMessage(ctx, chatID, msgAskZoneName, &chat.SendOptions{ReplyKeyboard: mainMenu()})

	default:
		// Location with no awaiting state: not ours to handle.
		return nil
	}
}

func (e *Engine) handleFreeText(ctx context.Context, msg *chat.Message, userKey string) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch st := e.state(userID).(type) {
	case awaitingLeaveReason:
		e.setState(userID, nil)
		recorded, err := e.leave.Submit(ctx, userKey, st.startDate, st.endDate, text)
		if err != nil {
			return e.reportFailure(ctx, chatID, fmt.Errorf("leave request for %s: %w", userKey, err))
		}
		if recorded {
			return e.sender.SendMessage(ctx, chatID, msgLeaveDone, &chat.SendOptions{ReplyKeyboard: mainMenu()})
		}
		return e.sender.SendMessage(ctx, chatID, msgLeaveBadRange, &chat.SendOptions{ReplyKeyboard: mainMenu()})

	case awaitingZoneName:
		e.setState(userID, nil)
		if !e.opts.IsAdmin(userID) {
			return nil
		}
		if err := e.zones.Add(ctx, zoneFromDraft(text, st)); err != nil {
			return e.sender.SendMessage(ctx, chatID, "❌ "+err.Error(), &chat.SendOptions{ReplyKeyboard: mainMenu()})
		}
		return e.sender.SendMessage(ctx, chatID, msgZoneAdded, &chat.SendOptions{ReplyKeyboard: mainMenu()})

	case awaitingZoneRename:
		e.setState(userID, nil)
		if !e.opts.IsAdmin(userID) {
			return nil
		}
		renamed, err := e.zones.Rename(ctx, st.zoneName, text)
		if err != nil {
			return e.sender.SendMessage(ctx, chatID, "❌ "+err.Error(), &chat.SendOptions{ReplyKeyboard: mainMenu()})
		}
		if !renamed {
			return e.sender.SendMessage(ctx, chatID, msgZoneUnknown, &chat.SendOptions{ReplyKeyboard: mainMenu()})
		}
		return e.sender.SendMessage(ctx, chatID, msgZoneRenamed, &chat.SendOptions{ReplyKeyboard: mainMenu()})

	default:
		// No matching state or handler: leave it to the surrounding layer.
		return nil
	}
}

func (e *Engine) handleCallback(ctx context.Context, cb *chat.CallbackQuery) error {
	// Always acknowledge so the client stops its spinner, regardless of what
	// the payload turns out to be.
	defer func() {
		if err := e.sender.AnswerCallbackQuery(ctx, cb.ID); err != nil {
			log.Printf("answer callback %s: %v", cb.ID, err)
		}
	}()

	if calendarui.IsCalendarToken(cb.Data) {
		return e.handleCalendarCallback(ctx, cb)
	}
	if strings.HasPrefix(cb.Data, "zone_") {
		return e.handleZoneCallback(ctx, cb)
	}
	return nil
}

func (e *Engine) handleCalendarCallback(ctx context.Context, cb *chat.CallbackQuery) error {
	tok, ok := calendarui.ParseToken(cb.Data)
	if !ok || cb.Message == nil {
		return nil
	}
	userID := cb.From.ID
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	if tok.Kind == "nav" {
		year, month := calendarui.Navigate(tok.Year, tok.Month, tok.Direction)
		grid := calendarui.Build(year, month, tok.Phase, e.opts.Clock())
		return e.sender.EditMessageReplyMarkup(ctx, chatID, messageID, calendarMarkup(grid))
	}

	switch st := e.state(userID).(type) {
	case awaitingLeaveStart:
		if tok.Phase != calendarui.PhaseStart {
			e.setState(userID, nil)
			return nil
		}
		selected := tok.Selected()
		e.setState(userID, awaitingLeaveEnd{startDate: selected})
		grid := calendarui.Build(tok.Year, tok.Month, calendarui.PhaseEnd, e.opts.Clock())
		text := fmt.Sprintf("📅 Inizio selezionato: %s\nSeleziona la data di fine:", selected)
		return e.sender.EditMessageText(ctx, chatID, messageID, text, calendarMarkup(grid))

	case awaitingLeaveEnd:
		if tok.Phase != calendarui.PhaseEnd {
			e.setState(userID, nil)
			return nil
		}
		selected := tok.Selected()
		e.setState(userID, awaitingLeaveReason{startDate: st.startDate, endDate: selected})
		text := fmt.Sprintf("📅 Fine selezionata: %s\nOra scrivi il motivo del permesso:", selected)
		return e.sender.EditMessageText(ctx, chatID, messageID, text, nil)

	default:
		// Stale calendar (dialogue already finished elsewhere): ignore.
		return nil
	}
}

func (e *Engine) sendSummary(ctx context.Context, chatID int64, userKey string) error {
	records, err := e.attendance.Summarize(ctx, userKey)
	if err != nil {
		return e.reportFailure(ctx, chatID, fmt.Errorf("summarize %s: %w", userKey, err))
	}
	leaves, err := e.leave.ForUser(ctx, userKey)
	if err != nil {
		return e.reportFailure(ctx, chatID, fmt.Errorf("leave history for %s: %w", userKey, err))
	}
	if len(records) == 0 && len(leaves) == 0 {
		return e.sender.SendMessage(ctx, chatID, msgSummaryEmpty, &chat.SendOptions{ReplyKeyboard: mainMenu()})
	}

	content, err := summaryCSV(records, leaves)
	if err != nil {
		return e.reportFailure(ctx, chatID, fmt.Errorf("render summary for %s: %w", userKey, err))
	}
	if err := e.sender.SendDocument(ctx, chatID, "riepilogo_registro.csv", content, ""); err != nil {
		return e.reportFailure(ctx, chatID, fmt.Errorf("send summary to %d: %w", chatID, err))
	}
	return e.sender.SendMessage(ctx, chatID, msgSummarySent, &chat.SendOptions{ReplyKeyboard: mainMenu()})
}

// summaryCSV renders the attendance rows and, below a separating blank line,
// the user's leave requests.
func summaryCSV(records []ledger.AttendanceRecord, leaves []ledger.LeaveRequest) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"Date", "UserKey", "CheckInTime", "CheckInZone", "CheckOutTime", "CheckOutZone"}); err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := []string{rec.Date, rec.UserKey, rec.CheckInTime, rec.CheckInZone, rec.CheckOutTime, rec.CheckOutZone}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	if len(leaves) > 0 {
		if err := writer.Write([]string{""}); err != nil {
			return nil, err
		}
		if err := writer.Write([]string{"RequestedAt", "StartDate", "EndDate", "Reason"}); err != nil {
			return nil, err
		}
		for _, req := range leaves {
			if err := writer.Write([]string{req.RequestedAt, req.StartDate, req.EndDate, req.Reason}); err != nil {
				return nil, err
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Engine) handleRemindTest(ctx context.Context, chatID int64) error {
	if e.opts.ForceReminders == nil {
		return nil
	}
	if err := e.sender.SendMessage(ctx, chatID, msgRemindTest, nil); err != nil {
		return err
	}
	go e.opts.ForceReminders(context.WithoutCancel(ctx))
	return nil
}

// reportFailure logs the underlying error and tells the user something went
// wrong, without leaking internals. The error propagates for ingress logging.
func (e *Engine) reportFailure(ctx context.Context, chatID int64, err error) error {
	log.Printf("engine: %v", err)
	if sendErr := e.sender.SendMessage(ctx, chatID, msgGenericFailure, &chat.SendOptions{ReplyKeyboard: mainMenu()}); sendErr != nil {
		log.Printf("engine: report failure to %d: %v", chatID, sendErr)
	}
	return err
}
