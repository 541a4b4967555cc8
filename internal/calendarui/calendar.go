package calendarui

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Phases of the leave dialogue the calendar serves. The phase travels inside
// every callback token so navigation on the start-date picker can never leak
// into the end-date picker.
const (
	PhaseStart = "start"
	PhaseEnd   = "end"
)

// IgnoreToken marks cells that exist only for layout (title, weekday headers,
// blank padding). Handlers drop callbacks carrying it.
const IgnoreToken = "ignore"

const tokenPrefix = "perm"

var monthNames = [12]string{
	"Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno",
	"Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre",
}

var weekdayNames = [7]string{"Lu", "Ma", "Me", "Gi", "Ve", "Sa", "Do"}

// Cell is one button of the calendar widget.
type Cell struct {
	Label string
	Data  string
}

// Grid is the fixed-shape date-picker layout: a title row, a weekday header
// row, always exactly six week rows of seven day cells, and two navigation
// cells. The constant shape keeps the rendered widget identical across month
// transitions, which matters because the widget is edited in place.
type Grid struct {
	Title    Cell
	Weekdays [7]Cell
	Weeks    [6][7]Cell
	Nav      [2]Cell
}

// Build renders the grid for year/month. today controls the current-day
// marker and nothing else; passing the zero time marks no cell.
func Build(year int, month time.Month, phase string, today time.Time) Grid {
	var g Grid
	g.Title = Cell{Label: fmt.Sprintf("%s %d", monthNames[month-1], year), Data: IgnoreToken}
	for i, name := range weekdayNames {
		g.Weekdays[i] = Cell{Label: name, Data: IgnoreToken}
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	// Monday-first column index of the 1st of the month.
	offset := (int(first.Weekday()) + 6) % 7
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	for week := 0; week < 6; week++ {
		for col := 0; col < 7; col++ {
			day := week*7 + col - offset + 1
			if day < 1 || day > daysInMonth {
				g.Weeks[week][col] = Cell{Label: " ", Data: IgnoreToken}
				continue
			}
			label := strconv.Itoa(day)
			if day == today.Day() && month == today.Month() && year == today.Year() {
				label = "🔵" + label
			}
			g.Weeks[week][col] = Cell{
				Label: label,
				Data:  fmt.Sprintf("%s:%s:day:%d:%d:%d", tokenPrefix, phase, year, int(month), day),
			}
		}
	}

	g.Nav[0] = Cell{Label: "◀️", Data: fmt.Sprintf("%s:%s:nav:%d:%d:prev", tokenPrefix, phase, year, int(month))}
	g.Nav[1] = Cell{Label: "▶️", Data: fmt.Sprintf("%s:%s:nav:%d:%d:next", tokenPrefix, phase, year, int(month))}
	return g
}

// Navigate applies a prev/next step with month and year rollover.
func Navigate(year int, month time.Month, direction string) (int, time.Month) {
	switch direction {
	case "prev":
		if month == time.January {
			return year - 1, time.December
		}
		return year, month - 1
	default:
		if month == time.December {
			return year + 1, time.January
		}
		return year, month + 1
	}
}

// Token is a parsed calendar callback.
type Token struct {
	Phase     string
	Kind      string // "day" or "nav"
	Year      int
	Month     time.Month
	Day       int    // set for day tokens
	Direction string // set for nav tokens
}

// Selected formats the picked date as yyyy-mm-dd.
func (t Token) Selected() string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year, int(t.Month), t.Day)
}

// IsCalendarToken reports whether data belongs to the calendar grammar.
func IsCalendarToken(data string) bool {
	return strings.HasPrefix(data, tokenPrefix+":")
}

// ParseToken decodes perm:<phase>:<kind>:<year>:<month>:<day-or-direction>.
func ParseToken(data string) (Token, bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 6 || parts[0] != tokenPrefix {
		return Token{}, false
	}
	tok := Token{Phase: parts[1], Kind: parts[2]}
	if tok.Phase != PhaseStart && tok.Phase != PhaseEnd {
		return Token{}, false
	}

	year, err := strconv.Atoi(parts[3])
	if err != nil {
		return Token{}, false
	}
	month, err := strconv.Atoi(parts[4])
	if err != nil || month < 1 || month > 12 {
		return Token{}, false
	}
	tok.Year = year
	tok.Month = time.Month(month)

	switch tok.Kind {
	case "day":
		day, err := strconv.Atoi(parts[5])
		if err != nil || day < 1 || day > 31 {
			return Token{}, false
		}
		tok.Day = day
	case "nav":
		if parts[5] != "prev" && parts[5] != "next" {
			return Token{}, false
		}
		tok.Direction = parts[5]
	default:
		return Token{}, false
	}
	return tok, true
}
