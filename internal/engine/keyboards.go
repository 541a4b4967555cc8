package engine

import (
	"fmt"

	"presencebot/internal/calendarui"
	"presencebot/internal/chat"
	"presencebot/internal/geo"
)

// Menu button labels. These are free-text reply-keyboard labels, not slash
// commands; the engine recognizes them verbatim.
const (
	menuCheckIn  = "🕓 Ingresso"
	menuCheckOut = "🚪 Uscita"
	menuLeave    = "📝 Richiesta permessi"
	menuSummary  = "📄 Riepilogo"
)

// Zone administration callback tokens.
const (
	zoneSelectPrefix  = "zone_select:"
	zoneEditPrefix    = "zone_edit:"
	zoneDeletePrefix  = "zone_delete:"
	zoneConfirmPrefix = "zone_confirm_delete:"
	zoneAddNewToken   = "zone_add_new"
	zoneBackToken     = "zone_back"
)

func mainMenu() *chat.ReplyKeyboardMarkup {
	return &chat.ReplyKeyboardMarkup{
		Keyboard: [][]chat.KeyboardButton{
			{{Text: menuCheckIn}},
			{{Text: menuCheckOut}},
			{{Text: menuLeave}},
			{{Text: menuSummary}},
		},
		ResizeKeyboard: true,
	}
}

func locationRequestKeyboard() *chat.ReplyKeyboardMarkup {
	return &chat.ReplyKeyboardMarkup{
		Keyboard: [][]chat.KeyboardButton{
			{{Text: "📍 Invia posizione", RequestLocation: true}},
		},
		ResizeKeyboard: true,
	}
}

// calendarMarkup lays a calendar grid out as inline keyboard rows: title,
// weekday header, six week rows, navigation arrows.
func calendarMarkup(g calendarui.Grid) *chat.InlineKeyboardMarkup {
	rows := make([][]chat.InlineKeyboardButton, 0, 9)
	rows = append(rows, []chat.InlineKeyboardButton{{Text: g.Title.Label, CallbackData: g.Title.Data}})

	header := make([]chat.InlineKeyboardButton, 7)
	for i, cell := range g.Weekdays {
		header[i] = chat.InlineKeyboardButton{Text: cell.Label, CallbackData: cell.Data}
	}
	rows = append(rows, header)

	for _, week := range g.Weeks {
		row := make([]chat.InlineKeyboardButton, 7)
		for i, cell := range week {
			row[i] = chat.InlineKeyboardButton{Text: cell.Label, CallbackData: cell.Data}
		}
		rows = append(rows, row)
	}

	rows = append(rows, []chat.InlineKeyboardButton{
		{Text: g.Nav[0].Label, CallbackData: g.Nav[0].Data},
		{Text: g.Nav[1].Label, CallbackData: g.Nav[1].Data},
	})
	return &chat.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func zoneListMarkup(zones []geo.Zone) *chat.InlineKeyboardMarkup {
	rows := make([][]chat.InlineKeyboardButton, 0, len(zones)+1)
	for _, z := range zones {
		rows = append(rows, []chat.InlineKeyboardButton{
			{Text: z.Name, CallbackData: zoneSelectPrefix + z.Name},
		})
	}
	rows = append(rows, []chat.InlineKeyboardButton{
		{Text: "➕ Aggiungi zona", CallbackData: zoneAddNewToken},
	})
	return &chat.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func zoneDetailMarkup(name string) *chat.InlineKeyboardMarkup {
	return &chat.InlineKeyboardMarkup{InlineKeyboard: [][]chat.InlineKeyboardButton{
		{
			{Text: "✏️ Rinomina", CallbackData: zoneEditPrefix + name},
			{Text: "🗑 Elimina", CallbackData: zoneDeletePrefix + name},
		},
		{
			{Text: "⬅️ Indietro", CallbackData: zoneBackToken},
		},
	}}
}

func zoneDeleteConfirmMarkup(name string) *chat.InlineKeyboardMarkup {
	return &chat.InlineKeyboardMarkup{InlineKeyboard: [][]chat.InlineKeyboardButton{
		{
			{Text: "✅ Conferma", CallbackData: zoneConfirmPrefix + name},
			{Text: "⬅️ Annulla", CallbackData: zoneBackToken},
		},
	}}
}

func zoneDetailText(z geo.Zone) string {
	return fmt.Sprintf("Zona: %s\nLat: %.6f\nLon: %.6f\nRaggio: %.0f m", z.Name, z.Lat, z.Lon, z.RadiusMeters)
}
