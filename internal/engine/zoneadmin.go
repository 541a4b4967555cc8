package engine

import (
	"context"
	"strings"

	"presencebot/internal/chat"
	"presencebot/internal/geo"
)

// Zone administration: creation via /addzone (location then name), listing
// via /listzones with an inline select/rename/delete flow. Every entry point
// checks the admin allowlist; non-admins get an immediate rejection and no
// state change.

func (e *Engine) startZoneCreation(ctx context.Context, chatID, userID int64) error {
	if !e.opts.IsAdmin(userID) {
		return e.sender.SendMessage(ctx, chatID, msgNotAuthorized, nil)
	}
	e.setState(userID, awaitingZoneLocation{})
	return e.sender.SendMessage(ctx, chatID, msgSendZoneLocation, &chat.SendOptions{ReplyKeyboard: locationRequestKeyboard()})
}

func (e *Engine) sendZoneList(ctx context.Context, chatID, userID int64) error {
	if !e.opts.IsAdmin(userID) {
		return e.sender.SendMessage(ctx, chatID, msgNotAuthorized, nil)
	}
	return e.sender.SendMessage(ctx, chatID, msgZoneList, &chat.SendOptions{InlineKeyboard: zoneListMarkup(e.zones.Dynamic())})
}

func (e *Engine) handleZoneCallback(ctx context.Context, cb *chat.CallbackQuery) error {
	if cb.Message == nil {
		return nil
	}
	userID := cb.From.ID
	if !e.opts.IsAdmin(userID) {
		return nil
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	switch {
	case strings.HasPrefix(cb.Data, zoneSelectPrefix):
		name := strings.TrimPrefix(cb.Data, zoneSelectPrefix)
		zone, ok := e.zones.Find(name)
		if !ok {
			return e.sender.EditMessageText(ctx, chatID, messageID, msgZoneUnknown, zoneListMarkup(e.zones.Dynamic()))
		}
		return e.sender.EditMessageText(ctx, chatID, messageID, zoneDetailText(zone), zoneDetailMarkup(name))

	case strings.HasPrefix(cb.Data, zoneEditPrefix):
		name := strings.TrimPrefix(cb.Data, zoneEditPrefix)
		if _, ok := e.zones.Find(name); !ok {
			return e.sender.EditMessageText(ctx, chatID, messageID, msgZoneUnknown, zoneListMarkup(e.zones.Dynamic()))
		}
		e.setState(userID, awaitingZoneRename{zoneName: name})
		return e.sender.EditMessageText(ctx, chatID, messageID, "Scrivi il nuovo nome per la zona "+name+":", nil)

	case strings.HasPrefix(cb.Data, zoneConfirmPrefix):
		name := strings.TrimPrefix(cb.Data, zoneConfirmPrefix)
		deleted, err := e.zones.Delete(ctx, name)
		if err != nil {
			return e.reportFailure(ctx, chatID, err)
		}
		text := msgZoneDeleted
		if !deleted {
			text = msgZoneUnknown
		}
		return e.sender.EditMessageText(ctx, chatID, messageID, text+"\n\n"+msgZoneList, zoneListMarkup(e.zones.Dynamic()))

	case strings.HasPrefix(cb.Data, zoneDeletePrefix):
		name := strings.TrimPrefix(cb.Data, zoneDeletePrefix)
		return e.sender.EditMessageText(ctx, chatID, messageID, "Eliminare la zona "+name+"?", zoneDeleteConfirmMarkup(name))

	case cb.Data == zoneAddNewToken:
		return e.startZoneCreation(ctx, chatID, userID)

	case cb.Data == zoneBackToken:
		e.setState(userID, nil)
		return e.sender.EditMessageText(ctx, chatID, messageID, msgZoneList, zoneListMarkup(e.zones.Dynamic()))

	default:
		return nil
	}
}

func zoneFromDraft(name string, draft awaitingZoneName) geo.Zone {
	return geo.Zone{Name: name, Lat: draft.lat, Lon: draft.lon}
}
