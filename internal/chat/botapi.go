package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// BotAPI is a thin HTTP client for the bot transport. Only the methods the
// core needs are implemented; everything else stays out.
type BotAPI struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewBotAPI(token string) *BotAPI {
	return &BotAPI{
		token:   token,
		baseURL: defaultAPIBase,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// NewBotAPIWithBase is used by tests to point the client at a local server.
func NewBotAPIWithBase(token, baseURL string) *BotAPI {
	api := NewBotAPI(token)
	api.baseURL = baseURL
	return api
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (b *BotAPI) SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if opts != nil && opts.ReplyKeyboard != nil {
		payload["reply_markup"] = opts.ReplyKeyboard
	}
	if opts != nil && opts.InlineKeyboard != nil {
		payload["reply_markup"] = opts.InlineKeyboard
	}
	return b.call(ctx, "sendMessage", payload)
}

func (b *BotAPI) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, markup *InlineKeyboardMarkup) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return b.call(ctx, "editMessageText", payload)
}

func (b *BotAPI) EditMessageReplyMarkup(ctx context.Context, chatID int64, messageID int, markup *InlineKeyboardMarkup) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return b.call(ctx, "editMessageReplyMarkup", payload)
}

func (b *BotAPI) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	return b.call(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": callbackID})
}

func (b *BotAPI) SendDocument(ctx context.Context, chatID int64, filename string, content []byte, caption string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return err
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(content); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.methodURL("sendDocument"), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return b.do(req, "sendDocument")
}

func (b *BotAPI) call(ctx context.Context, method string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode payload: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.methodURL(method), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, method)
}

func (b *BotAPI) do(req *http.Request, method string) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	var parsed apiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("%s: unexpected response (status %d)", method, resp.StatusCode)
	}
	if !parsed.OK {
		return fmt.Errorf("%s: transport rejected request: %s", method, parsed.Description)
	}
	return nil
}

func (b *BotAPI) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", b.baseURL, b.token, method)
}
