package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// DefaultAPIURL is the production Bot API endpoint. Tests point the client
// at an httptest server instead.
const DefaultAPIURL = "https://api.telegram.org"

// Bot selects which bot identity a call is made as. Tokens are looked up
// per call, never held as a package-level value.
type Bot string

const (
	BotMain Bot = "main"
	BotTest Bot = "test"
)

// TokenSource resolves the bot token for an identity.
type TokenSource interface {
	Token(ctx context.Context, bot Bot) (string, error)
}

// APIError is a non-ok response from the Bot API.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: api error %d: %s", e.StatusCode, e.Description)
}

// InlineKeyboardButton is one button of an inline keyboard row.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// InlineKeyboardMarkup is the reply_markup attached to a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// Message is an outbound sendMessage request.
type Message struct {
	ChatID      int64                 `json:"chat_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// WebhookInfo mirrors the getWebhookInfo result fields we consume.
type WebhookInfo struct {
	URL                  string `json:"url"`
	PendingUpdateCount   int    `json:"pending_update_count"`
	LastErrorMessage     string `json:"last_error_message"`
	MaxConnections       int    `json:"max_connections"`
	HasCustomCertificate bool   `json:"has_custom_certificate"`
}

// Client wraps the Telegram Bot HTTP API. One outbound request per call,
// no internal retry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
}

func NewClient(tokens TokenSource, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		tokens:     tokens,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (c *Client) call(ctx context.Context, bot Bot, method string, body any, result any) error {
	token, err := c.tokens.Token(ctx, bot)
	if err != nil {
		return errors.Wrap(err, "telegram: resolve token")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrapf(err, "telegram: marshal %s", method)
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "telegram: build %s request", method)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "telegram: %s", method)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return errors.Wrapf(err, "telegram: decode %s response", method)
	}
	if !api.OK {
		return &APIError{StatusCode: resp.StatusCode, Description: api.Description}
	}
	if result != nil {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return errors.Wrapf(err, "telegram: decode %s result", method)
		}
	}
	return nil
}

// SendMessage delivers msg and returns the Telegram message id, which
// callers use to correlate later edits and callback replies.
func (c *Client) SendMessage(ctx context.Context, bot Bot, msg Message) (int64, error) {
	var res struct {
		MessageID int64 `json:"message_id"`
	}
	if err := c.call(ctx, bot, "sendMessage", msg, &res); err != nil {
		return 0, err
	}
	return res.MessageID, nil
}

// AnswerCallbackQuery acknowledges an inline button press.
func (c *Client) AnswerCallbackQuery(ctx context.Context, bot Bot, queryID, text string) error {
	body := map[string]string{"callback_query_id": queryID}
	if text != "" {
		body["text"] = text
	}
	return c.call(ctx, bot, "answerCallbackQuery", body, nil)
}

// SetWebhook registers url as the update webhook for bot.
func (c *Client) SetWebhook(ctx context.Context, bot Bot, url string) error {
	return c.call(ctx, bot, "setWebhook", map[string]string{"url": url}, nil)
}

// DeleteWebhook removes the registered webhook.
func (c *Client) DeleteWebhook(ctx context.Context, bot Bot) error {
	return c.call(ctx, bot, "deleteWebhook", struct{}{}, nil)
}

// GetWebhookInfo reports the current webhook registration.
func (c *Client) GetWebhookInfo(ctx context.Context, bot Bot) (WebhookInfo, error) {
	var info WebhookInfo
	err := c.call(ctx, bot, "getWebhookInfo", struct{}{}, &info)
	return info, err
}
