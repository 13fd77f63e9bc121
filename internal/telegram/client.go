package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"sector_dashboard/internal/logger"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Button represents an inline keyboard button.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Client talks to one bot and one authorized chat.
type Client struct {
	token   string
	chatID  string
	baseURL string
	http    *http.Client

	// PollTimeout is the long-poll wait passed to getUpdates.
	PollTimeout time.Duration
	// RetryDelay is the pause after a failed poll.
	RetryDelay time.Duration
}

// NewClient returns a client for token that only talks to chatID.
func NewClient(token, chatID string) *Client {
	return &Client{
		token:       token,
		chatID:      strings.TrimSpace(chatID),
		baseURL:     DefaultBaseURL,
		http:        &http.Client{Timeout: 90 * time.Second},
		PollTimeout: 60 * time.Second,
		RetryDelay:  5 * time.Second,
	}
}

// WithBaseURL points the client at another Bot API server.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// Enabled reports whether credentials are present.
func (c *Client) Enabled() bool {
	return c != nil && c.token != "" && c.chatID != ""
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

type apiResponse struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// call posts payload to a Bot API method and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("telegram %s: decode (status %s): %w", method, resp.Status, err)
	}
	if !result.Ok {
		return fmt.Errorf("telegram %s: %s (code %d)", method, result.Description, result.ErrorCode)
	}
	if out != nil {
		return json.Unmarshal(result.Result, out)
	}
	return nil
}

// Notify sends a message to the configured Telegram chat.
func (c *Client) Notify(ctx context.Context, text string) error {
	if !c.Enabled() {
		log.Println("Warning: Telegram credentials missing, skipping notification")
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	logger.Debugf("Telegram Notify: %s", text)

	return c.call(ctx, "sendMessage", map[string]string{
		"chat_id":    c.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}, nil)
}

// SendInteractiveMessage sends a message with one row of inline buttons.
func (c *Client) SendInteractiveMessage(ctx context.Context, text string, buttons []Button) error {
	if !c.Enabled() {
		return nil
	}
	payload := map[string]any{
		"chat_id":    c.chatID,
		"text":       text,
		"parse_mode": "Markdown",
		"reply_markup": map[string]any{
			"inline_keyboard": [][]Button{buttons},
		},
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

// AnswerCallback acknowledges a button press so the client stops its spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	payload := map[string]string{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}
