package telegram

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"
)

// Chat identifies where a message came from.
type Chat struct {
	ID int64 `json:"id"`
}

// User is the sender of a message or button press.
type User struct {
	Username string `json:"username"`
}

// Message is the subset of a Telegram message the bot reads.
type Message struct {
	Text string `json:"text"`
	Chat Chat   `json:"chat"`
	From User   `json:"from"`
}

// CallbackQuery is an inline button press.
type CallbackQuery struct {
	ID      string   `json:"id"`
	Data    string   `json:"data"`
	From    User     `json:"from"`
	Message *Message `json:"message"`
}

// Update represents a Telegram Update object (partial schema)
type Update struct {
	UpdateID      int            `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

// CommandHandler processes a slash command and returns the reply text.
type CommandHandler func(ctx context.Context, command string) string

// CallbackHandler processes a button press and returns the reply text.
type CallbackHandler func(ctx context.Context, callbackID, data string) string

// StartListener long-polls for updates until ctx is cancelled. Messages from
// any chat other than the configured one are logged and dropped.
func (c *Client) StartListener(ctx context.Context, onCommand CommandHandler, onCallback CallbackHandler) error {
	if !c.Enabled() {
		log.Println("Telegram Listener: Credentials missing, disabled.")
		return nil
	}
	authChatID, err := strconv.ParseInt(c.chatID, 10, 64)
	if err != nil {
		return errors.New("telegram chat id must be numeric: " + c.chatID)
	}

	offset := 0
	log.Println("Telegram Listener: Started")

	for {
		if ctx.Err() != nil {
			log.Println("Telegram Listener: Stopped")
			return nil
		}

		var updates []Update
		err := c.call(ctx, "getUpdates", map[string]any{
			"offset":          offset,
			"timeout":         int(c.PollTimeout / time.Second),
			"allowed_updates": []string{"message", "callback_query"},
		}, &updates)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("Telegram Listener Error: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.RetryDelay):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			c.dispatch(ctx, authChatID, update, onCommand, onCallback)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, authChatID int64, update Update, onCommand CommandHandler, onCallback CallbackHandler) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil || cb.Message.Chat.ID != authChatID {
			log.Printf("⚠️ UNAUTHORIZED CALLBACK: User %s tried: %s", cb.From.Username, cb.Data)
			return
		}
		if onCallback == nil {
			return
		}
		log.Printf("Callback received: %s", cb.Data)
		reply := onCallback(ctx, cb.ID, cb.Data)
		if err := c.AnswerCallback(ctx, cb.ID, ""); err != nil {
			log.Printf("Telegram answerCallbackQuery failed: %v", err)
		}
		c.reply(ctx, reply)

	case update.Message != nil:
		msg := update.Message
		// Access Control
		if msg.Chat.ID != authChatID {
			log.Printf("⚠️ UNAUTHORIZED ACCESS ATTEMPT: User %s (ID: %d) tried: %s",
				msg.From.Username, msg.Chat.ID, msg.Text)
			// No reply, so the bot's existence is not leaked.
			return
		}
		text := strings.TrimSpace(msg.Text)
		if !strings.HasPrefix(text, "/") || onCommand == nil {
			return
		}
		log.Printf("Command received: %s", text)
		c.reply(ctx, onCommand(ctx, text))
	}
}

func (c *Client) reply(ctx context.Context, text string) {
	if text == "" {
		return
	}
	if err := c.Notify(ctx, text); err != nil {
		log.Printf("Telegram Alert Failed: %v", err)
	}
}
