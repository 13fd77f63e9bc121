package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeBotAPI struct {
	mu       sync.Mutex
	polls    int
	sent     chan map[string]any
	answered []string
	updates  string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var payload map[string]any
	json.Unmarshal(body, &payload)

	switch {
	case strings.HasSuffix(r.URL.Path, "/getUpdates"):
		f.mu.Lock()
		f.polls++
		first := f.polls == 1
		f.mu.Unlock()
		if first {
			io.WriteString(w, `{"ok":true,"result":`+f.updates+`}`)
			return
		}
		time.Sleep(10 * time.Millisecond)
		io.WriteString(w, `{"ok":true,"result":[]}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		f.sent <- payload
		io.WriteString(w, `{"ok":true,"result":{}}`)
	case strings.HasSuffix(r.URL.Path, "/answerCallbackQuery"):
		f.mu.Lock()
		f.answered = append(f.answered, payload["callback_query_id"].(string))
		f.mu.Unlock()
		io.WriteString(w, `{"ok":true,"result":true}`)
	default:
		http.NotFound(w, r)
	}
}

func TestListenerDispatchesAuthorizedUpdates(t *testing.T) {
	api := &fakeBotAPI{
		sent: make(chan map[string]any, 10),
		updates: `[
			{"update_id": 1, "message": {"text": "/sectors", "chat": {"id": 42}, "from": {"username": "owner"}}},
			{"update_id": 2, "message": {"text": "/sectors", "chat": {"id": 7}, "from": {"username": "stranger"}}},
			{"update_id": 3, "message": {"text": "hello", "chat": {"id": 42}}},
			{"update_id": 4, "callback_query": {"id": "cb-1", "data": "CONFIRM_DEL_1", "message": {"chat": {"id": 42}}}}
		]`,
	}
	srv := httptest.NewServer(api)
	defer srv.Close()

	client := NewClient("TOKEN", "42").WithBaseURL(srv.URL)
	client.PollTimeout = 0
	client.RetryDelay = time.Millisecond

	var commands, callbacks []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- client.StartListener(ctx,
			func(_ context.Context, cmd string) string {
				commands = append(commands, cmd)
				return "tree"
			},
			func(_ context.Context, id, data string) string {
				callbacks = append(callbacks, id+":"+data)
				return "deleted"
			})
	}()

	var texts []string
	for len(texts) < 2 {
		select {
		case msg := <-api.sent:
			texts = append(texts, msg["text"].(string))
			if msg["chat_id"] != "42" {
				t.Errorf("reply went to chat %v", msg["chat_id"])
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for replies, got %v", texts)
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("StartListener returned %v", err)
	}

	if len(commands) != 1 || commands[0] != "/sectors" {
		t.Errorf("commands: %v", commands)
	}
	if len(callbacks) != 1 || callbacks[0] != "cb-1:CONFIRM_DEL_1" {
		t.Errorf("callbacks: %v", callbacks)
	}
	if strings.Join(texts, ",") != "tree,deleted" {
		t.Errorf("replies: %v", texts)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.answered) != 1 || api.answered[0] != "cb-1" {
		t.Errorf("answered callbacks: %v", api.answered)
	}
}

func TestSendInteractiveMessage(t *testing.T) {
	api := &fakeBotAPI{sent: make(chan map[string]any, 1)}
	srv := httptest.NewServer(api)
	defer srv.Close()

	client := NewClient("TOKEN", "42").WithBaseURL(srv.URL)
	buttons := []Button{{Text: "✅ DELETE", CallbackData: "CONFIRM_DEL_1"}, {Text: "❌ CANCEL", CallbackData: "CANCEL_DEL_1"}}
	if err := client.SendInteractiveMessage(context.Background(), "Sure?", buttons); err != nil {
		t.Fatalf("SendInteractiveMessage failed: %v", err)
	}

	msg := <-api.sent
	markup := msg["reply_markup"].(map[string]any)
	rows := markup["inline_keyboard"].([]any)
	if len(rows) != 1 || len(rows[0].([]any)) != 2 {
		t.Errorf("unexpected keyboard: %v", markup)
	}
}

func TestAPIErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":false,"description":"Unauthorized","error_code":401}`)
	}))
	defer srv.Close()

	err := NewClient("BAD", "42").WithBaseURL(srv.URL).Notify(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "Unauthorized") {
		t.Errorf("got %v", err)
	}
}

func TestDisabledClientIsQuiet(t *testing.T) {
	c := NewClient("", "")
	if c.Enabled() {
		t.Fatal("client without credentials should be disabled")
	}
	if err := c.Notify(context.Background(), "hi"); err != nil {
		t.Errorf("Notify: %v", err)
	}
	if err := c.StartListener(context.Background(), nil, nil); err != nil {
		t.Errorf("StartListener: %v", err)
	}
}
