package linebot

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/orlabot/relay-server/chat"
)

// Handler answers the LINE webhook callback and relays message events
// through the dispatcher.
type Handler struct {
	Client     *Client
	Secret     string
	Dispatcher *chat.Dispatcher
}

func NewHandler(client *Client, secret string, d *chat.Dispatcher) *Handler {
	return &Handler{Client: client, Secret: secret, Dispatcher: d}
}

// callback is the webhook body: a batch of events.
type callback struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string  `json:"type"`
	ReplyToken string  `json:"replyToken"`
	Source     source  `json:"source"`
	Message    message `json:"message"`
}

type source struct {
	Type    string `json:"type"` // "user" | "group" | "room"
	UserID  string `json:"userId"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

type message struct {
	Type string `json:"type"` // "text" | "image"
	ID   string `json:"id"`
	Text string `json:"text,omitempty"`
}

// ValidateSignature checks the X-Line-Signature header: base64 of the
// HMAC-SHA256 of the raw body under the channel secret.
func ValidateSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ServeHTTP verifies the signature before touching the payload, acks, and
// processes each event in the background.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if !ValidateSignature(h.Secret, body, r.Header.Get("X-Line-Signature")) {
		slog.Warn("line webhook signature mismatch")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var cb callback
	if err := json.Unmarshal(body, &cb); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	w.Write([]byte("OK"))
	for _, ev := range cb.Events {
		go h.handleEvent(context.Background(), ev)
	}
}

// handleEvent normalizes one event, runs it through the dispatcher and
// delivers the reply with the event's single-use reply token.
func (h *Handler) handleEvent(ctx context.Context, ev webhookEvent) {
	if ev.Type != "message" || ev.Source.UserID == "" {
		return
	}
	// Group and room chats only answer explicit text commands; free-form
	// chatter and attachments in shared spaces are ignored.
	if ev.Source.Type != "user" && !(ev.Message.Type == "text" && chat.IsCommand(ev.Message.Text)) {
		return
	}

	msg := h.normalize(ev)
	msg.OnAdmit = func() {
		if err := h.Client.ShowLoading(ctx, ev.Source.UserID); err != nil {
			slog.Debug("line loading signal failed", "err", err)
		}
	}

	reply, ok := h.Dispatcher.Handle(ctx, msg)
	if !ok {
		return
	}
	if reply == "" {
		reply = "..."
	}

	// The reply token is single use: exactly one Reply call per event.
	if err := h.Client.Reply(ctx, ev.ReplyToken, reply); err != nil {
		slog.Error("line reply failed", "user", ev.Source.UserID, "err", err)
	}
}

func (h *Handler) normalize(ev webhookEvent) chat.Message {
	msg := chat.Message{
		UserID:   ev.Source.UserID,
		Platform: "line",
		Text:     ev.Message.Text,
		Fetcher:  h.Client,
	}
	if ev.Message.Type == "image" {
		// The content endpoint serves JPEG; the id is the fetch ref.
		msg.Attachments = append(msg.Attachments, chat.Attachment{MimeType: "image/jpeg", Ref: ev.Message.ID})
	}
	return msg
}
