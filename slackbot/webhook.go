package slackbot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/orlabot/relay-server/chat"
)

// Handler answers the Slack events API webhook and relays message events
// through the dispatcher. The same event path is fed by the Socket Mode
// transport when that is enabled.
type Handler struct {
	Client     *Client
	Dispatcher *chat.Dispatcher
}

func NewHandler(client *Client, d *chat.Dispatcher) *Handler {
	return &Handler{Client: client, Dispatcher: d}
}

// envelope is the outer events API callback body.
type envelope struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
}

// event is the inner message event, reduced to the fields the relay reads.
type event struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype,omitempty"`
	User    string `json:"user"`
	BotID   string `json:"bot_id,omitempty"`
	Text    string `json:"text"`
	Channel string `json:"channel"`
	Files   []file `json:"files,omitempty"`
}

type file struct {
	MimeType   string `json:"mimetype"`
	URLPrivate string `json:"url_private"`
}

// ServeHTTP acks within Slack's retry deadline and processes the event in
// the background; the reply goes out through chat.update, not through
// this response.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	switch env.Type {
	case "url_verification":
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"challenge": env.Challenge})

	case "event_callback":
		var ev event
		if err := json.Unmarshal(env.Event, &ev); err != nil {
			http.Error(w, "invalid event", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		go h.handleEvent(context.Background(), ev)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

// handleEvent normalizes one message event, runs it through the
// dispatcher and delivers the reply by overwriting the placeholder.
func (h *Handler) handleEvent(ctx context.Context, ev event) {
	if ev.Type != "message" || ev.User == "" {
		return
	}
	if ev.Subtype == "message_deleted" {
		return
	}
	// Never answer other bots (including ourselves).
	if ev.BotID != "" {
		return
	}

	msg := h.normalize(ev)

	var ts string
	var stopAnim func()
	msg.OnAdmit = func() {
		var err error
		ts, stopAnim, err = h.Client.startLoading(ctx, ev.Channel)
		if err != nil {
			slog.Error("slack placeholder post failed", "err", err)
		}
	}

	reply, ok := h.Dispatcher.Handle(ctx, msg)
	if !ok {
		return
	}
	if stopAnim != nil {
		stopAnim()
	}
	if reply == "" {
		reply = "..."
	}

	if ts == "" {
		// Placeholder never made it; deliver as a fresh message.
		if _, err := h.Client.PostMessage(ctx, ev.Channel, reply); err != nil {
			slog.Error("slack reply failed", "channel", ev.Channel, "err", err)
		}
		return
	}
	if err := h.Client.UpdateMessage(ctx, ev.Channel, ts, reply); err != nil {
		slog.Error("slack reply update failed", "channel", ev.Channel, "err", err)
	}
}

func (h *Handler) normalize(ev event) chat.Message {
	msg := chat.Message{
		UserID:   ev.User,
		Platform: "slack",
		Text:     ev.Text,
		Fetcher:  h.Client,
	}
	for _, f := range ev.Files {
		msg.Attachments = append(msg.Attachments, chat.Attachment{MimeType: f.MimeType, Ref: f.URLPrivate})
	}
	return msg
}
