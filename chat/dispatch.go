package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
)

// Gateway is the LLM backend surface the dispatcher talks to. Methods never
// fail past this boundary: on transport or shape errors they return a
// descriptive placeholder string, which callers deliver like any reply.
type Gateway interface {
	Chat(ctx context.Context, model string, messages []Turn) string
	Vision(ctx context.Context, model, prompt string, images []string) string
	Prompt(ctx context.Context, model string, messages []Turn) string
}

// Recorder receives completed exchanges. May be left unset.
type Recorder interface {
	Record(platform, userID, route, prompt, reply string) error
}

// Models maps routes to backend model names.
type Models struct {
	Chat     string
	Question string
	Vision   string
	Prompt   string
}

// Dispatcher is the per-user message dispatch core. It owns the
// conversation store and the in-flight guard for the process lifetime;
// handlers receive it by reference, there are no package-level globals.
type Dispatcher struct {
	store   *Store
	guard   *Guard
	gateway Gateway
	models  Models
	rec     Recorder
}

func NewDispatcher(gw Gateway, models Models) *Dispatcher {
	return &Dispatcher{
		store:   NewStore(),
		guard:   NewGuard(),
		gateway: gw,
		models:  models,
	}
}

// Store exposes the conversation store for wiring and inspection.
func (d *Dispatcher) Store() *Store {
	return d.store
}

// SetRecorder attaches a transcript recorder to completed exchanges.
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.rec = r
}

// Handle runs one inbound event through admission, classification and the
// matching handler. ok is false when the event was dropped because the
// user already has a request in flight; otherwise reply is the single
// deliverable response for the event.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) (reply string, ok bool) {
	if !d.guard.TryAdmit(msg.UserID) {
		slog.Info("event dropped, request in flight", "user", msg.UserID, "platform", msg.Platform)
		return "", false
	}
	defer d.guard.Release(msg.UserID)

	if msg.OnAdmit != nil {
		msg.OnAdmit()
	}

	route, reply := d.route(ctx, msg)

	if d.rec != nil {
		prompt := msg.Text
		if msg.PromptRequest != "" {
			prompt = msg.PromptRequest
		}
		if err := d.rec.Record(msg.Platform, msg.UserID, route, prompt, reply); err != nil {
			slog.Warn("transcript record failed", "err", err)
		}
	}
	return reply, true
}

// route classifies the message. First match wins; order matters.
func (d *Dispatcher) route(ctx context.Context, msg Message) (route, reply string) {
	switch {
	case msg.PromptRequest != "":
		return "prompt", d.handlePrompt(ctx, msg)
	case IsCommand(msg.Text):
		return "command", d.handleCommand(ctx, msg)
	case hasImage(msg.Attachments):
		return "image", d.handleImage(ctx, msg)
	default:
		model := d.models.Chat
		if msg.Question {
			model = d.models.Question
		}
		return "chat", d.handleText(ctx, msg.UserID, msg.Text, model)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, msg Message) string {
	text := msg.Text
	switch {
	case strings.HasPrefix(text, "!"):
		prompt := text[1:]
		d.store.SetSystemPrompt(msg.UserID, prompt)
		return "System prompt updated: " + prompt
	case strings.HasPrefix(text, "_"):
		d.store.Clear(msg.UserID)
		return "All records cleared."
	case strings.HasPrefix(text, "?"):
		return d.handleText(ctx, msg.UserID, text[1:], d.models.Question)
	default:
		return "Unknown command."
	}
}

func (d *Dispatcher) handleText(ctx context.Context, userID, text, model string) string {
	d.store.AppendUser(userID, text)
	resp := d.gateway.Chat(ctx, model, d.store.Messages(userID))
	if resp != "" {
		d.store.AppendAssistant(userID, resp)
	}
	return resp
}

// handleImage fetches each image attachment, encodes it and asks the
// vision model about it with the message text as prompt. Responses are
// concatenated in attachment order. Nothing is persisted to the window.
func (d *Dispatcher) handleImage(ctx context.Context, msg Message) string {
	var b strings.Builder
	for _, att := range msg.Attachments {
		if !strings.HasPrefix(att.MimeType, "image/") {
			continue
		}
		if msg.Fetcher == nil {
			b.WriteString("Attachment fetch unavailable")
			continue
		}
		data, err := msg.Fetcher.FetchAttachment(ctx, att.Ref)
		if err != nil {
			b.WriteString(fmt.Sprintf("Attachment fetch failed: %v", err))
			continue
		}
		encoded := base64.StdEncoding.EncodeToString(data)
		b.WriteString(d.gateway.Vision(ctx, d.models.Vision, msg.Text, []string{encoded}))
	}
	return b.String()
}

// handlePrompt submits an image-generation prompt request. The request is
// not remembered as a user turn; only the assistant reply joins the
// window. This asymmetry is deliberate.
func (d *Dispatcher) handlePrompt(ctx context.Context, msg Message) string {
	var msgs []Turn
	if p, ok := d.store.SystemPrompt(msg.UserID); ok {
		msgs = append(msgs, Turn{Role: RoleSystem, Content: p})
	}
	msgs = append(msgs, Turn{Role: RoleUser, Content: msg.PromptRequest})

	resp := d.gateway.Prompt(ctx, d.models.Prompt, msgs)
	if resp != "" {
		d.store.AppendAssistant(msg.UserID, resp)
	}
	return resp
}

func hasImage(atts []Attachment) bool {
	for _, att := range atts {
		if strings.HasPrefix(att.MimeType, "image/") {
			return true
		}
	}
	return false
}
