package linebot

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/orlabot/relay-server/chat"
)

type stubGateway struct {
	reply string
}

func (g *stubGateway) Chat(context.Context, string, []chat.Turn) string { return g.reply }
func (g *stubGateway) Vision(context.Context, string, string, []string) string {
	return g.reply
}
func (g *stubGateway) Prompt(context.Context, string, []chat.Turn) string { return g.reply }

// fakeAPI is an in-process stand-in for the LINE Messaging API.
type fakeAPI struct {
	mu      sync.Mutex
	replies []string
	tokens  []string
	loading int
	srv     *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/bot/message/reply", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ReplyToken string `json:"replyToken"`
			Messages   []struct {
				Text string `json:"text"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.tokens = append(f.tokens, body.ReplyToken)
		if len(body.Messages) > 0 {
			f.replies = append(f.replies, body.Messages[0].Text)
		}
		f.mu.Unlock()
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/v2/bot/chat/loading/start", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.loading++
		f.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) client() *Client {
	return &Client{Token: "line-token", HTTP: f.srv.Client(), base: f.srv.URL, dataBase: f.srv.URL}
}

func newTestHandler(api *fakeAPI, reply string) *Handler {
	d := chat.NewDispatcher(&stubGateway{reply: reply}, chat.Models{
		Chat: "m", Question: "q", Vision: "v", Prompt: "p",
	})
	return NewHandler(api.client(), "channel-secret", d)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature(t *testing.T) {
	body := []byte(`{"events":[]}`)
	good := sign("secret", body)

	if !ValidateSignature("secret", body, good) {
		t.Error("valid signature rejected")
	}
	if ValidateSignature("secret", body, "bogus") {
		t.Error("bogus signature accepted")
	}
	if ValidateSignature("other-secret", body, good) {
		t.Error("signature for a different secret accepted")
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := newTestHandler(newFakeAPI(t), "pong")

	body := `{"events":[]}`
	req := httptest.NewRequest(http.MethodPost, "/line/callback", strings.NewReader(body))
	req.Header.Set("X-Line-Signature", "nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookAcceptsSigned(t *testing.T) {
	h := newTestHandler(newFakeAPI(t), "pong")

	body := []byte(`{"events":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/line/callback", strings.NewReader(string(body)))
	req.Header.Set("X-Line-Signature", sign("channel-secret", body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "OK" {
		t.Errorf("body = %q, want OK", got)
	}
}

func TestHandleEventRepliesOnce(t *testing.T) {
	api := newFakeAPI(t)
	h := newTestHandler(api, "pong")

	h.handleEvent(context.Background(), webhookEvent{
		Type:       "message",
		ReplyToken: "rt-1",
		Source:     source{Type: "user", UserID: "Uabc"},
		Message:    message{Type: "text", ID: "m1", Text: "ping"},
	})

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.tokens) != 1 || api.tokens[0] != "rt-1" {
		t.Fatalf("reply tokens = %v, want exactly [rt-1]", api.tokens)
	}
	if api.replies[0] != "pong" {
		t.Errorf("reply text = %q, want %q", api.replies[0], "pong")
	}
	if api.loading != 1 {
		t.Errorf("loading calls = %d, want 1", api.loading)
	}
}

func TestGroupSourcesOnlyAnswerCommands(t *testing.T) {
	tests := []struct {
		name      string
		src       source
		msg       message
		wantReply bool
	}{
		{"group free text", source{Type: "group", UserID: "U1", GroupID: "G1"}, message{Type: "text", ID: "m1", Text: "hello everyone"}, false},
		{"room free text", source{Type: "room", UserID: "U1", RoomID: "R1"}, message{Type: "text", ID: "m1", Text: "hello"}, false},
		{"group image", source{Type: "group", UserID: "U1", GroupID: "G1"}, message{Type: "image", ID: "m2"}, false},
		{"room image", source{Type: "room", UserID: "U1", RoomID: "R1"}, message{Type: "image", ID: "m2"}, false},
		{"group command", source{Type: "group", UserID: "U1", GroupID: "G1"}, message{Type: "text", ID: "m1", Text: "?what is go"}, true},
		{"direct free text", source{Type: "user", UserID: "U1"}, message{Type: "text", ID: "m1", Text: "hello"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t)
			h := newTestHandler(api, "answer")
			h.handleEvent(context.Background(), webhookEvent{
				Type:       "message",
				ReplyToken: "rt",
				Source:     tt.src,
				Message:    tt.msg,
			})

			api.mu.Lock()
			got := len(api.tokens) > 0
			api.mu.Unlock()
			if got != tt.wantReply {
				t.Errorf("replied = %v, want %v", got, tt.wantReply)
			}
		})
	}
}

func TestNormalizeImage(t *testing.T) {
	h := newTestHandler(newFakeAPI(t), "")

	msg := h.normalize(webhookEvent{
		Type:       "message",
		ReplyToken: "rt",
		Source:     source{Type: "user", UserID: "U7"},
		Message:    message{Type: "image", ID: "msg-42"},
	})

	if msg.UserID != "U7" || msg.Platform != "line" {
		t.Errorf("normalized = %+v", msg)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Ref != "msg-42" || !strings.HasPrefix(att.MimeType, "image/") {
		t.Errorf("attachment = %+v", att)
	}
}
