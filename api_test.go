package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/orlabot/relay-server/chat"
	"github.com/orlabot/relay-server/session"
)

type echoGateway struct{}

func (echoGateway) Chat(_ context.Context, _ string, messages []chat.Turn) string {
	return "echo:" + messages[len(messages)-1].Content
}
func (echoGateway) Vision(context.Context, string, string, []string) string { return "vision" }
func (echoGateway) Prompt(_ context.Context, _ string, messages []chat.Turn) string {
	return "prompt:" + messages[len(messages)-1].Content
}

func newTestAPI() *apiHandler {
	return &apiHandler{
		Dispatcher: chat.NewDispatcher(echoGateway{}, chat.Models{
			Chat: "m", Question: "q", Vision: "v", Prompt: "p",
		}),
		Sessions: session.NewRegistry(),
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, resp
}

func TestSessionThenMessage(t *testing.T) {
	a := newTestAPI()

	code, resp := postJSON(t, a.handleSession, "")
	if code != http.StatusOK || resp["status"] != "success" || resp["uuid"] == "" {
		t.Fatalf("session response = %d %v", code, resp)
	}

	code, resp = postJSON(t, a.handleMessages, `{"user":"`+resp["uuid"]+`","text":"hello"}`)
	if code != http.StatusOK {
		t.Fatalf("messages status = %d, resp %v", code, resp)
	}
	if resp["response"] != "echo:hello" {
		t.Errorf("response = %q, want %q", resp["response"], "echo:hello")
	}
}

func TestSessionCodeIncluded(t *testing.T) {
	a := newTestAPI()
	a.ExternalURL = "relay.example.com"

	_, resp := postJSON(t, a.handleSession, "")
	serverURL, token, err := session.DecodeCode(resp["code"])
	if err != nil {
		t.Fatalf("DecodeCode(%q): %v", resp["code"], err)
	}
	if serverURL != "https://relay.example.com" || token != resp["uuid"] {
		t.Errorf("decoded (%q, %q), want the issued token", serverURL, token)
	}
}

func TestMessagesRejectsUnknownToken(t *testing.T) {
	a := newTestAPI()

	tests := []string{
		`{"user":"","text":"hi"}`,
		`{"user":"deadbeefdeadbeefdeadbeefdeadbeef","text":"hi"}`,
		`not json`,
	}
	for _, body := range tests {
		code, resp := postJSON(t, a.handleMessages, body)
		if code != http.StatusBadRequest || resp["status"] != "error" {
			t.Errorf("body %q: got %d %v, want 400 error", body, code, resp)
		}
	}

	// Rejection must leave no trace in the store.
	if msgs := a.Dispatcher.Store().Messages("deadbeefdeadbeefdeadbeefdeadbeef"); len(msgs) != 0 {
		t.Errorf("rejected submission mutated state: %+v", msgs)
	}
}

func TestPromptEndpoint(t *testing.T) {
	a := newTestAPI()

	code, resp := postJSON(t, a.handlePrompt, `{"sdxl":"a red fox"}`)
	if code != http.StatusOK || resp["response"] != "prompt:a red fox" {
		t.Fatalf("prompt response = %d %v", code, resp)
	}

	code, resp = postJSON(t, a.handlePrompt, `{"text":"no sdxl field"}`)
	if code != http.StatusBadRequest || resp["message"] != "Missing sdxl data" {
		t.Errorf("missing sdxl: got %d %v", code, resp)
	}
}
