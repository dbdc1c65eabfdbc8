package main

import (
	"encoding/json"
	"net/http"

	"github.com/orlabot/relay-server/chat"
	"github.com/orlabot/relay-server/session"
)

// apiHandler is the generic/headless adapter: programmatic clients get a
// correlation token from /session and submit through /messages and
// /prompt; the computed reply comes straight back in the response.
type apiHandler struct {
	Dispatcher  *chat.Dispatcher
	Sessions    *session.Registry
	ExternalURL string
}

func (a *apiHandler) handleSession(w http.ResponseWriter, _ *http.Request) {
	token := a.Sessions.Issue()

	resp := map[string]string{"status": "success", "uuid": token}
	if a.ExternalURL != "" {
		resp["code"] = session.EncodeCode(a.ExternalURL, token)
	}
	writeJSON(w, http.StatusOK, resp)
}

type messageRequest struct {
	User string `json:"user"`
	Text string `json:"text"`
}

func (a *apiHandler) handleMessages(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid JSON payload"})
		return
	}
	if req.User == "" || !a.Sessions.Validate(req.User) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "uuid error"})
		return
	}

	reply, ok := a.Dispatcher.Handle(r.Context(), chat.Message{
		UserID:   req.User,
		Platform: "api",
		Text:     req.Text,
	})
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "message": "request already in flight"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "response": reply})
}

type promptRequest struct {
	SDXL string `json:"sdxl"`
	User string `json:"user,omitempty"`
}

func (a *apiHandler) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid JSON payload"})
		return
	}
	if req.SDXL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Missing sdxl data"})
		return
	}

	reply, ok := a.Dispatcher.Handle(r.Context(), chat.Message{
		UserID:        req.User,
		Platform:      "api",
		PromptRequest: req.SDXL,
	})
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "message": "request already in flight"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "response": reply})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
