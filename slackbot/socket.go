package slackbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	connectionsOpenURL = "https://slack.com/api/apps.connections.open"
	reconnectDelay     = 3 * time.Second
	socketWriteWait    = 10 * time.Second
)

// SocketClient maintains a Socket Mode connection as an alternative to the
// HTTP webhook. apps.connections.open (app-level token) yields a wss URL;
// events arrive wrapped in envelopes that must be acked by envelope id and
// are then fed into the same handler path as the webhook.
type SocketClient struct {
	AppToken string
	Handler  *Handler
	HTTP     *http.Client

	openURL string
}

func NewSocketClient(appToken string, handler *Handler) *SocketClient {
	return &SocketClient{
		AppToken: appToken,
		Handler:  handler,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		openURL:  connectionsOpenURL,
	}
}

// socketEnvelope is the Socket Mode wire frame.
type socketEnvelope struct {
	Type       string          `json:"type"`
	EnvelopeID string          `json:"envelope_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

type socketAck struct {
	EnvelopeID string `json:"envelope_id"`
}

// Run connects and reads until ctx is done, reconnecting after transport
// errors or server-initiated disconnects.
func (s *SocketClient) Run(ctx context.Context) {
	for {
		if err := s.runOnce(ctx); err != nil {
			slog.Warn("socket mode connection ended", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *SocketClient) runOnce(ctx context.Context) error {
	wsURL, err := s.openConnection(ctx)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	slog.Info("socket mode connected")

	// Unblock ReadMessage when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var env socketEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			continue
		}

		switch env.Type {
		case "hello":
			slog.Info("socket mode ready")

		case "disconnect":
			// Slack asks clients to reconnect to a fresh URL.
			slog.Info("socket mode disconnect requested", "reason", env.Reason)
			return nil

		case "events_api":
			if env.EnvelopeID != "" {
				conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
				if err := conn.WriteJSON(socketAck{EnvelopeID: env.EnvelopeID}); err != nil {
					return fmt.Errorf("ack: %w", err)
				}
			}
			s.dispatch(ctx, env.Payload)
		}
	}
}

// dispatch unwraps the events API envelope carried in a Socket Mode frame
// and hands the inner event to the webhook handler path.
func (s *SocketClient) dispatch(ctx context.Context, payload json.RawMessage) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil || env.Type != "event_callback" {
		return
	}
	var ev event
	if err := json.Unmarshal(env.Event, &ev); err != nil {
		return
	}
	go s.Handler.handleEvent(ctx, ev)
}

// openConnection requests a fresh Socket Mode URL.
func (s *SocketClient) openConnection(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.openURL, bytes.NewReader(nil))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+s.AppToken)

	res, err := s.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("apps.connections.open: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	var resp struct {
		OK    bool   `json:"ok"`
		URL   string `json:"url"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("apps.connections.open: %w", err)
	}
	if !resp.OK {
		return "", fmt.Errorf("apps.connections.open: %s", resp.Error)
	}
	return resp.URL, nil
}
