package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/orlabot/relay-server/chat"
)

// Client talks to a local Ollama-compatible backend. ChatURL serves chat
// and prompt-generation completions, VisionURL serves image-grounded
// generation. Methods never fail past this boundary: transport or shape
// errors come back as descriptive placeholder strings, and callers deliver
// those like any other reply.
type Client struct {
	ChatURL   string
	VisionURL string
	HTTP      *http.Client
}

func New(chatURL, visionURL string) *Client {
	return &Client{
		ChatURL:   chatURL,
		VisionURL: visionURL,
		// Local inference can be slow; requests are never cancelled
		// once admitted.
		HTTP: &http.Client{Timeout: 5 * time.Minute},
	}
}

type chatPayload struct {
	Model     string      `json:"model"`
	Messages  []chat.Turn `json:"messages"`
	Stream    bool        `json:"stream"`
	KeepAlive int         `json:"keep_alive"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

type visionPayload struct {
	Model     string   `json:"model"`
	Prompt    string   `json:"prompt"`
	Images    []string `json:"images"`
	Stream    bool     `json:"stream"`
	KeepAlive int      `json:"keep_alive"`
}

type visionResponse struct {
	Response string `json:"response"`
}

// Chat requests a chat completion and returns the assistant message content.
func (c *Client) Chat(ctx context.Context, model string, messages []chat.Turn) string {
	return c.completion(ctx, model, messages)
}

// Prompt requests a prompt-generation completion. Same wire shape as Chat;
// kept separate so the two routes stay distinguishable at call sites.
func (c *Client) Prompt(ctx context.Context, model string, messages []chat.Turn) string {
	return c.completion(ctx, model, messages)
}

func (c *Client) completion(ctx context.Context, model string, messages []chat.Turn) string {
	body, err := c.post(ctx, c.ChatURL, chatPayload{Model: model, Messages: messages, KeepAlive: -1})
	if err != nil {
		return fmt.Sprintf("Request failed: %v", err)
	}
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "Invalid JSON response"
	}
	if resp.Message.Content == "" {
		return "No content in response"
	}
	return resp.Message.Content
}

// Vision requests an image-grounded completion. The vision endpoint
// returns its text in a top-level field rather than a message object.
func (c *Client) Vision(ctx context.Context, model, prompt string, images []string) string {
	body, err := c.post(ctx, c.VisionURL, visionPayload{Model: model, Prompt: prompt, Images: images, KeepAlive: -1})
	if err != nil {
		return fmt.Sprintf("Request failed: %v", err)
	}
	var resp visionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "Invalid JSON response"
	}
	if resp.Response == "" {
		return "Error in response"
	}
	return resp.Response
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned %s", res.Status)
	}
	return io.ReadAll(res.Body)
}
