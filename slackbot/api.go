package slackbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIBase = "https://slack.com/api"

// Client is a minimal Slack Web API client authenticated with the bot
// token. Only the handful of methods the relay needs.
type Client struct {
	Token string
	HTTP  *http.Client
	base  string
}

func NewClient(token string) *Client {
	return &Client{
		Token: token,
		HTTP:  &http.Client{Timeout: 30 * time.Second},
		base:  defaultAPIBase,
	}
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

// PostMessage sends a new message and returns its timestamp, which is the
// id later updates are keyed by.
func (c *Client) PostMessage(ctx context.Context, channel, text string) (string, error) {
	resp, err := c.call(ctx, "chat.postMessage", map[string]string{
		"channel": channel,
		"text":    text,
	})
	if err != nil {
		return "", err
	}
	return resp.TS, nil
}

// UpdateMessage rewrites a previously posted message in place.
func (c *Client) UpdateMessage(ctx context.Context, channel, ts, text string) error {
	_, err := c.call(ctx, "chat.update", map[string]string{
		"channel": channel,
		"ts":      ts,
		"text":    text,
	})
	return err
}

func (c *Client) call(ctx context.Context, method string, params any) (*apiResponse, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+method, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	var ar apiResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if !ar.OK {
		return nil, fmt.Errorf("%s: %s", method, ar.Error)
	}
	return &ar, nil
}

// FetchAttachment downloads a private file URL with the bot token.
func (c *Client) FetchAttachment(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: %s", res.Status)
	}
	return io.ReadAll(res.Body)
}
