package linebot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultAPIBase  = "https://api.line.me"
	defaultDataBase = "https://api-data.line.me"
)

// Client is a minimal LINE Messaging API client authenticated with the
// channel access token.
type Client struct {
	Token string
	HTTP  *http.Client

	base     string
	dataBase string
}

func NewClient(token string) *Client {
	return &Client{
		Token:    token,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		base:     defaultAPIBase,
		dataBase: defaultDataBase,
	}
}

// Reply sends the one-shot reply for an inbound event. Reply tokens are
// single use; a token must never be replayed.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	return c.post(ctx, c.base+"/v2/bot/message/reply", map[string]any{
		"replyToken": replyToken,
		"messages":   []map[string]string{{"type": "text", "text": text}},
	})
}

// ShowLoading raises the platform's transient typing indicator for the
// chat. Best effort; the indicator clears on its own.
func (c *Client) ShowLoading(ctx context.Context, chatID string) error {
	return c.post(ctx, c.base+"/v2/bot/chat/loading/start", map[string]any{
		"chatId":         chatID,
		"loadingSeconds": 60,
	})
}

// FetchAttachment downloads message content (images) by message id.
func (c *Client) FetchAttachment(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.dataBase+"/v2/bot/message/"+ref+"/content", nil)
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
		return nil, fmt.Errorf("content %s: %s", ref, res.Status)
	}
	return io.ReadAll(res.Body)
}

func (c *Client) post(ctx context.Context, url string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s: %s: %s", url, res.Status, body)
	}
	return nil
}
