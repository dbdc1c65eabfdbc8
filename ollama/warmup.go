package ollama

import (
	"context"
	"log/slog"
	"time"

	"github.com/orlabot/relay-server/chat"
)

// Warmup primes every configured model so the first user request does not
// pay the load cost. keep_alive:-1 on each request keeps the model
// resident afterwards. Failures are logged and otherwise ignored.
func (c *Client) Warmup(ctx context.Context) {
	start := time.Now()
	for _, model := range []string{ModelChat, ModelChatZhTW, ModelPrompt} {
		slog.Info("warming model", "model", model)
		c.Chat(ctx, model, []chat.Turn{{Role: chat.RoleSystem, Content: "Initialize " + model}})
	}
	slog.Info("warming model", "model", ModelVision)
	c.Vision(ctx, ModelVision, "Initialize "+ModelVision, nil)
	slog.Info("model warmup done", "took", time.Since(start))
}
