package slackbot

import (
	"context"
	"log/slog"
	"time"
)

var loadingFrames = []string{":hourglass_flowing_sand:", ":hourglass:"}

const frameInterval = time.Second

// startLoading posts the placeholder message and starts a goroutine that
// rewrites it with alternating hourglass frames until stop is called. The
// caller writes the final reply over the same timestamp afterwards; stop
// does not return until the last frame update has finished, so the reply
// cannot be overwritten by a stale frame.
func (c *Client) startLoading(ctx context.Context, channel string) (ts string, stop func(), err error) {
	ts, err = c.PostMessage(ctx, channel, loadingFrames[0])
	if err != nil {
		return "", nil, err
	}

	animCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()
		frame := 1
		for {
			select {
			case <-animCtx.Done():
				return
			case <-ticker.C:
				if err := c.UpdateMessage(animCtx, channel, ts, loadingFrames[frame%len(loadingFrames)]); err != nil {
					slog.Debug("loading frame update failed", "err", err)
				}
				frame++
			}
		}
	}()

	stop = func() {
		cancel()
		<-done
	}
	return ts, stop, nil
}
