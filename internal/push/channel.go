// Package push maintains the best-effort notification channel from the
// backend. It only ever hints the sync engine to resync; losing it never
// prevents messages from appearing, because the poll loop converges on
// its own.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/alexjbarnes/chat-sync/internal/protocol"
	"github.com/coder/websocket"
	"github.com/tidwall/gjson"
)

const (
	reconnectMin = 1 * time.Second
	reconnectMax = 60 * time.Second
)

// Handler consumes notifications read from the channel. *chat.Engine
// implements it.
type Handler interface {
	HandleNotification(ctx context.Context, n protocol.Notification)
}

// Channel is a websocket client for the backend's push endpoint. After
// connecting it subscribes with the session's username and then reads
// tagged notification documents until the connection drops.
type Channel struct {
	url      string
	username string
	handler  Handler
	logger   *slog.Logger
}

// NewChannel creates a push channel for the given endpoint and user.
func NewChannel(url, username string, handler Handler, logger *slog.Logger) *Channel {
	return &Channel{
		url:      url,
		username: username,
		handler:  handler,
		logger:   logger,
	}
}

// Run connects and consumes notifications until ctx is cancelled.
// Every failure is logged and retried with jittered exponential
// backoff; a connection that got as far as subscribing restarts the
// ladder at the minimum. Nothing is ever surfaced to the poll path.
func (c *Channel) Run(ctx context.Context) error {
	backoff := reconnectMin

	for {
		subscribed, err := c.connectAndListen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if subscribed {
			backoff = reconnectMin
		}

		c.logger.Warn("push channel lost, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoff),
		)

		jitter := time.Duration(rand.Int64N(int64(backoff) / 2))
		timer := time.NewTimer(backoff + jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = min(backoff*2, reconnectMax)
	}
}

// connectAndListen performs one connection lifecycle: dial, subscribe,
// then dispatch inbound notifications until a read fails. The returned
// bool reports whether the subscribe made it out, which is what Run
// treats as a successful connection for backoff purposes.
func (c *Channel) connectAndListen(ctx context.Context) (bool, error) {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("dialing push endpoint: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	sub, err := json.Marshal(protocol.NewSubscribe(c.username))
	if err != nil {
		return false, fmt.Errorf("encoding subscribe: %w", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, sub); err != nil {
		return false, fmt.Errorf("subscribing: %w", err)
	}

	c.logger.Info("push channel connected", slog.String("url", c.url))

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return true, fmt.Errorf("reading notification: %w", err)
		}

		if typ != websocket.MessageText {
			c.logger.Debug("ignoring binary push frame", slog.Int("bytes", len(data)))
			continue
		}

		kind := gjson.GetBytes(data, "type").Str
		if kind == "" {
			c.logger.Debug("push frame without type tag", slog.Int("bytes", len(data)))
			continue
		}

		var n protocol.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			c.logger.Warn("failed to decode notification",
				slog.String("type", kind),
				slog.String("error", err.Error()),
			)
			continue
		}

		c.handler.HandleNotification(ctx, n)
	}
}
