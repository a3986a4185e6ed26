// Package stream provides a websocket client for the control frame
// stream, for external consumers that want frames without polling the
// REST API. The client reconnects with backoff until closed.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soma-labs/go-soma/pkg/engine"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 10 * time.Second

	// frameBuffer absorbs short consumer stalls; beyond it the oldest
	// frames are dropped, matching the latest-wins policy everywhere
	// else in the bridge.
	frameBuffer = 64
)

// Client subscribes to a daemon's control frame stream.
type Client struct {
	id     string
	url    string
	logger *slog.Logger

	frames chan engine.ControlFrame

	mu      sync.Mutex
	dropped uint64
}

// NewClient creates a client for the given websocket URL, typically
// ws://127.0.0.1:8090/ws/control.
func NewClient(url string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()[:8]
	return &Client{
		id:     id,
		url:    url,
		logger: logger.With("component", "stream", "id", id),
		frames: make(chan engine.ControlFrame, frameBuffer),
	}
}

// Frames returns the channel frames arrive on. Closed when Run returns.
func (c *Client) Frames() <-chan engine.ControlFrame {
	return c.frames
}

// Dropped returns how many frames were discarded because the consumer
// fell behind.
func (c *Client) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Run connects and pumps frames until ctx is cancelled, reconnecting
// on failure. Blocks; call in a goroutine if needed.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.frames)

	backoff := initialBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.pump(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("stream disconnected", "err", err, "retryIn", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// pump runs one connection until it fails.
func (c *Client) pump(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()
	c.logger.Info("stream connected", "url", c.url)

	// Close the socket when the context ends so ReadMessage unblocks.
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
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame engine.ControlFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("bad frame", "err", err)
			continue
		}

		select {
		case c.frames <- frame:
		default:
			// Consumer stalled; shed the oldest frame.
			select {
			case <-c.frames:
			default:
			}
			c.frames <- frame
			c.mu.Lock()
			c.dropped++
			c.mu.Unlock()
		}
	}
}
