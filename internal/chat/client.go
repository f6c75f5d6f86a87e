// Package chat is the websocket client for the chat gateway. It delivers
// inbound room messages to a callback and sends room and direct messages on
// behalf of the bot.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	dialAttempts = 5
	dialBackoff  = time.Second
	writeTimeout = 10 * time.Second
)

// Message is one inbound chat message from the gateway.
type Message struct {
	Room     string `json:"room"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Text     string `json:"text"`
}

// envelope is the outbound frame format the gateway accepts.
type envelope struct {
	Type   string `json:"type"` // "send" or "direct"
	Room   string `json:"room,omitempty"`
	UserID string `json:"userId,omitempty"`
	Text   string `json:"text"`
}

// Client maintains the gateway connection.
type Client struct {
	url    string
	botID  string
	secret string

	onMessage func(*Message)

	mu     sync.Mutex // serializes writes and guards conn
	conn   *websocket.Conn
	closed bool
}

// New creates a disconnected client.
func New(url, botID, secret string) *Client {
	return &Client{url: url, botID: botID, secret: secret}
}

// OnMessage registers the inbound message handler. Must be called before
// Connect; the handler runs on the read loop goroutine and should not block.
func (c *Client) OnMessage(fn func(*Message)) {
	c.onMessage = fn
}

// Connect dials the gateway, retrying a few times, and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	go c.readLoop()
	return nil
}

// dial attempts the websocket handshake with backoff between attempts.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	token, err := handshakeToken(c.botID, c.secret)
	if err != nil {
		return nil, err
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	header.Set("X-Bot-Id", c.botID)

	var lastErr error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{HTTPHeader: header})
		if err == nil {
			logrus.WithField("url", c.url).Info("connected to chat gateway")
			return conn, nil
		}
		lastErr = err
		logrus.WithError(err).WithField("attempt", attempt).Warn("gateway dial failed")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dialBackoff * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("dial gateway: %w", lastErr)
}

// readLoop delivers inbound messages until the connection drops, then
// reconnects unless the client was closed.
func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		conn, closed := c.conn, c.closed
		c.mu.Unlock()
		if closed || conn == nil {
			return
		}

		_, data, err := conn.Read(context.Background())
		if err != nil {
			c.mu.Lock()
			closed = c.closed
			c.mu.Unlock()
			if closed {
				return
			}
			logrus.WithError(err).Warn("gateway read failed, reconnecting")
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			next, dialErr := c.dial(ctx)
			cancel()
			if dialErr != nil {
				logrus.WithError(dialErr).Error("gateway reconnect failed, giving up")
				return
			}
			c.mu.Lock()
			c.conn = next
			c.mu.Unlock()
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logrus.WithError(err).Debug("skipping unparseable gateway frame")
			continue
		}
		if c.onMessage != nil && msg.Room != "" {
			c.onMessage(&msg)
		}
	}
}

// Send posts text to a room.
func (c *Client) Send(room, text string) error {
	return c.write(envelope{Type: "send", Room: room, Text: text})
}

// SendDirect sends text privately to a user.
func (c *Client) SendDirect(userID, text string) error {
	return c.write(envelope{Type: "direct", UserID: userID, Text: text})
}

func (c *Client) write(env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return fmt.Errorf("not connected")
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close shuts the connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(websocket.StatusNormalClosure, "shutting down")
	c.conn = nil
	return err
}
