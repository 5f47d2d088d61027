package link

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cointhing/cointhing/internal/logging"
	"github.com/cointhing/cointhing/internal/settings"
	"github.com/cointhing/cointhing/internal/stats"
)

// ErrClosed is returned by requests on a closed client.
var ErrClosed = errors.New("link closed")

// DefaultHandshakeTimeout bounds the WebSocket upgrade.
const DefaultHandshakeTimeout = 10 * time.Second

// Client is a connection to a device's config link. Requests may be issued
// from several goroutines; replies are matched by ID.
type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Message
	err     error

	updates chan Update
	done    chan struct{}
}

// DialURL turns addr into a link URL. addr may be host:port, or a full
// ws:// or wss:// URL. A missing path becomes DefaultPath.
func DialURL(addr string) (string, error) {
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid device address %q: %w", addr, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("invalid device address %q: scheme must be ws or wss", addr)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid device address %q: missing host", addr)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultPath
	}
	return u.String(), nil
}

// Dial connects to the device at addr.
func Dial(ctx context.Context, addr string, opts ...DialOption) (*Client, error) {
	target, err := DialURL(addr)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: DefaultHandshakeTimeout}
	for _, opt := range opts {
		opt(&dialer)
	}
	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	conn.SetReadLimit(maxMessageSize)

	c := &Client{
		conn:    conn,
		pending: make(map[uint64]chan Message),
		updates: make(chan Update, 8),
		done:    make(chan struct{}),
	}
	go c.readLoop()

	logging.Debug("Connected to device", zap.String("url", target))
	return c, nil
}

// Updates delivers settings pushes. Pushes are dropped when the channel is
// full. The channel is closed when the connection ends.
func (c *Client) Updates() <-chan Update {
	return c.updates
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
		close(c.updates)
		close(c.done)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}

		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			logging.LogPayload("Malformed message from device", data)
			continue
		}

		if m.ID == 0 {
			c.handlePush(m)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[m.ID]
		delete(c.pending, m.ID)
		c.mu.Unlock()
		if ok {
			ch <- m
		}
	}
}

func (c *Client) handlePush(m Message) {
	if m.Type != TypeSettings {
		return
	}
	u, err := decodeSettingsMessage(m)
	if err != nil {
		logging.Debug("Ignoring unreadable settings push", zap.Error(err))
		return
	}
	select {
	case c.updates <- u:
	default:
	}
}

// request sends m with a fresh ID and waits for the matching reply.
func (c *Client) request(ctx context.Context, m Message) (Message, error) {
	ch := make(chan Message, 1)

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return Message{}, ErrClosed
	}
	c.nextID++
	m.ID = c.nextID
	c.pending[m.ID] = ch
	c.mu.Unlock()

	data, err := json.Marshal(m)
	if err != nil {
		c.forget(m.ID)
		return Message{}, fmt.Errorf("failed to marshal %s: %w", m, err)
	}

	c.writeMu.Lock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	} else {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	}
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(m.ID)
		return Message{}, fmt.Errorf("failed to send %s: %w", m, err)
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return Message{}, ErrClosed
		}
		if reply.Type == TypeError {
			return reply, &RemoteError{Request: m.Type, Message: reply.Error}
		}
		return reply, nil
	case <-ctx.Done():
		c.forget(m.ID)
		return Message{}, ctx.Err()
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Settings returns the device's current settings and brightness.
func (c *Client) Settings(ctx context.Context) (Update, error) {
	reply, err := c.request(ctx, Message{Type: TypeGet})
	if err != nil {
		return Update{}, err
	}
	if reply.Type != TypeSettings {
		return Update{}, fmt.Errorf("unexpected reply %q to get", reply.Type)
	}
	return decodeSettingsMessage(reply)
}

// Apply sends a settings document. The device replaces its whole settings
// state with it, substituting defaults for missing fields.
func (c *Client) Apply(ctx context.Context, doc []byte) (settings.Report, error) {
	if !json.Valid(doc) {
		return settings.Report{}, settings.NewParseError("settings document is not valid JSON", nil)
	}
	reply, err := c.request(ctx, Message{Type: TypeSettings, Data: json.RawMessage(doc)})
	if err != nil {
		return settings.Report{}, err
	}
	if reply.Report == nil {
		return settings.Report{}, nil
	}
	return *reply.Report, nil
}

// SetBrightness sets the screen brightness.
func (c *Client) SetBrightness(ctx context.Context, v uint8) error {
	value := int(v)
	_, err := c.request(ctx, Message{Type: TypeBrightness, Value: &value})
	return err
}

// Stats returns the device's counters and clock.
func (c *Client) Stats(ctx context.Context) (stats.Report, error) {
	reply, err := c.request(ctx, Message{Type: TypeStats})
	if err != nil {
		return stats.Report{}, err
	}
	return stats.ParseReport(reply.Data)
}

// ResetStats zeroes the device's counters.
func (c *Client) ResetStats(ctx context.Context) error {
	_, err := c.request(ctx, Message{Type: TypeResetStats})
	return err
}
