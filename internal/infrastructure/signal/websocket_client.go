package signal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketClient is the client half of the relay protocol and implements
// ports.Signaler. One goroutine reads the socket and dispatches every inbound
// envelope to its handler sequentially, in arrival order; a handler that
// blocks stalls the whole channel.
//
// There is no reconnect. When the socket dies the channel is dead and the
// session it carried is over.
type WebSocketClient struct {
	url          string
	writeTimeout time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	roomID   domain.RoomID
	handlers map[string]ports.SignalHandler
	closed   bool

	logger *zap.SugaredLogger
}

func NewWebSocketClient(url string, writeTimeout time.Duration, logger *zap.SugaredLogger) *WebSocketClient {
	return &WebSocketClient{
		url:          url,
		writeTimeout: writeTimeout,
		handlers:     make(map[string]ports.SignalHandler),
		logger:       logger,
	}
}

// On registers the handler for an event. Must be called before Connect; the
// dispatch goroutine reads the handler table without locking afterwards.
func (c *WebSocketClient) On(event string, handler ports.SignalHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = handler
}

// Connect dials the relay and starts the dispatch loop. The caller must have
// passed admission for the room already.
func (c *WebSocketClient) Connect(ctx context.Context, roomID domain.RoomID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return fmt.Errorf("already connected")
	}
	if c.closed {
		return fmt.Errorf("client is closed")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial relay at %s: %w", c.url, err)
	}
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData),
			time.Now().Add(c.writeTimeout))
	})

	c.conn = conn
	c.roomID = roomID

	go c.dispatchLoop(conn)
	return nil
}

// JoinRoom announces this participant on the connected channel.
func (c *WebSocketClient) JoinRoom(userID domain.UserID, role domain.Role) error {
	return c.Emit(domain.EventJoinRoom, domain.JoinRoomPayload{
		UserID: userID,
		Role:   role,
	})
}

// Emit sends one event to the relay. Fire and forget; there is no
// acknowledgment and no retry.
func (c *WebSocketClient) Emit(event string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	env := &domain.Envelope{
		Event:   event,
		RoomID:  c.roomID,
		Payload: mustMarshal(payload),
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("failed to emit %s: %w", event, err)
	}
	return nil
}

// Disconnect closes the socket. Idempotent. The relay notices the close and
// announces the departure to the room.
func (c *WebSocketClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.writeTimeout))
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *WebSocketClient) dispatchLoop(conn *websocket.Conn) {
	for {
		var env domain.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.logger.Infow("signaling channel lost", "error", err)
			}
			return
		}

		c.mu.Lock()
		handler := c.handlers[env.Event]
		c.mu.Unlock()
		if handler == nil {
			c.logger.Debugw("no handler for event", "event", env.Event)
			continue
		}
		handler(&env)
	}
}
