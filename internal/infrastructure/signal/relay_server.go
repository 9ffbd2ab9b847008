package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"
	"livecart/pkg/utils"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxCommentLen bounds a single chat message on the wire.
const maxCommentLen = 500

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// RelayMetrics is implemented by the monitoring collector. All methods must
// be safe for concurrent use.
type RelayMetrics interface {
	ClientConnected(role domain.Role)
	ClientDisconnected(role domain.Role)
	EventRelayed(event string)
	EventDropped(reason string)
}

type noopMetrics struct{}

func (noopMetrics) ClientConnected(domain.Role)    {}
func (noopMetrics) ClientDisconnected(domain.Role) {}
func (noopMetrics) EventRelayed(string)            {}
func (noopMetrics) EventDropped(string)            {}

// relayClient is one joined websocket connection. gorilla connections allow a
// single concurrent writer, so every outbound write goes through writeMu.
type relayClient struct {
	connID  string
	conn    *websocket.Conn
	userID  domain.UserID
	role    domain.Role
	roomID  domain.RoomID
	limiter *rate.Limiter

	writeMu      sync.Mutex
	writeTimeout time.Duration
}

func (c *relayClient) send(env *domain.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteJSON(env)
}

// RelayServer is the room-scoped signaling relay. It tracks membership per
// room, fans out presence and chat events, routes addressed stream signals to
// exactly one recipient and keeps the authoritative viewer count.
type RelayServer struct {
	roomService ports.RoomService
	metrics     RelayMetrics

	rooms map[domain.RoomID]map[domain.UserID]*relayClient
	mu    sync.RWMutex

	pingInterval time.Duration
	pongTimeout  time.Duration
	writeTimeout time.Duration

	msgRate  rate.Limit
	msgBurst int

	// onRoomEnded, when set, announces a seller-driven room end to the other
	// relay instances. Best effort.
	onRoomEnded func(roomID domain.RoomID)

	logger *zap.SugaredLogger
}

func NewRelayServer(roomService ports.RoomService, logger *zap.SugaredLogger) *RelayServer {
	return &RelayServer{
		roomService:  roomService,
		metrics:      noopMetrics{},
		rooms:        make(map[domain.RoomID]map[domain.UserID]*relayClient),
		pingInterval: 30 * time.Second,
		pongTimeout:  60 * time.Second,
		writeTimeout: 10 * time.Second,
		msgRate:      rate.Limit(50),
		msgBurst:     100,
		logger:       logger,
	}
}

// SetMetrics installs the monitoring collector.
func (s *RelayServer) SetMetrics(m RelayMetrics) {
	if m != nil {
		s.metrics = m
	}
}

// SetPingInterval sets ping interval for WebSocket connections
func (s *RelayServer) SetPingInterval(interval time.Duration) {
	s.pingInterval = interval
}

// SetPongTimeout sets pong timeout for WebSocket connections
func (s *RelayServer) SetPongTimeout(timeout time.Duration) {
	s.pongTimeout = timeout
}

// SetRoomEndedHook installs the cross-instance room-ended publisher.
func (s *RelayServer) SetRoomEndedHook(fn func(roomID domain.RoomID)) {
	s.onRoomEnded = fn
}

// SetMessageRate sets the per-connection inbound message budget.
func (s *RelayServer) SetMessageRate(limit rate.Limit, burst int) {
	s.msgRate = limit
	s.msgBurst = burst
}

func (s *RelayServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client := &relayClient{
		connID:       uuid.NewString(),
		conn:         conn,
		limiter:      rate.NewLimiter(s.msgRate, s.msgBurst),
		writeTimeout: s.writeTimeout,
	}

	conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	envChan := make(chan *domain.Envelope, 16)
	errChan := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	// Closing the connection only unblocks ReadJSON; done covers the reader
	// when it is parked on a full envChan as the handler loop exits.
	go func() {
		for {
			var env domain.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				select {
				case errChan <- err:
				case <-done:
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
			select {
			case envChan <- &env:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case env := <-envChan:
			if !client.limiter.Allow() {
				s.metrics.EventDropped("rate_limited")
				s.logger.Warnw("message rate exceeded, dropping",
					"conn_id", client.connID, "event", env.Event)
				continue
			}
			if err := s.handleEnvelope(context.Background(), client, env); err != nil {
				s.logger.Infow("error handling envelope",
					"conn_id", client.connID, "event", env.Event, "error", err)
				s.sendError(client, err.Error())
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Infow("error sending ping", "conn_id", client.connID, "error", err)
				s.unregister(client)
				return
			}

		case err := <-errChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Infow("error reading envelope", "conn_id", client.connID, "error", err)
			}
			s.unregister(client)
			return
		}
	}
}

func (s *RelayServer) handleEnvelope(ctx context.Context, c *relayClient, env *domain.Envelope) error {
	if env.Event == "" {
		return fmt.Errorf("event is required")
	}
	if env.RoomID == "" {
		return fmt.Errorf("roomId is required")
	}

	if env.Event == domain.EventJoinRoom {
		return s.handleJoin(ctx, c, env)
	}

	// Everything else requires a completed join on this room.
	if c.roomID == "" {
		return fmt.Errorf("join_room must come first")
	}
	if env.RoomID != c.roomID {
		return fmt.Errorf("envelope for room %s on a channel joined to %s", env.RoomID, c.roomID)
	}

	switch env.Event {
	case domain.EventSendComment:
		return s.handleComment(c, env)
	case domain.EventShareProduct:
		return s.handleShareProduct(c, env)
	case domain.EventStreamSignal:
		return s.handleStreamSignal(c, env)
	default:
		return fmt.Errorf("unknown event: %s", env.Event)
	}
}

// handleJoin registers the connection in its room, announces the newcomer to
// everyone else and pushes the fresh viewer count to the whole room,
// newcomer included.
func (s *RelayServer) handleJoin(ctx context.Context, c *relayClient, env *domain.Envelope) error {
	var payload domain.JoinRoomPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("invalid join_room payload: %w", err)
	}
	if payload.UserID == 0 {
		return fmt.Errorf("userId is required")
	}
	if payload.Role != domain.RoleSeller && payload.Role != domain.RoleViewer {
		return fmt.Errorf("unknown role: %s", payload.Role)
	}
	if c.roomID != "" {
		return fmt.Errorf("already joined room %s", c.roomID)
	}

	room, err := s.roomService.GetRoom(ctx, env.RoomID)
	if err != nil {
		return fmt.Errorf("room lookup failed: %w", err)
	}
	if !room.Active() {
		return domain.ErrRoomEnded
	}

	c.userID = payload.UserID
	c.role = payload.Role
	c.roomID = env.RoomID

	s.mu.Lock()
	members, ok := s.rooms[c.roomID]
	if !ok {
		members = make(map[domain.UserID]*relayClient)
		s.rooms[c.roomID] = members
	}
	if old, exists := members[c.userID]; exists {
		// Same user reconnecting; the stale connection loses.
		old.conn.Close()
		s.logger.Infow("replacing stale connection",
			"room_id", c.roomID, "user_id", c.userID)
	}
	members[c.userID] = c
	s.mu.Unlock()

	s.metrics.ClientConnected(c.role)
	s.logger.Infow("participant joined",
		"conn_id", c.connID, "room_id", c.roomID, "user_id", c.userID, "role", c.role)

	s.broadcast(c.roomID, c.userID, domain.EventParticipantJoined, domain.ParticipantJoinedPayload{
		UserID: c.userID,
		Role:   c.role,
	})
	s.pushViewerCount(ctx, c.roomID)
	return nil
}

func (s *RelayServer) handleComment(c *relayClient, env *domain.Envelope) error {
	var payload domain.CommentPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("invalid send_comment payload: %w", err)
	}
	if payload.UserID != c.userID {
		return fmt.Errorf("userId mismatch: expected %d, got %d", c.userID, payload.UserID)
	}
	payload.Message = utils.TruncateString(utils.SanitizeString(payload.Message), maxCommentLen)
	if utils.IsEmpty(payload.Message) {
		return fmt.Errorf("empty comment")
	}
	// Echoed back to the whole room, sender included; arrival order at the
	// relay is the room's comment order.
	s.broadcast(c.roomID, 0, domain.EventCommentCreated, payload)
	return nil
}

func (s *RelayServer) handleShareProduct(c *relayClient, env *domain.Envelope) error {
	if c.role != domain.RoleSeller {
		return fmt.Errorf("only the seller shares products")
	}
	var payload domain.ProductSharePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("invalid share_product payload: %w", err)
	}
	if payload.Product.ID == "" {
		return fmt.Errorf("product id is required")
	}
	s.broadcast(c.roomID, 0, domain.EventProductShared, payload)
	return nil
}

// handleStreamSignal routes one negotiation step. Addressed signals go to the
// named recipient only; broadcast signals go to everyone but the sender. The
// relay never inspects SDP or candidates.
func (s *RelayServer) handleStreamSignal(c *relayClient, env *domain.Envelope) error {
	var payload domain.StreamSignalPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("invalid stream_signal payload: %w", err)
	}
	if payload.FromUserID != c.userID {
		return fmt.Errorf("fromUserId mismatch: expected %d, got %d", c.userID, payload.FromUserID)
	}

	if payload.Addressed() {
		target := s.lookup(c.roomID, payload.ToUserID)
		if target == nil {
			// Recipient already gone; negotiation simply stalls.
			s.metrics.EventDropped("recipient_gone")
			s.logger.Debugw("dropping signal for absent recipient",
				"room_id", c.roomID, "to", payload.ToUserID, "type", payload.Type)
			return nil
		}
		s.metrics.EventRelayed(domain.EventStreamSignal)
		s.logger.Debugw("routing signal",
			"room_id", c.roomID, "from", payload.FromUserID, "to", payload.ToUserID,
			"type", payload.Type)
		return target.send(&domain.Envelope{
			Event:   domain.EventStreamSignal,
			RoomID:  c.roomID,
			Payload: mustMarshal(payload),
		})
	}

	s.broadcast(c.roomID, c.userID, domain.EventStreamSignal, payload)
	return nil
}

// unregister removes the connection from its room and announces the
// departure. A departing seller ends the room and the relay closes every
// remaining channel in it; that disconnect is the viewers' end-of-stream
// signal.
func (s *RelayServer) unregister(c *relayClient) {
	if c.roomID == "" {
		return
	}

	s.mu.Lock()
	members := s.rooms[c.roomID]
	if members == nil || members[c.userID] != c {
		// Replaced by a reconnect; nothing to announce.
		s.mu.Unlock()
		return
	}
	delete(members, c.userID)
	var orphans []*relayClient
	if c.role == domain.RoleSeller {
		for _, m := range members {
			orphans = append(orphans, m)
		}
		delete(s.rooms, c.roomID)
	} else if len(members) == 0 {
		delete(s.rooms, c.roomID)
	}
	s.mu.Unlock()

	s.metrics.ClientDisconnected(c.role)
	s.logger.Infow("participant disconnected",
		"conn_id", c.connID, "room_id", c.roomID, "user_id", c.userID, "role", c.role)

	ctx := context.Background()
	if c.role == domain.RoleSeller {
		if err := s.roomService.EndRoom(ctx, c.roomID); err != nil {
			s.logger.Warnw("failed to end room", "room_id", c.roomID, "error", err)
		}
		for _, m := range orphans {
			m.conn.Close()
		}
		if s.onRoomEnded != nil {
			s.onRoomEnded(c.roomID)
		}
		return
	}

	s.broadcast(c.roomID, 0, domain.EventParticipantLeft, domain.ParticipantLeftPayload{
		UserID: c.userID,
	})
	s.pushViewerCount(ctx, c.roomID)
}

// pushViewerCount recomputes the room's viewer count, persists it and
// broadcasts it. Writes race during churn; receivers keep the last one.
func (s *RelayServer) pushViewerCount(ctx context.Context, roomID domain.RoomID) {
	s.mu.RLock()
	count := 0
	for _, m := range s.rooms[roomID] {
		if m.role == domain.RoleViewer {
			count++
		}
	}
	s.mu.RUnlock()

	if err := s.roomService.SetViewerCount(ctx, roomID, count); err != nil {
		s.logger.Warnw("failed to persist viewer count", "room_id", roomID, "error", err)
	}
	s.broadcast(roomID, 0, domain.EventViewerCountUpdated, domain.ViewerCountPayload{
		ViewerCount: count,
	})
}

// broadcast fans an event out to the room. except suppresses one recipient;
// zero means nobody is suppressed. Write failures are logged and skipped so
// one dead connection cannot block the room.
func (s *RelayServer) broadcast(roomID domain.RoomID, except domain.UserID, event string, payload interface{}) {
	env := &domain.Envelope{
		Event:   event,
		RoomID:  roomID,
		Payload: mustMarshal(payload),
	}

	s.mu.RLock()
	targets := make([]*relayClient, 0, len(s.rooms[roomID]))
	for id, m := range s.rooms[roomID] {
		if except != 0 && id == except {
			continue
		}
		targets = append(targets, m)
	}
	s.mu.RUnlock()

	for _, m := range targets {
		if err := m.send(env); err != nil {
			s.logger.Infow("broadcast write failed",
				"room_id", roomID, "user_id", m.userID, "event", event, "error", err)
		}
	}
	s.metrics.EventRelayed(event)
}

func (s *RelayServer) lookup(roomID domain.RoomID, userID domain.UserID) *relayClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[roomID][userID]
}

func (s *RelayServer) sendError(c *relayClient, message string) {
	env := &domain.Envelope{
		Event:   "error",
		RoomID:  c.roomID,
		Payload: mustMarshal(map[string]string{"message": message}),
	}
	if err := c.send(env); err != nil {
		s.logger.Debugw("failed to send error", "conn_id", c.connID, "error", err)
	}
}

// CloseRoom drops every connection joined to the room. Called when another
// relay instance reports the room ended; the closes propagate end-of-stream
// to viewers connected here.
func (s *RelayServer) CloseRoom(roomID domain.RoomID) {
	s.mu.Lock()
	members := s.rooms[roomID]
	delete(s.rooms, roomID)
	s.mu.Unlock()

	for _, m := range members {
		m.conn.Close()
	}
	if len(members) > 0 {
		s.logger.Infow("closed room on remote end signal",
			"room_id", roomID, "connections", len(members))
	}
}

// RoomOccupancy reports connected participants per room, for health checks
// and metrics scrapes.
func (s *RelayServer) RoomOccupancy() map[domain.RoomID]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.RoomID]int, len(s.rooms))
	for id, members := range s.rooms {
		out[id] = len(members)
	}
	return out
}

// ConnectedUsers lists the user ids currently joined to a room.
func (s *RelayServer) ConnectedUsers(roomID domain.RoomID) []domain.UserID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.UserID, 0, len(s.rooms[roomID]))
	for id := range s.rooms[roomID] {
		users = append(users, id)
	}
	return users
}

func mustMarshal(v interface{}) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal of relay payload failed: %v", err))
	}
	return raw
}
