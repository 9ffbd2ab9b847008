package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"livecart/internal/core/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockRoomService for relay tests
type MockRoomService struct {
	mock.Mock
}

func (m *MockRoomService) CreateRoom(ctx context.Context, title string, seller domain.UserID) (*domain.Room, error) {
	args := m.Called(ctx, title, seller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

func (m *MockRoomService) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

func (m *MockRoomService) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Room), args.Error(1)
}

func (m *MockRoomService) Join(ctx context.Context, id domain.RoomID, userID domain.UserID, role domain.Role) (*domain.Room, error) {
	args := m.Called(ctx, id, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

func (m *MockRoomService) Leave(ctx context.Context, id domain.RoomID, userID domain.UserID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockRoomService) EndRoom(ctx context.Context, id domain.RoomID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRoomService) SetViewerCount(ctx context.Context, id domain.RoomID, count int) error {
	args := m.Called(ctx, id, count)
	return args.Error(0)
}

func activeRoom(id domain.RoomID, seller domain.UserID) *domain.Room {
	return &domain.Room{
		ID:       id,
		Title:    "test room",
		Status:   domain.RoomStatusActive,
		SellerID: seller,
	}
}

func newTestRelay(svc *MockRoomService) *RelayServer {
	relay := NewRelayServer(svc, zap.NewNop().Sugar())
	relay.SetPingInterval(50 * time.Millisecond)
	relay.SetPongTimeout(2 * time.Second)
	return relay
}

func dialRelay(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + ts.URL[4:] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	return conn
}

func writeEnvelope(t *testing.T, conn *websocket.Conn, event string, roomID domain.RoomID, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(&domain.Envelope{
		Event:   event,
		RoomID:  roomID,
		Payload: raw,
	}))
}

func joinRoom(t *testing.T, conn *websocket.Conn, roomID domain.RoomID, userID domain.UserID, role domain.Role) {
	t.Helper()
	writeEnvelope(t, conn, domain.EventJoinRoom, roomID, domain.JoinRoomPayload{
		UserID: userID,
		Role:   role,
	})
	// The relay confirms a join with the viewer count push.
	readEvent(t, conn, domain.EventViewerCountUpdated)
}

// readEvent reads envelopes until one matches, skipping interleaved presence
// and count updates that arrive during room churn.
func readEvent(t *testing.T, conn *websocket.Conn, event string) *domain.Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		var env domain.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Event == event {
			return &env
		}
	}
	t.Fatalf("no %s envelope arrived", event)
	return nil
}

func TestRelayServer_JoinAnnouncesPresenceAndCount(t *testing.T) {
	roomID := domain.RoomID("room-1")
	svc := new(MockRoomService)
	svc.On("GetRoom", mock.Anything, roomID).Return(activeRoom(roomID, 10), nil)
	svc.On("SetViewerCount", mock.Anything, roomID, mock.AnythingOfType("int")).Return(nil)
	svc.On("EndRoom", mock.Anything, roomID).Return(nil)

	relay := newTestRelay(svc)
	ts := httptest.NewServer(http.HandlerFunc(relay.HandleWebSocket))
	defer ts.Close()

	seller := dialRelay(t, ts)
	defer seller.Close()
	joinRoom(t, seller, roomID, 10, domain.RoleSeller)

	viewer := dialRelay(t, ts)
	defer viewer.Close()
	joinRoom(t, viewer, roomID, 20, domain.RoleViewer)

	env := readEvent(t, seller, domain.EventParticipantJoined)
	var joined domain.ParticipantJoinedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &joined))
	assert.Equal(t, domain.UserID(20), joined.UserID)
	assert.Equal(t, domain.RoleViewer, joined.Role)

	env = readEvent(t, seller, domain.EventViewerCountUpdated)
	var count domain.ViewerCountPayload
	require.NoError(t, json.Unmarshal(env.Payload, &count))
	assert.Equal(t, 1, count.ViewerCount)

	svc.AssertCalled(t, "SetViewerCount", mock.Anything, roomID, 1)
}

func TestRelayServer_JoinRejectedForEndedRoom(t *testing.T) {
	roomID := domain.RoomID("room-dead")
	svc := new(MockRoomService)
	ended := activeRoom(roomID, 10)
	ended.Status = domain.RoomStatusEnded
	svc.On("GetRoom", mock.Anything, roomID).Return(ended, nil)

	relay := newTestRelay(svc)
	ts := httptest.NewServer(http.HandlerFunc(relay.HandleWebSocket))
	defer ts.Close()

	conn := dialRelay(t, ts)
	defer conn.Close()
	writeEnvelope(t, conn, domain.EventJoinRoom, roomID, domain.JoinRoomPayload{
		UserID: 20,
		Role:   domain.RoleViewer,
	})

	env := readEvent(t, conn, "error")
	assert.NotNil(t, env)
	assert.Empty(t, relay.ConnectedUsers(roomID))
}

func TestRelayServer_EventsRequireJoinFirst(t *testing.T) {
	svc := new(MockRoomService)

	relay := newTestRelay(svc)
	ts := httptest.NewServer(http.HandlerFunc(relay.HandleWebSocket))
	defer ts.Close()

	conn := dialRelay(t, ts)
	defer conn.Close()
	writeEnvelope(t, conn, domain.EventSendComment, "room-1", domain.CommentPayload{
		UserID:  20,
		Message: "hello",
	})

	env := readEvent(t, conn, "error")
	assert.NotNil(t, env)
}

func TestRelayServer_CommentEchoedToWholeRoom(t *testing.T) {
	roomID := domain.RoomID("room-1")
	svc := new(MockRoomService)
	svc.On("GetRoom", mock.Anything, roomID).Return(activeRoom(roomID, 10), nil)
	svc.On("SetViewerCount", mock.Anything, roomID, mock.AnythingOfType("int")).Return(nil)
	svc.On("EndRoom", mock.Anything, roomID).Return(nil)

	relay := newTestRelay(svc)
	ts := httptest.NewServer(http.HandlerFunc(relay.HandleWebSocket))
	defer ts.Close()

	seller := dialRelay(t, ts)
	defer seller.Close()
	joinRoom(t, seller, roomID, 10, domain.RoleSeller)

	viewer := dialRelay(t, ts)
	defer viewer.Close()
	joinRoom(t, viewer, roomID, 20, domain.RoleViewer)

	writeEnvelope(t, viewer, domain.EventSendComment, roomID, domain.CommentPayload{
		UserID:  20,
		Message: "  anyone tried the apron?  ",
	})

	for _, conn := range []*websocket.Conn{seller, viewer} {
		env := readEvent(t, conn, domain.EventCommentCreated)
		var comment domain.CommentPayload
		require.NoError(t, json.Unmarshal(env.Payload, &comment))
		assert.Equal(t, domain.UserID(20), comment.UserID)
		assert.Equal(t, "anyone tried the apron?", comment.Message)
	}
}

func TestRelayServer_CommentUserIDMustMatchConnection(t *testing.T) {
	roomID := domain.RoomID("room-1")
	svc := new(MockRoomService)
	svc.On("GetRoom", mock.Anything, roomID).Return(activeRoom(roomID, 10), nil)
	svc.On("SetViewerCount", mock.Anything, roomID, mock.AnythingOfType("int")).Return(nil)

	relay := newTestRelay(svc)
	ts := httptest.NewServer(http.HandlerFunc(relay.HandleWebSocket))
	defer ts.Close()

	viewer := dialRelay(t, ts)
	defer viewer.Close()
	joinRoom(t, viewer, roomID, 20, domain.RoleViewer)

	writeEnvelope(t, viewer, domain.EventSendComment, roomID, domain.CommentPayload{
		UserID:  77,
		Message: "spoofed",
	})

	env := readEvent(t, viewer, "error")
	assert.NotNil(t, env)
}

func TestRelayServer_ShareProductSellerOnly(t *testing.T) {
	roomID := domain.RoomID("room-1")
	svc := new(MockRoomService)
	svc.On("GetRoom", mock.Anything, roomID).Return(activeRoom(roomID, 10), nil)
	svc.On("SetViewerCount", mock.Anything, roomID, mock.AnythingOfType("int")).Return(nil)
	svc.On("EndRoom", mock.Anything, roomID).Return(nil)

	relay := newTestRelay(svc)
	ts := httptest.NewServer(http.HandlerFunc(relay.HandleWebSocket))
	defer ts.Close()

	seller := dialRelay(t, ts)
	defer seller.Close()
	joinRoom(t, seller, roomID, 10, domain.RoleSeller)

	viewer := dialRelay(t, ts)
	defer viewer.Close()
	joinRoom(t, viewer, roomID, 20, domain.RoleViewer)

	product := domain.Product{ID: "sku-1", Name: "Ceramic Mug", PriceCents: 1800}

	writeEnvelope(t, viewer, domain.EventShareProduct, roomID, domain.ProductSharePayload{
		UserID:  20,
		Product: product,
	})
	readEvent(t, viewer, "error")

	writeEnvelope(t, seller, domain.EventShareProduct, roomID, domain.ProductSharePayload{
		UserID:  10,
		Product: product,
	})

	env := readEvent(t, viewer, domain.EventProductShared)
	var shared domain.ProductSharePayload
	require.NoError(t, json.Unmarshal(env.Payload, &shared))
	assert.Equal(t, domain.ProductID("sku-1"), shared.Product.ID)
}

func TestRelayServer_AddressedSignalReachesOnlyRecipient(t *testing.T) {
	roomID := domain.RoomID("room-1")
	svc := new(MockRoomService)
	svc.On("GetRoom", mock.Anything, roomID).Return(activeRoom(roomID, 10), nil)
	svc.On("SetViewerCount", mock.Anything, roomID, mock.AnythingOfType("int")).Return(nil)
	svc.On("EndRoom", mock.Anything, roomID).Return(nil)

	relay := newTestRelay(svc)
	ts := httptest.NewServer(http.HandlerFunc(relay.HandleWebSocket))
	defer ts.Close()

	seller := dialRelay(t, ts)
	defer seller.Close()
	joinRoom(t, seller, roomID, 10, domain.RoleSeller)

	viewerA := dialRelay(t, ts)
	defer viewerA.Close()
	joinRoom(t, viewerA, roomID, 20, domain.RoleViewer)

	viewerB := dialRelay(t, ts)
	defer viewerB.Close()
	joinRoom(t, viewerB, roomID, 30, domain.RoleViewer)

	writeEnvelope(t, seller, domain.EventStreamSignal, roomID, domain.StreamSignalPayload{
		FromUserID: 10,
		ToUserID:   20,
		Type:       domain.SignalOffer,
		SDP:        "v=0 fake offer",
	})

	env := readEvent(t, viewerA, domain.EventStreamSignal)
	var sig domain.StreamSignalPayload
	require.NoError(t, json.Unmarshal(env.Payload, &sig))
	assert.Equal(t, domain.SignalOffer, sig.Type)
	assert.Equal(t, domain.UserID(10), sig.FromUserID)

	// viewerB must not see the addressed offer; the next thing it can
	// legitimately receive is its own echo below.
	writeEnvelope(t, viewerB, domain.EventSendComment, roomID, domain.CommentPayload{
		UserID:  30,
		Message: "ping",
	})
	got := readEvent(t, viewerB, domain.EventCommentCreated)
	assert.Equal(t, domain.EventCommentCreated, got.Event)
}

func TestRelayServer_SignalToAbsentRecipientIsDropped(t *testing.T) {
	roomID := domain.RoomID("room-1")
	svc := new(MockRoomService)
	svc.On("GetRoom", mock.Anything, roomID).Return(activeRoom(roomID, 10), nil)
	svc.On("SetViewerCount", mock.Anything, roomID, mock.AnythingOfType("int")).Return(nil)
	svc.On("EndRoom", mock.Anything, roomID).Return(nil)

	relay := newTestRelay(svc)
	ts := httptest.NewServer(http.HandlerFunc(relay.HandleWebSocket))
	defer ts.Close()

	seller := dialRelay(t, ts)
	defer seller.Close()
	joinRoom(t, seller, roomID, 10, domain.RoleSeller)

	writeEnvelope(t, seller, domain.EventStreamSignal, roomID, domain.StreamSignalPayload{
		FromUserID: 10,
		ToUserID:   999,
		Type:       domain.SignalOffer,
		SDP:        "v=0 fake offer",
	})

	// Not an error, just a silent drop: a comment round-trip proves the
	// connection is still healthy and no error envelope was queued.
	writeEnvelope(t, seller, domain.EventSendComment, roomID, domain.CommentPayload{
		UserID:  10,
		Message: "still here",
	})
	env := readEvent(t, seller, domain.EventCommentCreated)
	assert.Equal(t, domain.EventCommentCreated, env.Event)
}

func TestRelayServer_EnvelopeForWrongRoomRejected(t *testing.T) {
	roomID := domain.RoomID("room-1")
	svc := new(MockRoomService)
	svc.On("GetRoom", mock.Anything, roomID).Return(activeRoom(roomID, 10), nil)
	svc.On("SetViewerCount", mock.Anything, roomID, mock.AnythingOfType("int")).Return(nil)

	relay := newTestRelay(svc)
	ts := httptest.NewServer(http.HandlerFunc(relay.HandleWebSocket))
	defer ts.Close()

	viewer := dialRelay(t, ts)
	defer viewer.Close()
	joinRoom(t, viewer, roomID, 20, domain.RoleViewer)

	writeEnvelope(t, viewer, domain.EventSendComment, "room-other", domain.CommentPayload{
		UserID:  20,
		Message: "wrong address",
	})

	env := readEvent(t, viewer, "error")
	assert.NotNil(t, env)
}

func TestRelayServer_SellerDisconnectEndsRoomAndDropsViewers(t *testing.T) {
	roomID := domain.RoomID("room-1")
	svc := new(MockRoomService)
	svc.On("GetRoom", mock.Anything, roomID).Return(activeRoom(roomID, 10), nil)
	svc.On("SetViewerCount", mock.Anything, roomID, mock.AnythingOfType("int")).Return(nil)
	svc.On("EndRoom", mock.Anything, roomID).Return(nil)

	relay := newTestRelay(svc)
	ended := make(chan domain.RoomID, 1)
	relay.SetRoomEndedHook(func(id domain.RoomID) {
		ended <- id
	})
	ts := httptest.NewServer(http.HandlerFunc(relay.HandleWebSocket))
	defer ts.Close()

	seller := dialRelay(t, ts)
	joinRoom(t, seller, roomID, 10, domain.RoleSeller)

	viewer := dialRelay(t, ts)
	defer viewer.Close()
	joinRoom(t, viewer, roomID, 20, domain.RoleViewer)

	require.NoError(t, seller.Close())

	// The viewer's channel closing is its end-of-stream signal.
	viewer.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env domain.Envelope
		if err := viewer.ReadJSON(&env); err != nil {
			break
		}
	}

	assert.Eventually(t, func() bool {
		return len(relay.RoomOccupancy()) == 0
	}, 2*time.Second, 20*time.Millisecond)
	svc.AssertCalled(t, "EndRoom", mock.Anything, roomID)

	select {
	case id := <-ended:
		assert.Equal(t, roomID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("room ended hook never fired")
	}
}

func TestRelayServer_ViewerLeaveAnnouncedWithFreshCount(t *testing.T) {
	roomID := domain.RoomID("room-1")
	svc := new(MockRoomService)
	svc.On("GetRoom", mock.Anything, roomID).Return(activeRoom(roomID, 10), nil)
	svc.On("SetViewerCount", mock.Anything, roomID, mock.AnythingOfType("int")).Return(nil)
	svc.On("EndRoom", mock.Anything, roomID).Return(nil)

	relay := newTestRelay(svc)
	ts := httptest.NewServer(http.HandlerFunc(relay.HandleWebSocket))
	defer ts.Close()

	seller := dialRelay(t, ts)
	defer seller.Close()
	joinRoom(t, seller, roomID, 10, domain.RoleSeller)

	viewer := dialRelay(t, ts)
	joinRoom(t, viewer, roomID, 20, domain.RoleViewer)
	readEvent(t, seller, domain.EventParticipantJoined)

	require.NoError(t, viewer.Close())

	env := readEvent(t, seller, domain.EventParticipantLeft)
	var left domain.ParticipantLeftPayload
	require.NoError(t, json.Unmarshal(env.Payload, &left))
	assert.Equal(t, domain.UserID(20), left.UserID)

	env = readEvent(t, seller, domain.EventViewerCountUpdated)
	var count domain.ViewerCountPayload
	require.NoError(t, json.Unmarshal(env.Payload, &count))
	assert.Equal(t, 0, count.ViewerCount)
	svc.AssertCalled(t, "SetViewerCount", mock.Anything, roomID, 0)
}

// A connection whose handler loop exits while inbound envelopes are still
// queued must not strand its reader goroutine.
func TestRelayServer_ReaderStopsWhenHandlerLoopExits(t *testing.T) {
	roomID := domain.RoomID("room-1")
	svc := new(MockRoomService)
	// Stall admission so each flood below outpaces the handler loop and
	// fills the envelope queue.
	svc.On("GetRoom", mock.Anything, roomID).
		After(100*time.Millisecond).
		Return(activeRoom(roomID, 10), nil)
	svc.On("SetViewerCount", mock.Anything, roomID, mock.AnythingOfType("int")).Return(nil)
	svc.On("EndRoom", mock.Anything, roomID).Return(nil)

	relay := newTestRelay(svc)
	relay.SetPingInterval(10 * time.Millisecond)
	ts := httptest.NewServer(http.HandlerFunc(relay.HandleWebSocket))
	defer ts.Close()

	baseline := runtime.NumGoroutine()

	for i := 0; i < 10; i++ {
		conn := dialRelay(t, ts)
		writeEnvelope(t, conn, domain.EventJoinRoom, roomID, domain.JoinRoomPayload{
			UserID: domain.UserID(20 + i),
			Role:   domain.RoleViewer,
		})
		for j := 0; j < 40; j++ {
			writeEnvelope(t, conn, domain.EventSendComment, roomID, domain.CommentPayload{
				UserID:  domain.UserID(20 + i),
				Message: "flood",
			})
		}
		require.NoError(t, conn.Close())
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline+2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestRelayServer_CloseRoomDropsEveryConnection(t *testing.T) {
	roomID := domain.RoomID("room-1")
	svc := new(MockRoomService)
	svc.On("GetRoom", mock.Anything, roomID).Return(activeRoom(roomID, 10), nil)
	svc.On("SetViewerCount", mock.Anything, roomID, mock.AnythingOfType("int")).Return(nil)

	relay := newTestRelay(svc)
	ts := httptest.NewServer(http.HandlerFunc(relay.HandleWebSocket))
	defer ts.Close()

	viewer := dialRelay(t, ts)
	defer viewer.Close()
	joinRoom(t, viewer, roomID, 20, domain.RoleViewer)

	relay.CloseRoom(roomID)

	viewer.SetReadDeadline(time.Now().Add(2 * time.Second))
	var sawError bool
	for {
		var env domain.Envelope
		if err := viewer.ReadJSON(&env); err != nil {
			sawError = true
			break
		}
	}
	assert.True(t, sawError)
	assert.Empty(t, relay.ConnectedUsers(roomID))
}
