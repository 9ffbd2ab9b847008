package services

import (
	"context"
	"encoding/json"
	"sync"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"

	"go.uber.org/zap"
)

// peerSession pairs the negotiation state for one remote participant with its
// media-transport link.
type peerSession struct {
	remote domain.UserID
	state  domain.SessionState
	link   ports.PeerLink
}

// HostSession coordinates the seller side of a live room. The host is always
// the offerer: every viewer join triggers exactly one new peer session and one
// addressed offer. All signaling handlers run on the signaler's single
// dispatch goroutine; transport callbacks run elsewhere, so session state is
// guarded by a mutex.
//
// A negotiation that stalls stays in its last state forever: there is no
// timeout, no retry and no reconnect. The same applies to the signaling
// channel itself.
type HostSession struct {
	roomID domain.RoomID
	userID domain.UserID

	sig       ports.Signaler
	connector ports.PeerConnector
	logger    *zap.SugaredLogger

	mu          sync.Mutex
	sessions    map[domain.UserID]*peerSession
	viewerCount int
	comments    domain.CommentLog
	shared      domain.ShareList
	closed      bool

	// UI notification hooks, all optional. Invoked on the dispatch goroutine.
	OnViewerCount func(count int)
	OnComment     func(c domain.Comment)
	OnViewerState func(viewer domain.UserID, state domain.SessionState)
}

// NewHostSession wires a host coordinator over an already-admitted room. The
// connector must have acquired its media source; acquisition failure belongs
// to the caller and must abort hosting rather than proceed peer-less.
func NewHostSession(roomID domain.RoomID, userID domain.UserID, sig ports.Signaler, connector ports.PeerConnector, logger *zap.SugaredLogger) *HostSession {
	return &HostSession{
		roomID:    roomID,
		userID:    userID,
		sig:       sig,
		connector: connector,
		logger:    logger,
		sessions:  make(map[domain.UserID]*peerSession),
	}
}

// Start registers all handlers, connects the signaling channel and announces
// presence. The caller must have passed the REST admission check first; the
// channel is never opened for a room the participant was denied.
func (h *HostSession) Start(ctx context.Context) error {
	h.sig.On(domain.EventParticipantJoined, h.handleParticipantJoined)
	h.sig.On(domain.EventParticipantLeft, h.handleParticipantLeft)
	h.sig.On(domain.EventStreamSignal, h.handleStreamSignal)
	h.sig.On(domain.EventViewerCountUpdated, h.handleViewerCount)
	h.sig.On(domain.EventCommentCreated, h.handleComment)
	h.sig.On(domain.EventProductShared, h.handleProductShared)

	if err := h.sig.Connect(ctx, h.roomID); err != nil {
		return err
	}
	return h.sig.JoinRoom(h.userID, domain.RoleSeller)
}

// Close tears down every peer session, releases the shared media source
// exactly once and drops the signaling channel. Idempotent.
func (h *HostSession) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	links := make([]ports.PeerLink, 0, len(h.sessions))
	for _, s := range h.sessions {
		links = append(links, s.link)
	}
	h.sessions = make(map[domain.UserID]*peerSession)
	h.mu.Unlock()

	for _, link := range links {
		_ = link.Close()
	}
	_ = h.connector.Close()
	return h.sig.Disconnect()
}

// accepts applies the mandatory inbound checks: the envelope must belong to
// the joined room. Messages for other rooms on a shared channel namespace are
// silently discarded, never treated as errors.
func (h *HostSession) accepts(env *domain.Envelope) bool {
	return env.RoomID == h.roomID
}

func (h *HostSession) handleParticipantJoined(env *domain.Envelope) {
	if !h.accepts(env) {
		return
	}
	var p domain.ParticipantJoinedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		h.logger.Warnw("bad participant_joined payload", "error", err)
		return
	}
	if p.Role != domain.RoleViewer || p.UserID == h.userID {
		return
	}

	h.mu.Lock()
	if _, exists := h.sessions[p.UserID]; exists || h.closed {
		h.mu.Unlock()
		return
	}
	// Reserve the slot before the (slow) transport setup so a duplicate join
	// notification can never produce a second session for the same viewer.
	h.sessions[p.UserID] = &peerSession{remote: p.UserID, state: domain.SessionCreated}
	h.mu.Unlock()

	if err := h.openAndOffer(p.UserID); err != nil {
		h.logger.Errorw("offer failed", "viewer", p.UserID, "error", err)
		h.removeSession(p.UserID)
	}
}

// openAndOffer creates the media link for a viewer, wires trickle candidates
// back through the channel and sends the addressed offer.
func (h *HostSession) openAndOffer(viewer domain.UserID) error {
	ctx := context.Background()

	link, err := h.connector.Open(ctx, viewer)
	if err != nil {
		return err
	}

	link.OnCandidate(func(candidate json.RawMessage) {
		// Always addressed to the one peer the candidate belongs to.
		h.emitSignal(domain.StreamSignalPayload{
			FromUserID: h.userID,
			ToUserID:   viewer,
			Type:       domain.SignalCandidate,
			Candidate:  candidate,
		})
	})
	link.OnConnected(func() {
		h.setState(viewer, domain.SessionConnected)
	})

	h.mu.Lock()
	s, ok := h.sessions[viewer]
	if !ok {
		h.mu.Unlock()
		return link.Close()
	}
	s.link = link
	h.mu.Unlock()

	sdp, err := link.CreateOffer(ctx)
	if err != nil {
		return err
	}
	h.setState(viewer, domain.SessionOfferSent)

	return h.emitSignal(domain.StreamSignalPayload{
		FromUserID: h.userID,
		ToUserID:   viewer,
		Type:       domain.SignalOffer,
		SDP:        sdp,
	})
}

func (h *HostSession) handleStreamSignal(env *domain.Envelope) {
	if !h.accepts(env) {
		return
	}
	var sig domain.StreamSignalPayload
	if err := json.Unmarshal(env.Payload, &sig); err != nil {
		h.logger.Warnw("bad stream_signal payload", "error", err)
		return
	}
	// Addressed messages for somebody else, and our own broadcast echoes,
	// must produce no state change at all.
	if sig.Addressed() && sig.ToUserID != h.userID {
		return
	}
	if sig.FromUserID == h.userID {
		return
	}

	switch sig.Type {
	case domain.SignalAnswer:
		h.handleAnswer(sig)
	case domain.SignalCandidate:
		h.handleCandidate(sig)
	case domain.SignalOffer:
		// The host is never the answerer.
		h.logger.Debugw("ignoring offer on host side", "from", sig.FromUserID)
	}
}

func (h *HostSession) handleAnswer(sig domain.StreamSignalPayload) {
	h.mu.Lock()
	s, ok := h.sessions[sig.FromUserID]
	h.mu.Unlock()
	if !ok || s.link == nil {
		h.logger.Debugw("answer for unknown session dropped", "from", sig.FromUserID)
		return
	}
	if err := s.link.HandleAnswer(context.Background(), sig.SDP); err != nil {
		h.logger.Errorw("failed to apply answer", "from", sig.FromUserID, "error", err)
		return
	}
	h.setState(sig.FromUserID, domain.SessionAnswered)
}

func (h *HostSession) handleCandidate(sig domain.StreamSignalPayload) {
	h.mu.Lock()
	s, ok := h.sessions[sig.FromUserID]
	h.mu.Unlock()
	if !ok || s.link == nil {
		// No session, no candidate: candidates alone never create sessions
		// and are not buffered for later.
		h.logger.Debugw("candidate for unknown session dropped", "from", sig.FromUserID)
		return
	}
	if err := s.link.AddCandidate(sig.Candidate); err != nil {
		h.logger.Warnw("failed to add candidate", "from", sig.FromUserID, "error", err)
	}
}

func (h *HostSession) handleParticipantLeft(env *domain.Envelope) {
	if !h.accepts(env) {
		return
	}
	var p domain.ParticipantLeftPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return
	}
	h.removeSession(p.UserID)
}

func (h *HostSession) handleViewerCount(env *domain.Envelope) {
	if !h.accepts(env) {
		return
	}
	var p domain.ViewerCountPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return
	}
	// Last write wins; the relay's value simply replaces ours.
	h.mu.Lock()
	h.viewerCount = p.ViewerCount
	h.mu.Unlock()
	if h.OnViewerCount != nil {
		h.OnViewerCount(p.ViewerCount)
	}
}

func (h *HostSession) handleComment(env *domain.Envelope) {
	if !h.accepts(env) {
		return
	}
	var p domain.CommentPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return
	}
	c := domain.Comment{UserID: p.UserID, Message: p.Message}
	h.mu.Lock()
	h.comments.Append(c)
	h.mu.Unlock()
	if h.OnComment != nil {
		h.OnComment(c)
	}
}

func (h *HostSession) handleProductShared(env *domain.Envelope) {
	if !h.accepts(env) {
		return
	}
	var p domain.ProductSharePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return
	}
	h.mu.Lock()
	h.shared.Share(p.Product)
	h.mu.Unlock()
}

// SendComment broadcasts a chat line. Fire and forget: no acknowledgment, no
// retry, ordering is whatever the channel provides.
func (h *HostSession) SendComment(message string) error {
	return h.sig.Emit(domain.EventSendComment, domain.CommentPayload{
		UserID:  h.userID,
		Message: message,
	})
}

// ShareProduct broadcasts a catalog item to every viewer in the room.
func (h *HostSession) ShareProduct(p domain.Product) error {
	return h.sig.Emit(domain.EventShareProduct, domain.ProductSharePayload{
		UserID:  h.userID,
		Product: p,
	})
}

func (h *HostSession) emitSignal(p domain.StreamSignalPayload) error {
	return h.sig.Emit(domain.EventStreamSignal, p)
}

func (h *HostSession) setState(viewer domain.UserID, state domain.SessionState) {
	h.mu.Lock()
	s, ok := h.sessions[viewer]
	if ok {
		s.state = state
	}
	h.mu.Unlock()
	if ok && h.OnViewerState != nil {
		h.OnViewerState(viewer, state)
	}
}

// removeSession closes and forgets exactly one viewer's session. Nothing is
// sent to the departed participant and other sessions are untouched.
func (h *HostSession) removeSession(viewer domain.UserID) {
	h.mu.Lock()
	s, ok := h.sessions[viewer]
	delete(h.sessions, viewer)
	h.mu.Unlock()

	if ok && s.link != nil {
		_ = s.link.Close()
	}
}

// ViewerCount returns the last count pushed by the relay.
func (h *HostSession) ViewerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewerCount
}

func (h *HostSession) Comments() []domain.Comment {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.comments.Entries()
}

func (h *HostSession) SharedProducts() []domain.Product {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shared.Items()
}

// Sessions reports the negotiation state per connected viewer.
func (h *HostSession) Sessions() map[domain.UserID]domain.SessionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[domain.UserID]domain.SessionState, len(h.sessions))
	for id, s := range h.sessions {
		out[id] = s.state
	}
	return out
}
