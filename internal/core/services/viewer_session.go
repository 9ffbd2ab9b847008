package services

import (
	"context"
	"encoding/json"
	"sync"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"

	"go.uber.org/zap"
)

// ViewerSession coordinates the audience side of a live room. The viewer is
// always the answerer and holds at most one peer session, created the first
// time an offer arrives from the seller. Candidates that arrive before that
// offer are dropped, not buffered.
//
// On seller departure the viewer does not tear its session down; the channel
// disconnect is the de facto end-of-stream signal and the surrounding
// process lifecycle handles cleanup.
type ViewerSession struct {
	roomID domain.RoomID
	userID domain.UserID

	sig       ports.Signaler
	connector ports.PeerConnector
	logger    *zap.SugaredLogger

	mu          sync.Mutex
	session     *peerSession
	viewerCount int
	comments    domain.CommentLog
	shared      domain.ShareList
	closed      bool

	// UI notification hooks, all optional.
	OnViewerCount func(count int)
	OnComment     func(c domain.Comment)
	OnProduct     func(p domain.Product)
	OnState       func(state domain.SessionState)
}

func NewViewerSession(roomID domain.RoomID, userID domain.UserID, sig ports.Signaler, connector ports.PeerConnector, logger *zap.SugaredLogger) *ViewerSession {
	return &ViewerSession{
		roomID:    roomID,
		userID:    userID,
		sig:       sig,
		connector: connector,
		logger:    logger,
	}
}

// Start registers handlers, connects and announces presence. Admission via
// REST must already have succeeded.
func (v *ViewerSession) Start(ctx context.Context) error {
	v.sig.On(domain.EventStreamSignal, v.handleStreamSignal)
	v.sig.On(domain.EventViewerCountUpdated, v.handleViewerCount)
	v.sig.On(domain.EventCommentCreated, v.handleComment)
	v.sig.On(domain.EventProductShared, v.handleProductShared)
	v.sig.On(domain.EventParticipantLeft, v.handleParticipantLeft)

	if err := v.sig.Connect(ctx, v.roomID); err != nil {
		return err
	}
	return v.sig.JoinRoom(v.userID, domain.RoleViewer)
}

// Close drops the link and the channel. Idempotent.
func (v *ViewerSession) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	s := v.session
	v.session = nil
	v.mu.Unlock()

	if s != nil && s.link != nil {
		_ = s.link.Close()
	}
	_ = v.connector.Close()
	return v.sig.Disconnect()
}

func (v *ViewerSession) accepts(env *domain.Envelope) bool {
	return env.RoomID == v.roomID
}

func (v *ViewerSession) handleStreamSignal(env *domain.Envelope) {
	if !v.accepts(env) {
		return
	}
	var sig domain.StreamSignalPayload
	if err := json.Unmarshal(env.Payload, &sig); err != nil {
		v.logger.Warnw("bad stream_signal payload", "error", err)
		return
	}
	if sig.Addressed() && sig.ToUserID != v.userID {
		return
	}
	if sig.FromUserID == v.userID {
		return
	}

	switch sig.Type {
	case domain.SignalOffer:
		v.handleOffer(sig)
	case domain.SignalCandidate:
		v.handleCandidate(sig)
	case domain.SignalAnswer:
		// The viewer is never the offerer.
		v.logger.Debugw("ignoring answer on viewer side", "from", sig.FromUserID)
	}
}

// handleOffer creates the single peer session on first contact with the
// seller, applies the offer and sends the addressed answer back. Only offers
// create sessions on the viewer side.
func (v *ViewerSession) handleOffer(sig domain.StreamSignalPayload) {
	ctx := context.Background()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	s := v.session
	if s != nil && s.remote != sig.FromUserID {
		// A second broadcaster in the same room is outside the protocol's
		// guarantees; keep the session we have.
		v.mu.Unlock()
		v.logger.Warnw("offer from unexpected sender dropped",
			"have", s.remote, "from", sig.FromUserID)
		return
	}
	if s == nil {
		s = &peerSession{remote: sig.FromUserID, state: domain.SessionCreated}
		v.session = s
	}
	v.mu.Unlock()

	if s.link == nil {
		link, err := v.connector.Open(ctx, sig.FromUserID)
		if err != nil {
			v.logger.Errorw("failed to open link", "from", sig.FromUserID, "error", err)
			v.mu.Lock()
			v.session = nil
			v.mu.Unlock()
			return
		}
		remote := sig.FromUserID
		link.OnCandidate(func(candidate json.RawMessage) {
			_ = v.sig.Emit(domain.EventStreamSignal, domain.StreamSignalPayload{
				FromUserID: v.userID,
				ToUserID:   remote,
				Type:       domain.SignalCandidate,
				Candidate:  candidate,
			})
		})
		link.OnConnected(func() {
			v.setState(domain.SessionConnected)
		})
		v.mu.Lock()
		s.link = link
		v.mu.Unlock()
	}

	v.setState(domain.SessionOfferReceived)

	answer, err := s.link.HandleOffer(ctx, sig.SDP)
	if err != nil {
		v.logger.Errorw("failed to answer offer", "from", sig.FromUserID, "error", err)
		return
	}
	v.setState(domain.SessionAnswered)

	if err := v.sig.Emit(domain.EventStreamSignal, domain.StreamSignalPayload{
		FromUserID: v.userID,
		ToUserID:   sig.FromUserID,
		Type:       domain.SignalAnswer,
		SDP:        answer,
	}); err != nil {
		v.logger.Errorw("failed to send answer", "error", err)
	}
}

func (v *ViewerSession) handleCandidate(sig domain.StreamSignalPayload) {
	v.mu.Lock()
	s := v.session
	v.mu.Unlock()
	if s == nil || s.link == nil || s.remote != sig.FromUserID {
		// Candidates never create sessions; an early candidate is lost.
		v.logger.Debugw("candidate without session dropped", "from", sig.FromUserID)
		return
	}
	if err := s.link.AddCandidate(sig.Candidate); err != nil {
		v.logger.Warnw("failed to add candidate", "from", sig.FromUserID, "error", err)
	}
}

func (v *ViewerSession) handleParticipantLeft(env *domain.Envelope) {
	if !v.accepts(env) {
		return
	}
	var p domain.ParticipantLeftPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return
	}
	// Deliberately no teardown here, even for the seller: the relay ends the
	// room and drops the channel, which is the viewer's real signal.
	v.logger.Infow("participant left", "user", p.UserID)
}

func (v *ViewerSession) handleViewerCount(env *domain.Envelope) {
	if !v.accepts(env) {
		return
	}
	var p domain.ViewerCountPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return
	}
	v.mu.Lock()
	v.viewerCount = p.ViewerCount
	v.mu.Unlock()
	if v.OnViewerCount != nil {
		v.OnViewerCount(p.ViewerCount)
	}
}

func (v *ViewerSession) handleComment(env *domain.Envelope) {
	if !v.accepts(env) {
		return
	}
	var p domain.CommentPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return
	}
	c := domain.Comment{UserID: p.UserID, Message: p.Message}
	v.mu.Lock()
	v.comments.Append(c)
	v.mu.Unlock()
	if v.OnComment != nil {
		v.OnComment(c)
	}
}

func (v *ViewerSession) handleProductShared(env *domain.Envelope) {
	if !v.accepts(env) {
		return
	}
	var p domain.ProductSharePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return
	}
	v.mu.Lock()
	v.shared.Share(p.Product)
	v.mu.Unlock()
	if v.OnProduct != nil {
		v.OnProduct(p.Product)
	}
}

// SendComment broadcasts a chat line to the room.
func (v *ViewerSession) SendComment(message string) error {
	return v.sig.Emit(domain.EventSendComment, domain.CommentPayload{
		UserID:  v.userID,
		Message: message,
	})
}

func (v *ViewerSession) setState(state domain.SessionState) {
	v.mu.Lock()
	if v.session != nil {
		v.session.state = state
	}
	v.mu.Unlock()
	if v.OnState != nil {
		v.OnState(state)
	}
}

func (v *ViewerSession) ViewerCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewerCount
}

func (v *ViewerSession) Comments() []domain.Comment {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.comments.Entries()
}

func (v *ViewerSession) SharedProducts() []domain.Product {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shared.Items()
}

// Session reports the remote id and state of the single link, or false when
// no offer has arrived yet.
func (v *ViewerSession) Session() (domain.UserID, domain.SessionState, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return 0, "", false
	}
	return v.session.remote, v.session.state, true
}
