package ports

import (
	"context"
	"encoding/json"

	"livecart/internal/core/domain"
)

// SignalHandler consumes one inbound envelope. Handlers run sequentially, in
// arrival order, on the signaler's single dispatch goroutine.
type SignalHandler func(env *domain.Envelope)

// Signaler is a room-scoped bidirectional event channel to the signaling
// relay. Register handlers with On before Connect; after Connect the dispatch
// loop owns them.
type Signaler interface {
	Connect(ctx context.Context, roomID domain.RoomID) error
	JoinRoom(userID domain.UserID, role domain.Role) error
	Emit(event string, payload interface{}) error
	On(event string, handler SignalHandler)
	// Disconnect releases the channel. Idempotent. Peers are not notified
	// directly; the relay announces the departure.
	Disconnect() error
}

// PeerLink is one negotiated media-transport link to a remote participant.
// Candidate and connection callbacks may fire on transport goroutines; they
// must not touch coordinator state directly.
type PeerLink interface {
	CreateOffer(ctx context.Context) (sdp string, err error)
	HandleOffer(ctx context.Context, sdp string) (answer string, err error)
	HandleAnswer(ctx context.Context, sdp string) error
	AddCandidate(candidate json.RawMessage) error
	OnCandidate(fn func(candidate json.RawMessage))
	OnConnected(fn func())
	Close() error
}

// PeerConnector opens media-transport links. A seller-side connector shares
// one media source across every link it opens; the source is acquired when
// the connector is built and released exactly once by Close.
type PeerConnector interface {
	Open(ctx context.Context, remote domain.UserID) (PeerLink, error)
	Close() error
}
