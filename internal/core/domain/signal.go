package domain

import "encoding/json"

// Signaling event names. Every message on the channel is an Envelope carrying
// one of these plus an event-specific payload.
const (
	EventJoinRoom           = "join_room"
	EventViewerCountUpdated = "viewer_count_updated"
	EventParticipantJoined  = "participant_joined"
	EventParticipantLeft    = "participant_left"
	EventSendComment        = "send_comment"
	EventCommentCreated     = "comment_created"
	EventShareProduct       = "share_product"
	EventProductShared      = "product_shared"
	EventStreamSignal       = "stream_signal"
)

// Envelope is the tagged union every signaling message travels in. RoomID is
// mandatory on every message; receivers discard envelopes for rooms they have
// not joined.
type Envelope struct {
	Event   string          `json:"event"`
	RoomID  RoomID          `json:"roomId"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinRoomPayload struct {
	UserID UserID `json:"userId"`
	Role   Role   `json:"role"`
}

type ViewerCountPayload struct {
	ViewerCount int `json:"viewerCount"`
}

type ParticipantJoinedPayload struct {
	UserID UserID `json:"userId"`
	Role   Role   `json:"role"`
}

type ParticipantLeftPayload struct {
	UserID UserID `json:"userId"`
}

type CommentPayload struct {
	UserID  UserID `json:"userId"`
	Message string `json:"message"`
}

type ProductSharePayload struct {
	UserID  UserID  `json:"userId"`
	Product Product `json:"product"`
}

type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "ice-candidate"
)

// StreamSignalPayload carries one step of an offer/answer/candidate exchange.
// ToUserID zero means room-broadcast; otherwise every recipient whose id does
// not match must discard the message.
type StreamSignalPayload struct {
	FromUserID UserID          `json:"fromUserId"`
	ToUserID   UserID          `json:"toUserId,omitempty"`
	Type       SignalType      `json:"type"`
	SDP        string          `json:"sdp,omitempty"`
	Candidate  json.RawMessage `json:"candidate,omitempty"`
}

// Addressed reports whether the signal names an explicit recipient.
func (p *StreamSignalPayload) Addressed() bool {
	return p.ToUserID != 0
}
