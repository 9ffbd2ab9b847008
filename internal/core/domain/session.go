package domain

// SessionState tracks one peer negotiation from creation to a working media
// path. There is no failed or reconnecting state: a negotiation that never
// completes stays where it stopped and media simply never arrives.
type SessionState string

const (
	SessionCreated       SessionState = "created"
	SessionOfferSent     SessionState = "offer-sent"
	SessionOfferReceived SessionState = "offer-received"
	SessionAnswered      SessionState = "answered"
	SessionConnected     SessionState = "connected"
)

// PeerSession is the negotiation state for one remote participant. The seller
// holds one per viewer; a viewer holds at most one, keyed by the seller.
type PeerSession struct {
	Remote UserID
	State  SessionState
}
