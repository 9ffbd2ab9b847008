package domain

import (
	"math/rand"
	"time"
)

type UserID int64

type Role string

const (
	// RoleSeller is the broadcaster role; always the offerer in negotiations.
	RoleSeller Role = "seller"
	RoleViewer Role = "viewer"
)

// Participant is one member of a room: an authenticated user id or, for
// anonymous viewers, a random per-session id from GuestID.
type Participant struct {
	UserID UserID `json:"user_id"`
	Role   Role   `json:"role"`
}

type User struct {
	ID        UserID    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// GuestID draws a random positive id for an unauthenticated viewer. Two
// guests in the same room can collide; the protocol accepts that risk and
// does not check.
func GuestID() UserID {
	return UserID(rand.Int63n(1<<31-1) + 1)
}
