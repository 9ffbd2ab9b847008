package domain

import "time"

type RoomID string

type RoomStatus string

const (
	RoomStatusActive RoomStatus = "active"
	RoomStatusEnded  RoomStatus = "ended"
)

// Room is a live-selling session namespace: one seller, any number of viewers.
// ViewerCount is maintained by the signaling relay; REST reads return the last
// value it pushed, not a transactional count.
type Room struct {
	ID          RoomID     `json:"id"`
	Title       string     `json:"title"`
	Status      RoomStatus `json:"status"`
	SellerID    UserID     `json:"seller_id"`
	ViewerCount int        `json:"viewer_count"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (r *Room) Active() bool {
	return r.Status == RoomStatusActive
}
