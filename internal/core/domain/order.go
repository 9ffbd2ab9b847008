package domain

import "time"

type OrderID string

type Order struct {
	ID         OrderID   `json:"id"`
	UserID     UserID    `json:"user_id"`
	ProductID  ProductID `json:"product_id"`
	RoomID     RoomID    `json:"room_id,omitempty"`
	Quantity   int       `json:"quantity"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}
