package domain

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomEnded       = errors.New("room has ended")
	ErrRoomExists      = errors.New("room already exists")
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionExists   = errors.New("peer session already exists")
	ErrSessionNotFound = errors.New("peer session not found")
	ErrNotJoined       = errors.New("room not joined")
	ErrMediaSource     = errors.New("media source unavailable")
)
