package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"
	"livecart/pkg/validation"

	"github.com/google/uuid"
)

type roomService struct {
	roomRepo ports.RoomRepository
}

func NewRoomService(roomRepo ports.RoomRepository) ports.RoomService {
	return &roomService{roomRepo: roomRepo}
}

func (s *roomService) CreateRoom(ctx context.Context, title string, seller domain.UserID) (*domain.Room, error) {
	if err := validation.ValidateRoomTitle(title); err != nil {
		return nil, err
	}
	if err := validation.ValidateUserID(int64(seller)); err != nil {
		return nil, err
	}

	room := &domain.Room{
		ID:        domain.RoomID(generateRoomID()),
		Title:     strings.TrimSpace(title),
		Status:    domain.RoomStatusActive,
		SellerID:  seller,
		CreatedAt: time.Now(),
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return room, nil
}

func (s *roomService) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	if err := validation.ValidateRoomID(string(id)); err != nil {
		return nil, err
	}
	return s.roomRepo.GetByID(ctx, id)
}

func (s *roomService) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	return s.roomRepo.ListActive(ctx)
}

// Join is the admission check participants must pass before opening the
// signaling channel. Ended and unknown rooms are rejected so no orphaned
// channel session can be created for them.
func (s *roomService) Join(ctx context.Context, id domain.RoomID, userID domain.UserID, role domain.Role) (*domain.Room, error) {
	if err := validation.ValidateUserID(int64(userID)); err != nil {
		return nil, err
	}
	if role != domain.RoleSeller && role != domain.RoleViewer {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	room, err := s.roomRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !room.Active() {
		return nil, domain.ErrRoomEnded
	}
	if role == domain.RoleSeller && room.SellerID != userID {
		return nil, fmt.Errorf("user %d is not the seller of room %s", userID, id)
	}
	return room, nil
}

func (s *roomService) Leave(ctx context.Context, id domain.RoomID, userID domain.UserID) error {
	room, err := s.roomRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	// The seller leaving ends the room for everyone.
	if room.SellerID == userID {
		return s.EndRoom(ctx, id)
	}
	return nil
}

func (s *roomService) EndRoom(ctx context.Context, id domain.RoomID) error {
	room, err := s.roomRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !room.Active() {
		return nil
	}
	room.Status = domain.RoomStatusEnded
	room.ViewerCount = 0
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return fmt.Errorf("failed to end room: %w", err)
	}
	return nil
}

// SetViewerCount mirrors the relay's live count into the room snapshot that
// REST reads return. The relay is the source of truth.
func (s *roomService) SetViewerCount(ctx context.Context, id domain.RoomID, count int) error {
	room, err := s.roomRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	room.ViewerCount = count
	return s.roomRepo.Update(ctx, room)
}

func generateRoomID() string {
	return "room-" + uuid.NewString()[:8]
}
