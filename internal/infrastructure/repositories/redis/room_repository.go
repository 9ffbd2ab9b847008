package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const activeRoomsKey = "livecart:rooms:active"

// RedisRoomRepository persists room snapshots so every relay instance and
// the REST layer agree on which rooms exist and are live.
type RedisRoomRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRoomRepository(client *redis.Client) ports.RoomRepository {
	return &RedisRoomRepository{
		client: client,
		prefix: "livecart:room:",
	}
}

func (r *RedisRoomRepository) roomKey(id domain.RoomID) string {
	return r.prefix + string(id)
}

func (r *RedisRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.roomKey(room.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set room in Redis: %w", err)
	}
	if !ok {
		return domain.ErrRoomExists
	}

	if err := r.client.SAdd(ctx, activeRoomsKey, string(room.ID)).Err(); err != nil {
		return fmt.Errorf("failed to index room: %w", err)
	}
	return nil
}

func (r *RedisRoomRepository) GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	data, err := r.client.Get(ctx, r.roomKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room from Redis: %w", err)
	}

	var room domain.Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return &room, nil
}

func (r *RedisRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	ok, err := r.client.SetXX(ctx, r.roomKey(room.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to update room in Redis: %w", err)
	}
	if !ok {
		return domain.ErrRoomNotFound
	}

	if !room.Active() {
		if err := r.client.SRem(ctx, activeRoomsKey, string(room.ID)).Err(); err != nil {
			return fmt.Errorf("failed to deindex room: %w", err)
		}
	}
	return nil
}

func (r *RedisRoomRepository) Delete(ctx context.Context, id domain.RoomID) error {
	deleted, err := r.client.Del(ctx, r.roomKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete room from Redis: %w", err)
	}
	if deleted == 0 {
		return domain.ErrRoomNotFound
	}

	if err := r.client.SRem(ctx, activeRoomsKey, string(id)).Err(); err != nil {
		return fmt.Errorf("failed to deindex room: %w", err)
	}
	return nil
}

func (r *RedisRoomRepository) ListActive(ctx context.Context) ([]*domain.Room, error) {
	ids, err := r.client.SMembers(ctx, activeRoomsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active rooms: %w", err)
	}

	var rooms []*domain.Room
	for _, id := range ids {
		room, err := r.GetByID(ctx, domain.RoomID(id))
		if err == domain.ErrRoomNotFound {
			// Index entry outlived the room; self-heal.
			r.client.SRem(ctx, activeRoomsKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if room.Active() {
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}
