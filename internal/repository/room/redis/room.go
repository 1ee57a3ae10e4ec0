package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/repository/room"
)

func (r repo) getRoomKey(roomID string) string {
	return "room:" + roomID
}

func (r repo) getRoomsKey() string {
	return "rooms"
}

func (r repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	r.logger.DebugContext(ctx, "called", "room_id", params.Room.ID)
	data, err := json.Marshal(params.Room)
	if err != nil {
		return fmt.Errorf("failed to encode room: %w", err)
	}

	pipe := r.rc.TxPipeline()
	created := pipe.SetNX(ctx, r.getRoomKey(params.Room.ID), data, r.expireDuration)
	pipe.SAdd(ctx, r.getRoomsKey(), params.Room.ID)

	if err := r.executePipe(ctx, pipe); err != nil {
		return err
	}

	if !created.Val() {
		return room.ErrRoomAlreadyExists
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	data, err := r.rc.Get(ctx, r.getRoomKey(roomID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Room{}, room.ErrRoomNotFound
		}
		return domain.Room{}, err
	}

	return r.decodeRoom(data)
}

// GetRooms returns every stored room. Ids of expired rooms are dropped from
// the index on the way.
func (r repo) GetRooms(ctx context.Context) ([]domain.Room, error) {
	roomIDs, err := r.rc.SMembers(ctx, r.getRoomsKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(roomIDs) == 0 {
		return []domain.Room{}, nil
	}

	keys := make([]string, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		keys = append(keys, r.getRoomKey(roomID))
	}

	values, err := r.rc.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	rooms := make([]domain.Room, 0, len(values))
	expired := make([]any, 0)
	for i, value := range values {
		data, ok := value.(string)
		if !ok {
			expired = append(expired, roomIDs[i])
			continue
		}

		decoded, err := r.decodeRoom([]byte(data))
		if err != nil {
			r.logger.WarnContext(ctx, "failed to decode room", "room_id", roomIDs[i], "error", err)
			continue
		}
		rooms = append(rooms, decoded)
	}

	if len(expired) > 0 {
		if err := r.rc.SRem(ctx, r.getRoomsKey(), expired...).Err(); err != nil {
			r.logger.WarnContext(ctx, "failed to prune expired rooms", "error", err)
		}
	}

	return rooms, nil
}

// UpdateRoom runs params.Update against the stored room inside an optimistic
// transaction and returns the room as written. The expiry is kept.
func (r repo) UpdateRoom(ctx context.Context, params *room.UpdateRoomParams) (domain.Room, error) {
	r.logger.DebugContext(ctx, "called", "room_id", params.RoomID)
	roomKey := r.getRoomKey(params.RoomID)

	var updated domain.Room
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, roomKey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return room.ErrRoomNotFound
			}
			return err
		}

		current, err := r.decodeRoom(data)
		if err != nil {
			return fmt.Errorf("failed to decode room: %w", err)
		}
		if err := params.Update(&current); err != nil {
			return err
		}

		encoded, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to encode room: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, roomKey, encoded, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}

		updated = current
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.rc.Watch(ctx, txf, roomKey)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return domain.Room{}, err
		}
		r.logger.DebugContext(ctx, "room update conflicted, retrying", "attempt", i+1)
	}

	return domain.Room{}, room.ErrConflict
}

func (r repo) RemoveRoom(ctx context.Context, roomID string) error {
	pipe := r.rc.TxPipeline()
	deleted := pipe.Del(ctx, r.getRoomKey(roomID))
	pipe.SRem(ctx, r.getRoomsKey(), roomID)

	if err := r.executePipe(ctx, pipe); err != nil {
		return err
	}

	if deleted.Val() == 0 {
		return room.ErrRoomNotFound
	}

	return nil
}
