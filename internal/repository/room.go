package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/roomkit/tictactoe-rooms/internal/apperror"
	"github.com/roomkit/tictactoe-rooms/internal/entity"
)

const (
	roomKeyPrefix = "room:"

	// Rooms expire after a day of inactivity; every write resets the clock.
	roomTTL = 24 * time.Hour
)

type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	Save(ctx context.Context, room *entity.Room) error
	Update(ctx context.Context, id string, mutate func(room *entity.Room) error) (*entity.Room, error)
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

// Create - writes the room only if its key is not already taken, so an
// identifier collision is detected instead of overwriting a live game.
func (that *dbRoom) Create(ctx context.Context, room *entity.Room) error {
	payload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	ok, err := that.client.SetNX(ctx, roomKeyPrefix+room.ID, payload, roomTTL).Result()
	if err != nil {
		return fmt.Errorf("%w: failed to create room: %v", apperror.ErrStoreUnavailable, err)
	}

	if !ok {
		return apperror.ErrRoomAlreadyExists
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, roomKeyPrefix+id).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: failed to get room: %v", apperror.ErrStoreUnavailable, err)
	}

	var room entity.Room
	if err = json.Unmarshal([]byte(response), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}

func (that *dbRoom) Save(ctx context.Context, room *entity.Room) error {
	payload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	if err = that.client.Set(ctx, roomKeyPrefix+room.ID, payload, roomTTL).Err(); err != nil {
		return fmt.Errorf("%w: failed to save room: %v", apperror.ErrStoreUnavailable, err)
	}

	return nil
}

// Update - the conditional-write primitive. The room key is watched while the
// mutate callback runs against the current value; the commit succeeds only if
// no other writer touched the key in between, otherwise apperror.ErrConflict
// is returned and the caller decides whether to retry. An error from the
// mutate callback aborts the transaction with the room untouched.
func (that *dbRoom) Update(ctx context.Context, id string, mutate func(room *entity.Room) error) (*entity.Room, error) {
	key := roomKeyPrefix + id

	var updated *entity.Room

	err := that.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrRoomNotFound
		}

		if err != nil {
			return fmt.Errorf("%w: failed to get room: %v", apperror.ErrStoreUnavailable, err)
		}

		var room entity.Room
		if err = json.Unmarshal(raw, &room); err != nil {
			return fmt.Errorf("failed to unmarshal room: %w", err)
		}

		if err = mutate(&room); err != nil {
			return err
		}

		payload, err := json.Marshal(&room)
		if err != nil {
			return fmt.Errorf("could not marshal room: %w", err)
		}

		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, payload, roomTTL)

		if _, err = pipe.Exec(ctx); err != nil {
			return err
		}

		updated = &room

		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, apperror.ErrConflict
	}

	if err != nil {
		return nil, err
	}

	return updated, nil
}
