package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roomkit/tictactoe-rooms/internal/apperror"
	"github.com/roomkit/tictactoe-rooms/internal/entity"
	"github.com/roomkit/tictactoe-rooms/internal/pkg"
	"github.com/roomkit/tictactoe-rooms/internal/tictactoe"
)

const (
	// Identifier collisions and CAS conflicts are both rare; a handful of
	// attempts is enough before giving up on the request.
	maxCreateAttempts = 5
	maxUpdateAttempts = 5
)

type roomRepo interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	Save(ctx context.Context, room *entity.Room) error
	Update(ctx context.Context, id string, mutate func(room *entity.Room) error) (*entity.Room, error)
}

// RoomManager - owns every state transition of a room. All writers go through
// its CAS-protected operations; nothing else writes room state.
type RoomManager struct {
	logger   *slog.Logger
	roomRepo roomRepo
}

func NewRoomManager(logger *slog.Logger, roomRepo roomRepo) *RoomManager {
	return &RoomManager{
		logger: logger,

		roomRepo: roomRepo,
	}
}

// CreateRoom - allocates a fresh identifier and writes the initial room.
// A taken identifier is regenerated, not treated as an error.
func (that *RoomManager) CreateRoom(ctx context.Context) (*entity.Room, error) {
	log := that.logger.With("method", "CreateRoom")

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		roomID, err := pkg.GenerateRoomID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room id: %w", err)
		}

		room := entity.NewRoom(roomID)

		err = that.roomRepo.Create(ctx, room)
		if errors.Is(err, apperror.ErrRoomAlreadyExists) {
			log.Warn("room id collision, regenerating", "room_id", roomID)
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}

		return room, nil
	}

	return nil, fmt.Errorf("%w: could not allocate a free room id", apperror.ErrConflict)
}

// JoinRoom - claims the first free seat and returns its mark; an empty mark
// means both seats are taken and the caller is a spectator.
func (that *RoomManager) JoinRoom(ctx context.Context, roomID string) (string, error) {
	var seat string

	_, err := that.update(ctx, roomID, func(room *entity.Room) error {
		seat = room.ClaimFreeSeat()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to join room: %w", err)
	}

	return seat, nil
}

// ApplyMove - places the current player's mark on the cell. The accept/reject
// decision, the winner recomputation and the turn flip commit as one
// transition; a rejected move leaves the stored room unchanged.
func (that *RoomManager) ApplyMove(ctx context.Context, roomID string, cell int) (*entity.Room, error) {
	room, err := that.update(ctx, roomID, func(room *entity.Room) error {
		return tictactoe.ApplyMove(room, cell)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply move: %w", err)
	}

	return room, nil
}

// ResetRoom - reinitializes the board for the next game, keeping the seats.
// Concurrent resets converge, so last write wins and no CAS loop is needed.
func (that *RoomManager) ResetRoom(ctx context.Context, roomID string) (*entity.Room, error) {
	room, err := that.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	room.Reset()

	if err = that.roomRepo.Save(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to save room: %w", err)
	}

	return room, nil
}

func (that *RoomManager) GetRoom(ctx context.Context, roomID string) (*entity.Room, error) {
	room, err := that.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

// update - runs the mutate callback through the repository's conditional
// write, retrying a bounded number of times when another writer commits
// first. The callback may run more than once and must be idempotent over a
// re-read room value.
func (that *RoomManager) update(ctx context.Context, roomID string, mutate func(room *entity.Room) error) (*entity.Room, error) {
	log := that.logger.With("method", "update", "room_id", roomID)

	var lastErr error

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		room, err := that.roomRepo.Update(ctx, roomID, mutate)
		if errors.Is(err, apperror.ErrConflict) {
			log.Debug("concurrent update detected, retrying", "attempt", attempt+1)
			lastErr = err
			continue
		}

		if err != nil {
			return nil, err
		}

		return room, nil
	}

	return nil, fmt.Errorf("update retries exhausted: %w", lastErr)
}
