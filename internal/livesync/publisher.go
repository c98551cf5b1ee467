package livesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/roomkit/tictactoe-rooms/internal/apperror"
	"github.com/roomkit/tictactoe-rooms/internal/entity"
)

// PollInterval - how often a viewer's loop re-reads the committed room.
const PollInterval = time.Second

type roomReader interface {
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
}

// Publisher - pushes room snapshots to connected viewers. It is a pure
// observer of the room manager's read path and never writes room state.
type Publisher struct {
	logger   *slog.Logger
	rooms    roomReader
	clock    clockwork.Clock
	interval time.Duration
}

func New(logger *slog.Logger, rooms roomReader, clock clockwork.Clock) *Publisher {
	return &Publisher{
		logger: logger,

		rooms:    rooms,
		clock:    clock,
		interval: PollInterval,
	}
}

// Watch - opens a push channel for one viewer. The current snapshot is
// emitted immediately; afterwards a snapshot is emitted whenever the
// committed room differs from the last one sent to this viewer. The channel
// closes when the context is canceled or the room expires from the store.
func (that *Publisher) Watch(ctx context.Context, roomID string) (<-chan *entity.Room, error) {
	room, err := that.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	log := that.logger.With("component", "livesync", "room_id", roomID, "viewer_id", uuid.NewString())

	updates := make(chan *entity.Room, 1)
	updates <- room

	go that.poll(ctx, log, roomID, room, updates)

	return updates, nil
}

func (that *Publisher) poll(ctx context.Context, log *slog.Logger, roomID string, last *entity.Room, updates chan<- *entity.Room) {
	defer close(updates)

	ticker := that.clock.NewTicker(that.interval)
	defer ticker.Stop()

	log.Info("viewer connected")

	for {
		select {
		case <-ctx.Done():
			log.Info("viewer disconnected")
			return
		case <-ticker.Chan():
		}

		room, err := that.rooms.GetRoom(ctx, roomID)
		if errors.Is(err, apperror.ErrRoomNotFound) {
			log.Info("room expired, closing stream")
			return
		}

		if err != nil {
			log.Error("failed to poll room", "error", err)
			continue
		}

		if reflect.DeepEqual(room, last) {
			continue
		}

		select {
		case updates <- room:
			last = room
		case <-ctx.Done():
			log.Info("viewer disconnected")
			return
		}
	}
}
