package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/roomkit/tictactoe-rooms/internal/apperror"
	"github.com/roomkit/tictactoe-rooms/internal/entity"
	"github.com/roomkit/tictactoe-rooms/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *RoomManager {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("could not start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewRoomManager(logger, repository.NewRoomRepository(client))
}

func TestRoomManager_CreateRoom(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	// When: a room is created
	room, err := manager.CreateRoom(ctx)
	require.NoError(t, err)

	// Then: the identifier is short and the room starts fresh with X to move
	assert.Len(t, room.ID, 6)
	assert.Equal(t, [9]string{"", "", "", "", "", "", "", "", ""}, room.Board)
	assert.Equal(t, entity.PlayerX, room.Turn)
	assert.Empty(t, room.Winner)

	// Then: the stored room matches the returned one
	stored, err := manager.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, stored.ID)
	assert.Equal(t, room.Board, stored.Board)
}

func TestRoomManager_JoinRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("Seats are handed out in order", func(t *testing.T) {
		manager := newTestManager(t)

		room, err := manager.CreateRoom(ctx)
		require.NoError(t, err)

		// When: three participants join one after another
		first, err := manager.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		second, err := manager.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		third, err := manager.JoinRoom(ctx, room.ID)
		require.NoError(t, err)

		// Then: X, then O, then spectator
		assert.Equal(t, entity.PlayerX, first)
		assert.Equal(t, entity.PlayerO, second)
		assert.Empty(t, third)

		// Then: the stored seats carry exactly the two claims
		stored, err := manager.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{entity.PlayerX: true, entity.PlayerO: true}, stored.Seats)
	})

	t.Run("Concurrent joins never hand out the same seat", func(t *testing.T) {
		manager := newTestManager(t)

		room, err := manager.CreateRoom(ctx)
		require.NoError(t, err)

		// When: two participants join at the same instant
		seats := make([]string, 2)
		errs := make([]error, 2)

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				seats[i], errs[i] = manager.JoinRoom(ctx, room.ID)
			}(i)
		}
		wg.Wait()

		// Then: exactly one X and one O assignment
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		assert.ElementsMatch(t, []string{entity.PlayerX, entity.PlayerO}, seats)
	})

	t.Run("Unknown room", func(t *testing.T) {
		manager := newTestManager(t)

		// When: joining a room that was never created
		_, err := manager.JoinRoom(ctx, "missing")

		// Then: an ErrRoomNotFound error should be returned
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestRoomManager_ApplyMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Column win scenario", func(t *testing.T) {
		manager := newTestManager(t)

		room, err := manager.CreateRoom(ctx)
		require.NoError(t, err)

		_, err = manager.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		_, err = manager.JoinRoom(ctx, room.ID)
		require.NoError(t, err)

		// When: X and O alternate until X completes column 0-3-6
		var result *entity.Room
		for _, cell := range []int{0, 1, 3, 4, 6} {
			result, err = manager.ApplyMove(ctx, room.ID, cell)
			require.NoError(t, err)
		}

		// Then: X wins with the expected board
		assert.Equal(t, entity.PlayerX, result.Winner)
		assert.Equal(t, [9]string{
			entity.PlayerX, entity.PlayerO, "",
			entity.PlayerX, entity.PlayerO, "",
			entity.PlayerX, "", "",
		}, result.Board)
	})

	t.Run("Occupied cell leaves the stored room unchanged", func(t *testing.T) {
		manager := newTestManager(t)

		room, err := manager.CreateRoom(ctx)
		require.NoError(t, err)

		_, err = manager.ApplyMove(ctx, room.ID, 0)
		require.NoError(t, err)

		before, err := manager.GetRoom(ctx, room.ID)
		require.NoError(t, err)

		// When: the next move targets the occupied cell
		_, err = manager.ApplyMove(ctx, room.ID, 0)

		// Then: the move is rejected and nothing was committed
		require.ErrorIs(t, err, apperror.ErrCellOccupied)

		after, err := manager.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Move after the game is decided", func(t *testing.T) {
		manager := newTestManager(t)

		room, err := manager.CreateRoom(ctx)
		require.NoError(t, err)

		for _, cell := range []int{0, 1, 3, 4, 6} {
			_, err = manager.ApplyMove(ctx, room.ID, cell)
			require.NoError(t, err)
		}

		// When: a move is attempted after X already won
		_, err = manager.ApplyMove(ctx, room.ID, 8)

		// Then: the move is rejected as the game is finished
		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("Concurrent moves on the same cell accept exactly one", func(t *testing.T) {
		manager := newTestManager(t)

		room, err := manager.CreateRoom(ctx)
		require.NoError(t, err)

		// When: two moves target the same empty cell at the same instant
		errs := make([]error, 2)

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = manager.ApplyMove(ctx, room.ID, 4)
			}(i)
		}
		wg.Wait()

		// Then: one acceptance and one occupied-cell rejection
		var accepted, rejected int
		for _, err := range errs {
			switch {
			case err == nil:
				accepted++
			case assert.ErrorIs(t, err, apperror.ErrCellOccupied):
				rejected++
			}
		}
		assert.Equal(t, 1, accepted)
		assert.Equal(t, 1, rejected)

		// Then: the cell carries a single mark and the turn advanced once
		stored, err := manager.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerX, stored.Board[4])
		assert.Equal(t, entity.PlayerO, stored.Turn)
		assert.Len(t, stored.MoveLog, 1)
	})

	t.Run("Unknown room", func(t *testing.T) {
		manager := newTestManager(t)

		// When: a move targets a room that was never created
		_, err := manager.ApplyMove(ctx, "missing", 0)

		// Then: an ErrRoomNotFound error should be returned
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestRoomManager_ResetRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("Restores a fresh board and keeps the seats", func(t *testing.T) {
		manager := newTestManager(t)

		room, err := manager.CreateRoom(ctx)
		require.NoError(t, err)

		_, err = manager.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		_, err = manager.JoinRoom(ctx, room.ID)
		require.NoError(t, err)

		for _, cell := range []int{0, 1, 3, 4, 6} {
			_, err = manager.ApplyMove(ctx, room.ID, cell)
			require.NoError(t, err)
		}

		// When: the room is reset after a decided game
		reset, err := manager.ResetRoom(ctx, room.ID)
		require.NoError(t, err)

		// Then: empty board, no winner, seats preserved, O opens the next game
		assert.Equal(t, [9]string{"", "", "", "", "", "", "", "", ""}, reset.Board)
		assert.Empty(t, reset.Winner)
		assert.Equal(t, map[string]bool{entity.PlayerX: true, entity.PlayerO: true}, reset.Seats)
		assert.Equal(t, entity.PlayerO, reset.StartingPlayer)
		assert.Equal(t, entity.PlayerO, reset.Turn)
	})

	t.Run("Unknown room", func(t *testing.T) {
		manager := newTestManager(t)

		// When: resetting a room that was never created
		_, err := manager.ResetRoom(ctx, "missing")

		// Then: an ErrRoomNotFound error should be returned
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}
