package tictactoe

import (
	"github.com/roomkit/tictactoe-rooms/internal/apperror"
	"github.com/roomkit/tictactoe-rooms/internal/entity"
)

// WinCombos - 3 rows, 3 columns and 2 diagonals.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Evaluate - returns the mark holding a complete line, entity.PlayerTie when
// every cell is filled with no complete line, or an empty string while the
// game is ongoing.
func Evaluate(board [9]string) string {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return a
		}
	}

	for _, cell := range board {
		if cell == entity.EmptyCell {
			return ""
		}
	}

	return entity.PlayerTie
}

// ApplyMove - places the current player's mark on the cell, recomputes the
// winner and passes the turn. The room is left untouched on a rejected move.
func ApplyMove(room *entity.Room, cell int) error {
	if room.IsFinished() {
		return apperror.ErrGameFinished
	}

	if cell < 0 || cell >= len(room.Board) {
		return apperror.ErrInvalidCell
	}

	if room.Board[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	mark := room.Turn
	room.Board[cell] = mark
	room.Winner = Evaluate(room.Board)
	room.Turn = entity.OtherMark(mark)

	room.History = append(room.History, room.Board)
	room.MoveLog = append(room.MoveLog, entity.Move{Mark: mark, Cell: cell})

	return nil
}
