package entity

const (
	PlayerX   = "X"
	PlayerO   = "O"
	PlayerTie = "-"

	EmptyCell = ""
)

// Move - one accepted move: which mark was placed on which cell.
type Move struct {
	Mark string `json:"mark"`
	Cell int    `json:"cell"`
}

// Room - the persisted state of one game instance, keyed by a short public identifier.
type Room struct {
	ID             string          `json:"id"`
	Board          [9]string       `json:"board"`
	Turn           string          `json:"player_turn"`
	Winner         string          `json:"winner,omitempty"`
	Seats          map[string]bool `json:"seats,omitempty"`
	StartingPlayer string          `json:"starting_player,omitempty"`
	History        [][9]string     `json:"history,omitempty"`
	MoveLog        []Move          `json:"move_log,omitempty"`
}

func NewRoom(id string) *Room {
	return &Room{
		ID:             id,
		Board:          [9]string{EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell},
		Turn:           PlayerX,
		StartingPlayer: PlayerX,
		Seats:          map[string]bool{},
	}
}

func (that *Room) IsFinished() bool {
	return that.Winner != ""
}

// ClaimFreeSeat - claims the first unclaimed seat and returns its mark.
// Returns an empty mark when both seats are taken; the caller is a spectator.
func (that *Room) ClaimFreeSeat() string {
	if that.Seats == nil {
		that.Seats = map[string]bool{}
	}

	for _, mark := range []string{PlayerX, PlayerO} {
		if !that.Seats[mark] {
			that.Seats[mark] = true
			return mark
		}
	}

	return ""
}

// Reset - reinitializes the board for the next game. Seats survive a reset;
// the starting player alternates so the other mark opens.
func (that *Room) Reset() {
	that.Board = [9]string{EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell}
	that.Winner = ""
	that.History = nil
	that.MoveLog = nil

	that.StartingPlayer = OtherMark(that.StartingPlayer)
	that.Turn = that.StartingPlayer
}

func OtherMark(mark string) string {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
