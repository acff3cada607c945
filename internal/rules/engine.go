package rules

import (
	"fmt"

	"github.com/urnet/gameserver/internal/dependencies/random"
	"github.com/urnet/gameserver/internal/model"
)

// Move takes a piece from one path tile to the next one the roll allows.
// Introduce means the piece enters from the player's pool; Score means
// it leaves the board and counts toward the target.
type Move struct {
	From      Tile
	To        Tile
	Introduce bool
	Score     bool
}

func (m Move) String() string {
	return fmt.Sprintf("%s -> %s", m.From, m.To)
}

// MoveResult describes what applying a move did to the position.
type MoveResult struct {
	Captured bool
	Scored   bool
	Rosette  bool
	Finished bool
}

// Engine is the rules collaborator sessions play games through.
type Engine interface {
	NewState(settings model.GameSettings, first model.Seat) *State
	RollDice() Roll
	LegalMoves(s *State, seat model.Seat, value int) []Move
	ApplyMove(s *State, seat model.Seat, m Move) MoveResult
}

type standardEngine struct {
	random random.Random
}

func NewEngine(r random.Random) Engine {
	return &standardEngine{random: r}
}

func (e *standardEngine) NewState(settings model.GameSettings, first model.Seat) *State {
	return newState(settings, first)
}

func (e *standardEngine) RollDice() Roll {
	return rollDice(e.random)
}

// LegalMoves enumerates every move the seat can make with the given
// roll value. A piece may not land on a friendly piece, may not capture
// on a rosette, and must land exactly on the exit tile to score.
func (e *standardEngine) LegalMoves(s *State, seat model.Seat, value int) []Move {
	if value == 0 {
		return nil
	}

	path := PathFor(seat)

	var froms []Tile
	for index, owner := range s.Board {
		if owner == seat {
			froms = append(froms, TileAt(index))
		}
	}
	if s.Player(seat).Pieces > 0 {
		froms = append(froms, path[0])
	}

	var moves []Move
	for _, from := range froms {
		fromIndex := pathIndex(path, from)
		if fromIndex < 0 {
			continue
		}

		toIndex := fromIndex + value
		if toIndex >= len(path) {
			continue
		}

		to := path[toIndex]
		occupant := s.Board[to.Index()]
		if occupant == seat || (occupant != model.SeatNone && to.Rosette()) {
			continue
		}

		moves = append(moves, Move{
			From:      from,
			To:        to,
			Introduce: fromIndex == 0,
			Score:     toIndex == len(path)-1,
		})
	}

	return moves
}

func (e *standardEngine) ApplyMove(s *State, seat model.Seat, m Move) MoveResult {
	var result MoveResult

	player := s.Player(seat)
	if m.Introduce {
		player.Pieces--
	}

	if occupant := s.Board[m.To.Index()]; occupant != model.SeatNone {
		s.Player(occupant).Pieces++
		result.Captured = true
	}

	s.Board[m.From.Index()] = model.SeatNone

	if m.Score {
		s.Board[m.To.Index()] = model.SeatNone
		player.Score++
		result.Scored = true
	} else {
		s.Board[m.To.Index()] = seat
	}

	if m.To.Rosette() {
		result.Rosette = true
	} else {
		s.Turn = seat.Other()
	}

	if s.Finished() {
		s.Turn = seat
		result.Finished = true
	}

	return result
}

func pathIndex(path []Tile, tile Tile) int {
	for i, t := range path {
		if t == tile {
			return i
		}
	}
	return -1
}
