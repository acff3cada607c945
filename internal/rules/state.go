package rules

import (
	"github.com/urnet/gameserver/internal/model"
)

// PlayerState tracks one player's pieces still waiting to enter the
// board and their score so far.
type PlayerState struct {
	Pieces int
	Score  int
}

// State is the full position of a game: tile ownership, both players'
// piece pools, and whose turn it is. It carries no synchronization;
// the owning session serializes access.
type State struct {
	Board  [TileCount]model.Seat
	Light  PlayerState
	Dark   PlayerState
	Turn   model.Seat
	Target int
}

func newState(settings model.GameSettings, first model.Seat) *State {
	return &State{
		Light:  PlayerState{Pieces: settings.StartingPieces},
		Dark:   PlayerState{Pieces: settings.StartingPieces},
		Turn:   first,
		Target: settings.StartingPieces,
	}
}

func (s *State) Player(seat model.Seat) *PlayerState {
	if seat == model.SeatLight {
		return &s.Light
	}
	return &s.Dark
}

func (s *State) Finished() bool {
	return s.Light.Score >= s.Target || s.Dark.Score >= s.Target
}

// Winner returns the seat that reached the target score, or SeatNone
// while the game is still running.
func (s *State) Winner() model.Seat {
	switch {
	case s.Light.Score >= s.Target:
		return model.SeatLight
	case s.Dark.Score >= s.Target:
		return model.SeatDark
	default:
		return model.SeatNone
	}
}
