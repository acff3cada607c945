package model

import "errors"

// Common errors used across the application
var (
	// Game ID errors
	ErrInvalidGameID = errors.New("invalid game ID")

	// Repository errors
	ErrGameNotFound     = errors.New("game not found")
	ErrNotReserved      = errors.New("game ID is not reserved")
	ErrAlreadyCreated   = errors.New("game has already been created")
	ErrReservationTaken = errors.New("game ID is already taken")

	// Session errors
	ErrNotYourTurn     = errors.New("not this player's turn")
	ErrNotAwaitingRoll = errors.New("not awaiting a dice roll")
	ErrNotAwaitingMove = errors.New("not awaiting a move")
	ErrIllegalMove     = errors.New("move is not in the legal move set")
	ErrNotAPlayer      = errors.New("client is not a player in the game")
	ErrGameFinished    = errors.New("game is already finished")

	// Connection errors
	ErrDisconnected = errors.New("connection is disconnected")
)
