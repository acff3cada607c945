package model

import "time"

// GameSettings holds the configurable rules parameters of a game.
type GameSettings struct {
	// StartingPieces is the number of pieces each player begins with,
	// and therefore the score required to win.
	StartingPieces int
}

// StandardSettings returns the settings used for quick-match and
// link-created games.
func StandardSettings() GameSettings {
	return GameSettings{
		StartingPieces: 7,
	}
}

// Reservation is a claimed game ID awaiting a second participant,
// used for shareable invite links.
type Reservation struct {
	GameID    GameID
	Settings  GameSettings
	Creator   Identity
	CreatedAt time.Time
}

// GameRecord is the in-memory record of a started game.
type GameRecord struct {
	GameID    GameID
	Settings  GameSettings
	Light     Identity
	Dark      Identity
	CreatedAt time.Time
}

// GameSummary is a read-only snapshot of a live session, exposed by the
// session manager for listings.
type GameSummary struct {
	GameID         GameID `json:"game_id"`
	LightName      string `json:"light_name"`
	DarkName       string `json:"dark_name"`
	LightConnected bool   `json:"light_connected"`
	DarkConnected  bool   `json:"dark_connected"`
	Finished       bool   `json:"finished"`
}
