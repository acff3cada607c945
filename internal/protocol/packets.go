// Package protocol implements the versioned text wire protocol spoken
// between the server and its clients. Frames are short UTF-8 strings:
// the first character is a decimal digit selecting the packet type, and
// the remaining characters are positional fields.
package protocol

import (
	"github.com/google/uuid"

	"github.com/urnet/gameserver/internal/model"
)

// Version is the current protocol version. Each breaking change to the
// protocol between the server and the client increments it. Clients
// reporting any other version are rejected before any session state is
// touched.
const Version = 5

// Wire sentinels for tiles in Move and GameMove packets.
const (
	// MoveIntroduce as the "from" field of an incoming Move means the
	// player is introducing a new piece rather than moving one on the
	// board.
	MoveIntroduce = 99
	// TileIntroduce as the source of an outgoing GameMove marks a piece
	// entering the board.
	TileIntroduce = 88
	// TileScore as the destination of an outgoing GameMove marks a piece
	// moving off the board and scoring.
	TileScore = 99
)

// BoardTiles is the number of board tiles carried in a GameState frame.
const BoardTiles = 24

// ClientPacketType enumerates the closed set of incoming packet types.
type ClientPacketType int

const (
	TypeOpen ClientPacketType = iota
	TypeReopen
	TypeJoinGame
	TypeFindGame
	TypeCreateGame
	TypeRoll
	TypeMove
)

func (t ClientPacketType) String() string {
	switch t {
	case TypeOpen:
		return "open"
	case TypeReopen:
		return "reopen"
	case TypeJoinGame:
		return "join_game"
	case TypeFindGame:
		return "find_game"
	case TypeCreateGame:
		return "create_game"
	case TypeRoll:
		return "roll"
	case TypeMove:
		return "move"
	default:
		return "unknown"
	}
}

// ClientPacket is the closed union of packets a client may send.
// Dispatch on it with an exhaustive type switch.
type ClientPacket interface {
	Type() ClientPacketType
}

// Open is the handshake packet of a client with no previous session.
type Open struct {
	ProtocolVersion int
	Name            string
}

// Reopen is the handshake packet of a client attempting to resume a
// previous session after a network interruption.
type Reopen struct {
	ProtocolVersion int
	PreviousToken   uuid.UUID
	Name            string
}

// JoinGame asks to join an existing or reserved game by ID.
type JoinGame struct {
	GameID model.GameID
}

// FindGame asks to be paired with the next client looking for a match.
type FindGame struct{}

// CreateGame asks for a reserved game ID to share as an invite link.
type CreateGame struct{}

// Roll asks to roll the dice in the given game.
type Roll struct {
	GameID model.GameID
}

// Move asks to move the piece on tile From, or to introduce a new piece
// when Introduce is set (wire value MoveIntroduce).
type Move struct {
	GameID    model.GameID
	From      int
	Introduce bool
}

func (Open) Type() ClientPacketType       { return TypeOpen }
func (Reopen) Type() ClientPacketType     { return TypeReopen }
func (JoinGame) Type() ClientPacketType   { return TypeJoinGame }
func (FindGame) Type() ClientPacketType   { return TypeFindGame }
func (CreateGame) Type() ClientPacketType { return TypeCreateGame }
func (Roll) Type() ClientPacketType       { return TypeRoll }
func (Move) Type() ClientPacketType       { return TypeMove }

// ServerPacketType enumerates the closed set of outgoing packet types.
type ServerPacketType int

const (
	TypeError ServerPacketType = iota
	TypeSetID
	TypeGameInvalid
	TypeGamePending
	TypeGameMetadata
	TypeGameEnd
	TypeGameMessage
	TypePlayerStatus
	TypeGameState
	TypeGameMove
)

func (t ServerPacketType) String() string {
	switch t {
	case TypeError:
		return "error"
	case TypeSetID:
		return "set_id"
	case TypeGameInvalid:
		return "game_invalid"
	case TypeGamePending:
		return "game_pending"
	case TypeGameMetadata:
		return "game_metadata"
	case TypeGameEnd:
		return "game_end"
	case TypeGameMessage:
		return "game_message"
	case TypePlayerStatus:
		return "player_status"
	case TypeGameState:
		return "game_state"
	case TypeGameMove:
		return "game_move"
	default:
		return "unknown"
	}
}

// ServerPacket is the closed union of packets the server may send.
type ServerPacket interface {
	Type() ServerPacketType
}

// Error reports a failure to the client; the transport is closed after
// it is sent.
type Error struct {
	Message string
}

// SetID informs the client of its session token, sent once per
// successful handshake.
type SetID struct {
	Token uuid.UUID
}

// GameInvalid tells the client that the game ID it used is unknown.
type GameInvalid struct {
	GameID model.GameID
}

// GamePending tells a reservation's creator their game awaits an opponent.
type GamePending struct {
	GameID model.GameID
}

// GameMetadata describes a game to a client that just joined it.
type GameMetadata struct {
	GameID         model.GameID
	YourSeat       model.Seat
	LightName      string
	DarkName       string
	LightConnected bool
	DarkConnected  bool
}

// GameEnd tells all participants that a game stopped, with a
// human-readable reason.
type GameEnd struct {
	GameID model.GameID
	Reason string
}

// GameMessage carries a transient display message for a game.
type GameMessage struct {
	GameID  model.GameID
	Text    string
	Subtext string
}

// PlayerStatus reports a seat's connect/disconnect transition to every
// participant of a game.
type PlayerStatus struct {
	GameID    model.GameID
	Player    model.Seat
	Connected bool
}

// PlayerSummary is the per-player portion of a GameState frame.
type PlayerSummary struct {
	Pieces int
	Score  int
}

// GameState carries the full observable game state. Dice and HasMoves
// are only present on the wire when HasRoll is set.
type GameState struct {
	GameID     model.GameID
	Light      PlayerSummary
	Dark       PlayerSummary
	Board      [BoardTiles]model.Seat
	Finished   bool
	TurnPlayer model.Seat
	HasRoll    bool
	Dice       [4]int
	HasMoves   bool
}

// GameMove reports a performed move. Source is TileIntroduce for a piece
// entering the board; Dest is TileScore for a piece scoring off it.
type GameMove struct {
	GameID model.GameID
	Source int
	Dest   int
}

func (Error) Type() ServerPacketType        { return TypeError }
func (SetID) Type() ServerPacketType        { return TypeSetID }
func (GameInvalid) Type() ServerPacketType  { return TypeGameInvalid }
func (GamePending) Type() ServerPacketType  { return TypeGamePending }
func (GameMetadata) Type() ServerPacketType { return TypeGameMetadata }
func (GameEnd) Type() ServerPacketType      { return TypeGameEnd }
func (GameMessage) Type() ServerPacketType  { return TypeGameMessage }
func (PlayerStatus) Type() ServerPacketType { return TypePlayerStatus }
func (GameState) Type() ServerPacketType    { return TypeGameState }
func (GameMove) Type() ServerPacketType     { return TypeGameMove }
