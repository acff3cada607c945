package protocol

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urnet/gameserver/internal/model"
)

const testGameID = "abcdefgh"

func mustGameID(t *testing.T, s string) model.GameID {
	t.Helper()
	id, err := model.ParseGameID(s)
	require.NoError(t, err)
	return id
}

// Decode tests

func TestDecodeOpen(t *testing.T) {
	packet, err := Decode("0000505Alice")
	require.NoError(t, err)

	open, ok := packet.(Open)
	require.True(t, ok)
	assert.Equal(t, 5, open.ProtocolVersion)
	assert.Equal(t, "Alice", open.Name)
}

func TestDecodeOpenEmptyName(t *testing.T) {
	packet, err := Decode("0000500")
	require.NoError(t, err)
	assert.Equal(t, Open{ProtocolVersion: 5}, packet)
}

func TestDecodeReopen(t *testing.T) {
	token := uuid.MustParse("8f14e45f-ceea-467f-a34e-9b79a9c3a1f2")
	packet, err := Decode("10005" + token.String() + "03Bob")
	require.NoError(t, err)

	reopen, ok := packet.(Reopen)
	require.True(t, ok)
	assert.Equal(t, 5, reopen.ProtocolVersion)
	assert.Equal(t, token, reopen.PreviousToken)
	assert.Equal(t, "Bob", reopen.Name)
}

func TestDecodeReopenBadUUID(t *testing.T) {
	bad := strings.Repeat("z", 36)
	_, err := Decode("10005" + bad + "03Bob")

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "reopen", decodeErr.PacketType)
}

func TestDecodeJoinGame(t *testing.T) {
	packet, err := Decode("2" + testGameID)
	require.NoError(t, err)
	assert.Equal(t, JoinGame{GameID: mustGameID(t, testGameID)}, packet)
}

func TestDecodeJoinGameBadAlphabet(t *testing.T) {
	_, err := Decode("2abc0efgh")

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "join_game", decodeErr.PacketType)
}

func TestDecodeFindGame(t *testing.T) {
	packet, err := Decode("3")
	require.NoError(t, err)
	assert.Equal(t, FindGame{}, packet)
}

func TestDecodeCreateGame(t *testing.T) {
	packet, err := Decode("4")
	require.NoError(t, err)
	assert.Equal(t, CreateGame{}, packet)
}

func TestDecodeRoll(t *testing.T) {
	packet, err := Decode("5" + testGameID)
	require.NoError(t, err)
	assert.Equal(t, Roll{GameID: mustGameID(t, testGameID)}, packet)
}

func TestDecodeMove(t *testing.T) {
	packet, err := Decode("6" + testGameID + "07")
	require.NoError(t, err)
	assert.Equal(t, Move{GameID: mustGameID(t, testGameID), From: 7}, packet)
}

func TestDecodeMoveIntroduce(t *testing.T) {
	packet, err := Decode("6" + testGameID + "99")
	require.NoError(t, err)
	assert.Equal(t, Move{GameID: mustGameID(t, testGameID), Introduce: true}, packet)
}

func TestDecodeEmptyFrame(t *testing.T) {
	_, err := Decode("")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestDecodeNonDigitType(t *testing.T) {
	_, err := Decode("x12345")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode("9" + testGameID)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Error(), "unknown packet type")
}

func TestDecodeTruncatedInt(t *testing.T) {
	_, err := Decode("000")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "open", decodeErr.PacketType)
}

func TestDecodeNonNumericInt(t *testing.T) {
	_, err := Decode("0abcd02hi")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestDecodeVarStringShorterThanLength(t *testing.T) {
	_, err := Decode("0000512Bob")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestDecodeTrailingGarbage(t *testing.T) {
	_, err := Decode("0000503Bobextra")

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "open", decodeErr.PacketType)
	assert.Contains(t, decodeErr.Reason, `"extra"`)
}

func TestDecodeTrailingGarbageOnEmptyPacket(t *testing.T) {
	_, err := Decode("3junk")

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "find_game", decodeErr.PacketType)
}

// Encode tests

func TestEncodeError(t *testing.T) {
	assert.Equal(t, "0something broke", Encode(Error{Message: "something broke"}))
}

func TestEncodeSetID(t *testing.T) {
	token := uuid.MustParse("8f14e45f-ceea-467f-a34e-9b79a9c3a1f2")
	assert.Equal(t, "1"+token.String(), Encode(SetID{Token: token}))
}

func TestEncodeGameInvalid(t *testing.T) {
	id := mustGameID(t, testGameID)
	assert.Equal(t, "2"+testGameID, Encode(GameInvalid{GameID: id}))
}

func TestEncodeGamePending(t *testing.T) {
	id := mustGameID(t, testGameID)
	assert.Equal(t, "3"+testGameID, Encode(GamePending{GameID: id}))
}

func TestEncodeGameMetadata(t *testing.T) {
	id := mustGameID(t, testGameID)
	frame := Encode(GameMetadata{
		GameID:         id,
		YourSeat:       model.SeatLight,
		LightName:      "Alice",
		DarkName:       "Bob",
		LightConnected: true,
		DarkConnected:  false,
	})
	assert.Equal(t, "4"+testGameID+"2"+"05Alice"+"03Bob"+"t"+"f", frame)
}

func TestEncodeGameMetadataSpectatorSeat(t *testing.T) {
	id := mustGameID(t, testGameID)
	frame := Encode(GameMetadata{
		GameID:    id,
		YourSeat:  model.SeatNone,
		LightName: "A",
		DarkName:  "B",
	})
	// Spectators see seat digit 3.
	assert.Equal(t, "4"+testGameID+"3"+"01A"+"01B"+"f"+"f", frame)
}

func TestEncodeGameEnd(t *testing.T) {
	id := mustGameID(t, testGameID)
	frame := Encode(GameEnd{GameID: id, Reason: "Your opponent abandoned the game"})
	assert.Equal(t, "5"+testGameID+"Your opponent abandoned the game", frame)
}

func TestEncodeGameMessage(t *testing.T) {
	id := mustGameID(t, testGameID)
	frame := Encode(GameMessage{GameID: id, Text: "No moves", Subtext: ""})
	assert.Equal(t, "6"+testGameID+"08No moves"+"00", frame)
}

func TestEncodePlayerStatus(t *testing.T) {
	id := mustGameID(t, testGameID)
	frame := Encode(PlayerStatus{GameID: id, Player: model.SeatDark, Connected: true})
	assert.Equal(t, "7"+testGameID+"1t", frame)
}

func TestEncodeGameStateAwaitingRoll(t *testing.T) {
	id := mustGameID(t, testGameID)
	var board [BoardTiles]model.Seat
	board[0] = model.SeatLight
	board[5] = model.SeatDark

	frame := Encode(GameState{
		GameID:     id,
		Light:      PlayerSummary{Pieces: 6, Score: 0},
		Dark:       PlayerSummary{Pieces: 6, Score: 1},
		Board:      board,
		TurnPlayer: model.SeatLight,
	})

	want := "8" + testGameID + "60" + "61" +
		"200001000000000000000000" + "f" + "2" + "f"
	assert.Equal(t, want, frame)
}

func TestEncodeGameStateWithRoll(t *testing.T) {
	id := mustGameID(t, testGameID)
	frame := Encode(GameState{
		GameID:     id,
		Light:      PlayerSummary{Pieces: 7},
		Dark:       PlayerSummary{Pieces: 7},
		TurnPlayer: model.SeatDark,
		HasRoll:    true,
		Dice:       [4]int{1, 4, 2, 6},
		HasMoves:   true,
	})

	want := "8" + testGameID + "70" + "70" +
		strings.Repeat("0", BoardTiles) + "f" + "1" + "t" + "1426" + "t"
	assert.Equal(t, want, frame)
}

func TestEncodeGameMove(t *testing.T) {
	id := mustGameID(t, testGameID)
	assert.Equal(t, "9"+testGameID+"0312",
		Encode(GameMove{GameID: id, Source: 3, Dest: 12}))
}

func TestEncodeGameMoveSentinels(t *testing.T) {
	id := mustGameID(t, testGameID)
	assert.Equal(t, "9"+testGameID+"8899",
		Encode(GameMove{GameID: id, Source: TileIntroduce, Dest: TileScore}))
}
