package protocol

import (
	"fmt"
)

// Encode renders an outgoing packet to its wire frame.
func Encode(packet ServerPacket) string {
	w := newWriter(packet.Type())

	switch p := packet.(type) {
	case Error:
		w.raw(p.Message)
	case SetID:
		w.uuidField(p.Token)
	case GameInvalid:
		w.raw(p.GameID.String())
	case GamePending:
		w.raw(p.GameID.String())
	case GameMetadata:
		w.raw(p.GameID.String())
		w.digit(p.YourSeat.Digit(3))
		w.varString(p.LightName)
		w.varString(p.DarkName)
		w.boolField(p.LightConnected)
		w.boolField(p.DarkConnected)
	case GameEnd:
		w.raw(p.GameID.String())
		w.raw(p.Reason)
	case GameMessage:
		w.raw(p.GameID.String())
		w.varString(p.Text)
		w.varString(p.Subtext)
	case PlayerStatus:
		w.raw(p.GameID.String())
		w.digit(p.Player.Digit(3))
		w.boolField(p.Connected)
	case GameState:
		encodeGameState(w, p)
	case GameMove:
		w.raw(p.GameID.String())
		w.intField(p.Source, 2)
		w.intField(p.Dest, 2)
	default:
		panic(fmt.Sprintf("protocol: unknown server packet %T", packet))
	}

	return w.String()
}

func encodeGameState(w *writer, p GameState) {
	w.raw(p.GameID.String())
	w.digit(p.Light.Pieces)
	w.digit(p.Light.Score)
	w.digit(p.Dark.Pieces)
	w.digit(p.Dark.Score)
	for _, owner := range p.Board {
		w.digit(owner.Digit(0))
	}
	w.boolField(p.Finished)
	w.digit(p.TurnPlayer.Digit(3))
	w.boolField(p.HasRoll)
	if p.HasRoll {
		for _, face := range p.Dice {
			w.digit(face)
		}
		w.boolField(p.HasMoves)
	}
}
