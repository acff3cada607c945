package protocol

import (
	"github.com/urnet/gameserver/internal/model"
)

// Decode parses a raw incoming frame into one of the closed set of
// client packet types. It returns a *DecodeError for any malformed
// input: empty frames, unknown type digits, truncated or overlong
// fields, and trailing garbage. Decode never panics.
func Decode(frame string) (ClientPacket, error) {
	if len(frame) == 0 {
		return nil, &DecodeError{PacketType: "unknown", Reason: "empty frame"}
	}

	typeChar := frame[0]
	if typeChar < '0' || typeChar > '9' {
		return nil, &DecodeError{
			PacketType: "unknown",
			Reason:     "type byte is not a digit",
		}
	}

	packetType := ClientPacketType(typeChar - '0')
	if packetType > TypeMove {
		return nil, &DecodeError{
			PacketType: "unknown",
			Reason:     "unknown packet type " + string(typeChar),
		}
	}

	r := &reader{packetType: packetType.String(), data: frame[1:]}

	var (
		packet ClientPacket
		err    error
	)
	switch packetType {
	case TypeOpen:
		packet, err = decodeOpen(r)
	case TypeReopen:
		packet, err = decodeReopen(r)
	case TypeJoinGame:
		packet, err = decodeJoinGame(r)
	case TypeFindGame:
		packet = FindGame{}
	case TypeCreateGame:
		packet = CreateGame{}
	case TypeRoll:
		packet, err = decodeRoll(r)
	case TypeMove:
		packet, err = decodeMove(r)
	}
	if err != nil {
		return nil, err
	}
	if err := r.expectEmpty(); err != nil {
		return nil, err
	}
	return packet, nil
}

func decodeOpen(r *reader) (ClientPacket, error) {
	version, err := r.nextInt(4)
	if err != nil {
		return nil, err
	}
	name, err := r.nextVarString(2)
	if err != nil {
		return nil, err
	}
	return Open{ProtocolVersion: version, Name: name}, nil
}

func decodeReopen(r *reader) (ClientPacket, error) {
	version, err := r.nextInt(4)
	if err != nil {
		return nil, err
	}
	token, err := r.nextUUID()
	if err != nil {
		return nil, err
	}
	name, err := r.nextVarString(2)
	if err != nil {
		return nil, err
	}
	return Reopen{ProtocolVersion: version, PreviousToken: token, Name: name}, nil
}

func (r *reader) nextGameID() (model.GameID, error) {
	s, err := r.nextString(model.GameIDLength)
	if err != nil {
		return 0, err
	}
	id, err := model.ParseGameID(s)
	if err != nil {
		return 0, r.fail("%v", err)
	}
	return id, nil
}

func decodeJoinGame(r *reader) (ClientPacket, error) {
	id, err := r.nextGameID()
	if err != nil {
		return nil, err
	}
	return JoinGame{GameID: id}, nil
}

func decodeRoll(r *reader) (ClientPacket, error) {
	id, err := r.nextGameID()
	if err != nil {
		return nil, err
	}
	return Roll{GameID: id}, nil
}

func decodeMove(r *reader) (ClientPacket, error) {
	id, err := r.nextGameID()
	if err != nil {
		return nil, err
	}
	from, err := r.nextInt(2)
	if err != nil {
		return nil, err
	}
	if from == MoveIntroduce {
		return Move{GameID: id, Introduce: true}, nil
	}
	return Move{GameID: id, From: from}, nil
}
