package session

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urnet/gameserver/internal/dependencies/clock"
	"github.com/urnet/gameserver/internal/model"
	"github.com/urnet/gameserver/internal/network"
	"github.com/urnet/gameserver/internal/protocol"
	"github.com/urnet/gameserver/internal/rules"
	"github.com/urnet/gameserver/internal/scheduler"
)

const (
	gameTick = 100 * time.Millisecond

	// GameTimeout is how long a game survives with both seats gone.
	// Deliberately longer than the reconnect window, so a player who
	// comes back inside their window always finds their game.
	GameTimeout = 10 * time.Minute

	noMovesMessageDelay = 2500 * time.Millisecond
	noMovesFlipDelay    = 5 * time.Second
)

type phase int

const (
	phaseAwaitRoll phase = iota
	phaseAwaitMove
	phaseDone
)

// Session runs one game from start to finish. Game logic executes on
// the session's own scheduler goroutine; only the fields guarded by mu
// are also touched from manager goroutines, through stop and broadcast.
type Session struct {
	record model.GameRecord

	lightConn *network.Connection
	darkConn  *network.Connection

	// mu guards spectators and the pending forced-pass tasks, which
	// stop reads from outside the scheduler goroutine.
	mu sync.Mutex
	// spectators receive every broadcast but hold no seat.
	spectators map[*network.Connection]struct{}

	engine rules.Engine
	state  *rules.State

	phase    phase
	finished atomic.Bool
	roll     rules.Roll
	hasRoll  bool
	legal    []rules.Move

	noMovesMessage *scheduler.Task
	noMovesFlip    *scheduler.Task

	scheduler *scheduler.Scheduler
	clock     clock.Clock
	logger    *slog.Logger
}

func newSession(record model.GameRecord, light, dark *network.Connection,
	engine rules.Engine, clk clock.Clock, logger *slog.Logger) *Session {

	logger = logger.With(slog.String("game_id", record.GameID.String()))

	return &Session{
		record:     record,
		lightConn:  light,
		darkConn:   dark,
		spectators: make(map[*network.Connection]struct{}),
		engine:     engine,
		state:      engine.NewState(record.Settings, model.SeatLight),
		phase:      phaseAwaitRoll,
		scheduler:  scheduler.New("game-"+record.GameID.String(), gameTick, clk, logger),
		clock:      clk,
		logger:     logger,
	}
}

// start launches the scheduler and deals the opening state to both
// players.
func (s *Session) start() {
	s.scheduler.Start()
	s.enqueue("deal-opening-state", func() {
		s.sendJoinState(s.lightConn, model.SeatLight)
		s.sendJoinState(s.darkConn, model.SeatDark)
		s.logger.Info("game started",
			slog.String("light", s.record.Light.DisplayName),
			slog.String("dark", s.record.Dark.DisplayName))
	})
}

// enqueue hands a closure to the session's scheduler, preserving arrival
// order.
func (s *Session) enqueue(name string, fn func()) {
	s.scheduler.Schedule(name, fn)
}

func (s *Session) gameID() model.GameID {
	return s.record.GameID
}

func (s *Session) seatOf(conn *network.Connection) model.Seat {
	switch conn {
	case s.lightConn:
		return model.SeatLight
	case s.darkConn:
		return model.SeatDark
	default:
		return model.SeatNone
	}
}

func (s *Session) seatConn(seat model.Seat) *network.Connection {
	if seat == model.SeatLight {
		return s.lightConn
	}
	return s.darkConn
}

func (s *Session) dropSpectator(conn *network.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.spectators, conn)
}

// handleRoll runs on the session scheduler.
func (s *Session) handleRoll(conn *network.Connection) {
	seat := s.seatOf(conn)
	if seat == model.SeatNone {
		// A spectator trying to play is a protocol violation, not a
		// user mistake.
		s.logger.Warn("spectator tried to roll", slog.String("name", conn.Name()))
		conn.SendError("spectators cannot play")
		s.dropSpectator(conn)
		return
	}

	switch {
	case s.phase == phaseDone:
		conn.TrySend(protocol.Error{Message: "the game is already over"})
	case seat != s.state.Turn:
		conn.TrySend(protocol.Error{Message: "it is not your turn"})
	case s.phase != phaseAwaitRoll:
		conn.TrySend(protocol.Error{Message: "you have already rolled"})
	default:
		s.performRoll(seat)
	}
}

func (s *Session) performRoll(seat model.Seat) {
	s.roll = s.engine.RollDice()
	s.hasRoll = true
	s.legal = s.engine.LegalMoves(s.state, seat, s.roll.Value)
	s.phase = phaseAwaitMove

	s.logger.Debug("dice rolled",
		slog.String("seat", seat.String()),
		slog.Int("value", s.roll.Value),
		slog.Int("moves", len(s.legal)))

	s.broadcast(s.statePacket())

	if len(s.legal) == 0 {
		s.scheduleForcedPass(seat)
	}
}

// scheduleForcedPass plays out a roll with no legal moves: a message a
// beat after the dice settle, then the turn passes.
func (s *Session) scheduleForcedPass(seat model.Seat) {
	message := s.scheduler.ScheduleIn("no-moves-message", func() {
		s.broadcast(protocol.GameMessage{
			GameID: s.gameID(),
			Text:   "No moves",
		})
	}, noMovesMessageDelay)

	flip := s.scheduler.ScheduleIn("no-moves-flip", func() {
		s.state.Turn = seat.Other()
		s.clearRoll()
		s.phase = phaseAwaitRoll
		s.broadcast(s.statePacket())
	}, noMovesFlipDelay)

	s.mu.Lock()
	s.noMovesMessage = message
	s.noMovesFlip = flip
	s.mu.Unlock()
}

// handleMove runs on the session scheduler.
func (s *Session) handleMove(conn *network.Connection, packet protocol.Move) {
	seat := s.seatOf(conn)
	if seat == model.SeatNone {
		s.logger.Warn("spectator tried to move", slog.String("name", conn.Name()))
		conn.SendError("spectators cannot play")
		s.dropSpectator(conn)
		return
	}

	switch {
	case s.phase == phaseDone:
		conn.TrySend(protocol.Error{Message: "the game is already over"})
	case seat != s.state.Turn:
		conn.TrySend(protocol.Error{Message: "it is not your turn"})
	case s.phase != phaseAwaitMove:
		conn.TrySend(protocol.Error{Message: "roll the dice first"})
	default:
		move, ok := s.findMove(packet)
		if !ok {
			conn.TrySend(protocol.Error{Message: "that move is not allowed"})
			return
		}
		s.performMove(seat, move)
	}
}

func (s *Session) findMove(packet protocol.Move) (rules.Move, bool) {
	for _, move := range s.legal {
		if packet.Introduce && move.Introduce {
			return move, true
		}
		if !packet.Introduce && !move.Introduce && move.From.Index() == packet.From {
			return move, true
		}
	}
	return rules.Move{}, false
}

func (s *Session) performMove(seat model.Seat, move rules.Move) {
	result := s.engine.ApplyMove(s.state, seat, move)

	s.logger.Debug("move played",
		slog.String("seat", seat.String()),
		slog.String("move", move.String()))

	s.broadcast(protocol.GameMove{
		GameID: s.gameID(),
		Source: wireSource(move),
		Dest:   wireDest(move),
	})

	s.clearRoll()
	if result.Finished {
		s.phase = phaseDone
		s.finished.Store(true)
		s.logger.Info("game won", slog.String("winner", s.state.Winner().String()))
	} else {
		s.phase = phaseAwaitRoll
	}

	s.broadcast(s.statePacket())
}

func (s *Session) clearRoll() {
	s.roll = rules.Roll{}
	s.hasRoll = false
	s.legal = nil
}

// handleJoin runs on the session scheduler. Seat holders get their view
// refreshed; anyone else becomes a spectator.
func (s *Session) handleJoin(conn *network.Connection) {
	seat := s.seatOf(conn)
	if seat == model.SeatNone {
		s.mu.Lock()
		_, known := s.spectators[conn]
		if !known {
			s.spectators[conn] = struct{}{}
		}
		s.mu.Unlock()

		if !known {
			s.logger.Info("spectator joined", slog.String("name", conn.Name()))
		}
	}
	s.sendJoinState(conn, seat)
}

func (s *Session) sendJoinState(conn *network.Connection, seat model.Seat) {
	conn.TrySend(protocol.GameMetadata{
		GameID:         s.gameID(),
		YourSeat:       seat,
		LightName:      s.record.Light.DisplayName,
		DarkName:       s.record.Dark.DisplayName,
		LightConnected: s.lightConn.Connected(),
		DarkConnected:  s.darkConn.Connected(),
	})
	conn.TrySend(s.statePacket())
}

// handleReconnect runs on the session scheduler.
func (s *Session) handleReconnect(conn *network.Connection) {
	seat := s.seatOf(conn)
	if seat == model.SeatNone {
		return
	}

	s.sendJoinState(conn, seat)
	s.broadcast(protocol.PlayerStatus{
		GameID:    s.gameID(),
		Player:    seat,
		Connected: true,
	})
}

// handleDisconnect runs on the session scheduler.
func (s *Session) handleDisconnect(conn *network.Connection) {
	seat := s.seatOf(conn)
	if seat == model.SeatNone {
		s.dropSpectator(conn)
		return
	}

	s.broadcast(protocol.PlayerStatus{
		GameID:    s.gameID(),
		Player:    seat,
		Connected: false,
	})
}

// stop cancels pending timers, tells everyone why the game ended, and
// halts the scheduler. Safe to call from outside the scheduler goroutine
// once the manager has unrouted the session.
func (s *Session) stop(reason string) {
	s.mu.Lock()
	message, flip := s.noMovesMessage, s.noMovesFlip
	s.mu.Unlock()

	if message != nil {
		message.Cancel()
	}
	if flip != nil {
		flip.Cancel()
	}

	if reason != "" {
		s.broadcast(protocol.GameEnd{GameID: s.gameID(), Reason: reason})
	}
	s.finished.Store(true)
	s.scheduler.Stop()

	s.logger.Info("game stopped", slog.String("reason", reason))
}

func (s *Session) done() bool {
	return s.finished.Load()
}

// inactive reports whether both seats have been gone for longer than the
// game timeout.
func (s *Session) inactive(now time.Time) bool {
	for _, conn := range []*network.Connection{s.lightConn, s.darkConn} {
		since, gone := conn.DisconnectedSince()
		if !gone || now.Sub(since) < GameTimeout {
			return false
		}
	}
	return true
}

// abandoned reports whether both seats are currently disconnected.
func (s *Session) abandoned() bool {
	return !s.lightConn.Connected() && !s.darkConn.Connected()
}

func (s *Session) summary() model.GameSummary {
	return model.GameSummary{
		GameID:         s.gameID(),
		LightName:      s.record.Light.DisplayName,
		DarkName:       s.record.Dark.DisplayName,
		LightConnected: s.lightConn.Connected(),
		DarkConnected:  s.darkConn.Connected(),
		Finished:       s.done(),
	}
}

func (s *Session) broadcast(packet protocol.ServerPacket) {
	s.lightConn.TrySend(packet)
	s.darkConn.TrySend(packet)

	s.mu.Lock()
	spectators := make([]*network.Connection, 0, len(s.spectators))
	for spectator := range s.spectators {
		spectators = append(spectators, spectator)
	}
	s.mu.Unlock()

	for _, spectator := range spectators {
		spectator.TrySend(packet)
	}
}

func (s *Session) statePacket() protocol.GameState {
	packet := protocol.GameState{
		GameID: s.gameID(),
		Light: protocol.PlayerSummary{
			Pieces: s.state.Light.Pieces,
			Score:  s.state.Light.Score,
		},
		Dark: protocol.PlayerSummary{
			Pieces: s.state.Dark.Pieces,
			Score:  s.state.Dark.Score,
		},
		Board:      s.state.Board,
		Finished:   s.state.Finished(),
		TurnPlayer: s.state.Turn,
		HasRoll:    s.hasRoll,
		HasMoves:   len(s.legal) > 0,
	}
	if s.hasRoll {
		packet.Dice = s.roll.Faces
	}
	return packet
}

func wireSource(move rules.Move) int {
	if move.Introduce {
		return protocol.TileIntroduce
	}
	return move.From.Index()
}

func wireDest(move rules.Move) int {
	if move.Score {
		return protocol.TileScore
	}
	return move.To.Index()
}
