package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/urnet/gameserver/internal/dependencies/clock"
	"github.com/urnet/gameserver/internal/model"
	"github.com/urnet/gameserver/internal/network"
	"github.com/urnet/gameserver/internal/protocol"
	"github.com/urnet/gameserver/internal/repository"
	"github.com/urnet/gameserver/internal/rules"
	"github.com/urnet/gameserver/internal/scheduler"
)

const (
	managerTick = time.Second
	purgePeriod = 5 * time.Second
)

// Lobby is the matchmaking surface the manager routes lobby packets to.
type Lobby interface {
	FindMatch(conn *network.Connection)
	CreateReservation(conn *network.Connection)
	JoinReservation(gameID model.GameID, conn *network.Connection)
	OnDisconnect(conn *network.Connection)
	OnTimeout(conn *network.Connection)
}

// Manager owns every live session and is the network layer's handler:
// it turns connection events and decoded packets into scheduled work on
// the owning session, and lobby packets into matchmaker calls.
type Manager struct {
	repo   *repository.Repository
	engine rules.Engine
	clock  clock.Clock
	logger *slog.Logger

	lobby Lobby

	scheduler *scheduler.Scheduler

	mu       sync.Mutex
	sessions map[model.GameID]*Session
	byConn   map[*network.Connection]*Session
}

var _ network.Handler = (*Manager)(nil)

func NewManager(repo *repository.Repository, engine rules.Engine, clk clock.Clock, logger *slog.Logger) *Manager {
	logger = logger.With(slog.String("component", "session"))

	return &Manager{
		repo:      repo,
		engine:    engine,
		clock:     clk,
		logger:    logger,
		scheduler: scheduler.New("session-manager", managerTick, clk, logger),
		sessions:  make(map[model.GameID]*Session),
		byConn:    make(map[*network.Connection]*Session),
	}
}

// SetLobby wires the matchmaker in after construction; the two depend on
// each other.
func (m *Manager) SetLobby(lobby Lobby) {
	m.lobby = lobby
}

func (m *Manager) Start() {
	m.scheduler.ScheduleRepeating("purge-inactive", m.PurgeInactive, purgePeriod)
	m.scheduler.Start()
}

func (m *Manager) Stop() {
	m.scheduler.Stop()
}

// StartGame creates and launches a session for a freshly created game.
// Implements the matchmaker's starter interface.
func (m *Manager) StartGame(record model.GameRecord, light, dark *network.Connection) {
	sess := newSession(record, light, dark, m.engine, m.clock, m.logger)

	m.mu.Lock()
	m.sessions[record.GameID] = sess
	m.byConn[light] = sess
	m.byConn[dark] = sess
	m.mu.Unlock()

	sess.start()
}

// OnConnect implements network.Handler.
func (m *Manager) OnConnect(conn *network.Connection, reconnect bool) {
	if !reconnect {
		return
	}
	if sess := m.sessionOf(conn); sess != nil {
		sess.enqueue("reconnect", func() { sess.handleReconnect(conn) })
	}
}

// OnDisconnect implements network.Handler.
func (m *Manager) OnDisconnect(conn *network.Connection) {
	m.lobby.OnDisconnect(conn)

	if sess := m.sessionOf(conn); sess != nil {
		sess.enqueue("disconnect", func() { sess.handleDisconnect(conn) })
	}
}

// OnReconnectTimeout implements network.Handler. A seat holder who never
// came back ends their game; a spectator is just dropped.
func (m *Manager) OnReconnectTimeout(conn *network.Connection) {
	m.lobby.OnTimeout(conn)

	sess := m.sessionOf(conn)
	if sess == nil {
		return
	}

	if sess.seatOf(conn) != model.SeatNone {
		m.endSession(sess, "Your opponent abandoned the game")
	} else {
		sess.enqueue("drop-spectator", func() { sess.handleDisconnect(conn) })
		m.unbind(conn)
	}
}

// OnMessage implements network.Handler.
func (m *Manager) OnMessage(conn *network.Connection, packet protocol.ClientPacket) {
	switch p := packet.(type) {
	case protocol.FindGame:
		m.lobby.FindMatch(conn)
	case protocol.CreateGame:
		m.lobby.CreateReservation(conn)
	case protocol.JoinGame:
		m.handleJoinGame(conn, p.GameID)
	case protocol.Roll:
		m.routeToSession(conn, p.GameID, func(sess *Session) {
			sess.handleRoll(conn)
		})
	case protocol.Move:
		m.routeToSession(conn, p.GameID, func(sess *Session) {
			sess.handleMove(conn, p)
		})
	default:
		// Open and Reopen are only valid before the handshake completes.
		m.logger.Warn("unexpected packet from established client",
			slog.String("packet", packet.Type().String()),
			slog.String("name", conn.Name()))
		conn.SendError("unexpected packet")
	}
}

func (m *Manager) handleJoinGame(conn *network.Connection, gameID model.GameID) {
	sess := m.session(gameID)
	if sess != nil {
		if sess.done() {
			m.removeSession(sess)
			conn.TrySend(protocol.GameInvalid{GameID: gameID})
			return
		}

		if existing := m.sessionOf(conn); existing != nil && existing != sess {
			m.sendError(conn, "you are already in a game", nil)
			return
		}

		m.bind(conn, sess)
		sess.enqueue("join", func() { sess.handleJoin(conn) })
		return
	}

	if m.repo.IsReserved(gameID) {
		m.lobby.JoinReservation(gameID, conn)
		return
	}

	conn.TrySend(protocol.GameInvalid{GameID: gameID})
}

// routeToSession dispatches a game-scoped packet onto the session's
// scheduler. Finished sessions are purged on touch and treated as gone.
func (m *Manager) routeToSession(conn *network.Connection, gameID model.GameID, fn func(*Session)) {
	sess := m.session(gameID)
	if sess == nil {
		conn.TrySend(protocol.GameInvalid{GameID: gameID})
		return
	}

	if sess.done() {
		m.removeSession(sess)
		conn.TrySend(protocol.GameInvalid{GameID: gameID})
		return
	}

	sess.enqueue("handle-message", func() { fn(sess) })
}

// PurgeInactive sweeps sessions nobody will come back to. Runs on the
// manager's scheduler.
func (m *Manager) PurgeInactive() {
	now := m.clock.Now()

	m.mu.Lock()
	var doomed []*Session
	for _, sess := range m.sessions {
		if (sess.done() && sess.abandoned()) || sess.inactive(now) {
			doomed = append(doomed, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range doomed {
		m.logger.Info("purging inactive game",
			slog.String("game_id", sess.gameID().String()))
		sess.stop("")
		m.removeSession(sess)
	}
}

// StopAll ends every session with the given reason, for shutdown.
func (m *Manager) StopAll(reason string) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.stop(reason)
		m.removeSession(sess)
	}
}

// Summaries lists the live sessions for the games endpoint.
func (m *Manager) Summaries() []model.GameSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summaries := make([]model.GameSummary, 0, len(m.sessions))
	for _, sess := range m.sessions {
		summaries = append(summaries, sess.summary())
	}
	return summaries
}

func (m *Manager) endSession(sess *Session, reason string) {
	sess.stop(reason)
	m.removeSession(sess)
}

func (m *Manager) removeSession(sess *Session) {
	m.mu.Lock()
	delete(m.sessions, sess.gameID())
	for conn, bound := range m.byConn {
		if bound == sess {
			delete(m.byConn, conn)
		}
	}
	m.mu.Unlock()

	m.repo.RemoveGame(sess.gameID())
}

func (m *Manager) session(gameID model.GameID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sessions[gameID]
}

func (m *Manager) sessionOf(conn *network.Connection) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.byConn[conn]
}

func (m *Manager) bind(conn *network.Connection, sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byConn[conn] = sess
}

func (m *Manager) unbind(conn *network.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.byConn, conn)
}

// sendError reports a problem to the client. When even that fails the
// two errors are joined so neither is lost from the logs.
func (m *Manager) sendError(conn *network.Connection, message string, cause error) {
	if err := conn.Send(protocol.Error{Message: message}); err != nil {
		m.logger.Error("could not deliver error to client",
			slog.String("name", conn.Name()),
			slog.Any("error", errors.Join(cause, err)))
	}
}
