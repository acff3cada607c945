// Package matchmaker pairs clients into games, either through the
// quick-match queue or through reserved invite links.
package matchmaker

import (
	"log/slog"
	"sync"

	"github.com/urnet/gameserver/internal/dependencies/random"
	"github.com/urnet/gameserver/internal/model"
	"github.com/urnet/gameserver/internal/network"
	"github.com/urnet/gameserver/internal/protocol"
	"github.com/urnet/gameserver/internal/repository"
)

// GameStarter spins up a live session for a created game. Implemented
// by the session manager.
type GameStarter interface {
	StartGame(record model.GameRecord, light, dark *network.Connection)
}

// Matchmaker holds a single waiting slot for quick match. Whoever looks
// for a game while someone else is waiting gets paired with them; seat
// assignment is a coin flip.
type Matchmaker struct {
	repo    *repository.Repository
	starter GameStarter
	random  random.Random
	logger  *slog.Logger

	mu       sync.Mutex
	waiting  *network.Connection
	creators map[model.GameID]*network.Connection
}

func New(repo *repository.Repository, starter GameStarter, rnd random.Random, logger *slog.Logger) *Matchmaker {
	return &Matchmaker{
		repo:     repo,
		starter:  starter,
		random:   rnd,
		logger:   logger.With(slog.String("component", "matchmaker")),
		creators: make(map[model.GameID]*network.Connection),
	}
}

// FindMatch enters the quick-match queue. With nobody waiting the
// connection parks in the slot; otherwise the two are paired immediately.
func (m *Matchmaker) FindMatch(conn *network.Connection) {
	m.mu.Lock()
	if m.waiting == nil || m.waiting == conn {
		m.waiting = conn
		m.mu.Unlock()
		m.logger.Info("client waiting for a match",
			slog.String("name", conn.Name()))
		return
	}

	opponent := m.waiting
	m.waiting = nil
	m.mu.Unlock()

	m.startGame(opponent, conn)
}

// CreateReservation claims a game ID the client can share as an invite
// link and reports it with a GamePending.
func (m *Matchmaker) CreateReservation(conn *network.Connection) {
	reservation := m.repo.Reserve(model.StandardSettings(), conn.Identity())

	m.mu.Lock()
	if m.waiting == conn {
		m.waiting = nil
	}
	m.creators[reservation.GameID] = conn
	m.mu.Unlock()

	conn.TrySend(protocol.GamePending{GameID: reservation.GameID})
}

// JoinReservation resolves a JoinGame aimed at a reserved ID. The
// creator polling their own reservation just gets the pending state
// again; anyone else consumes the reservation and starts the game.
func (m *Matchmaker) JoinReservation(gameID model.GameID, conn *network.Connection) {
	reservation, ok := m.repo.Reservation(gameID)
	if !ok {
		conn.TrySend(protocol.GameInvalid{GameID: gameID})
		return
	}

	if reservation.Creator.ID == conn.Identity().ID {
		conn.TrySend(protocol.GamePending{GameID: gameID})
		return
	}

	m.mu.Lock()
	creator, ok := m.creators[gameID]
	delete(m.creators, gameID)
	if m.waiting == conn {
		m.waiting = nil
	}
	m.mu.Unlock()

	if !ok {
		conn.TrySend(protocol.GameInvalid{GameID: gameID})
		return
	}

	lightConn, darkConn := m.assignSeats(creator, conn)
	record, err := m.repo.CreateGame(gameID, reservation.Settings,
		lightConn.Identity(), darkConn.Identity())
	if err != nil {
		m.logger.Warn("reservation vanished while joining",
			slog.String("game_id", gameID.String()),
			slog.Any("error", err))
		conn.TrySend(protocol.GameInvalid{GameID: gameID})
		return
	}

	m.starter.StartGame(record, lightConn, darkConn)
}

// IsWaiting reports whether the connection is parked in the quick-match
// slot.
func (m *Matchmaker) IsWaiting(conn *network.Connection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.waiting == conn
}

// OnDisconnect frees the quick-match slot. Reservations survive a drop
// since the creator may reconnect.
func (m *Matchmaker) OnDisconnect(conn *network.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.waiting == conn {
		m.waiting = nil
	}
}

// OnTimeout drops everything the departed client held: the waiting slot
// and any reservations they created.
func (m *Matchmaker) OnTimeout(conn *network.Connection) {
	m.OnDisconnect(conn)

	m.mu.Lock()
	for gameID, creator := range m.creators {
		if creator == conn {
			delete(m.creators, gameID)
		}
	}
	m.mu.Unlock()

	m.repo.RemoveReservationsFor(conn.Identity().ID)
}

func (m *Matchmaker) startGame(a, b *network.Connection) {
	lightConn, darkConn := m.assignSeats(a, b)
	record := m.repo.NewGame(model.StandardSettings(),
		lightConn.Identity(), darkConn.Identity())

	m.logger.Info("match made",
		slog.String("game_id", record.GameID.String()),
		slog.String("light", lightConn.Name()),
		slog.String("dark", darkConn.Name()))

	m.starter.StartGame(record, lightConn, darkConn)
}

func (m *Matchmaker) assignSeats(a, b *network.Connection) (light, dark *network.Connection) {
	if m.random.Bool() {
		return a, b
	}
	return b, a
}
