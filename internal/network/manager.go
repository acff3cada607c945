package network

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/urnet/gameserver/internal/dependencies/clock"
	"github.com/urnet/gameserver/internal/dependencies/random"
	"github.com/urnet/gameserver/internal/model"
	"github.com/urnet/gameserver/internal/protocol"
	"github.com/urnet/gameserver/internal/scheduler"
	"github.com/urnet/gameserver/internal/transport"
)

const (
	// LimboTimeout is how long a transport may sit without a handshake.
	LimboTimeout = 10 * time.Second

	// ReconnectWindow is how long a dropped connection can be reclaimed
	// with its token.
	ReconnectWindow = 5 * time.Minute

	purgePeriod   = 10 * time.Second
	schedulerTick = time.Second
)

// Handler receives connection lifecycle events and decoded packets.
// Calls are made from transport read goroutines and from the manager's
// purge task.
type Handler interface {
	OnConnect(conn *Connection, reconnect bool)
	OnDisconnect(conn *Connection)
	OnReconnectTimeout(conn *Connection)
	OnMessage(conn *Connection, packet protocol.ClientPacket)
}

// Manager owns every transport from accept to expiry. New transports sit
// in limbo until they complete an Open or Reopen handshake; established
// connections survive transport drops for ReconnectWindow.
type Manager struct {
	handler Handler
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	scheduler *scheduler.Scheduler

	mu           sync.Mutex
	limbo        map[transport.Transport]time.Time
	byTransport  map[transport.Transport]*Connection
	disconnected map[uuid.UUID]*Connection
}

func NewManager(handler Handler, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Manager {
	logger = logger.With(slog.String("component", "network"))

	return &Manager{
		handler:      handler,
		clock:        clk,
		random:       rnd,
		logger:       logger,
		scheduler:    scheduler.New("network", schedulerTick, clk, logger),
		limbo:        make(map[transport.Transport]time.Time),
		byTransport:  make(map[transport.Transport]*Connection),
		disconnected: make(map[uuid.UUID]*Connection),
	}
}

func (m *Manager) Start() {
	m.scheduler.ScheduleRepeating("purge-expired", m.PurgeExpired, purgePeriod)
	m.scheduler.Start()
}

// Stop halts the purge loop and closes every live transport.
func (m *Manager) Stop() {
	m.scheduler.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	for t := range m.limbo {
		_ = t.Close()
	}
	for t := range m.byTransport {
		_ = t.Close()
	}
}

// AcceptTransport places a freshly upgraded transport in limbo until it
// handshakes.
func (m *Manager) AcceptTransport(t transport.Transport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.limbo[t] = m.clock.Now()
	m.logger.Debug("transport accepted", slog.String("remote", t.RemoteAddr()))
}

// OnFrame decodes and routes one inbound frame from a transport.
func (m *Manager) OnFrame(t transport.Transport, frame string) {
	packet, err := protocol.Decode(frame)
	if err != nil {
		m.rejectFrame(t, err)
		return
	}

	m.mu.Lock()
	_, inLimbo := m.limbo[t]
	conn := m.byTransport[t]
	m.mu.Unlock()

	switch {
	case inLimbo:
		m.handshake(t, packet)
	case conn != nil:
		m.handler.OnMessage(conn, packet)
	default:
		// Frame from a transport we no longer track.
		_ = t.Close()
	}
}

// OnTransportClosed records the drop and starts the reconnect window.
func (m *Manager) OnTransportClosed(t transport.Transport) {
	m.mu.Lock()
	if _, ok := m.limbo[t]; ok {
		delete(m.limbo, t)
		m.mu.Unlock()
		return
	}

	conn := m.byTransport[t]
	delete(m.byTransport, t)
	if conn == nil || !conn.usesTransport(t) {
		m.mu.Unlock()
		return
	}

	conn.markDisconnected(m.clock.Now())
	m.disconnected[conn.Token()] = conn
	m.mu.Unlock()

	m.logger.Info("client disconnected", slog.String("token", conn.Token().String()))
	m.handler.OnDisconnect(conn)
}

// PurgeExpired closes limbo transports that never handshook and expires
// connections whose reconnect window has passed. Runs on the manager's
// scheduler.
func (m *Manager) PurgeExpired() {
	now := m.clock.Now()

	m.mu.Lock()
	var closeTransports []transport.Transport
	for t, arrived := range m.limbo {
		if now.Sub(arrived) >= LimboTimeout {
			delete(m.limbo, t)
			closeTransports = append(closeTransports, t)
		}
	}

	var expired []*Connection
	for token, conn := range m.disconnected {
		since, ok := conn.DisconnectedSince()
		if !ok {
			// Reconnected since the map was populated.
			delete(m.disconnected, token)
			continue
		}
		if now.Sub(since) >= ReconnectWindow {
			delete(m.disconnected, token)
			expired = append(expired, conn)
		}
	}
	m.mu.Unlock()

	for _, t := range closeTransports {
		m.logger.Debug("closing transport that never handshook",
			slog.String("remote", t.RemoteAddr()))
		_ = t.Close()
	}
	for _, conn := range expired {
		m.logger.Info("reconnect window expired",
			slog.String("token", conn.Token().String()))
		m.handler.OnReconnectTimeout(conn)
	}
}

func (m *Manager) handshake(t transport.Transport, packet protocol.ClientPacket) {
	switch p := packet.(type) {
	case protocol.Open:
		if !m.checkVersion(t, p.ProtocolVersion) {
			return
		}
		m.establish(t, uuid.New(), p.Name)

	case protocol.Reopen:
		if !m.checkVersion(t, p.ProtocolVersion) {
			return
		}
		if conn := m.reclaim(p.PreviousToken, t, p.Name); conn != nil {
			m.logger.Info("client reconnected",
				slog.String("token", conn.Token().String()))
			conn.TrySend(protocol.SetID{Token: conn.Token()})
			m.handler.OnConnect(conn, true)
			return
		}
		// Unknown or expired token: fall back to a fresh connection.
		m.establish(t, uuid.New(), p.Name)

	default:
		m.logger.Warn("non-handshake packet before handshake",
			slog.String("packet", packet.Type().String()),
			slog.String("remote", t.RemoteAddr()))
		m.rejectTransport(t, "expected an open or reopen packet")
	}
}

func (m *Manager) checkVersion(t transport.Transport, version int) bool {
	if version == protocol.Version {
		return true
	}

	m.logger.Warn("protocol version mismatch",
		slog.Int("client_version", version),
		slog.Int("server_version", protocol.Version))
	m.rejectTransport(t, fmt.Sprintf(
		"protocol version mismatch: client %d, server %d; please refresh",
		version, protocol.Version))
	return false
}

func (m *Manager) establish(t transport.Transport, token uuid.UUID, name string) {
	now := m.clock.Now()
	sanitized := model.SanitizeName(name, m.random)
	conn := newConnection(token, t, sanitized, now, m.logger)

	m.mu.Lock()
	delete(m.limbo, t)
	m.byTransport[t] = conn
	m.mu.Unlock()

	m.logger.Info("client connected",
		slog.String("token", token.String()),
		slog.String("name", sanitized))

	conn.TrySend(protocol.SetID{Token: token})
	m.handler.OnConnect(conn, false)
}

// reclaim reattaches a dropped connection to a new transport if the
// token is known and still inside the reconnect window.
func (m *Manager) reclaim(token uuid.UUID, t transport.Transport, name string) *Connection {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.disconnected[token]
	if !ok {
		return nil
	}

	since, dropped := conn.DisconnectedSince()
	if !dropped || now.Sub(since) >= ReconnectWindow {
		return nil
	}

	delete(m.disconnected, token)
	delete(m.limbo, t)

	sanitized := ""
	if name != "" {
		sanitized = model.SanitizeName(name, m.random)
	}
	conn.attach(t, sanitized, now)
	m.byTransport[t] = conn

	return conn
}

func (m *Manager) rejectFrame(t transport.Transport, err error) {
	m.logger.Warn("rejecting malformed frame",
		slog.String("remote", t.RemoteAddr()),
		slog.Any("error", err))

	m.rejectTransport(t, "malformed packet")
}

func (m *Manager) rejectTransport(t transport.Transport, message string) {
	m.mu.Lock()
	delete(m.limbo, t)
	m.mu.Unlock()

	_ = t.Send(protocol.Encode(protocol.Error{Message: message}))
	_ = t.Close()
}
