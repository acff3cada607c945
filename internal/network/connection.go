package network

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/urnet/gameserver/internal/model"
	"github.com/urnet/gameserver/internal/protocol"
	"github.com/urnet/gameserver/internal/transport"
)

// Connection is one client identity, surviving transport drops until the
// reconnect window expires. The token is the secret a client presents in
// a Reopen to reclaim it.
type Connection struct {
	token uuid.UUID

	mu             sync.Mutex
	transport      transport.Transport
	identity       model.Identity
	connected      bool
	connectedAt    time.Time
	disconnectedAt time.Time

	logger *slog.Logger
}

func newConnection(token uuid.UUID, t transport.Transport, name string, now time.Time, logger *slog.Logger) *Connection {
	return &Connection{
		token:     token,
		transport: t,
		identity: model.Identity{
			ID:          token.String(),
			DisplayName: name,
		},
		connected:   true,
		connectedAt: now,
		logger:      logger.With(slog.String("token", token.String())),
	}
}

func (c *Connection) Token() uuid.UUID {
	return c.token
}

func (c *Connection) Identity() model.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.identity
}

func (c *Connection) Name() string {
	return c.Identity().DisplayName
}

func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connected
}

// DisconnectedSince returns when the transport dropped. The bool is
// false while the connection is live.
func (c *Connection) DisconnectedSince() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return time.Time{}, false
	}
	return c.disconnectedAt, true
}

// Send encodes and writes a packet. It fails when the transport has
// dropped and the client has not yet reconnected.
func (c *Connection) Send(packet protocol.ServerPacket) error {
	c.mu.Lock()
	t := c.transport
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return model.ErrDisconnected
	}
	return t.Send(protocol.Encode(packet))
}

// TrySend is a best-effort Send for broadcasts, where a dropped
// recipient must not interrupt delivery to the others.
func (c *Connection) TrySend(packet protocol.ServerPacket) {
	if err := c.Send(packet); err != nil {
		c.logger.Debug("dropping packet for unreachable client",
			slog.String("packet", packet.Type().String()),
			slog.Any("error", err))
	}
}

// SendError delivers an Error packet and closes the transport.
func (c *Connection) SendError(message string) {
	c.TrySend(protocol.Error{Message: message})

	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	_ = t.Close()
}

func (c *Connection) attach(t transport.Transport, name string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transport = t
	c.connected = true
	c.connectedAt = now
	if name != "" {
		c.identity.DisplayName = name
	}
}

func (c *Connection) markDisconnected(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	c.disconnectedAt = now
}

// usesTransport reports whether t is this connection's current transport.
// A stale transport closing after a reconnect must not disconnect the
// new one.
func (c *Connection) usesTransport(t transport.Transport) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transport == t
}
