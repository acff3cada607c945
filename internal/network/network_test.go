package network

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/urnet/gameserver/internal/dependencies/mocks"
	"github.com/urnet/gameserver/internal/protocol"
	"github.com/urnet/gameserver/internal/testutil"
	"github.com/urnet/gameserver/internal/transport"
)

type connectEvent struct {
	conn      *Connection
	reconnect bool
}

type messageEvent struct {
	conn   *Connection
	packet protocol.ClientPacket
}

type recordingHandler struct {
	mu          sync.Mutex
	connects    []connectEvent
	disconnects []*Connection
	timeouts    []*Connection
	messages    []messageEvent
}

func (h *recordingHandler) OnConnect(conn *Connection, reconnect bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connects = append(h.connects, connectEvent{conn, reconnect})
}

func (h *recordingHandler) OnDisconnect(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnects = append(h.disconnects, conn)
}

func (h *recordingHandler) OnReconnectTimeout(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timeouts = append(h.timeouts, conn)
}

func (h *recordingHandler) OnMessage(conn *Connection, packet protocol.ClientPacket) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, messageEvent{conn, packet})
}

type NetworkTestSuite struct {
	suite.Suite

	clock   *mocks.MockClock
	random  *mocks.MockRandom
	handler *recordingHandler
	manager *Manager
}

func (s *NetworkTestSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.handler = &recordingHandler{}
	s.manager = NewManager(s.handler, s.clock, s.random, testutil.NopLogger())
}

func openFrame(name string) string {
	return fmt.Sprintf("0%04d%02d%s", protocol.Version, len(name), name)
}

func reopenFrame(token uuid.UUID, name string) string {
	return fmt.Sprintf("1%04d%s%02d%s", protocol.Version, token, len(name), name)
}

// connect runs a full Open handshake and returns the transport and the
// token the server issued.
func (s *NetworkTestSuite) connect(name string) (*transport.Fake, uuid.UUID) {
	t := transport.NewFake()
	s.manager.AcceptTransport(t)
	s.manager.OnFrame(t, openFrame(name))

	frames := s.Drain(t)
	s.Require().Len(frames, 1)
	s.Require().Equal(byte('1'), frames[0][0], "expected a set id frame")

	token, err := uuid.Parse(frames[0][1:])
	s.Require().NoError(err)
	return t, token
}

func (s *NetworkTestSuite) Drain(t *transport.Fake) []string {
	return t.TakeFrames()
}

func (s *NetworkTestSuite) TestOpenHandshake() {
	t, token := s.connect("Alice")

	s.Require().Len(s.handler.connects, 1)
	s.False(s.handler.connects[0].reconnect)

	conn := s.handler.connects[0].conn
	s.Equal(token, conn.Token())
	s.Equal("Alice", conn.Name())
	s.True(conn.Connected())
	s.False(t.Closed())
}

func (s *NetworkTestSuite) TestOpenSanitizesName() {
	s.random.QueueIntn(2)

	_, _ = s.connect("")

	s.Require().Len(s.handler.connects, 1)
	s.Equal("Tiger", s.handler.connects[0].conn.Name())
}

func (s *NetworkTestSuite) TestVersionMismatchRejected() {
	t := transport.NewFake()
	s.manager.AcceptTransport(t)
	s.manager.OnFrame(t, fmt.Sprintf("0%04d%02d%s", protocol.Version+1, 5, "Alice"))

	frames := s.Drain(t)
	s.Require().Len(frames, 1)
	s.Contains(frames[0], "protocol version mismatch")
	s.True(t.Closed())
	s.Empty(s.handler.connects)
}

func (s *NetworkTestSuite) TestNonHandshakeFirstPacketRejected() {
	t := transport.NewFake()
	s.manager.AcceptTransport(t)
	s.manager.OnFrame(t, "3")

	frames := s.Drain(t)
	s.Require().Len(frames, 1)
	s.Equal(byte('0'), frames[0][0])
	s.True(t.Closed())
	s.Empty(s.handler.connects)
}

func (s *NetworkTestSuite) TestMalformedFrameRejected() {
	t := transport.NewFake()
	s.manager.AcceptTransport(t)
	s.manager.OnFrame(t, "not a packet")

	frames := s.Drain(t)
	s.Require().Len(frames, 1)
	s.Contains(frames[0], "malformed packet")
	s.True(t.Closed())
}

func (s *NetworkTestSuite) TestMessageRouting() {
	t, _ := s.connect("Alice")

	s.manager.OnFrame(t, "3")

	s.Require().Len(s.handler.messages, 1)
	s.Equal(protocol.FindGame{}, s.handler.messages[0].packet)
	s.Equal(s.handler.connects[0].conn, s.handler.messages[0].conn)
}

func (s *NetworkTestSuite) TestDisconnectNotifiesHandler() {
	t, _ := s.connect("Alice")

	s.clock.Advance(30 * time.Second)
	s.manager.OnTransportClosed(t)

	s.Require().Len(s.handler.disconnects, 1)
	conn := s.handler.disconnects[0]
	s.False(conn.Connected())

	since, ok := conn.DisconnectedSince()
	s.True(ok)
	s.Equal(s.clock.Now(), since)
}

func (s *NetworkTestSuite) TestSendAfterDisconnectFails() {
	t, _ := s.connect("Alice")
	s.manager.OnTransportClosed(t)

	conn := s.handler.connects[0].conn
	s.Error(conn.Send(protocol.Error{Message: "hello"}))
}

func (s *NetworkTestSuite) TestReconnectWithinWindow() {
	t1, token := s.connect("Alice")
	s.manager.OnTransportClosed(t1)

	s.clock.Advance(time.Minute)

	t2 := transport.NewFake()
	s.manager.AcceptTransport(t2)
	s.manager.OnFrame(t2, reopenFrame(token, "Alice"))

	frames := s.Drain(t2)
	s.Require().Len(frames, 1)
	s.Equal("1"+token.String(), frames[0])

	s.Require().Len(s.handler.connects, 2)
	s.True(s.handler.connects[1].reconnect)
	s.Equal(s.handler.connects[0].conn, s.handler.connects[1].conn, "same connection is reclaimed")
	s.True(s.handler.connects[1].conn.Connected())
}

func (s *NetworkTestSuite) TestReconnectRoutesToNewTransport() {
	t1, token := s.connect("Alice")
	s.manager.OnTransportClosed(t1)

	t2 := transport.NewFake()
	s.manager.AcceptTransport(t2)
	s.manager.OnFrame(t2, reopenFrame(token, "Alice"))
	s.Drain(t2)

	conn := s.handler.connects[0].conn
	s.Require().NoError(conn.Send(protocol.Error{Message: "hi"}))
	s.Empty(t1.Frames())
	s.Equal([]string{"0hi"}, t2.Frames())
}

func (s *NetworkTestSuite) TestReopenUnknownTokenFallsBack() {
	t := transport.NewFake()
	s.manager.AcceptTransport(t)
	s.manager.OnFrame(t, reopenFrame(uuid.New(), "Bob"))

	frames := s.Drain(t)
	s.Require().Len(frames, 1)

	s.Require().Len(s.handler.connects, 1)
	s.False(s.handler.connects[0].reconnect, "unknown token starts a fresh connection")
}

func (s *NetworkTestSuite) TestReopenAfterWindowFallsBack() {
	t1, token := s.connect("Alice")
	s.manager.OnTransportClosed(t1)

	s.clock.Advance(ReconnectWindow + time.Second)

	t2 := transport.NewFake()
	s.manager.AcceptTransport(t2)
	s.manager.OnFrame(t2, reopenFrame(token, "Alice"))

	s.Require().Len(s.handler.connects, 2)
	s.False(s.handler.connects[1].reconnect)
	s.NotEqual(token, s.handler.connects[1].conn.Token())
}

func (s *NetworkTestSuite) TestStaleTransportCloseIgnoredAfterReconnect() {
	t1, token := s.connect("Alice")
	s.manager.OnTransportClosed(t1)

	t2 := transport.NewFake()
	s.manager.AcceptTransport(t2)
	s.manager.OnFrame(t2, reopenFrame(token, "Alice"))
	s.Drain(t2)

	// The old transport's read loop winds down after the reconnect.
	s.manager.OnTransportClosed(t1)

	s.Require().Len(s.handler.disconnects, 1)
	s.True(s.handler.connects[0].conn.Connected())
}

func (s *NetworkTestSuite) TestLimboPurge() {
	t := transport.NewFake()
	s.manager.AcceptTransport(t)

	s.clock.Advance(LimboTimeout - time.Second)
	s.manager.PurgeExpired()
	s.False(t.Closed())

	s.clock.Advance(2 * time.Second)
	s.manager.PurgeExpired()
	s.True(t.Closed())
}

func (s *NetworkTestSuite) TestReconnectWindowPurge() {
	t, _ := s.connect("Alice")
	s.manager.OnTransportClosed(t)

	s.clock.Advance(ReconnectWindow - time.Second)
	s.manager.PurgeExpired()
	s.Empty(s.handler.timeouts)

	s.clock.Advance(2 * time.Second)
	s.manager.PurgeExpired()

	s.Require().Len(s.handler.timeouts, 1)
	s.Equal(s.handler.connects[0].conn, s.handler.timeouts[0])
}

func (s *NetworkTestSuite) TestStopClosesTransports() {
	limbo := transport.NewFake()
	s.manager.AcceptTransport(limbo)

	established, _ := s.connect("Alice")

	s.manager.Stop()

	s.True(limbo.Closed())
	s.True(established.Closed())
}

func TestNetworkTestSuite(t *testing.T) {
	suite.Run(t, new(NetworkTestSuite))
}
