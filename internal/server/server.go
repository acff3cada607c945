// Package server exposes the HTTP surface: the websocket endpoint
// clients play over, plus small JSON endpoints for health and live
// game listings.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/urnet/gameserver/internal/network"
	"github.com/urnet/gameserver/internal/session"
	"github.com/urnet/gameserver/internal/transport"
)

type Server struct {
	network  *network.Manager
	sessions *session.Manager
	logger   *slog.Logger

	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

func New(addr string, netMgr *network.Manager, sessions *session.Manager, logger *slog.Logger) *Server {
	s := &Server{
		network:  netMgr,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "server")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Game clients are served from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	s.router = mux.NewRouter()
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/games", s.handleGames).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	return s
}

// Router exposes the handler, for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.logger.Info("listening", slog.String("addr", s.httpServer.Addr))

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGames(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sessions.Summaries())
}

// handleWebSocket upgrades the request and hands the transport to the
// connection manager. The read loop runs on its own goroutine for the
// life of the socket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			slog.String("remote", r.RemoteAddr),
			slog.Any("error", err))
		return
	}

	t := transport.NewWebSocket(conn)
	s.network.AcceptTransport(t)
	go s.readLoop(t)
}

func (s *Server) readLoop(t *transport.WebSocket) {
	defer s.network.OnTransportClosed(t)

	for {
		frame, err := t.ReadFrame()
		if err != nil {
			return
		}
		s.network.OnFrame(t, frame)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to write response", slog.Any("error", err))
	}
}
