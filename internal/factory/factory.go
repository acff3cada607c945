package factory

import (
	"context"
	"io"
	"log/slog"

	"github.com/urnet/gameserver/internal/dependencies/clock"
	"github.com/urnet/gameserver/internal/dependencies/random"
	"github.com/urnet/gameserver/internal/matchmaker"
	"github.com/urnet/gameserver/internal/network"
	"github.com/urnet/gameserver/internal/repository"
	"github.com/urnet/gameserver/internal/rules"
	"github.com/urnet/gameserver/internal/server"
	"github.com/urnet/gameserver/internal/session"
)

// App contains all wired application components
type App struct {
	// External dependencies
	Clock  clock.Clock
	Random random.Random

	Repository *repository.Repository
	Engine     rules.Engine
	Sessions   *session.Manager
	Matchmaker *matchmaker.Matchmaker
	Network    *network.Manager
	Server     *server.Server
}

// Config holds configuration for the application factory
type Config struct {
	// Addr is the listen address for the HTTP server
	Addr string
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
}

// New creates a new application with all dependencies wired
func New(cfg Config) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	return newWithDependencies(cfg.Addr, clock.New(), random.New(), logger)
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(addr string, clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	repo := repository.New(clk, rnd, logger)
	engine := rules.NewEngine(rnd)

	sessions := session.NewManager(repo, engine, clk, logger)
	mm := matchmaker.New(repo, sessions, rnd, logger)
	sessions.SetLobby(mm)

	netMgr := network.NewManager(sessions, clk, rnd, logger)
	srv := server.New(addr, netMgr, sessions, logger)

	return &App{
		Clock:      clk,
		Random:     rnd,
		Repository: repo,
		Engine:     engine,
		Sessions:   sessions,
		Matchmaker: mm,
		Network:    netMgr,
		Server:     srv,
	}
}

// Start launches the background schedulers and blocks serving HTTP.
func (a *App) Start() error {
	a.Repository.Start()
	a.Sessions.Start()
	a.Network.Start()

	return a.Server.Start()
}

// Shutdown ends every game with a shutdown notice, then stops the
// schedulers and the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	a.Sessions.StopAll("Server is shutting down")

	a.Network.Stop()
	a.Sessions.Stop()
	a.Repository.Stop()

	return a.Server.Shutdown(ctx)
}
