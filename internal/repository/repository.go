// Package repository tracks which game IDs are live and which are
// reserved for invite links. Everything is held in memory; games do not
// survive a restart.
package repository

import (
	"log/slog"
	"sync"
	"time"

	"github.com/urnet/gameserver/internal/dependencies/clock"
	"github.com/urnet/gameserver/internal/dependencies/random"
	"github.com/urnet/gameserver/internal/model"
	"github.com/urnet/gameserver/internal/scheduler"
)

const (
	// ReservationTTL is how long an invite link stays claimable.
	ReservationTTL = time.Hour

	purgePeriod   = time.Minute
	schedulerTick = time.Second
)

type Repository struct {
	clock  clock.Clock
	random random.Random
	logger *slog.Logger

	scheduler *scheduler.Scheduler

	mu           sync.Mutex
	reservations map[model.GameID]model.Reservation
	games        map[model.GameID]model.GameRecord
}

func New(clk clock.Clock, rnd random.Random, logger *slog.Logger) *Repository {
	logger = logger.With(slog.String("component", "repository"))

	return &Repository{
		clock:        clk,
		random:       rnd,
		logger:       logger,
		scheduler:    scheduler.New("repository", schedulerTick, clk, logger),
		reservations: make(map[model.GameID]model.Reservation),
		games:        make(map[model.GameID]model.GameRecord),
	}
}

func (r *Repository) Start() {
	r.scheduler.ScheduleRepeating("purge-reservations", r.PurgeExpiredReservations, purgePeriod)
	r.scheduler.Start()
}

func (r *Repository) Stop() {
	r.scheduler.Stop()
}

// Reserve claims an unused game ID for the creator and returns the
// reservation.
func (r *Repository) Reserve(settings model.GameSettings, creator model.Identity) model.Reservation {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.unusedIDLocked()
	reservation := model.Reservation{
		GameID:    id,
		Settings:  settings,
		Creator:   creator,
		CreatedAt: r.clock.Now(),
	}
	r.reservations[id] = reservation

	r.logger.Info("game reserved",
		slog.String("game_id", id.String()),
		slog.String("creator", creator.DisplayName))
	return reservation
}

// NewGame mints an unused game ID and records a started game on it.
func (r *Repository) NewGame(settings model.GameSettings, light, dark model.Identity) model.GameRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.createLocked(r.unusedIDLocked(), settings, light, dark)
}

// CreateGame records a started game on a previously reserved ID,
// consuming the reservation.
func (r *Repository) CreateGame(id model.GameID, settings model.GameSettings, light, dark model.Identity) (model.GameRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[id]; ok {
		return model.GameRecord{}, model.ErrAlreadyCreated
	}
	if _, ok := r.reservations[id]; !ok {
		return model.GameRecord{}, model.ErrNotReserved
	}

	delete(r.reservations, id)
	return r.createLocked(id, settings, light, dark), nil
}

func (r *Repository) createLocked(id model.GameID, settings model.GameSettings, light, dark model.Identity) model.GameRecord {
	record := model.GameRecord{
		GameID:    id,
		Settings:  settings,
		Light:     light,
		Dark:      dark,
		CreatedAt: r.clock.Now(),
	}
	r.games[id] = record

	r.logger.Info("game created",
		slog.String("game_id", id.String()),
		slog.String("light", light.DisplayName),
		slog.String("dark", dark.DisplayName))
	return record
}

func (r *Repository) Reservation(id model.GameID) (model.Reservation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reservation, ok := r.reservations[id]
	return reservation, ok
}

func (r *Repository) Game(id model.GameID) (model.GameRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	game, ok := r.games[id]
	return game, ok
}

func (r *Repository) IsReserved(id model.GameID) bool {
	_, ok := r.Reservation(id)
	return ok
}

func (r *Repository) Contains(id model.GameID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, reserved := r.reservations[id]
	_, active := r.games[id]
	return reserved || active
}

// RemoveGame drops a finished or abandoned game's record.
func (r *Repository) RemoveGame(id model.GameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.games, id)
}

// RemoveReservationsFor drops every reservation held by the given
// creator, for when their reconnect window expires.
func (r *Repository) RemoveReservationsFor(creatorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, reservation := range r.reservations {
		if reservation.Creator.ID == creatorID {
			delete(r.reservations, id)
			r.logger.Info("reservation dropped with its creator",
				slog.String("game_id", id.String()))
		}
	}
}

// PurgeExpiredReservations removes reservations older than the TTL.
// Runs on the repository's scheduler.
func (r *Repository) PurgeExpiredReservations() {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, reservation := range r.reservations {
		if now.Sub(reservation.CreatedAt) >= ReservationTTL {
			delete(r.reservations, id)
			r.logger.Info("reservation expired", slog.String("game_id", id.String()))
		}
	}
}

func (r *Repository) unusedIDLocked() model.GameID {
	for {
		id := model.RandomGameID(r.random)
		if _, ok := r.reservations[id]; ok {
			continue
		}
		if _, ok := r.games[id]; ok {
			continue
		}
		return id
	}
}
