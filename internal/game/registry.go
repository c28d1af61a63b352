package game

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/logging"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/metrics"
)

// maxRoomIDAttempts bounds the collision-retry loop in CreateRoom (§4.2).
// 16 bits of id space makes a collision on any single attempt astronomically
// unlikely at realistic room counts; this is only a backstop against a
// pathological caller.
const maxRoomIDAttempts = 64

// Registry is C2: the single exclusive-locked map of active rooms. Per §5,
// the registry's lock is the ONLY lock covering room state — Room has none
// of its own, so every mutation to a Room's fields happens while holding
// Registry.mu.
type Registry struct {
	mu    sync.Mutex
	rooms map[RoomID]*Room

	// startCountdown is §4.3's START_TIMEOUT: 12s release / 2s debug,
	// threaded through from config so every room uses the same value.
	startCountdown time.Duration
}

// NewRegistry constructs an empty registry. startCountdown is the ready-up
// countdown duration (config.Config.StartCountdown).
func NewRegistry(startCountdown time.Duration) *Registry {
	return &Registry{
		rooms:          make(map[RoomID]*Room),
		startCountdown: startCountdown,
	}
}

// WithRoomMut locks the registry, looks up id, and if present calls fn while
// still holding the lock, so fn may freely mutate the room's fields. Returns
// a NotFound GameError if the room is gone — the caller (room.go commands,
// and the round engine's single completion re-entry) must treat this as an
// expected outcome, not a bug, per §8 scenario S6.
func (reg *Registry) WithRoomMut(id RoomID, fn func(r *Room) error) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[id]
	if !ok {
		return newNotFoundError("game not found")
	}
	return fn(r)
}

// CreateRoom allocates a fresh room id, constructs the room with host as its
// sole initial player, and inserts it — all under one critical section, so
// no other goroutine can observe a room id that maps to nothing (§4.2).
// clock may be nil, in which case SystemClock is used — tests pass a fake
// clock to make the ready-up countdown and round deadlines deterministic.
func (reg *Registry) CreateRoom(ctx context.Context, host *User, catalog CatalogAdapter, clock Clock) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	id, err := reg.allocateIDLocked()
	if err != nil {
		return nil, err
	}

	if clock == nil {
		clock = SystemClock{}
	}
	r := newRoom(id, reg, catalog, clock, reg.startCountdown)
	r.players = append(r.players, host)
	host.SetGame(id)
	reg.rooms[id] = r

	metrics.ActiveRooms.Inc()
	metrics.RoomPlayers.WithLabelValues(id.String()).Set(1)

	logging.Info(ctx, "room created", zap.Uint16("room_id", uint16(id)))
	return r, nil
}

// allocateIDLocked must be called with reg.mu held.
func (reg *Registry) allocateIDLocked() (RoomID, error) {
	for range maxRoomIDAttempts {
		id := RoomID(rand.N(65536))
		if _, exists := reg.rooms[id]; !exists {
			return id, nil
		}
	}
	return 0, newInternalError("could not allocate a room id")
}

// Leave removes user from room id. If the room's player list becomes empty
// as a result, the room is deleted from the registry in the same critical
// section — regardless of game phase. This is what makes S6 safe: a round
// engine's completion callback arriving after the last player left simply
// finds the room gone (WithRoomMut returns NotFound) and drops its final
// broadcast.
func (reg *Registry) Leave(ctx context.Context, id RoomID, user *User) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[id]
	if !ok {
		return newNotFoundError("game not found")
	}

	empty := r.leaveLocked(user)
	if empty {
		delete(reg.rooms, id)
		metrics.ActiveRooms.Dec()
		metrics.RoomPlayers.DeleteLabelValues(id.String())
		logging.Info(ctx, "room emptied and removed", zap.Uint16("room_id", uint16(id)))
	} else {
		metrics.RoomPlayers.WithLabelValues(id.String()).Set(float64(len(r.players)))
	}
	return nil
}

