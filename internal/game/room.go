package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/set"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/logging"
)

// phase is the Playing sub-state (§3's PlayPhase). Lobby is represented by
// phase zero-value handling in Room rather than its own type, since Lobby
// carries only ready_count, which Room already tracks via readyUsers.
type phase int

const (
	phaseLobby phase = iota
	phaseSelecting
	phaseGuessing
)

// Room is C3: the per-game state machine. It has no mutex of its own —
// every method here assumes the caller (Registry) already holds the
// registry's single exclusive lock (§5).
type Room struct {
	id       RoomID
	registry *Registry
	catalog  CatalogAdapter
	clock    Clock

	startCountdown time.Duration

	players    []*User
	phase      phase
	readyUsers set.Set[UserID]

	// startEpoch increments on every transition into Lobby. A scheduled
	// ready-up countdown captures the epoch at schedule time and compares it
	// at fire time, in addition to the phase/ready_count re-check §4.3
	// requires — this guards against a timer from an earlier Lobby
	// occurrence firing against a later one with a coincidentally matching
	// ready_count. Not spelled out in §4.3/§9 verbatim; recorded as an
	// enrichment in DESIGN.md.
	startEpoch int64

	buckets map[UserID][]Song // SelectingSongs per-user contributions

	guessSink chan Guess // GuessingSongs guess_sink
}

func newRoom(id RoomID, registry *Registry, catalog CatalogAdapter, clock Clock, startCountdown time.Duration) *Room {
	return &Room{
		id:             id,
		registry:       registry,
		catalog:        catalog,
		clock:          clock,
		startCountdown: startCountdown,
		readyUsers:     set.New[UserID](),
		buckets:        make(map[UserID][]Song),
	}
}

// ID returns the room's id.
func (r *Room) ID() RoomID { return r.id }

func (r *Room) broadcast(msg ServerMessage) {
	for _, p := range r.players {
		p.Send(msg)
	}
}

func (r *Room) indexOf(user *User) int {
	for i, p := range r.players {
		if p.ID() == user.ID() {
			return i
		}
	}
	return -1
}

// join implements §4.3's join contract.
func (r *Room) join(user *User) {
	if r.phase != phaseLobby {
		user.Send(ErrMsg{Message: "cannot join game: game is not in lobby state"})
		return
	}

	r.broadcast(UserJoinMsg{Name: user.Name()})
	for _, p := range r.players {
		user.Send(UserJoinMsg{Name: p.Name()})
	}

	user.SetGame(r.id)
	r.players = append(r.players, user)
}

// leaveLocked implements §4.3's leave contract plus §9's ready_count
// decrement note. Returns true iff players became empty.
func (r *Room) leaveLocked(user *User) bool {
	idx := r.indexOf(user)
	if idx < 0 {
		return len(r.players) == 0
	}

	r.players = append(r.players[:idx], r.players[idx+1:]...)
	user.ClearGame()
	r.readyUsers.Delete(user.ID())
	delete(r.buckets, user.ID())

	r.broadcast(UserLeaveMsg{Name: user.Name()})
	return len(r.players) == 0
}

// ready implements §4.3's ready contract, including the countdown schedule.
func (r *Room) ready(ctx context.Context, user *User) {
	if r.phase != phaseLobby {
		user.Send(ErrMsg{Message: "cannot ready up: game is not in lobby state"})
		return
	}

	r.readyUsers.Insert(user.ID())
	r.broadcast(UserReadyMsg{Name: user.Name()})

	if r.readyUsers.Len() < len(r.players) {
		user.Send(Ack{})
		return
	}

	startAt := r.clock.Now().Add(r.startCountdown)
	r.broadcast(GameStartAt{UnixMs: startAt.UnixMilli()})
	user.Send(Ack{})

	epoch := r.startEpoch
	roomID := r.id
	registry := r.registry
	r.clock.After(r.startCountdown, func() {
		_ = registry.WithRoomMut(roomID, func(room *Room) error {
			if room.startEpoch != epoch {
				return nil
			}
			if room.phase != phaseLobby {
				return nil
			}
			if room.readyUsers.Len() != len(room.players) {
				return nil
			}
			room.startGameLocked()
			return nil
		})
	})
}

// unready implements §4.3's unready contract.
func (r *Room) unready(user *User) {
	if r.phase != phaseLobby {
		user.Send(ErrMsg{Message: "cannot unready: game is not in lobby state"})
		return
	}
	if r.readyUsers.Len() == 0 {
		user.Send(ErrMsg{Message: "cannot unready: no player is ready"})
		return
	}
	r.readyUsers.Delete(user.ID())
	r.broadcast(UserUnreadyMsg{Name: user.Name()})
}

// startGameLocked transitions Lobby -> Playing(SelectingSongs) (§4.3's
// internal start_game).
func (r *Room) startGameLocked() {
	r.phase = phaseSelecting
	r.buckets = make(map[UserID][]Song)
	r.broadcast(GameStartSelect{})
}

// addSong implements §4.3's add_song contract. The download itself runs on
// a background goroutine outside the registry lock; only its completion
// re-enters via Registry.WithRoomMut.
func (r *Room) addSong(ctx context.Context, user *User, sourceID string) {
	if r.phase != phaseSelecting {
		user.Send(ErrMsg{Message: "cannot add song: game is not in selecting state"})
		return
	}
	user.Send(Ack{})

	registry := r.registry
	roomID := r.id
	catalog := r.catalog
	contributorID := user.ID()

	go func() {
		songs, err := catalog.ResolveOneOrMore(ctx, sourceID)
		if err != nil {
			_ = registry.WithRoomMut(roomID, func(room *Room) error {
				if p := room.findPlayer(contributorID); p != nil {
					p.Send(ErrMsg{Message: fmt.Sprintf("failed to download song: %v", err)})
				}
				return nil
			})
			return
		}

		_ = registry.WithRoomMut(roomID, func(room *Room) error {
			if room.phase != phaseSelecting {
				// "Game started before song download could finish" — drop silently (§4.3).
				return nil
			}
			p := room.findPlayer(contributorID)
			if p == nil {
				return nil
			}
			room.buckets[contributorID] = append(room.buckets[contributorID], songs...)
			for _, s := range songs {
				p.Send(AddedSongMsg{Song: s})
			}
			return nil
		})
	}()
}

func (r *Room) findPlayer(id UserID) *User {
	for _, p := range r.players {
		if p.ID() == id {
			return p
		}
	}
	return nil
}

// removeSong implements §4.3's remove_song contract.
func (r *Room) removeSong(user *User, idx int) {
	if r.phase != phaseSelecting {
		user.Send(ErrMsg{Message: "cannot remove song: game is not in selecting state"})
		return
	}
	bucket := r.buckets[user.ID()]
	if idx < 0 || idx >= len(bucket) {
		user.Send(ErrMsg{Message: "cannot remove song: index out of range"})
		return
	}
	r.buckets[user.ID()] = append(bucket[:idx], bucket[idx+1:]...)
	user.Send(RemovedSongMsg{Idx: idx})
}

// startGuessing implements §4.3's start_guessing contract: host-only,
// flattens buckets in player join order, and hands the bag to a fresh round
// engine.
func (r *Room) startGuessing(user *User) {
	if r.phase != phaseSelecting {
		user.Send(ErrMsg{Message: "cannot start guessing: game is not in selecting state"})
		return
	}
	if len(r.players) == 0 || r.players[0].ID() != user.ID() {
		user.Send(ErrMsg{Message: "cannot start guessing: you are not the leader"})
		return
	}

	var bag []Song
	for _, p := range r.players {
		bag = append(bag, r.buckets[p.ID()]...)
	}
	if len(bag) == 0 {
		user.Send(ErrMsg{Message: "cannot start guessing: no songs have been added"})
		return
	}

	playersSnapshot := append([]*User(nil), r.players...)
	r.guessSink = startRoundEngine(r.registry, r.id, playersSnapshot, bag, r.clock)
	r.phase = phaseGuessing

	logging.Info(context.Background(), "round engine started",
		zap.Uint16("room_id", uint16(r.id)), zap.Int("song_count", len(bag)))

	r.broadcast(GameStartGuessing{})
}

// guess implements §4.3's guess contract.
func (r *Room) guess(user *User, idx int) {
	if r.phase != phaseGuessing || r.guessSink == nil {
		user.Send(ErrMsg{Message: "cannot guess: game is not in guessing state"})
		return
	}
	r.guessSink <- Guess{User: user, Idx: idx}
}

// finishGameLocked is the round engine's single completion re-entry point
// (§4.4): transition back to Lobby{0} so a new ready-up cycle can begin.
func (r *Room) finishGameLocked() {
	r.phase = phaseLobby
	r.readyUsers = set.New[UserID]()
	r.buckets = make(map[UserID][]Song)
	r.guessSink = nil
	r.startEpoch++
}
