package game

import (
	"context"
	"math/rand/v2"
	"sort"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/set"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/logging"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/metrics"
)

// Guess is one (user, chosen index) delivered through a round's guess sink.
type Guess struct {
	User *User
	Idx  int
}

const (
	startCountdownPauseAfterCorrect = 2 * time.Second
	pauseBeforeNextRound            = 5 * time.Second
	pauseBeforeGameEnded            = 10 * time.Second
	roundGuessDeadline              = 180 * time.Second
)

// roundEngine is C4: a background worker that owns one Playing phase's song
// bag exclusively and reports completion back through the registry.
type roundEngine struct {
	registry *Registry
	roomID   RoomID
	players  []*User // snapshot taken at start_guessing; round engine never re-reads the registry for this
	bag      []Song
	guessCh  chan Guess
	clock    Clock

	scores     map[UserID]int
	scoreOrder []UserID // first-attained order, for leaderboard tie-breaking
}

// startRoundEngine launches the round engine on its own goroutine and
// returns the guess sink Room.guess delivers to. Capacity is at least the
// player count, per §4.4/§5.
func startRoundEngine(registry *Registry, roomID RoomID, players []*User, bag []Song, clock Clock) chan Guess {
	sinkCap := len(players)
	if sinkCap < 1 {
		sinkCap = 1
	}
	eng := &roundEngine{
		registry: registry,
		roomID:   roomID,
		players:  players,
		bag:      bag,
		guessCh:  make(chan Guess, sinkCap),
		clock:    clock,
		scores:   make(map[UserID]int),
	}
	go eng.run()
	return eng.guessCh
}

func (e *roundEngine) broadcast(msg ServerMessage) {
	for _, p := range e.players {
		p.Send(msg)
	}
}

func (e *roundEngine) run() {
	ctx := context.Background()
	perm := rand.Perm(len(e.bag))
	played := set.New[string]()

	for k := range perm {
		current := e.bag[perm[k]]
		e.broadcast(GamePlayAudio{SongID: current.ID})

		options, correctIdx := buildOptions(e.bag, played, current)
		e.broadcast(GuessOptions{Options: options})

		roundStart := e.clock.Now()
		e.collectGuesses(current, correctIdx, roundStart)

		e.broadcast(CorrectMsg{Idx: correctIdx})
		e.clock.Sleep(startCountdownPauseAfterCorrect)

		e.broadcast(LeaderBoardMsg{Entries: e.leaderboard()})
		played.Insert(current.ID)

		outcome := "completed"
		if k == len(perm)-1 {
			outcome = "final"
		}
		metrics.RoundsTotal.WithLabelValues(outcome).Inc()
		metrics.RoundDuration.WithLabelValues(outcome).Observe(e.clock.Now().Sub(roundStart).Seconds())

		if k < len(perm)-1 {
			e.clock.Sleep(pauseBeforeNextRound)
		}
	}

	e.clock.Sleep(pauseBeforeGameEnded)

	err := e.registry.WithRoomMut(e.roomID, func(r *Room) error {
		r.finishGameLocked()
		return nil
	})
	if err != nil {
		// Room already gone — every player left mid-round (§8 S6). Nothing
		// to announce; leave() already removed it from the registry.
		logging.Info(ctx, "round engine completion found no room to notify",
			zap.Uint16("room_id", uint16(e.roomID)))
		return
	}
	e.broadcast(GameEndedMsg{})
}

// collectGuesses accepts guesses until every player has answered once or the
// hard 180s deadline fires (§4.4 step 5, §5 "receive-with-deadline"). The
// deadline is driven through the injected Clock (not time.After) so tests
// can fast-forward past it deterministically via fakeClock.Advance.
func (e *roundEngine) collectGuesses(current Song, correctIdx int, roundStart time.Time) {
	guessed := make(map[UserID]bool, len(e.players))
	timeout := make(chan struct{})
	e.clock.After(roundGuessDeadline, func() { close(timeout) })

	for len(guessed) < len(e.players) {
		select {
		case g := <-e.guessCh:
			if guessed[g.User.ID()] {
				continue // only the first guess per user per round counts
			}
			guessed[g.User.ID()] = true
			if g.Idx == correctIdx {
				elapsed := int(e.clock.Now().Sub(roundStart).Seconds())
				delta := ScoreDelta(elapsed)
				e.award(g.User, delta)
				metrics.ScoringEvents.WithLabelValues("correct").Inc()
			} else {
				metrics.ScoringEvents.WithLabelValues("incorrect").Inc()
			}
		case <-timeout:
			return
		}
	}
}

func (e *roundEngine) award(u *User, delta int) {
	if _, ok := e.scores[u.ID()]; !ok {
		e.scoreOrder = append(e.scoreOrder, u.ID())
	}
	e.scores[u.ID()] += delta
}

// leaderboard renders current standings ordered by score descending, ties
// broken by first-attained order (§4.4 step 7). scoreOrder already holds ids
// in first-attained order, so a stable sort on score alone preserves that
// tie-break for free.
func (e *roundEngine) leaderboard() []ScoreEntry {
	ranked := make([]UserID, len(e.scoreOrder))
	copy(ranked, e.scoreOrder)
	sort.SliceStable(ranked, func(i, j int) bool {
		return e.scores[ranked[i]] > e.scores[ranked[j]]
	})

	entries := make([]ScoreEntry, 0, len(ranked))
	byID := make(map[UserID]*User, len(e.players))
	for _, p := range e.players {
		byID[p.ID()] = p
	}
	for _, id := range ranked {
		u, ok := byID[id]
		name := ""
		if ok {
			name = u.Name()
		}
		entries = append(entries, ScoreEntry{Name: name, Score: e.scores[id]})
	}
	return entries
}
