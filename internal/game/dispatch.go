package game

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/logging"
)

// Action is the closed verb set C1 recognizes (§6). Unknown verbs never
// reach Dispatch — the session layer maps them to ActionInvalid itself.
type Action string

const (
	ActionSetUsername   Action = "set_username"
	ActionNew           Action = "new"
	ActionJoin          Action = "join"
	ActionReadyUp       Action = "ready_up"
	ActionUnready       Action = "unready"
	ActionStart         Action = "start" // reserved, unused
	ActionSuggest       Action = "suggest"
	ActionAdd           Action = "add"
	ActionRemove        Action = "remove"
	ActionStartGuessing Action = "start_guessing"
	ActionGuess         Action = "guess"
	ActionLeave         Action = "leave"
	ActionInvalid       Action = ""
)

// Dispatch is the single core entrypoint described in §2: C1 parses one
// line into (action, payload) and calls this with the resolved user. It
// takes the registry lock only long enough to resolve the room and run one
// command; every reply is delivered directly to user.Send (or broadcast to
// the room) by the called Room method — Dispatch itself never formats wire
// text.
func Dispatch(ctx context.Context, reg *Registry, catalog CatalogAdapter, user *User, action Action, payload string) {
	switch action {
	case ActionSetUsername:
		user.SetName(payload)

	case ActionNew:
		leaveCurrentRoom(ctx, reg, user)
		room, err := reg.CreateRoom(ctx, user, catalog, nil)
		if err != nil {
			if errors.Is(err, ErrKindInternal) {
				logging.Error(ctx, "create room failed", zap.Error(err))
				return
			}
			user.Send(ErrMsg{Message: err.Error()})
			return
		}
		user.Send(GameCreated{RoomID: room.ID()})

	case ActionJoin:
		leaveCurrentRoom(ctx, reg, user)
		id := parseRoomID(payload)
		err := reg.WithRoomMut(id, func(r *Room) error {
			r.join(user)
			return nil
		})
		if err != nil {
			user.Send(GameNotFound{})
		}

	case ActionReadyUp:
		withCurrentRoom(ctx, reg, user, "cannot ready up: not in a game", func(r *Room) {
			r.ready(ctx, user)
		})

	case ActionUnready:
		withCurrentRoom(ctx, reg, user, "cannot unready: not in a game", func(r *Room) {
			r.unready(user)
		})

	case ActionStart:
		user.Send(ErrMsg{Message: "Invalid Action"})

	case ActionSuggest:
		handleSuggest(ctx, catalog, user, payload)

	case ActionAdd:
		withCurrentRoom(ctx, reg, user, "cannot add song: not in a game", func(r *Room) {
			r.addSong(ctx, user, payload)
		})

	case ActionRemove:
		idx, ok := parseUint(payload)
		if !ok {
			user.Send(ErrMsg{Message: "cannot remove song: invalid index"})
			return
		}
		withCurrentRoom(ctx, reg, user, "cannot remove song: not in a game", func(r *Room) {
			r.removeSong(user, idx)
		})

	case ActionStartGuessing:
		withCurrentRoom(ctx, reg, user, "cannot start guessing: not in a game", func(r *Room) {
			r.startGuessing(user)
		})

	case ActionGuess:
		idx := parseGuessIdx(payload)
		withCurrentRoom(ctx, reg, user, "cannot guess: not in a game", func(r *Room) {
			r.guess(user, idx)
		})

	case ActionLeave:
		leaveCurrentRoom(ctx, reg, user)

	default:
		user.Send(ErrMsg{Message: "Invalid Action"})
	}
}

// withCurrentRoom resolves user's current room and runs fn under the
// registry lock. If user is not in a room, it sends notInGameMsg as an
// ErrMsg — this covers §8's "ready_up when not in a room" boundary case and
// its siblings.
func withCurrentRoom(ctx context.Context, reg *Registry, user *User, notInGameMsg string, fn func(r *Room)) {
	id, ok := user.GameID()
	if !ok {
		user.Send(ErrMsg{Message: notInGameMsg})
		return
	}
	err := reg.WithRoomMut(id, func(r *Room) error {
		fn(r)
		return nil
	})
	if err != nil {
		user.Send(ErrMsg{Message: notInGameMsg})
	}
}

// leaveCurrentRoom implements the "join while already in a room leaves the
// old room first" round-trip property (§8). It is a no-op, safely, if the
// user is not currently in a room.
func leaveCurrentRoom(ctx context.Context, reg *Registry, user *User) {
	id, ok := user.GameID()
	if !ok {
		return
	}
	_ = reg.Leave(ctx, id, user)
}

func handleSuggest(ctx context.Context, catalog CatalogAdapter, user *User, query string) {
	items, err := catalog.Suggest(ctx, query)
	if err != nil {
		user.Send(ErrMsg{Message: err.Error()})
		return
	}
	user.Send(Suggestions{Items: items})
}

// parseRoomID implements §6's "room id (decimal u16; 0 on parse failure)".
func parseRoomID(payload string) RoomID {
	v, err := strconv.ParseUint(payload, 10, 16)
	if err != nil {
		return 0
	}
	return RoomID(v)
}

func parseUint(payload string) (int, bool) {
	v, err := strconv.ParseUint(payload, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// parseGuessIdx implements §6's "index (decimal u8)": malformed or
// out-of-range payloads default to 0, mirroring parseRoomID rather than
// erroring, per the original implementation's guess-index parsing.
func parseGuessIdx(payload string) int {
	v, err := strconv.ParseUint(payload, 10, 8)
	if err != nil {
		return 0
	}
	return int(v)
}
