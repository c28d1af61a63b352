package transport

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/game"
)

// jsonOption mirrors game.OptionPair as a two-element array on the wire
// (§6: "JSON-encoded array of [title, artist] pairs").
type jsonOption [2]string

// jsonSuggestion mirrors game.SearchItem on the wire (§6: "json-array of
// {name,id,type}").
type jsonSuggestion struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Type string `json:"type"`
}

// encode renders a single ServerMessage to its wire line (§6), with no
// trailing newline — the caller appends it. Apart from the two greeting
// lines writePump writes, this is the only place in the repo that knows the
// outbound verb prefixes.
func encode(msg game.ServerMessage) string {
	switch m := msg.(type) {
	case game.Ack:
		return "k"

	case game.ErrMsg:
		return fmt.Sprintf("ERR %s", quote(m.Message))

	case game.GameCreated:
		return fmt.Sprintf("game_created %s", m.RoomID.String())

	case game.GameNotFound:
		return "game_not_found"

	case game.UserJoinMsg:
		return fmt.Sprintf("user_join %s", quote(m.Name))

	case game.UserLeaveMsg:
		return fmt.Sprintf("user_leave %s", quote(m.Name))

	case game.UserReadyMsg:
		return fmt.Sprintf("user_ready %s", quote(m.Name))

	case game.UserUnreadyMsg:
		return fmt.Sprintf("user_unready %s", quote(m.Name))

	case game.GameStartAt:
		return fmt.Sprintf("game_start_at %d", m.UnixMs)

	case game.GameStartSelect:
		return "game_start_select"

	case game.Suggestions:
		rows := make([]jsonSuggestion, 0, len(m.Items))
		for _, it := range m.Items {
			rows = append(rows, jsonSuggestion{Name: it.Name, ID: it.ID, Type: it.Type})
		}
		return fmt.Sprintf("suggestions %s", marshalOrEmpty(rows))

	case game.GameStartGuessing:
		return "game_start_guessing"

	case game.GamePlayAudio:
		return fmt.Sprintf("game_play_audio %s", m.SongID)

	case game.GuessOptions:
		rows := make([]jsonOption, 0, len(m.Options))
		for _, o := range m.Options {
			rows = append(rows, jsonOption{o.Title, o.Artist})
		}
		return marshalOrEmpty(rows)

	case game.CorrectMsg:
		return fmt.Sprintf("correct %d", m.Idx)

	case game.LeaderBoardMsg:
		return fmt.Sprintf("leader_board %s", debugLeaderboard(m))

	case game.AddedSongMsg:
		return fmt.Sprintf("added_song %+v", m.Song)

	case game.RemovedSongMsg:
		return fmt.Sprintf("removed_song %d", m.Idx)

	case game.GameEndedMsg:
		return "game_ended"

	default:
		return "ERR \"Internal error\""
	}
}

// quote wraps s in double quotes, matching §6's `"<name>"` rendering for
// user-supplied strings.
func quote(s string) string {
	return strconv.Quote(s)
}

func marshalOrEmpty(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// debugLeaderboard renders LeaderBoard the way §6 describes it: a
// "debug-printable variant", not a strict wire format other clients parse.
func debugLeaderboard(m game.LeaderBoardMsg) string {
	parts := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		parts = append(parts, fmt.Sprintf("%s:%d", e.Name, e.Score))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
