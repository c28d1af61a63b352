package game

import "context"

// ServerMessage is the sum type every core component emits. Only the
// session layer (internal/transport) knows how to render a variant to a
// wire line (§4.1); nothing in this package formats text.
type ServerMessage interface {
	isServerMessage()
}

type Ack struct{}

func (Ack) isServerMessage() {}

// ErrMsg carries one of §4's fixed human-readable error strings.
type ErrMsg struct {
	Message string
}

func (ErrMsg) isServerMessage() {}

type GameCreated struct {
	RoomID RoomID
}

func (GameCreated) isServerMessage() {}

type GameNotFound struct{}

func (GameNotFound) isServerMessage() {}

type UserJoinMsg struct {
	Name string
}

func (UserJoinMsg) isServerMessage() {}

type UserLeaveMsg struct {
	Name string
}

func (UserLeaveMsg) isServerMessage() {}

type UserReadyMsg struct {
	Name string
}

func (UserReadyMsg) isServerMessage() {}

type UserUnreadyMsg struct {
	Name string
}

func (UserUnreadyMsg) isServerMessage() {}

// GameStartAt carries the unix-millisecond instant the countdown will fire.
type GameStartAt struct {
	UnixMs int64
}

func (GameStartAt) isServerMessage() {}

type GameStartSelect struct{}

func (GameStartSelect) isServerMessage() {}

// SearchItem is one suggestion result from the catalog adapter (C5).
// Type is one of "video", "channel", "playlist" per the source-id prefix
// convention in §6/GLOSSARY.
type SearchItem struct {
	Name string
	ID   string
	Type string
}

type Suggestions struct {
	Items []SearchItem
}

func (Suggestions) isServerMessage() {}

type GameStartGuessing struct{}

func (GameStartGuessing) isServerMessage() {}

type GamePlayAudio struct {
	SongID string
}

func (GamePlayAudio) isServerMessage() {}

// OptionPair is one multiple-choice slot: a (title, artist) pair.
type OptionPair struct {
	Title  string
	Artist string
}

type GuessOptions struct {
	Options []OptionPair
}

func (GuessOptions) isServerMessage() {}

type CorrectMsg struct {
	Idx int
}

func (CorrectMsg) isServerMessage() {}

// ScoreEntry is one leaderboard row, in current standing order.
type ScoreEntry struct {
	Name  string
	Score int
}

type LeaderBoardMsg struct {
	Entries []ScoreEntry
}

func (LeaderBoardMsg) isServerMessage() {}

type AddedSongMsg struct {
	Song Song
}

func (AddedSongMsg) isServerMessage() {}

type RemovedSongMsg struct {
	Idx int
}

func (RemovedSongMsg) isServerMessage() {}

type GameEndedMsg struct{}

func (GameEndedMsg) isServerMessage() {}

// CatalogAdapter is C5's external contract (§4.5): suggestions, and
// resolving a source id to one or many songs. The core only assumes these
// two calls are blocking and may fail; everything else (instance pooling,
// circuit breaking, caching, periodic refresh) is internal to
// internal/catalog.
type CatalogAdapter interface {
	Suggest(ctx context.Context, query string) ([]SearchItem, error)
	ResolveOneOrMore(ctx context.Context, sourceID string) ([]Song, error)
}
