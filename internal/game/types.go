// Package game implements the per-room state machine described in §3-5:
// the room registry (C2), the room itself (C3), the round engine (C4), and
// the clock abstraction (C6) they share. The catalog adapter (C5) is
// consumed here only through the CatalogAdapter contract in messages.go;
// its implementation lives in internal/catalog.
package game

import (
	"strconv"
	"strings"
	"sync"
)

// UserID is a random, server-assigned identity. There is no authentication
// in this system — the id just needs to be unique for the session's
// lifetime (spec.md Non-goals).
type UserID uint32

// RoomID is randomly chosen on room creation; 16 bits per §3.
type RoomID uint16

// String renders a RoomID the way the wire protocol does: plain decimal
// (§6 `game_created <id>` / `join <id>`).
func (id RoomID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Sender delivers a single ServerMessage to one client. It is attached to a
// User by the transport layer once the socket handshake completes and
// removed when the socket closes; a nil Sender means "no one is listening,"
// which every broadcast path treats as a silent skip, never an error.
type Sender interface {
	Send(msg ServerMessage)
}

// User is the stable identity behind a connection. Equality is by ID.
type User struct {
	mu      sync.RWMutex
	id      UserID
	name    string
	gameID  RoomID
	inGame  bool
	send    Sender
}

// NewUser constructs a User with the given id and initial display name.
func NewUser(id UserID, name string) *User {
	return &User{id: id, name: name}
}

// ID returns the user's stable identity.
func (u *User) ID() UserID {
	return u.id
}

// Name returns the user's current display name.
func (u *User) Name() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.name
}

// SetName applies §3's set_username rule: surrounding quotes are trimmed,
// and an empty or whitespace-only result after trimming is a no-op that
// leaves the previous name in place (idempotent, per the original's
// quoting behavior).
func (u *User) SetName(raw string) {
	trimmed := trimSurroundingQuotes(raw)
	if strings.TrimSpace(trimmed) == "" {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.name = trimmed
}

// trimSurroundingQuotes removes at most one layer of leading/trailing `"`.
func trimSurroundingQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// GameID reports the room the user currently belongs to, if any. Callers on
// the registry's critical path must copy this value and release the user
// lock before acquiring the registry lock (§5 — registry → user ordering).
func (u *User) GameID() (RoomID, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.gameID, u.inGame
}

// SetGame records the room the user just joined.
func (u *User) SetGame(id RoomID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.gameID = id
	u.inGame = true
}

// ClearGame clears room membership on leave.
func (u *User) ClearGame() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.gameID = 0
	u.inGame = false
}

// SetSend attaches or clears the outbound handle (§4.1: present after the
// session is ready, absent before and after close).
func (u *User) SetSend(s Sender) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.send = s
}

// Send delivers msg if a handle is attached; a missing handle is silently
// skipped, never an error (§7).
func (u *User) Send(msg ServerMessage) {
	u.mu.RLock()
	s := u.send
	u.mu.RUnlock()
	if s != nil {
		s.Send(msg)
	}
}

// Song is immutable once constructed; equality is by ID.
type Song struct {
	ID     string
	Title  string
	Artist string
}

// Equal compares two songs by id.
func (s Song) Equal(o Song) bool {
	return s.ID == o.ID
}
