package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T, startCountdown time.Duration) (*Registry, *Room, *User, *recordingSender) {
	t.Helper()
	reg := NewRegistry(startCountdown)
	host, sender := newTestUser(1, "host")
	room, err := reg.CreateRoom(context.Background(), host, nil, newFakeClock())
	require.NoError(t, err)
	return reg, room, host, sender
}

func TestRoom_Join_Lobby(t *testing.T) {
	reg, room, host, hostSender := newTestRoom(t, 2*time.Second)
	guest, guestSender := newTestUser(2, "guest")

	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		r.join(guest)
		return nil
	}))

	assert.True(t, hostSender.has(UserJoinMsg{Name: "guest"}))
	assert.True(t, guestSender.has(UserJoinMsg{Name: "host"}))
	id, inGame := guest.GameID()
	assert.True(t, inGame)
	assert.Equal(t, room.ID(), id)

	_ = host
}

func TestRoom_Join_RejectedOutsideLobby(t *testing.T) {
	reg, room, _, _ := newTestRoom(t, 2*time.Second)
	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		r.startGameLocked()
		return nil
	}))

	late, lateSender := newTestUser(2, "late")
	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		r.join(late)
		return nil
	}))

	assert.True(t, lateSender.has(ErrMsg{Message: "cannot join game: game is not in lobby state"}))
	_, inGame := late.GameID()
	assert.False(t, inGame)
}

func TestRoom_ReadyUp_SingleStartsCountdownAtFullReady(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(2 * time.Second)
	host, hostSender := newTestUser(1, "host")
	room, err := reg.CreateRoom(context.Background(), host, nil, clock)
	require.NoError(t, err)

	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		r.ready(context.Background(), host)
		return nil
	}))

	assert.True(t, hostSender.has(UserReadyMsg{Name: "host"}))
	assert.True(t, hostSender.has(Ack{}))

	clock.Advance(2 * time.Second)

	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		assert.Equal(t, phaseSelecting, r.phase)
		return nil
	}))
	assert.True(t, hostSender.has(GameStartSelect{}))
}

func TestRoom_Unready_ErrorsOutsideLobby(t *testing.T) {
	reg, room, host, hostSender := newTestRoom(t, 2*time.Second)
	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		r.startGameLocked()
		r.unready(host)
		return nil
	}))
	assert.True(t, hostSender.has(ErrMsg{Message: "cannot unready: game is not in lobby state"}))
}

func TestRoom_StartGuessing_NonHostRejected(t *testing.T) {
	reg, room, _, _ := newTestRoom(t, 2*time.Second)
	guest, guestSender := newTestUser(2, "guest")
	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		r.join(guest)
		r.startGameLocked()
		r.buckets[guest.ID()] = []Song{{ID: "s1", Title: "T", Artist: "A"}}
		return nil
	}))

	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		r.startGuessing(guest)
		return nil
	}))

	assert.True(t, guestSender.has(ErrMsg{Message: "cannot start guessing: you are not the leader"}))
	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		assert.Equal(t, phaseSelecting, r.phase)
		return nil
	}))
}

func TestRoom_RemoveSong_OutOfRange(t *testing.T) {
	reg, room, host, hostSender := newTestRoom(t, 2*time.Second)
	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		r.startGameLocked()
		return nil
	}))

	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		r.removeSong(host, 0)
		return nil
	}))

	assert.True(t, hostSender.has(ErrMsg{Message: "cannot remove song: index out of range"}))
}

func TestRoom_LeaveLocked_ClearsReadyState(t *testing.T) {
	reg, room, host, _ := newTestRoom(t, 2*time.Second)
	guest, _ := newTestUser(2, "guest")
	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		r.join(guest)
		r.ready(context.Background(), guest)
		return nil
	}))

	require.NoError(t, reg.Leave(context.Background(), room.ID(), guest))

	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		assert.Equal(t, 0, r.readyUsers.Len())
		assert.Len(t, r.players, 1)
		assert.Equal(t, host.ID(), r.players[0].ID())
		return nil
	}))
}
