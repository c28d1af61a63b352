package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateRoom_HostJoinsImmediately(t *testing.T) {
	reg := NewRegistry(2 * time.Second)
	host, _ := newTestUser(1, "host")

	room, err := reg.CreateRoom(context.Background(), host, nil, nil)
	require.NoError(t, err)

	id, inGame := host.GameID()
	assert.True(t, inGame)
	assert.Equal(t, room.ID(), id)
}

func TestRegistry_WithRoomMut_NotFound(t *testing.T) {
	reg := NewRegistry(2 * time.Second)
	err := reg.WithRoomMut(RoomID(9999), func(r *Room) error { return nil })
	require.Error(t, err)
}

func TestRegistry_Leave_RemovesEmptyRoom(t *testing.T) {
	reg := NewRegistry(2 * time.Second)
	ctx := context.Background()
	host, _ := newTestUser(1, "host")
	room, err := reg.CreateRoom(ctx, host, nil, nil)
	require.NoError(t, err)

	err = reg.Leave(ctx, room.ID(), host)
	require.NoError(t, err)

	err = reg.WithRoomMut(room.ID(), func(r *Room) error { return nil })
	assert.Error(t, err, "room must be gone once its last player leaves")

	_, inGame := host.GameID()
	assert.False(t, inGame)
}

func TestRegistry_Leave_KeepsRoomWithRemainingPlayers(t *testing.T) {
	reg := NewRegistry(2 * time.Second)
	ctx := context.Background()
	host, _ := newTestUser(1, "host")
	guest, _ := newTestUser(2, "guest")

	room, err := reg.CreateRoom(ctx, host, nil, nil)
	require.NoError(t, err)
	require.NoError(t, reg.WithRoomMut(room.ID(), func(r *Room) error {
		r.join(guest)
		return nil
	}))

	require.NoError(t, reg.Leave(ctx, room.ID(), guest))

	err = reg.WithRoomMut(room.ID(), func(r *Room) error { return nil })
	assert.NoError(t, err, "room must survive while the host remains")
}
