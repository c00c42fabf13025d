package room_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akatsuki-games/liveroom/internal/memstore"
	"github.com/akatsuki-games/liveroom/internal/models"
	"github.com/akatsuki-games/liveroom/internal/room"
)

func newService(t *testing.T) (*room.Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return room.NewService(st, st, logger), st
}

func newUser(t *testing.T, st *memstore.Store, name string) string {
	t.Helper()
	token, err := st.CreateUser(context.Background(), name, 1000)
	require.NoError(t, err)
	return token
}

func TestCreateRoomShowsHost(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	host := newUser(t, st, "host")

	roomID, err := svc.CreateRoom(ctx, host, 42, models.DifficultyNormal)
	require.NoError(t, err)
	require.NotZero(t, roomID)

	status, members, err := svc.WaitRoom(ctx, host, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, status)
	require.Len(t, members, 1)
	assert.True(t, members[0].IsHost)
	assert.True(t, members[0].IsMe)
	assert.Equal(t, "host", members[0].Name)
	assert.Equal(t, models.DifficultyNormal, members[0].SelectDifficulty)
}

func TestCreateRoomBadToken(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreateRoom(context.Background(), "no-such-token", 42, models.DifficultyNormal)
	assert.ErrorIs(t, err, room.ErrUnauthorized)
}

func TestJoinRoomCapacity(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	host := newUser(t, st, "host")

	roomID, err := svc.CreateRoom(ctx, host, 42, models.DifficultyNormal)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		joiner := newUser(t, st, "joiner")
		result, err := svc.JoinRoom(ctx, joiner, roomID, models.DifficultyHard)
		require.NoError(t, err)
		assert.Equal(t, models.JoinOk, result)
	}

	fifth := newUser(t, st, "latecomer")
	result, err := svc.JoinRoom(ctx, fifth, roomID, models.DifficultyNormal)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRoomFull, result)

	_, members, err := svc.WaitRoom(ctx, host, roomID)
	require.NoError(t, err)
	assert.Len(t, members, 4)
}

func TestJoinRoomCountMatchesMembers(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	host := newUser(t, st, "host")

	roomID, err := svc.CreateRoom(ctx, host, 7, models.DifficultyNormal)
	require.NoError(t, err)

	joiner := newUser(t, st, "joiner")
	_, err = svc.JoinRoom(ctx, joiner, roomID, models.DifficultyNormal)
	require.NoError(t, err)

	infos, err := svc.ListRooms(ctx, host, 7)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	_, members, err := svc.WaitRoom(ctx, host, roomID)
	require.NoError(t, err)
	assert.Equal(t, len(members), infos[0].JoinedUserCount)
}

func TestJoinRoomConcurrent(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	host := newUser(t, st, "host")

	roomID, err := svc.CreateRoom(ctx, host, 42, models.DifficultyNormal)
	require.NoError(t, err)

	// 3 free slots, 8 concurrent joiners: exactly 3 may win.
	const joiners = 8
	tokens := make([]string, joiners)
	for i := range tokens {
		tokens[i] = newUser(t, st, "joiner")
	}

	results := make([]models.JoinRoomResult, joiners)
	errs := make([]error, joiners)
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.JoinRoom(ctx, tokens[i], roomID, models.DifficultyNormal)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "joiner %d", i)
	}

	var ok, full int
	for _, r := range results {
		switch r {
		case models.JoinOk:
			ok++
		case models.JoinRoomFull:
			full++
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, joiners-3, full)

	_, members, err := svc.WaitRoom(ctx, host, roomID)
	require.NoError(t, err)
	assert.Len(t, members, 4)
}

func TestJoinRoomAfterStart(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	host := newUser(t, st, "host")

	roomID, err := svc.CreateRoom(ctx, host, 42, models.DifficultyNormal)
	require.NoError(t, err)
	require.NoError(t, svc.StartRoom(ctx, host, roomID))

	joiner := newUser(t, st, "joiner")
	result, err := svc.JoinRoom(ctx, joiner, roomID, models.DifficultyNormal)
	require.NoError(t, err)
	assert.Equal(t, models.JoinOtherError, result)
}

func TestJoinRoomDissolved(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	host := newUser(t, st, "host")

	roomID, err := svc.CreateRoom(ctx, host, 42, models.DifficultyNormal)
	require.NoError(t, err)
	require.NoError(t, svc.StartRoom(ctx, host, roomID))
	require.NoError(t, svc.EndRoom(ctx, host, roomID, [5]int{100, 20, 3, 1, 0}, 987654))

	results, err := svc.ResultRoom(ctx, host, roomID)
	require.NoError(t, err)
	require.Len(t, results, 1)

	joiner := newUser(t, st, "joiner")
	result, err := svc.JoinRoom(ctx, joiner, roomID, models.DifficultyNormal)
	require.NoError(t, err)
	assert.Equal(t, models.JoinDisbanned, result)
}

func TestJoinRoomUnknownRoom(t *testing.T) {
	svc, st := newService(t)
	joiner := newUser(t, st, "joiner")

	result, err := svc.JoinRoom(context.Background(), joiner, 9999, models.DifficultyNormal)
	require.NoError(t, err)
	assert.Equal(t, models.JoinOtherError, result)
}

func TestJoinRoomTwiceSameUser(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	host := newUser(t, st, "host")
	joiner := newUser(t, st, "joiner")

	roomID, err := svc.CreateRoom(ctx, host, 42, models.DifficultyNormal)
	require.NoError(t, err)

	result, err := svc.JoinRoom(ctx, joiner, roomID, models.DifficultyNormal)
	require.NoError(t, err)
	require.Equal(t, models.JoinOk, result)

	// Re-joining must not take a second slot; it just updates the difficulty.
	result, err = svc.JoinRoom(ctx, joiner, roomID, models.DifficultyHard)
	require.NoError(t, err)
	assert.Equal(t, models.JoinOk, result)

	_, members, err := svc.WaitRoom(ctx, joiner, roomID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	for _, m := range members {
		if m.IsMe {
			assert.Equal(t, models.DifficultyHard, m.SelectDifficulty)
		}
	}

	infos, err := svc.ListRooms(ctx, host, 42)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 2, infos[0].JoinedUserCount)
}

func TestStartRoomHostOnly(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	host := newUser(t, st, "host")
	guest := newUser(t, st, "guest")

	roomID, err := svc.CreateRoom(ctx, host, 42, models.DifficultyNormal)
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, guest, roomID, models.DifficultyNormal)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.StartRoom(ctx, guest, roomID), room.ErrNotHost)

	outsider := newUser(t, st, "outsider")
	assert.ErrorIs(t, svc.StartRoom(ctx, outsider, roomID), room.ErrMemberNotFound)

	require.NoError(t, svc.StartRoom(ctx, host, roomID))

	status, _, err := svc.WaitRoom(ctx, host, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaying, status)

	// Starting twice must not work.
	assert.ErrorIs(t, svc.StartRoom(ctx, host, roomID), room.ErrInvalidTransition)
}

func TestEndRoomNonMember(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	hostA := newUser(t, st, "hostA")
	hostB := newUser(t, st, "hostB")

	roomA, err := svc.CreateRoom(ctx, hostA, 1, models.DifficultyNormal)
	require.NoError(t, err)
	roomB, err := svc.CreateRoom(ctx, hostB, 2, models.DifficultyNormal)
	require.NoError(t, err)

	// hostA is not in roomB; the write must fail and must not land anywhere.
	err = svc.EndRoom(ctx, hostA, roomB, [5]int{1, 2, 3, 4, 5}, 100)
	assert.ErrorIs(t, err, room.ErrMemberNotFound)

	results, err := svc.ResultRoom(ctx, hostA, roomA)
	require.NoError(t, err)
	assert.Empty(t, results, "roomA must still be waiting on hostA's score")
}

func TestResultRoomGating(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	host := newUser(t, st, "host")
	guest := newUser(t, st, "guest")

	roomID, err := svc.CreateRoom(ctx, host, 42, models.DifficultyNormal)
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, guest, roomID, models.DifficultyHard)
	require.NoError(t, err)
	require.NoError(t, svc.StartRoom(ctx, host, roomID))

	require.NoError(t, svc.EndRoom(ctx, host, roomID, [5]int{90, 8, 2, 0, 0}, 700000))

	// One score still missing: empty result, status untouched.
	results, err := svc.ResultRoom(ctx, host, roomID)
	require.NoError(t, err)
	assert.Empty(t, results)

	status, _, err := svc.WaitRoom(ctx, host, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaying, status)

	require.NoError(t, svc.EndRoom(ctx, guest, roomID, [5]int{95, 5, 0, 0, 0}, 900000))

	results, err = svc.ResultRoom(ctx, host, roomID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Ranked by score descending.
	assert.Equal(t, 900000, results[0].Score)
	assert.Equal(t, 700000, results[1].Score)
	assert.Equal(t, []int{95, 5, 0, 0, 0}, results[0].JudgeCountList)

	status, _, err = svc.WaitRoom(ctx, host, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDissolved, status)

	// Repeated reads keep returning the same set.
	again, err := svc.ResultRoom(ctx, guest, roomID)
	require.NoError(t, err)
	assert.Equal(t, results, again)
}

func TestLeaveRoom(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	host := newUser(t, st, "host")
	guest := newUser(t, st, "guest")

	roomID, err := svc.CreateRoom(ctx, host, 42, models.DifficultyNormal)
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, guest, roomID, models.DifficultyNormal)
	require.NoError(t, err)

	// Host leaves; the room survives without a host.
	require.NoError(t, svc.LeaveRoom(ctx, host, roomID))

	_, members, err := svc.WaitRoom(ctx, guest, roomID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.False(t, members[0].IsHost)

	infos, err := svc.ListRooms(ctx, guest, 42)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 1, infos[0].JoinedUserCount)

	// Last member leaves; the room goes away entirely.
	require.NoError(t, svc.LeaveRoom(ctx, guest, roomID))

	infos, err = svc.ListRooms(ctx, guest, 0)
	require.NoError(t, err)
	assert.Empty(t, infos)

	_, _, err = svc.WaitRoom(ctx, guest, roomID)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestListRoomsFilters(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	hostA := newUser(t, st, "hostA")
	roomA, err := svc.CreateRoom(ctx, hostA, 10, models.DifficultyNormal)
	require.NoError(t, err)

	hostB := newUser(t, st, "hostB")
	roomB, err := svc.CreateRoom(ctx, hostB, 20, models.DifficultyNormal)
	require.NoError(t, err)

	hostC := newUser(t, st, "hostC")
	_, err = svc.CreateRoom(ctx, hostC, 10, models.DifficultyNormal)
	require.NoError(t, err)

	// roomA fills up completely.
	for i := 0; i < 3; i++ {
		joiner := newUser(t, st, "joiner")
		result, err := svc.JoinRoom(ctx, joiner, roomA, models.DifficultyNormal)
		require.NoError(t, err)
		require.Equal(t, models.JoinOk, result)
	}
	// roomB starts playing.
	require.NoError(t, svc.StartRoom(ctx, hostB, roomB))

	// Only roomC remains joinable.
	infos, err := svc.ListRooms(ctx, hostA, 0)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, int64(10), infos[0].LiveID)

	// live_id filter excludes roomC when asking for another song.
	infos, err = svc.ListRooms(ctx, hostA, 20)
	require.NoError(t, err)
	assert.Empty(t, infos)
}
