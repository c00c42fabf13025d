// Package memstore implements the room storage contracts and the user
// directory against in-process maps. It backs the test suites and is handy
// for running the server without Postgres.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/akatsuki-games/liveroom/internal/models"
	"github.com/akatsuki-games/liveroom/internal/room"
)

// Store holds all state behind a single mutex, so each InTx unit is fully
// serialized. Writes inside a unit are applied in place; there is no
// rollback on error.
type Store struct {
	mu sync.Mutex

	rooms      map[int64]*models.Room
	members    map[int64]map[int64]*models.RoomMember
	users      map[string]*models.User // keyed by token
	nextRoomID int64
	nextUserID int64
}

func New() *Store {
	return &Store{
		rooms:   make(map[int64]*models.Room),
		members: make(map[int64]map[int64]*models.RoomMember),
		users:   make(map[string]*models.User),
	}
}

// InTx runs fn under the store lock.
func (s *Store) InTx(ctx context.Context, fn func(tx room.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{s: s})
}

// CreateUser registers a new user and returns their bearer token.
func (s *Store) CreateUser(ctx context.Context, name string, leaderCardID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	token := uuid.NewString()
	s.users[token] = &models.User{
		ID:           s.nextUserID,
		Name:         name,
		LeaderCardID: leaderCardID,
		Token:        token,
	}
	return token, nil
}

// GetUserByToken resolves a bearer token or reports room.ErrUnauthorized.
func (s *Store) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[token]
	if !ok {
		return nil, room.ErrUnauthorized
	}
	cp := *u
	return &cp, nil
}

// UpdateUser rewrites the user's name and leader card.
func (s *Store) UpdateUser(ctx context.Context, token, name string, leaderCardID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[token]
	if !ok {
		return room.ErrUnauthorized
	}
	u.Name = name
	u.LeaderCardID = leaderCardID
	return nil
}

// memTx implements room.Tx against the locked store.
type memTx struct {
	s *Store
}

func (t *memTx) CreateRoom(ctx context.Context, liveID int64, maxUserCount int) (int64, error) {
	t.s.nextRoomID++
	id := t.s.nextRoomID
	t.s.rooms[id] = &models.Room{
		RoomID:       id,
		LiveID:       liveID,
		MaxUserCount: maxUserCount,
		Status:       models.StatusWaiting,
	}
	t.s.members[id] = make(map[int64]*models.RoomMember)
	return id, nil
}

func (t *memTx) GetRoom(ctx context.Context, roomID int64) (*models.Room, error) {
	r, ok := t.s.rooms[roomID]
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (t *memTx) RoomForUpdate(ctx context.Context, roomID int64) (*models.Room, error) {
	// The store mutex already serializes units; a locked read is a plain read.
	return t.GetRoom(ctx, roomID)
}

func (t *memTx) ListOpenRooms(ctx context.Context, liveID int64) ([]models.RoomInfo, error) {
	var infos []models.RoomInfo
	for _, r := range t.s.rooms {
		if r.Status != models.StatusWaiting || r.JoinedUserCount >= r.MaxUserCount {
			continue
		}
		if liveID != 0 && r.LiveID != liveID {
			continue
		}
		infos = append(infos, models.RoomInfo{
			RoomID:          r.RoomID,
			LiveID:          r.LiveID,
			JoinedUserCount: r.JoinedUserCount,
			MaxUserCount:    r.MaxUserCount,
		})
	}
	return infos, nil
}

func (t *memTx) AdvanceRoomStatus(ctx context.Context, roomID int64, next models.RoomStatus) error {
	r, ok := t.s.rooms[roomID]
	if !ok {
		return room.ErrRoomNotFound
	}
	if r.Status >= next {
		return room.ErrInvalidTransition
	}
	r.Status = next
	return nil
}

func (t *memTx) SetJoinedUserCount(ctx context.Context, roomID int64, count int) error {
	r, ok := t.s.rooms[roomID]
	if !ok {
		return room.ErrRoomNotFound
	}
	r.JoinedUserCount = count
	return nil
}

func (t *memTx) DeleteRoom(ctx context.Context, roomID int64) error {
	delete(t.s.rooms, roomID)
	delete(t.s.members, roomID)
	return nil
}

func (t *memTx) AddMember(ctx context.Context, m *models.RoomMember) error {
	byUser, ok := t.s.members[m.RoomID]
	if !ok {
		byUser = make(map[int64]*models.RoomMember)
		t.s.members[m.RoomID] = byUser
	}
	if _, exists := byUser[m.UserID]; exists {
		return room.ErrDuplicateMember
	}
	cp := *m
	byUser[m.UserID] = &cp
	return nil
}

func (t *memTx) UpdateMemberDifficulty(ctx context.Context, roomID, userID int64, d models.LiveDifficulty) error {
	m, ok := t.s.members[roomID][userID]
	if !ok {
		return room.ErrMemberNotFound
	}
	m.Difficulty = d
	return nil
}

func (t *memTx) RemoveMember(ctx context.Context, roomID, userID int64) error {
	delete(t.s.members[roomID], userID)
	return nil
}

func (t *memTx) ListMembers(ctx context.Context, roomID int64) ([]models.RoomMember, error) {
	byUser := t.s.members[roomID]
	members := make([]models.RoomMember, 0, len(byUser))
	for _, m := range byUser {
		cp := *m
		if m.Result != nil {
			res := *m.Result
			cp.Result = &res
		}
		members = append(members, cp)
	}
	// Deterministic order for view assembly, mirroring the SQL ORDER BY.
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

func (t *memTx) SubmitScore(ctx context.Context, roomID, userID int64, score int, judges [5]int) error {
	m, ok := t.s.members[roomID][userID]
	if !ok {
		return room.ErrMemberNotFound
	}
	m.Result = &models.MemberScore{Score: score, Judges: judges}
	return nil
}

func (t *memTx) CountMembers(ctx context.Context, roomID int64) (int, error) {
	return len(t.s.members[roomID]), nil
}
