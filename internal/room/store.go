package room

import (
	"context"

	"github.com/akatsuki-games/liveroom/internal/models"
)

// Store opens atomic units of work against the room registry and membership
// table. Every lifecycle operation runs inside exactly one InTx call; the
// implementation must guarantee that concurrent units observe each other's
// effects fully or not at all.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the registry + membership surface available inside one atomic unit.
//
// RoomForUpdate takes a row lock on the room so that check-then-write
// sequences (capacity checks, status advances, leave bookkeeping) are
// race-free against concurrent units touching the same room.
type Tx interface {
	// Room registry.
	CreateRoom(ctx context.Context, liveID int64, maxUserCount int) (int64, error)
	GetRoom(ctx context.Context, roomID int64) (*models.Room, error)
	RoomForUpdate(ctx context.Context, roomID int64) (*models.Room, error)
	ListOpenRooms(ctx context.Context, liveID int64) ([]models.RoomInfo, error)
	AdvanceRoomStatus(ctx context.Context, roomID int64, next models.RoomStatus) error
	SetJoinedUserCount(ctx context.Context, roomID int64, count int) error
	DeleteRoom(ctx context.Context, roomID int64) error

	// Membership table.
	AddMember(ctx context.Context, m *models.RoomMember) error
	UpdateMemberDifficulty(ctx context.Context, roomID, userID int64, d models.LiveDifficulty) error
	RemoveMember(ctx context.Context, roomID, userID int64) error
	ListMembers(ctx context.Context, roomID int64) ([]models.RoomMember, error)
	SubmitScore(ctx context.Context, roomID, userID int64, score int, judges [5]int) error
	CountMembers(ctx context.Context, roomID int64) (int, error)
}

// UserDirectory resolves bearer tokens to user identities. The directory is
// an external collaborator; the room service only ever reads from it.
type UserDirectory interface {
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
}
