package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/akatsuki-games/liveroom/internal/models"
	"github.com/akatsuki-games/liveroom/internal/room"
)

func (t *storeTx) CreateRoom(ctx context.Context, liveID int64, maxUserCount int) (int64, error) {
	q := `
	INSERT INTO rooms (live_id, joined_user_count, max_user_count, status)
	VALUES ($1, 0, $2, $3)
	RETURNING room_id
	`
	var id int64
	if err := t.tx.QueryRow(ctx, q, liveID, maxUserCount, models.StatusWaiting).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *storeTx) GetRoom(ctx context.Context, roomID int64) (*models.Room, error) {
	return t.getRoom(ctx, roomID, false)
}

func (t *storeTx) RoomForUpdate(ctx context.Context, roomID int64) (*models.Room, error) {
	return t.getRoom(ctx, roomID, true)
}

func (t *storeTx) getRoom(ctx context.Context, roomID int64, forUpdate bool) (*models.Room, error) {
	q := `
	SELECT room_id, live_id, joined_user_count, max_user_count, status
	FROM rooms
	WHERE room_id = $1
	`
	if forUpdate {
		q += ` FOR UPDATE`
	}

	var r models.Room
	err := t.tx.QueryRow(ctx, q, roomID).Scan(
		&r.RoomID,
		&r.LiveID,
		&r.JoinedUserCount,
		&r.MaxUserCount,
		&r.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, room.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListOpenRooms returns Waiting rooms that still have a free slot, filtered
// by live_id unless it is 0 (wildcard).
func (t *storeTx) ListOpenRooms(ctx context.Context, liveID int64) ([]models.RoomInfo, error) {
	q := `
	SELECT room_id, live_id, joined_user_count, max_user_count
	FROM rooms
	WHERE status = $1 AND joined_user_count < max_user_count
	`
	args := []any{models.StatusWaiting}
	if liveID != 0 {
		q += ` AND live_id = $2`
		args = append(args, liveID)
	}
	q += ` ORDER BY room_id`

	rows, err := t.tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []models.RoomInfo
	for rows.Next() {
		var info models.RoomInfo
		if err := rows.Scan(&info.RoomID, &info.LiveID, &info.JoinedUserCount, &info.MaxUserCount); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// AdvanceRoomStatus moves the room status forward. The status < $2 guard
// makes backward or repeated transitions match zero rows.
func (t *storeTx) AdvanceRoomStatus(ctx context.Context, roomID int64, next models.RoomStatus) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE rooms SET status = $2 WHERE room_id = $1 AND status < $2`,
		roomID, next,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return room.ErrInvalidTransition
	}
	return nil
}

func (t *storeTx) SetJoinedUserCount(ctx context.Context, roomID int64, count int) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE rooms SET joined_user_count = $2 WHERE room_id = $1`,
		roomID, count,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return room.ErrRoomNotFound
	}
	return nil
}

// DeleteRoom removes the room row and any remaining membership rows.
func (t *storeTx) DeleteRoom(ctx context.Context, roomID int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM room_members WHERE room_id = $1`, roomID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `DELETE FROM rooms WHERE room_id = $1`, roomID)
	return err
}
