package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/akatsuki-games/liveroom/internal/models"
	"github.com/akatsuki-games/liveroom/internal/room"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (t *storeTx) AddMember(ctx context.Context, m *models.RoomMember) error {
	q := `
	INSERT INTO room_members (room_id, user_id, name, leader_card_id, select_difficulty, is_host)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := t.tx.Exec(ctx, q,
		m.RoomID, m.UserID, m.Name, m.LeaderCardID, m.Difficulty, m.IsHost,
	)
	if isUniqueViolation(err) {
		return room.ErrDuplicateMember
	}
	return err
}

func (t *storeTx) UpdateMemberDifficulty(ctx context.Context, roomID, userID int64, d models.LiveDifficulty) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE room_members SET select_difficulty = $3 WHERE room_id = $1 AND user_id = $2`,
		roomID, userID, d,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return room.ErrMemberNotFound
	}
	return nil
}

// RemoveMember deletes the membership row. Removing an absent membership is
// a no-op.
func (t *storeTx) RemoveMember(ctx context.Context, roomID, userID int64) error {
	_, err := t.tx.Exec(ctx,
		`DELETE FROM room_members WHERE room_id = $1 AND user_id = $2`,
		roomID, userID,
	)
	return err
}

func (t *storeTx) ListMembers(ctx context.Context, roomID int64) ([]models.RoomMember, error) {
	q := `
	SELECT user_id, name, leader_card_id, select_difficulty, is_host,
	       score, score_perfect, score_great, score_good, score_bad, score_miss
	FROM room_members
	WHERE room_id = $1
	ORDER BY user_id
	`
	rows, err := t.tx.Query(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.RoomMember
	for rows.Next() {
		m := models.RoomMember{RoomID: roomID}
		var score, perfect, great, good, bad, miss *int
		err := rows.Scan(
			&m.UserID, &m.Name, &m.LeaderCardID, &m.Difficulty, &m.IsHost,
			&score, &perfect, &great, &good, &bad, &miss,
		)
		if err != nil {
			return nil, err
		}
		// Score columns are written together by SubmitScore, so checking
		// the score alone is enough to tell whether the member submitted.
		if score != nil {
			m.Result = &models.MemberScore{
				Score:  *score,
				Judges: [5]int{*perfect, *great, *good, *bad, *miss},
			}
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (t *storeTx) SubmitScore(ctx context.Context, roomID, userID int64, score int, judges [5]int) error {
	q := `
	UPDATE room_members
	SET score = $3,
	    score_perfect = $4,
	    score_great = $5,
	    score_good = $6,
	    score_bad = $7,
	    score_miss = $8
	WHERE room_id = $1 AND user_id = $2
	`
	tag, err := t.tx.Exec(ctx, q, roomID, userID,
		score, judges[0], judges[1], judges[2], judges[3], judges[4],
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return room.ErrMemberNotFound
	}
	return nil
}

func (t *storeTx) CountMembers(ctx context.Context, roomID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT count(*) FROM room_members WHERE room_id = $1`,
		roomID,
	).Scan(&n)
	return n, err
}
