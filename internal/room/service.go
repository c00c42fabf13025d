package room

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/akatsuki-games/liveroom/internal/models"
)

// DefaultMaxUserCount is the fixed capacity of newly created rooms.
const DefaultMaxUserCount = 4

// Service is the room lifecycle state machine. It coordinates the room
// registry and membership table through single atomic units and enforces the
// capacity and status invariants; it never mutates user identity.
type Service struct {
	store Store
	users UserDirectory
	log   *logrus.Logger
}

func NewService(store Store, users UserDirectory, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{store: store, users: users, log: log}
}

// CreateRoom creates a Waiting room for the given song and adds the caller as
// its host member. The room and the host membership commit together; a room
// never exists without its host.
func (s *Service) CreateRoom(ctx context.Context, token string, liveID int64, difficulty models.LiveDifficulty) (int64, error) {
	user, err := s.users.GetUserByToken(ctx, token)
	if err != nil {
		return 0, err
	}

	var roomID int64
	err = s.store.InTx(ctx, func(tx Tx) error {
		id, err := tx.CreateRoom(ctx, liveID, DefaultMaxUserCount)
		if err != nil {
			return fmt.Errorf("create room: %w", err)
		}
		host := &models.RoomMember{
			RoomID:       id,
			UserID:       user.ID,
			Name:         user.Name,
			LeaderCardID: user.LeaderCardID,
			Difficulty:   difficulty,
			IsHost:       true,
		}
		if err := tx.AddMember(ctx, host); err != nil {
			return fmt.Errorf("add host member: %w", err)
		}
		if err := tx.SetJoinedUserCount(ctx, id, 1); err != nil {
			return fmt.Errorf("set joined count: %w", err)
		}
		roomID = id
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{
		"room_id": roomID,
		"live_id": liveID,
		"host_id": user.ID,
	}).Info("room created")
	return roomID, nil
}

// ListRooms returns joinable rooms for the given song, or for all songs when
// liveID is 0. Rooms that are full or no longer Waiting are excluded.
func (s *Service) ListRooms(ctx context.Context, token string, liveID int64) ([]models.RoomInfo, error) {
	if _, err := s.users.GetUserByToken(ctx, token); err != nil {
		return nil, err
	}

	var infos []models.RoomInfo
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		infos, err = tx.ListOpenRooms(ctx, liveID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return infos, nil
}

// JoinRoom adds the caller to a Waiting room with a free slot. The capacity
// check and the counter increment happen under the same row lock, so two
// concurrent joiners cannot both take the last slot. Joining a room the
// caller is already in updates their difficulty and reports Ok without
// consuming capacity.
func (s *Service) JoinRoom(ctx context.Context, token string, roomID int64, difficulty models.LiveDifficulty) (models.JoinRoomResult, error) {
	user, err := s.users.GetUserByToken(ctx, token)
	if err != nil {
		return 0, err
	}

	result := models.JoinOtherError
	err = s.store.InTx(ctx, func(tx Tx) error {
		rm, err := tx.RoomForUpdate(ctx, roomID)
		if errors.Is(err, ErrRoomNotFound) {
			result = models.JoinOtherError
			return nil
		}
		if err != nil {
			return err
		}

		switch rm.Status {
		case models.StatusPlaying:
			result = models.JoinOtherError
			return nil
		case models.StatusDissolved:
			result = models.JoinDisbanned
			return nil
		}

		members, err := tx.ListMembers(ctx, roomID)
		if err != nil {
			return err
		}
		for _, m := range members {
			if m.UserID == user.ID {
				if err := tx.UpdateMemberDifficulty(ctx, roomID, user.ID, difficulty); err != nil {
					return err
				}
				result = models.JoinOk
				return nil
			}
		}

		if rm.JoinedUserCount >= rm.MaxUserCount {
			result = models.JoinRoomFull
			return nil
		}

		member := &models.RoomMember{
			RoomID:       roomID,
			UserID:       user.ID,
			Name:         user.Name,
			LeaderCardID: user.LeaderCardID,
			Difficulty:   difficulty,
			IsHost:       false,
		}
		if err := tx.AddMember(ctx, member); err != nil {
			return err
		}
		if err := tx.SetJoinedUserCount(ctx, roomID, rm.JoinedUserCount+1); err != nil {
			return err
		}
		result = models.JoinOk
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("join room %d: %w", roomID, err)
	}
	return result, nil
}

// WaitRoom returns the room status and its member list, with IsMe set
// relative to the caller. Clients poll this until the status leaves Waiting.
func (s *Service) WaitRoom(ctx context.Context, token string, roomID int64) (models.RoomStatus, []models.RoomUser, error) {
	user, err := s.users.GetUserByToken(ctx, token)
	if err != nil {
		return 0, nil, err
	}

	var (
		status models.RoomStatus
		views  []models.RoomUser
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		rm, err := tx.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}
		status = rm.Status

		members, err := tx.ListMembers(ctx, roomID)
		if err != nil {
			return err
		}
		views = make([]models.RoomUser, 0, len(members))
		for _, m := range members {
			views = append(views, models.RoomUser{
				UserID:           m.UserID,
				Name:             m.Name,
				LeaderCardID:     m.LeaderCardID,
				SelectDifficulty: m.Difficulty,
				IsMe:             m.UserID == user.ID,
				IsHost:           m.IsHost,
			})
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return status, views, nil
}

// StartRoom advances a Waiting room to Playing. Only the host may start;
// starting an already started or dissolved room fails with
// ErrInvalidTransition.
func (s *Service) StartRoom(ctx context.Context, token string, roomID int64) error {
	user, err := s.users.GetUserByToken(ctx, token)
	if err != nil {
		return err
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.RoomForUpdate(ctx, roomID); err != nil {
			return err
		}
		members, err := tx.ListMembers(ctx, roomID)
		if err != nil {
			return err
		}
		var caller *models.RoomMember
		for i := range members {
			if members[i].UserID == user.ID {
				caller = &members[i]
				break
			}
		}
		if caller == nil {
			return ErrMemberNotFound
		}
		if !caller.IsHost {
			return ErrNotHost
		}
		return tx.AdvanceRoomStatus(ctx, roomID, models.StatusPlaying)
	})
	if err != nil {
		return err
	}

	s.log.WithField("room_id", roomID).Info("room started")
	return nil
}

// EndRoom records the caller's score and judge counters on their membership
// row. The room status is left untouched; release is handled by ResultRoom.
func (s *Service) EndRoom(ctx context.Context, token string, roomID int64, judges [5]int, score int) error {
	user, err := s.users.GetUserByToken(ctx, token)
	if err != nil {
		return err
	}

	return s.store.InTx(ctx, func(tx Tx) error {
		return tx.SubmitScore(ctx, roomID, user.ID, score, judges)
	})
}

// ResultRoom returns the aggregated result once every member has submitted a
// score, ranked by score descending. Until then it returns an empty list and
// changes nothing. The first complete read dissolves the room; membership
// rows survive dissolution, so repeated calls keep returning the same set.
func (s *Service) ResultRoom(ctx context.Context, token string, roomID int64) ([]models.ResultUser, error) {
	if _, err := s.users.GetUserByToken(ctx, token); err != nil {
		return nil, err
	}

	var (
		results   []models.ResultUser
		dissolved bool
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		rm, err := tx.RoomForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		members, err := tx.ListMembers(ctx, roomID)
		if err != nil {
			return err
		}

		results = make([]models.ResultUser, 0, len(members))
		for _, m := range members {
			if m.Result == nil {
				results = nil
				return nil
			}
			results = append(results, models.ResultUser{
				UserID:         m.UserID,
				JudgeCountList: m.Result.Judges[:],
				Score:          m.Result.Score,
			})
		}
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})

		if rm.Status != models.StatusDissolved {
			if err := tx.AdvanceRoomStatus(ctx, roomID, models.StatusDissolved); err != nil {
				return err
			}
			dissolved = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if results == nil {
		return []models.ResultUser{}, nil
	}

	if dissolved {
		s.log.WithFields(logrus.Fields{
			"room_id": roomID,
			"members": len(results),
		}).Info("room dissolved, results released")
	}
	return results, nil
}

// LeaveRoom removes the caller's membership and refreshes the joined count.
// The last member to leave takes the room row with them; a departing host is
// not replaced.
func (s *Service) LeaveRoom(ctx context.Context, token string, roomID int64) error {
	user, err := s.users.GetUserByToken(ctx, token)
	if err != nil {
		return err
	}

	var deleted bool
	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.RoomForUpdate(ctx, roomID); err != nil {
			return err
		}
		if err := tx.RemoveMember(ctx, roomID, user.ID); err != nil {
			return err
		}
		n, err := tx.CountMembers(ctx, roomID)
		if err != nil {
			return err
		}
		if n == 0 {
			deleted = true
			return tx.DeleteRoom(ctx, roomID)
		}
		return tx.SetJoinedUserCount(ctx, roomID, n)
	})
	if err != nil {
		return err
	}

	if deleted {
		s.log.WithField("room_id", roomID).Info("room emptied and deleted")
	}
	return nil
}
