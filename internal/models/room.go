package models

// LiveDifficulty is the per-member difficulty selection for a song.
// Wire values are fixed by the client protocol.
type LiveDifficulty int

const (
	DifficultyNormal LiveDifficulty = 1
	DifficultyHard   LiveDifficulty = 2
)

// Valid reports whether d is one of the known difficulty codes.
func (d LiveDifficulty) Valid() bool {
	return d == DifficultyNormal || d == DifficultyHard
}

// RoomStatus is the room lifecycle state. Transitions only move forward:
// Waiting -> Playing -> Dissolved.
type RoomStatus int

const (
	StatusWaiting   RoomStatus = 1
	StatusPlaying   RoomStatus = 2
	StatusDissolved RoomStatus = 3
)

func (s RoomStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusPlaying:
		return "playing"
	case StatusDissolved:
		return "dissolved"
	}
	return "unknown"
}

// JoinRoomResult is the outcome code returned to a joining client.
type JoinRoomResult int

const (
	JoinOk         JoinRoomResult = 1
	JoinRoomFull   JoinRoomResult = 2
	JoinDisbanned  JoinRoomResult = 3
	JoinOtherError JoinRoomResult = 4
)

// Room is a row in the rooms table. JoinedUserCount is a maintained counter
// and must equal the number of live room_members rows at every commit.
type Room struct {
	RoomID          int64      `json:"room_id"`
	LiveID          int64      `json:"live_id"`
	JoinedUserCount int        `json:"joined_user_count"`
	MaxUserCount    int        `json:"max_user_count"`
	Status          RoomStatus `json:"status"`
}

// MemberScore holds one member's submitted play result. Score and the five
// judge counters (perfect, great, good, bad, miss) are written together.
type MemberScore struct {
	Score  int    `json:"score"`
	Judges [5]int `json:"judges"`
}

// RoomMember is a row in the room_members table. Name and LeaderCardID are
// snapshots of the user at join time. Result stays nil until the member
// submits a score.
type RoomMember struct {
	RoomID       int64          `json:"room_id"`
	UserID       int64          `json:"user_id"`
	Name         string         `json:"name"`
	LeaderCardID int64          `json:"leader_card_id"`
	Difficulty   LiveDifficulty `json:"select_difficulty"`
	IsHost       bool           `json:"is_host"`
	Result       *MemberScore   `json:"result,omitempty"`
}

// RoomInfo is the matchmaking listing view of a joinable room.
type RoomInfo struct {
	RoomID          int64 `json:"room_id"`
	LiveID          int64 `json:"live_id"`
	JoinedUserCount int   `json:"joined_user_count"`
	MaxUserCount    int   `json:"max_user_count"`
}

// RoomUser is one entry of the wait-room member list, relative to the caller.
type RoomUser struct {
	UserID           int64          `json:"user_id"`
	Name             string         `json:"name"`
	LeaderCardID     int64          `json:"leader_card_id"`
	SelectDifficulty LiveDifficulty `json:"select_difficulty"`
	IsMe             bool           `json:"is_me"`
	IsHost           bool           `json:"is_host"`
}

// ResultUser is one entry of the aggregated room result.
type ResultUser struct {
	UserID         int64 `json:"user_id"`
	JudgeCountList []int `json:"judge_count_list"`
	Score          int   `json:"score"`
}
