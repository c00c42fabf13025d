package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akatsuki-games/liveroom/internal/models"
	"github.com/akatsuki-games/liveroom/internal/room"
)

type roomCreateRequest struct {
	LiveID           int64 `json:"live_id"`
	SelectDifficulty int   `json:"select_difficulty"`
}

type roomCreateResponse struct {
	RoomID int64 `json:"room_id"`
}

type roomListRequest struct {
	LiveID int64 `json:"live_id"`
}

type roomListResponse struct {
	RoomInfoList []models.RoomInfo `json:"room_info_list"`
}

type roomJoinRequest struct {
	RoomID           int64 `json:"room_id"`
	SelectDifficulty int   `json:"select_difficulty"`
}

type roomJoinResponse struct {
	JoinRoomResult models.JoinRoomResult `json:"join_room_result"`
}

type roomIDRequest struct {
	RoomID int64 `json:"room_id"`
}

type roomWaitResponse struct {
	Status       models.RoomStatus `json:"status"`
	RoomUserList []models.RoomUser `json:"room_user_list"`
}

type roomEndRequest struct {
	RoomID         int64 `json:"room_id"`
	JudgeCountList []int `json:"judge_count_list"`
	Score          int   `json:"score"`
}

type roomResultResponse struct {
	ResultUserList []models.ResultUser `json:"result_user_list"`
}

// CreateRoomHandler creates a room for the requested song with the caller as
// host.
func CreateRoomHandler(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roomCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		difficulty := models.LiveDifficulty(req.SelectDifficulty)
		if !difficulty.Valid() {
			http.Error(w, "invalid select_difficulty", http.StatusBadRequest)
			return
		}

		roomID, err := svc.CreateRoom(r.Context(), bearerToken(r), req.LiveID, difficulty)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, roomCreateResponse{RoomID: roomID})
	}
}

// ListRoomsHandler lists joinable rooms; live_id 0 matches every song.
func ListRoomsHandler(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roomListRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		infos, err := svc.ListRooms(r.Context(), bearerToken(r), req.LiveID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if infos == nil {
			infos = []models.RoomInfo{}
		}
		writeJSON(w, roomListResponse{RoomInfoList: infos})
	}
}

// JoinRoomHandler reports the join outcome as a result code; business
// outcomes like RoomFull are 200 responses, not errors.
func JoinRoomHandler(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roomJoinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		difficulty := models.LiveDifficulty(req.SelectDifficulty)
		if !difficulty.Valid() {
			http.Error(w, "invalid select_difficulty", http.StatusBadRequest)
			return
		}

		result, err := svc.JoinRoom(r.Context(), bearerToken(r), req.RoomID, difficulty)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, roomJoinResponse{JoinRoomResult: result})
	}
}

// WaitRoomHandler is the polling endpoint for the pre-game lobby screen.
func WaitRoomHandler(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roomIDRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		status, users, err := svc.WaitRoom(r.Context(), bearerToken(r), req.RoomID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, roomWaitResponse{Status: status, RoomUserList: users})
	}
}

// StartRoomHandler lets the host start the game.
func StartRoomHandler(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roomIDRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		if err := svc.StartRoom(r.Context(), bearerToken(r), req.RoomID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, struct{}{})
	}
}

// EndRoomHandler records the caller's play result.
func EndRoomHandler(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roomEndRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if len(req.JudgeCountList) != 5 {
			http.Error(w, "judge_count_list must have 5 entries", http.StatusBadRequest)
			return
		}
		var judges [5]int
		copy(judges[:], req.JudgeCountList)

		if err := svc.EndRoom(r.Context(), bearerToken(r), req.RoomID, judges, req.Score); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, struct{}{})
	}
}

// ResultRoomHandler is the polling endpoint for the results screen. An empty
// list means not every member has submitted yet.
func ResultRoomHandler(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roomIDRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		results, err := svc.ResultRoom(r.Context(), bearerToken(r), req.RoomID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, roomResultResponse{ResultUserList: results})
	}
}

// LeaveRoomHandler removes the caller from the room.
func LeaveRoomHandler(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roomIDRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		if err := svc.LeaveRoom(r.Context(), bearerToken(r), req.RoomID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, struct{}{})
	}
}
