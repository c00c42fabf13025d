package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/akatsuki-games/liveroom/internal/models"
)

// UserService is the user directory surface the HTTP layer needs.
type UserService interface {
	CreateUser(ctx context.Context, name string, leaderCardID int64) (string, error)
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
	UpdateUser(ctx context.Context, token, name string, leaderCardID int64) error
}

type userCreateRequest struct {
	UserName     string `json:"user_name"`
	LeaderCardID int64  `json:"leader_card_id"`
}

type userCreateResponse struct {
	UserToken string `json:"user_token"`
}

// CreateUserHandler registers a new user and returns their bearer token.
func CreateUserHandler(users UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if req.UserName == "" {
			http.Error(w, "user_name is required", http.StatusBadRequest)
			return
		}

		token, err := users.CreateUser(r.Context(), req.UserName, req.LeaderCardID)
		if err != nil {
			http.Error(w, "error creating user", http.StatusInternalServerError)
			return
		}
		writeJSON(w, userCreateResponse{UserToken: token})
	}
}

// MeHandler returns the caller's own profile, token excluded.
func MeHandler(users UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := users.GetUserByToken(r.Context(), bearerToken(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, user)
	}
}

// UpdateUserHandler rewrites the caller's name and leader card.
func UpdateUserHandler(users UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if req.UserName == "" {
			http.Error(w, "user_name is required", http.StatusBadRequest)
			return
		}

		if err := users.UpdateUser(r.Context(), bearerToken(r), req.UserName, req.LeaderCardID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, struct{}{})
	}
}
