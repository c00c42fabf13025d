package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akatsuki-games/liveroom/internal/cache"
	"github.com/akatsuki-games/liveroom/internal/models"
	"github.com/akatsuki-games/liveroom/internal/room"
)

// createUserRetries bounds how often token allocation retries on a
// uniqueness collision.
const createUserRetries = 3

// Users is the Postgres-backed user directory. The optional token cache
// short-circuits repeated token lookups; it may be nil.
type Users struct {
	pool  *pgxpool.Pool
	cache *cache.TokenCache
}

func NewUsers(pool *pgxpool.Pool, c *cache.TokenCache) *Users {
	return &Users{pool: pool, cache: c}
}

// CreateUser inserts a new user and returns their freshly allocated bearer
// token. Token collisions retry with a new token.
func (u *Users) CreateUser(ctx context.Context, name string, leaderCardID int64) (string, error) {
	q := `INSERT INTO users (name, token, leader_card_id) VALUES ($1, $2, $3)`

	for i := 0; i < createUserRetries; i++ {
		token := uuid.NewString()
		err := pgx.BeginTxFunc(ctx, u.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
			_, execErr := tx.Exec(ctx, q, name, token, leaderCardID)
			return execErr
		})
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("insert user: %w", err)
		}
		return token, nil
	}
	return "", fmt.Errorf("token allocation failed after %d attempts", createUserRetries)
}

// GetUserByToken resolves a bearer token, consulting the cache first.
// Unknown tokens report room.ErrUnauthorized.
func (u *Users) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	if u.cache != nil {
		if usr, ok := u.cache.Get(ctx, token); ok {
			return usr, nil
		}
	}

	var usr models.User
	err := u.pool.QueryRow(ctx,
		`SELECT id, name, leader_card_id FROM users WHERE token = $1`,
		token,
	).Scan(&usr.ID, &usr.Name, &usr.LeaderCardID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, room.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user by token: %w", err)
	}
	usr.Token = token

	if u.cache != nil {
		u.cache.Set(ctx, token, &usr) // best-effort
	}
	return &usr, nil
}

// UpdateUser rewrites the caller's name and leader card. The cached entry
// for the token is dropped so the next lookup sees the new values.
func (u *Users) UpdateUser(ctx context.Context, token, name string, leaderCardID int64) error {
	err := pgx.BeginTxFunc(ctx, u.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, execErr := tx.Exec(ctx,
			`UPDATE users SET name = $2, leader_card_id = $3 WHERE token = $1`,
			token, name, leaderCardID,
		)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return room.ErrUnauthorized
		}
		return nil
	})
	if err != nil {
		return err
	}

	if u.cache != nil {
		u.cache.Invalidate(ctx, token)
	}
	return nil
}
