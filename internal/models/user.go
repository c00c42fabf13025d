package models

// User is a row in the users table. Token is the opaque bearer credential
// issued at creation; it is never included in API responses.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	LeaderCardID int64  `json:"leader_card_id"`
	Token        string `json:"-"`
}
