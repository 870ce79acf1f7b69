package model

import "time"

// User represents a user in the system.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsPremium bool      `json:"isPremium"`
	Country   string    `json:"country"` // ISO 3166-1 alpha-2, resolved at login
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
