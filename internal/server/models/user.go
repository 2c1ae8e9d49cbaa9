package models

import "time"

// User is a known identity. Authentication happens outside the core; the
// directory only records who exists so grants can be validated.
type User struct {
	ID        string    `json:"id"`
	UserName  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
