// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// ID is an internal xid string generated at registration and never changes.
// Email and NickName carry UNIQUE constraints in the database; registration
// rejects a duplicate email with a Conflict error.
//
// PasswordHash holds the bcrypt hash of the password and is never
// serialized to JSON (`json:"-"`). Accounts created through the GitHub
// OAuth flow get a hash of a random throwaway secret so the column is
// never empty; they authenticate via OAuth, not the login endpoint.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	NickName     string    `json:"nickName"`
	Email        string    `json:"email"`
	Photo        string    `json:"photo,omitempty"` // profile picture URL, may be empty
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	GitHubID     int64     `json:"-"` // non-zero only for OAuth-created accounts
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
