package domain

import "time"

// Account is a materialised user. Accounts only exist once a signup code
// has been verified.
type Account struct {
	ID           string
	Username     string
	Email        string
	DisplayName  string
	PasswordHash string // argon2id, PHC encoded
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
