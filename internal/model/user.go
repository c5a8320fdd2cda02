package model

import "time"

type UserID string // local user id e.g. 3GFQNuSg3dPqDD1emxv5bqX42oxq

type UserStatus int

const (
	UserStatusPending UserStatus = iota
	UserStatusActive
	UserStatusLocked
	UserStatusDeleted
)

type CreateUserParams struct {
	Handle   string `json:"handle" validate:"required,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type User struct {
	ID                      UserID     `db:"ID" json:"id"`
	CreatedAt               time.Time  `db:"CreatedAt" json:"createdAt"`
	UpdatedAt               *time.Time `db:"UpdatedAt" json:"updatedAt"`
	Status                  UserStatus `db:"Status" json:"status"`
	Handle                  string     `db:"Handle" json:"handle"`
	Email                   string     `db:"Email" json:"email"`
	Profile                 string     `db:"Profile" json:"profile"`
	Password                string     `db:"Password" json:"-"`
	IsVerified              bool       `db:"IsVerified" json:"isVerified"`
	PasswordChangeCount     int        `db:"PasswordChangeCount" json:"-"`
	PasswordChangeLockUntil *time.Time `db:"PasswordChangeLockUntil" json:"-"`
	Version                 int64      `db:"Version" json:"-"`
}

// PasswordStateUpdate is the set of fields a password change may write.
// A nil PasswordHash leaves the stored credential untouched.
type PasswordStateUpdate struct {
	PasswordHash            *string
	PasswordChangeCount     int
	PasswordChangeLockUntil *time.Time
}
