package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

type User struct {
	ID         uuid.UUID `json:"id"`
	GoogleID   string    `json:"google_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ImageSrc   string    `json:"image"`
	Role       string    `json:"role"`
	Created_At time.Time `json:"created_at"`
	Updated_At time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
