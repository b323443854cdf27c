package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID   `json:"id"`
	Email        string      `json:"email"`
	FirstName    string      `json:"firstname"`
	LastName     string      `json:"lastname"`
	Nickname     string      `json:"nickname"`
	AvatarURL    *string     `json:"avatar_url,omitempty"`
	Role         string      `json:"role"`
	JoinedRooms  []uuid.UUID `json:"joined_rooms"`
	CreatedRooms []uuid.UUID `json:"created_rooms"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Profile is the projection of a user embedded in room and message responses.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Nickname  string    `json:"nickname"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Role      string    `json:"role"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Nickname:  u.Nickname,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
	}
}

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)
