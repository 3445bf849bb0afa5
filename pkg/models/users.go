package models

import "time"

// UserID identifies a user in the directory.
type UserID int64

// TeamID identifies a team in the directory.
type TeamID int64

// User represents a directory user an alert can target.
type User struct {
	ID        UserID    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Team represents a named group of users.
type Team struct {
	ID          TeamID    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	MemberCount int       `json:"member_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateUserRequest is the payload for registering a user in the directory.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required"`
	Timezone string `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

// CreateTeamRequest is the payload for creating a team.
type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// AddTeamMemberRequest is the payload for adding a user to a team.
type AddTeamMemberRequest struct {
	UserID UserID `json:"user_id" validate:"required"`
}
