// Package models holds the records persisted by the user service and the
// principal view derived from them for authenticated requests.
package models

import (
	"slices"
	"time"
)

type User struct {
	ID            string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	EmailVerified bool
	Roles         []Role
	CreatedAt     time.Time
}

// Authorities returns the user's role names in the order they are held.
func (u *User) Authorities() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Name)
	}
	return out
}

func (u *User) HasAuthority(name string) bool {
	return slices.Contains(u.Authorities(), name)
}

// AddRole grants r unless the user already holds a role of that name.
func (u *User) AddRole(r Role) {
	if u.HasAuthority(r.Name) {
		return
	}
	u.Roles = append(u.Roles, r)
}

// Principal is the authenticated view of a User attached to a request.
// It carries no credentials.
func (u *User) Principal() *Principal {
	return &Principal{Email: u.Email, Authorities: u.Authorities()}
}

// UserInfo is the profile returned on login.
type UserInfo struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

func (u *User) Info() UserInfo {
	return UserInfo{
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
}
