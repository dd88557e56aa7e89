// internal/models/user.go
package models

import "strings"

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Profile — расширенный профиль пользователя с его статистикой.
type Profile struct {
	User             User   `json:"user"`
	Phone            string `json:"phone,omitempty"`
	Avatar           string `json:"avatar,omitempty"`
	AlertsReported   int    `json:"alerts_reported"`
	AlertsResolved   int    `json:"alerts_resolved"`
	ReputationPoints int    `json:"reputation_points"`
}

func (u *User) FullName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Username
	}
	return full
}

func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
