package user

import (
	"strings"
	"time"
)

const (
	ProviderGoogle = "Google"
	RoleUser       = "user"
)

// User is the per-principal document. ID and Email always hold the same value;
// the email is the partition key in every store backend.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Limited       bool      `json:"limited"`
	TrialCount    int       `json:"trialCount"`
	IsBanned      bool      `json:"isBanned"`
	LastLoginDate time.Time `json:"lastLoginDate"`
	CreationDate  time.Time `json:"creationDate"`
	AuthProvider  string    `json:"authProvider"`
	Role          string    `json:"role"`
}

// Key normalizes an email for use as a store key.
func Key(email string) string {
	return strings.TrimSpace(email)
}

// TouchLogin refreshes LastLoginDate. The stored value never moves backwards,
// even when two logins land on the same clock tick.
func (u *User) TouchLogin(now time.Time) {
	now = now.UTC()

	if !now.After(u.LastLoginDate) {
		now = u.LastLoginDate.Add(time.Microsecond)
	}

	u.LastLoginDate = now
}
