package user

import "time"

// NewGoogleUser builds the record stored on a principal's first successful login.
func NewGoogleUser(email, username string, now time.Time) User {
	now = now.UTC()
	key := Key(email)

	return User{
		ID:            key,
		Email:         key,
		Username:      username,
		Limited:       true,
		TrialCount:    0,
		IsBanned:      false,
		LastLoginDate: now,
		CreationDate:  now,
		AuthProvider:  ProviderGoogle,
		Role:          RoleUser,
	}
}
