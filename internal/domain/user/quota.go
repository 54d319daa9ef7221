package user

import "errors"

var (
	ErrBanned            = errors.New("user is banned")
	ErrTrialLimitReached = errors.New("trial limit reached")
)

// CheckQuota decides whether u may start another generation. Banned users are
// rejected before the trial counter is looked at.
func CheckQuota(u User, trialMaximum int) error {
	if u.IsBanned {
		return ErrBanned
	}

	if u.Limited && u.TrialCount >= trialMaximum {
		return ErrTrialLimitReached
	}

	return nil
}

// ShouldCountTrial reports whether a successful generation advances the trial counter.
func ShouldCountTrial(u User, trialMaximum int) bool {
	return u.Limited && u.TrialCount < trialMaximum
}
