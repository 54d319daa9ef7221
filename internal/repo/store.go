package repo

import (
	"context"
	"errors"

	"github.com/geocoder89/speechgate/internal/domain/user"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

type LookupStatus int

const (
	Found LookupStatus = iota
	NotFound
	Failed
)

func (s LookupStatus) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// LookupResult is the outcome of resolving a user by email. Err is only set
// when Status is Failed.
type LookupResult struct {
	Status LookupStatus
	User   user.User
	Err    error
}

func FoundUser(u user.User) LookupResult {
	return LookupResult{Status: Found, User: u}
}

func Missing() LookupResult {
	return LookupResult{Status: NotFound}
}

func LookupFailed(err error) LookupResult {
	return LookupResult{Status: Failed, Err: err}
}

// UserStore is the document collection holding one record per email.
type UserStore interface {
	Resolve(ctx context.Context, email string) LookupResult
	// Create inserts u and fails with ErrUserExists when a record is already present.
	Create(ctx context.Context, u user.User) error
	// Save upserts u keyed by its email.
	Save(ctx context.Context, u user.User) error
	// ChargeTrial adds one trial to the stored record when it is limited and
	// below trialMaximum, leaving every other field as currently stored.
	// charged is false when the record is missing or not eligible.
	ChargeTrial(ctx context.Context, email string, trialMaximum int) (charged bool, err error)
	Ping(ctx context.Context) error
}
