package service

import "errors"

var (
	// ErrUserNotRegistered means the caller holds a valid token but never
	// called POST /auth, so no usage record exists yet.
	ErrUserNotRegistered = errors.New("user is not registered")
	ErrStore             = errors.New("user store failure")
)
