package speech

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout   = errors.New("speech synthesis timed out")
	ErrTransport = errors.New("speech service unreachable")
)

// UpstreamError is a non-2xx answer from the synthesis service. StatusCode is
// relayed to the caller unchanged.
type UpstreamError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("speech service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("speech service returned status %d: %s", e.StatusCode, e.Message)
}
