package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Diagnostic reduces a Verify error to a short fixed string that is safe to
// return to the caller. The full error belongs in the logs only.
func Diagnostic(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingToken):
		return "missing token"
	case errors.Is(err, ErrKeysUnavailable):
		return "signing keys unavailable"
	case errors.Is(err, ErrUnknownKey):
		return "unknown signing key"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "token not yet valid"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "audience mismatch"
	case errors.Is(err, ErrUntrustedIssuer):
		return "issuer mismatch"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing required claim"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed token"
	case errors.Is(err, ErrIncompleteIdentity):
		return "incomplete identity"
	default:
		return "invalid token"
	}
}
