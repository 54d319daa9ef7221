package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken       = errors.New("missing bearer token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrIncompleteIdentity = errors.New("token does not carry an email and name")
	ErrUntrustedIssuer    = errors.New("untrusted issuer")
)

var googleIssuers = map[string]struct{}{
	"accounts.google.com":         {},
	"https://accounts.google.com": {},
}

// Identity is what the rest of the service knows about a caller.
type Identity struct {
	Email string
	Name  string
}

type GoogleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// GoogleVerifier validates Google-issued ID tokens for one OAuth client id.
type GoogleVerifier struct {
	clientID string
	keys     *KeySet
	parser   *jwt.Parser
}

func NewGoogleVerifier(clientID string, keys *KeySet) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		keys:     keys,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithAudience(clientID),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(time.Minute),
		),
	}
}

// Verify checks signature, audience, issuer and lifetime of raw. Every failure
// wraps ErrInvalidToken; use Diagnostic for the text shown to the caller.
// ErrIncompleteIdentity means the token was valid but lacks email or name.
func (v *GoogleVerifier) Verify(ctx context.Context, raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingToken)
	}

	var claims GoogleClaims

	_, err := v.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header has no kid")
		}
		return v.keys.Key(ctx, kid)
	})

	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if _, ok := googleIssuers[claims.Issuer]; !ok {
		return Identity{}, fmt.Errorf("%w: %w %q", ErrInvalidToken, ErrUntrustedIssuer, claims.Issuer)
	}

	id := Identity{
		Email: strings.TrimSpace(claims.Email),
		Name:  strings.TrimSpace(claims.Name),
	}

	if id.Email == "" || id.Name == "" {
		return id, ErrIncompleteIdentity
	}

	return id, nil
}
