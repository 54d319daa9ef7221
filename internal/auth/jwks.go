package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultKeyTTL      = time.Hour
	minRefreshInterval = 30 * time.Second
	fetchTimeout       = 10 * time.Second
)

var (
	ErrUnknownKey      = errors.New("unknown signing key")
	ErrKeysUnavailable = errors.New("signing keys unavailable")
)

type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// KeySet caches the identity provider's RSA signing keys by kid. Keys are
// refetched when the cache expires or a token names a kid we have not seen,
// but never more often than minRefreshInterval. Concurrent callers share one
// in-flight fetch.
type KeySet struct {
	url        string
	httpClient *http.Client
	group      singleflight.Group

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	expiresAt   time.Time
	lastAttempt time.Time
	lastErr     error
	now         func() time.Time
}

func NewKeySet(url string, httpClient *http.Client) *KeySet {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &KeySet{
		url:        url,
		httpClient: httpClient,
		keys:       make(map[string]*rsa.PublicKey),
		now:        time.Now,
	}
}

// Key returns the public key for kid, fetching the key set when needed.
func (s *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, fresh := s.lookup(kid); key != nil && fresh {
		return key, nil
	}

	if err := s.refresh(ctx); err != nil {
		// serve a stale key rather than failing on a flaky fetch
		if key, _ := s.lookup(kid); key != nil {
			return key, nil
		}
		return nil, err
	}

	key, _ := s.lookup(kid)

	if key == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownKey, kid)
	}

	return key, nil
}

func (s *KeySet) lookup(kid string) (*rsa.PublicKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.keys[kid], s.now().Before(s.expiresAt)
}

// refresh refetches the key set unless a fetch ran within minRefreshInterval,
// in which case that fetch's outcome is returned.
func (s *KeySet) refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("jwks", func() (interface{}, error) {
		s.mu.Lock()
		if !s.lastAttempt.IsZero() && s.now().Sub(s.lastAttempt) < minRefreshInterval {
			err := s.lastErr
			s.mu.Unlock()
			return nil, err
		}
		s.lastAttempt = s.now()
		s.mu.Unlock()

		// detached from ctx: every waiter shares this fetch
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		err := s.fetch(fetchCtx)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
		}

		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()

		return nil, err
	})

	return err
}

func (s *KeySet) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)

	if err != nil {
		return fmt.Errorf("build jwks request: %w", err)
	}

	resp, err := s.httpClient.Do(req)

	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var set jwks

	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))

	for _, k := range set.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}

		pub, err := rsaKeyFromJWK(k)

		if err != nil {
			continue
		}

		keys[k.Kid] = pub
	}

	if len(keys) == 0 {
		return errors.New("jwks contained no usable keys")
	}

	s.mu.Lock()
	s.keys = keys
	s.expiresAt = s.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	s.mu.Unlock()

	return nil
}

func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")

		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}

		secs, err := strconv.Atoi(value)

		if err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}

	return defaultKeyTTL
}

func rsaKeyFromJWK(j jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, err
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, err
	}

	// real keys use 65537; anything wider than 32 bits would overflow
	if len(eBytes) == 0 || len(eBytes) > 4 {
		return nil, errors.New("invalid exponent")
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}

	if e == 0 {
		return nil, errors.New("invalid exponent")
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
