package jwtx

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretSize is the shortest HMAC secret NewHS256Codec accepts.
const MinSecretSize = 32

// CodecOptions tune a Codec. Zero values fall back to defaults.
type CodecOptions struct {
	// Issuer stamped into iss and required on validation. Empty disables the check.
	Issuer string

	// TTL of issued tokens. Defaults to DefaultSessionTTL.
	TTL time.Duration

	// Now is the clock used for issuing and expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// Codec issues and validates HS256 session tokens. It is safe for
// concurrent use; the secret is never modified after construction.
//
// Validation is pure: it never consults revocation state.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewHS256Codec creates a codec signing with the given shared secret.
func NewHS256Codec(secret []byte, opts CodecOptions) (*Codec, error) {
	if len(secret) < MinSecretSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrWeakKey, MinSecretSize, len(secret))
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &Codec{
		secret: key,
		issuer: opts.Issuer,
		ttl:    opts.TTL,
		now:    opts.Now,
	}, nil
}

// TTL reports the lifetime of tokens issued by this codec.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a new token for subject. The returned claims are exactly
// what was encoded.
func (c *Codec) Issue(subject, role string) (string, Claims, error) {
	if strings.TrimSpace(subject) == "" {
		return "", Claims{}, errors.New("jwtx: subject is required")
	}

	claims := NewSessionClaims(subject, role, c.issuer, c.ttl, c.now())
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, claims, nil
}

// Validate checks structure, algorithm, signature and expiry, in that
// order. A token is expired once now >= exp.
func (c *Codec) Validate(token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, ErrEmpty
	}

	parser := jwt.NewParser(
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrUnsupportedAlg
		}
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}

	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// ExtractSubject validates token and returns its subject.
func (c *Codec) ExtractSubject(token string) (string, error) {
	claims, err := c.Validate(token)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	return claims.Subject, nil
}

// ReadExpiry returns the exp claim without verifying the signature or the
// expiry itself. Logout uses it to size the revocation record.
func (c *Codec) ReadExpiry(token string) (time.Time, error) {
	if strings.TrimSpace(token) == "" {
		return time.Time{}, ErrEmpty
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, ErrMalformed
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: missing exp", ErrMalformed)
	}
	return claims.ExpiresAt.Time, nil
}

// classify maps golang-jwt errors onto the package sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnsupportedAlg), errors.Is(err, jwt.ErrTokenUnverifiable):
		// Unverifiable also covers alg values golang-jwt does not know.
		return ErrUnsupportedAlg
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
