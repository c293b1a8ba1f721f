package jwtx

import (
	"errors"
	"fmt"
)

// Validation failures, reported in check order: the first failing check wins.
var (
	ErrEmpty          = errors.New("jwtx: empty token")
	ErrMalformed      = errors.New("jwtx: malformed token")
	ErrUnsupportedAlg = errors.New("jwtx: unsupported algorithm")
	ErrInvalidSig     = errors.New("jwtx: invalid signature")
	ErrExpired        = errors.New("jwtx: token expired")

	// ErrIssuer is a malformed-token variant so callers matching on
	// ErrMalformed also catch tokens minted by someone else.
	ErrIssuer = fmt.Errorf("%w: issuer mismatch", ErrMalformed)

	ErrWeakKey = errors.New("jwtx: signing secret too short")
)
