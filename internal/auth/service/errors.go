package service

import (
	"errors"
	"fmt"
)

// Error taxonomy exposed to callers. Token verification failures are
// deliberately undifferentiated: expired, malformed and bad-signature tokens
// all surface as ErrUnauthorized so an attacker cannot probe failure causes.
// Internal logs keep the distinction.
var (
	ErrNotFound     = errors.New("auth: not_found")
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrForbidden    = errors.New("auth: forbidden")
)

func unauthorized(msg string) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
}

func forbidden(msg string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, msg)
}
