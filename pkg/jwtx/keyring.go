package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("jwtx: signing secret is required")

	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Keyring signs HS256 tokens with a single current secret and verifies
// against the current secret plus any number of previous ones. Keeping the
// previous secrets in the verification set lets operators rotate the signing
// secret without abruptly invalidating tokens issued before the rotation.
//
// Secrets are fixed at construction time; a Keyring is immutable and safe for
// concurrent use.
type Keyring struct {
	signing []byte
	verify  [][]byte
	parser  *jwt.Parser
}

// NewKeyring builds a keyring that signs with signing and verifies with
// signing plus each of previous, in order.
func NewKeyring(signing []byte, previous ...[]byte) (*Keyring, error) {
	if len(signing) == 0 {
		return nil, ErrMissingSecret
	}

	verify := make([][]byte, 0, len(previous)+1)
	verify = append(verify, signing)
	for _, p := range previous {
		if len(p) == 0 {
			continue
		}
		verify = append(verify, p)
	}

	return &Keyring{
		signing: signing,
		verify:  verify,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Sign serializes and signs the claims with the current secret.
func (k *Keyring) Sign(c Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(k.signing)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Verify validates the token against every secret in the ring and returns
// its claims. A token that fails only on signature is retried against the
// next secret; any other failure is final.
func (k *Keyring) Verify(tokenStr string) (Claims, error) {
	var lastErr error

	for _, secret := range k.verify {
		token, err := k.parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
			return secret, nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
				lastErr = ErrInvalidSig
				continue
			}
			return Claims{}, mapJWTError(err)
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			return Claims{}, ErrInvalidClaim
		}
		return *claims, nil
	}

	if lastErr == nil {
		lastErr = ErrInvalidSig
	}
	return Claims{}, lastErr
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return fmt.Errorf("%w: %v", ErrInvalidClaim, err)
	}
}
