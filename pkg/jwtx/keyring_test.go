package jwtx

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("test-secret-0123456789abcdef")
	oldSecret  = []byte("previous-secret-0123456789ab")
)

func TestKeyring_SignAndVerify(t *testing.T) {
	t.Parallel()

	ring, err := NewKeyring(testSecret)
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := NewAccessClaims("user-1", "alice@example.com", "moderator", "authcore", time.Hour, now)

	token, err := ring.Sign(claims)
	require.NoError(t, err)

	got, err := ring.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "alice@example.com", got.Email)
	require.Equal(t, "moderator", got.Role)
	require.Equal(t, "authcore", got.Issuer)
	require.Equal(t, TypeAccess, got.TokenType)
}

func TestKeyring_RefreshClaims(t *testing.T) {
	t.Parallel()

	ring, err := NewKeyring(testSecret)
	require.NoError(t, err)

	now := time.Now().UTC()
	token, err := ring.Sign(NewRefreshClaims("user-2", "tok-abc", "authcore", time.Hour, now))
	require.NoError(t, err)

	got, err := ring.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-2", got.Subject)
	require.Equal(t, "tok-abc", got.ID)
	require.Equal(t, TypeRefresh, got.TokenType)
}

func TestKeyring_WrongSecret(t *testing.T) {
	t.Parallel()

	signer, err := NewKeyring(testSecret)
	require.NoError(t, err)

	other, err := NewKeyring([]byte("a-completely-different-secret"))
	require.NoError(t, err)

	token, err := signer.Sign(NewAccessClaims("u", "", "user", "authcore", time.Hour, time.Now().UTC()))
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestKeyring_PreviousSecretStillVerifies(t *testing.T) {
	t.Parallel()

	oldRing, err := NewKeyring(oldSecret)
	require.NoError(t, err)

	token, err := oldRing.Sign(NewAccessClaims("u", "", "user", "authcore", time.Hour, time.Now().UTC()))
	require.NoError(t, err)

	// After rotation the new ring keeps the old secret for verification only.
	rotated, err := NewKeyring(testSecret, oldSecret)
	require.NoError(t, err)

	got, err := rotated.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "u", got.Subject)
}

func TestKeyring_Expired(t *testing.T) {
	t.Parallel()

	ring, err := NewKeyring(testSecret)
	require.NoError(t, err)

	past := time.Now().UTC().Add(-2 * time.Hour)
	token, err := ring.Sign(NewAccessClaims("u", "", "user", "authcore", time.Hour, past))
	require.NoError(t, err)

	_, err = ring.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestKeyring_MissingExpiry(t *testing.T) {
	t.Parallel()

	ring, err := NewKeyring(testSecret)
	require.NoError(t, err)

	// Hand-rolled claims without exp must be rejected.
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "u",
	}).SignedString(testSecret)
	require.NoError(t, err)

	_, err = ring.Verify(raw)
	require.Error(t, err)
}

func TestKeyring_RejectsAlgorithmConfusion(t *testing.T) {
	t.Parallel()

	ring, err := NewKeyring(testSecret)
	require.NoError(t, err)

	// "none" algorithm tokens are never acceptable.
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ring.Verify(raw)
	require.Error(t, err)
}

func TestKeyring_Malformed(t *testing.T) {
	t.Parallel()

	ring, err := NewKeyring(testSecret)
	require.NoError(t, err)

	_, err = ring.Verify("not.a.jwt")
	require.ErrorIs(t, err, ErrMalformed)

	_, err = ring.Verify("")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestNewKeyring_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewKeyring(nil)
	require.ErrorIs(t, err, ErrMissingSecret)
}
