package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestIssuerVerifier_RoundTrip(t *testing.T) {
	token, err := NewIssuer(testSecret, "bookbazaar").Sign(Identity{UserID: "u-1", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)

	id, err := NewVerifier(testSecret, "bookbazaar").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-1", Role: RoleAdmin}, id)
}

func TestVerify_DefaultsToUserRole(t *testing.T) {
	token, err := NewIssuer(testSecret, "").Sign(Identity{UserID: "u-1"}, time.Hour)
	require.NoError(t, err)

	id, err := NewVerifier(testSecret, "").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, id.Role)
}

func TestVerify_SubjectFallback(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "u-sub",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	id, err := NewVerifier(testSecret, "").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-sub", id.UserID)
}

func TestVerify_Rejects(t *testing.T) {
	valid := func(t *testing.T, secret []byte, issuer string, ttl time.Duration) string {
		t.Helper()
		token, err := NewIssuer(secret, issuer).Sign(Identity{UserID: "u-1"}, ttl)
		require.NoError(t, err)
		return token
	}

	t.Run("WrongSecret", func(t *testing.T) {
		_, err := NewVerifier(testSecret, "").Verify(valid(t, []byte("other"), "", time.Hour))
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
	t.Run("Expired", func(t *testing.T) {
		_, err := NewVerifier(testSecret, "").Verify(valid(t, testSecret, "", -time.Minute))
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
	t.Run("WrongIssuer", func(t *testing.T) {
		_, err := NewVerifier(testSecret, "bookbazaar").Verify(valid(t, testSecret, "someone-else", time.Hour))
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
	t.Run("Garbage", func(t *testing.T) {
		_, err := NewVerifier(testSecret, "").Verify("not.a.token")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
	t.Run("NoSecret", func(t *testing.T) {
		_, err := NewVerifier(nil, "").Verify(valid(t, testSecret, "", time.Hour))
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
	t.Run("NoneAlgorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u-1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = NewVerifier(testSecret, "").Verify(token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
	t.Run("NoSubject", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: RoleAdmin}).SignedString(testSecret)
		require.NoError(t, err)
		_, err = NewVerifier(testSecret, "").Verify(token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}
