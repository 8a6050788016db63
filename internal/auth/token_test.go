package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	i, err := NewIssuer(Config{Base64Secret: testSecret, Issuer: "timesheetd", TTL: time.Hour})
	require.NoError(t, err)
	return i
}

func TestIssuer_RoundTrip(t *testing.T) {
	i := newTestIssuer(t)

	tok, err := i.Issue("alice", "org1", "Alice")
	require.NoError(t, err)

	claims, err := i.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.AccountID())
	assert.Equal(t, "org1", claims.OrganizationID)
	assert.Equal(t, "Alice", claims.Name)
}

func TestIssuer_RejectsExpired(t *testing.T) {
	i := newTestIssuer(t)
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	i.now = func() time.Time { return base }

	tok, err := i.Issue("alice", "org1", "")
	require.NoError(t, err)

	i.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = i.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_RejectsForeignSecretAndIssuer(t *testing.T) {
	i := newTestIssuer(t)

	other, err := NewIssuer(Config{
		Base64Secret: base64.StdEncoding.EncodeToString([]byte("ffffffffffffffffffffffffffffffff")),
		Issuer:       "timesheetd",
	})
	require.NoError(t, err)
	tok, err := other.Issue("alice", "org1", "")
	require.NoError(t, err)
	_, err = i.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIss, err := NewIssuer(Config{Base64Secret: testSecret, Issuer: "someone-else"})
	require.NoError(t, err)
	tok, err = wrongIss.Issue("alice", "org1", "")
	require.NoError(t, err)
	_, err = i.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_RejectsNoneAlgorithm(t *testing.T) {
	i := newTestIssuer(t)
	claims := Claims{
		OrganizationID: "org1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "timesheetd",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = i.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_MissingIdentity(t *testing.T) {
	i := newTestIssuer(t)
	_, err := i.Issue("", "org1", "")
	assert.ErrorIs(t, err, ErrMissingIdentity)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "timesheetd",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	require.NoError(t, err)
	_, err = i.Parse(tok)
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestNewIssuer_BadSecret(t *testing.T) {
	_, err := NewIssuer(Config{Base64Secret: "not base64!"})
	assert.Error(t, err)

	_, err = NewIssuer(Config{Base64Secret: base64.StdEncoding.EncodeToString([]byte("short"))})
	assert.Error(t, err)
}
